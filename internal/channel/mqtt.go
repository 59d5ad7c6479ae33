package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"birdsbuddy/internal/logger"
)

type MQTTOptions struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	QoS            byte
	ConnectRetries int
	ConnectTimeout time.Duration
}

// MQTT mirrors the device document from a retained <prefix>/sensors topic
// and publishes commands to <prefix>/commands/<name>.
type MQTT struct {
	state

	client mqtt.Client
	opts   MQTTOptions
	log    *logger.Logger
}

func (o MQTTOptions) sensorsTopic() string {
	return o.TopicPrefix + "/sensors"
}

func (o MQTTOptions) commandTopic(name string) string {
	return o.TopicPrefix + "/commands/" + name
}

// DialMQTT connects to the broker, retrying with exponential backoff. An
// error means the channel is unavailable for this session.
func DialMQTT(ctx context.Context, o MQTTOptions, log *logger.Logger) (*MQTT, error) {
	if log == nil {
		log = logger.Nop()
	}
	m := &MQTT{opts: o, log: log}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	opts.SetUsername(o.Username)
	opts.SetPassword(o.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(o.ConnectTimeout)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(m.onConnectionLost)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = o.ConnectTimeout * time.Duration(max(o.ConnectRetries, 1))
	retries := max(o.ConnectRetries-1, 0)

	err := backoff.Retry(func() error {
		m.client = mqtt.NewClient(opts)
		token := m.client.Connect()
		if !token.WaitTimeout(o.ConnectTimeout) {
			return fmt.Errorf("connect to %s: timed out after %s", o.Broker, o.ConnectTimeout)
		}
		if err := token.Error(); err != nil {
			log.Warnw("mqtt_connect_failed", "broker", o.Broker, "err", err)
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection: %w", err)
	}

	log.Infow("mqtt_connected", "broker", o.Broker, "topic", o.sensorsTopic())
	return m, nil
}

// onConnect runs on every (re)connect. The session is clean, so the sensors
// subscription is renewed each time.
func (m *MQTT) onConnect(c mqtt.Client) {
	token := c.Subscribe(m.opts.sensorsTopic(), m.opts.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		m.handleSensors(msg.Payload())
	})
	go func() {
		if token.Wait() && token.Error() != nil {
			m.log.Errorw("mqtt_subscribe_failed", "topic", m.opts.sensorsTopic(), "err", token.Error())
		}
	}()
	m.setConnected(true)
}

func (m *MQTT) onConnectionLost(_ mqtt.Client, err error) {
	m.log.Warnw("mqtt_connection_lost", "err", err)
	m.setConnected(false)
}

func (m *MQTT) handleSensors(payload []byte) {
	patch, err := decodeDocument(payload)
	if err != nil {
		m.log.Warnw("mqtt_sensors_dropped", "err", err, "bytes", len(payload))
		return
	}
	m.setDocument(patch)
}

// SetCommand publishes "true" to the command topic and waits for the broker
// acknowledgement or ctx, whichever comes first.
func (m *MQTT) SetCommand(ctx context.Context, name string) error {
	if m.client == nil || !m.client.IsConnectionOpen() {
		return fmt.Errorf("publish %s: not connected to broker", name)
	}
	token := m.client.Publish(m.opts.commandTopic(name), m.opts.QoS, false, "true")
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", name, ctx.Err())
	}
}

func (m *MQTT) Close() error {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
	m.setConnected(false)
	return nil
}
