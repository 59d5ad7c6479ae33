package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Channel drivers.
const (
	DriverNone     = "none"
	DriverMQTT     = "mqtt"
	DriverFirebase = "firebase"
)

// History drivers.
const (
	HistoryNone   = "none"
	HistorySQLite = "sqlite"
	HistoryInflux = "influx"
)

const envPrefix = "BIRDSBUDDY"

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Display   DisplayConfig   `mapstructure:"display"`
	Channel   ChannelConfig   `mapstructure:"channel"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Storage   StorageConfig   `mapstructure:"storage"`
	History   HistoryConfig   `mapstructure:"history"`
	Push      PushConfig      `mapstructure:"push"`
}

type ServerConfig struct {
	Port              string        `mapstructure:"port"`
	CommandRatePerSec float64       `mapstructure:"command_rate_per_sec"`
	CommandBurst      int           `mapstructure:"command_burst"`
	HistoryCacheTTL   time.Duration `mapstructure:"history_cache_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DisplayConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// ChannelConfig selects and configures the remote state channel.
type ChannelConfig struct {
	Driver         string         `mapstructure:"driver"`
	ConnectTimeout time.Duration  `mapstructure:"connect_timeout"`
	WriteTimeout   time.Duration  `mapstructure:"write_timeout"`
	MQTT           MQTTConfig     `mapstructure:"mqtt"`
	Firebase       FirebaseConfig `mapstructure:"firebase"`
	Breaker        BreakerConfig  `mapstructure:"breaker"`
}

type MQTTConfig struct {
	Broker         string `mapstructure:"broker"`
	ClientID       string `mapstructure:"client_id"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	TopicPrefix    string `mapstructure:"topic_prefix"`
	QoS            byte   `mapstructure:"qos"`
	ConnectRetries int    `mapstructure:"connect_retries"`
}

type FirebaseConfig struct {
	DatabaseURL  string `mapstructure:"database_url"`
	AuthToken    string `mapstructure:"auth_token"`
	SensorsPath  string `mapstructure:"sensors_path"`
	CommandsPath string `mapstructure:"commands_path"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

type SimulatorConfig struct {
	Tick               time.Duration `mapstructure:"tick"`
	Seed               int64         `mapstructure:"seed"`
	ResumeOnDisconnect bool          `mapstructure:"resume_on_disconnect"`
}

// StorageConfig enables the SQLite archive when Path is set.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type HistoryConfig struct {
	Driver      string        `mapstructure:"driver"`
	SampleEvery time.Duration `mapstructure:"sample_every"`
	Influx      InfluxConfig  `mapstructure:"influx"`
}

type InfluxConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

type PushConfig struct {
	PublicKey  string `mapstructure:"vapid_public_key"`
	PrivateKey string `mapstructure:"vapid_private_key"`
	Subject    string `mapstructure:"subject"`
	TTL        int    `mapstructure:"ttl"`
	Workers    int    `mapstructure:"workers"`
}

// Enabled reports whether VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// Load reads configs/config.yml (or the file at path when non-empty),
// overlays BIRDSBUDDY_* environment variables and validates the result.
// A missing config file is not an error; defaults and env still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.command_rate_per_sec", 2.0)
	v.SetDefault("server.command_burst", 4)
	v.SetDefault("server.history_cache_ttl", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("display.timezone", "Asia/Kolkata")

	v.SetDefault("channel.driver", DriverNone)
	v.SetDefault("channel.connect_timeout", 10*time.Second)
	v.SetDefault("channel.write_timeout", 5*time.Second)
	v.SetDefault("channel.mqtt.broker", "")
	v.SetDefault("channel.mqtt.client_id", "birdsbuddy-console")
	v.SetDefault("channel.mqtt.username", "")
	v.SetDefault("channel.mqtt.password", "")
	v.SetDefault("channel.mqtt.topic_prefix", "birdsbuddy")
	v.SetDefault("channel.mqtt.qos", 1)
	v.SetDefault("channel.mqtt.connect_retries", 5)
	// keys without a useful default are still declared so env overrides reach Unmarshal
	v.SetDefault("channel.firebase.database_url", "")
	v.SetDefault("channel.firebase.auth_token", "")
	v.SetDefault("channel.firebase.sensors_path", "sensors")
	v.SetDefault("channel.firebase.commands_path", "commands")
	v.SetDefault("channel.breaker.max_failures", 5)
	v.SetDefault("channel.breaker.open_timeout", 30*time.Second)

	v.SetDefault("simulator.tick", time.Second)
	v.SetDefault("simulator.seed", 0)
	v.SetDefault("simulator.resume_on_disconnect", false)

	v.SetDefault("storage.path", "")

	v.SetDefault("history.driver", HistoryNone)
	v.SetDefault("history.sample_every", time.Minute)
	v.SetDefault("history.influx.url", "")
	v.SetDefault("history.influx.token", "")
	v.SetDefault("history.influx.org", "")
	v.SetDefault("history.influx.bucket", "")

	v.SetDefault("push.vapid_public_key", "")
	v.SetDefault("push.vapid_private_key", "")
	v.SetDefault("push.subject", "")
	v.SetDefault("push.ttl", 3600)
	v.SetDefault("push.workers", 2)
}

func (c *Config) normalize() {
	c.Channel.Driver = strings.ToLower(strings.TrimSpace(c.Channel.Driver))
	c.History.Driver = strings.ToLower(strings.TrimSpace(c.History.Driver))
	if c.Channel.Driver == "" {
		c.Channel.Driver = DriverNone
	}
	if c.History.Driver == "" {
		c.History.Driver = HistoryNone
	}
	c.Channel.MQTT.TopicPrefix = strings.Trim(c.Channel.MQTT.TopicPrefix, "/")
	c.Channel.Firebase.DatabaseURL = strings.TrimRight(c.Channel.Firebase.DatabaseURL, "/")
	c.Channel.Firebase.SensorsPath = strings.Trim(c.Channel.Firebase.SensorsPath, "/")
	c.Channel.Firebase.CommandsPath = strings.Trim(c.Channel.Firebase.CommandsPath, "/")
	if c.Push.Workers <= 0 {
		c.Push.Workers = 1
	}
}

func (c *Config) validate() error {
	switch c.Channel.Driver {
	case DriverNone:
	case "memory":
		return errors.New("channel.driver memory is only available to tests; use none for a simulated console")
	case DriverMQTT:
		if c.Channel.MQTT.Broker == "" {
			return errors.New("channel.mqtt.broker is required for the mqtt driver")
		}
		if c.Channel.MQTT.QoS > 2 {
			return fmt.Errorf("channel.mqtt.qos must be 0, 1 or 2, got %d", c.Channel.MQTT.QoS)
		}
	case DriverFirebase:
		if c.Channel.Firebase.DatabaseURL == "" {
			return errors.New("channel.firebase.database_url is required for the firebase driver")
		}
	default:
		return fmt.Errorf("unknown channel.driver %q", c.Channel.Driver)
	}

	switch c.History.Driver {
	case HistoryNone:
	case HistorySQLite:
		if c.Storage.Path == "" {
			return errors.New("history.driver=sqlite requires storage.path")
		}
	case HistoryInflux:
		if c.History.Influx.URL == "" || c.History.Influx.Bucket == "" {
			return errors.New("history.influx.url and history.influx.bucket are required for the influx driver")
		}
	default:
		return fmt.Errorf("unknown history.driver %q", c.History.Driver)
	}

	if c.Push.Enabled() && c.Storage.Path == "" {
		return errors.New("push notifications require storage.path for subscriptions")
	}
	if c.Simulator.Tick <= 0 {
		return errors.New("simulator.tick must be positive")
	}
	if c.History.Driver != HistoryNone && c.History.SampleEvery <= 0 {
		return errors.New("history.sample_every must be positive")
	}
	if c.Server.CommandRatePerSec <= 0 || c.Server.CommandBurst <= 0 {
		return errors.New("server.command_rate_per_sec and server.command_burst must be positive")
	}
	return nil
}
