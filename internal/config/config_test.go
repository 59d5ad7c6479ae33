package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverNone, cfg.Channel.Driver)
	assert.Equal(t, time.Second, cfg.Simulator.Tick)
	assert.Equal(t, "Asia/Kolkata", cfg.Display.Timezone)
	assert.Equal(t, HistoryNone, cfg.History.Driver)
	assert.False(t, cfg.Simulator.ResumeOnDisconnect)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_ReadsYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  history_cache_ttl: 5s
channel:
  driver: MQTT
  mqtt:
    broker: tcp://localhost:1883
    topic_prefix: /station-1/
    qos: 0
simulator:
  tick: 250ms
  seed: 42
storage:
  path: ./data/console.db
history:
  driver: sqlite
  sample_every: 10s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.HistoryCacheTTL)
	assert.Equal(t, DriverMQTT, cfg.Channel.Driver)
	assert.Equal(t, "station-1", cfg.Channel.MQTT.TopicPrefix)
	assert.Equal(t, byte(0), cfg.Channel.MQTT.QoS)
	assert.Equal(t, 250*time.Millisecond, cfg.Simulator.Tick)
	assert.Equal(t, int64(42), cfg.Simulator.Seed)
	assert.Equal(t, HistorySQLite, cfg.History.Driver)
	assert.Equal(t, 10*time.Second, cfg.History.SampleEvery)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
channel:
  driver: firebase
  firebase:
    database_url: https://example.invalid/
`)
	t.Setenv("BIRDSBUDDY_SERVER_PORT", "7000")
	t.Setenv("BIRDSBUDDY_CHANNEL_FIREBASE_AUTH_TOKEN", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Channel.Firebase.AuthToken)
	assert.Equal(t, "https://example.invalid", cfg.Channel.Firebase.DatabaseURL)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown driver", "channel:\n  driver: carrier-pigeon\n", "unknown channel.driver"},
		{"memory driver", "channel:\n  driver: memory\n", "only available to tests"},
		{"mqtt without broker", "channel:\n  driver: mqtt\n", "channel.mqtt.broker"},
		{"firebase without url", "channel:\n  driver: firebase\n", "database_url"},
		{"sqlite history without storage", "history:\n  driver: sqlite\n", "storage.path"},
		{"influx without bucket", "history:\n  driver: influx\n  influx:\n    url: http://x\n", "history.influx"},
		{"push without storage", "push:\n  vapid_public_key: a\n  vapid_private_key: b\n", "push notifications"},
		{"bad tick", "simulator:\n  tick: 0s\n", "simulator.tick"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
