package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, zapcore.InfoLevel, cfg.LogLevel)
	assert.EqualValues(t, 8080, cfg.Port)
	assert.EqualValues(t, 7070, cfg.Evcc.Port)
	assert.EqualValues(t, 8000, cfg.Evcc.TimeoutMillis)
	assert.EqualValues(t, 1536, cfg.Evcc.MaxBodyBytes)
	assert.EqualValues(t, 10000, cfg.Poll.IntervalMillis)
	assert.EqualValues(t, 50, cfg.Poll.MaxFailures)
	assert.EqualValues(t, 10000, cfg.Display.RotationIntervalMillis)
	assert.EqualValues(t, 10, cfg.Display.PowerActiveThreshold)
	assert.EqualValues(t, 5, cfg.Display.FrameIntervalMillis)
	assert.Equal(t, 100, cfg.Log.Capacity)
	assert.False(t, cfg.MQTT.Enable)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("EVCCDISPLAY_EVCC_HOST", "192.168.1.20")
	t.Setenv("EVCCDISPLAY_POLL_MAX_FAILURES", "5")
	t.Setenv("EVCCDISPLAY_LOG_LEVEL", "debug")
	t.Setenv("EVCCDISPLAY_PORT", "")
	t.Setenv("PORT", "9090")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.20", cfg.Evcc.Host)
	assert.EqualValues(t, 5, cfg.Poll.MaxFailures)
	assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
	assert.EqualValues(t, 9090, cfg.Port)
}

func TestLoadConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("evcc:\n  host: evcc.home\n  port: 80\nmqtt:\n  enable: true\n  base_topic: Garage_Display\n")
	require.NoError(t, os.WriteFile(file, content, 0o600))
	t.Setenv("CONFIG_FILE", file)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "evcc.home", cfg.Evcc.Host)
	assert.EqualValues(t, 80, cfg.Evcc.Port)
	assert.True(t, cfg.MQTT.Enable)
	assert.Equal(t, "garage_display", cfg.MQTT.BaseTopic)
}

func TestValidateBounds(t *testing.T) {
	valid := func() Config {
		v := viper.New()
		SetDefaults(v)
		var cfg Config
		require.NoError(t, v.Unmarshal(&cfg))
		return cfg
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Poll.IntervalMillis = 500
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Poll.MaxFailures = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Evcc.Host = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.MQTT.Enable = true
	cfg.MQTT.BaseTopic = "evcc/display"
	assert.Error(t, cfg.Validate())
}

func TestCheckMQTTTopic(t *testing.T) {
	topic, err := CheckMQTTTopic("EVCC_display1")
	require.NoError(t, err)
	assert.Equal(t, "evcc_display1", topic)

	_, err = CheckMQTTTopic("a/b")
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {
	cfg := Config{MQTT: MQTTConfig{Username: "user", Password: "secret"}}
	r := cfg.Redacted()
	assert.Equal(t, "*redacted*", r.MQTT.Password)
	assert.Equal(t, "secret", cfg.MQTT.Password)
}
