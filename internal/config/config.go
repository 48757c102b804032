package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "evccdisplay"

type Config struct {
	LogLevel  zapcore.Level
	Evcc      EvccConfig      `mapstructure:"evcc"`
	Poll      PollConfig      `mapstructure:"poll"`
	Display   DisplayConfig   `mapstructure:"display"`
	Log       LogConfig       `mapstructure:"log"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Port      uint            `mapstructure:"port"`
	HttpLog   bool            `mapstructure:"http_log"`
}

type EvccConfig struct {
	Host          string
	Port          uint
	Path          string
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
	MaxBodyBytes  int64  `mapstructure:"max_body_bytes"`
}

type PollConfig struct {
	IntervalMillis        uint32 `mapstructure:"interval_millis"`
	MaxFailures           uint32 `mapstructure:"max_failures"`
	MaxHeapBytes          uint64 `mapstructure:"max_heap_bytes"`
	ConnectTimeoutMillis  uint32 `mapstructure:"connect_timeout_millis"`
	TimeSyncTimeoutMillis uint32 `mapstructure:"time_sync_timeout_millis"`
	ConnectMaxRetryMillis uint32 `mapstructure:"connect_max_retry_millis"`
}

type DisplayConfig struct {
	RotationIntervalMillis uint32  `mapstructure:"rotation_interval_millis"`
	PowerActiveThreshold   float64 `mapstructure:"power_active_threshold"`
	FrameIntervalMillis    uint32  `mapstructure:"frame_interval_millis"`
	SnapshotFile           string  `mapstructure:"snapshot_file"`
}

type LogConfig struct {
	Capacity int
	MinLevel string `mapstructure:"min_level"`
}

type MQTTConfig struct {
	Enable            bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type HeartbeatConfig struct {
	IntervalSeconds uint32 `mapstructure:"interval_seconds"`
	Cron            string
}

func (c EvccConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

func (c PollConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMillis) * time.Millisecond
}

func (c PollConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMillis) * time.Millisecond
}

func (c PollConfig) ConnectMaxRetry() time.Duration {
	return time.Duration(c.ConnectMaxRetryMillis) * time.Millisecond
}

func (c DisplayConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMillis) * time.Millisecond
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8080)
	v.SetDefault("http_log", false)
	v.SetDefault("evcc.host", "evcc.local")
	v.SetDefault("evcc.port", 7070)
	v.SetDefault("evcc.path", "")
	v.SetDefault("evcc.timeout_millis", 8000)
	v.SetDefault("evcc.max_body_bytes", 1536)
	v.SetDefault("poll.interval_millis", 10000)
	v.SetDefault("poll.max_failures", 50)
	v.SetDefault("poll.max_heap_bytes", 0)
	v.SetDefault("poll.connect_timeout_millis", 2000)
	v.SetDefault("poll.time_sync_timeout_millis", 30000)
	v.SetDefault("poll.connect_max_retry_millis", 0)
	v.SetDefault("display.rotation_interval_millis", 10000)
	v.SetDefault("display.power_active_threshold", 10)
	v.SetDefault("display.frame_interval_millis", 5)
	v.SetDefault("display.snapshot_file", "")
	v.SetDefault("log.capacity", 100)
	v.SetDefault("log.min_level", "verbose")
	v.SetDefault("mqtt.enable", false)
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.base_topic", "evccdisplay")
	v.SetDefault("mqtt.ha_discovery_enable", false)
	v.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	v.SetDefault("heartbeat.interval_seconds", 60)
	v.SetDefault("heartbeat.cron", "")
}

// Load reads the configuration from the environment and, when CONFIG_FILE
// points to an existing file, from that file.
func Load(v *viper.Viper) (*Config, error) {

	// alias PORT => EVCCDISPLAY_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv(strings.ToUpper(EnvPrefix)+"_PORT", port)
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.LogLevel = ParseLogLevel(v.GetString("log_level"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ParseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Validate checks bounds and normalizes the MQTT topics in place.
func (cfg *Config) Validate() error {
	if cfg.Evcc.Host == "" {
		return errors.New("config param evcc.host is required")
	}
	if cfg.Evcc.Port == 0 || cfg.Evcc.Port > 65535 {
		return errors.New("config param evcc.port should be in 1..65535")
	}
	if cfg.Evcc.TimeoutMillis < 100 {
		return errors.New("config param evcc.timeout_millis should be >= 100")
	}
	if cfg.Evcc.MaxBodyBytes < 0 {
		return errors.New("config param evcc.max_body_bytes should be >= 0")
	}
	if cfg.Poll.IntervalMillis < 1000 {
		return errors.New("config param poll.interval_millis should be >= 1000")
	}
	if cfg.Poll.MaxFailures == 0 {
		return errors.New("config param poll.max_failures should be > 0")
	}
	if cfg.Display.RotationIntervalMillis < 1000 {
		return errors.New("config param display.rotation_interval_millis should be >= 1000")
	}
	if cfg.Display.PowerActiveThreshold < 0 {
		return errors.New("config param display.power_active_threshold should be >= 0")
	}
	if cfg.Display.FrameIntervalMillis == 0 {
		return errors.New("config param display.frame_interval_millis should be > 0")
	}
	if cfg.Log.Capacity <= 0 {
		return errors.New("config param log.capacity should be > 0")
	}
	if cfg.MQTT.Enable {
		baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
		if err != nil {
			return errors.New("invalid base topic. can only contain letters, numbers and underscores")
		}
		cfg.MQTT.BaseTopic = baseTopic

		hadBaseTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
		if err != nil {
			return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
		}
		cfg.MQTT.HADiscoveryTopic = hadBaseTopic
	}
	return nil
}

// Redacted returns a copy safe to log.
func (cfg Config) Redacted() Config {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	return cfg
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
