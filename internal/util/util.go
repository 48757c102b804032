package util

import (
	"github.com/berfenger/evccdisplay/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Evcc: config.EvccConfig{
			Host:          "127.0.0.1",
			Port:          7070,
			TimeoutMillis: 1000,
			MaxBodyBytes:  1536,
		},
		Poll: config.PollConfig{
			IntervalMillis:        1000,
			MaxFailures:           3,
			ConnectTimeoutMillis:  200,
			TimeSyncTimeoutMillis: 1000,
		},
		Display: config.DisplayConfig{
			RotationIntervalMillis: 10000,
			PowerActiveThreshold:   10,
			FrameIntervalMillis:    5,
		},
		Log: config.LogConfig{
			Capacity: 100,
			MinLevel: "verbose",
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "evccdisplay",
			HADiscoveryTopic: "homeassistant",
		},
		Heartbeat: config.HeartbeatConfig{
			IntervalSeconds: 60,
		},
		Port: 8080,
	}
}
