package logring

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugSwitch lowers the console level to debug while enabled. The ring is
// not affected; it keeps its own minimum level.
type DebugSwitch struct {
	console zap.AtomicLevel
	base    zapcore.Level
	enabled atomic.Bool
}

func (d *DebugSwitch) Set(enable bool) {
	d.enabled.Store(enable)
	if enable && d.base > zapcore.DebugLevel {
		d.console.SetLevel(zapcore.DebugLevel)
	} else {
		d.console.SetLevel(d.base)
	}
}

func (d *DebugSwitch) Toggle() bool {
	enable := !d.enabled.Load()
	d.Set(enable)
	return enable
}

func (d *DebugSwitch) Enabled() bool {
	return d.enabled.Load()
}

func (d *DebugSwitch) ConsoleLevel() zapcore.Level {
	return d.console.Level()
}

// NewLogger builds the production JSON console logger and tees every entry
// into ring.
func NewLogger(base zapcore.Level, ring *Ring) (*zap.Logger, *DebugSwitch, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(base)
	zapCfg.EncoderConfig.EncodeLevel = encodeLevel

	logger, err := zapCfg.Build(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, ring.Core())
	}))
	if err != nil {
		return nil, nil, err
	}
	return logger, &DebugSwitch{console: zapCfg.Level, base: base}, nil
}

func encodeLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if level == VerboseLevel {
		enc.AppendString("verbose")
		return
	}
	zapcore.LowercaseLevelEncoder(level, enc)
}
