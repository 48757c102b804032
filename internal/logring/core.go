package logring

import (
	"go.uber.org/zap/zapcore"
)

type core struct {
	ring   *Ring
	fields []zapcore.Field
}

// Core returns a zapcore.Core that writes every entry into the ring. Tee it
// with the console core so all log lines end up on the status page.
func (r *Ring) Core() zapcore.Core {
	return &core{ring: r}
}

// Enabled is always true so that entries below the minimum level reach Check
// and are counted as dropped.
func (c *core) Enabled(zapcore.Level) bool {
	return true
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &core{ring: c.ring, fields: merged}
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level < c.ring.minLevel {
		c.ring.Append(ent.Level, "")
		return ce
	}
	return ce.AddCore(ent, c)
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	msg := ent.Message
	if ent.LoggerName != "" {
		msg = "[" + ent.LoggerName + "] " + msg
	}
	all := c.fields
	if len(fields) > 0 {
		all = append(append([]zapcore.Field{}, c.fields...), fields...)
	}
	c.ring.Append(ent.Level, msg+formatFields(all))
	return nil
}

func (c *core) Sync() error {
	return nil
}
