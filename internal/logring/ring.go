// Package logring keeps the most recent log lines in a fixed-size circular
// buffer for the status page.
package logring

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/core/port"

	"go.uber.org/zap/zapcore"
)

const (
	DefaultCapacity = 100
	MaxMessageBytes = 95
)

// VerboseLevel is one step below debug.
const VerboseLevel = zapcore.DebugLevel - 1

type Entry struct {
	Millis  domain.Millis
	Epoch   int64
	Level   zapcore.Level
	Message string
}

type Stats struct {
	Capacity   int
	Count      int
	Total      uint64
	Overwrites uint64
	Dropped    uint64
	MinLevel   zapcore.Level
}

type Ring struct {
	mu         sync.Mutex
	entries    []Entry
	head       int
	count      int
	total      uint64
	overwrites uint64
	dropped    uint64
	minLevel   zapcore.Level
	clock      port.Clock
}

func New(capacity int, minLevel zapcore.Level, clock port.Clock) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		entries:  make([]Entry, capacity),
		minLevel: minLevel,
		clock:    clock,
	}
}

// Append stores one message. Messages less severe than the minimum level are
// only counted as dropped.
func (r *Ring) Append(level zapcore.Level, message string) {
	if level < r.minLevel {
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		return
	}

	entry := Entry{
		Millis:  r.clock.Millis(),
		Level:   level,
		Message: truncate(message, MaxMessageBytes),
	}
	if now := r.clock.Now(); domain.ClockSynced(now) {
		entry.Epoch = now.Unix()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == len(r.entries) {
		r.overwrites++
	} else {
		r.count++
	}
	r.entries[r.head] = entry
	r.head = (r.head + 1) % len(r.entries)
	r.total++
}

// Snapshot copies the stored entries, oldest first.
func (r *Ring) Snapshot() ([]Entry, Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, r.count)
	start := (r.head - r.count + len(r.entries)) % len(r.entries)
	for i := 0; i < r.count; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)])
	}
	return out, r.statsLocked()
}

func (r *Ring) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statsLocked()
}

func (r *Ring) statsLocked() Stats {
	return Stats{
		Capacity:   len(r.entries),
		Count:      r.count,
		Total:      r.total,
		Overwrites: r.overwrites,
		Dropped:    r.dropped,
		MinLevel:   r.minLevel,
	}
}

// Filter keeps the entries at least as severe as level.
func Filter(entries []Entry, level zapcore.Level) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}

func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ParseLevel accepts error, warn, info, debug and verbose.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return zapcore.ErrorLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "verbose":
		return VerboseLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

func LevelName(level zapcore.Level) string {
	if level == VerboseLevel {
		return "verbose"
	}
	if level > zapcore.ErrorLevel {
		return "error"
	}
	return level.String()
}

func ShortName(level zapcore.Level) string {
	switch {
	case level >= zapcore.ErrorLevel:
		return "ERR"
	case level == zapcore.WarnLevel:
		return "WRN"
	case level == zapcore.InfoLevel:
		return "INF"
	case level == zapcore.DebugLevel:
		return "DBG"
	default:
		return "VRB"
	}
}

// Levels lists the selectable levels, most severe first.
func Levels() []zapcore.Level {
	return []zapcore.Level{zapcore.ErrorLevel, zapcore.WarnLevel, zapcore.InfoLevel, zapcore.DebugLevel, VerboseLevel}
}

func formatFields(fields []zapcore.Field) string {
	if len(fields) == 0 {
		return ""
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, enc.Fields[k])
	}
	return b.String()
}
