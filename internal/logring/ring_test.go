package logring

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/util/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestRingOverwritesOldest(t *testing.T) {
	c := &clock.FakeClock{}
	r := New(3, VerboseLevel, c)

	for i := 0; i < 5; i++ {
		c.Advance(time.Second)
		r.Append(zapcore.InfoLevel, fmt.Sprintf("msg %d", i))
	}

	entries, stats := r.Snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, "msg 2", entries[0].Message)
	assert.Equal(t, "msg 4", entries[2].Message)
	assert.Equal(t, domain.Millis(3000), entries[0].Millis)
	assert.Equal(t, Stats{Capacity: 3, Count: 3, Total: 5, Overwrites: 2, Dropped: 0, MinLevel: VerboseLevel}, stats)
}

func TestRingDropsBelowMinimum(t *testing.T) {
	r := New(10, zapcore.WarnLevel, &clock.FakeClock{})
	r.Append(zapcore.InfoLevel, "info")
	r.Append(zapcore.DebugLevel, "debug")
	r.Append(zapcore.ErrorLevel, "error")

	entries, stats := r.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].Message)
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, uint64(1), stats.Total)
}

func TestRingEpochOnlyWhenSynced(t *testing.T) {
	c := &clock.FakeClock{CurrentTime: time.Unix(5, 0)}
	r := New(4, VerboseLevel, c)
	r.Append(zapcore.InfoLevel, "before sync")
	c.CurrentTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.Append(zapcore.InfoLevel, "after sync")

	entries, _ := r.Snapshot()
	assert.Equal(t, int64(0), entries[0].Epoch)
	assert.Equal(t, c.CurrentTime.Unix(), entries[1].Epoch)
}

func TestRingTruncatesOnRuneBoundary(t *testing.T) {
	r := New(2, VerboseLevel, &clock.FakeClock{})
	r.Append(zapcore.InfoLevel, strings.Repeat("a", 94)+"ü")

	entries, _ := r.Snapshot()
	assert.Equal(t, strings.Repeat("a", 94), entries[0].Message)
	assert.LessOrEqual(t, len(entries[0].Message), MaxMessageBytes)
}

func TestRingConcurrentAccess(t *testing.T) {
	r := New(DefaultCapacity, VerboseLevel, &clock.FakeClock{})
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				r.Append(zapcore.InfoLevel, "line")
				_, _ = r.Snapshot()
			}
		}()
	}
	wg.Wait()

	stats := r.Stats()
	assert.Equal(t, uint64(2000), stats.Total)
	assert.Equal(t, DefaultCapacity, stats.Count)
	assert.Equal(t, uint64(2000-DefaultCapacity), stats.Overwrites)
}

func TestCoreCollectsZapEntries(t *testing.T) {
	r := New(10, zapcore.DebugLevel, &clock.FakeClock{})
	logger := zap.New(r.Core()).Named("poller").With(zap.Int("failures", 2))

	logger.Info("poll failed", zap.String("kind", "network"))
	logger.Log(VerboseLevel, "too chatty")

	entries, stats := r.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "[poller] poll failed failures=2 kind=network", entries[0].Message)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestFilterAndNames(t *testing.T) {
	entries := []Entry{
		{Level: zapcore.ErrorLevel}, {Level: zapcore.WarnLevel}, {Level: zapcore.InfoLevel},
		{Level: zapcore.DebugLevel}, {Level: VerboseLevel},
	}
	assert.Len(t, Filter(entries, zapcore.WarnLevel), 2)
	assert.Len(t, Filter(entries, VerboseLevel), 5)

	var shorts []string
	for _, l := range Levels() {
		shorts = append(shorts, ShortName(l))
	}
	assert.Equal(t, []string{"ERR", "WRN", "INF", "DBG", "VRB"}, shorts)

	level, err := ParseLevel("Verbose")
	require.NoError(t, err)
	assert.Equal(t, VerboseLevel, level)
	assert.Equal(t, "verbose", LevelName(level))
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestDebugSwitch(t *testing.T) {
	r := New(10, zapcore.InfoLevel, &clock.FakeClock{})
	logger, debug, err := NewLogger(zapcore.InfoLevel, r)
	require.NoError(t, err)
	defer func() { _ = logger.Sync() }()

	assert.False(t, debug.Enabled())
	assert.Equal(t, zapcore.InfoLevel, debug.ConsoleLevel())

	assert.True(t, debug.Toggle())
	assert.Equal(t, zapcore.DebugLevel, debug.ConsoleLevel())

	debug.Set(false)
	assert.Equal(t, zapcore.InfoLevel, debug.ConsoleLevel())
}
