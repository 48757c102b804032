package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/evccdisplay/internal/adapter/evcc"
	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/util/clock"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/require"
)

const stateBody = `{"gridPower":-200,"pvPower":5000,"homePower":800,"batteryPower":0,"batterySoc":80,
"loadpoints":[{"chargePower":3700,"charging":true,"plugged":true,"soc":55,"title":"Garage"},{}]}`

var errRefused = errors.New("connection refused")

// fakeSource serves queued fetch results, then repeats the last one.
type fakeSource struct {
	mu         sync.Mutex
	probeFails int
	probes     int
	results    []fakeFetch
	fetches    int
}

type fakeFetch struct {
	body string
	err  error
}

func newFakeSource(results ...fakeFetch) *fakeSource {
	return &fakeSource{results: results}
}

func (s *fakeSource) Probe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probes++
	if s.probes <= s.probeFails {
		return &domain.NetworkError{Op: "dial", Err: errRefused}
	}
	return nil
}

func (s *fakeSource) Fetch(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.fetches
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.fetches++
	r := s.results[i]
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.body), nil
}

func (s *fakeSource) Decode(body []byte, dst *domain.TelemetrySnapshot) error {
	return evcc.Decode(body, dst)
}

func (s *fakeSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func syncedClock() *clock.FakeClock {
	return &clock.FakeClock{
		CurrentTime: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Tick:        1234,
	}
}

// collector is an actor that forwards every user message to a channel.
type collector struct {
	pid      *actor.PID
	messages chan any
}

func spawnCollector(t *testing.T, system *actor.ActorSystem) *collector {
	c := &collector{messages: make(chan any, 64)}
	pid, err := system.Root.SpawnNamed(actor.PropsFromFunc(func(ctx actor.Context) {
		switch ctx.Message().(type) {
		case *actor.Started, *actor.Stopping, *actor.Stopped:
		default:
			c.messages <- ctx.Message()
		}
	}), "collector-"+t.Name())
	require.NoError(t, err)
	c.pid = pid
	return c
}

// next returns the first collected message of type T.
func next[T any](t *testing.T, c *collector, timeout time.Duration) T {
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if v, ok := msg.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("no %T received", zero)
			return zero
		}
	}
}

type fakeDebug struct {
	mu      sync.Mutex
	enabled bool
}

func (d *fakeDebug) Set(enable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enable
}

func (d *fakeDebug) Toggle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = !d.enabled
	return d.enabled
}

func (d *fakeDebug) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}
