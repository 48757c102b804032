package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/evccdisplay/internal/config"
	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/core/port"
	"github.com/berfenger/evccdisplay/internal/logring"
	"github.com/berfenger/evccdisplay/internal/metrics"
	. "github.com/berfenger/evccdisplay/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	POLLER_STATE_CONNECTING = "connecting"
	POLLER_STATE_TIMESYNC   = "timesync"
	POLLER_STATE_POLLING    = "polling"
	POLLER_STATE_FETCHING   = "fetching"

	timeSyncRetry = 500 * time.Millisecond
)

type PollerActor struct {
	ActorWithStates
	stash     *Stash
	scheduler *scheduler.TimerScheduler
	self      *actor.PID

	config      *config.Config
	source      port.TelemetrySource
	memory      port.MemoryProbe
	clock       port.Clock
	metrics     *metrics.Metrics
	display     *actor.PID
	eventStream *eventstream.EventStream
	backoff     backoff.BackOff

	snapshot         domain.TelemetrySnapshot
	timeSyncStart    domain.Millis
	pollsOK          uint64
	pollsFailed      uint64
	pollsSkipped     uint64
	restartRequested bool

	logger *zap.Logger
}

type connectTick struct{}

type probeResult struct {
	err error
}

type timeSyncTick struct{}

type pollTick struct{}

type fetchResult struct {
	body    []byte
	err     error
	elapsed time.Duration
}

func NewPollerActor(config *config.Config, source port.TelemetrySource, memory port.MemoryProbe, clock port.Clock,
	metrics *metrics.Metrics, display *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *PollerActor {
	act := &PollerActor{
		ActorWithStates: ActorWithStates{Behavior: actor.NewBehavior()},
		stash:           &Stash{},
		config:          config,
		source:          source,
		memory:          memory,
		clock:           clock,
		metrics:         metrics,
		display:         display,
		eventStream:     eventStream,
		backoff:         newConnectBackoff(config.Poll.ConnectMaxRetry()),
		snapshot:        domain.NewTelemetrySnapshot(),
		logger:          ActorLogger(domain.ACTOR_ID_POLLER, logger),
	}
	act.Become(&pollerStarting{act})
	return act
}

func newConnectBackoff(maxElapsed time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	// zero keeps retrying forever
	b.MaxElapsedTime = maxElapsed
	b.Reset()
	return b
}

func (state *PollerActor) Receive(ctx actor.Context) {
	state.Behavior.Receive(ctx)
}

// answers the queries every state supports and swallows lifecycle messages;
// false when msg is neither
func (state *PollerActor) handleQuery(ctx actor.Context, msg any) bool {
	switch msg.(type) {
	case *actor.Started, *actor.Stopping, *actor.Stopped, *actor.Restarting:
		return true
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: !state.restartRequested,
			State:   state.StateName(),
		})
		return true
	case domain.GetPollerStateRequest:
		ctx.Respond(domain.GetPollerStateResponse{
			State:               state.StateName(),
			ConsecutiveFailures: state.snapshot.ConsecutiveFailures,
			PollsOK:             state.pollsOK,
			PollsFailed:         state.pollsFailed,
			PollsSkipped:        state.pollsSkipped,
		})
		return true
	}
	return false
}

type pollerStarting struct {
	*PollerActor
}

func (s *pollerStarting) Name() string { return "starting" }

func (s *pollerStarting) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		s.logger.Debug("poller@starting started")
		s.self = ctx.Self()
		s.scheduler = scheduler.NewTimerScheduler(ctx)
		s.Become(&pollerConnecting{s.PollerActor})
		ctx.Send(ctx.Self(), connectTick{})
	case *actor.Restarting:
	default:
		s.logger.Debug("poller@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		s.stash.Stash(ctx, msg)
	}
}

// pollerConnecting waits until the API host accepts TCP connections.
type pollerConnecting struct {
	*PollerActor
}

func (s *pollerConnecting) Name() string { return POLLER_STATE_CONNECTING }

func (s *pollerConnecting) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case connectTick:
		timeout := s.config.Poll.ConnectTimeout()
		NewBackgroundTask(ctx, func() probeResult {
			probeCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return probeResult{err: s.source.Probe(probeCtx)}
		}).WithTimeout(timeout + time.Second).Recover(func(err error) probeResult {
			return probeResult{err: err}
		}).PipeToAsync(ctx.Self())
	case probeResult:
		if msg.err == nil {
			s.logger.Info("poller@connecting evcc reachable")
			s.backoff.Reset()
			s.timeSyncStart = s.clock.Millis()
			s.Become(&pollerTimeSync{s.PollerActor})
			ctx.Send(ctx.Self(), timeSyncTick{})
			return
		}
		delay := s.backoff.NextBackOff()
		if delay == backoff.Stop {
			s.logger.Error("poller@connecting evcc unreachable, giving up", zap.Error(msg.err))
			s.requestRestart(ctx, "evcc unreachable")
			return
		}
		s.logger.Warn("poller@connecting evcc unreachable", zap.Error(msg.err), zap.Duration("retry_in", delay))
		s.scheduler.RequestOnce(delay, ctx.Self(), connectTick{})
	default:
		if !s.handleQuery(ctx, msg) {
			s.stash.Stash(ctx, msg)
		}
	}
}

// pollerTimeSync waits for a plausible wall clock so plan times and log
// timestamps are meaningful. It gives up after the configured timeout.
type pollerTimeSync struct {
	*PollerActor
}

func (s *pollerTimeSync) Name() string { return POLLER_STATE_TIMESYNC }

func (s *pollerTimeSync) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case timeSyncTick:
		now := s.clock.Now()
		switch {
		case domain.ClockSynced(now):
			s.logger.Info("poller@timesync clock synced", zap.Time("now", now))
		case domain.Due(s.clock.Millis(), &s.timeSyncStart, domain.Millis(s.config.Poll.TimeSyncTimeoutMillis)):
			s.logger.Warn("poller@timesync clock not synced, continuing", zap.Time("now", now))
		default:
			s.scheduler.RequestOnce(timeSyncRetry, ctx.Self(), timeSyncTick{})
			return
		}
		s.Become(&pollerPolling{s.PollerActor})
		s.stash.UnstashAll(ctx)
		ctx.Send(ctx.Self(), pollTick{})
	default:
		if !s.handleQuery(ctx, msg) {
			s.stash.Stash(ctx, msg)
		}
	}
}

type pollerPolling struct {
	*PollerActor
}

func (s *pollerPolling) Name() string { return POLLER_STATE_POLLING }

func (s *pollerPolling) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case pollTick:
		if limit := s.config.Poll.MaxHeapBytes; limit > 0 {
			if heap := s.memory.HeapInUse(); heap > limit {
				s.pollsSkipped++
				s.metrics.Polls.WithLabelValues(metrics.ResultSkipped).Inc()
				s.logger.Warn("poller@polling skipped", zap.Error(domain.ErrMemoryPressure), zap.Uint64("heap", heap), zap.Uint64("limit", limit))
				s.scheduleNext()
				return
			}
		}
		s.fetch(ctx)
		s.BecomeStacked(&pollerFetching{s.PollerActor})
	default:
		if !s.handleQuery(ctx, msg) {
			s.logger.Debug("poller@polling ignored", zap.String("type", fmt.Sprintf("%T", msg)))
		}
	}
}

// pollerFetching waits for the single in-flight request.
type pollerFetching struct {
	*PollerActor
}

func (s *pollerFetching) Name() string { return POLLER_STATE_FETCHING }

func (s *pollerFetching) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case fetchResult:
		s.metrics.PollDuration.Observe(msg.elapsed.Seconds())
		s.handleResult(ctx, msg)
		s.UnbecomeStacked()
		s.stash.UnstashAll(ctx)
		s.scheduleNext()
	default:
		if !s.handleQuery(ctx, msg) {
			s.stash.Stash(ctx, msg)
		}
	}
}

func (state *PollerActor) fetch(ctx actor.Context) {
	timeout := state.config.Evcc.Timeout()
	start := time.Now()
	NewBackgroundTask(ctx, func() fetchResult {
		fetchCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		body, err := state.source.Fetch(fetchCtx)
		return fetchResult{body: body, err: err, elapsed: time.Since(start)}
	}).WithTimeout(timeout + time.Second).Recover(func(err error) fetchResult {
		return fetchResult{err: &domain.NetworkError{Op: "fetch", Err: err}, elapsed: time.Since(start)}
	}).PipeToAsync(ctx.Self())
}

func (state *PollerActor) handleResult(ctx actor.Context, result fetchResult) {
	if result.err != nil {
		state.failure(ctx, result.err)
		return
	}
	if err := state.source.Decode(result.body, &state.snapshot); err != nil {
		state.failure(ctx, err)
		return
	}

	state.snapshot.LastUpdate = state.clock.Millis()
	if state.snapshot.ConsecutiveFailures > 0 {
		state.logger.Info("poller@polling recovered", zap.Int("failures", state.snapshot.ConsecutiveFailures))
	}
	state.snapshot.ConsecutiveFailures = 0
	state.pollsOK++

	state.metrics.Polls.WithLabelValues(metrics.ResultOK).Inc()
	state.metrics.ConsecutiveFailures.Set(0)
	state.metrics.ObserveTelemetry(state.snapshot)

	state.logger.Log(logring.VerboseLevel, "poller@polling telemetry updated",
		zap.Float64("grid", state.snapshot.GridPower),
		zap.Float64("pv", state.snapshot.PVPower),
		zap.Float64("home", state.snapshot.HomePower))

	update := domain.TelemetryUpdated{Snapshot: state.snapshot}
	if state.display != nil {
		ctx.Send(state.display, update)
	}
	state.eventStream.Publish(update)
}

func (state *PollerActor) failure(ctx actor.Context, err error) {
	state.snapshot.ConsecutiveFailures++
	state.pollsFailed++
	failures := state.snapshot.ConsecutiveFailures

	var decodeErr *domain.DecodeError
	if errors.As(err, &decodeErr) {
		state.metrics.Polls.WithLabelValues(metrics.ResultDecodeError).Inc()
		state.logger.Warn("poller@polling decode error", zap.Error(err), zap.Int("failures", failures))
	} else {
		state.metrics.Polls.WithLabelValues(metrics.ResultNetworkError).Inc()
		state.logger.Warn("poller@polling network error", zap.Error(err), zap.Int("failures", failures))
	}
	state.metrics.ConsecutiveFailures.Set(float64(failures))
	state.eventStream.Publish(domain.PollFailed{Error: err, ConsecutiveFailures: failures})

	if failures >= int(state.config.Poll.MaxFailures) {
		state.logger.Error("poller@polling too many consecutive failures", zap.Int("failures", failures))
		state.requestRestart(ctx, fmt.Sprintf("%d consecutive poll failures", failures))
	}
}

func (state *PollerActor) requestRestart(ctx actor.Context, reason string) {
	if state.restartRequested {
		return
	}
	state.restartRequested = true
	if parent := ctx.Parent(); parent != nil {
		ctx.Send(parent, domain.RestartRequest{Reason: reason})
	}
}

func (state *PollerActor) scheduleNext() {
	state.scheduler.RequestOnce(state.config.Poll.Interval(), state.self, pollTick{})
}
