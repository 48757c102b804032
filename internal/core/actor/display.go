package actor

import (
	"fmt"

	"github.com/berfenger/evccdisplay/internal/config"
	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/core/port"
	"github.com/berfenger/evccdisplay/internal/core/service"
	"github.com/berfenger/evccdisplay/internal/metrics"
	. "github.com/berfenger/evccdisplay/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// DisplayActor owns the dashboard and the screen it draws into. Renders only
// mutate widgets; the frame tick presents the result.
type DisplayActor struct {
	behavior  actor.Behavior
	scheduler *scheduler.TimerScheduler
	cancel    scheduler.CancelFunc

	config    *config.Config
	screen    port.Screen
	dashboard *service.Dashboard
	clock     port.Clock
	metrics   *metrics.Metrics

	snapshot domain.TelemetrySnapshot
	flushErr bool

	logger *zap.Logger
}

type frameTick struct{}

func NewDisplayActor(config *config.Config, screen port.Screen, clock port.Clock, metrics *metrics.Metrics, logger *zap.Logger) *DisplayActor {
	actorLogger := ActorLogger(domain.ACTOR_ID_DISPLAY, logger)
	selector := &service.LoadpointSelector{
		Interval: domain.Millis(config.Display.RotationIntervalMillis),
		Clock:    clock,
		State:    domain.NewRotationState(),
		Logger:   actorLogger,
	}
	act := &DisplayActor{
		behavior:  actor.NewBehavior(),
		config:    config,
		screen:    screen,
		dashboard: service.NewDashboard(screen, selector, config.Display.PowerActiveThreshold, actorLogger),
		clock:     clock,
		metrics:   metrics,
		snapshot:  domain.NewTelemetrySnapshot(),
		logger:    actorLogger,
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *DisplayActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DisplayActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("display@default started")
		// unknown values until the first poll
		state.dashboard.Render(&state.snapshot, state.clock.Now())
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		interval := state.config.Display.FrameInterval()
		state.cancel = state.scheduler.SendRepeatedly(interval, interval, ctx.Self(), frameTick{})
	case *actor.Stopping:
		if state.cancel != nil {
			state.cancel()
		}
	case domain.TelemetryUpdated:
		state.snapshot = msg.Snapshot
		state.dashboard.Render(&state.snapshot, state.clock.Now())
		state.metrics.Renders.Inc()
		state.logger.Debug("display@default rendered", zap.Int("loadpoint", state.dashboard.Active()))
	case frameTick:
		state.flush()
	case domain.GetTelemetryRequest:
		Respond(ctx, msg, domain.GetTelemetryResponse{
			Snapshot: state.snapshot,
			Active:   state.dashboard.Active(),
		})
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DISPLAY,
			Healthy: !state.flushErr,
			State:   "idle",
		})
	default:
		state.logger.Debug("display@default ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DisplayActor) flush() {
	flushed, err := state.screen.Flush()
	if err != nil {
		if !state.flushErr {
			state.logger.Error("display@default frame flush failed", zap.Error(err))
		}
		state.flushErr = true
		return
	}
	state.flushErr = false
	if flushed {
		state.metrics.Frames.Inc()
	}
}
