package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/core/port"
	"github.com/berfenger/evccdisplay/internal/heartbeat"
	"github.com/berfenger/evccdisplay/internal/logring"
	. "github.com/berfenger/evccdisplay/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const ACTOR_ID_HEARTBEAT = "heartbeat"

type HeartbeatActor struct {
	behavior  actor.Behavior
	scheduler *scheduler.TimerScheduler
	cancel    scheduler.CancelFunc

	heartbeat *heartbeat.Heartbeat
	poller    *actor.PID
	ring      *logring.Ring
	memory    port.MemoryProbe
	debug     port.DebugControl
	startedAt time.Time
	poll      domain.GetPollerStateResponse

	logger *zap.Logger
}

type heartbeatTick struct{}

func NewHeartbeatActor(trigger quartz.Trigger, poller *actor.PID, ring *logring.Ring, memory port.MemoryProbe,
	debug port.DebugControl, logger *zap.Logger) *HeartbeatActor {
	act := &HeartbeatActor{
		behavior:  actor.NewBehavior(),
		poller:    poller,
		ring:      ring,
		memory:    memory,
		debug:     debug,
		startedAt: time.Now(),
		logger:    ActorLogger(ACTOR_ID_HEARTBEAT, logger),
	}
	act.heartbeat = heartbeat.New(trigger, act.status, act.logger)
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *HeartbeatActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HeartbeatActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("heartbeat@default started", zap.String("schedule", state.heartbeat.Description()))
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduleNext(ctx)
	case *actor.Stopping:
		if state.cancel != nil {
			state.cancel()
		}
	case heartbeatTick:
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.poller, domain.GetPollerStateRequest{}, time.Second), func(err error) any {
			return domain.GetPollerStateResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					Err: err,
				},
				State: "unknown",
			}
		})
	case domain.GetPollerStateResponse:
		state.poll = msg
		if err := state.heartbeat.Fire(context.Background()); err != nil {
			state.logger.Warn("heartbeat@default job failed", zap.Error(err))
		}
		state.scheduleNext(ctx)
	default:
		state.logger.Debug("heartbeat@default ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HeartbeatActor) scheduleNext(ctx actor.Context) {
	delay, err := state.heartbeat.NextDelay(time.Now())
	if err != nil {
		state.logger.Warn("heartbeat@default no next fire time", zap.Error(err))
		return
	}
	state.cancel = state.scheduler.SendOnce(delay, ctx.Self(), heartbeatTick{})
}

func (state *HeartbeatActor) status() heartbeat.Status {
	stats := state.ring.Stats()
	return heartbeat.Status{
		Uptime:              time.Since(state.startedAt),
		HeapInUse:           state.memory.HeapInUse(),
		PollerState:         state.poll.State,
		ConsecutiveFailures: state.poll.ConsecutiveFailures,
		PollsOK:             state.poll.PollsOK,
		PollsFailed:         state.poll.PollsFailed,
		PollsSkipped:        state.poll.PollsSkipped,
		LogEntries:          stats.Total,
		LogDropped:          stats.Dropped,
		DebugEnabled:        state.debug.Enabled(),
	}
}
