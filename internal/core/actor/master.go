package actor

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	adactor "github.com/berfenger/evccdisplay/internal/adapter/actor"
	"github.com/berfenger/evccdisplay/internal/config"
	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/core/events"
	"github.com/berfenger/evccdisplay/internal/core/port"
	"github.com/berfenger/evccdisplay/internal/heartbeat"
	"github.com/berfenger/evccdisplay/internal/logring"
	"github.com/berfenger/evccdisplay/internal/metrics"
	. "github.com/berfenger/evccdisplay/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	MASTER_STATE_STARTING    = "starting"
	MASTER_STATE_RUNNING     = "running"
	MASTER_STATE_HEALTHCHECK = "healthcheck"
)

const (
	childHealthTimeout  = 500 * time.Millisecond
	healthCheckDeadline = time.Second
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

// MasterDependencies are the adapters the actor tree is built on.
type MasterDependencies struct {
	Source  port.TelemetrySource
	Memory  port.MemoryProbe
	Clock   port.Clock
	Screen  port.Screen
	Metrics *metrics.Metrics
	Ring    *logring.Ring
	Debug   port.DebugControl
	// MQTT is only used when mqtt.enable is set.
	MQTT MQTTActorProvider
	// Restart is invoked once when the poller gives up.
	Restart func(reason string)
}

// MasterOfPuppetsActor owns the actor tree. It answers health checks by
// asking every child, routes queries and commands, and turns the poller's
// restart request into a single call of the restart hook.
type MasterOfPuppetsActor struct {
	ActorWithStates
	config config.Config
	deps   MasterDependencies
	stash  *Stash

	children    map[string]*actor.PID
	eventStream *eventstream.EventStream
	restarting  bool
	logger      *zap.Logger
}

func NewMasterOfPuppetsActor(config config.Config, deps MasterDependencies, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		ActorWithStates: ActorWithStates{Behavior: actor.NewBehavior()},
		config:          config,
		deps:            deps,
		stash:           &Stash{},
		children:        map[string]*actor.PID{},
		logger:          ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:     &eventstream.EventStream{},
	}
	act.Become(&masterStarting{act})
	return act
}

func (state *MasterOfPuppetsActor) Receive(ctx actor.Context) {
	state.Behavior.Receive(ctx)
}

// EventStream carries TelemetryUpdated, PollFailed and sensor update events.
func (state *MasterOfPuppetsActor) EventStream() *eventstream.EventStream {
	return state.eventStream
}

type masterStarting struct {
	*MasterOfPuppetsActor
}

func (s *masterStarting) Name() string { return MASTER_STATE_STARTING }

func (s *masterStarting) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		if err := s.spawnChildren(ctx); err != nil {
			panic(err)
		}
		s.logger.Info("master@starting children started", zap.Strings("children", slices.Sorted(maps.Keys(s.children))))
		s.Become(&masterRunning{s.MasterOfPuppetsActor})
		s.stash.UnstashAll(ctx)
	default:
		s.stash.Stash(ctx, msg)
	}
}

// spawnChildren starts the display before the poller, which needs its PID.
func (state *MasterOfPuppetsActor) spawnChildren(ctx actor.Context) error {
	start := func(id string, props *actor.Props) error {
		pid, err := ctx.SpawnNamed(props, id)
		if err != nil {
			return fmt.Errorf("spawn %s: %w", id, err)
		}
		state.children[id] = pid
		return nil
	}

	if err := start(domain.ACTOR_ID_DISPLAY, state.displayProps()); err != nil {
		return err
	}
	if err := start(domain.ACTOR_ID_POLLER, state.pollerProps()); err != nil {
		return err
	}
	if state.config.MQTT.Enable && state.deps.MQTT != nil {
		if err := start(domain.ACTOR_ID_MQTT, state.mqttProps()); err != nil {
			return err
		}
		if state.config.MQTT.HADiscoveryEnable {
			// discovery retries on its own and is left out of health checks
			if _, err := ctx.SpawnNamed(state.haDiscoveryProps(), domain.ACTOR_ID_HA_DISCOVERY); err != nil {
				return fmt.Errorf("spawn %s: %w", domain.ACTOR_ID_HA_DISCOVERY, err)
			}
		}
	}

	props, err := state.heartbeatProps()
	switch {
	case errors.Is(err, heartbeat.ErrNoSchedule):
		state.logger.Info("master@starting heartbeat disabled")
	case err != nil:
		return err
	default:
		if _, err := ctx.SpawnNamed(props, ACTOR_ID_HEARTBEAT); err != nil {
			return fmt.Errorf("spawn %s: %w", ACTOR_ID_HEARTBEAT, err)
		}
	}
	return nil
}

type masterRunning struct {
	*MasterOfPuppetsActor
}

func (s *masterRunning) Name() string { return MASTER_STATE_RUNNING }

func (s *masterRunning) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		check := &masterHealthCheck{
			MasterOfPuppetsActor: s.MasterOfPuppetsActor,
			pending:              make(map[string]bool, len(s.children)),
			respondTo:            ctx.Sender(),
		}
		for id, pid := range s.children {
			check.pending[id] = true
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, childHealthTimeout), func(err error) any {
				return domain.ActorHealthResponse{Id: id, Healthy: false}
			})
		}
		ctx.SetReceiveTimeout(healthCheckDeadline)
		s.BecomeStacked(check)
	case domain.GetTelemetryRequest:
		ctx.Forward(s.children[domain.ACTOR_ID_DISPLAY])
	case domain.GetPollerStateRequest:
		ctx.Forward(s.children[domain.ACTOR_ID_POLLER])
	case domain.SetDebugRequest:
		s.setDebug(msg.Enable)
		Respond(ctx, msg, domain.SetDebugResponse{Enabled: msg.Enable})
	case domain.RestartRequest:
		s.restart(msg.Reason)
	case adactor.ParsedCommand:
		if msg.Command == nil {
			return
		}
		if cmd, ok := ParsedMQTTCommandToCommand(*msg.Command).(domain.SetDebugRequest); ok {
			s.setDebug(cmd.Enable)
		} else {
			s.logger.Warn("master@running unknown command", zap.String("device", msg.Command.DeviceId))
		}
	case *actor.Terminated:
		s.logger.Error("master@running child terminated", zap.String("child", msg.Who.Id))
	default:
		s.logger.Debug("master@running ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) restart(reason string) {
	if state.restarting {
		return
	}
	state.restarting = true
	state.logger.Error("master@running restart requested", zap.String("reason", reason))
	if state.deps.Restart != nil {
		state.deps.Restart(reason)
	}
}

func (state *MasterOfPuppetsActor) setDebug(enable bool) {
	state.deps.Debug.Set(enable)
	state.logger.Info("master@running debug log", zap.Bool("enabled", enable))
	state.eventStream.Publish(events.DebugLogSwitchUpdateEvent(enable))
}

// masterHealthCheck collects one answer per child. Children that miss the
// deadline count as unhealthy.
type masterHealthCheck struct {
	*MasterOfPuppetsActor
	pending   map[string]bool
	unhealthy []string
	respondTo *actor.PID
}

func (s *masterHealthCheck) Name() string { return MASTER_STATE_HEALTHCHECK }

func (s *masterHealthCheck) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		for id := range s.pending {
			s.unhealthy = append(s.unhealthy, id)
		}
		s.finish(ctx)
	case domain.ActorHealthResponse:
		if !s.pending[msg.Id] {
			return
		}
		delete(s.pending, msg.Id)
		if !msg.Healthy {
			s.unhealthy = append(s.unhealthy, msg.Id)
		}
		if len(s.pending) == 0 {
			s.finish(ctx)
		}
	default:
		s.stash.Stash(ctx, msg)
	}
}

func (s *masterHealthCheck) finish(ctx actor.Context) {
	ctx.CancelReceiveTimeout()
	slices.Sort(s.unhealthy)
	if len(s.unhealthy) > 0 {
		s.logger.Warn("master@healthcheck unhealthy", zap.Strings("children", s.unhealthy))
	}
	if s.respondTo != nil {
		ctx.Send(s.respondTo, domain.ActorHealthResponse{
			Id:        domain.ACTOR_ID_MASTER,
			Healthy:   len(s.unhealthy) == 0,
			State:     s.Name(),
			Unhealthy: s.unhealthy,
		})
	}
	s.UnbecomeStacked()
	s.stash.UnstashAll(ctx)
}

func restartDecider(logger *zap.Logger) actor.DeciderFunc {
	return func(reason interface{}) actor.Directive {
		logger.Error("master@supervisor child failure", zap.Any("reason", reason))
		return actor.RestartDirective
	}
}

func (state *MasterOfPuppetsActor) displayProps() *actor.Props {
	supervisor := actor.NewOneForOneStrategy(10, 10*time.Second, restartDecider(state.logger))
	return actor.PropsFromProducer(func() actor.Actor {
		return NewDisplayActor(&state.config, state.deps.Screen, state.deps.Clock, state.deps.Metrics, state.logger)
	}, actor.WithSupervisor(supervisor))
}

func (state *MasterOfPuppetsActor) pollerProps() *actor.Props {
	supervisor := actor.NewOneForOneStrategy(10, 10*time.Second, restartDecider(state.logger))
	display := state.children[domain.ACTOR_ID_DISPLAY]
	return actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&state.config, state.deps.Source, state.deps.Memory, state.deps.Clock,
			state.deps.Metrics, display, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
}

func (state *MasterOfPuppetsActor) mqttProps() *actor.Props {
	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, time.Second)
	return actor.PropsFromProducer(func() actor.Actor {
		return state.deps.MQTT(state.eventStream)
	}, actor.WithSupervisor(supervisor))
}

func (state *MasterOfPuppetsActor) haDiscoveryProps() *actor.Props {
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, restartDecider(state.logger))
	mqttActor := state.children[domain.ACTOR_ID_MQTT]
	return actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, mqttActor, state.deps.Debug, state.logger)
	}, actor.WithSupervisor(supervisor))
}

func (state *MasterOfPuppetsActor) heartbeatProps() (*actor.Props, error) {
	trigger, err := heartbeat.NewTrigger(state.config.Heartbeat)
	if err != nil {
		return nil, err
	}
	poller := state.children[domain.ACTOR_ID_POLLER]
	return actor.PropsFromProducer(func() actor.Actor {
		return NewHeartbeatActor(trigger, poller, state.deps.Ring, state.deps.Memory, state.deps.Debug, state.logger)
	}), nil
}
