package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/evccdisplay/internal/config"
	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/core/events"
	"github.com/berfenger/evccdisplay/internal/core/port"
	"github.com/berfenger/evccdisplay/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	HA_DISCOVERY_STATE_WAITING    = "waiting"
	HA_DISCOVERY_STATE_ANNOUNCING = "announcing"
	HA_DISCOVERY_STATE_ANNOUNCED  = "announced"
)

const haDiscoveryRequestTimeout = 15 * time.Second

var errMQTTUnavailable = errors.New("MQTT actor is not healthy")

type announceTick struct{}

// HADiscoveryActor announces the display entities to Home Assistant once the
// MQTT actor is connected. Attempts are retried with backoff and the actor
// crashes when the backoff gives up.
type HADiscoveryActor struct {
	actorutil.ActorWithStates
	config    *config.Config
	mqttActor *actor.PID
	debug     port.DebugControl
	scheduler *scheduler.TimerScheduler
	retry     backoff.BackOff
	logger    *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, mqttActor *actor.PID, debug port.DebugControl, logger *zap.Logger) *HADiscoveryActor {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 500 * time.Millisecond
	retry.MaxElapsedTime = 2 * time.Minute
	act := &HADiscoveryActor{
		ActorWithStates: actorutil.ActorWithStates{Behavior: actor.NewBehavior()},
		config:          config,
		mqttActor:       mqttActor,
		debug:           debug,
		retry:           retry,
		logger:          actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.Become(&haDiscoveryWaiting{act})
	return act
}

func (state *HADiscoveryActor) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case *actor.Started:
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		ctx.Send(ctx.Self(), announceTick{})
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HA_DISCOVERY,
			Healthy: true,
			State:   state.StateName(),
		})
	default:
		state.Behavior.Receive(ctx)
	}
}

func (state *HADiscoveryActor) retryLater(ctx actor.Context, cause error) {
	delay := state.retry.NextBackOff()
	if delay == backoff.Stop {
		state.logger.Error("hadiscovery giving up", zap.Error(cause))
		panic(cause)
	}
	state.logger.Warn("hadiscovery retrying", zap.Error(cause), zap.Duration("retry_in", delay))
	state.Become(&haDiscoveryWaiting{state})
	state.scheduler.SendOnce(delay, ctx.Self(), announceTick{})
}

func (state *HADiscoveryActor) entities() ([]domain.GenericSensor, []domain.GenericSwitch) {
	device := domain.DisplayDevice(state.config.MQTT.BaseTopic)
	sensors := append(domain.BridgeSensors(device), domain.SiteSensors(device)...)
	return sensors, domain.DisplaySwitches(device)
}

// haDiscoveryWaiting probes the MQTT actor until it reports a live
// connection.
type haDiscoveryWaiting struct {
	*HADiscoveryActor
}

func (s *haDiscoveryWaiting) Name() string { return HA_DISCOVERY_STATE_WAITING }

func (s *haDiscoveryWaiting) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case announceTick:
		future := ctx.RequestFuture(s.mqttActor, domain.ActorHealthRequest{}, haDiscoveryRequestTimeout)
		actorutil.PipeToSelfWithRecover(ctx, future, func(err error) any {
			return domain.ActorHealthResponse{Id: domain.ACTOR_ID_MQTT, Healthy: false}
		})
	case domain.ActorHealthResponse:
		if !msg.Healthy {
			s.retryLater(ctx, errMQTTUnavailable)
			return
		}
		sensors, switches := s.entities()
		future := ctx.RequestFuture(s.mqttActor, domain.PublishDiscoveryRequest{Sensors: sensors, Switches: switches}, haDiscoveryRequestTimeout)
		actorutil.PipeToSelfWithRecover(ctx, future, func(err error) any {
			return domain.PublishDiscoveryResponse{ActorResponseMixIn: domain.ActorResponseMixIn{Err: err}}
		})
		s.Become(&haDiscoveryAnnouncing{s.HADiscoveryActor})
	}
}

type haDiscoveryAnnouncing struct {
	*HADiscoveryActor
}

func (s *haDiscoveryAnnouncing) Name() string { return HA_DISCOVERY_STATE_ANNOUNCING }

func (s *haDiscoveryAnnouncing) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.PublishDiscoveryResponse:
		if err := msg.Failure(); err != nil {
			s.retryLater(ctx, fmt.Errorf("discovery: %w", err))
			return
		}
		// entities exist now, seed the retained switch state
		ctx.Send(s.mqttActor, domain.PublishSensorUpdateRequest{
			Event:  events.DebugLogSwitchUpdateEvent(s.debug.Enabled()),
			Retain: true,
		})
		s.logger.Info("hadiscovery announced")
		s.Become(&haDiscoveryAnnounced{s.HADiscoveryActor})
	}
}

type haDiscoveryAnnounced struct {
	*HADiscoveryActor
}

func (s *haDiscoveryAnnounced) Name() string { return HA_DISCOVERY_STATE_ANNOUNCED }

func (s *haDiscoveryAnnounced) Receive(ctx actor.Context) {}
