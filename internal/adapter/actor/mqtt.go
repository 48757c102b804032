package actor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/evccdisplay/internal/config"
	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/core/events"
	"github.com/berfenger/evccdisplay/internal/mqtt"
	"github.com/berfenger/evccdisplay/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	MQTT_STATE_CONNECTING = "connecting"
	MQTT_STATE_ONLINE     = "online"
	MQTT_STATE_PUBLISHING = "publishing"
)

const (
	mqttConnectTimeout   = 10 * time.Second
	mqttSubscribeTimeout = time.Second
	mqttPublishTimeout   = 5 * time.Second
	mqttBridgeTimeout    = 500 * time.Millisecond
)

// MQTTClientFactory builds the broker client. onLost is called from paho
// goroutines when the connection drops.
type MQTTClientFactory func(cfg *config.Config, onLost func(error)) *mqtt.MQTTClient

// MQTTActor mirrors the event stream to the broker and forwards switch
// commands to its parent. Broker failures crash the actor so the parent's
// supervisor can restart it with a fresh client.
type MQTTActor struct {
	actorutil.ActorWithStates
	config        *config.Config
	stash         *actorutil.Stash
	client        *mqtt.MQTTClient
	clientFactory MQTTClientFactory
	events        *eventstream.EventStream
	eventsSub     *eventstream.Subscription
	logger        *zap.Logger
}

type MQTTConnected struct{}

type MQTTSubscribed struct{}

type MQTTConnectionLost struct {
	Error error
}

// ParsedCommand is forwarded to the parent for every valid command topic message.
type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type onEventStreamMessage struct {
	message any
}

type sensorPublished struct {
	topic string
	err   error
}

type messagePublished struct {
	replyTo *actor.PID
	err     error
}

type outgoing struct {
	topic   string
	payload string
	retain  bool
}

func DefaultMQTTClientFactory(cfg *config.Config, onLost func(error)) *mqtt.MQTTClient {
	return mqtt.CreateMQTTClient(cfg, mqtt.OptsFromConfig(cfg), nil, func(_ pahomqtt.Client, err error) {
		onLost(err)
	})
}

func NewMQTTActor(config *config.Config, eventStream *eventstream.EventStream, clientFactory MQTTClientFactory, logger *zap.Logger) *MQTTActor {
	if clientFactory == nil {
		clientFactory = DefaultMQTTClientFactory
	}
	act := &MQTTActor{
		ActorWithStates: actorutil.ActorWithStates{Behavior: actor.NewBehavior()},
		config:          config,
		stash:           &actorutil.Stash{},
		clientFactory:   clientFactory,
		events:          eventStream,
		logger:          actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.Become(&mqttConnecting{act})
	return act
}

func (state *MQTTActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting, *actor.Stopping:
		state.stop()
	case MQTTConnectionLost:
		state.logger.Error("mqtt connection lost", zap.String("state", state.StateName()), zap.Error(msg.Error))
		panic(msg.Error)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: state.client != nil && state.client.IsConnected(),
			State:   state.StateName(),
		})
	default:
		state.Behavior.Receive(ctx)
	}
}

// sendToSelf returns a callback that is safe to call from paho goroutines.
func sendToSelf(ctx actor.Context) func(msg any) {
	root := ctx.ActorSystem().Root
	self := ctx.Self()
	return func(msg any) {
		root.Send(self, msg)
	}
}

// mqttConnecting connects, announces the bridge and subscribes to switch
// commands. Everything else waits in the stash.
type mqttConnecting struct {
	*MQTTActor
}

func (s *mqttConnecting) Name() string { return MQTT_STATE_CONNECTING }

func (s *mqttConnecting) Receive(ctx actor.Context) {
	send := sendToSelf(ctx)
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		s.client = s.clientFactory(s.config, func(err error) {
			send(MQTTConnectionLost{Error: err})
		})
		s.client.Connect(func(err error) {
			if err != nil {
				send(MQTTConnectionLost{Error: err})
				return
			}
			send(MQTTConnected{})
		}, mqttConnectTimeout)
	case MQTTConnected:
		s.logger.Info("mqtt@connecting connected")
		s.client.Publish(s.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, mqttBridgeTimeout)
		s.eventsSub = s.events.Subscribe(func(value any) {
			send(onEventStreamMessage{message: value})
		})
		s.client.SubscribeToCommandTopic(func(_ pahomqtt.Client, m pahomqtt.Message) {
			if cmd, err := s.client.ParseMQTTCommand(m); err == nil {
				send(ParsedCommand{Command: cmd})
			}
		}, func(err error) {
			if err != nil {
				send(MQTTConnectionLost{Error: err})
				return
			}
			send(MQTTSubscribed{})
		}, mqttSubscribeTimeout)
	case MQTTSubscribed:
		s.logger.Debug("mqtt@connecting subscribed")
		s.Become(&mqttOnline{s.MQTTActor})
		s.stash.UnstashAll(ctx)
	default:
		s.stash.Stash(ctx, msg)
	}
}

type mqttOnline struct {
	*MQTTActor
}

func (s *mqttOnline) Name() string { return MQTT_STATE_ONLINE }

func (s *mqttOnline) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case ParsedCommand:
		s.logger.Debug("mqtt@online command", zap.String("device", msg.Command.DeviceId), zap.String("payload", msg.Command.Payload))
		ctx.Send(ctx.Parent(), msg)
	case onEventStreamMessage:
		s.mirror(ctx, msg.message)
	case domain.PublishSensorUpdateRequest:
		s.publishSensor(ctx, msg.Event, msg.Retain)
	case domain.PublishDiscoveryRequest:
		err := s.publishDiscovery(msg.Sensors, msg.Switches)
		if err != nil {
			s.logger.Error("mqtt@online discovery failed", zap.Error(err))
		} else {
			s.logger.Info("mqtt@online discovery published", zap.Int("sensors", len(msg.Sensors)), zap.Int("switches", len(msg.Switches)))
		}
		actorutil.Respond(ctx, msg, domain.PublishDiscoveryResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{Err: err},
		})
	case domain.PublishMessageRequest:
		send := sendToSelf(ctx)
		replyTo := actorutil.ReplyTarget(ctx, msg)
		s.client.Publish(msg.Topic, msg.Payload, 1, msg.Retain, func(err error) {
			send(messagePublished{replyTo: replyTo, err: err})
		}, mqttPublishTimeout)
		s.BecomeStacked(&mqttPublishing{s.MQTTActor})
	case sensorPublished:
		s.logPublished(msg)
	default:
		s.logger.Debug("mqtt@online ignored", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// mqttPublishing waits for the broker to acknowledge an explicit message
// before anything else is processed, so requests are answered in order.
type mqttPublishing struct {
	*MQTTActor
}

func (s *mqttPublishing) Name() string { return MQTT_STATE_PUBLISHING }

func (s *mqttPublishing) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case messagePublished:
		if msg.err != nil {
			s.logger.Error("mqtt@publishing message failed", zap.Error(msg.err))
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, domain.PublishMessageResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{Err: msg.err},
			})
		}
		s.UnbecomeStacked()
		s.stash.UnstashAll(ctx)
	case sensorPublished:
		s.logPublished(msg)
	default:
		s.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) logPublished(msg sensorPublished) {
	if msg.err != nil {
		state.logger.Warn("mqtt sensor publish failed", zap.String("topic", msg.topic), zap.Error(msg.err))
	}
}

// mirror turns event stream traffic into sensor states. A snapshot fans out
// into one message per sensor and clears the failure counter.
func (state *MQTTActor) mirror(ctx actor.Context, event any) {
	switch ev := event.(type) {
	case domain.TelemetryUpdated:
		for _, update := range events.TelemetryToUpdateEvents(&ev.Snapshot) {
			state.publishSensor(ctx, update, false)
		}
		state.publishSensor(ctx, events.PollFailuresUpdateEvent(0), false)
	case domain.PollFailed:
		state.publishSensor(ctx, events.PollFailuresUpdateEvent(ev.ConsecutiveFailures), false)
	case domain.SensorUpdateEvent:
		state.publishSensor(ctx, ev, false)
	}
}

func (state *MQTTActor) sensorMessage(event domain.SensorUpdateEvent) (outgoing, bool) {
	out := outgoing{payload: event.State()}
	switch event.(type) {
	case domain.FloatSensorUpdateEvent:
		out.topic = state.client.SensorStateTopic(event.SensorId())
	case domain.BinarySensorUpdateEvent:
		out.topic = state.client.BinarySensorStateTopic(event.SensorId())
	case domain.SwitchSensorUpdateEvent:
		out.topic = state.client.SwitchStateTopic(event.SensorId())
		out.retain = true
	default:
		return out, false
	}
	return out, true
}

func (state *MQTTActor) publishSensor(ctx actor.Context, event domain.SensorUpdateEvent, retain bool) {
	out, ok := state.sensorMessage(event)
	if !ok {
		return
	}
	send := sendToSelf(ctx)
	state.client.Publish(out.topic, out.payload, 1, out.retain || retain, func(err error) {
		send(sensorPublished{topic: out.topic, err: err})
	}, mqttPublishTimeout)
}

// publishDiscovery encodes every config payload before sending any, so a
// marshalling error never leaves Home Assistant with a partial device.
func (state *MQTTActor) publishDiscovery(sensors []domain.GenericSensor, switches []domain.GenericSwitch) error {
	prefix := state.client.HADiscoveryTopic()
	configs := make([]outgoing, 0, len(sensors)+len(switches))
	for _, sensor := range sensors {
		payload, err := json.Marshal(mqtt.GenericSensorToHADiscoveryMessage(state.client, sensor))
		if err != nil {
			return fmt.Errorf("discovery for sensor %s: %w", sensor.Id, err)
		}
		configs = append(configs, outgoing{topic: mqtt.HADiscoverySensorTopic(prefix, sensor), payload: string(payload)})
	}
	for _, sw := range switches {
		payload, err := json.Marshal(mqtt.GenericSwitchToHADiscoveryMessage(state.client, sw))
		if err != nil {
			return fmt.Errorf("discovery for switch %s: %w", sw.Id, err)
		}
		configs = append(configs, outgoing{topic: mqtt.HADiscoverySwitchTopic(prefix, sw), payload: string(payload)})
	}
	for _, c := range configs {
		state.client.Publish(c.topic, []byte(c.payload), 0, true, func(error) {}, time.Second)
	}
	return nil
}

func (state *MQTTActor) stop() {
	if state.eventsSub != nil {
		state.events.Unsubscribe(state.eventsSub)
		state.eventsSub = nil
	}
	if state.client != nil {
		state.logger.Debug("mqtt disconnect")
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, mqttBridgeTimeout)
		state.client.Disconnect(mqttBridgeTimeout)
		state.client = nil
	}
}
