package actor

import (
	"testing"
	"time"

	"github.com/berfenger/evccdisplay/internal/config"
	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/mqtt"
	"github.com/berfenger/evccdisplay/internal/util"
	"github.com/berfenger/evccdisplay/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mqttFixture struct {
	system   *actor.ActorSystem
	events   *eventstream.EventStream
	paho     *fakePahoClient
	child    *actor.PID
	commands chan ParsedCommand
}

func startMQTTActor(t *testing.T) *mqttFixture {
	cfg := util.LoadTestConfig()
	cfg.MQTT.Enable = true
	logger := zap.Must(zap.NewDevelopment())

	f := &mqttFixture{
		system:   actorutil.NewActorSystemWithZapLogger(logger),
		events:   &eventstream.EventStream{},
		paho:     newFakePahoClient(),
		commands: make(chan ParsedCommand, 4),
	}
	children := make(chan *actor.PID, 1)

	factory := func(c *config.Config, onLost func(error)) *mqtt.MQTTClient {
		return mqtt.NewMQTTClient(f.paho, c.MQTT)
	}

	parent := actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case *actor.Started:
			children <- ctx.Spawn(actor.PropsFromProducer(func() actor.Actor {
				return NewMQTTActor(&cfg, f.events, factory, logger)
			}))
		case ParsedCommand:
			f.commands <- msg
		}
	})
	_, err := f.system.Root.SpawnNamed(parent, "mqtt-parent")
	require.NoError(t, err)
	f.child = <-children

	require.Eventually(t, f.paho.subscribed, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(f.system.Shutdown)
	return f
}

func TestMQTTActorPublishesTelemetry(t *testing.T) {
	f := startMQTTActor(t)

	online, _ := f.paho.value("evccdisplay/bridge/state")
	assert.Equal(t, mqtt.MQTT_PAYLOAD_ONLINE, online)

	// round trip so the stream subscription is in place
	_, err := f.system.Root.RequestFuture(f.child, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)

	s := domain.NewTelemetrySnapshot()
	s.GridPower = -200
	s.LP1().Charging = true
	s.LP1().Plugged = true
	f.events.Publish(domain.TelemetryUpdated{Snapshot: s})

	assert.Eventually(t, func() bool {
		v, _ := f.paho.value("evccdisplay/sensor/grid_power/state")
		return v == "-200.0"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		v, _ := f.paho.value("evccdisplay/binary_sensor/loadpoint1_charging/state")
		return v == mqtt.MQTT_PAYLOAD_ON
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		v, _ := f.paho.value("evccdisplay/binary_sensor/loadpoint1_plugged/state")
		return v == mqtt.MQTT_PAYLOAD_ON
	}, 2*time.Second, 10*time.Millisecond)

	f.events.Publish(domain.PollFailed{ConsecutiveFailures: 3})
	assert.Eventually(t, func() bool {
		v, _ := f.paho.value("evccdisplay/sensor/poll_failures/state")
		return v == "3"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMQTTActorForwardsCommands(t *testing.T) {
	f := startMQTTActor(t)

	f.paho.deliver("evccdisplay/switch/debug_log/command", "on")
	f.paho.deliver("evccdisplay/sensor/grid_power/state", "12")

	select {
	case cmd := <-f.commands:
		assert.Equal(t, domain.SWITCH_ID_DEBUG_LOG, cmd.Command.DeviceId)
		assert.Equal(t, "on", cmd.Command.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("command not forwarded")
	}
	assert.Len(t, f.commands, 0)
}

func TestMQTTActorHealthAndDiscovery(t *testing.T) {
	f := startMQTTActor(t)

	res, err := f.system.Root.RequestFuture(f.child, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	health, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.True(t, health.Healthy)
	assert.Equal(t, domain.ACTOR_ID_MQTT, health.Id)
	assert.Contains(t, []string{MQTT_STATE_CONNECTING, MQTT_STATE_ONLINE}, health.State)
	assert.Equal(t, "evccdisplay/switch/+/command", f.paho.subscription())

	dev := domain.DisplayDevice("evccdisplay")
	res, err = f.system.Root.RequestFuture(f.child, domain.PublishDiscoveryRequest{
		Sensors:  domain.SiteSensors(dev),
		Switches: domain.DisplaySwitches(dev),
	}, time.Second).Result()
	require.NoError(t, err)
	disc, ok := res.(domain.PublishDiscoveryResponse)
	require.True(t, ok)
	assert.NoError(t, disc.Failure())

	payload, ok := f.paho.value("homeassistant/sensor/" + dev.Id + "/grid_power/config")
	require.True(t, ok)
	assert.Contains(t, payload, `"unique_id":"uid_`+dev.Id+`_grid_power"`)
	_, ok = f.paho.value("homeassistant/switch/" + dev.Id + "/debug_log/config")
	assert.True(t, ok)

	res, err = f.system.Root.RequestFuture(f.child, domain.PublishMessageRequest{
		Topic:   "evccdisplay/custom",
		Payload: "hello",
	}, time.Second).Result()
	require.NoError(t, err)
	_, ok = res.(domain.PublishMessageResponse)
	assert.True(t, ok)
	v, _ := f.paho.value("evccdisplay/custom")
	assert.Equal(t, "hello", v)
}
