package actor

import (
	"testing"
	"time"

	adactor "github.com/berfenger/evccdisplay/internal/adapter/actor"
	"github.com/berfenger/evccdisplay/internal/adapter/canvas"
	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/logring"
	"github.com/berfenger/evccdisplay/internal/metrics"
	"github.com/berfenger/evccdisplay/internal/mqtt"
	"github.com/berfenger/evccdisplay/internal/util"
	"github.com/berfenger/evccdisplay/internal/util/actorutil"
	"github.com/berfenger/evccdisplay/internal/util/memory"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type masterFixture struct {
	system   *actor.ActorSystem
	pid      *actor.PID
	debug    *fakeDebug
	restarts chan string
}

func startMaster(t *testing.T, source *fakeSource) *masterFixture {
	cfg := util.LoadTestConfig()
	cfg.Poll.IntervalMillis = 50
	cfg.Poll.MaxFailures = 3
	cfg.Heartbeat.IntervalSeconds = 0
	logger := zap.Must(zap.NewDevelopment())
	system := actorutil.NewActorSystemWithZapLogger(logger)
	t.Cleanup(system.Shutdown)

	clk := syncedClock()
	f := &masterFixture{
		system:   system,
		debug:    &fakeDebug{},
		restarts: make(chan string, 4),
	}
	deps := MasterDependencies{
		Source:  source,
		Memory:  memory.FixedProbe(0),
		Clock:   clk,
		Screen:  canvas.New(logger),
		Metrics: metrics.New(nil),
		Ring:    logring.New(16, zap.DebugLevel, clk),
		Debug:   f.debug,
		Restart: func(reason string) { f.restarts <- reason },
	}
	pid, err := system.Root.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, deps, logger)
	}), domain.ACTOR_ID_MASTER)
	require.NoError(t, err)
	f.pid = pid
	return f
}

func TestMasterActorHealthy(t *testing.T) {
	f := startMaster(t, newFakeSource(fakeFetch{body: stateBody}))

	res, err := f.system.Root.RequestFuture(f.pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.Equal(t, domain.ACTOR_ID_MASTER, healthResp.Id)
	assert.True(t, healthResp.Healthy, "healthy is true")
}

func TestMasterActorForwardsQueries(t *testing.T) {
	f := startMaster(t, newFakeSource(fakeFetch{body: stateBody}))

	require.Eventually(t, func() bool {
		res, err := f.system.Root.RequestFuture(f.pid, domain.GetTelemetryRequest{}, time.Second).Result()
		return err == nil && res.(domain.GetTelemetryResponse).Snapshot.Updated
	}, 3*time.Second, 20*time.Millisecond)

	res, err := f.system.Root.RequestFuture(f.pid, domain.GetTelemetryRequest{}, time.Second).Result()
	require.NoError(t, err)
	telemetry := res.(domain.GetTelemetryResponse)
	assert.Equal(t, 5000.0, telemetry.Snapshot.PVPower)
	assert.Equal(t, 1, telemetry.Active)

	res, err = f.system.Root.RequestFuture(f.pid, domain.GetPollerStateRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.(domain.GetPollerStateResponse).PollsOK, uint64(1))
}

func TestMasterActorSwitchesDebugLog(t *testing.T) {
	f := startMaster(t, newFakeSource(fakeFetch{body: stateBody}))

	res, err := f.system.Root.RequestFuture(f.pid, domain.SetDebugRequest{Enable: true}, time.Second).Result()
	require.NoError(t, err)
	assert.True(t, res.(domain.SetDebugResponse).Enabled)
	assert.True(t, f.debug.Enabled())

	// switch commands arrive from the MQTT actor without a reply target
	off := mqtt.ParsedMQTTCommand{DeviceId: domain.SWITCH_ID_DEBUG_LOG, Command: "command", Payload: mqtt.MQTT_PAYLOAD_OFF}
	f.system.Root.Send(f.pid, adactor.ParsedCommand{Command: &off})
	assert.Eventually(t, func() bool { return !f.debug.Enabled() }, time.Second, 10*time.Millisecond)
}

func TestMasterActorRestartsAfterPollFailures(t *testing.T) {
	f := startMaster(t, newFakeSource(fakeFetch{err: &domain.NetworkError{Op: "fetch", Err: errRefused}}))

	select {
	case reason := <-f.restarts:
		assert.Contains(t, reason, "consecutive poll failures")
	case <-time.After(5 * time.Second):
		t.Fatal("restart hook not invoked")
	}

	res, err := f.system.Root.RequestFuture(f.pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	health := res.(domain.ActorHealthResponse)
	assert.False(t, health.Healthy)
	assert.Equal(t, []string{domain.ACTOR_ID_POLLER}, health.Unhealthy)

	select {
	case <-f.restarts:
		t.Fatal("restart hook invoked twice")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMasterActorReportsFailuresAfterSuccess(t *testing.T) {
	f := startMaster(t, newFakeSource(
		fakeFetch{body: stateBody},
		fakeFetch{err: &domain.NetworkError{Op: "fetch", Err: errRefused}},
	))

	var poller domain.GetPollerStateResponse
	require.Eventually(t, func() bool {
		res, err := f.system.Root.RequestFuture(f.pid, domain.GetPollerStateRequest{}, time.Second).Result()
		if err != nil {
			return false
		}
		poller = res.(domain.GetPollerStateResponse)
		return poller.ConsecutiveFailures >= 2
	}, 3*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, poller.PollsOK)
	assert.GreaterOrEqual(t, poller.PollsFailed, uint64(2))

	// the display keeps the last good snapshot, so it cannot carry the count
	res, err := f.system.Root.RequestFuture(f.pid, domain.GetTelemetryRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.Zero(t, res.(domain.GetTelemetryResponse).Snapshot.ConsecutiveFailures)
}
