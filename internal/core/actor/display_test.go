package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/berfenger/evccdisplay/internal/adapter/canvas"
	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/metrics"
	"github.com/berfenger/evccdisplay/internal/util"
	"github.com/berfenger/evccdisplay/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisplayActorRendersTelemetry(t *testing.T) {
	cfg := util.LoadTestConfig()
	logger := zap.NewNop()
	system := actorutil.NewActorSystemWithZapLogger(logger)
	t.Cleanup(system.Shutdown)

	screen := canvas.New(logger)
	m := metrics.New(nil)
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDisplayActor(&cfg, screen, syncedClock(), m, logger)
	}))

	// the initial unknown render is flushed by the frame tick
	require.Eventually(t, func() bool { return screen.Flushes() >= 1 }, 2*time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, screen.Frame())

	s := domain.NewTelemetrySnapshot()
	s.PVPower = 1500
	s.GridPower = -200
	s.HomePower = 800
	s.LP1().Title = "Garage"
	s.LP1().Soc = domain.Some(55.0)
	s.Updated = true
	system.Root.Send(pid, domain.TelemetryUpdated{Snapshot: s})

	res, err := system.Root.RequestFuture(pid, domain.GetTelemetryRequest{}, time.Second).Result()
	require.NoError(t, err)
	resp := res.(domain.GetTelemetryResponse)
	assert.Equal(t, 1500.0, resp.Snapshot.PVPower)
	assert.Equal(t, 1, resp.Active)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders))

	assert.Equal(t, "200W", screen.Text(domain.WIDGET_GRID_EXPORT_VALUE2))
	assert.Equal(t, "Garage", screen.Text(domain.WIDGET_CAR_TITLE))
	assert.Equal(t, "55%", screen.Text(domain.WIDGET_CAR_SOC_VALUE))

	require.Eventually(t, func() bool { return screen.Flushes() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.Frames), 2.0)

	health, err := system.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.True(t, health.(domain.ActorHealthResponse).Healthy)
}

type failingScreen struct {
	*canvas.Canvas
}

func (failingScreen) Flush() (bool, error) {
	return false, errors.New("panel gone")
}

func TestDisplayActorReportsFlushFailure(t *testing.T) {
	cfg := util.LoadTestConfig()
	logger := zap.NewNop()
	system := actorutil.NewActorSystemWithZapLogger(logger)
	t.Cleanup(system.Shutdown)

	screen := failingScreen{canvas.New(logger)}
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDisplayActor(&cfg, screen, syncedClock(), metrics.New(nil), logger)
	}))

	assert.Eventually(t, func() bool {
		res, err := system.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
		return err == nil && !res.(domain.ActorHealthResponse).Healthy
	}, 2*time.Second, 10*time.Millisecond)
}
