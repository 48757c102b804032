package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/evccdisplay/internal/adapter/actor"
	"github.com/berfenger/evccdisplay/internal/adapter/canvas"
	"github.com/berfenger/evccdisplay/internal/adapter/evcc"
	"github.com/berfenger/evccdisplay/internal/config"
	"github.com/berfenger/evccdisplay/internal/core/actor"
	"github.com/berfenger/evccdisplay/internal/logring"
	"github.com/berfenger/evccdisplay/internal/metrics"
	"github.com/berfenger/evccdisplay/internal/server"
	"github.com/berfenger/evccdisplay/internal/util/actorutil"
	"github.com/berfenger/evccdisplay/internal/util/clock"
	"github.com/berfenger/evccdisplay/internal/util/memory"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(ctx context.Context, apiServer *http.Server, logger *zap.Logger, done chan bool) {
	// Listen for the interrupt signal or a restart request.
	<-ctx.Done()

	logger.Info("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	os.Exit(run())
}

func run() int {

	// load and print config
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		slog.Error("config errors", "error", err)
		return 2
	}
	slog.Info("Using", "config", cfg.Redacted())

	clk := clock.NewReal()
	ringLevel, err := logring.ParseLevel(cfg.Log.MinLevel)
	if err != nil {
		slog.Error("config errors", "error", err)
		return 2
	}
	ring := logring.New(cfg.Log.Capacity, ringLevel, clk)

	// zap logger, teed into the ring buffer
	logger, debug, err := logring.NewLogger(cfg.LogLevel, ring)
	if err != nil {
		slog.Error("logger", "error", err)
		return 2
	}
	defer logger.Sync()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger.WithOptions(zap.IncreaseLevel(cfg.LogLevel)))
	root := as.Root

	source, err := evcc.NewClient(cfg.Evcc.Host, int(cfg.Evcc.Port), cfg.Evcc.Path, cfg.Evcc.Timeout(), cfg.Evcc.MaxBodyBytes)
	if err != nil {
		logger.Error("evcc client", zap.Error(err))
		return 2
	}
	logger.Info("polling evcc", zap.String("url", source.URL()))

	screen := canvas.New(logger)
	screen.SnapshotFile = cfg.Display.SnapshotFile

	m := metrics.New(ring)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	restart := func(reason string) {
		logger.Error("restarting", zap.String("reason", reason))
		exitCode = 1
		stop()
	}

	deps := actor.MasterDependencies{
		Source:  source,
		Memory:  memory.RuntimeProbe{},
		Clock:   clk,
		Screen:  screen,
		Metrics: m,
		Ring:    ring,
		Debug:   debug,
		MQTT:    mqttActorProvider(cfg, logger),
		Restart: restart,
	}
	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, deps, logger)
	})
	pid, err := root.SpawnNamed(props, "master")
	if err != nil {
		logger.Error("spawn master", zap.Error(err))
		return 1
	}

	apiServer := server.NewServer(*cfg, root, pid, server.Dependencies{
		Ring:    ring,
		Debug:   debug,
		Metrics: m,
		Memory:  memory.RuntimeProbe{},
		Frame:   screen.Frame,
	}, logger)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(ctx, apiServer, logger, done)

	logger.Info("status server listening", zap.Uint("port", cfg.Port))
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(fmt.Sprintf("http server error: %s", err))
		stop()
		exitCode = 1
	}

	// Wait for the graceful shutdown to complete
	<-done
	logger.Info("graceful shutdown complete")

	root.Stop(pid)
	as.Shutdown()
	return exitCode
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(eventStream *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, eventStream, adactor.DefaultMQTTClientFactory, logger)
	}
}
