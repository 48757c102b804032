package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/evccdisplay/internal/config"
	"github.com/berfenger/evccdisplay/internal/core/port"
	"github.com/berfenger/evccdisplay/internal/logring"
	"github.com/berfenger/evccdisplay/internal/metrics"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// Dependencies are the process-wide objects the status pages read directly.
type Dependencies struct {
	Ring    *logring.Ring
	Debug   port.DebugControl
	Metrics *metrics.Metrics
	Memory  port.MemoryProbe
	// Frame returns the last flushed frame as PNG, nil before the first one.
	Frame func() []byte
}

type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	deps        Dependencies
	startedAt   time.Time
	timeout     time.Duration
	logger      *zap.Logger
}

// NewServer builds the status web server. The request timeout bounds every
// round trip to the master actor.
func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, deps Dependencies, logger *zap.Logger) *http.Server {
	s := newServer(cfg, rootContext, masterActor, deps, logger)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      s.timeout + 5*time.Second,
		IdleTimeout:       time.Minute,
		ErrorLog:          zap.NewStdLog(s.logger),
	}
}

func newServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, deps Dependencies, logger *zap.Logger) *Server {
	return &Server{
		port:        cfg.Port,
		httpLog:     cfg.HttpLog,
		rootContext: rootContext,
		masterActor: masterActor,
		deps:        deps,
		startedAt:   time.Now(),
		timeout:     requestTimeout,
		logger:      logger.Named("server"),
	}
}
