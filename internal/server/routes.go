package server

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/logring"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"short": logring.ShortName,
}).ParseFS(templateFS, "templates/*.html"))

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/", s.IndexHandler)
	e.GET("/status", s.StatusHandler)
	e.GET("/logs", s.LogsHandler)
	e.GET("/debug/toggle", s.DebugToggleHandler)
	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/screen.png", s.ScreenHandler)
	if s.deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, s.timeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	response, ok := res.(domain.ActorHealthResponse)
	switch {
	case ok && response.Healthy:
		return c.String(http.StatusOK, "health_check: OK")
	case ok && len(response.Unhealthy) > 0:
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL "+strings.Join(response.Unhealthy, ","))
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

type indexPage struct {
	Version      string
	Uptime       int64
	HeapInUse    uint64
	DebugEnabled bool
}

func (s *Server) IndexHandler(c echo.Context) error {
	return render(c, "index.html", indexPage{
		Version:      versioninfo.Short(),
		Uptime:       int64(time.Since(s.startedAt).Seconds()),
		HeapInUse:    s.deps.Memory.HeapInUse(),
		DebugEnabled: s.deps.Debug.Enabled(),
	})
}

func (s *Server) StatusHandler(c echo.Context) error {
	status := statusResponse{
		Uptime:       int64(time.Since(s.startedAt).Seconds()),
		HeapInUse:    s.deps.Memory.HeapInUse(),
		DebugEnabled: s.deps.Debug.Enabled(),
		Version:      versioninfo.Short(),
	}
	if s.deps.Ring != nil {
		stats := s.deps.Ring.Stats()
		status.LogBufferSize = stats.Count
		status.Log = logStatus{
			Total:      stats.Total,
			Count:      stats.Count,
			Overwrites: stats.Overwrites,
			Dropped:    stats.Dropped,
			MinLevel:   logring.LevelName(stats.MinLevel),
		}
	}

	// the snapshot only reaches the display on success, so the failure
	// count comes from the poller
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetPollerStateRequest{}, s.timeout).Result()
	if err == nil {
		if poller, ok := res.(domain.GetPollerStateResponse); ok {
			status.Poller = &pollerStatus{
				State:               poller.State,
				PollsOK:             poller.PollsOK,
				PollsFailed:         poller.PollsFailed,
				PollsSkipped:        poller.PollsSkipped,
				ConsecutiveFailures: poller.ConsecutiveFailures,
			}
			status.ConsecutiveFailures = poller.ConsecutiveFailures
		}
	}

	res, err = s.rootContext.RequestFuture(s.masterActor, domain.GetTelemetryRequest{}, s.timeout).Result()
	if err != nil {
		s.logger.Warn("status: telemetry unavailable", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	if telemetry, ok := res.(domain.GetTelemetryResponse); ok {
		evcc := newEvccStatus(telemetry.Snapshot, telemetry.Active)
		evcc.ConsecutiveFailures = status.ConsecutiveFailures
		status.Evcc = &evcc
	}
	return c.JSON(http.StatusOK, status)
}

type logsPage struct {
	Entries []logring.Entry
	Stats   logring.Stats
	Visible int
	Filter  string
	Levels  []string
}

func (s *Server) LogsHandler(c echo.Context) error {
	entries, stats := s.deps.Ring.Snapshot()
	filter := stats.MinLevel
	if lvl := c.QueryParam("level"); lvl != "" {
		// unknown names keep the ring minimum
		if parsed, err := logring.ParseLevel(lvl); err == nil {
			filter = parsed
		}
	}
	levels := make([]string, 0, len(logring.Levels()))
	for _, l := range logring.Levels() {
		levels = append(levels, logring.LevelName(l))
	}
	return render(c, "logs.html", logsPage{
		Entries: logring.Filter(entries, filter),
		Stats:   stats,
		Visible: len(entries),
		Filter:  logring.LevelName(filter),
		Levels:  levels,
	})
}

type togglePage struct {
	Message string
}

func (s *Server) DebugToggleHandler(c echo.Context) error {
	enable := !s.deps.Debug.Enabled()
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.SetDebugRequest{Enable: enable}, s.timeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "debug toggle failed")
	}
	if resp, ok := res.(domain.SetDebugResponse); ok {
		enable = resp.Enabled
	}
	message := "Debug mode is now OFF"
	if enable {
		message = "Debug mode is now ON"
	}
	return render(c, "toggle.html", togglePage{Message: message})
}

func (s *Server) ScreenHandler(c echo.Context) error {
	var frame []byte
	if s.deps.Frame != nil {
		frame = s.deps.Frame()
	}
	if frame == nil {
		return c.String(http.StatusNotFound, "no frame yet")
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, "image/png", frame)
}

func render(c echo.Context, name string, data any) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return templates.ExecuteTemplate(c.Response(), name, data)
}
