// Package metrics exposes the poll loop and the mirrored telemetry to
// Prometheus.
package metrics

import (
	"sync"

	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/logring"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "evccdisplay"

const (
	ResultOK           = "ok"
	ResultNetworkError = "network_error"
	ResultDecodeError  = "decode_error"
	ResultSkipped      = "skipped"
)

type Metrics struct {
	Registry            *prometheus.Registry
	Polls               *prometheus.CounterVec
	PollDuration        prometheus.Histogram
	ConsecutiveFailures prometheus.Gauge
	Frames              prometheus.Counter
	Renders             prometheus.Counter
	telemetry           *TelemetryCollector
}

func New(ring *logring.Ring) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll cycles by result",
		}, []string{"result"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of the evcc state request",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}),
		ConsecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_poll_failures",
			Help:      "Poll failures since the last successful poll",
		}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_flushed_total",
			Help:      "Frames redrawn after a widget change",
		}),
		Renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Telemetry snapshots applied to the dashboard",
		}),
		telemetry: NewTelemetryCollector(),
	}

	m.Registry.MustRegister(
		m.Polls, m.PollDuration, m.ConsecutiveFailures, m.Frames, m.Renders, m.telemetry,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, r := range []string{ResultOK, ResultNetworkError, ResultDecodeError, ResultSkipped} {
		m.Polls.WithLabelValues(r)
	}
	if ring != nil {
		m.registerRing(ring)
	}
	return m
}

func (m *Metrics) registerRing(ring *logring.Ring) {
	m.Registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "log_entries_total", Help: "Log entries stored in the ring buffer",
		}, func() float64 { return float64(ring.Stats().Total) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "log_overwrites_total", Help: "Ring buffer entries overwritten",
		}, func() float64 { return float64(ring.Stats().Overwrites) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "log_dropped_total", Help: "Log entries below the minimum level",
		}, func() float64 { return float64(ring.Stats().Dropped) }),
	)
}

// ObserveTelemetry records the latest decoded snapshot for the next scrape.
func (m *Metrics) ObserveTelemetry(s domain.TelemetrySnapshot) {
	m.telemetry.Update(s)
}

// TelemetryCollector reports the last snapshot as gauges. Unknown values are
// left out of the scrape.
type TelemetryCollector struct {
	mu       sync.Mutex
	snapshot domain.TelemetrySnapshot
	valid    bool

	gridPower        *prometheus.Desc
	pvPower          *prometheus.Desc
	homePower        *prometheus.Desc
	batteryPower     *prometheus.Desc
	batterySoc       *prometheus.Desc
	solarForecast    *prometheus.Desc
	loadpointPower   *prometheus.Desc
	loadpointSoc     *prometheus.Desc
	loadpointCharge  *prometheus.Desc
	loadpointPlugged *prometheus.Desc
}

func NewTelemetryCollector() *TelemetryCollector {
	lp := []string{"loadpoint", "title"}
	return &TelemetryCollector{
		gridPower:        prometheus.NewDesc(namespace+"_grid_power_watts", "Grid power (positive=import)", nil, nil),
		pvPower:          prometheus.NewDesc(namespace+"_pv_power_watts", "PV generation", nil, nil),
		homePower:        prometheus.NewDesc(namespace+"_home_power_watts", "Home consumption", nil, nil),
		batteryPower:     prometheus.NewDesc(namespace+"_battery_power_watts", "Battery power (positive=discharge)", nil, nil),
		batterySoc:       prometheus.NewDesc(namespace+"_battery_soc_percent", "Home battery state of charge", nil, nil),
		solarForecast:    prometheus.NewDesc(namespace+"_solar_forecast_today_wh", "Scaled solar forecast for today", nil, nil),
		loadpointPower:   prometheus.NewDesc(namespace+"_loadpoint_charge_power_watts", "Loadpoint charge power", lp, nil),
		loadpointSoc:     prometheus.NewDesc(namespace+"_loadpoint_vehicle_soc_percent", "Vehicle state of charge", lp, nil),
		loadpointCharge:  prometheus.NewDesc(namespace+"_loadpoint_charging", "Loadpoint is charging (1=yes, 0=no)", lp, nil),
		loadpointPlugged: prometheus.NewDesc(namespace+"_loadpoint_plugged", "Vehicle is connected (1=yes, 0=no)", lp, nil),
	}
}

func (c *TelemetryCollector) Update(s domain.TelemetrySnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = s
	c.valid = true
}

func (c *TelemetryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.gridPower
	ch <- c.pvPower
	ch <- c.homePower
	ch <- c.batteryPower
	ch <- c.batterySoc
	ch <- c.solarForecast
	ch <- c.loadpointPower
	ch <- c.loadpointSoc
	ch <- c.loadpointCharge
	ch <- c.loadpointPlugged
}

func (c *TelemetryCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	s, valid := c.snapshot, c.valid
	c.mu.Unlock()
	if !valid {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.gridPower, prometheus.GaugeValue, s.GridPower)
	ch <- prometheus.MustNewConstMetric(c.pvPower, prometheus.GaugeValue, s.PVPower)
	ch <- prometheus.MustNewConstMetric(c.homePower, prometheus.GaugeValue, s.HomePower)
	ch <- prometheus.MustNewConstMetric(c.batteryPower, prometheus.GaugeValue, s.BatteryPower)
	if s.BatterySoc.Valid {
		ch <- prometheus.MustNewConstMetric(c.batterySoc, prometheus.GaugeValue, s.BatterySoc.Value)
	}
	ch <- prometheus.MustNewConstMetric(c.solarForecast, prometheus.GaugeValue, s.ScaledSolarForecast())

	for i, lp := range s.Loadpoints {
		labels := []string{string(rune('1' + i)), lp.Title}
		ch <- prometheus.MustNewConstMetric(c.loadpointPower, prometheus.GaugeValue, lp.ChargePower, labels...)
		if lp.Soc.Valid {
			ch <- prometheus.MustNewConstMetric(c.loadpointSoc, prometheus.GaugeValue, lp.Soc.Value, labels...)
		}
		ch <- prometheus.MustNewConstMetric(c.loadpointCharge, prometheus.GaugeValue, boolGauge(lp.Charging), labels...)
		ch <- prometheus.MustNewConstMetric(c.loadpointPlugged, prometheus.GaugeValue, boolGauge(lp.Plugged), labels...)
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
