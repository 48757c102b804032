// Package heartbeat logs a periodic status line. The schedule is a quartz
// trigger (fixed interval or cron expression); the firing itself is driven by
// the caller so it fits into the actor timer scheduler.
package heartbeat

import (
	"context"
	"errors"
	"time"

	"github.com/berfenger/evccdisplay/internal/config"

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

var ErrNoSchedule = errors.New("heartbeat disabled")

type Status struct {
	Uptime              time.Duration
	HeapInUse           uint64
	PollerState         string
	ConsecutiveFailures int
	PollsOK             uint64
	PollsFailed         uint64
	PollsSkipped        uint64
	LogEntries          uint64
	LogDropped          uint64
	DebugEnabled        bool
}

type Heartbeat struct {
	trigger quartz.Trigger
	job     *job.FunctionJob[Status]
	logger  *zap.Logger
}

// NewTrigger prefers the cron expression over the fixed interval.
func NewTrigger(cfg config.HeartbeatConfig) (quartz.Trigger, error) {
	if cfg.Cron != "" {
		return quartz.NewCronTrigger(cfg.Cron)
	}
	if cfg.IntervalSeconds == 0 {
		return nil, ErrNoSchedule
	}
	return quartz.NewSimpleTrigger(time.Duration(cfg.IntervalSeconds) * time.Second), nil
}

func New(trigger quartz.Trigger, status func() Status, logger *zap.Logger) *Heartbeat {
	h := &Heartbeat{
		trigger: trigger,
		logger:  logger,
	}
	h.job = job.NewFunctionJob(func(_ context.Context) (Status, error) {
		s := status()
		h.logger.Info("heartbeat",
			zap.Duration("uptime", s.Uptime.Truncate(time.Second)),
			zap.Uint64("heap", s.HeapInUse),
			zap.String("poller", s.PollerState),
			zap.Int("failures", s.ConsecutiveFailures),
			zap.Uint64("polls_ok", s.PollsOK),
			zap.Uint64("polls_failed", s.PollsFailed),
			zap.Uint64("polls_skipped", s.PollsSkipped),
			zap.Uint64("log_entries", s.LogEntries),
			zap.Uint64("log_dropped", s.LogDropped),
			zap.Bool("debug", s.DebugEnabled),
		)
		return s, nil
	})
	return h
}

// NextDelay is the time from now until the next firing.
func (h *Heartbeat) NextDelay(now time.Time) (time.Duration, error) {
	next, err := h.trigger.NextFireTime(now.UnixNano())
	if err != nil {
		return 0, err
	}
	delay := time.Duration(next - now.UnixNano())
	if delay < 0 {
		delay = 0
	}
	return delay, nil
}

func (h *Heartbeat) Fire(ctx context.Context) error {
	return h.job.Execute(ctx)
}

func (h *Heartbeat) Description() string {
	return h.trigger.Description()
}
