package service

import (
	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/core/port"

	"go.uber.org/zap"
)

// LoadpointSelector decides which loadpoint the vehicle panel shows. A loadpoint
// that charges alone always wins; otherwise the panel rotates every Interval.
type LoadpointSelector struct {
	Interval domain.Millis
	Clock    port.Clock
	State    domain.RotationState
	Logger   *zap.Logger
}

// Select returns the active loadpoint and its number (1 or 2).
func (sel *LoadpointSelector) Select(s *domain.TelemetrySnapshot) (*domain.LoadpointSnapshot, int) {
	lp1Charging := s.LP1().Charging
	lp2Charging := s.LP2().Charging
	if lp1Charging && !lp2Charging {
		return s.LP1(), 1
	}
	if lp2Charging && !lp1Charging {
		return s.LP2(), 2
	}

	now := sel.Clock.Millis()
	if domain.Due(now, &sel.State.LastRotation, sel.Interval) {
		sel.State.CurrentLoadpoint = !sel.State.CurrentLoadpoint
		sel.State.LastRotation = now
		if sel.Logger != nil {
			sel.Logger.Debug("rotating loadpoint", zap.Int("loadpoint", sel.current()))
		}
	}
	if sel.State.CurrentLoadpoint {
		return s.LP1(), 1
	}
	return s.LP2(), 2
}

func (sel *LoadpointSelector) current() int {
	if sel.State.CurrentLoadpoint {
		return 1
	}
	return 2
}
