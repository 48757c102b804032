package port

import (
	"context"
	"time"

	"github.com/berfenger/evccdisplay/internal/core/domain"
)

type TelemetrySource interface {
	// Probe checks that the API host accepts connections.
	Probe(ctx context.Context) error
	// Fetch returns the raw projected state document.
	Fetch(ctx context.Context) ([]byte, error)
	// Decode replaces dst with the telemetry in body. dst is untouched on error.
	Decode(body []byte, dst *domain.TelemetrySnapshot) error
}

type Clock interface {
	Millis() domain.Millis
	Now() time.Time
}

type MemoryProbe interface {
	HeapInUse() uint64
}

// DebugControl switches verbose console diagnostics.
type DebugControl interface {
	Set(enable bool)
	Toggle() bool
	Enabled() bool
}
