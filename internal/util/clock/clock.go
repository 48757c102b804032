package clock

import (
	"sync"
	"time"

	"github.com/berfenger/evccdisplay/internal/core/domain"
)

// NewReal returns a clock whose millisecond tick starts at zero when it is
// created and wraps like a 32-bit device counter.
func NewReal() *RealClock {
	return &RealClock{start: time.Now()}
}

type RealClock struct {
	start time.Time
}

func (c *RealClock) Millis() domain.Millis {
	return domain.Millis(uint32(time.Since(c.start).Milliseconds()))
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

type FakeClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	Tick        domain.Millis
}

func (fc *FakeClock) Millis() domain.Millis {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.Tick
}

func (fc *FakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.CurrentTime
}

// Advance moves both the tick and the wall clock forward.
func (fc *FakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.Tick += domain.Millis(d.Milliseconds())
	fc.CurrentTime = fc.CurrentTime.Add(d)
}

func (fc *FakeClock) SetTick(tick domain.Millis) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.Tick = tick
}

func (fc *FakeClock) SetTime(t time.Time) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.CurrentTime = t
}
