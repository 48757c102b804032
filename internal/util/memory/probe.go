package memory

import "runtime"

// RuntimeProbe reads the heap usage of the Go runtime.
type RuntimeProbe struct{}

func (RuntimeProbe) HeapInUse() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapInuse
}

// FixedProbe reports a constant heap usage.
type FixedProbe uint64

func (p FixedProbe) HeapInUse() uint64 {
	return uint64(p)
}
