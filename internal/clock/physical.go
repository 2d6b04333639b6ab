package clock

import (
	"github.com/flowcore/flowcore/pkg/id"
)

// NewMonotonicPhysicalClock returns a PhysicalSource backed by pkg/id's
// regression-proof millisecond generator, so the (physical, logical)
// pair's physical half never walks backwards even when the OS clock
// does. It always reports ok=true; the degraded path in Tick and
// Update exists for injected sources that can fail (e.g. a future NTP
// resolver, see ntpclock.go).
func NewMonotonicPhysicalClock() PhysicalSource {
	gen := id.NewGenerator()
	return func() (int64, bool) {
		return gen.Next(), true
	}
}
