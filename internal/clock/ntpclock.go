package clock

import "errors"

// ErrNTPUnconfigured names the condition NTPPhysicalClock stands for: no
// NTP resolver is configured. Nothing in this package returns it;
// NTPPhysicalClock's source reports that condition as ok=false instead.
// Polling NTP servers for physical time is left to the host application,
// which can supply any PhysicalSource it likes to Options.Physical. This
// stub exists only so the `ntp_servers` configuration key has a documented
// landing spot.
var ErrNTPUnconfigured = errors.New("clock: ntp physical source not configured")

// NTPPhysicalClock is a placeholder PhysicalSource for the `ntp_servers`
// configuration key. It always fails, which drives the Clock into its
// degraded-logical-only mode rather than silently using local time under a
// name that implies network synchronization. The type has no resolver of
// its own; NTP-disciplined time comes from a PhysicalSource the caller
// passes as Options.Physical.
type NTPPhysicalClock struct {
	Servers []string
}

// Source returns a PhysicalSource that always reports failure.
func (n NTPPhysicalClock) Source() PhysicalSource {
	return func() (int64, bool) { return 0, false }
}
