// Package id provides the regression-proof millisecond source
// internal/clock builds its default physical clock reading on: entity
// identity elsewhere in the module is uuid.UUID, so this package's only
// job is handing back a wall-clock millisecond value that never walks
// backwards within one process's lifetime.
package id

import (
	"sync"
	"time"
)

// Generator produces monotonically non-decreasing millisecond readings
// per process, pinning to the last observed value across a clock
// regression rather than reporting a smaller one.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns the current time in milliseconds since the Unix epoch.
// Overridable in tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns the current millisecond reading, or the last one
// returned if the system clock has gone backwards since.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	g.lastMs = ms
	return ms
}
