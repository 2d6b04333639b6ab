// Package repo is the repository facade: the library's single entry
// point for publishing commands and observing the entities they cause.
// It wires together a journal, clock, lock provider and index engine
// behind an explicit Builder and drives them through a one-way
// New→Starting→Running→Stopping→Terminated lifecycle.
//
// The explicit-builder shape and the dependency-ordered Start/Stop
// sequencing are grounded on internal/runtime.Runtime's Open/Close and
// internal/cmd/server/run.Run's signal-aware shutdown — adapted from
// "open Pebble, then hand out log/queue handles" to "open the journal,
// clock, lock provider and index engine in dependency order, then start
// the command consumer."
package repo
