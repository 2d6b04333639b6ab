// Package pebblejournal is the Pebble-backed journal.Journal
// implementation: the one concrete durability backend this module ships.
package pebblejournal
