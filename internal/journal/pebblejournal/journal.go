// Package pebblejournal implements journal.Journal on top of
// github.com/cockroachdb/pebble, via internal/storage/pebble's wrapper.
// Each record is stored as internal/journal's fixed-width envelope
// (fingerprint, HLC stamp, UUID) ahead of its body, with no length prefix
// or checksum, under a big-endian-sortable key scheme.
package pebblejournal

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/flowcore/flowcore/internal/journal"
	"github.com/flowcore/flowcore/internal/layout"
	pebblestore "github.com/flowcore/flowcore/internal/storage/pebble"
	"github.com/google/uuid"
)

// Journal is a Pebble-backed journal.Journal. One Pebble batch per
// transaction; fsync policy follows the pebblestore.DB it was opened
// with.
type Journal struct {
	db *pebblestore.DB

	mu         sync.RWMutex
	introduced map[layout.Fingerprint]bool
}

// Open opens (creating if absent) a Pebble-backed journal at the
// directory named by opts.DataDir.
func Open(opts pebblestore.Options) (*Journal, error) {
	db, err := pebblestore.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("pebblejournal: open: %w", err)
	}
	j := &Journal{db: db, introduced: make(map[layout.Fingerprint]bool)}
	if err := j.loadIntroduced(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) loadIntroduced() error {
	it, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: introducedPrefix,
		UpperBound: nextPrefix(introducedPrefix),
	})
	if err != nil {
		return fmt.Errorf("pebblejournal: load introduced fingerprints: %w", err)
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		key := it.Key()
		if len(key) != len(introducedPrefix)+20 {
			continue
		}
		var fp layout.Fingerprint
		copy(fp[:], key[len(introducedPrefix):])
		j.introduced[fp] = true
	}
	return it.Error()
}

func (j *Journal) isIntroduced(fp layout.Fingerprint) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.introduced[fp]
}

// Introduced reports whether fp has already been introduced.
func (j *Journal) Introduced(fp layout.Fingerprint) bool { return j.isIntroduced(fp) }

// OnCommandsAdded marks the given command fingerprints as introduced.
func (j *Journal) OnCommandsAdded(fingerprints []layout.Fingerprint) { j.markIntroduced(fingerprints) }

// OnEventsAdded marks the given event fingerprints as introduced.
func (j *Journal) OnEventsAdded(fingerprints []layout.Fingerprint) { j.markIntroduced(fingerprints) }

func (j *Journal) markIntroduced(fingerprints []layout.Fingerprint) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, fp := range fingerprints {
		if j.introduced[fp] {
			continue
		}
		j.introduced[fp] = true
		// Best-effort: if this write is lost to a crash, the consumer's
		// LayoutCheck stage simply re-synthesizes the introduction on next
		// sight of the type, so a failure here is not fatal.
		_ = j.db.Set(introducedKey(fp), []byte{1})
	}
}

// Close closes the underlying Pebble database.
func (j *Journal) Close() error { return j.db.Close() }

// Begin starts a new transaction backed by a fresh Pebble batch.
func (j *Journal) Begin(ctx context.Context) (journal.Tx, error) {
	return &tx{j: j, batch: j.db.NewBatch()}, nil
}

// IterEvents scans event records in journal (HLC) order.
func (j *Journal) IterEvents(ctx context.Context, filter journal.Filter) iter.Seq[journal.Record] {
	return func(yield func(journal.Record) bool) {
		lower := journalPrefix
		if !filter.Since.IsZero() {
			lower = stampLowerBound(filter.Since)
		}
		it, err := j.db.NewIter(&pebble.IterOptions{
			LowerBound: lower,
			UpperBound: nextPrefix(journalPrefix),
		})
		if err != nil {
			return
		}
		defer it.Close()

		for it.First(); it.Valid(); it.Next() {
			key := it.Key()
			if len(key) < len(journalPrefix)+8+4+1 {
				continue
			}
			kind := key[len(journalPrefix)+8+4]
			if kind != kindEvent {
				continue
			}
			rec, ok := decodeEventRecord(it.Value())
			if !ok {
				continue
			}
			if filter.Fingerprint != nil && rec.Meta.Fingerprint != *filter.Fingerprint {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

func decodeEventRecord(raw []byte) (journal.Record, bool) {
	meta, body, err := journal.DecodeEnvelope(raw)
	if err != nil {
		return journal.Record{}, false
	}
	causeID, payload, err := journal.DecodeEventBody(body)
	if err != nil {
		return journal.Record{}, false
	}
	return journal.Record{Meta: meta, CauseID: causeID, Payload: payload}, true
}

type tx struct {
	j          *Journal
	batch      *pebble.Batch
	closed     bool
	introduced map[layout.Fingerprint]bool
}

// Introduce marks fp as introduced for the rest of this transaction,
// ahead of the underlying EntityLayoutIntroduced record's commit.
func (t *tx) Introduce(fp layout.Fingerprint) {
	if t.introduced == nil {
		t.introduced = make(map[layout.Fingerprint]bool)
	}
	t.introduced[fp] = true
}

func (t *tx) isIntroduced(fp layout.Fingerprint) bool {
	return t.j.isIntroduced(fp) || t.introduced[fp]
}

func (t *tx) AppendCommand(payload []byte, meta journal.Meta) error {
	if t.closed {
		return journal.ErrTxClosed
	}
	if !t.isIntroduced(meta.Fingerprint) {
		return journal.ErrUnintroducedFingerprint
	}
	key := recordKey(kindCommand, meta.Fingerprint, meta.Stamp, meta.ID)
	return t.batch.Set(key, journal.EncodeEnvelope(meta, payload), nil)
}

func (t *tx) AppendEvent(payload []byte, meta journal.Meta, causeCommandID uuid.UUID) error {
	if t.closed {
		return journal.ErrTxClosed
	}
	if !t.isIntroduced(meta.Fingerprint) {
		return journal.ErrUnintroducedFingerprint
	}
	key := recordKey(kindEvent, meta.Fingerprint, meta.Stamp, meta.ID)
	body := journal.EncodeEventBody(causeCommandID, payload)
	return t.batch.Set(key, journal.EncodeEnvelope(meta, body), nil)
}

func (t *tx) Commit() error {
	if t.closed {
		return journal.ErrTxClosed
	}
	t.closed = true
	defer t.batch.Close()
	return t.j.db.CommitBatch(context.Background(), t.batch)
}

func (t *tx) Abort() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.batch.Close()
}
