package lock

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/flowcore/flowcore/internal/storage/pebble"
)

// Leased is an out-of-process-capable lock.Provider, repurposed from the
// teacher's workqueue.LeaseManager: a message lease keyed by consumer
// group becomes a named advisory lock lease keyed by lock name. A
// crashed holder's lock is reclaimed once its lease's TTL elapses: each
// acquisition attempt reads the lease record for the name and takes it
// over if its expiry has passed, with no heartbeat. An expiry-ordered
// index entry is written alongside each lease, but acquisition does not
// scan it.
type Leased struct {
	db       *pebblestore.DB
	ttl      time.Duration
	holderID string
	poll     time.Duration
}

type leaseRecord struct {
	HolderID    string `json:"holder_id"`
	ExpiresAtMs int64  `json:"expires_at_ms"`
}

var (
	leasePrefix    = []byte("lk/")
	leaseIdxPrefix = []byte("lkidx/")
)

// NewLeased opens a lease-based lock provider against db. holderID
// identifies this process (or node) as the lease owner; ttl bounds how
// long a lock is held before it becomes reclaimable without an explicit
// release, guarding against a holder that crashes mid-command.
func NewLeased(db *pebblestore.DB, holderID string, ttl time.Duration) *Leased {
	return &Leased{db: db, ttl: ttl, holderID: holderID, poll: 20 * time.Millisecond}
}

func leaseKey(name string) []byte {
	return append(append([]byte(nil), leasePrefix...), []byte(name)...)
}

func leaseIdxKey(expiresAtMs int64, name string) []byte {
	k := make([]byte, 0, len(leaseIdxPrefix)+8+len(name))
	k = append(k, leaseIdxPrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(expiresAtMs))
	k = append(k, b[:]...)
	k = append(k, []byte(name)...)
	return k
}

func (p *Leased) tryAcquireOnce(name string) (bool, error) {
	now := time.Now().UnixMilli()
	key := leaseKey(name)

	existing, err := p.db.Get(key)
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return false, fmt.Errorf("lock: read lease: %w", err)
	}
	if len(existing) > 0 {
		var rec leaseRecord
		if json.Unmarshal(existing, &rec) == nil && rec.ExpiresAtMs > now {
			return false, nil
		}
	}

	expiresAt := now + p.ttl.Milliseconds()
	rec := leaseRecord{HolderID: p.holderID, ExpiresAtMs: expiresAt}
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("lock: marshal lease: %w", err)
	}

	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(key, data, nil); err != nil {
		return false, err
	}
	if err := batch.Set(leaseIdxKey(expiresAt, name), []byte(name), nil); err != nil {
		return false, err
	}
	if err := p.db.CommitBatch(context.Background(), batch); err != nil {
		return false, fmt.Errorf("lock: commit lease: %w", err)
	}
	return true, nil
}

func (p *Leased) release(name string) error {
	return p.db.Delete(leaseKey(name))
}

func (p *Leased) Acquire(ctx context.Context, name string) (Guard, error) {
	for {
		ok, err := p.tryAcquireOnce(name)
		if err != nil {
			return nil, err
		}
		if ok {
			return &leasedGuard{p: p, name: name}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.poll):
		}
	}
}

func (p *Leased) TryAcquire(ctx context.Context, name string, timeout time.Duration) (Guard, bool, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	guard, err := p.Acquire(tctx, name)
	if err == nil {
		return guard, true, nil
	}
	if tctx.Err() != nil && ctx.Err() == nil {
		return nil, false, nil
	}
	return nil, false, err
}

type leasedGuard struct {
	p        *Leased
	name     string
	released bool
}

func (g *leasedGuard) Release() error {
	if g.released {
		return nil
	}
	g.released = true
	return g.p.release(g.name)
}
