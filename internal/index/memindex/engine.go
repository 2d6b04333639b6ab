// Package memindex is the in-memory reference implementation of
// index.Engine: a per-fingerprint collection held in a map, queried by
// a full scan through a compiled CEL predicate. It implements the one
// piece of the source's CQEngine-style index engine this module actually
// carries end to end; CQEngine itself stays out of scope.
package memindex

import (
	"context"
	"iter"
	"sync"

	"github.com/flowcore/flowcore/internal/entity"
	"github.com/flowcore/flowcore/internal/index"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/google/uuid"
)

// Engine is the in-memory index.Engine.
type Engine struct {
	mu          sync.RWMutex
	collections map[layout.Fingerprint]*collection
}

type collection struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]entity.Entity
	indices map[string]index.Index
}

// New creates an empty in-memory index engine.
func New() *Engine {
	return &Engine{collections: make(map[layout.Fingerprint]*collection)}
}

func (e *Engine) collectionFor(fp layout.Fingerprint) *collection {
	e.mu.RLock()
	c, ok := e.collections[fp]
	e.mu.RUnlock()
	if ok {
		return c
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.collections[fp]; ok {
		return c
	}
	c = &collection{byID: make(map[uuid.UUID]entity.Entity), indices: make(map[string]index.Index)}
	e.collections[fp] = c
	return c
}

func (e *Engine) AddToCollection(ctx context.Context, fp layout.Fingerprint, ent entity.Entity) error {
	c := e.collectionFor(fp)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[ent.EntityID()] = ent
	return nil
}

func (e *Engine) TryAddIndex(fp layout.Fingerprint, idx index.Index) (bool, error) {
	c := e.collectionFor(fp)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, present := c.indices[idx.Name]; present {
		return true, nil
	}
	c.indices[idx.Name] = idx
	return false, nil
}

func (e *Engine) Query(ctx context.Context, fp layout.Fingerprint, pred index.Predicate) iter.Seq[entity.Entity] {
	c := e.collectionFor(fp)
	c.mu.RLock()
	snapshot := make([]entity.Entity, 0, len(c.byID))
	for _, ent := range c.byID {
		snapshot = append(snapshot, ent)
	}
	c.mu.RUnlock()

	return func(yield func(entity.Entity) bool) {
		for _, ent := range snapshot {
			if ctx.Err() != nil {
				return
			}
			stamp := ent.HLCStamp()
			if !pred.Eval(ent.EntityID(), stamp.WallMS, extractFields(ent)) {
				continue
			}
			if !yield(ent) {
				return
			}
		}
	}
}
