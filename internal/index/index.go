// Package index defines the repository's queryable-collection contract:
// a per-entity-type collection the consumer populates inside the same
// critical section as the journal commit, plus a set of declared indices
// re-adding which is a no-op rather than an error.
package index

import (
	"context"
	"iter"

	"github.com/flowcore/flowcore/internal/entity"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/google/uuid"
)

// Index is a declared attribute index on a collection. Re-registering an
// Index with the same Name on the same fingerprint is a no-op.
type Index struct {
	Name string
}

// Predicate filters entities during Query. id and wallMs are exposed
// alongside fields so predicates can reason about identity and recency
// without the caller having to pack them into fields itself.
type Predicate interface {
	Eval(id uuid.UUID, wallMs uint64, fields map[string]any) bool
}

// Engine is the collection + index contract for one repository. Each
// entity type (identified by its layout fingerprint) gets its own
// collection.
type Engine interface {
	AddToCollection(ctx context.Context, fp layout.Fingerprint, ent entity.Entity) error
	TryAddIndex(fp layout.Fingerprint, idx Index) (alreadyPresent bool, err error)
	Query(ctx context.Context, fp layout.Fingerprint, pred Predicate) iter.Seq[entity.Entity]
}
