package memindex

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"

	"github.com/flowcore/flowcore/internal/index"
)

// celPredicate wraps a compiled CEL program, grounded directly on the
// teacher's streamsvc.celFilter: same cel.NewEnv/cel.Program
// construction, generalized from filtering log records to filtering
// indexed entities by exposing each chronicle-tagged property as a
// single dynamic "fields" variable instead of a fixed message schema.
type celPredicate struct {
	prog cel.Program
}

// NewCELPredicate compiles expr into an index.Predicate. expr sees
// "fields" (the entity's chronicle-tagged properties), "id" (its UUID as
// a string), and "wall_ms" (its HLC wall-clock component).
func NewCELPredicate(expr string) (index.Predicate, error) {
	expr = strings.TrimSpace(expr)
	env, err := cel.NewEnv(
		cel.Variable("fields", cel.DynType),
		cel.Variable("id", cel.StringType),
		cel.Variable("wall_ms", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("memindex: build cel env: %w", err)
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("memindex: parse predicate: %w", iss.Err())
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, fmt.Errorf("memindex: check predicate: %w", iss2.Err())
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("memindex: build cel program: %w", err)
	}
	return &celPredicate{prog: prog}, nil
}

func (p *celPredicate) Eval(id uuid.UUID, wallMs uint64, fields map[string]any) bool {
	out, _, err := p.prog.Eval(map[string]any{
		"fields":  fields,
		"id":      id.String(),
		"wall_ms": int64(wallMs),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// MatchAll is the always-true predicate, for callers that want every
// entity in a collection.
var MatchAll index.Predicate = matchAllPredicate{}

type matchAllPredicate struct{}

func (matchAllPredicate) Eval(uuid.UUID, uint64, map[string]any) bool { return true }
