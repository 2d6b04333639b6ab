package repo

import (
	"fmt"

	"github.com/flowcore/flowcore/internal/config"
	"github.com/flowcore/flowcore/internal/consumer"
	"github.com/flowcore/flowcore/internal/index"
	"github.com/flowcore/flowcore/internal/journal"
	"github.com/flowcore/flowcore/internal/layout"
	"github.com/flowcore/flowcore/internal/lock"
	logpkg "github.com/flowcore/flowcore/pkg/log"
)

// Builder assembles a Repository from explicitly supplied
// collaborators — no dynamic dependency injection. Journal, clock, lock
// provider and index engine are all required; Build fails with
// ErrIllegalState if any is missing.
type Builder struct {
	journal journal.Journal
	clk     consumer.Clock
	locks   lock.Provider
	index   index.Engine
	cfg     config.Config
	log     logpkg.Logger
}

// NewBuilder starts a Builder with default configuration.
func NewBuilder() *Builder {
	return &Builder{cfg: config.Default()}
}

func (b *Builder) WithJournal(j journal.Journal) *Builder { b.journal = j; return b }
func (b *Builder) WithClock(c consumer.Clock) *Builder     { b.clk = c; return b }
func (b *Builder) WithLockProvider(p lock.Provider) *Builder { b.locks = p; return b }
func (b *Builder) WithIndexEngine(e index.Engine) *Builder { b.index = e; return b }
func (b *Builder) WithConfig(cfg config.Config) *Builder   { b.cfg = cfg; return b }
func (b *Builder) WithLogger(l logpkg.Logger) *Builder     { b.log = l; return b }

// Build validates that journal, clock, lock provider and index engine
// are all configured and returns a Repository in state New.
func (b *Builder) Build() (*Repository, error) {
	if b.journal == nil {
		return nil, fmt.Errorf("repo: build: %w: journal is required", ErrIllegalState)
	}
	if b.clk == nil {
		return nil, fmt.Errorf("repo: build: %w: clock is required", ErrIllegalState)
	}
	if b.locks == nil {
		return nil, fmt.Errorf("repo: build: %w: lock provider is required", ErrIllegalState)
	}
	if b.index == nil {
		return nil, fmt.Errorf("repo: build: %w: index engine is required", ErrIllegalState)
	}

	l := b.log
	if l == nil {
		l = logpkg.NewLogger()
	}

	return &Repository{
		journal:       b.journal,
		clk:           b.clk,
		locks:         b.locks,
		index:         b.index,
		cache:         layout.NewCache(),
		cfg:           b.cfg,
		log:           l.WithComponent("repo"),
		installedCmds: map[string]struct{}{},
		installedEvts: map[string]struct{}{},
	}, nil
}
