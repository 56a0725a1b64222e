// Package syncer keeps paired devices in agreement. Outbound state
// travels as a tokened snapshot document; inbound messages are either
// a snapshot to apply or a small command to execute locally.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/sandeepkv93/tempod/internal/backup"
)

var (
	ErrStaleSnapshot = errors.New("syncer: snapshot token is not newer than last applied")
	ErrBadToken      = errors.New("syncer: malformed snapshot token")
)

// Guard orders snapshot application. Tokens are millisecond epoch
// strings minted by the sender; a snapshot whose token is not
// strictly greater than the last applied one is discarded, so a slow
// duplicate can never roll state backwards.
type Guard struct {
	mu          sync.Mutex
	store       backup.Replacer
	logger      *slog.Logger
	now         func() time.Time
	lastApplied int64
	lastMinted  int64
	discarded   uint64
}

type GuardOption func(*Guard)

// WithGuardClock replaces the wall clock, for tests.
func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

func NewGuard(store backup.Replacer, logger *slog.Logger, opts ...GuardOption) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Guard{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NextToken mints a strictly increasing millisecond token. Two calls
// inside the same millisecond still produce distinct tokens.
func (g *Guard) NextToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.lastMinted {
		ms = g.lastMinted + 1
	}
	g.lastMinted = ms
	return strconv.FormatInt(ms, 10)
}

// ApplySnapshot replaces local state with the document when its token
// is fresh. Stale documents are counted and dropped without touching
// the store.
func (g *Guard) ApplySnapshot(ctx context.Context, doc backup.Document) error {
	token, err := strconv.ParseInt(doc.Token, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadToken, doc.Token)
	}

	g.mu.Lock()
	if token <= g.lastApplied {
		g.discarded++
		last := g.lastApplied
		g.mu.Unlock()
		g.logger.Warn("discarding stale snapshot",
			slog.Int64("token", token),
			slog.Int64("last_applied", last))
		return fmt.Errorf("%w: got %d, have %d", ErrStaleSnapshot, token, last)
	}
	g.mu.Unlock()

	if err := g.store.ReplaceAll(ctx, doc.Snapshot()); err != nil {
		return fmt.Errorf("syncer: apply snapshot: %w", err)
	}

	g.mu.Lock()
	if token > g.lastApplied {
		g.lastApplied = token
	}
	g.mu.Unlock()
	return nil
}

// LastApplied returns the newest applied token, or "" before the
// first apply.
func (g *Guard) LastApplied() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastApplied == 0 {
		return ""
	}
	return strconv.FormatInt(g.lastApplied, 10)
}

// Discarded reports how many stale snapshots were rejected.
func (g *Guard) Discarded() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.discarded
}
