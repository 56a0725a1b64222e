// Package interval implements the single-active-interval state
// machine. At most one interval is current; starting a new one is the
// only transition and implicitly ends the previous interval.
package interval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandeepkv93/tempod/internal/model"
)

var (
	ErrInvalidDeadline   = errors.New("interval: deadline must be positive")
	ErrNoCurrentInterval = errors.New("interval: no current interval")
)

// Event announces a new current interval. Consumers re-derive timer
// hints, reschedule notifications and fire text triggers off it.
type Event struct {
	Interval model.Interval
}

// Store is the slice of persistence the engine needs: an atomic
// append. The engine never scans history; the current pointer is
// owned in memory and seeded once at construction.
type Store interface {
	CreateInterval(ctx context.Context, in model.Interval) error
}

type Engine struct {
	mu    sync.Mutex
	store Store
	now   func() int64
	cur   *model.Interval
	// otherActivityID is the reserved fallback activity used for
	// cancellation marker intervals. Configured, not inferred.
	otherActivityID int64
	events          chan Event
	dropped         uint64
}

type Option func(*Engine)

// WithNow substitutes the clock, for tests.
func WithNow(now func() int64) Option {
	return func(e *Engine) { e.now = now }
}

// WithEventBuffer sizes the event channel.
func WithEventBuffer(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.events = make(chan Event, size)
		}
	}
}

// NewEngine builds the engine. last is the most recent interval from
// storage, or nil when history is empty (only ever true before the
// first start on a fresh install).
func NewEngine(store Store, last *model.Interval, otherActivityID int64, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("interval: nil store")
	}
	if otherActivityID <= 0 {
		return nil, errors.New("interval: reserved activity id is required")
	}
	e := &Engine{
		store:           store,
		now:             func() int64 { return time.Now().Unix() },
		otherActivityID: otherActivityID,
		events:          make(chan Event, 16),
	}
	if last != nil {
		cur := *last
		e.cur = &cur
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Events is the stream of "new current interval" announcements.
// Delivery is best effort: a slow consumer drops events rather than
// blocking interval transitions.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Dropped reports how many events were discarded on a full channel.
func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

// Start begins tracking an activity. The new interval's id is the
// current Unix second, bumped when needed to keep ids strictly
// increasing. A non-positive deadline fails with ErrInvalidDeadline
// and leaves state untouched.
func (e *Engine) Start(ctx context.Context, activityID int64, deadlineSeconds int, note string) (model.Interval, error) {
	if deadlineSeconds <= 0 {
		return model.Interval{}, ErrInvalidDeadline
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.append(ctx, activityID, deadlineSeconds, note)
}

// RestartCurrent starts a fresh interval with the current one's
// activity, deadline and note.
func (e *Engine) RestartCurrent(ctx context.Context) (model.Interval, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return model.Interval{}, ErrNoCurrentInterval
	}
	return e.append(ctx, e.cur.ActivityID, e.cur.Deadline, e.cur.Note)
}

// CancelCurrent stops elapsed-time accounting by appending a marker
// interval on the reserved activity with deadline zero. It is a
// normal transition: the id still strictly advances.
func (e *Engine) CancelCurrent(ctx context.Context) (model.Interval, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return model.Interval{}, ErrNoCurrentInterval
	}
	return e.append(ctx, e.otherActivityID, 0, "")
}

// Reseed replaces the cached current pointer after the store has
// been swapped wholesale, e.g. by a snapshot apply or restore. The
// caller passes the store's new max-id interval, or nil for an empty
// history.
func (e *Engine) Reseed(last *model.Interval) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if last == nil {
		e.cur = nil
		return
	}
	cur := *last
	e.cur = &cur
}

// Current returns the running interval, false only before the
// first-ever start.
func (e *Engine) Current() (model.Interval, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return model.Interval{}, false
	}
	return *e.cur, true
}

// Last is an alias of Current: the last appended interval is by
// definition the current one.
func (e *Engine) Last() (model.Interval, bool) {
	return e.Current()
}

// append is the single mutation point. The storage insert happens
// first; the cached pointer and the event only move on success, so a
// failed append leaves no trace.
func (e *Engine) append(ctx context.Context, activityID int64, deadlineSeconds int, note string) (model.Interval, error) {
	id := e.now()
	if e.cur != nil && id <= e.cur.ID {
		id = e.cur.ID + 1
	}
	in := model.Interval{
		ID:         id,
		ActivityID: activityID,
		Deadline:   deadlineSeconds,
		Note:       note,
	}
	if err := in.Validate(); err != nil {
		return model.Interval{}, err
	}
	if err := e.store.CreateInterval(ctx, in); err != nil {
		return model.Interval{}, fmt.Errorf("append interval: %w", err)
	}
	e.cur = &in

	select {
	case e.events <- Event{Interval: in}:
	default:
		atomic.AddUint64(&e.dropped, 1)
	}
	return in, nil
}
