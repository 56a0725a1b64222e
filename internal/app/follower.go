package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepkv93/tempod/internal/interval"
	"github.com/sandeepkv93/tempod/internal/model"
	"github.com/sandeepkv93/tempod/internal/scheduler"
	"github.com/sandeepkv93/tempod/internal/textfeatures"
	"github.com/sandeepkv93/tempod/internal/trigger"
)

// Triggers only fire for an interval started moments ago. Anything
// older arrived via snapshot replay and must stay silent.
const triggerFreshness = 3

const historyHintLimit = 5

// followerStore is the persistence slice the follower reads and
// updates after each interval transition.
type followerStore interface {
	GetActivity(ctx context.Context, id int64) (model.Activity, error)
	UpdateActivity(ctx context.Context, in model.Activity) error
	GetRepeating(ctx context.Context, id int64) (model.Repeating, error)
	IntervalsInRange(ctx context.Context, from, to int64, limit int) ([]model.Interval, error)
}

// Follower consumes interval transitions: it refreshes the started
// activity's timer hints, reschedules notifications and fires the
// note's triggers.
type Follower struct {
	store        followerStore
	sched        *scheduler.Engine
	triggers     *trigger.Registry
	writer       *Writer
	overdueDelay time.Duration
	now          func() int64
	// openFullScreen raises the focus surface on the platform, nil
	// when no surface is attached.
	openFullScreen func(model.Interval)
	logger         *slog.Logger
}

func NewFollower(store followerStore, sched *scheduler.Engine, triggers *trigger.Registry, writer *Writer, overdueDelay time.Duration, logger *slog.Logger) *Follower {
	if logger == nil {
		logger = slog.Default()
	}
	return &Follower{
		store:        store,
		sched:        sched,
		triggers:     triggers,
		writer:       writer,
		overdueDelay: overdueDelay,
		now:          func() int64 { return time.Now().Unix() },
		logger:       logger,
	}
}

// SetFullScreenOpener installs the focus-surface callback.
func (f *Follower) SetFullScreenOpener(open func(model.Interval)) {
	f.openFullScreen = open
}

// WithClock substitutes the freshness clock, for tests.
func (f *Follower) WithClock(now func() int64) *Follower {
	f.now = now
	return f
}

func (f *Follower) Run(ctx context.Context, events <-chan interval.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := f.HandleEvent(ctx, ev); err != nil {
				f.logger.Error("interval follow-up failed",
					slog.Int64("interval_id", ev.Interval.ID),
					slog.String("error", err.Error()))
			}
		}
	}
}

// HandleEvent processes one transition. Cancellation markers only
// clear pending notifications; real starts do the full follow-up.
func (f *Follower) HandleEvent(ctx context.Context, ev interval.Event) error {
	in := ev.Interval
	f.sched.CancelAll()
	if in.IsCancellation() {
		return nil
	}

	if err := f.writer.Do(func() error { return f.refreshTimerHints(ctx, in) }); err != nil {
		return err
	}
	if err := f.scheduleNotifications(ctx, in); err != nil {
		return err
	}
	return f.fireTriggers(ctx, in)
}

// refreshTimerHints rebuilds the activity's history hints from its
// most recent distinct deadlines.
func (f *Follower) refreshTimerHints(ctx context.Context, in model.Interval) error {
	activity, err := f.store.GetActivity(ctx, in.ActivityID)
	if err != nil {
		return fmt.Errorf("app: load activity %d: %w", in.ActivityID, err)
	}
	if activity.TimerHints.Type != model.TimerHintsHistory {
		return nil
	}

	recent, err := f.store.IntervalsInRange(ctx, 0, in.ID, 200)
	if err != nil {
		return fmt.Errorf("app: load interval history: %w", err)
	}
	seen := map[int]bool{}
	var history []int
	for _, prev := range recent {
		if prev.ActivityID != in.ActivityID || prev.IsCancellation() || seen[prev.Deadline] {
			continue
		}
		seen[prev.Deadline] = true
		history = append(history, prev.Deadline)
		if len(history) == historyHintLimit {
			break
		}
	}

	activity.TimerHints.History = history
	if err := f.store.UpdateActivity(ctx, activity); err != nil {
		return fmt.Errorf("app: update timer hints: %w", err)
	}
	return nil
}

func (f *Follower) scheduleNotifications(ctx context.Context, in model.Interval) error {
	activity, err := f.store.GetActivity(ctx, in.ActivityID)
	if err != nil {
		return fmt.Errorf("app: load activity %d: %w", in.ActivityID, err)
	}
	deadline := time.Unix(in.ID+int64(in.Deadline), 0)

	if err := f.sched.Schedule(scheduler.Notification{
		Kind:      scheduler.KindBreak,
		Title:     activity.Name,
		Text:      "Time to take a break",
		TriggerAt: deadline,
	}); err != nil {
		return err
	}
	return f.sched.Schedule(scheduler.Notification{
		Kind:      scheduler.KindOverdue,
		Title:     activity.Name,
		Text:      "Still going, the timer is up",
		TriggerAt: deadline.Add(f.overdueDelay),
	})
}

// fireTriggers activates the note's triggers, raising the focus
// surface first when auto full-screen applies. With the surface up,
// checklists are already visible there, so only the first shortcut
// runs; otherwise the first trigger of any kind fires.
func (f *Follower) fireTriggers(ctx context.Context, in model.Interval) error {
	if in.ID+triggerFreshness < f.now() {
		return nil
	}

	// An interval started straight from an activity has no note; the
	// activity's name carries the triggers then.
	source := in.Note
	if strings.TrimSpace(source) == "" {
		activity, err := f.store.GetActivity(ctx, in.ActivityID)
		if err != nil {
			return fmt.Errorf("app: load activity %d: %w", in.ActivityID, err)
		}
		source = activity.Name
	}
	features := textfeatures.Parse(source)

	autoFS, err := f.autoFullScreen(ctx, in, features)
	if err != nil {
		return err
	}
	if autoFS && f.openFullScreen != nil {
		f.openFullScreen(in)
	}

	resolved := f.triggers.ResolveAll(ctx, features.Triggers)
	for _, t := range resolved {
		if autoFS && t.IsChecklist() {
			continue
		}
		if err := f.triggers.Activate(ctx, t); err != nil {
			f.logger.Warn("trigger activation failed",
				slog.String("kind", string(t.Kind)),
				slog.Int64("id", t.ID),
				slog.String("error", err.Error()))
		}
		break
	}
	return nil
}

// autoFullScreen resolves where the interval came from: a task
// materialized from a repeating inherits that repeating's setting,
// anything else uses the activity's.
func (f *Follower) autoFullScreen(ctx context.Context, in model.Interval, features textfeatures.Features) (bool, error) {
	if features.RepeatingID != 0 {
		rep, err := f.store.GetRepeating(ctx, features.RepeatingID)
		if err == nil {
			return rep.AutoFS, nil
		}
		// Repeating deleted since materialization; fall through.
	}
	activity, err := f.store.GetActivity(ctx, in.ActivityID)
	if err != nil {
		return false, fmt.Errorf("app: load activity %d: %w", in.ActivityID, err)
	}
	return activity.AutoFS, nil
}
