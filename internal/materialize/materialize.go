// Package materialize turns recurring definitions into concrete
// "today" tasks, once per local day, and rolls tomorrow's tasks over
// when their day arrives.
package materialize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/tempod/internal/model"
	"github.com/sandeepkv93/tempod/internal/textfeatures"
	"github.com/sandeepkv93/tempod/internal/timeutil"
)

// Store is the persistence slice materialization needs.
type Store interface {
	ListActiveRepeatings(ctx context.Context) ([]model.Repeating, error)
	SetRepeatingLastDay(ctx context.Context, id int64, day int) error
	CreateTask(ctx context.Context, in model.Task) (model.Task, error)
	ListTasksInFolder(ctx context.Context, folderID int64) ([]model.Task, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	// TaskByEventID reports the task linked to an event, ok=false
	// when none exists.
	TaskByEventID(ctx context.Context, eventID int64) (model.Task, bool, error)
	MoveTask(ctx context.Context, id, folderID int64) error
}

// RepeatingMaterializer creates one Today task per due repeating per
// local day. The lastDay field is only a fast path: correctness rests
// on the persisted LastDay marker and the #r origin token carried in
// materialized task text, both of which survive a crash.
type RepeatingMaterializer struct {
	store          Store
	weekStart      int
	dayStartOffset int
	now            func() timeutil.UnixTime
	lastDay        int
	logger         *slog.Logger
}

func NewRepeatingMaterializer(store Store, weekStart, dayStartOffsetSeconds int, logger *slog.Logger) *RepeatingMaterializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepeatingMaterializer{
		store:          store,
		weekStart:      weekStart,
		dayStartOffset: dayStartOffsetSeconds,
		now:            timeutil.Now,
		logger:         logger,
	}
}

// WithClock substitutes the task-creation timestamp source, for tests.
func (m *RepeatingMaterializer) WithClock(now func() timeutil.UnixTime) *RepeatingMaterializer {
	m.now = now
	return m
}

func (m *RepeatingMaterializer) SyncToday(ctx context.Context, today int) error {
	if m.lastDay == today {
		return nil
	}

	existing, err := m.materializedRepeatingIDs(ctx, today)
	if err != nil {
		return err
	}

	weekday := timeutil.WeekdayIndex(today, m.weekStart)
	repeatings, err := m.store.ListActiveRepeatings(ctx)
	if err != nil {
		return fmt.Errorf("list repeatings: %w", err)
	}
	for _, rep := range repeatings {
		if rep.LastDay >= today {
			continue
		}
		if !rep.Period.MatchesDay(today, weekday) {
			continue
		}
		if !existing[rep.ID] {
			features := textfeatures.Parse(rep.Text)
			features.RepeatingID = rep.ID
			task := model.Task{
				Text:      features.Serialize(),
				FolderID:  model.FolderIDToday,
				CreatedAt: m.now().Time,
			}
			if _, err := m.store.CreateTask(ctx, task); err != nil {
				return fmt.Errorf("materialize repeating %d: %w", rep.ID, err)
			}
		} else {
			m.logger.Debug("repeating already materialized, advancing marker only", "id", rep.ID, "day", today)
		}
		if err := m.store.SetRepeatingLastDay(ctx, rep.ID, today); err != nil {
			return fmt.Errorf("advance repeating %d: %w", rep.ID, err)
		}
	}

	m.lastDay = today
	return nil
}

// materializedRepeatingIDs collects origin ids of tasks created today
// that already sit in Today, so a re-run after a crash between task
// insert and marker advance does not duplicate. Yesterday's leftover
// tasks do not count: the scope is the task's own creation day.
func (m *RepeatingMaterializer) materializedRepeatingIDs(ctx context.Context, today int) (map[int64]bool, error) {
	tasks, err := m.store.ListTasksInFolder(ctx, model.FolderIDToday)
	if err != nil {
		return nil, fmt.Errorf("list today tasks: %w", err)
	}
	utcOffset := m.now().UTCOffset
	out := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		created := timeutil.UnixTime{Time: t.CreatedAt, UTCOffset: utcOffset}
		if created.ShiftedBack(m.dayStartOffset).LocalDay() != today {
			continue
		}
		if id := textfeatures.Parse(t.Text).RepeatingID; id > 0 {
			out[id] = true
		}
	}
	return out, nil
}

// EventMaterializer ensures exactly one linked Today task exists for
// every event whose day has arrived. Deduplication is by the event
// link on the task row, not by any in-memory cache.
type EventMaterializer struct {
	store   Store
	now     func() int64
	lastDay int
}

func NewEventMaterializer(store Store) *EventMaterializer {
	return &EventMaterializer{store: store, now: func() int64 { return time.Now().Unix() }}
}

func (m *EventMaterializer) WithClock(now func() int64) *EventMaterializer {
	m.now = now
	return m
}

// SyncToday materializes every event with Day <= today. Events keep
// their rows; the task link is what prevents duplicates. today is
// computed without the day start offset.
func (m *EventMaterializer) SyncToday(ctx context.Context, today int) error {
	if m.lastDay == today {
		return nil
	}
	events, err := m.store.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	for _, e := range events {
		if e.Day > today {
			continue
		}
		_, ok, err := m.store.TaskByEventID(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("lookup event task %d: %w", e.ID, err)
		}
		if ok {
			continue
		}
		eventID := e.ID
		task := model.Task{
			Text:      e.Text,
			FolderID:  model.FolderIDToday,
			EventID:   &eventID,
			CreatedAt: m.now(),
		}
		if _, err := m.store.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("materialize event %d: %w", e.ID, err)
		}
	}
	m.lastDay = today
	return nil
}

// RolloverTomorrow moves tasks filed under Tomorrow into Today as
// soon as their effective local day (with the day start offset) has
// passed. It runs every tick, not just at the nightly boundary.
func RolloverTomorrow(ctx context.Context, store Store, now timeutil.UnixTime, dayStartOffsetSeconds int) error {
	today := now.ShiftedBack(dayStartOffsetSeconds).LocalDay()
	tasks, err := store.ListTasksInFolder(ctx, model.FolderIDTomorrow)
	if err != nil {
		return fmt.Errorf("list tomorrow tasks: %w", err)
	}
	for _, t := range tasks {
		created := timeutil.UnixTime{Time: t.CreatedAt, UTCOffset: now.UTCOffset}
		if created.ShiftedBack(dayStartOffsetSeconds).LocalDay() < today {
			if err := store.MoveTask(ctx, t.ID, model.FolderIDToday); err != nil {
				return fmt.Errorf("roll over task %d: %w", t.ID, err)
			}
		}
	}
	return nil
}
