package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/tempod/internal/model"
	"github.com/sandeepkv93/tempod/internal/storage"
	"github.com/sandeepkv93/tempod/internal/timeutil"
)

// seedStore is the persistence slice first-run initialization needs.
type seedStore interface {
	ListActivitiesAsc(ctx context.Context) ([]model.Activity, error)
	CreateActivity(ctx context.Context, in model.Activity) error
	ListFoldersAsc(ctx context.Context) ([]model.TaskFolder, error)
	CreateFolder(ctx context.Context, in model.TaskFolder) error
	LastInterval(ctx context.Context) (model.Interval, error)
	CreateInterval(ctx context.Context, in model.Interval) error
}

var seedColors = []string{
	"#ff9ff3", "#feca57", "#ff6b6b", "#48dbfb",
	"#1dd1a1", "#f368e0", "#54a0ff",
}

// Seed fills an empty database: the built-in folders, a starter set
// of activities with the reserved fallback first, and one initial
// interval so the engine always has a current. A non-empty database
// is left untouched.
func Seed(ctx context.Context, store seedStore, otherActivityID int64) error {
	existing, err := store.ListActivitiesAsc(ctx)
	if err != nil {
		return fmt.Errorf("app: seed check: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	folders := []model.TaskFolder{
		{ID: model.FolderIDToday, Name: "Today", Sort: 1},
		{ID: model.FolderIDTomorrow, Name: "Tomorrow", Sort: 2},
		{ID: model.FolderIDWeek, Name: "Week", Sort: 3},
		{ID: model.FolderIDInbox, Name: "Inbox", Sort: 4},
	}
	for _, folder := range folders {
		if err := store.CreateFolder(ctx, folder); err != nil {
			return fmt.Errorf("app: seed folder %q: %w", folder.Name, err)
		}
	}

	activities := []model.Activity{
		{ID: otherActivityID, Name: "Other", Emoji: "💡", DefaultTimer: 600, Sort: 0, Type: model.ActivityTypeOther},
		{Name: "Work", Emoji: "📁", DefaultTimer: 40 * 60, Sort: 1, Type: model.ActivityTypeNormal},
		{Name: "Learning", Emoji: "📖", DefaultTimer: 30 * 60, Sort: 2, Type: model.ActivityTypeNormal},
		{Name: "Exercises", Emoji: "💪", DefaultTimer: 30 * 60, Sort: 3, Type: model.ActivityTypeNormal},
		{Name: "Meditation", Emoji: "🧘", DefaultTimer: 20 * 60, Sort: 4, Type: model.ActivityTypeNormal},
		{Name: "Walk", Emoji: "👟", DefaultTimer: 30 * 60, Sort: 5, Type: model.ActivityTypeNormal},
		{Name: "Hobby", Emoji: "🎸", DefaultTimer: 60 * 60, Sort: 6, Type: model.ActivityTypeNormal},
		{Name: "Sleep", Emoji: "😴", DefaultTimer: 8 * 3600, Sort: 7, Type: model.ActivityTypeNormal},
	}
	nextID := otherActivityID + 1
	for i := range activities {
		a := &activities[i]
		if a.ID == 0 {
			a.ID = nextID
			nextID++
		}
		a.Color = seedColors[i%len(seedColors)]
		a.TimerHints = model.TimerHints{Type: model.TimerHintsHistory}
		if err := store.CreateActivity(ctx, *a); err != nil {
			return fmt.Errorf("app: seed activity %q: %w", a.Name, err)
		}
	}

	// The engine requires a current interval after first run.
	if _, err := store.LastInterval(ctx); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("app: seed interval check: %w", err)
		}
		first := model.Interval{
			ID:         timeutil.Now().Time,
			ActivityID: otherActivityID,
			Deadline:   600,
		}
		if err := store.CreateInterval(ctx, first); err != nil {
			return fmt.Errorf("app: seed interval: %w", err)
		}
	}
	return nil
}
