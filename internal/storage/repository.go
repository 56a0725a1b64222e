package storage

import (
	"context"
	"errors"

	"github.com/sandeepkv93/tempod/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

// Snapshot is the full domain state as one value. Used by backup
// create/restore and by cross-device snapshot application, both of
// which replace local state wholesale.
type Snapshot struct {
	Activities     []model.Activity
	Intervals      []model.Interval
	Folders        []model.TaskFolder
	Tasks          []model.Task
	Repeatings     []model.Repeating
	Events         []model.Event
	Checklists     []model.Checklist
	ChecklistItems []model.ChecklistItem
	Shortcuts      []model.Shortcut
}

type Repository interface {
	CreateActivity(ctx context.Context, in model.Activity) error
	UpdateActivity(ctx context.Context, in model.Activity) error
	GetActivity(ctx context.Context, id int64) (model.Activity, error)
	ListActivitiesAsc(ctx context.Context) ([]model.Activity, error)
	// OtherActivity returns the reserved fallback activity used for
	// cancellation marker intervals.
	OtherActivity(ctx context.Context) (model.Activity, error)

	CreateInterval(ctx context.Context, in model.Interval) error
	LastInterval(ctx context.Context) (model.Interval, error)
	// IntervalsInRange returns intervals with id in [from, to],
	// newest first, at most limit rows when limit > 0.
	IntervalsInRange(ctx context.Context, from, to int64, limit int) ([]model.Interval, error)

	CreateFolder(ctx context.Context, in model.TaskFolder) error
	ListFoldersAsc(ctx context.Context) ([]model.TaskFolder, error)

	// CreateTask assigns an id when in.ID is zero and returns the
	// stored row.
	CreateTask(ctx context.Context, in model.Task) (model.Task, error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ListTasksInFolder(ctx context.Context, folderID int64) ([]model.Task, error)
	TaskByEventID(ctx context.Context, eventID int64) (model.Task, error)
	MoveTask(ctx context.Context, id, folderID int64) error

	CreateRepeating(ctx context.Context, in model.Repeating) error
	UpdateRepeating(ctx context.Context, in model.Repeating) error
	GetRepeating(ctx context.Context, id int64) (model.Repeating, error)
	ListActiveRepeatings(ctx context.Context) ([]model.Repeating, error)
	SetRepeatingLastDay(ctx context.Context, id int64, day int) error

	CreateEvent(ctx context.Context, in model.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	ListEventsForDay(ctx context.Context, day int) ([]model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)

	CreateChecklist(ctx context.Context, in model.Checklist) error
	GetChecklist(ctx context.Context, id int64) (model.Checklist, error)
	ListChecklists(ctx context.Context) ([]model.Checklist, error)
	CreateChecklistItem(ctx context.Context, in model.ChecklistItem) error
	ListChecklistItems(ctx context.Context, checklistID int64) ([]model.ChecklistItem, error)
	SetChecklistItemChecked(ctx context.Context, id int64, checked bool) error

	CreateShortcut(ctx context.Context, in model.Shortcut) error
	GetShortcut(ctx context.Context, id int64) (model.Shortcut, error)
	ListShortcuts(ctx context.Context) ([]model.Shortcut, error)

	// Dump reads the whole store; intervalsLimit > 0 bounds the
	// interval history to the most recent rows.
	Dump(ctx context.Context, intervalsLimit int) (Snapshot, error)
	// ReplaceAll swaps the entire store for the snapshot in one
	// transaction. Readers never observe a partial replacement.
	ReplaceAll(ctx context.Context, snap Snapshot) error
}
