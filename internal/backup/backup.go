// Package backup serializes the full domain state into a JSON
// document and restores it. The same document, tagged with a send
// token, is what travels between paired devices.
package backup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sandeepkv93/tempod/internal/model"
	"github.com/sandeepkv93/tempod/internal/storage"
)

// Document is the wire/backup shape of a storage.Snapshot. Token is
// set on device transfers and empty on plain backup files.
type Document struct {
	Token          string          `json:"type,omitempty"`
	Activities     []Activity      `json:"activities"`
	Intervals      []Interval      `json:"intervals"`
	Folders        []TaskFolder    `json:"task_folders"`
	Tasks          []Task          `json:"tasks"`
	Repeatings     []Repeating     `json:"repeatings"`
	Events         []Event         `json:"events"`
	Checklists     []Checklist     `json:"checklists"`
	ChecklistItems []ChecklistItem `json:"checklist_items"`
	Shortcuts      []Shortcut      `json:"shortcuts"`
}

type Activity struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Emoji        string `json:"emoji"`
	Color        string `json:"color"`
	DefaultTimer int    `json:"timer"`
	Sort         int    `json:"sort"`
	AutoFS       bool   `json:"auto_fs"`
	Type         string `json:"type"`
	HintsType    string `json:"hints_type"`
	HintsCustom  []int  `json:"hints_custom,omitempty"`
	HintsHistory []int  `json:"hints_history,omitempty"`
}

type Interval struct {
	ID         int64  `json:"id"`
	ActivityID int64  `json:"activity_id"`
	Deadline   int    `json:"deadline"`
	Note       string `json:"note,omitempty"`
}

type TaskFolder struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Sort int    `json:"sort"`
}

type Task struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	FolderID  int64  `json:"folder_id"`
	EventID   *int64 `json:"event_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type Repeating struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	PeriodType string `json:"period_type"`
	N          int    `json:"n,omitempty"`
	AnchorDay  int    `json:"anchor_day,omitempty"`
	Weekdays   []int  `json:"weekdays,omitempty"`
	LastDay    int    `json:"last_day"`
	AutoFS     bool   `json:"auto_fs"`
	Active     bool   `json:"active"`
}

type Event struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Day     int    `json:"day"`
	Daytime int    `json:"daytime"`
}

type Checklist struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type ChecklistItem struct {
	ID          int64  `json:"id"`
	ChecklistID int64  `json:"checklist_id"`
	Text        string `json:"text"`
	Checked     bool   `json:"checked"`
}

type Shortcut struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	URI   string `json:"uri"`
	Color string `json:"color,omitempty"`
}

// Dumper is the read half of the store backup needs.
type Dumper interface {
	Dump(ctx context.Context, intervalsLimit int) (storage.Snapshot, error)
}

// Replacer is the write half restore needs.
type Replacer interface {
	ReplaceAll(ctx context.Context, snap storage.Snapshot) error
}

// Create reads current state and encodes it. It never mutates the
// store. intervalsLimit > 0 bounds history for light transfers.
func Create(ctx context.Context, store Dumper, intervalsLimit int, token string) ([]byte, error) {
	snap, err := store.Dump(ctx, intervalsLimit)
	if err != nil {
		return nil, fmt.Errorf("backup create: %w", err)
	}
	raw, err := json.Marshal(FromSnapshot(snap, token))
	if err != nil {
		return nil, fmt.Errorf("backup encode: %w", err)
	}
	return raw, nil
}

// Restore decodes the document and replaces local state wholesale.
// A decode failure leaves the store untouched.
func Restore(ctx context.Context, store Replacer, raw []byte) error {
	doc, err := Decode(raw)
	if err != nil {
		return err
	}
	if err := store.ReplaceAll(ctx, doc.Snapshot()); err != nil {
		return fmt.Errorf("backup restore: %w", err)
	}
	return nil
}

func Decode(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("backup decode: %w", err)
	}
	return doc, nil
}

func FromSnapshot(snap storage.Snapshot, token string) Document {
	doc := Document{Token: token}
	for _, a := range snap.Activities {
		doc.Activities = append(doc.Activities, Activity{
			ID: a.ID, Name: a.Name, Emoji: a.Emoji, Color: a.Color,
			DefaultTimer: a.DefaultTimer, Sort: a.Sort, AutoFS: a.AutoFS,
			Type: string(a.Type), HintsType: string(a.TimerHints.Type),
			HintsCustom: a.TimerHints.Custom, HintsHistory: a.TimerHints.History,
		})
	}
	for _, in := range snap.Intervals {
		doc.Intervals = append(doc.Intervals, Interval{ID: in.ID, ActivityID: in.ActivityID, Deadline: in.Deadline, Note: in.Note})
	}
	for _, f := range snap.Folders {
		doc.Folders = append(doc.Folders, TaskFolder{ID: f.ID, Name: f.Name, Sort: f.Sort})
	}
	for _, t := range snap.Tasks {
		doc.Tasks = append(doc.Tasks, Task{ID: t.ID, Text: t.Text, FolderID: t.FolderID, EventID: t.EventID, CreatedAt: t.CreatedAt})
	}
	for _, r := range snap.Repeatings {
		doc.Repeatings = append(doc.Repeatings, Repeating{
			ID: r.ID, Text: r.Text, PeriodType: string(r.Period.Type),
			N: r.Period.N, AnchorDay: r.Period.AnchorDay, Weekdays: r.Period.Weekdays,
			LastDay: r.LastDay, AutoFS: r.AutoFS, Active: r.Active,
		})
	}
	for _, e := range snap.Events {
		doc.Events = append(doc.Events, Event{ID: e.ID, Text: e.Text, Day: e.Day, Daytime: e.Daytime})
	}
	for _, c := range snap.Checklists {
		doc.Checklists = append(doc.Checklists, Checklist{ID: c.ID, Name: c.Name, Color: c.Color})
	}
	for _, item := range snap.ChecklistItems {
		doc.ChecklistItems = append(doc.ChecklistItems, ChecklistItem{ID: item.ID, ChecklistID: item.ChecklistID, Text: item.Text, Checked: item.Checked})
	}
	for _, s := range snap.Shortcuts {
		doc.Shortcuts = append(doc.Shortcuts, Shortcut{ID: s.ID, Name: s.Name, URI: s.URI, Color: s.Color})
	}
	return doc
}

// Snapshot maps the document back onto storage types.
func (d Document) Snapshot() storage.Snapshot {
	var snap storage.Snapshot
	for _, a := range d.Activities {
		snap.Activities = append(snap.Activities, model.Activity{
			ID: a.ID, Name: a.Name, Emoji: a.Emoji, Color: a.Color,
			DefaultTimer: a.DefaultTimer, Sort: a.Sort, AutoFS: a.AutoFS,
			Type: model.ActivityType(a.Type),
			TimerHints: model.TimerHints{
				Type:    model.TimerHintsType(a.HintsType),
				Custom:  a.HintsCustom,
				History: a.HintsHistory,
			},
		})
	}
	for _, in := range d.Intervals {
		snap.Intervals = append(snap.Intervals, model.Interval{ID: in.ID, ActivityID: in.ActivityID, Deadline: in.Deadline, Note: in.Note})
	}
	for _, f := range d.Folders {
		snap.Folders = append(snap.Folders, model.TaskFolder{ID: f.ID, Name: f.Name, Sort: f.Sort})
	}
	for _, t := range d.Tasks {
		snap.Tasks = append(snap.Tasks, model.Task{ID: t.ID, Text: t.Text, FolderID: t.FolderID, EventID: t.EventID, CreatedAt: t.CreatedAt})
	}
	for _, r := range d.Repeatings {
		snap.Repeatings = append(snap.Repeatings, model.Repeating{
			ID: r.ID, Text: r.Text,
			Period: model.Period{
				Type: model.PeriodType(r.PeriodType), N: r.N,
				AnchorDay: r.AnchorDay, Weekdays: r.Weekdays,
			},
			LastDay: r.LastDay, AutoFS: r.AutoFS, Active: r.Active,
		})
	}
	for _, e := range d.Events {
		snap.Events = append(snap.Events, model.Event{ID: e.ID, Text: e.Text, Day: e.Day, Daytime: e.Daytime})
	}
	for _, c := range d.Checklists {
		snap.Checklists = append(snap.Checklists, model.Checklist{ID: c.ID, Name: c.Name, Color: c.Color})
	}
	for _, item := range d.ChecklistItems {
		snap.ChecklistItems = append(snap.ChecklistItems, model.ChecklistItem{ID: item.ID, ChecklistID: item.ChecklistID, Text: item.Text, Checked: item.Checked})
	}
	for _, s := range d.Shortcuts {
		snap.Shortcuts = append(snap.Shortcuts, model.Shortcut{ID: s.ID, Name: s.Name, URI: s.URI, Color: s.Color})
	}
	return snap
}
