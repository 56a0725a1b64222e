package model

import (
	"errors"
	"strings"
)

// Built-in folder ids. User folders get ids above FolderIDInbox.
const (
	FolderIDToday    int64 = 1
	FolderIDTomorrow int64 = 2
	FolderIDWeek     int64 = 3
	FolderIDInbox    int64 = 4
)

type TaskFolder struct {
	ID   int64
	Name string
	Sort int
}

func (f TaskFolder) Validate() error {
	if f.ID <= 0 {
		return errors.New("model: task folder id is required")
	}
	if strings.TrimSpace(f.Name) == "" {
		return errors.New("model: task folder name is required")
	}
	return nil
}

// Task is a single todo row. Text may embed trigger and timer tokens.
// EventID links a task materialized from a calendar event back to its
// source so re-materialization can detect it.
type Task struct {
	ID        int64
	Text      string
	FolderID  int64
	EventID   *int64
	CreatedAt int64
}

func (t Task) Validate() error {
	if t.ID <= 0 {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Text) == "" {
		return errors.New("model: task text is required")
	}
	if t.FolderID <= 0 {
		return errors.New("model: task folder_id is required")
	}
	if t.CreatedAt <= 0 {
		return errors.New("model: task created_at is required")
	}
	return nil
}
