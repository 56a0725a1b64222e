package model

import (
	"errors"
	"strings"
)

type Checklist struct {
	ID    int64
	Name  string
	Color string
}

func (c Checklist) Validate() error {
	if c.ID <= 0 {
		return errors.New("model: checklist id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("model: checklist name is required")
	}
	return nil
}

type ChecklistItem struct {
	ID          int64
	ChecklistID int64
	Text        string
	Checked     bool
}

func (i ChecklistItem) Validate() error {
	if i.ID <= 0 {
		return errors.New("model: checklist item id is required")
	}
	if i.ChecklistID <= 0 {
		return errors.New("model: checklist item checklist_id is required")
	}
	if strings.TrimSpace(i.Text) == "" {
		return errors.New("model: checklist item text is required")
	}
	return nil
}

// Shortcut is a user-defined action (a URI handed to the platform
// shortcut runner) referenced from text by a trigger tag.
type Shortcut struct {
	ID    int64
	Name  string
	URI   string
	Color string
}

func (s Shortcut) Validate() error {
	if s.ID <= 0 {
		return errors.New("model: shortcut id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("model: shortcut name is required")
	}
	if strings.TrimSpace(s.URI) == "" {
		return errors.New("model: shortcut uri is required")
	}
	return nil
}
