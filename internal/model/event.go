package model

import (
	"errors"
	"strings"
)

// Event is a calendar entry pinned to a specific local day. When that
// day becomes today, exactly one linked Task is created for it.
type Event struct {
	ID   int64
	Text string
	// Day is the target local day; Daytime is an offset in seconds
	// into that day (events ignore the day start offset).
	Day     int
	Daytime int
}

func (e Event) Validate() error {
	if e.ID <= 0 {
		return errors.New("model: event id is required")
	}
	if strings.TrimSpace(e.Text) == "" {
		return errors.New("model: event text is required")
	}
	if e.Day <= 0 {
		return errors.New("model: event day is required")
	}
	if e.Daytime < 0 {
		return errors.New("model: event daytime must not be negative")
	}
	return nil
}
