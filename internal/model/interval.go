package model

import "errors"

var ErrInvalidDeadline = errors.New("model: interval deadline must be positive")

// Interval is one span of tracked time. Its id is the Unix second it
// started at and doubles as a monotonic identifier: the interval with
// the maximum id is the current one. There is no explicit stop —
// starting a new interval supersedes the previous one.
type Interval struct {
	ID         int64
	ActivityID int64
	// Deadline is the planned duration in seconds from start.
	// Zero marks a cancellation marker interval and is only ever
	// produced by cancellation, never accepted from user input.
	Deadline int
	Note     string
}

func (i Interval) Validate() error {
	if i.ID <= 0 {
		return errors.New("model: interval id is required")
	}
	if i.ActivityID <= 0 {
		return errors.New("model: interval activity_id is required")
	}
	if i.Deadline < 0 {
		return ErrInvalidDeadline
	}
	return nil
}

// IsCancellation reports whether the interval is a cancellation marker.
func (i Interval) IsCancellation() bool {
	return i.Deadline == 0
}
