package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidActivityType   = errors.New("model: invalid activity type")
	ErrInvalidTimerHintsType = errors.New("model: invalid timer hints type")
)

type ActivityType string

const (
	ActivityTypeNormal ActivityType = "Normal"
	// ActivityTypeOther marks the reserved fallback activity used for
	// cancellation marker intervals. Exactly one activity carries it.
	ActivityTypeOther ActivityType = "Other"
)

func (a ActivityType) IsValid() bool {
	switch a {
	case ActivityTypeNormal, ActivityTypeOther:
		return true
	default:
		return false
	}
}

type TimerHintsType string

const (
	TimerHintsHistory TimerHintsType = "History"
	TimerHintsCustom  TimerHintsType = "Custom"
)

func (t TimerHintsType) IsValid() bool {
	switch t {
	case TimerHintsHistory, TimerHintsCustom:
		return true
	default:
		return false
	}
}

// TimerHints configures the quick-start durations offered for an
// activity: either derived from recent interval history or a fixed
// user-chosen list.
type TimerHints struct {
	Type    TimerHintsType
	Custom  []int
	History []int
}

type Activity struct {
	ID           int64
	Name         string
	Emoji        string
	Color        string
	DefaultTimer int
	Sort         int
	AutoFS       bool
	Type         ActivityType
	TimerHints   TimerHints
}

func (a Activity) Validate() error {
	if a.ID <= 0 {
		return errors.New("model: activity id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("model: activity name is required")
	}
	if a.DefaultTimer <= 0 {
		return errors.New("model: activity default timer must be positive")
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidActivityType, a.Type)
	}
	if !a.TimerHints.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTimerHintsType, a.TimerHints.Type)
	}
	for _, hint := range a.TimerHints.Custom {
		if hint <= 0 {
			return errors.New("model: custom timer hint must be positive")
		}
	}
	return nil
}
