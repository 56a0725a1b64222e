package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type PeriodType string

const (
	PeriodEveryNDays PeriodType = "every_n_days"
	PeriodDaysOfWeek PeriodType = "days_of_week"
)

var (
	ErrInvalidPeriodType = errors.New("model: invalid period type")
	ErrInvalidInterval   = errors.New("model: invalid period interval")
)

// Period is the recurrence rule of a Repeating. Weekday indexes are
// relative to the configured week start (0 = week start).
type Period struct {
	Type      PeriodType
	N         int
	AnchorDay int
	Weekdays  []int
}

func (p Period) Validate() error {
	switch p.Type {
	case PeriodEveryNDays:
		if p.N <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidInterval, p.N)
		}
		if p.AnchorDay <= 0 {
			return errors.New("model: period anchor day is required")
		}
	case PeriodDaysOfWeek:
		if len(p.Weekdays) == 0 {
			return errors.New("model: period weekdays are required")
		}
		s := make([]int, len(p.Weekdays))
		copy(s, p.Weekdays)
		sort.Ints(s)
		for i, d := range s {
			if d < 0 || d > 6 {
				return fmt.Errorf("model: weekday out of range: %d", d)
			}
			if i > 0 && d == s[i-1] {
				return errors.New("model: duplicate weekday in period")
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPeriodType, p.Type)
	}
	return nil
}

// MatchesDay reports whether the rule fires on the given local day.
// weekdayIndex is the day's index relative to the configured week
// start, as computed by timeutil.WeekdayIndex.
func (p Period) MatchesDay(localDay, weekdayIndex int) bool {
	switch p.Type {
	case PeriodEveryNDays:
		diff := localDay - p.AnchorDay
		return diff >= 0 && diff%p.N == 0
	case PeriodDaysOfWeek:
		for _, d := range p.Weekdays {
			if d == weekdayIndex {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Repeating is a recurring task definition. LastDay is the last local
// day it was materialized into a Today task; materialization advances
// it and never runs twice for the same day.
type Repeating struct {
	ID      int64
	Text    string
	Period  Period
	LastDay int
	AutoFS  bool
	Active  bool
}

func (r Repeating) Validate() error {
	if r.ID <= 0 {
		return errors.New("model: repeating id is required")
	}
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("model: repeating text is required")
	}
	if err := r.Period.Validate(); err != nil {
		return err
	}
	return nil
}
