package model

import (
	"errors"
	"testing"
)

func TestActivityValidateSuccess(t *testing.T) {
	a := Activity{
		ID:           1,
		Name:         "Work",
		Emoji:        "W",
		Color:        "#0000FF",
		DefaultTimer: 40 * 60,
		Sort:         2,
		Type:         ActivityTypeNormal,
		TimerHints:   TimerHints{Type: TimerHintsHistory},
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("expected valid activity, got error: %v", err)
	}
}

func TestActivityValidateRejectsBadType(t *testing.T) {
	a := Activity{
		ID:           1,
		Name:         "Work",
		DefaultTimer: 60,
		Type:         ActivityType("Weird"),
		TimerHints:   TimerHints{Type: TimerHintsHistory},
	}
	if err := a.Validate(); !errors.Is(err, ErrInvalidActivityType) {
		t.Fatalf("expected ErrInvalidActivityType, got %v", err)
	}
}

func TestIntervalValidateRejectsNegativeDeadline(t *testing.T) {
	in := Interval{ID: 1000, ActivityID: 1, Deadline: -1}
	if err := in.Validate(); !errors.Is(err, ErrInvalidDeadline) {
		t.Fatalf("expected ErrInvalidDeadline, got %v", err)
	}
}

func TestIntervalCancellationMarker(t *testing.T) {
	in := Interval{ID: 1000, ActivityID: 9, Deadline: 0}
	if err := in.Validate(); err != nil {
		t.Fatalf("marker interval should validate, got %v", err)
	}
	if !in.IsCancellation() {
		t.Fatal("expected cancellation marker")
	}
	if (Interval{ID: 1, ActivityID: 1, Deadline: 60}).IsCancellation() {
		t.Fatal("positive deadline must not be a cancellation marker")
	}
}

func TestPeriodEveryNDaysMatch(t *testing.T) {
	p := Period{Type: PeriodEveryNDays, N: 3, AnchorDay: 100}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	for day, want := range map[int]bool{100: true, 101: false, 103: true, 99: false, 106: true} {
		if got := p.MatchesDay(day, 0); got != want {
			t.Fatalf("day %d: expected %v, got %v", day, want, got)
		}
	}
}

func TestPeriodDaysOfWeekMatch(t *testing.T) {
	p := Period{Type: PeriodDaysOfWeek, Weekdays: []int{0, 4}}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !p.MatchesDay(200, 4) {
		t.Fatal("expected weekday 4 to match")
	}
	if p.MatchesDay(200, 3) {
		t.Fatal("weekday 3 must not match")
	}
}

func TestPeriodValidateRejectsDuplicates(t *testing.T) {
	p := Period{Type: PeriodDaysOfWeek, Weekdays: []int{1, 1}}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestPeriodValidateRejectsZeroInterval(t *testing.T) {
	p := Period{Type: PeriodEveryNDays, N: 0, AnchorDay: 10}
	if err := p.Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestTaskValidate(t *testing.T) {
	task := Task{ID: 5, Text: "Plan week", FolderID: FolderIDToday, CreatedAt: 1700000000}
	if err := task.Validate(); err != nil {
		t.Fatalf("expected valid task, got %v", err)
	}
	task.Text = "   "
	if err := task.Validate(); err == nil {
		t.Fatal("expected error for blank text")
	}
}

func TestEventValidate(t *testing.T) {
	e := Event{ID: 2, Text: "Dentist", Day: 20000, Daytime: 9 * 3600}
	if err := e.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
	e.Daytime = -1
	if err := e.Validate(); err == nil {
		t.Fatal("expected error for negative daytime")
	}
}
