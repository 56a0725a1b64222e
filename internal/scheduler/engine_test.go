package scheduler

import (
	"testing"
	"time"
)

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	if err := engine.Schedule(Notification{Kind: KindOverdue, Title: "overdue", TriggerAt: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule overdue: %v", err)
	}
	if err := engine.Schedule(Notification{Kind: KindBreak, Title: "break", TriggerAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule break: %v", err)
	}

	first := waitNotification(t, engine.C(), time.Second)
	second := waitNotification(t, engine.C(), time.Second)
	if first.Kind != KindBreak || second.Kind != KindOverdue {
		t.Fatalf("unexpected order: first=%s second=%s", first.Kind, second.Kind)
	}
}

func TestCancelAllDiscardsPending(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	if err := engine.Schedule(Notification{Kind: KindBreak, TriggerAt: time.Now().UTC().Add(30 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	engine.CancelAll()

	select {
	case n := <-engine.C():
		t.Fatalf("expected no notification after cancel, got %#v", n)
	case <-time.After(120 * time.Millisecond):
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		if err := engine.Schedule(Notification{Kind: KindBreak, TriggerAt: now}); err != nil {
			t.Fatalf("schedule notification: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped notifications > 0, got %d", engine.Dropped())
	}
}

func TestScheduleValidatesTriggerTime(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Schedule(Notification{Kind: KindBreak}); err != ErrInvalidTriggerTime {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
}

func waitNotification(t *testing.T, ch <-chan Notification, timeout time.Duration) Notification {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(timeout):
		t.Fatal("timed out waiting for notification")
		return Notification{}
	}
}
