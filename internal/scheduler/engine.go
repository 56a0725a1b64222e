// Package scheduler queues break and overdue notifications for the
// current interval and emits them when due. Delivery to the platform
// notification surface happens outside this package.
package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")

type NotificationKind string

const (
	KindBreak   NotificationKind = "break"
	KindOverdue NotificationKind = "overdue"
)

// Notification is one pending local notification. Break notices fire
// at interval start + deadline; overdue notices a fixed delay later.
type Notification struct {
	Kind      NotificationKind
	Title     string
	Text      string
	TriggerAt time.Time
}

type queueItem struct {
	notification Notification
}

type notificationQueue []queueItem

func (q notificationQueue) Len() int { return len(q) }

func (q notificationQueue) Less(i, j int) bool {
	return q[i].notification.TriggerAt.Before(q[j].notification.TriggerAt)
}

func (q notificationQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *notificationQueue) Push(x any) {
	*q = append(*q, x.(queueItem))
}

func (q *notificationQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[0 : n-1]
	return item
}

type Engine struct {
	mu      sync.Mutex
	queue   notificationQueue
	out     chan Notification
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(notificationQueue, 0),
		out:    make(chan Notification, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Notification {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Schedule(n Notification) error {
	if n.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return errors.New("scheduler: engine stopped")
	}

	heap.Push(&e.queue, queueItem{notification: n})
	e.signalWakeup()
	return nil
}

// CancelAll discards every pending notification. Each new current
// interval cancels and reschedules from scratch.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = e.queue[:0]
	e.signalWakeup()
}

// Pending reports how many notifications are queued but not yet due.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.TriggerAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now().UTC())
			for _, n := range due {
				select {
				case e.out <- n:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Notification, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Notification{}, false
	}
	return e.queue[0].notification, true
}

func (e *Engine) popDue(now time.Time) []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Notification, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].notification
		if next.TriggerAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(queueItem)
		out = append(out, item.notification)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
