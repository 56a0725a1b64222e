package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandeepkv93/tempod/internal/interval"
	"github.com/sandeepkv93/tempod/internal/materialize"
	"github.com/sandeepkv93/tempod/internal/model"
	"github.com/sandeepkv93/tempod/internal/scheduler"
	"github.com/sandeepkv93/tempod/internal/storage"
	"github.com/sandeepkv93/tempod/internal/timeutil"
	"github.com/sandeepkv93/tempod/internal/trigger"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore backs the app loops in tests with plain maps.
type memStore struct {
	activities map[int64]model.Activity
	intervals  []model.Interval
	folders    []model.TaskFolder
	tasks      map[int64]model.Task
	repeatings map[int64]model.Repeating
	events     map[int64]model.Event
	nextTaskID int64
}

func newMemStore() *memStore {
	return &memStore{
		activities: map[int64]model.Activity{},
		tasks:      map[int64]model.Task{},
		repeatings: map[int64]model.Repeating{},
		events:     map[int64]model.Event{},
		nextTaskID: 1,
	}
}

func (s *memStore) GetActivity(_ context.Context, id int64) (model.Activity, error) {
	a, ok := s.activities[id]
	if !ok {
		return model.Activity{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *memStore) UpdateActivity(_ context.Context, in model.Activity) error {
	s.activities[in.ID] = in
	return nil
}

func (s *memStore) CreateActivity(_ context.Context, in model.Activity) error {
	s.activities[in.ID] = in
	return nil
}

func (s *memStore) ListActivitiesAsc(_ context.Context) ([]model.Activity, error) {
	var out []model.Activity
	for _, a := range s.activities {
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) GetRepeating(_ context.Context, id int64) (model.Repeating, error) {
	r, ok := s.repeatings[id]
	if !ok {
		return model.Repeating{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *memStore) ListActiveRepeatings(_ context.Context) ([]model.Repeating, error) {
	var out []model.Repeating
	for _, r := range s.repeatings {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) SetRepeatingLastDay(_ context.Context, id int64, day int) error {
	r := s.repeatings[id]
	r.LastDay = day
	s.repeatings[id] = r
	return nil
}

func (s *memStore) IntervalsInRange(_ context.Context, from, to int64, limit int) ([]model.Interval, error) {
	var out []model.Interval
	for i := len(s.intervals) - 1; i >= 0; i-- {
		in := s.intervals[i]
		if in.ID < from || in.ID > to {
			continue
		}
		out = append(out, in)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) CreateInterval(_ context.Context, in model.Interval) error {
	s.intervals = append(s.intervals, in)
	return nil
}

func (s *memStore) LastInterval(_ context.Context) (model.Interval, error) {
	if len(s.intervals) == 0 {
		return model.Interval{}, storage.ErrNotFound
	}
	return s.intervals[len(s.intervals)-1], nil
}

func (s *memStore) CreateFolder(_ context.Context, in model.TaskFolder) error {
	s.folders = append(s.folders, in)
	return nil
}

func (s *memStore) ListFoldersAsc(_ context.Context) ([]model.TaskFolder, error) {
	return s.folders, nil
}

func (s *memStore) CreateTask(_ context.Context, in model.Task) (model.Task, error) {
	if in.ID == 0 {
		in.ID = s.nextTaskID
		s.nextTaskID++
	}
	s.tasks[in.ID] = in
	return in, nil
}

func (s *memStore) ListTasksInFolder(_ context.Context, folderID int64) ([]model.Task, error) {
	var out []model.Task
	for _, task := range s.tasks {
		if task.FolderID == folderID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (s *memStore) ListEvents(_ context.Context) ([]model.Event, error) {
	var out []model.Event
	for _, e := range s.events {
		out = append(out, e)
	}
	return out, nil
}

func (s *memStore) TaskByEventID(_ context.Context, eventID int64) (model.Task, bool, error) {
	for _, task := range s.tasks {
		if task.EventID != nil && *task.EventID == eventID {
			return task, true, nil
		}
	}
	return model.Task{}, false, nil
}

func (s *memStore) MoveTask(_ context.Context, id, folderID int64) error {
	task := s.tasks[id]
	task.FolderID = folderID
	s.tasks[id] = task
	return nil
}

func TestDaySyncOnceMaterializesEverything(t *testing.T) {
	store := newMemStore()
	store.repeatings[1] = model.Repeating{
		ID: 1, Text: "Review inbox",
		Period: model.Period{Type: model.PeriodEveryNDays, N: 1, AnchorDay: 100},
		Active: true,
	}
	store.events[7] = model.Event{ID: 7, Text: "dentist", Day: 150, Daytime: 3600}

	day := 150
	clock := func() timeutil.UnixTime {
		return timeutil.UnixTime{Time: int64(day) * timeutil.DaySeconds}
	}
	logger := quietLogger()
	repeatings := materialize.NewRepeatingMaterializer(store, 0, 0, logger).WithClock(clock)
	events := materialize.NewEventMaterializer(store).WithClock(func() int64 { return clock().Time })

	ds := NewDaySync(store, repeatings, events, &Writer{}, 0, logger)
	ds.now = clock

	if err := ds.SyncOnce(context.Background()); err != nil {
		t.Fatalf("sync once: %v", err)
	}

	today, err := store.ListTasksInFolder(context.Background(), model.FolderIDToday)
	if err != nil {
		t.Fatalf("list today: %v", err)
	}
	if len(today) != 2 {
		t.Fatalf("today has %d tasks, want 2", len(today))
	}
	if store.repeatings[1].LastDay != 150 {
		t.Fatalf("repeating last day = %d", store.repeatings[1].LastDay)
	}

	// The second pass is a no-op.
	if err := ds.SyncOnce(context.Background()); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	today, _ = store.ListTasksInFolder(context.Background(), model.FolderIDToday)
	if len(today) != 2 {
		t.Fatalf("repeat pass duplicated tasks: %d", len(today))
	}
}

func TestDaySyncEventsIgnoreDayStartOffset(t *testing.T) {
	store := newMemStore()
	store.events[7] = model.Event{ID: 7, Text: "dentist", Day: 150, Daytime: 3600}
	store.repeatings[1] = model.Repeating{
		ID: 1, Text: "Review inbox",
		Period: model.Period{Type: model.PeriodEveryNDays, N: 2, AnchorDay: 150},
		Active: true,
	}

	// One hour past midnight with a +2h day start: the shifted day is
	// still yesterday, the calendar day is already 150.
	clock := func() timeutil.UnixTime {
		return timeutil.UnixTime{Time: 150*timeutil.DaySeconds + 3600}
	}
	logger := quietLogger()
	repeatings := materialize.NewRepeatingMaterializer(store, 0, 7200, logger).WithClock(clock)
	events := materialize.NewEventMaterializer(store).WithClock(func() int64 { return clock().Time })

	ds := NewDaySync(store, repeatings, events, &Writer{}, 7200, logger)
	ds.now = clock
	if err := ds.SyncOnce(context.Background()); err != nil {
		t.Fatalf("sync once: %v", err)
	}

	today, err := store.ListTasksInFolder(context.Background(), model.FolderIDToday)
	if err != nil {
		t.Fatalf("list today: %v", err)
	}
	if len(today) != 1 {
		t.Fatalf("today has %d tasks, want only the event's", len(today))
	}
	if today[0].EventID == nil || *today[0].EventID != 7 {
		t.Fatalf("task = %+v", today[0])
	}
	if store.repeatings[1].LastDay != 0 {
		t.Fatalf("repeating materialized early, last day = %d", store.repeatings[1].LastDay)
	}
}

func TestPingerOncePerDay(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	day := 200
	p := NewPinger(srv.URL, quietLogger())
	p.now = func() timeutil.UnixTime {
		return timeutil.UnixTime{Time: int64(day) * timeutil.DaySeconds}
	}

	for i := 0; i < 3; i++ {
		if err := p.PingOnce(context.Background()); err != nil {
			t.Fatalf("ping %d: %v", i, err)
		}
	}
	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}

	day = 201
	if err := p.PingOnce(context.Background()); err != nil {
		t.Fatalf("next-day ping: %v", err)
	}
	if hits != 2 {
		t.Fatalf("hits = %d, want 2", hits)
	}
}

func TestPingerRetriesFailedDay(t *testing.T) {
	fail := true
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPinger(srv.URL, quietLogger())
	p.now = func() timeutil.UnixTime {
		return timeutil.UnixTime{Time: 200 * timeutil.DaySeconds}
	}

	if err := p.PingOnce(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	fail = false
	if err := p.PingOnce(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if hits != 2 {
		t.Fatalf("hits = %d", hits)
	}
}

type recordingRunner struct {
	ran []model.Shortcut
}

func (r *recordingRunner) Run(_ context.Context, s model.Shortcut) error {
	r.ran = append(r.ran, s)
	return nil
}

type memResolver struct {
	checklists map[int64]model.Checklist
	shortcuts  map[int64]model.Shortcut
}

func (r memResolver) GetChecklist(_ context.Context, id int64) (model.Checklist, error) {
	c, ok := r.checklists[id]
	if !ok {
		return model.Checklist{}, storage.ErrNotFound
	}
	return c, nil
}

func (r memResolver) GetShortcut(_ context.Context, id int64) (model.Shortcut, error) {
	s, ok := r.shortcuts[id]
	if !ok {
		return model.Shortcut{}, storage.ErrNotFound
	}
	return s, nil
}

func newTestFollower(t *testing.T, store *memStore, runner *recordingRunner, now int64) (*Follower, *scheduler.Engine) {
	t.Helper()
	sched := scheduler.NewEngine(16)
	resolver := memResolver{
		checklists: map[int64]model.Checklist{12: {ID: 12, Name: "Morning"}},
		shortcuts:  map[int64]model.Shortcut{5: {ID: 5, Name: "Playlist", URI: "https://example.com/p"}},
	}
	registry := trigger.NewRegistry(resolver, nil, runner, quietLogger())
	f := NewFollower(store, sched, registry, &Writer{}, time.Minute, quietLogger()).
		WithClock(func() int64 { return now })
	return f, sched
}

func TestFollowerRefreshesHintsAndSchedules(t *testing.T) {
	store := newMemStore()
	store.activities[4] = model.Activity{
		ID: 4, Name: "Work", DefaultTimer: 2400, Type: model.ActivityTypeNormal,
		TimerHints: model.TimerHints{Type: model.TimerHintsHistory},
	}
	store.intervals = []model.Interval{
		{ID: 1000, ActivityID: 4, Deadline: 1800},
		{ID: 2000, ActivityID: 4, Deadline: 2700},
		{ID: 3000, ActivityID: 4, Deadline: 1800},
	}

	f, sched := newTestFollower(t, store, &recordingRunner{}, 3000)
	ev := interval.Event{Interval: model.Interval{ID: 3000, ActivityID: 4, Deadline: 1800}}
	if err := f.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}

	hints := store.activities[4].TimerHints.History
	if len(hints) != 2 || hints[0] != 1800 || hints[1] != 2700 {
		t.Fatalf("hints = %v", hints)
	}
	// Break plus overdue queued.
	if sched.Pending() != 2 {
		t.Fatalf("pending notifications = %d, want 2", sched.Pending())
	}
}

func TestFollowerFiresShortcutTrigger(t *testing.T) {
	store := newMemStore()
	store.activities[4] = model.Activity{
		ID: 4, Name: "Work", DefaultTimer: 2400, Type: model.ActivityTypeNormal,
		TimerHints: model.TimerHints{Type: model.TimerHintsCustom},
	}

	runner := &recordingRunner{}
	f, _ := newTestFollower(t, store, runner, 3000)
	ev := interval.Event{Interval: model.Interval{
		ID: 3000, ActivityID: 4, Deadline: 1800,
		Note: "Focus #s0000000005 #c0000000012",
	}}
	if err := f.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// Only the first trigger fires, which is the shortcut here.
	if len(runner.ran) != 1 || runner.ran[0].ID != 5 {
		t.Fatalf("ran = %+v", runner.ran)
	}
}

func TestFollowerFallsBackToActivityNameTriggers(t *testing.T) {
	store := newMemStore()
	store.activities[4] = model.Activity{
		ID: 4, Name: "Music #s0000000005", DefaultTimer: 2400, Type: model.ActivityTypeNormal,
		TimerHints: model.TimerHints{Type: model.TimerHintsCustom},
	}

	runner := &recordingRunner{}
	f, _ := newTestFollower(t, store, runner, 3000)
	ev := interval.Event{Interval: model.Interval{ID: 3000, ActivityID: 4, Deadline: 1800}}
	if err := f.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(runner.ran) != 1 || runner.ran[0].ID != 5 {
		t.Fatalf("ran = %+v", runner.ran)
	}
}

func TestFollowerSkipsStaleIntervals(t *testing.T) {
	store := newMemStore()
	store.activities[4] = model.Activity{
		ID: 4, Name: "Work", DefaultTimer: 2400, Type: model.ActivityTypeNormal,
		TimerHints: model.TimerHints{Type: model.TimerHintsCustom},
	}

	runner := &recordingRunner{}
	// Clock well past the interval start: snapshot replay, not a
	// fresh local start.
	f, _ := newTestFollower(t, store, runner, 9000)
	ev := interval.Event{Interval: model.Interval{
		ID: 3000, ActivityID: 4, Deadline: 1800, Note: "Focus #s0000000005",
	}}
	if err := f.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(runner.ran) != 0 {
		t.Fatalf("stale interval fired triggers: %+v", runner.ran)
	}
}

func TestFollowerCancellationOnlyClears(t *testing.T) {
	store := newMemStore()
	runner := &recordingRunner{}
	f, sched := newTestFollower(t, store, runner, 3000)
	if err := sched.Schedule(scheduler.Notification{
		Kind: scheduler.KindBreak, Title: "Work", TriggerAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	ev := interval.Event{Interval: model.Interval{ID: 3000, ActivityID: 1, Deadline: 0}}
	if err := f.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if sched.Pending() != 0 {
		t.Fatalf("pending = %d after cancellation", sched.Pending())
	}
	if len(runner.ran) != 0 {
		t.Fatal("cancellation marker fired triggers")
	}
}

func TestFollowerAutoFullScreenFromRepeating(t *testing.T) {
	store := newMemStore()
	store.activities[4] = model.Activity{
		ID: 4, Name: "Work", DefaultTimer: 2400, Type: model.ActivityTypeNormal,
		TimerHints: model.TimerHints{Type: model.TimerHintsCustom},
	}
	store.repeatings[3] = model.Repeating{ID: 3, Text: "Morning routine", AutoFS: true, Active: true}

	runner := &recordingRunner{}
	f, _ := newTestFollower(t, store, runner, 3000)
	opened := 0
	f.SetFullScreenOpener(func(model.Interval) { opened++ })

	// A checklist trigger alongside the repeating origin token: the
	// surface opens and the checklist does not fire separately.
	ev := interval.Event{Interval: model.Interval{
		ID: 3000, ActivityID: 4, Deadline: 1800,
		Note: "Morning routine #c0000000012 #r3",
	}}
	if err := f.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if opened != 1 {
		t.Fatalf("opened = %d", opened)
	}
	if len(runner.ran) != 0 {
		t.Fatalf("ran = %+v", runner.ran)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	store := newMemStore()
	if err := Seed(context.Background(), store, 1); err != nil {
		t.Fatalf("seed: %v", err)
	}
	activities, _ := store.ListActivitiesAsc(context.Background())
	folders, _ := store.ListFoldersAsc(context.Background())
	if len(activities) == 0 || len(folders) != 4 {
		t.Fatalf("activities = %d, folders = %d", len(activities), len(folders))
	}
	other, err := store.GetActivity(context.Background(), 1)
	if err != nil || other.Type != model.ActivityTypeOther {
		t.Fatalf("reserved activity = %+v, err = %v", other, err)
	}
	if _, err := store.LastInterval(context.Background()); err != nil {
		t.Fatalf("no initial interval: %v", err)
	}

	before := len(activities)
	if err := Seed(context.Background(), store, 1); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	activities, _ = store.ListActivitiesAsc(context.Background())
	if len(activities) != before {
		t.Fatal("seed ran twice")
	}
}

func TestWriterSerializes(t *testing.T) {
	w := &Writer{}
	counter := 0
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = w.Do(func() error {
				counter++
				return nil
			})
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if counter != 8 {
		t.Fatalf("counter = %d", counter)
	}
}
