// Package app assembles the daemon: the interval engine, the day
// sync and ping loops, notification scheduling and device sync, all
// sharing one writer.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/tempod/internal/backup"
	"github.com/sandeepkv93/tempod/internal/config"
	"github.com/sandeepkv93/tempod/internal/interval"
	"github.com/sandeepkv93/tempod/internal/materialize"
	"github.com/sandeepkv93/tempod/internal/model"
	"github.com/sandeepkv93/tempod/internal/scheduler"
	"github.com/sandeepkv93/tempod/internal/storage"
	"github.com/sandeepkv93/tempod/internal/syncer"
	"github.com/sandeepkv93/tempod/internal/trigger"
)

const redialDelay = 15 * time.Second

// App owns every long-running component of the daemon.
type App struct {
	cfg    config.Config
	repo   storage.Repository
	logger *slog.Logger

	writer   *Writer
	engine   *interval.Engine
	sched    *scheduler.Engine
	follower *Follower
	daySync  *DaySync
	pinger   *Pinger
	guard    *syncer.Guard
	service  *syncer.Service
	dialer   syncer.Dialer
}

// New wires the daemon from an opened, migrated, seeded store.
func New(cfg config.Config, repo storage.Repository, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	last, err := repo.LastInterval(context.Background())
	var seed *model.Interval
	switch {
	case err == nil:
		seed = &last
	case errors.Is(err, storage.ErrNotFound):
		// Fresh store before seeding; the engine starts empty.
	default:
		return nil, err
	}

	engine, err := interval.NewEngine(repo, seed, cfg.OtherActivityID)
	if err != nil {
		return nil, err
	}

	writer := &Writer{}
	sched := scheduler.NewEngine(64)
	registry := trigger.NewRegistry(repo, nil, nil, logger)
	follower := NewFollower(repo, sched, registry, writer,
		time.Duration(cfg.OverdueDelaySeconds)*time.Second, logger)

	store := materializeStore{repo}
	repeatings := materialize.NewRepeatingMaterializer(store, cfg.WeekStart, cfg.DayStartOffsetSeconds, logger)
	events := materialize.NewEventMaterializer(store)
	daySync := NewDaySync(store, repeatings, events, writer, cfg.DayStartOffsetSeconds, logger)

	guard := syncer.NewGuard(repo, logger)
	service := syncer.NewService(engine, repo, guard, logger)
	// A snapshot swaps interval history under the engine; its cached
	// current pointer must follow the store's new max id.
	service.SetSnapshotApplied(func(ctx context.Context) error {
		last, err := repo.LastInterval(ctx)
		switch {
		case err == nil:
			engine.Reseed(&last)
		case errors.Is(err, storage.ErrNotFound):
			engine.Reseed(nil)
		default:
			return err
		}
		return nil
	})

	return &App{
		cfg:      cfg,
		repo:     repo,
		logger:   logger,
		writer:   writer,
		engine:   engine,
		sched:    sched,
		follower: follower,
		daySync:  daySync,
		pinger:   NewPinger(cfg.PingURL, logger),
		guard:    guard,
		service:  service,
		dialer:   syncer.RealDialer{},
	}, nil
}

// Engine exposes the interval engine for local operations.
func (a *App) Engine() *interval.Engine {
	return a.engine
}

// Writer exposes the single-writer lock local operations must hold.
func (a *App) Writer() *Writer {
	return a.writer
}

// SetDialer replaces the sync transport, for tests.
func (a *App) SetDialer(d syncer.Dialer) {
	a.dialer = d
}

// Run starts every loop and blocks until ctx ends.
func (a *App) Run(ctx context.Context) error {
	a.sched.Start()
	defer a.sched.Stop()

	var wg sync.WaitGroup
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	run(func(ctx context.Context) { a.follower.Run(ctx, a.engine.Events()) })
	run(a.daySync.Run)
	run(a.pinger.Run)
	run(a.consumeNotifications)
	if a.cfg.SyncURL != "" {
		run(a.runSync)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

// consumeNotifications drains due notifications. Delivery to the
// platform notifier is a log line here; a real notifier hangs off
// this loop.
func (a *App) consumeNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-a.sched.C():
			if !ok {
				return
			}
			a.logger.Info("notification due",
				slog.String("kind", string(n.Kind)),
				slog.String("title", n.Title),
				slog.String("text", n.Text))
		}
	}
}

// runSync keeps one connection to the paired device, redialing with a
// fixed delay when it drops.
func (a *App) runSync(ctx context.Context) {
	for {
		if err := a.syncSession(ctx); err != nil {
			a.logger.Warn("sync session ended", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialDelay):
		}
	}
}

func (a *App) syncSession(ctx context.Context) error {
	sock, err := a.dialer.Dial(ctx, a.cfg.SyncURL)
	if err != nil {
		return err
	}
	client := syncer.NewClient(sock, a.writer.WrapHandler(a.service.HandleMessage), a.logger)
	defer client.Close()

	a.service.SetPush(func(ctx context.Context) error {
		raw, err := backup.Create(ctx, a.repo, a.cfg.SnapshotIntervalsLimit, a.guard.NextToken())
		if err != nil {
			return err
		}
		return client.Send(ctx, raw)
	})
	defer a.service.SetPush(nil)

	return client.Run(ctx)
}

// materializeStore adapts the repository's not-found sentinel to the
// ok-bool shape materialization expects.
type materializeStore struct {
	storage.Repository
}

func (s materializeStore) TaskByEventID(ctx context.Context, eventID int64) (model.Task, bool, error) {
	task, err := s.Repository.TaskByEventID(ctx, eventID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Task{}, false, nil
	}
	if err != nil {
		return model.Task{}, false, err
	}
	return task, true, nil
}
