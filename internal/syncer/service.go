package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sandeepkv93/tempod/internal/backup"
	"github.com/sandeepkv93/tempod/internal/commands"
	"github.com/sandeepkv93/tempod/internal/interval"
	"github.com/sandeepkv93/tempod/internal/model"
	"github.com/sandeepkv93/tempod/internal/storage"
)

var ErrUnrecognizedMessage = errors.New("syncer: message is neither a command nor a snapshot")

// Store is the slice of persistence the service needs to run
// commands sent from a paired device.
type Store interface {
	GetActivity(ctx context.Context, id int64) (model.Activity, error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Service routes one inbound message to its effect: snapshots go
// through the guard, commands through the command dispatcher. The
// caller serializes invocations; the service itself holds no writer
// lock.
type Service struct {
	engine *interval.Engine
	store  Store
	guard  *Guard
	logger *slog.Logger

	// push sends a fresh snapshot to the peer, set by the transport
	// owner. A "sync" command with no push configured still acks.
	push func(ctx context.Context) error

	// snapshotApplied runs after every applied snapshot, while the
	// caller still holds the writer. The interval engine reseeds its
	// cached current pointer here.
	snapshotApplied func(ctx context.Context) error

	unknownCommands atomic.Uint64
}

func NewService(engine *interval.Engine, store Store, guard *Guard, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, store: store, guard: guard, logger: logger}
}

// SetPush installs the outbound snapshot sender. Must be called
// before the read loop starts.
func (s *Service) SetPush(push func(ctx context.Context) error) {
	s.push = push
}

// SetSnapshotApplied installs the post-apply hook. Must be called
// before the read loop starts.
func (s *Service) SetSnapshotApplied(fn func(ctx context.Context) error) {
	s.snapshotApplied = fn
}

// UnknownCommands reports how many unrecognized command names have
// been received and ignored.
func (s *Service) UnknownCommands() uint64 {
	return s.unknownCommands.Load()
}

// HandleMessage applies one raw message and returns the ack payload.
// Recognized commands ack with "{}" even when their handler's effect
// is trivial; failures return no ack.
func (s *Service) HandleMessage(ctx context.Context, raw []byte) (string, error) {
	var probe struct {
		Command string `json:"command"`
		Token   string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("syncer: decode message: %w", err)
	}

	switch {
	case probe.Command != "":
		return s.handleCommand(ctx, raw)
	case probe.Token != "":
		doc, err := backup.Decode(raw)
		if err != nil {
			return "", err
		}
		if err := s.guard.ApplySnapshot(ctx, doc); err != nil {
			// Stale rejection is a deliberate no-op, counted by the
			// guard. The peer still gets its ack.
			if errors.Is(err, ErrStaleSnapshot) {
				return "{}", nil
			}
			return "", err
		}
		if s.snapshotApplied != nil {
			if err := s.snapshotApplied(ctx); err != nil {
				return "", err
			}
		}
		return "{}", nil
	default:
		return "", ErrUnrecognizedMessage
	}
}

func (s *Service) handleCommand(ctx context.Context, raw []byte) (string, error) {
	cmd, err := commands.Decode(raw)
	if err != nil {
		return "", err
	}
	res, err := commands.Execute(cmd, commands.Handlers{
		StartInterval: func(a commands.StartIntervalArgs) (commands.Result, error) {
			if ok, err := s.activityExists(ctx, a.ActivityID); err != nil {
				return commands.Result{}, err
			} else if !ok {
				return commands.OK(), nil
			}
			note := ""
			if a.HasNote {
				note = a.Note
			}
			if _, err := s.engine.Start(ctx, a.ActivityID, a.Deadline, note); err != nil {
				return commands.Result{}, err
			}
			return commands.OK(), nil
		},
		StartTask: func(a commands.StartTaskArgs) (commands.Result, error) {
			if ok, err := s.activityExists(ctx, a.ActivityID); err != nil {
				return commands.Result{}, err
			} else if !ok {
				return commands.OK(), nil
			}
			task, err := s.store.GetTask(ctx, a.TaskID)
			if errors.Is(err, storage.ErrNotFound) {
				// Task deleted since the peer saw it. Ack the no-op.
				s.logger.Info("start_task for missing task", slog.Int64("task_id", a.TaskID))
				return commands.OK(), nil
			}
			if err != nil {
				return commands.Result{}, err
			}
			if _, err := s.engine.Start(ctx, a.ActivityID, a.Deadline, task.Text); err != nil {
				return commands.Result{}, err
			}
			if err := s.store.DeleteTask(ctx, task.ID); err != nil {
				return commands.Result{}, err
			}
			return commands.OK(), nil
		},
		Cancel: func() (commands.Result, error) {
			if _, err := s.engine.CancelCurrent(ctx); err != nil {
				return commands.Result{}, err
			}
			return commands.OK(), nil
		},
		Sync: func() (commands.Result, error) {
			if s.push != nil {
				if err := s.push(ctx); err != nil {
					return commands.Result{}, err
				}
			}
			return commands.OK(), nil
		},
		Unknown: func(name string) {
			s.unknownCommands.Add(1)
			s.logger.Warn("ignoring unknown peer command", slog.String("command", name))
		},
	})
	if err != nil {
		return "", err
	}
	return res.Ack, nil
}

// activityExists resolves a peer-referenced activity. A deleted
// activity is acked as a no-op rather than failing the peer.
func (s *Service) activityExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.store.GetActivity(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Info("command for missing activity", slog.Int64("activity_id", id))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
