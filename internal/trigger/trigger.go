// Package trigger resolves parsed trigger references against the live
// checklist/shortcut collections and activates them at interval start.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sandeepkv93/tempod/internal/model"
	"github.com/sandeepkv93/tempod/internal/textfeatures"
)

var (
	ErrShortcutFailed = errors.New("trigger: shortcut execution failed")
	ErrUnknownKind    = errors.New("trigger: unknown trigger kind")
)

// Trigger is a resolved reference with display data cached at
// resolution time.
type Trigger struct {
	Kind  textfeatures.TriggerKind
	ID    int64
	Title string
	Color string
}

func (t Trigger) IsChecklist() bool {
	return t.Kind == textfeatures.KindChecklist
}

// Resolver is the capability the storage layer (or a test fixture)
// provides for looking up live collections. A lookup error of any
// kind means "unresolvable"; the registry drops the reference.
type Resolver interface {
	GetChecklist(ctx context.Context, id int64) (model.Checklist, error)
	GetShortcut(ctx context.Context, id int64) (model.Shortcut, error)
}

// ChecklistPresenter is the UI boundary that shows a checklist when
// its trigger fires. No domain state changes here.
type ChecklistPresenter interface {
	ShowChecklist(checklist model.Checklist)
}

// ShortcutRunner executes a shortcut on the platform.
type ShortcutRunner interface {
	Run(ctx context.Context, shortcut model.Shortcut) error
}

type Registry struct {
	resolver  Resolver
	presenter ChecklistPresenter
	runner    ShortcutRunner
	logger    *slog.Logger
}

func NewRegistry(resolver Resolver, presenter ChecklistPresenter, runner ShortcutRunner, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{resolver: resolver, presenter: presenter, runner: runner, logger: logger}
}

// ResolveAll maps parsed references to resolved triggers, preserving
// input order and silently dropping anything that no longer exists.
func (r *Registry) ResolveAll(ctx context.Context, refs []textfeatures.TriggerRef) []Trigger {
	out := make([]Trigger, 0, len(refs))
	for _, ref := range refs {
		switch ref.Kind {
		case textfeatures.KindChecklist:
			checklist, err := r.resolver.GetChecklist(ctx, ref.ID)
			if err != nil {
				r.logger.Debug("dropping unresolvable checklist trigger", "id", ref.ID)
				continue
			}
			out = append(out, Trigger{Kind: ref.Kind, ID: ref.ID, Title: checklist.Name, Color: checklist.Color})
		case textfeatures.KindShortcut:
			shortcut, err := r.resolver.GetShortcut(ctx, ref.ID)
			if err != nil {
				r.logger.Debug("dropping unresolvable shortcut trigger", "id", ref.ID)
				continue
			}
			out = append(out, Trigger{Kind: ref.Kind, ID: ref.ID, Title: shortcut.Name, Color: shortcut.Color})
		}
	}
	return out
}

// Activate performs the trigger's side effect. Checklists are handed
// to the UI boundary; shortcuts run through the platform runner with
// failures surfaced as a typed error.
func (r *Registry) Activate(ctx context.Context, t Trigger) error {
	switch t.Kind {
	case textfeatures.KindChecklist:
		checklist, err := r.resolver.GetChecklist(ctx, t.ID)
		if err != nil {
			// Deleted between resolution and activation. Not an error.
			r.logger.Debug("checklist gone before activation", "id", t.ID)
			return nil
		}
		if r.presenter != nil {
			r.presenter.ShowChecklist(checklist)
		}
		return nil
	case textfeatures.KindShortcut:
		shortcut, err := r.resolver.GetShortcut(ctx, t.ID)
		if err != nil {
			r.logger.Debug("shortcut gone before activation", "id", t.ID)
			return nil
		}
		if r.runner == nil {
			return nil
		}
		if err := r.runner.Run(ctx, shortcut); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrShortcutFailed, shortcut.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, t.Kind)
	}
}
