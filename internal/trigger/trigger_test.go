package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/sandeepkv93/tempod/internal/model"
	"github.com/sandeepkv93/tempod/internal/textfeatures"
)

type fixtureResolver struct {
	checklists map[int64]model.Checklist
	shortcuts  map[int64]model.Shortcut
}

func (f fixtureResolver) GetChecklist(_ context.Context, id int64) (model.Checklist, error) {
	if c, ok := f.checklists[id]; ok {
		return c, nil
	}
	return model.Checklist{}, errors.New("not found")
}

func (f fixtureResolver) GetShortcut(_ context.Context, id int64) (model.Shortcut, error) {
	if s, ok := f.shortcuts[id]; ok {
		return s, nil
	}
	return model.Shortcut{}, errors.New("not found")
}

type capturePresenter struct {
	shown []model.Checklist
}

func (p *capturePresenter) ShowChecklist(c model.Checklist) {
	p.shown = append(p.shown, c)
}

type stubRunner struct {
	ran []model.Shortcut
	err error
}

func (r *stubRunner) Run(_ context.Context, s model.Shortcut) error {
	r.ran = append(r.ran, s)
	return r.err
}

func newFixture() fixtureResolver {
	return fixtureResolver{
		checklists: map[int64]model.Checklist{
			12: {ID: 12, Name: "Morning", Color: "#AABBCC"},
		},
		shortcuts: map[int64]model.Shortcut{
			5: {ID: 5, Name: "Focus playlist", URI: "app://music"},
		},
	}
}

func TestResolveAllPreservesOrderAndDropsStale(t *testing.T) {
	registry := NewRegistry(newFixture(), nil, nil, nil)
	refs := []textfeatures.TriggerRef{
		{Kind: textfeatures.KindShortcut, ID: 5},
		{Kind: textfeatures.KindChecklist, ID: 9999999999},
		{Kind: textfeatures.KindChecklist, ID: 12},
	}
	got := registry.ResolveAll(context.Background(), refs)
	if len(got) != 2 {
		t.Fatalf("expected 2 resolved triggers, got %d", len(got))
	}
	if got[0].Kind != textfeatures.KindShortcut || got[0].Title != "Focus playlist" {
		t.Fatalf("unexpected first trigger: %#v", got[0])
	}
	if got[1].Kind != textfeatures.KindChecklist || got[1].Title != "Morning" || got[1].Color != "#AABBCC" {
		t.Fatalf("unexpected second trigger: %#v", got[1])
	}
}

func TestUnresolvableTriggerFromTextIsDroppedSilently(t *testing.T) {
	registry := NewRegistry(newFixture(), nil, nil, nil)
	f := textfeatures.Parse("call mom #c9999999999")
	if f.DisplayText != "call mom" {
		t.Fatalf("unexpected display text: %q", f.DisplayText)
	}
	got := registry.ResolveAll(context.Background(), f.Triggers)
	if len(got) != 0 {
		t.Fatalf("expected no resolved triggers, got %#v", got)
	}
}

func TestActivateChecklistPresents(t *testing.T) {
	presenter := &capturePresenter{}
	registry := NewRegistry(newFixture(), presenter, nil, nil)
	err := registry.Activate(context.Background(), Trigger{Kind: textfeatures.KindChecklist, ID: 12})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if len(presenter.shown) != 1 || presenter.shown[0].Name != "Morning" {
		t.Fatalf("unexpected presentations: %#v", presenter.shown)
	}
}

func TestActivateShortcutRunsAndWrapsFailure(t *testing.T) {
	runner := &stubRunner{}
	registry := NewRegistry(newFixture(), nil, runner, nil)
	trg := Trigger{Kind: textfeatures.KindShortcut, ID: 5}

	if err := registry.Activate(context.Background(), trg); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if len(runner.ran) != 1 || runner.ran[0].URI != "app://music" {
		t.Fatalf("unexpected runs: %#v", runner.ran)
	}

	runner.err = errors.New("platform refused")
	if err := registry.Activate(context.Background(), trg); !errors.Is(err, ErrShortcutFailed) {
		t.Fatalf("expected ErrShortcutFailed, got %v", err)
	}
}

func TestActivateGoneTriggerIsNoOp(t *testing.T) {
	registry := NewRegistry(fixtureResolver{}, &capturePresenter{}, &stubRunner{}, nil)
	if err := registry.Activate(context.Background(), Trigger{Kind: textfeatures.KindChecklist, ID: 1}); err != nil {
		t.Fatalf("expected no error for gone checklist, got %v", err)
	}
	if err := registry.Activate(context.Background(), Trigger{Kind: textfeatures.KindShortcut, ID: 1}); err != nil {
		t.Fatalf("expected no error for gone shortcut, got %v", err)
	}
}
