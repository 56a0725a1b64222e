package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sandeepkv93/tempod/internal/model"
)

// Dump reads every table into one Snapshot value. The interval
// history is bounded to the most recent intervalsLimit rows when the
// limit is positive, for lightweight device transfers.
func (r *SQLiteRepository) Dump(ctx context.Context, intervalsLimit int) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Activities, err = r.ListActivitiesAsc(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("dump activities: %w", err)
	}
	if snap.Intervals, err = r.dumpIntervals(ctx, intervalsLimit); err != nil {
		return Snapshot{}, fmt.Errorf("dump intervals: %w", err)
	}
	if snap.Folders, err = r.ListFoldersAsc(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("dump folders: %w", err)
	}
	if snap.Tasks, err = r.dumpTasks(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("dump tasks: %w", err)
	}
	if snap.Repeatings, err = r.dumpRepeatings(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("dump repeatings: %w", err)
	}
	if snap.Events, err = r.ListEvents(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("dump events: %w", err)
	}
	if snap.Checklists, err = r.ListChecklists(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("dump checklists: %w", err)
	}
	if snap.ChecklistItems, err = r.dumpChecklistItems(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("dump checklist items: %w", err)
	}
	if snap.Shortcuts, err = r.ListShortcuts(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("dump shortcuts: %w", err)
	}
	return snap, nil
}

func (r *SQLiteRepository) dumpIntervals(ctx context.Context, limit int) ([]model.Interval, error) {
	query := `SELECT id, activity_id, deadline, note FROM intervals ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Interval, 0)
	for rows.Next() {
		in, scanErr := scanInterval(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Oldest first in the document.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *SQLiteRepository) dumpTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, text, folder_id, event_id, created_at FROM tasks ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) dumpRepeatings(ctx context.Context) ([]model.Repeating, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+repeatingColumns+` FROM repeatings ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Repeating, 0)
	for rows.Next() {
		rep, scanErr := scanRepeating(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) dumpChecklistItems(ctx context.Context) ([]model.ChecklistItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, checklist_id, text, checked FROM checklist_items ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ChecklistItem, 0)
	for rows.Next() {
		var item model.ChecklistItem
		var checked int
		if scanErr := rows.Scan(&item.ID, &item.ChecklistID, &item.Text, &checked); scanErr != nil {
			return nil, scanErr
		}
		item.Checked = checked != 0
		out = append(out, item)
	}
	return out, rows.Err()
}

// ReplaceAll swaps the whole store for the snapshot inside a single
// transaction so concurrent readers never see a half-applied state.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, snap Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	if err := replaceAllTx(ctx, tx, snap); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func replaceAllTx(ctx context.Context, tx *sql.Tx, snap Snapshot) error {
	for _, table := range []string{
		"shortcuts", "checklist_items", "checklists", "events",
		"repeatings", "tasks", "task_folders", "intervals", "activities",
	} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, a := range snap.Activities {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO activities (`+activityColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Name, a.Emoji, a.Color, a.DefaultTimer, a.Sort, boolInt(a.AutoFS),
			string(a.Type), string(a.TimerHints.Type), joinInts(a.TimerHints.Custom), joinInts(a.TimerHints.History),
		); err != nil {
			return fmt.Errorf("restore activity %d: %w", a.ID, err)
		}
	}
	for _, in := range snap.Intervals {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO intervals (id, activity_id, deadline, note) VALUES (?, ?, ?, ?)`,
			in.ID, in.ActivityID, in.Deadline, in.Note,
		); err != nil {
			return fmt.Errorf("restore interval %d: %w", in.ID, err)
		}
	}
	for _, f := range snap.Folders {
		if _, err := tx.ExecContext(ctx, `INSERT INTO task_folders (id, name, sort) VALUES (?, ?, ?)`,
			f.ID, f.Name, f.Sort); err != nil {
			return fmt.Errorf("restore folder %d: %w", f.ID, err)
		}
	}
	for _, t := range snap.Tasks {
		if t.ID <= 0 {
			return errors.New("storage: snapshot task without id")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, text, folder_id, event_id, created_at) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Text, t.FolderID, nullInt64(t.EventID), t.CreatedAt,
		); err != nil {
			return fmt.Errorf("restore task %d: %w", t.ID, err)
		}
	}
	for _, rep := range snap.Repeatings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO repeatings (`+repeatingColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rep.ID, rep.Text, string(rep.Period.Type), rep.Period.N, rep.Period.AnchorDay,
			joinInts(rep.Period.Weekdays), rep.LastDay, boolInt(rep.AutoFS), boolInt(rep.Active),
		); err != nil {
			return fmt.Errorf("restore repeating %d: %w", rep.ID, err)
		}
	}
	for _, e := range snap.Events {
		if _, err := tx.ExecContext(ctx, `INSERT INTO events (id, text, day, daytime) VALUES (?, ?, ?, ?)`,
			e.ID, e.Text, e.Day, e.Daytime); err != nil {
			return fmt.Errorf("restore event %d: %w", e.ID, err)
		}
	}
	for _, c := range snap.Checklists {
		if _, err := tx.ExecContext(ctx, `INSERT INTO checklists (id, name, color) VALUES (?, ?, ?)`,
			c.ID, c.Name, c.Color); err != nil {
			return fmt.Errorf("restore checklist %d: %w", c.ID, err)
		}
	}
	for _, item := range snap.ChecklistItems {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO checklist_items (id, checklist_id, text, checked) VALUES (?, ?, ?, ?)`,
			item.ID, item.ChecklistID, item.Text, boolInt(item.Checked)); err != nil {
			return fmt.Errorf("restore checklist item %d: %w", item.ID, err)
		}
	}
	for _, s := range snap.Shortcuts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO shortcuts (id, name, uri, color) VALUES (?, ?, ?, ?)`,
			s.ID, s.Name, s.URI, s.Color); err != nil {
			return fmt.Errorf("restore shortcut %d: %w", s.ID, err)
		}
	}
	return nil
}
