package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/tempod/internal/model"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// --- activities

const activityColumns = "id, name, emoji, color, default_timer, sort, auto_fs, type, hints_type, hints_custom, hints_history"

func (r *SQLiteRepository) CreateActivity(ctx context.Context, in model.Activity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.Emoji, in.Color, in.DefaultTimer, in.Sort, boolInt(in.AutoFS),
		string(in.Type), string(in.TimerHints.Type), joinInts(in.TimerHints.Custom), joinInts(in.TimerHints.History),
	)
	return err
}

func (r *SQLiteRepository) UpdateActivity(ctx context.Context, in model.Activity) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE activities
		SET name = ?, emoji = ?, color = ?, default_timer = ?, sort = ?, auto_fs = ?, type = ?, hints_type = ?, hints_custom = ?, hints_history = ?
		WHERE id = ?`,
		in.Name, in.Emoji, in.Color, in.DefaultTimer, in.Sort, boolInt(in.AutoFS),
		string(in.Type), string(in.TimerHints.Type), joinInts(in.TimerHints.Custom), joinInts(in.TimerHints.History),
		in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) GetActivity(ctx context.Context, id int64) (model.Activity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	return scanActivity(row)
}

func (r *SQLiteRepository) ListActivitiesAsc(ctx context.Context) ([]model.Activity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY sort ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Activity, 0)
	for rows.Next() {
		a, scanErr := scanActivity(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) OtherActivity(ctx context.Context) (model.Activity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE type = ? LIMIT 1`, string(model.ActivityTypeOther))
	return scanActivity(row)
}

// --- intervals

func (r *SQLiteRepository) CreateInterval(ctx context.Context, in model.Interval) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO intervals (id, activity_id, deadline, note)
		VALUES (?, ?, ?, ?)`,
		in.ID, in.ActivityID, in.Deadline, in.Note,
	)
	return err
}

func (r *SQLiteRepository) LastInterval(ctx context.Context) (model.Interval, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, activity_id, deadline, note FROM intervals
		ORDER BY id DESC LIMIT 1`)
	return scanInterval(row)
}

func (r *SQLiteRepository) IntervalsInRange(ctx context.Context, from, to int64, limit int) ([]model.Interval, error) {
	query := `SELECT id, activity_id, deadline, note FROM intervals WHERE id >= ? AND id <= ? ORDER BY id DESC`
	args := []any{from, to}
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
	return out, rows.Err()
}

// --- folders

func (r *SQLiteRepository) CreateFolder(ctx context.Context, in model.TaskFolder) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO task_folders (id, name, sort) VALUES (?, ?, ?)`,
		in.ID, in.Name, in.Sort)
	return err
}

func (r *SQLiteRepository) ListFoldersAsc(ctx context.Context) ([]model.TaskFolder, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, sort FROM task_folders ORDER BY sort ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TaskFolder, 0)
	for rows.Next() {
		var f model.TaskFolder
		if scanErr := rows.Scan(&f.ID, &f.Name, &f.Sort); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- tasks

func (r *SQLiteRepository) CreateTask(ctx context.Context, in model.Task) (model.Task, error) {
	if in.ID > 0 {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO tasks (id, text, folder_id, event_id, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			in.ID, in.Text, in.FolderID, nullInt64(in.EventID), in.CreatedAt)
		return in, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (text, folder_id, event_id, created_at)
		VALUES (?, ?, ?, ?)`,
		in.Text, in.FolderID, nullInt64(in.EventID), in.CreatedAt)
	if err != nil {
		return model.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, err
	}
	in.ID = id
	return in, nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id int64) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, text, folder_id, event_id, created_at FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasksInFolder(ctx context.Context, folderID int64) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, text, folder_id, event_id, created_at FROM tasks
		WHERE folder_id = ? ORDER BY id ASC`, folderID)
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

func (r *SQLiteRepository) TaskByEventID(ctx context.Context, eventID int64) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, text, folder_id, event_id, created_at FROM tasks WHERE event_id = ? LIMIT 1`, eventID)
	return scanTask(row)
}

func (r *SQLiteRepository) MoveTask(ctx context.Context, id, folderID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tasks SET folder_id = ? WHERE id = ?`, folderID, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// --- repeatings

const repeatingColumns = "id, text, period_type, n, anchor_day, weekdays, last_day, auto_fs, active"

func (r *SQLiteRepository) CreateRepeating(ctx context.Context, in model.Repeating) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO repeatings (`+repeatingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Text, string(in.Period.Type), in.Period.N, in.Period.AnchorDay,
		joinInts(in.Period.Weekdays), in.LastDay, boolInt(in.AutoFS), boolInt(in.Active),
	)
	return err
}

func (r *SQLiteRepository) UpdateRepeating(ctx context.Context, in model.Repeating) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE repeatings
		SET text = ?, period_type = ?, n = ?, anchor_day = ?, weekdays = ?, last_day = ?, auto_fs = ?, active = ?
		WHERE id = ?`,
		in.Text, string(in.Period.Type), in.Period.N, in.Period.AnchorDay,
		joinInts(in.Period.Weekdays), in.LastDay, boolInt(in.AutoFS), boolInt(in.Active),
		in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) GetRepeating(ctx context.Context, id int64) (model.Repeating, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+repeatingColumns+` FROM repeatings WHERE id = ?`, id)
	return scanRepeating(row)
}

func (r *SQLiteRepository) ListActiveRepeatings(ctx context.Context) ([]model.Repeating, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+repeatingColumns+` FROM repeatings WHERE active = 1 ORDER BY id ASC`)
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

func (r *SQLiteRepository) SetRepeatingLastDay(ctx context.Context, id int64, day int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE repeatings SET last_day = ? WHERE id = ?`, day, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// --- events

func (r *SQLiteRepository) CreateEvent(ctx context.Context, in model.Event) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO events (id, text, day, daytime) VALUES (?, ?, ?, ?)`,
		in.ID, in.Text, in.Day, in.Daytime)
	return err
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListEventsForDay(ctx context.Context, day int) ([]model.Event, error) {
	return r.listEvents(ctx, `SELECT id, text, day, daytime FROM events WHERE day = ? ORDER BY daytime ASC, id ASC`, day)
}

func (r *SQLiteRepository) ListEvents(ctx context.Context) ([]model.Event, error) {
	return r.listEvents(ctx, `SELECT id, text, day, daytime FROM events ORDER BY day ASC, daytime ASC, id ASC`)
}

func (r *SQLiteRepository) listEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		var e model.Event
		if scanErr := rows.Scan(&e.ID, &e.Text, &e.Day, &e.Daytime); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- checklists and shortcuts

func (r *SQLiteRepository) CreateChecklist(ctx context.Context, in model.Checklist) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO checklists (id, name, color) VALUES (?, ?, ?)`,
		in.ID, in.Name, in.Color)
	return err
}

func (r *SQLiteRepository) GetChecklist(ctx context.Context, id int64) (model.Checklist, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, color FROM checklists WHERE id = ?`, id)
	var c model.Checklist
	if err := row.Scan(&c.ID, &c.Name, &c.Color); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Checklist{}, ErrNotFound
		}
		return model.Checklist{}, err
	}
	return c, nil
}

func (r *SQLiteRepository) ListChecklists(ctx context.Context) ([]model.Checklist, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color FROM checklists ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Checklist, 0)
	for rows.Next() {
		var c model.Checklist
		if scanErr := rows.Scan(&c.ID, &c.Name, &c.Color); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateChecklistItem(ctx context.Context, in model.ChecklistItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checklist_items (id, checklist_id, text, checked)
		VALUES (?, ?, ?, ?)`,
		in.ID, in.ChecklistID, in.Text, boolInt(in.Checked))
	return err
}

func (r *SQLiteRepository) ListChecklistItems(ctx context.Context, checklistID int64) ([]model.ChecklistItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, checklist_id, text, checked FROM checklist_items
		WHERE checklist_id = ? ORDER BY id ASC`, checklistID)
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

func (r *SQLiteRepository) SetChecklistItemChecked(ctx context.Context, id int64, checked bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE checklist_items SET checked = ? WHERE id = ?`, boolInt(checked), id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) CreateShortcut(ctx context.Context, in model.Shortcut) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO shortcuts (id, name, uri, color) VALUES (?, ?, ?, ?)`,
		in.ID, in.Name, in.URI, in.Color)
	return err
}

func (r *SQLiteRepository) GetShortcut(ctx context.Context, id int64) (model.Shortcut, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, uri, color FROM shortcuts WHERE id = ?`, id)
	var s model.Shortcut
	if err := row.Scan(&s.ID, &s.Name, &s.URI, &s.Color); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Shortcut{}, ErrNotFound
		}
		return model.Shortcut{}, err
	}
	return s, nil
}

func (r *SQLiteRepository) ListShortcuts(ctx context.Context) ([]model.Shortcut, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, uri, color FROM shortcuts ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Shortcut, 0)
	for rows.Next() {
		var s model.Shortcut
		if scanErr := rows.Scan(&s.ID, &s.Name, &s.URI, &s.Color); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (model.Activity, error) {
	var a model.Activity
	var autoFS int
	var typ, hintsType, custom, history string
	err := row.Scan(&a.ID, &a.Name, &a.Emoji, &a.Color, &a.DefaultTimer, &a.Sort, &autoFS, &typ, &hintsType, &custom, &history)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Activity{}, ErrNotFound
		}
		return model.Activity{}, err
	}
	a.AutoFS = autoFS != 0
	a.Type = model.ActivityType(typ)
	a.TimerHints = model.TimerHints{
		Type:    model.TimerHintsType(hintsType),
		Custom:  splitInts(custom),
		History: splitInts(history),
	}
	return a, nil
}

func scanInterval(row rowScanner) (model.Interval, error) {
	var in model.Interval
	err := row.Scan(&in.ID, &in.ActivityID, &in.Deadline, &in.Note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Interval{}, ErrNotFound
		}
		return model.Interval{}, err
	}
	return in, nil
}

func scanTask(row rowScanner) (model.Task, error) {
	var t model.Task
	var eventID sql.NullInt64
	err := row.Scan(&t.ID, &t.Text, &t.FolderID, &eventID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	if eventID.Valid {
		t.EventID = &eventID.Int64
	}
	return t, nil
}

func scanRepeating(row rowScanner) (model.Repeating, error) {
	var rep model.Repeating
	var periodType, weekdays string
	var autoFS, active int
	err := row.Scan(&rep.ID, &rep.Text, &periodType, &rep.Period.N, &rep.Period.AnchorDay, &weekdays, &rep.LastDay, &autoFS, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Repeating{}, ErrNotFound
		}
		return model.Repeating{}, err
	}
	rep.Period.Type = model.PeriodType(periodType)
	rep.Period.Weekdays = splitInts(weekdays)
	rep.AutoFS = autoFS != 0
	rep.Active = active != 0
	return rep, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func joinInts(values []int) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}

func splitInts(text string) []int {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
