package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Fixed-width UTC timestamps so text comparison matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository pins the pool to one connection so the foreign key
// pragma applies to every statement.
func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
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

// DB exposes the handle for migrations.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, in Goal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, title, description, active, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		in.ID, in.Title, in.Description, boolInt(in.Active), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (Goal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, active, created_at
		FROM goals WHERE id = ?`, id)
	goal, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Goal{}, ErrNotFound
		}
		return Goal{}, err
	}
	return goal, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, in Goal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET title = ?, description = ?, active = ?
		WHERE id = ?`,
		in.Title, in.Description, boolInt(in.Active), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// DeleteGoal cascades to the goal's tasks and completion events.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, filter GoalListFilter) ([]Goal, error) {
	query := `SELECT id, title, description, active, created_at FROM goals`
	args := make([]any, 0, 3)
	if filter.Active != nil {
		query += ` WHERE active = ?`
		args = append(args, boolInt(*filter.Active))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Goal, 0)
	for rows.Next() {
		goal, scanErr := scanGoal(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, goal)
	}
	return out, rows.Err()
}

// SetActiveGoal activates id and deactivates every other goal in one
// transaction.
func (r *SQLiteRepository) SetActiveGoal(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE goals SET active = 0 WHERE id <> ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE goals SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, goal_id, text, completed, position, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.GoalID, in.Text, boolInt(in.Completed), in.Position, mustTime(in.CreatedAt), nullTime(in.CompletedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, goal_id, text, completed, position, created_at, completed_at
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET text = ?, completed = ?, position = ?, completed_at = ?
		WHERE id = ?`,
		in.Text, boolInt(in.Completed), in.Position, nullTime(in.CompletedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// ListTasks orders tasks the way they were listed in their goal.
func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := `SELECT id, goal_id, text, completed, position, created_at, completed_at FROM tasks`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.GoalID != "" {
		clauses = append(clauses, "goal_id = ?")
		args = append(args, filter.GoalID)
	}
	if filter.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, boolInt(*filter.Completed))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY goal_id ASC, position ASC, rowid ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateMessage(ctx context.Context, in Message) error {
	items, applied, err := encodeAction(in)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (id, context_id, seq, role, text, action_type, action_items, applied_items, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.ContextID, in.Seq, in.Role, in.Text, in.ActionType, items, applied, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetMessage(ctx context.Context, id string) (Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, context_id, seq, role, text, action_type, action_items, applied_items, created_at
		FROM messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, ErrNotFound
		}
		return Message{}, err
	}
	return msg, nil
}

// UpdateMessage rewrites the action state of a message. Text, role and
// ordering are immutable.
func (r *SQLiteRepository) UpdateMessage(ctx context.Context, in Message) error {
	items, applied, err := encodeAction(in)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET action_type = ?, action_items = ?, applied_items = ?
		WHERE id = ?`,
		in.ActionType, items, applied, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// DeleteMessages removes a whole chat context and reports how many messages
// were removed.
func (r *SQLiteRepository) DeleteMessages(ctx context.Context, contextID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE context_id = ?`, contextID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) ListMessages(ctx context.Context, filter MessageListFilter) ([]Message, error) {
	query := `SELECT id, context_id, seq, role, text, action_type, action_items, applied_items, created_at FROM messages`
	args := make([]any, 0, 3)
	if filter.ContextID != "" {
		query += ` WHERE context_id = ?`
		args = append(args, filter.ContextID)
	}
	query += ` ORDER BY context_id ASC, seq ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		msg, scanErr := scanMessage(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCompletion(ctx context.Context, in CompletionEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO completion_events (id, task_id, goal_id, completed_at)
		VALUES (?, ?, ?, ?)`,
		in.ID, in.TaskID, in.GoalID, mustTime(in.CompletedAt),
	)
	return err
}

func (r *SQLiteRepository) DeleteCompletion(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM completion_events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListCompletions(ctx context.Context, filter CompletionListFilter) ([]CompletionEvent, error) {
	query := `SELECT id, task_id, goal_id, completed_at FROM completion_events`
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if filter.GoalID != "" {
		clauses = append(clauses, "goal_id = ?")
		args = append(args, filter.GoalID)
	}
	if filter.TaskID != "" {
		clauses = append(clauses, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "completed_at >= ?")
		args = append(args, mustTime(*filter.Since))
	}
	if filter.Until != nil {
		clauses = append(clauses, "completed_at < ?")
		args = append(args, mustTime(*filter.Until))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY completed_at ASC, rowid ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CompletionEvent, 0)
	for rows.Next() {
		ev, scanErr := scanCompletion(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

func encodeAction(in Message) (string, string, error) {
	items := in.ActionItems
	if items == nil {
		items = []string{}
	}
	applied := in.Applied
	if applied == nil {
		applied = []bool{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return "", "", fmt.Errorf("encode action items: %w", err)
	}
	appliedJSON, err := json.Marshal(applied)
	if err != nil {
		return "", "", fmt.Errorf("encode applied items: %w", err)
	}
	return string(itemsJSON), string(appliedJSON), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(s scanner) (Goal, error) {
	var out Goal
	var active int
	var created string
	if err := s.Scan(&out.ID, &out.Title, &out.Description, &active, &created); err != nil {
		return Goal{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Goal{}, err
	}
	out.Active = active == 1
	out.CreatedAt = createdAt
	return out, nil
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var completed int
	var created string
	var completedAtRaw sql.NullString
	if err := s.Scan(&out.ID, &out.GoalID, &out.Text, &completed, &out.Position, &created, &completedAtRaw); err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	completedAt, err := parseNullableTime(completedAtRaw)
	if err != nil {
		return Task{}, err
	}
	out.Completed = completed == 1
	out.CreatedAt = createdAt
	out.CompletedAt = completedAt
	return out, nil
}

func scanMessage(s scanner) (Message, error) {
	var out Message
	var items, applied, created string
	if err := s.Scan(&out.ID, &out.ContextID, &out.Seq, &out.Role, &out.Text, &out.ActionType, &items, &applied, &created); err != nil {
		return Message{}, err
	}
	if err := json.Unmarshal([]byte(items), &out.ActionItems); err != nil {
		return Message{}, fmt.Errorf("decode action items of %s: %w", out.ID, err)
	}
	if err := json.Unmarshal([]byte(applied), &out.Applied); err != nil {
		return Message{}, fmt.Errorf("decode applied items of %s: %w", out.ID, err)
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Message{}, err
	}
	out.CreatedAt = createdAt
	return out, nil
}

func scanCompletion(s scanner) (CompletionEvent, error) {
	var out CompletionEvent
	var completed string
	if err := s.Scan(&out.ID, &out.TaskID, &out.GoalID, &completed); err != nil {
		return CompletionEvent{}, err
	}
	completedAt, err := parseRequiredTime(completed)
	if err != nil {
		return CompletionEvent{}, err
	}
	out.CompletedAt = completedAt
	return out, nil
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
