package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tsadaash/internal/applog"
	"tsadaash/internal/periodicity"
	"tsadaash/internal/store"
)

const taskColumns = `id, user_id, title, description, periodicity, created_at, updated_at`

// ErrUnreadablePeriodicity marks a row whose stored rule no longer decodes.
var ErrUnreadablePeriodicity = errors.New("stored periodicity is unreadable")

// SQLRepo keeps tasks in the tasks table; the periodicity column holds the
// JSON document or NULL.
type SQLRepo struct {
	db     *store.DB
	logger *log.Logger
	now    func() time.Time
}

func NewSQLRepo(db *store.DB, logger *log.Logger) *SQLRepo {
	return &SQLRepo{db: db, logger: applog.OrDefault(logger), now: time.Now}
}

func encodePeriodicity(p *periodicity.Periodicity) (sql.NullString, error) {
	if p == nil || p.IsZero() {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func (r *SQLRepo) Create(ctx context.Context, t Task) (Task, error) {
	t, err := prepareNew(t, r.now())
	if err != nil {
		return Task{}, err
	}
	per, err := encodePeriodicity(t.Periodicity)
	if err != nil {
		return Task{}, fmt.Errorf("encode periodicity: %w", err)
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.UserID, t.Title, t.Description, per, store.FormatTime(t.CreatedAt), store.FormatTime(t.UpdatedAt))
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		t                Task
		per              sql.NullString
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &per, &created, &updated); err != nil {
		return Task{}, err
	}
	if per.Valid && per.String != "" {
		var p periodicity.Periodicity
		if err := json.Unmarshal([]byte(per.String), &p); err != nil {
			return Task{}, fmt.Errorf("%w: task %s: %v", ErrUnreadablePeriodicity, t.ID, err)
		}
		t.Periodicity = &p
	}
	var err error
	if t.CreatedAt, err = store.ParseTime(created); err != nil {
		return Task{}, err
	}
	if t.UpdatedAt, err = store.ParseTime(updated); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *SQLRepo) Get(ctx context.Context, id string) (Task, error) {
	return r.get(ctx, r.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLRepo) get(ctx context.Context, q queryer, id string) (Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, r.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

// ListByUser skips, and logs, rows whose periodicity cannot be decoded so
// one damaged row does not hide the rest.
func (r *SQLRepo) ListByUser(ctx context.Context, userID string) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at, id`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if errors.Is(err, ErrUnreadablePeriodicity) {
			applog.Warn(r.logger, "task_row_skipped", map[string]any{"user_id": userID, "error": err})
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update reads, patches and writes the row in one transaction.
func (r *SQLRepo) Update(ctx context.Context, id string, p Patch) (Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	t, err := r.get(ctx, tx, id)
	if err != nil {
		return Task{}, err
	}
	if err := applyPatch(&t, p); err != nil {
		return Task{}, err
	}
	t.UpdatedAt = r.now().UTC()

	per, err := encodePeriodicity(t.Periodicity)
	if err != nil {
		return Task{}, fmt.Errorf("encode periodicity: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		r.db.Rebind(`UPDATE tasks SET title = ?, description = ?, periodicity = ?, updated_at = ? WHERE id = ?`),
		t.Title, t.Description, per, store.FormatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *SQLRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
