package repos

import (
	"context"
	"database/sql"
	"errors"

	"countdowntodo-sync/internal/models"
)

const todoColumns = `id, owner_id, content, completed, updated_at, deleted, created_at`

func (r *Repo) GetTodoByKeyTx(ctx context.Context, tx *sql.Tx, ownerID, content string) (*models.TodoRecord, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE owner_id = ? AND content = ?`, ownerID, content)
	return scanTodo(row)
}

func (r *Repo) GetTodoByIDTx(ctx context.Context, tx *sql.Tx, ownerID string, id int64) (*models.TodoRecord, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE owner_id = ? AND id = ?`, ownerID, id)
	return scanTodo(row)
}

// UpsertTodoTx writes t unless the stored row for the same (owner, content)
// already has an equal or newer updated_at. It reports whether a row changed,
// so a concurrent writer that won first turns this write into a no-op.
func (r *Repo) UpsertTodoTx(ctx context.Context, tx *sql.Tx, t *models.TodoRecord) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO todos (owner_id, content, completed, updated_at, deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, content) DO UPDATE SET
			completed = excluded.completed,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted
		WHERE excluded.updated_at > todos.updated_at
	`, t.OwnerID, t.Content, t.Completed, t.UpdatedAt, t.Deleted, t.CreatedAt.UTC())
	if err != nil {
		return false, storageErr(err)
	}
	return changed(res)
}

// ListTodos returns every row for the owner, tombstones included.
func (r *Repo) ListTodos(ctx context.Context, ownerID string) ([]models.TodoRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+todoColumns+`
		FROM todos WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	out := make([]models.TodoRecord, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

const countdownColumns = `id, owner_id, title, target_time, updated_at, deleted, created_at`

func (r *Repo) GetCountdownByKeyTx(ctx context.Context, tx *sql.Tx, ownerID, title string) (*models.CountdownRecord, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+countdownColumns+` FROM countdowns WHERE owner_id = ? AND title = ?`, ownerID, title)
	return scanCountdown(row)
}

func (r *Repo) GetCountdownByIDTx(ctx context.Context, tx *sql.Tx, ownerID string, id int64) (*models.CountdownRecord, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+countdownColumns+` FROM countdowns WHERE owner_id = ? AND id = ?`, ownerID, id)
	return scanCountdown(row)
}

func (r *Repo) UpsertCountdownTx(ctx context.Context, tx *sql.Tx, c *models.CountdownRecord) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO countdowns (owner_id, title, target_time, updated_at, deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, title) DO UPDATE SET
			target_time = excluded.target_time,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted
		WHERE excluded.updated_at > countdowns.updated_at
	`, c.OwnerID, c.Title, c.TargetTime.UTC(), c.UpdatedAt, c.Deleted, c.CreatedAt.UTC())
	if err != nil {
		return false, storageErr(err)
	}
	return changed(res)
}

func (r *Repo) ListCountdowns(ctx context.Context, ownerID string) ([]models.CountdownRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+countdownColumns+`
		FROM countdowns WHERE owner_id = ?
		ORDER BY target_time ASC, id ASC
	`, ownerID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	out := make([]models.CountdownRecord, 0)
	for rows.Next() {
		c, err := scanCountdown(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

func changed(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(err)
	}
	return n > 0, nil
}

func scanTodo(row scanner) (*models.TodoRecord, error) {
	var t models.TodoRecord
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Content, &t.Completed, &t.UpdatedAt, &t.Deleted, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &t, nil
}

func scanCountdown(row scanner) (*models.CountdownRecord, error) {
	var c models.CountdownRecord
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.TargetTime, &c.UpdatedAt, &c.Deleted, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}
	return &c, nil
}
