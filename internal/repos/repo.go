package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable marks failures of the backing store. Callers may
	// retry the same request.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

type Repo struct {
	db *sql.DB
	x  *sqlx.DB
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db, x: sqlx.NewDb(db, "sqlite")}
}

func (r *Repo) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr(err)
	}
	return nil
}

// Reset removes all client-owned rows. Identity mappings are operator data
// and are left alone.
func (r *Repo) Reset(ctx context.Context) error {
	return r.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM usage_logs`,
			`DELETE FROM countdowns`,
			`DELETE FROM todos`,
			`DELETE FROM leaderboard`,
			`DELETE FROM sqlite_sequence WHERE name IN ('todos', 'countdowns', 'leaderboard')`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return storageErr(err)
			}
		}
		return nil
	})
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

type scanner interface{ Scan(dest ...any) error }
