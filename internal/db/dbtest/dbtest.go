// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"database/sql"
	"testing"

	"countdowntodo-sync/internal/db"
)

func New(t testing.TB) *sql.DB {
	t.Helper()
	conn, err := db.Open("file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
