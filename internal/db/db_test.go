package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.db")
	conn, err := Open("file:" + path)
	require.NoError(t, err)
	defer conn.Close()

	for _, table := range []string{"todos", "countdowns", "usage_logs", "app_identity_mappings", "leaderboard"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	v, dirty, err := Version(conn)
	require.NoError(t, err)
	require.False(t, dirty)
	require.EqualValues(t, 1, v)

	// Re-running is a no-op.
	require.NoError(t, Migrate(conn))
}

func TestBusyTimeoutOnEveryConnection(t *testing.T) {
	conn, err := Open("file:" + filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	defer conn.Close()
	// Force each query onto a freshly opened connection.
	conn.SetMaxIdleConns(0)

	for i := 0; i < 2; i++ {
		var ms int
		require.NoError(t, conn.QueryRow(`PRAGMA busy_timeout`).Scan(&ms))
		require.Equal(t, 5000, ms)
	}
}

func TestWithBusyTimeout(t *testing.T) {
	require.Equal(t, "file::memory:?_pragma=busy_timeout(5000)", withBusyTimeout("file::memory:"))
	require.Equal(t, "file:a.db?mode=rwc&_pragma=busy_timeout(5000)", withBusyTimeout("file:a.db?mode=rwc"))
	require.Equal(t, "file:a.db?_pragma=busy_timeout(100)", withBusyTimeout("file:a.db?_pragma=busy_timeout(100)"))
}
