package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("warn", &buf)
	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	require.NotContains(t, out, "[DEBUG]")
	require.NotContains(t, out, "[INFO]")
	require.Contains(t, out, "[WARN] warn 3")
	require.Contains(t, out, "[ERROR] error 4")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	l := NewWithWriter("loud", &bytes.Buffer{})
	require.Equal(t, "info", l.Level())
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")
	l := NewWithOptions(Options{Level: "debug", File: path, MaxSizeMB: 1})
	l.Debugf("hello %s", "file")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "[DEBUG] hello file")
}
