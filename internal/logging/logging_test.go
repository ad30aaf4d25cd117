package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, cleanup, err := Setup(Config{
		Level:    "info",
		FilePath: path,
		MaxSizeMB: 1,
		MaxFiles:  2,
	})
	require.NoError(t, err)

	logger.Info("execution finished", slog.String("command", "search"), slog.Int64("elapsed_ms", 12))
	cleanup()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	line := strings.SplitN(strings.TrimSpace(string(raw)), "\n", 2)[0]
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "execution finished", entry["msg"])
	assert.Equal(t, "search", entry["command"])
}

func TestSetup_LevelFiltersDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path, MaxSizeMB: 1, MaxFiles: 1})
	require.NoError(t, err)

	logger.Debug("noise")
	logger.Warn("kept")
	cleanup()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "noise")
	assert.Contains(t, string(raw), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	// 1MB limit; write past it in chunks.
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	chunk := strings.Repeat("x", 64*1024)
	for i := 0; i < 20; i++ {
		_, err := w.Write([]byte(chunk))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "expected a rotated file after exceeding the size limit")
}
