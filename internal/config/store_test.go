package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	return s
}

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.Get("server.port")
	assert.False(t, ok)
}

func TestSetGet_NestedPaths(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("server.port", 9000))
	require.NoError(t, s.Set("tenants.docs.collection", "docs"))

	assert.Equal(t, 9000, s.GetInt("server.port", 0))
	assert.Equal(t, "docs", s.GetString("tenants.docs.collection", ""))

	// Intermediate nodes are maps, not leaf values.
	sub := s.Sub("tenants")
	assert.Contains(t, sub, "docs")
}

func TestSet_WritesThroughSynchronously(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("tenants.docs.token", "secret"))

	// A fresh Store reading the same file must see the write.
	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", reopened.GetString("tenants.docs.token", ""))
}

func TestSave_HardensPermissionsToOwnerOnly(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("tenants.docs.token", "secret"))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestDelete_RemovesKeyAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("tenants.docs.collection", "docs"))
	require.NoError(t, s.Delete("tenants.docs"))

	reopened, err := Open(path)
	require.NoError(t, err)
	_, ok := reopened.Get("tenants.docs")
	assert.False(t, ok)
}

func TestDelete_AbsentKeyIsNoOp(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Delete("tenants.ghost"))
}

func TestGetInt_TypeMismatchFallsBack(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("server.host", "localhost"))

	assert.Equal(t, 42, s.GetInt("server.host", 42))
}

func TestSettings_DefaultsWhenStoreEmpty(t *testing.T) {
	s := newTestStore(t)

	got := s.Settings()
	assert.Equal(t, DefaultSettings(), got)
	assert.NoError(t, got.Validate())
}

func TestSettings_StoredValuesOverrideDefaults(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("indexing.strategy", "watch"))
	require.NoError(t, s.Set("indexing.watch_debounce", 10))
	require.NoError(t, s.Set("execution.max_concurrent", 2))

	got := s.Settings()
	assert.Equal(t, StrategyWatch, got.Strategy)
	assert.Equal(t, 10, got.WatchDebounceSec)
	assert.Equal(t, 2, got.MaxConcurrent)
	// Untouched keys keep defaults.
	assert.Equal(t, "qmd", got.ToolBin)
}

func TestSettings_EnvOverridesStore(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("execution.tool_bin", "/opt/qmd/bin/qmd"))
	t.Setenv("QMD_BRIDGE_TOOL_BIN", "/usr/local/bin/qmd")

	assert.Equal(t, "/usr/local/bin/qmd", s.Settings().ToolBin)
}

func TestSettingsValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"unknown strategy", func(s *Settings) { s.Strategy = "hourly" }},
		{"zero interval", func(s *Settings) { s.UpdateIntervalSec = 0 }},
		{"zero debounce", func(s *Settings) { s.WatchDebounceSec = 0 }},
		{"zero timeout", func(s *Settings) { s.ExecTimeoutMS = 0 }},
		{"negative cap", func(s *Settings) { s.MaxConcurrent = -1 }},
		{"zero output cap", func(s *Settings) { s.MaxOutputBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSettings()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
