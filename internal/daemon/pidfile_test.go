package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pidPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "qmd-bridge.pid")
}

func TestPIDFile_WriteAndRead(t *testing.T) {
	pf := NewPIDFile(pidPath(t))
	require.NoError(t, pf.Write())

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPIDFile_WriteCreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "deep", "qmd-bridge.pid")
	pf := NewPIDFile(nested)
	require.NoError(t, pf.WritePID(12345))

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)
}

func TestPIDFile_ReadTrimsWhitespace(t *testing.T) {
	path := pidPath(t)
	require.NoError(t, os.WriteFile(path, []byte("999\n"), 0o644))

	pid, err := NewPIDFile(path).Read()
	require.NoError(t, err)
	assert.Equal(t, 999, pid)
}

func TestPIDFile_Read_NotExists(t *testing.T) {
	_, err := NewPIDFile(pidPath(t)).Read()
	assert.ErrorIs(t, err, ErrPIDFileNotFound)
}

func TestPIDFile_Read_InvalidContent(t *testing.T) {
	path := pidPath(t)
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))

	_, err := NewPIDFile(path).Read()
	require.Error(t, err)
}

func TestPIDFile_Remove(t *testing.T) {
	path := pidPath(t)
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))

	pf := NewPIDFile(path)
	require.NoError(t, pf.Remove())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing again is not an error.
	require.NoError(t, pf.Remove())
}

func TestPIDFile_IsRunning(t *testing.T) {
	path := pidPath(t)
	pf := NewPIDFile(path)
	assert.False(t, pf.IsRunning(), "no file means not running")

	require.NoError(t, pf.Write())
	assert.True(t, pf.IsRunning(), "current process should be detected")

	// PID above the typical max on Linux cannot exist.
	require.NoError(t, os.WriteFile(path, []byte("4194304"), 0o644))
	assert.False(t, pf.IsRunning(), "stale PID should read as not running")
}

func TestPIDFile_Signal(t *testing.T) {
	pf := NewPIDFile(pidPath(t))
	require.NoError(t, pf.Write())

	// Signal 0 probes existence without side effects.
	require.NoError(t, pf.Signal(syscall.Signal(0)))
}

func TestPIDFile_Signal_NoProcess(t *testing.T) {
	path := pidPath(t)
	require.NoError(t, os.WriteFile(path, []byte("4194304"), 0o644))

	err := NewPIDFile(path).Signal(syscall.Signal(0))
	require.Error(t, err)
}

func TestController_Status(t *testing.T) {
	path := pidPath(t)
	c := NewController(NewPIDFile(path))
	assert.False(t, c.Status().Running)

	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644))
	st := c.Status()
	assert.True(t, st.Running)
	assert.Equal(t, os.Getpid(), st.PID)
}

func TestController_StopNotRunning(t *testing.T) {
	c := NewController(NewPIDFile(pidPath(t)))
	assert.Error(t, c.Stop())
}

func TestController_StartRefusesWhenRunning(t *testing.T) {
	path := pidPath(t)
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644))

	c := NewController(NewPIDFile(path))
	_, err := c.Start("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}
