package cmd

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI against a config file in dir and returns stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "config.yaml")}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd_Short(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev", strings.TrimSpace(out))
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
	assert.Contains(t, out, `"go_version"`)
}

func TestTenantAdd_PrintsTokenOnce(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, dir, "tenant", "add",
		"--label", "docs", "--path", t.TempDir(), "--no-input")
	require.NoError(t, err)

	assert.Contains(t, out, `tenant "docs" added`)
	tokenLine := regexp.MustCompile(`token: ([0-9a-f]{64})`).FindStringSubmatch(out)
	require.NotNil(t, tokenLine, "output should contain a 64-hex token")

	// The token must not appear anywhere in list output.
	out, err = execute(t, dir, "tenant", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "docs")
	assert.NotContains(t, out, tokenLine[1])
}

func TestTenantAdd_RejectsRelativePath(t *testing.T) {
	_, err := execute(t, t.TempDir(), "tenant", "add",
		"--label", "docs", "--path", "relative/path", "--no-input")
	require.Error(t, err)
}

func TestTenantRotate_PrintsNewToken(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, dir, "tenant", "add",
		"--label", "docs", "--path", t.TempDir(), "--no-input")
	require.NoError(t, err)
	first := regexp.MustCompile(`token: ([0-9a-f]{64})`).FindStringSubmatch(out)[1]

	out, err = execute(t, dir, "tenant", "rotate-token", "docs")
	require.NoError(t, err)
	second := regexp.MustCompile(`token: ([0-9a-f]{64})`).FindStringSubmatch(out)[1]
	assert.NotEqual(t, first, second)
}

func TestTenantRemove(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "tenant", "add",
		"--label", "docs", "--path", t.TempDir(), "--no-input")
	require.NoError(t, err)

	out, err := execute(t, dir, "tenant", "remove", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "removed")

	out, err = execute(t, dir, "tenant", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no tenants configured")
}

func TestTenantEdit_ChangesCollection(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "tenant", "add",
		"--label", "docs", "--path", t.TempDir(), "--no-input")
	require.NoError(t, err)

	_, err = execute(t, dir, "tenant", "edit", "docs", "--collection", "docs-main")
	require.NoError(t, err)

	out, err := execute(t, dir, "tenant", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "docs-main")
}

func TestIndexCmd_UnknownTenant(t *testing.T) {
	_, err := execute(t, t.TempDir(), "index", "ghost")
	require.Error(t, err)
}

func TestIndexCmd_RequiresLabelOrAll(t *testing.T) {
	_, err := execute(t, t.TempDir(), "index")
	require.Error(t, err)
}

func TestMCPCmd_UnknownTenant(t *testing.T) {
	_, err := execute(t, t.TempDir(), "mcp", "--tenant", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}
