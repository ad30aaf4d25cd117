package qmd

import (
	"context"
	stderrors "errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s950329/qmd-bridge/internal/errors"
)

// fakeTool replaces the qmd binary with a shell script. The configured args
// are ignored; the script decides the behavior.
func fakeTool(r *Runner, script string) {
	r.execCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
}

func defaultOpts() RunOptions {
	return RunOptions{Bin: "qmd", Timeout: 5 * time.Second, MaxOutputBytes: 1 << 20}
}

func TestRun_CapturesStdoutAndElapsed(t *testing.T) {
	r := NewRunner(nil)
	fakeTool(r, `printf result`)

	res, err := r.Run(context.Background(), defaultOpts(), "search", "auth", "-c", "docs")
	require.NoError(t, err)
	assert.Equal(t, "result", string(res.Stdout))
	assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))
}

func TestRun_NonZeroExitIsExecutionFailed(t *testing.T) {
	r := NewRunner(nil)
	fakeTool(r, `echo "secret host detail" >&2; exit 3`)

	_, err := r.Run(context.Background(), defaultOpts(), "search", "x", "-c", "docs")
	require.True(t, errors.HasCode(err, errors.CodeExecutionFailed))

	// Raw stderr must never surface in the error callers see.
	var be *errors.BridgeError
	require.ErrorAs(t, err, &be)
	assert.NotContains(t, be.Error(), "secret host detail")
	assert.NotContains(t, be.UserMessage(), "secret host detail")
}

func TestRun_DeadlineKillsProcessAndReportsTimeout(t *testing.T) {
	r := NewRunner(nil)
	fakeTool(r, `sleep 5`)

	opts := defaultOpts()
	opts.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := r.Run(context.Background(), opts, "search", "x", "-c", "docs")
	assert.True(t, errors.HasCode(err, errors.CodeExecutionTimeout))
	assert.Less(t, time.Since(start), 2*time.Second, "process should be killed at the deadline")
}

func TestRun_OutputOverCapIsFailureNotTruncation(t *testing.T) {
	r := NewRunner(nil)
	fakeTool(r, `head -c 100000 /dev/zero`)

	opts := defaultOpts()
	opts.MaxOutputBytes = 1000

	_, err := r.Run(context.Background(), opts, "search", "x", "-c", "docs")
	require.True(t, errors.HasCode(err, errors.CodeExecutionFailed))
	assert.True(t, stderrors.Is(err, ErrOutputLimit))
}

func TestRun_ZeroTimeoutMeansNoDeadline(t *testing.T) {
	r := NewRunner(nil)
	fakeTool(r, `printf ok`)

	opts := defaultOpts()
	opts.Timeout = 0

	res, err := r.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(res.Stdout))
}

func TestArgBuilders_DiscreteArgv(t *testing.T) {
	assert.Equal(t, []string{"search", `auth "flow"`, "-c", "docs"}, SearchArgs("search", `auth "flow"`, "docs"))
	assert.Equal(t, []string{"collection", "list"}, CollectionListArgs())
	assert.Equal(t, []string{"collection", "add", "/srv/docs", "--name", "docs"}, CollectionAddArgs("/srv/docs", "docs"))
	assert.Equal(t, []string{"embed", "-c", "docs"}, EmbedArgs("docs"))
}

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(4)
	n, err := b.Write([]byte("abcd"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = b.Write([]byte("e"))
	assert.ErrorIs(t, err, ErrOutputLimit)
	assert.True(t, b.overrun)
}
