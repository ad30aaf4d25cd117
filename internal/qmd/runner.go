// Package qmd wraps invocation of the external search executable.
//
// The tool is an opaque subprocess with a fixed command-line contract:
//
//	qmd <command> <query> -c <collection>
//	qmd collection list
//	qmd collection add <path> --name <collection>
//	qmd embed -c <collection>
//
// It communicates solely via exit status and standard output. Arguments are
// always passed as a fully-enumerated list; nothing is ever joined into a
// shell string, so quoting in queries or collection names cannot change the
// command that runs.
package qmd

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/s950329/qmd-bridge/internal/errors"
)

// ErrOutputLimit is returned by the capped output writer when the subprocess
// produces more stdout than allowed. Oversized output is a failure, never a
// silently truncated success.
var ErrOutputLimit = stderrors.New("output limit exceeded")

// RunOptions configures a single invocation. Values come from the settings
// store at call time.
type RunOptions struct {
	// Bin is the tool binary name or path.
	Bin string
	// Timeout is the hard deadline; the process is killed when it elapses.
	Timeout time.Duration
	// MaxOutputBytes caps stdout size.
	MaxOutputBytes int
}

// Result is the outcome of a successful invocation.
type Result struct {
	Stdout  []byte
	Elapsed time.Duration
}

// Runner invokes the external tool. The exec constructor is injectable for
// tests.
type Runner struct {
	logger *slog.Logger

	// execCommand can be overridden in tests to fake the subprocess.
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewRunner creates a Runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger:      logger,
		execCommand: exec.CommandContext,
	}
}

// SetExecCommand overrides subprocess creation. Test hook.
func (r *Runner) SetExecCommand(fn func(ctx context.Context, name string, args ...string) *exec.Cmd) {
	r.execCommand = fn
}

// Run invokes the tool with the given argument list and classifies the
// outcome: ExecutionTimeout when the deadline killed the process,
// ExecutionFailed for any other non-zero exit or output overrun.
func (r *Runner) Run(ctx context.Context, opts RunOptions, args ...string) (*Result, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	stdout := newCappedBuffer(opts.MaxOutputBytes)
	var stderr bytes.Buffer

	cmd := r.execCommand(runCtx, opts.Bin, args...)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		// The deadline firing means the process was forcibly terminated.
		if runCtx.Err() == context.DeadlineExceeded {
			r.logger.Warn("tool execution timed out",
				slog.String("bin", opts.Bin),
				slog.Duration("timeout", opts.Timeout),
			)
			return nil, errors.Wrap(errors.CodeExecutionTimeout, runCtx.Err())
		}
		if stdout.overrun {
			err = ErrOutputLimit
		}
		// Stderr stays in logs; callers only ever see the taxonomy code.
		r.logger.Warn("tool execution failed",
			slog.String("bin", opts.Bin),
			slog.String("error", err.Error()),
			slog.String("stderr", stderr.String()),
		)
		return nil, errors.Wrap(errors.CodeExecutionFailed, err)
	}

	if stdout.overrun {
		r.logger.Warn("tool output exceeded cap",
			slog.String("bin", opts.Bin),
			slog.Int("cap_bytes", opts.MaxOutputBytes),
		)
		return nil, errors.Wrap(errors.CodeExecutionFailed, ErrOutputLimit)
	}

	return &Result{Stdout: stdout.Bytes(), Elapsed: elapsed}, nil
}

// cappedBuffer accumulates up to limit bytes and rejects writes past it. The
// write error propagates through exec's copy goroutine, so an over-producing
// subprocess sees a closed pipe instead of the bridge buffering forever.
type cappedBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	limit   int
	overrun bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit > 0 && b.buf.Len()+len(p) > b.limit {
		b.overrun = true
		return 0, ErrOutputLimit
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}
