// Package gateway implements the concurrency-bounded command-execution
// gateway in front of the external search executable.
//
// Calls pass four checks in order: command whitelist, per-tenant rate limit,
// fail-fast admission against the concurrency cap, then the subprocess
// itself. Admission is rejection, not queueing: a caller over the cap gets
// TooManyRequests immediately so backpressure is visible at the boundary.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/s950329/qmd-bridge/internal/config"
	"github.com/s950329/qmd-bridge/internal/errors"
	"github.com/s950329/qmd-bridge/internal/qmd"
)

// MaxQueryLen bounds query strings. Boundary layers reject longer queries
// before they reach Execute.
const MaxQueryLen = 4096

// whitelist is the fixed set of commands the gateway will ever pass to the
// tool.
var whitelist = map[string]bool{
	"search":  true,
	"vsearch": true,
	"query":   true,
}

// Whitelisted reports whether command is on the fixed whitelist.
func Whitelisted(command string) bool {
	return whitelist[command]
}

// Request is one execution. Collection is always derived from the
// authenticated tenant by the boundary layer; the gateway never sees a
// client-supplied collection.
type Request struct {
	Command    string
	Query      string
	Collection string
}

// Response is a successful execution result.
type Response struct {
	Output    string `json:"output"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Recorder receives execution events for metrics. Implementations must be
// safe for concurrent use.
type Recorder interface {
	ExecutionFinished(command string, outcome string, elapsed time.Duration)
	ExecutionRejected(reason string)
	InFlightChanged(delta int)
}

// nopRecorder is used when no Recorder is wired.
type nopRecorder struct{}

func (nopRecorder) ExecutionFinished(string, string, time.Duration) {}
func (nopRecorder) ExecutionRejected(string)                        {}
func (nopRecorder) InFlightChanged(int)                             {}

// Gateway invokes the external tool on behalf of authenticated tenants.
type Gateway struct {
	settings func() config.Settings
	runner   *qmd.Runner
	logger   *slog.Logger
	recorder Recorder

	admission admissionCounter
	limiters  *tenantLimiters
}

// New creates a Gateway. settings is consulted on every call, so cap,
// timeout, and output limits follow the store without a restart.
func New(settings func() config.Settings, runner *qmd.Runner, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		settings: settings,
		runner:   runner,
		logger:   logger,
		recorder: nopRecorder{},
		limiters: newTenantLimiters(),
	}
}

// SetRecorder wires a metrics recorder.
func (g *Gateway) SetRecorder(r Recorder) {
	if r != nil {
		g.recorder = r
	}
}

// InFlight returns the number of executions currently running.
func (g *Gateway) InFlight() int {
	return g.admission.current()
}

// Execute runs one whitelisted command scoped to the request's collection.
func (g *Gateway) Execute(ctx context.Context, req Request) (*Response, error) {
	// Whitelist check happens before any resource is consumed.
	if !Whitelisted(req.Command) {
		g.recorder.ExecutionRejected("invalid_command")
		return nil, errors.New(errors.CodeInvalidCommand)
	}

	cfg := g.settings()

	if !g.limiters.allow(req.Collection, cfg.RatePerMinute) {
		g.recorder.ExecutionRejected("rate_limited")
		return nil, errors.New(errors.CodeTooManyRequests)
	}

	// Check-and-increment is one atomic step; release runs on every exit
	// path so the counter never leaks.
	if !g.admission.acquire(cfg.MaxConcurrent) {
		g.recorder.ExecutionRejected("over_capacity")
		return nil, errors.New(errors.CodeTooManyRequests)
	}
	g.recorder.InFlightChanged(1)
	defer func() {
		g.admission.release()
		g.recorder.InFlightChanged(-1)
	}()

	res, err := g.runner.Run(ctx, qmd.RunOptions{
		Bin:            cfg.ToolBin,
		Timeout:        cfg.ExecTimeout(),
		MaxOutputBytes: cfg.MaxOutputBytes,
	}, qmd.SearchArgs(req.Command, req.Query, req.Collection)...)
	if err != nil {
		g.recorder.ExecutionFinished(req.Command, string(errors.CodeOf(err)), 0)
		return nil, err
	}

	g.logger.Info("execution completed",
		slog.String("command", req.Command),
		slog.String("collection", req.Collection),
		slog.Int64("elapsed_ms", res.Elapsed.Milliseconds()),
	)
	g.recorder.ExecutionFinished(req.Command, "ok", res.Elapsed)

	return &Response{
		Output:    string(res.Stdout),
		ElapsedMs: res.Elapsed.Milliseconds(),
	}, nil
}

// tenantLimiters holds one token bucket per tenant collection. Limiters are
// created lazily and rebuilt when the configured rate changes.
type tenantLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func newTenantLimiters() *tenantLimiters {
	return &tenantLimiters{limiters: make(map[string]*rate.Limiter)}
}

func (l *tenantLimiters) allow(key string, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	if perMinute != l.perMin {
		l.limiters = make(map[string]*rate.Limiter)
		l.perMin = perMinute
	}
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
