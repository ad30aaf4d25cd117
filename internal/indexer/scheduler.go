// Package indexer keeps each tenant's collection fresh in the background.
//
// Per tenant there is a two-state machine, Idle and Running, realized as a
// test-and-set on an in-progress set owned by the Scheduler instance. A
// trigger while Running is a silent no-op: not queued, not retried. The
// Running flag clears on every exit path of the pipeline.
//
// Scheduling strategy is read once at Start: manual installs nothing,
// periodic installs a per-tenant ticker, watch installs a per-tenant
// filesystem observer with a quiet-window debounce. Stop cancels every timer
// and observer but never an in-flight pipeline run.
package indexer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/s950329/qmd-bridge/internal/config"
	"github.com/s950329/qmd-bridge/internal/qmd"
	"github.com/s950329/qmd-bridge/internal/tenant"
)

// Scheduler owns all per-tenant background indexing state. Timers and
// observers belong to the instance, so tests can run schedulers side by side
// without leaking handles across them.
type Scheduler struct {
	settings func() config.Settings
	runner   *qmd.Runner
	logger   *slog.Logger

	mu         sync.Mutex
	inProgress map[string]bool
	cancels    []chan struct{}
	started    bool
	stopped    bool

	// wg tracks pipeline runs and strategy loops. Wait is for tests and
	// orderly daemon shutdown; Stop does not wait.
	wg sync.WaitGroup
}

// New creates a Scheduler. settings is read at call time for tool and
// debounce configuration; the strategy itself is fixed at Start.
func New(settings func() config.Settings, runner *qmd.Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		settings:   settings,
		runner:     runner,
		logger:     logger,
		inProgress: make(map[string]bool),
	}
}

// Start installs per-tenant triggers according to the configured strategy.
// A manual strategy installs nothing.
func (s *Scheduler) Start(tenants []tenant.Tenant) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	s.started = true
	s.mu.Unlock()

	cfg := s.settings()
	switch cfg.Strategy {
	case config.StrategyManual:
		s.logger.Info("indexing strategy is manual, no triggers installed")
		return nil

	case config.StrategyPeriodic:
		for _, t := range tenants {
			stop := s.newCancel()
			s.wg.Add(1)
			go s.periodicLoop(t, cfg.UpdateInterval(), stop)
		}
		s.logger.Info("periodic indexing started",
			slog.Int("tenants", len(tenants)),
			slog.Duration("interval", cfg.UpdateInterval()),
		)
		return nil

	case config.StrategyWatch:
		for _, t := range tenants {
			stop := s.newCancel()
			w, err := newWatch(t, cfg.WatchDebounce(), s.logger)
			if err != nil {
				// A tenant whose path cannot be observed does not
				// stop the scheduler for the others.
				s.logger.Error("watch setup failed",
					slog.String("tenant", t.Label),
					slog.String("error", err.Error()),
				)
				continue
			}
			s.wg.Add(1)
			go s.watchLoop(t, w, stop)
		}
		s.logger.Info("watch indexing started", slog.Int("tenants", len(tenants)))
		return nil

	default:
		return fmt.Errorf("unknown indexing strategy %q", cfg.Strategy)
	}
}

// newCancel registers a cancellation channel owned by this instance.
func (s *Scheduler) newCancel() chan struct{} {
	stop := make(chan struct{})
	s.mu.Lock()
	s.cancels = append(s.cancels, stop)
	s.mu.Unlock()
	return stop
}

// Stop cancels every timer and observer. Idempotent. In-flight pipeline runs
// finish on their own; use Wait to block for them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, c := range cancels {
		close(c)
	}
	s.logger.Info("indexing scheduler stopped")
}

// Wait blocks until all strategy loops and pipeline runs have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// IsInProgress reports whether the tenant's pipeline is currently Running.
// The boundary layer uses this to answer a conflicting trigger with
// IndexInProgress instead of double-triggering.
func (s *Scheduler) IsInProgress(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProgress[label]
}

// TriggerIndex fires the tenant's pipeline and returns immediately. The run
// shares the single-flight guard with scheduled triggers; whichever
// test-and-set wins runs, the loser is a no-op.
func (s *Scheduler) TriggerIndex(t tenant.Tenant) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runPipeline(t)
	}()
}

// periodicLoop fires the pipeline at the configured interval until stopped.
func (s *Scheduler) periodicLoop(t tenant.Tenant, interval time.Duration, stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.runPipeline(t)
		}
	}
}

// watchLoop drains observer events, debounces them with a quiet window, and
// fires the pipeline once per quiet burst.
func (s *Scheduler) watchLoop(t tenant.Tenant, w *watch, stop <-chan struct{}) {
	defer s.wg.Done()
	defer w.close()

	// The timer starts disarmed; every event re-arms it for the full
	// window, so the pipeline fires only after the burst goes quiet.
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	evCh := w.events()
	errCh := w.errors()

	for {
		select {
		case <-stop:
			return
		case _, ok := <-evCh:
			if !ok {
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case err, ok := <-errCh:
			if !ok {
				return
			}
			// Observer errors are logged and the loop keeps running.
			s.logger.Warn("watch error",
				slog.String("tenant", t.Label),
				slog.String("error", err.Error()),
			)
		case <-timer.C:
			s.runPipeline(t)
		}
	}
}
