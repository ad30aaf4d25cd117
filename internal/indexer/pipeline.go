package indexer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/s950329/qmd-bridge/internal/qmd"
	"github.com/s950329/qmd-bridge/internal/tenant"
)

// runPipeline executes one index refresh for the tenant: list collections,
// create the tenant's collection if missing, then embed. Any step's failure
// aborts the rest and is logged; nothing propagates past this boundary
// because a background run has no synchronous caller.
func (s *Scheduler) runPipeline(t tenant.Tenant) {
	if !s.begin(t.Label) {
		s.logger.Debug("index already in progress, skipping", slog.String("tenant", t.Label))
		return
	}
	defer s.end(t.Label)

	cfg := s.settings()
	opts := qmd.RunOptions{
		Bin: cfg.ToolBin,
		// Index builds legitimately run long; the scheduler imposes no
		// deadline. Callers needing one enforce it externally.
		Timeout:        0,
		MaxOutputBytes: cfg.MaxOutputBytes,
	}
	ctx := context.Background()

	s.logger.Info("index pipeline started",
		slog.String("tenant", t.Label),
		slog.String("collection", t.Collection),
	)

	listing, err := s.runner.Run(ctx, opts, qmd.CollectionListArgs()...)
	if err != nil {
		s.logger.Error("collection listing failed",
			slog.String("tenant", t.Label),
			slog.String("error", err.Error()),
		)
		return
	}

	if !listingContains(string(listing.Stdout), t.Collection) {
		if _, err := s.runner.Run(ctx, opts, qmd.CollectionAddArgs(t.Path, t.Collection)...); err != nil {
			s.logger.Error("collection creation failed",
				slog.String("tenant", t.Label),
				slog.String("collection", t.Collection),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Info("collection created",
			slog.String("tenant", t.Label),
			slog.String("collection", t.Collection),
		)
	}

	if _, err := s.runner.Run(ctx, opts, qmd.EmbedArgs(t.Collection)...); err != nil {
		s.logger.Error("embed failed",
			slog.String("tenant", t.Label),
			slog.String("collection", t.Collection),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("index pipeline finished", slog.String("tenant", t.Label))
}

// begin is the Idle → Running test-and-set.
func (s *Scheduler) begin(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inProgress[label] {
		return false
	}
	s.inProgress[label] = true
	return true
}

// end is the Running → Idle transition; unconditional on every exit path.
func (s *Scheduler) end(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inProgress, label)
}

// listingContains reports whether the collection name appears as a discrete
// token in the tool's `collection list` output.
func listingContains(listing, collection string) bool {
	for _, line := range strings.Split(listing, "\n") {
		for _, field := range strings.Fields(line) {
			if field == collection {
				return true
			}
		}
	}
	return false
}
