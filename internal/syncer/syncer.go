// Package syncer implements the periodic reconciliation between the
// remote object store and the local RPA shared folders: a download
// pass for new input objects and an upload pass for newly produced
// completed files, with progress persisted after every transfer.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hqops/rpa-sync-agent/internal/config"
	"github.com/hqops/rpa-sync-agent/internal/metrics"
	"github.com/hqops/rpa-sync-agent/internal/state"
	"github.com/hqops/rpa-sync-agent/internal/storage"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// Syncer runs the two one-directional sync passes. Single-threaded:
// passes run sequentially within each iteration and iterations are
// serialized by the interval sleep.
type Syncer struct {
	mappings   *config.Mappings
	suffix     string
	interval   time.Duration
	remote     storage.ObjectStore
	state      *state.State
	stateStore state.Store
	clock      clockwork.Clock
	cooldown   *cooldownTracker
	registry   *watchRegistry
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// New creates a Syncer and loads prior sync state from the store.
func New(cfg *config.Config, mappings *config.Mappings, remote storage.ObjectStore, store state.Store, clock clockwork.Clock, m *metrics.Metrics) (*Syncer, error) {
	st, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}

	return &Syncer{
		mappings:   mappings,
		suffix:     cfg.Sync.CompletionSuffix,
		interval:   cfg.Sync.Interval(),
		remote:     remote,
		state:      st,
		stateStore: store,
		clock:      clock,
		cooldown:   newCooldownTracker(clock),
		registry:   newWatchRegistry(),
		metrics:    m,
		log:        slog.With("component", "syncer"),
	}, nil
}

// Run executes sync passes on the configured interval until the
// context is cancelled. Errors escaping a pass are logged and the
// loop continues; only cancellation stops it.
func (s *Syncer) Run(ctx context.Context) error {
	s.log.Info("sync loop started",
		"interval", s.interval.String(),
		"input_mappings", len(s.mappings.Inputs),
		"completed_mappings", len(s.mappings.Completed),
		"downloaded", len(s.state.Downloaded),
		"uploaded", len(s.state.Uploaded),
		"baseline_time", s.state.BaselineTime,
	)

	for {
		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.interval):
		}
	}
}

// RunOnce executes a single iteration: download pass, then upload pass.
func (s *Syncer) RunOnce(ctx context.Context) {
	start := s.clock.Now()

	if err := s.downloadPass(ctx); err != nil {
		s.log.Error("download pass failed", "error", err)
	}
	if err := s.uploadPass(ctx); err != nil {
		s.log.Error("upload pass failed", "error", err)
	}

	s.metrics.ObservePassDuration(s.clock.Since(start).Seconds())
	s.metrics.SetLastPassTime(float64(s.clock.Now().Unix()))
}

// saveState persists the state snapshot. A save failure is logged but
// does not abort the pass: the worst case on crash is a re-transfer,
// never a silent skip.
func (s *Syncer) saveState() {
	if err := s.stateStore.Save(s.state); err != nil {
		s.log.Error("state save failed", "error", err)
	}
}
