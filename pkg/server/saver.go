package server

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/corkboard-dev/corkboard/pkg/persist"
	"github.com/corkboard-dev/corkboard/pkg/state"
)

// Saver drives periodic snapshot persistence. Saves are gated on the
// store's dirty flag so burst writes amortize into one write per cycle,
// and a simple in-flight guard skips a cycle rather than overlapping two
// save attempts.
type Saver struct {
	store    *state.Store
	backend  persist.Store
	metrics  *Metrics
	interval time.Duration
	logger   *slog.Logger

	inFlight atomic.Bool
}

// NewSaver wires the snapshot loop.
func NewSaver(store *state.Store, backend persist.Store, metrics *Metrics,
	interval time.Duration, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		store:    store,
		backend:  backend,
		metrics:  metrics,
		interval: interval,
		logger:   logger.With("component", "saver"),
	}
}

// Run ticks until ctx is cancelled, then makes a final flush attempt.
func (s *Saver) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.maybeSave(ctx)

		case <-ctx.Done():
			s.Flush()
			return
		}
	}
}

// maybeSave saves asynchronously when the store is dirty and no save is
// already in flight. The save operates on a point-in-time deep copy, so a
// concurrent mutation never changes the bytes being serialized.
func (s *Saver) maybeSave(ctx context.Context) {
	if !s.store.Dirty() {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		// A save is still running; skip this cycle.
		return
	}

	boards, gen := s.store.Snapshot()
	go func() {
		defer s.inFlight.Store(false)

		start := time.Now()
		err := s.backend.Save(ctx, boards)
		s.metrics.RecordSnapshot(err, start)
		if err != nil {
			// In-memory state stays authoritative; the next cycle retries.
			s.logger.Error("snapshot save failed, serving from memory", "error", err)
			return
		}
		s.store.MarkSaved(gen)
		s.logger.Debug("snapshot saved", "boards", len(boards))
	}()
}

// Flush performs a best-effort synchronous save, used at shutdown.
func (s *Saver) Flush() {
	if !s.store.Dirty() {
		return
	}
	boards, gen := s.store.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	err := s.backend.Save(ctx, boards)
	s.metrics.RecordSnapshot(err, start)
	if err != nil {
		s.logger.Error("final snapshot save failed", "error", err)
		return
	}
	s.store.MarkSaved(gen)
}
