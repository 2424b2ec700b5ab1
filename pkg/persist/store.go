// Package persist implements snapshot persistence for the board collection.
//
// The contract is whole-collection load/save: Save writes the full board
// set atomically and keeps the immediately-prior snapshot as a backup;
// Load returns an empty collection when no snapshot exists, falls back to
// the backup when the primary is corrupt, and drops individually invalid
// boards while keeping the rest. Transient failures are retried with
// backoff; exhausting retries surfaces an error the caller is expected to
// log and survive, serving from memory.
package persist

import (
	"context"
	"time"

	"github.com/corkboard-dev/corkboard/pkg/board"
)

// Store is the durable snapshot contract.
type Store interface {
	// Initialize creates or verifies the storage location. Idempotent.
	Initialize(ctx context.Context) error

	// Load returns the last saved board collection, or an empty slice if
	// none exists or neither snapshot parses. It only errors on
	// unrecoverable I/O after retries.
	Load(ctx context.Context) ([]*board.Board, error)

	// Save writes the collection atomically, retaining the prior snapshot
	// as a backup.
	Save(ctx context.Context, boards []*board.Board) error
}

// Retry policy shared by the store implementations.
const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 250 * time.Millisecond
)

// withRetry runs fn up to attempts times, doubling the backoff between
// tries. The context cancels waiting, not an in-flight attempt.
func withRetry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(backoff << i):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
