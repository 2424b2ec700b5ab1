package persist

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/corkboard-dev/corkboard/internal/errors"
	"github.com/corkboard-dev/corkboard/pkg/board"
)

const (
	// SnapshotFileName is the primary snapshot file inside the data dir.
	SnapshotFileName = "boards.json"

	// BackupFileName holds the immediately-prior snapshot.
	BackupFileName = "boards.json.bak"

	// tempFilePrefix is the prefix for atomic write temp files.
	tempFilePrefix = "corkboard-tmp-"
)

// FileStore persists the board collection as a JSON snapshot on disk.
type FileStore struct {
	dir      string
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		dir:      dir,
		attempts: defaultMaxAttempts,
		backoff:  defaultRetryBackoff,
		logger:   logger.With("component", "persist"),
	}
}

// WithRetry overrides the retry policy.
func (s *FileStore) WithRetry(attempts int, backoff time.Duration) *FileStore {
	s.attempts = attempts
	s.backoff = backoff
	return s
}

func (s *FileStore) snapshotPath() string { return filepath.Join(s.dir, SnapshotFileName) }
func (s *FileStore) backupPath() string   { return filepath.Join(s.dir, BackupFileName) }

// Initialize creates the data directory if needed.
func (s *FileStore) Initialize(ctx context.Context) error {
	err := withRetry(ctx, s.attempts, s.backoff, func() error {
		return os.MkdirAll(s.dir, 0o755)
	})
	if err != nil {
		return errors.New("E303").Wrap(err)
	}
	return nil
}

// Load reads the snapshot, falling back to the backup when the primary is
// corrupt, and to an empty collection when neither parses or no snapshot
// exists. Individually invalid boards are dropped with a warning.
func (s *FileStore) Load(ctx context.Context) ([]*board.Board, error) {
	boards, err := s.loadFile(ctx, s.snapshotPath())
	if err == nil {
		return s.filterValid(boards), nil
	}
	if stderrors.Is(err, os.ErrNotExist) {
		return []*board.Board{}, nil
	}
	if !isCorrupt(err) {
		// Unrecoverable I/O after retries, not a parse failure.
		return nil, errors.New("E302").Wrap(err)
	}

	s.logger.Warn("primary snapshot corrupt, trying backup", "error", err)

	boards, bakErr := s.loadFile(ctx, s.backupPath())
	if bakErr == nil {
		return s.filterValid(boards), nil
	}
	if stderrors.Is(bakErr, os.ErrNotExist) || isCorrupt(bakErr) {
		// Corrupt primary with no usable backup: start empty, not fail.
		s.logger.Error("no usable snapshot, starting empty",
			"primary_error", err, "backup_error", bakErr)
		return []*board.Board{}, nil
	}
	return nil, errors.New("E302").Wrap(bakErr)
}

// Save writes the collection atomically (temp file + rename) and keeps the
// prior snapshot as the backup before overwriting it.
func (s *FileStore) Save(ctx context.Context, boards []*board.Board) error {
	data, err := json.MarshalIndent(boards, "", "  ")
	if err != nil {
		return errors.New("E301").Wrap(err)
	}

	err = withRetry(ctx, s.attempts, s.backoff, func() error {
		// Preserve the current snapshot before it is replaced.
		if _, statErr := os.Stat(s.snapshotPath()); statErr == nil {
			if cpErr := copyFile(s.snapshotPath(), s.backupPath()); cpErr != nil {
				return cpErr
			}
		}
		return writeFileAtomic(s.snapshotPath(), data, 0o644)
	})
	if err != nil {
		return errors.New("E301").Wrap(err)
	}
	return nil
}

func (s *FileStore) loadFile(ctx context.Context, path string) ([]*board.Board, error) {
	var boards []*board.Board
	err := withRetry(ctx, s.attempts, s.backoff, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &boards)
	})
	if err != nil {
		return nil, err
	}
	if boards == nil {
		boards = []*board.Board{}
	}
	return boards, nil
}

func (s *FileStore) filterValid(boards []*board.Board) []*board.Board {
	out := boards[:0]
	for _, b := range boards {
		if err := board.ValidateBoard(b); err != nil {
			s.logger.Warn("dropping invalid board from snapshot", "board", b.ID, "error", err)
			continue
		}
		out = append(out, b)
	}
	return out
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)

	tmpFile, err := os.CreateTemp(dir, tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return writeFileAtomic(dst, data, 0o644)
}

// isCorrupt reports whether the load failure was a parse failure rather
// than an I/O failure.
func isCorrupt(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return stderrors.As(err, &syntaxErr) || stderrors.As(err, &typeErr)
}
