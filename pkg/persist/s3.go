package persist

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/corkboard-dev/corkboard/internal/errors"
	"github.com/corkboard-dev/corkboard/pkg/board"
)

// S3Store persists the board snapshot in an S3 bucket. It implements the
// same Store contract as FileStore, for deployments without a writable
// disk.
//
// Example:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	store := persist.NewS3Store(s3.NewFromConfig(cfg), "my-bucket", "corkboard/", nil)
type S3Store struct {
	client   *s3.Client
	bucket   string
	prefix   string
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// NewS3Store creates an S3 snapshot store.
func NewS3Store(client *s3.Client, bucket, prefix string, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Store{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		attempts: defaultMaxAttempts,
		backoff:  defaultRetryBackoff,
		logger:   logger.With("component", "persist_s3"),
	}
}

// WithRetry overrides the retry policy.
func (s *S3Store) WithRetry(attempts int, backoff time.Duration) *S3Store {
	s.attempts = attempts
	s.backoff = backoff
	return s
}

func (s *S3Store) snapshotKey() string { return s.prefix + SnapshotFileName }
func (s *S3Store) backupKey() string   { return s.prefix + BackupFileName }

// Initialize verifies the bucket is reachable.
func (s *S3Store) Initialize(ctx context.Context) error {
	err := withRetry(ctx, s.attempts, s.backoff, func() error {
		_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(s.bucket),
		})
		return err
	})
	if err != nil {
		return errors.New("E303").Wrap(err)
	}
	return nil
}

// Load reads the snapshot object, falling back to the backup object when
// the primary is corrupt, and to an empty collection when neither exists.
func (s *S3Store) Load(ctx context.Context) ([]*board.Board, error) {
	boards, err := s.loadKey(ctx, s.snapshotKey())
	if err == nil {
		return s.filterValid(boards), nil
	}
	if isNoSuchKey(err) {
		return []*board.Board{}, nil
	}
	if !isCorrupt(err) {
		return nil, errors.New("E302").Wrap(err)
	}

	s.logger.Warn("primary snapshot object corrupt, trying backup", "error", err)

	boards, bakErr := s.loadKey(ctx, s.backupKey())
	if bakErr == nil {
		return s.filterValid(boards), nil
	}
	if isNoSuchKey(bakErr) || isCorrupt(bakErr) {
		s.logger.Error("no usable snapshot object, starting empty",
			"primary_error", err, "backup_error", bakErr)
		return []*board.Board{}, nil
	}
	return nil, errors.New("E302").Wrap(bakErr)
}

// Save copies the current snapshot to the backup key, then overwrites the
// snapshot key. S3 puts are atomic per object, so readers never observe a
// partial snapshot.
func (s *S3Store) Save(ctx context.Context, boards []*board.Board) error {
	data, err := json.Marshal(boards)
	if err != nil {
		return errors.New("E301").Wrap(err)
	}

	err = withRetry(ctx, s.attempts, s.backoff, func() error {
		if err := s.preserveBackup(ctx); err != nil {
			return err
		}
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.snapshotKey()),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		return err
	})
	if err != nil {
		return errors.New("E301").Wrap(err)
	}
	return nil
}

func (s *S3Store) preserveBackup(ctx context.Context) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + s.snapshotKey()),
		Key:        aws.String(s.backupKey()),
	})
	if err != nil && !isNoSuchKey(err) {
		return err
	}
	return nil
}

func (s *S3Store) loadKey(ctx context.Context, key string) ([]*board.Board, error) {
	var boards []*board.Board
	err := withRetry(ctx, s.attempts, s.backoff, func() error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()
		data, err := io.ReadAll(out.Body)
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

func (s *S3Store) filterValid(boards []*board.Board) []*board.Board {
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

// isNoSuchKey reports whether the S3 error means the object is absent.
func isNoSuchKey(err error) bool {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound" || code == "404"
	}
	return false
}
