// Package archive exports a household's history (ledger, completions and
// activity) as gzip-compressed JSON to S3-compatible storage.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dukerupert/chorewheel/internal/model"
)

var ErrDisabled = errors.New("archive storage is not configured")

// s3Client is the subset of *s3.Client the exporter uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type TokenSource interface {
	List(ctx context.Context, householdID int64) ([]model.TokenEntry, error)
}

type CompletionSource interface {
	ListCompletions(ctx context.Context, householdID int64) ([]model.TaskCompletion, error)
}

type ActivitySource interface {
	List(ctx context.Context, householdID int64, limit, offset int) ([]model.ActivityEntry, error)
}

// Snapshot is the archived document.
type Snapshot struct {
	HouseholdID  int64                  `json:"household_id"`
	ExportedAt   time.Time              `json:"exported_at"`
	TokenEntries []model.TokenEntry     `json:"token_entries"`
	Completions  []model.TaskCompletion `json:"completions"`
	Activity     []model.ActivityEntry  `json:"activity"`
}

type Result struct {
	Key       string    `json:"key"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type Exporter struct {
	client      s3Client
	bucket      string
	tokens      TokenSource
	completions CompletionSource
	activity    ActivitySource
	logger      *slog.Logger
	now         func() time.Time
}

// NewExporter returns an Exporter. With incomplete S3 settings the exporter
// is disabled and Export returns ErrDisabled.
func NewExporter(cfg S3Config, tokens TokenSource, completions CompletionSource, activity ActivitySource, logger *slog.Logger) *Exporter {
	e := &Exporter{
		bucket:      cfg.Bucket,
		tokens:      tokens,
		completions: completions,
		activity:    activity,
		logger:      logger,
		now:         time.Now,
	}
	if cfg.Enabled() {
		e.client = newS3Client(cfg)
	}
	return e
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (e *Exporter) Enabled() bool {
	return e.client != nil
}

// Key returns the object key for an archive taken at t.
func Key(householdID int64, t time.Time, id uuid.UUID) string {
	return fmt.Sprintf("households/%d/history-%s-%s.json.gz", householdID, t.UTC().Format("20060102T150405Z"), id)
}

// Export reads the household's history and uploads it. History is only read.
func (e *Exporter) Export(ctx context.Context, householdID int64) (*Result, error) {
	if e.client == nil {
		return nil, ErrDisabled
	}

	snap, err := e.snapshot(ctx, householdID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress archive: %w", err)
	}

	key := Key(householdID, snap.ExportedAt, uuid.New())
	size := buf.Len()
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(e.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload archive: %w", err)
	}

	e.logger.Info("history archived", "household_id", householdID, "key", key, "size_bytes", size,
		"token_entries", len(snap.TokenEntries), "completions", len(snap.Completions), "activity", len(snap.Activity))
	return &Result{Key: key, SizeBytes: size, CreatedAt: snap.ExportedAt}, nil
}

// Fetch downloads and decodes an archive.
func (e *Exporter) Fetch(ctx context.Context, key string) (*Snapshot, error) {
	if e.client == nil {
		return nil, ErrDisabled
	}
	out, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}
	defer out.Body.Close()

	zr, err := gzip.NewReader(out.Body)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	return &snap, nil
}

func (e *Exporter) snapshot(ctx context.Context, householdID int64) (*Snapshot, error) {
	tokens, err := e.tokens.List(ctx, householdID)
	if err != nil {
		return nil, err
	}
	completions, err := e.completions.ListCompletions(ctx, householdID)
	if err != nil {
		return nil, err
	}
	activity, err := e.activity.List(ctx, householdID, 0, 0)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		HouseholdID:  householdID,
		ExportedAt:   e.now().UTC(),
		TokenEntries: tokens,
		Completions:  completions,
		Activity:     activity,
	}
	if snap.TokenEntries == nil {
		snap.TokenEntries = []model.TokenEntry{}
	}
	if snap.Completions == nil {
		snap.Completions = []model.TaskCompletion{}
	}
	if snap.Activity == nil {
		snap.Activity = []model.ActivityEntry{}
	}
	return snap, nil
}
