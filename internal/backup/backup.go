// Package backup takes encrypted snapshots of the landlord database and
// keeps them in S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"
)

// ErrNotConfigured means bucket or credentials are missing.
var ErrNotConfigured = errors.New("backup not configured: S3 bucket and credentials required")

const keyTimeLayout = "2006-01-02T150405Z"

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// Prefix namespaces snapshot keys inside the bucket, e.g. "landlord/".
	Prefix string
}

func (c S3Config) Configured() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Snapshot describes one stored backup object.
type Snapshot struct {
	Key       string    `json:"key"`
	TakenAt   time.Time `json:"taken_at"`
	SizeBytes int64     `json:"size_bytes"`
}

type Manager struct {
	cfg    S3Config
	db     *sql.DB
	client s3Client
	now    func() time.Time
	logger *slog.Logger
}

// NewManager returns ErrNotConfigured when cfg lacks a bucket or credentials.
func NewManager(cfg S3Config, db *sql.DB, logger *slog.Logger) (*Manager, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	return newManager(cfg, db, newS3Client(cfg), logger), nil
}

func newManager(cfg S3Config, db *sql.DB, client s3Client, logger *slog.Logger) *Manager {
	if cfg.Prefix != "" && !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}
	return &Manager{cfg: cfg, db: db, client: client, now: time.Now, logger: logger}
}

func newS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Run snapshots the live database, encrypts it and uploads it.
func (m *Manager) Run(ctx context.Context, passphrase string) (*Snapshot, error) {
	if passphrase == "" {
		return nil, errors.New("backup passphrase is required")
	}

	dir, err := os.MkdirTemp("", "landlord-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// VACUUM INTO gives a consistent copy without stopping writers.
	snapPath := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", snapPath); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}
	plaintext, err := os.ReadFile(snapPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	sealed, err := Seal(plaintext, passphrase)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	takenAt := m.now().UTC()
	key := fmt.Sprintf("%sbackup-%s.db.enc", m.cfg.Prefix, takenAt.Format(keyTimeLayout))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	m.logger.Info("backup uploaded", "key", key, "size", len(sealed))
	return &Snapshot{Key: key, TakenAt: takenAt, SizeBytes: int64(len(sealed))}, nil
}

// List returns stored snapshots, newest first.
func (m *Manager) List(ctx context.Context) ([]Snapshot, error) {
	var out []Snapshot
	var token *string
	for {
		page, err := m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(m.cfg.Bucket),
			Prefix:            aws.String(m.cfg.Prefix + "backup-"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			takenAt, ok := m.parseKey(key)
			if !ok {
				continue
			}
			out = append(out, Snapshot{Key: key, TakenAt: takenAt, SizeBytes: aws.ToInt64(obj.Size)})
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		token = page.NextContinuationToken
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.After(out[j].TakenAt) })
	return out, nil
}

func (m *Manager) parseKey(key string) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(key, m.cfg.Prefix+"backup-"), ".db.enc")
	t, err := time.Parse(keyTimeLayout, stamp)
	return t, err == nil
}

// Prune deletes snapshots older than retention, always keeping the newest
// one. It returns the deleted keys.
func (m *Manager) Prune(ctx context.Context, retention time.Duration) ([]string, error) {
	snaps, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := m.now().UTC().Add(-retention)

	var deleted []string
	for i, snap := range snaps {
		if i == 0 || !snap.TakenAt.Before(cutoff) {
			continue
		}
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.Bucket),
			Key:    aws.String(snap.Key),
		}); err != nil {
			m.logger.Error("delete old backup", "key", snap.Key, "error", err)
			continue
		}
		deleted = append(deleted, snap.Key)
	}
	return deleted, nil
}

// Restore downloads and decrypts a snapshot, checks its integrity and
// writes it to dst. dst must not be the database this process has open.
func (m *Manager) Restore(ctx context.Context, key, passphrase, dst string) error {
	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	plaintext, err := Open(sealed, passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".restore"
	if err := os.WriteFile(tmp, plaintext, 0o600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	defer os.Remove(tmp)

	if err := checkIntegrity(ctx, tmp); err != nil {
		return err
	}

	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	os.Remove(dst + "-wal")
	os.Remove(dst + "-shm")

	m.logger.Info("backup restored", "key", key, "path", dst)
	return nil
}

func checkIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
