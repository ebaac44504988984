package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrBucketNotSet is reported as the upload error when no bucket is configured.
var ErrBucketNotSet = errors.New("GCS_BUCKET_NAME is not set")

const (
	uploadMaxRetries     = 4
	uploadInitialBackoff = 1 * time.Second
	uploadWriteTimeout   = 50 * time.Second
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, content string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 412
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URI: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("GCS URI must name a bucket and an object: %q", uri)
	}
	return bucket, object, nil
}

// ReadObject downloads a whole object addressed by a gs:// URI.
func ReadObject(ctx context.Context, client *storage.Client, uri string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for %s: %w", uri, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", uri, err)
	}
	return data, nil
}

// ObjectReader reads whole objects by gs:// URI.
type ObjectReader struct {
	client *storage.Client
}

func NewObjectReader(client *storage.Client) *ObjectReader {
	return &ObjectReader{client: client}
}

func (r *ObjectReader) Read(ctx context.Context, uri string) ([]byte, error) {
	return ReadObject(ctx, r.client, uri)
}

// SnapshotStore writes write-once JSON snapshots under a path prefix of one bucket.
type SnapshotStore struct {
	bucket *storage.BucketHandle
	path   string
}

func NewSnapshotStore(client *storage.Client, bucket, path string) *SnapshotStore {
	return &SnapshotStore{bucket: client.Bucket(bucket), path: strings.Trim(path, "/")}
}

// Save stores content at path/name unless the object already exists.
func (s *SnapshotStore) Save(ctx context.Context, name, content string) error {
	object := name
	if s.path != "" {
		object = s.path + "/" + name
	}
	return SaveToGCSAtomically(ctx, s.bucket, object, content)
}

// UploadInfo describes a published artifact.
type UploadInfo struct {
	Bucket     string
	Object     string
	ConsoleURL string
	SignedURL  string
}

// GCSArtifactStoreConfig configures where rendered decks are published.
type GCSArtifactStoreConfig struct {
	Bucket       string
	Prefix       string
	SignedURL    bool
	SignedURLTTL time.Duration
}

// GCSArtifactStore publishes rendered decks to a bucket.
type GCSArtifactStore struct {
	client *storage.Client
	config GCSArtifactStoreConfig
}

func NewGCSArtifactStore(client *storage.Client, config GCSArtifactStoreConfig) *GCSArtifactStore {
	config.Prefix = strings.Trim(config.Prefix, "/")
	return &GCSArtifactStore{client: client, config: config}
}

// Bucket returns the configured bucket, possibly empty.
func (s *GCSArtifactStore) Bucket() string {
	return s.config.Bucket
}

// ObjectName joins the configured prefix and a file name.
func (s *GCSArtifactStore) ObjectName(filename string) string {
	if s.config.Prefix == "" {
		return filename
	}
	return s.config.Prefix + "/" + filename
}

// Upload writes data under prefix/filename, retrying transient failures.
// A signing failure leaves SignedURL empty and is not an error.
func (s *GCSArtifactStore) Upload(ctx context.Context, filename string, data []byte, contentType string) (*UploadInfo, error) {
	if s.config.Bucket == "" {
		return nil, ErrBucketNotSet
	}
	if s.client == nil {
		return nil, fmt.Errorf("storage client is not initialised")
	}

	object := s.ObjectName(filename)
	logCtx := slog.With("gcsBucket", s.config.Bucket, "gcsObject", object)

	err := withRetry(ctx, logCtx, uploadMaxRetries, uploadInitialBackoff, func(ctx context.Context) error {
		writeCtx, cancel := context.WithTimeout(ctx, uploadWriteTimeout)
		defer cancel()

		w := s.client.Bucket(s.config.Bucket).Object(object).NewWriter(writeCtx)
		w.ContentType = contentType
		if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
			_ = w.Close()
			return fmt.Errorf("io.Copy to GCS failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "upload", Object: object, Cause: err}
	}

	info := &UploadInfo{
		Bucket:     s.config.Bucket,
		Object:     object,
		ConsoleURL: ConsoleURL(s.config.Bucket, object),
	}
	if s.config.SignedURL {
		signed, err := s.client.Bucket(s.config.Bucket).SignedURL(object, &storage.SignedURLOptions{
			Scheme:  storage.SigningSchemeV4,
			Method:  "GET",
			Expires: time.Now().Add(s.config.SignedURLTTL),
		})
		if err != nil {
			logCtx.Warn("Could not sign URL, returning console URL only.", "error", err)
		} else {
			info.SignedURL = signed
		}
	}
	logCtx.Info("Artifact uploaded.", "bytes", len(data))
	return info, nil
}

// ConsoleURL returns the authenticated browser URL of an object.
func ConsoleURL(bucket, object string) string {
	segments := strings.Split(object, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("https://storage.cloud.google.com/%s/%s", bucket, strings.Join(segments, "/"))
}

// withRetry runs fn up to attempts times, doubling the wait between tries.
func withRetry(ctx context.Context, logCtx *slog.Logger, attempts int, backoff time.Duration, fn func(context.Context) error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		logCtx.Warn("Operation failed, will retry.",
			"attempt", i+1,
			"maxRetries", attempts,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			logCtx.Error("Context cancelled during backoff. Aborting retries.", "error", ctx.Err())
			return ctx.Err()
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
