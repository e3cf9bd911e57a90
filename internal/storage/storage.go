package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"clipforge/internal/config"
)

// Namespaces partition the asset store by lifecycle. Each namespace carries
// its own retention policy.
const (
	NamespaceUploads    = "uploads"
	NamespaceProcessing = "processing"
	NamespaceResults    = "results"
)

// Asset describes one stored object.
type Asset struct {
	Key          string
	ContentType  string
	SizeBytes    int64
	LastModified time.Time
}

// Backend is the asset store contract shared by the local filesystem and S3
// implementations. Keys are slash-separated and namespace-prefixed.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Asset, error)
	Move(ctx context.Context, srcKey, dstKey string) error
	Presign(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// New constructs the backend selected by configuration.
func New(cfg config.Storage) (Backend, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocal(cfg.Root)
	case "s3":
		return NewRemote(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// UploadKey places a source asset under the uploads namespace.
func UploadKey(jobID, name string) string {
	return join(NamespaceUploads, jobID, name)
}

// ProcessingKey places an intermediate artifact under the processing
// namespace.
func ProcessingKey(jobID, name string) string {
	return join(NamespaceProcessing, jobID, name)
}

// ResultKey places a finished deliverable under the results namespace.
func ResultKey(jobID, name string) string {
	return join(NamespaceResults, jobID, name)
}

func join(parts ...string) string {
	return path.Join(parts...)
}

// cleanKey rejects traversal outside the store root.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(key, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}
