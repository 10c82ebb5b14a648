package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/keepsite/apiserver/config"
)

// ObjectStorage defines the object operations the attachment service
// needs, implemented by the MinIO and GCS backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// NewFromConfig selects a backend by name. An empty backend returns
// (nil, nil): attachments are simply disabled.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "minio":
		return NewMinioClient(cfg.Minio)
	case "gcs":
		return NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

var errMissingConfig = errors.New("incomplete storage configuration")
