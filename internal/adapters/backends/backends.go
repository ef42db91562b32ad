// Package backends builds the collection store and blob store selected by
// configuration. Backends whose credentials are missing are replaced by
// their Unconfigured variants so the process can still start.
package backends

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/okian/housecup/internal/adapters/blob"
	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/config"
	"github.com/okian/housecup/pkg/logger"
)

// Backends holds the opened stores.
type Backends struct {
	Store store.Store
	Blobs blob.Store
	// StoreName and BlobName describe what was opened, e.g. "redis" or
	// "unconfigured".
	StoreName string
	BlobName  string
}

// MemoryBlobs returns the blob store when it keeps objects in process.
func (b *Backends) MemoryBlobs() (*blob.Memory, bool) {
	m, ok := b.Blobs.(*blob.Memory)
	return m, ok
}

// Close releases the collection store.
func (b *Backends) Close() error {
	if b.Store == nil {
		return nil
	}
	return b.Store.Close()
}

// Open validates cfg and opens its backends. Missing credentials are logged
// and leave the affected backend unconfigured; any other validation error
// is returned.
func Open(ctx context.Context, cfg *config.Config, l logger.Logger) (*Backends, error) {
	var missing *config.MissingCredentialsError
	if err := cfg.Validate(); err != nil {
		if !errors.As(err, &missing) {
			return nil, err
		}
		l.Warn(ctx, "backend credentials missing, affected operations will fail",
			logger.Strings("keys", missing.Keys))
	}

	b := &Backends{}
	switch {
	case cfg.StoreBackend == config.BackendRedis && missing != nil && missing.Has("redis_addr"):
		b.Store = store.Unconfigured{Reason: "redis_addr is not set"}
		b.StoreName = "unconfigured"
	case cfg.StoreBackend == config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		b.Store = store.NewRedis(client,
			store.WithLogger(l.Named("store")),
			store.WithKeyPrefix(cfg.RedisPrefix))
		b.StoreName = config.BackendRedis
	default:
		b.Store = store.NewMemory(store.WithLogger(l.Named("store")))
		b.StoreName = config.BackendMemory
	}

	switch {
	case cfg.BlobBackend == config.BackendS3 && missing != nil && missingS3(missing):
		b.Blobs = blob.Unconfigured{Reason: "s3 credentials are not set"}
		b.BlobName = "unconfigured"
	case cfg.BlobBackend == config.BackendS3:
		s3, err := blob.NewS3(ctx, blob.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		b.Blobs = s3
		b.BlobName = config.BackendS3
	default:
		b.Blobs = blob.NewMemory("")
		b.BlobName = config.BackendMemory
	}

	l.Info(ctx, "backends opened",
		logger.String("store", b.StoreName), logger.String("blobs", b.BlobName))
	return b, nil
}

func missingS3(e *config.MissingCredentialsError) bool {
	for _, k := range e.Keys {
		if strings.HasPrefix(k, "s3_") {
			return true
		}
	}
	return false
}
