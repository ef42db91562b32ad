// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers an optional .env file, an optional YAML file and HOUSECUP_* env vars on top.
// - Validate reports missing backend credentials; callers decide whether to halt.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the collection store: memory or redis.
	StoreBackend string `koanf:"store_backend"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	// RedisPrefix namespaces every key and channel the store touches.
	RedisPrefix string `koanf:"redis_prefix"`

	// BlobBackend selects the photo store: memory or s3.
	BlobBackend string `koanf:"blob_backend"`

	S3Endpoint        string `koanf:"s3_endpoint"`
	S3Region          string `koanf:"s3_region"`
	S3Bucket          string `koanf:"s3_bucket"`
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
	// S3PublicBaseURL is prepended to object keys to build retrievable URLs.
	S3PublicBaseURL string `koanf:"s3_public_base_url"`

	// QueueSize bounds pending event submissions for the serialized reconciler.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the idempotency key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// LoadingTimeoutMS clears the loading flag even if a subscription never delivers.
	LoadingTimeoutMS int `koanf:"loading_timeout_ms"`

	// RepairIntervalS schedules the rank repair sweep; 0 disables it.
	RepairIntervalS int `koanf:"repair_interval_s"`

	// SeedDefaultHouses creates the four default houses when the store is empty.
	SeedDefaultHouses bool `koanf:"seed_default_houses"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreBackend:      BackendMemory,
		RedisPrefix:       "housecup",
		BlobBackend:       BackendMemory,
		S3Region:          "auto",
		QueueSize:         1024,
		DedupeSize:        10_000,
		LoadingTimeoutMS:  1000,
		RepairIntervalS:   0,
		SeedDefaultHouses: true,
	}
}

// LoadingTimeout returns LoadingTimeoutMS as a duration.
func (c *Config) LoadingTimeout() time.Duration {
	return time.Duration(c.LoadingTimeoutMS) * time.Millisecond
}

// RepairInterval returns RepairIntervalS as a duration.
func (c *Config) RepairInterval() time.Duration {
	return time.Duration(c.RepairIntervalS) * time.Second
}

// Validate checks structural settings and reports missing credentials for the
// selected backends. Unknown backends and an empty address are structural
// errors (ErrInvalidConfig); missing credentials are reported through
// *MissingCredentialsError so the caller can keep running unconfigured.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}

	var missing []string
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			missing = append(missing, "redis_addr")
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}

	switch c.BlobBackend {
	case BackendMemory:
	case BackendS3:
		for key, val := range map[string]string{
			"s3_bucket":            c.S3Bucket,
			"s3_access_key_id":     c.S3AccessKeyID,
			"s3_secret_access_key": c.S3SecretAccessKey,
		} {
			if val == "" {
				missing = append(missing, key)
			}
		}
	default:
		return fmt.Errorf("%w: unknown blob_backend %q", ErrInvalidConfig, c.BlobBackend)
	}

	if len(missing) > 0 {
		return &MissingCredentialsError{Keys: sortedCopy(missing)}
	}
	return nil
}
