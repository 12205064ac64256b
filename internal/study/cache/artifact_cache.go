// Package cache provides a compressed read-through cache for study
// artifacts (datasets and analysis scripts) fetched from object
// storage.
package cache

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	commoncache "codehosp/internal/common/cache"
	"codehosp/internal/common/storage"
	appErr "codehosp/pkg/errors"
)

const (
	artifactKeyPrefix = "verify:artifact:"

	// defaultMaxArtifactBytes bounds one dataset or script. Larger
	// objects are rejected rather than streamed through the pipeline.
	defaultMaxArtifactBytes = 16 << 20
)

// ArtifactCache serves artifact content by object key, caching
// zstd-compressed copies in Redis so repeated verification runs skip
// the storage round trip.
type ArtifactCache struct {
	cache    commoncache.Cache
	storage  storage.ObjectStorage
	bucket   string
	ttl      time.Duration
	maxBytes int64
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// Config holds artifact cache settings.
type Config struct {
	Bucket   string        `yaml:"bucket"`
	TTL      time.Duration `yaml:"ttl"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// NewArtifactCache creates the cache. cacheClient may be nil, which
// degrades to direct storage reads.
func NewArtifactCache(cfg Config, cacheClient commoncache.Cache, storageClient storage.ObjectStorage) (*ArtifactCache, error) {
	if storageClient == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxArtifactBytes
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ArtifactCache{
		cache:    cacheClient,
		storage:  storageClient,
		bucket:   cfg.Bucket,
		ttl:      cfg.TTL,
		maxBytes: cfg.MaxBytes,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

// Fetch returns the artifact content for an object key.
func (c *ArtifactCache) Fetch(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", appErr.New(appErr.InvalidObjectKey)
	}

	cacheKey := artifactKeyPrefix + objectKey
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			if content, err := c.decode(cached); err == nil {
				return content, nil
			}
			// Corrupt entry, drop it and fall through to storage.
			_ = c.cache.Del(ctx, cacheKey)
		}
	}

	content, err := c.download(ctx, objectKey)
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, cacheKey, c.encode(content), commoncache.JitterTTL(c.ttl))
	}
	return content, nil
}

func (c *ArtifactCache) download(ctx context.Context, objectKey string) (string, error) {
	reader, err := c.storage.GetObject(ctx, c.bucket, objectKey)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.DownloadFailed, "fetch artifact %s failed", objectKey)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, c.maxBytes+1))
	if err != nil {
		return "", appErr.Wrapf(err, appErr.DownloadFailed, "read artifact %s failed", objectKey)
	}
	if int64(len(data)) > c.maxBytes {
		return "", appErr.New(appErr.ObjectTooLarge).WithMessage(fmt.Sprintf("artifact %s exceeds %d bytes", objectKey, c.maxBytes))
	}
	return string(data), nil
}

func (c *ArtifactCache) encode(content string) string {
	compressed := c.encoder.EncodeAll([]byte(content), nil)
	return base64.StdEncoding.EncodeToString(compressed)
}

func (c *ArtifactCache) decode(cached string) (string, error) {
	compressed, err := base64.StdEncoding.DecodeString(cached)
	if err != nil {
		return "", err
	}
	data, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
