package owid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/emissions-globe-service/internal/adapter/cache"
	"github.com/couchcryptid/emissions-globe-service/internal/domain"
	"github.com/couchcryptid/emissions-globe-service/internal/observability"
)

// CachedSource wraps a RawSource with the raw artifact cache. A present
// artifact that decodes to at least one serveable region is always used;
// there is no expiry.
type CachedSource struct {
	inner   domain.RawSource
	store   cache.Store
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedSource creates a cache-first decorator around a raw source.
func NewCachedSource(inner domain.RawSource, store cache.Store, metrics *observability.Metrics, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		inner:   inner,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchRaw returns the cached raw dataset, or fetches it from the wrapped
// source and stores it when the artifact is missing or unusable.
func (c *CachedSource) FetchRaw(ctx context.Context) (domain.RawDataset, error) {
	if raw, ok := c.load(ctx); ok {
		return raw, nil
	}

	raw, err := c.inner.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		c.logger.Warn("encode raw artifact failed", "error", err)
		return raw, nil
	}
	// A failed write only costs a download on the next start.
	if err := c.store.Put(ctx, cache.RawArtifact, data); err != nil {
		c.logger.Warn("write raw artifact failed", "artifact", cache.RawArtifact, "error", err)
	}
	return raw, nil
}

func (c *CachedSource) load(ctx context.Context) (domain.RawDataset, bool) {
	data, err := c.store.Get(ctx, cache.RawArtifact)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		c.metrics.CacheLookups.WithLabelValues(cache.RawArtifact, "miss").Inc()
		return nil, false
	case err != nil:
		c.metrics.CacheLookups.WithLabelValues(cache.RawArtifact, "error").Inc()
		c.logger.Warn("read raw artifact failed", "artifact", cache.RawArtifact, "error", err)
		return nil, false
	}

	raw, err := DecodeRawArtifact(data)
	if err != nil {
		c.metrics.CacheLookups.WithLabelValues(cache.RawArtifact, "error").Inc()
		c.logger.Warn("raw artifact unusable, refetching", "artifact", cache.RawArtifact, "error", err)
		return nil, false
	}
	if len(domain.Normalize(raw)) == 0 {
		c.metrics.CacheLookups.WithLabelValues(cache.RawArtifact, "miss").Inc()
		c.logger.Warn("raw artifact has no serveable regions, refetching", "artifact", cache.RawArtifact, "entries", len(raw))
		return nil, false
	}

	c.metrics.CacheLookups.WithLabelValues(cache.RawArtifact, "hit").Inc()
	c.logger.Info("raw artifact loaded from cache", "regions", len(raw))
	return raw, true
}

// DecodeRawArtifact decodes a raw artifact in either the nested shape this
// service writes or OWID's native JSON shape.
func DecodeRawArtifact(data []byte) (domain.RawDataset, error) {
	raw, err := decodeJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode raw artifact: %w", err)
	}
	return raw, nil
}
