package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/internal/cache"
	"github.com/BaSui01/agentscope/llm/observability"
	"github.com/BaSui01/agentscope/types"
)

// Cache is the subset of cache.Manager used to store inlined media.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CacheStats receives cache hit and miss counts. internal/metrics.Collector
// implements it.
type CacheStats interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

type nopStats struct{}

func (nopStats) RecordCacheHit(string)  {}
func (nopStats) RecordCacheMiss(string) {}

const cacheType = "media"

// CachedResolver stores inlined remote media so it is fetched once per TTL.
// Cache failures never fail a resolution; the inner resolver is used instead.
type CachedResolver struct {
	inner   Resolver
	cache   Cache
	ttl     time.Duration
	metrics *observability.Metrics
	stats   CacheStats
	logger  *zap.Logger
}

// NewCachedResolver 用缓存包装一个解析器
func NewCachedResolver(inner Resolver, c Cache, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{
		inner:   inner,
		cache:   c,
		ttl:     ttl,
		metrics: observability.Default(),
		stats:   nopStats{},
		logger:  logger.With(zap.String("component", "media_cache")),
	}
}

// WithStats 设置命中率统计
func (r *CachedResolver) WithStats(s CacheStats) *CachedResolver {
	if s != nil {
		r.stats = s
	}
	return r
}

// WithMetrics 替换 OpenTelemetry 仪表
func (r *CachedResolver) WithMetrics(m *observability.Metrics) *CachedResolver {
	r.metrics = m
	return r
}

// Resolve implements Resolver.
func (r *CachedResolver) Resolve(ctx context.Context, kind types.BlockType, src types.Source) (Media, error) {
	u, ok := src.(types.URLSource)
	if !ok || !IsRemote(u.URL) {
		return r.inner.Resolve(ctx, kind, src)
	}

	key := CacheKey(kind, u.URL)
	var cached Media
	err := r.cache.GetJSON(ctx, key, &cached)
	switch {
	case err == nil && cached.IsInline():
		r.stats.RecordCacheHit(cacheType)
		r.metrics.RecordMediaResolution(ctx, string(kind), types.SourceURL, "cached")
		return cached, nil
	case err != nil && !cache.IsCacheMiss(err):
		r.logger.Warn("media cache read failed", zap.String("url", u.URL), zap.Error(err))
	}
	r.stats.RecordCacheMiss(cacheType)

	m, err := r.inner.Resolve(ctx, kind, src)
	if err != nil || !m.IsInline() {
		return m, err
	}

	if err := r.cache.SetJSON(ctx, key, m, r.ttl); err != nil {
		level := zap.WarnLevel
		if errors.Is(err, cache.ErrValueTooLarge) {
			level = zap.DebugLevel
		}
		r.logger.Log(level, "media cache write skipped", zap.String("url", u.URL), zap.Error(err))
	}
	return m, nil
}

// CacheKey derives the cache key of a remote media URL.
func CacheKey(kind types.BlockType, url string) string {
	sum := sha256.Sum256([]byte(string(kind) + "|" + url))
	return hex.EncodeToString(sum[:])
}
