package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/llm/observability"
	"github.com/BaSui01/agentscope/types"
)

// Inliner is the default Resolver.
type Inliner struct {
	cfg     Config
	fetcher *Fetcher
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewInliner 创建默认媒体解析器。fetcher 为 nil 时按配置新建。
func NewInliner(cfg Config, fetcher *Fetcher, logger *zap.Logger) *Inliner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fetcher == nil {
		fetcher = NewFetcher(cfg, nil, logger)
	}
	return &Inliner{
		cfg:     cfg,
		fetcher: fetcher,
		metrics: observability.Default(),
		logger:  logger.With(zap.String("component", "media")),
	}
}

// WithMetrics 替换 OpenTelemetry 仪表
func (r *Inliner) WithMetrics(m *observability.Metrics) *Inliner {
	r.metrics = m
	return r
}

// Resolve implements Resolver.
func (r *Inliner) Resolve(ctx context.Context, kind types.BlockType, src types.Source) (Media, error) {
	m, outcome, err := r.resolve(ctx, kind, src)
	sourceType := "unknown"
	if src != nil {
		sourceType = src.SourceType()
	}
	if err != nil {
		outcome = "failed"
		r.logger.Warn("media resolution failed",
			zap.String("kind", string(kind)),
			zap.String("source", sourceType),
			zap.Error(err))
	}
	r.metrics.RecordMediaResolution(ctx, string(kind), sourceType, outcome)
	return m, err
}

func (r *Inliner) resolve(ctx context.Context, kind types.BlockType, src types.Source) (Media, string, error) {
	switch s := src.(type) {
	case types.Base64Source:
		mt := s.MediaType
		if mt == "" {
			mt = DefaultMediaType(kind)
		}
		return Media{MediaType: mt, Data: s.Data}, "passthrough", nil

	case types.URLSource:
		if IsRemote(s.URL) {
			if !r.cfg.ForceBase64 {
				return Media{URL: s.URL, MediaType: TypeByExtension(s.URL, kind)}, "passthrough", nil
			}
			data, mt, err := r.fetcher.Fetch(ctx, s.URL)
			if err != nil {
				return Media{}, "", types.NewError(types.ErrMediaResolution, "fetch remote media").WithCause(err)
			}
			if mt == "" || mt == "text/plain" {
				mt = TypeByExtension(s.URL, kind)
			}
			return Media{MediaType: mt, Data: base64.StdEncoding.EncodeToString(data)}, "inlined", nil
		}
		m, err := r.readLocal(kind, s.URL)
		if err != nil {
			return Media{}, "", err
		}
		return m, "inlined", nil

	default:
		return Media{}, "", types.NewError(types.ErrUnsupportedSourceType,
			fmt.Sprintf("unsupported source type %T", src))
	}
}

func (r *Inliner) readLocal(kind types.BlockType, location string) (Media, error) {
	if !r.cfg.AllowLocalFiles {
		return Media{}, types.NewError(types.ErrMediaResolution, "local media files are disabled")
	}
	p := LocalPath(location)
	info, err := os.Stat(p)
	if err != nil {
		return Media{}, types.NewError(types.ErrMediaResolution, "stat "+p).WithCause(err)
	}
	if info.IsDir() {
		return Media{}, types.NewError(types.ErrMediaResolution, p+" is a directory")
	}
	if r.cfg.MaxBytes > 0 && info.Size() > r.cfg.MaxBytes {
		return Media{}, types.NewError(types.ErrMediaResolution,
			fmt.Sprintf("%s is %d bytes, limit is %d", p, info.Size(), r.cfg.MaxBytes))
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return Media{}, types.NewError(types.ErrMediaResolution, "read "+p).WithCause(err)
	}
	return Media{
		MediaType: TypeByExtension(p, kind),
		Data:      base64.StdEncoding.EncodeToString(data),
	}, nil
}

// IsRemote reports whether location is an http or https URL.
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// LocalPath strips a file:// prefix.
func LocalPath(location string) string {
	return strings.TrimPrefix(location, "file://")
}
