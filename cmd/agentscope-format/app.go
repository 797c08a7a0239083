package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentscope/config"
	"github.com/BaSui01/agentscope/internal/cache"
	"github.com/BaSui01/agentscope/internal/metrics"
	"github.com/BaSui01/agentscope/llm"
	"github.com/BaSui01/agentscope/llm/formatter"
	"github.com/BaSui01/agentscope/llm/media"
	"github.com/BaSui01/agentscope/llm/observability"
	"github.com/BaSui01/agentscope/llm/tokenizer"
	"github.com/BaSui01/agentscope/providers/anthropic"
	"github.com/BaSui01/agentscope/providers/dashscope"
	"github.com/BaSui01/agentscope/types"
)

const (
	providerAnthropic = "anthropic"
	providerDashScope = "dashscope"

	modeChat = "chat"
)

// =============================================================================
// 📦 组装
// =============================================================================

type appOptions struct {
	Provider  string
	Collector *metrics.Collector
	// Metrics 为 nil 时使用 observability.Default()
	Metrics *observability.Metrics
	Tracer  trace.Tracer
	Logger  *zap.Logger
}

type runOptions struct {
	Send        bool
	Concurrency int
	Pretty      bool
	Stdin       io.Reader
	Stdout      io.Writer
}

// app 持有一次命令执行所需的格式化器与 provider
type app struct {
	mode     string
	format   func(ctx context.Context, req *llm.ChatRequest) (any, error)
	provider llm.Provider
	cache    *cache.Manager
	tracer   trace.Tracer
	logger   *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("agentscope-format")
	}
	otelMetrics := opts.Metrics
	if otelMetrics == nil {
		otelMetrics = observability.Default()
	}
	a := &app{
		mode:   cfg.Formatter.Mode,
		tracer: tracer,
		logger: logger.With(zap.String("component", "cli"), zap.String("provider", opts.Provider)),
	}

	tok, err := tokenizer.New(cfg.Formatter.Tokenizer, cfg.Formatter.TokenizerModel)
	if err != nil {
		return nil, err
	}
	if est, ok := tok.(*tokenizer.EstimatorTokenizer); ok {
		est.WithCharsPerToken(cfg.Formatter.CharsPerToken)
	}

	fopts := formatter.Options{
		Preamble:  cfg.Formatter.Preamble,
		Resolver:  a.resolver(ctx, cfg, opts.Collector, otelMetrics, logger),
		Tokenizer: tok,
		MaxTokens: cfg.Formatter.MaxTokens,
		Metrics:   otelMetrics,
		Logger:    logger,
	}
	if opts.Collector != nil {
		fopts.Recorder = opts.Collector
	}

	switch opts.Provider {
	case providerAnthropic:
		p := anthropic.NewProvider(cfg.Anthropic, anthropic.NewMultiAgentFormatter(fopts), logger).
			WithMetrics(otelMetrics)
		if opts.Collector != nil {
			p.WithRecorder(opts.Collector)
		}
		a.provider = p
		a.format = p.BuildPayload
		if a.mode == modeChat {
			f := anthropic.NewChatFormatter(fopts)
			a.format = func(ctx context.Context, req *llm.ChatRequest) (any, error) {
				return f.Format(ctx, req.Messages)
			}
		}
	case providerDashScope:
		dopts := dashscope.FormatOptions{Options: fopts, Multimodal: cfg.DashScope.Multimodal}
		p := dashscope.NewProvider(cfg.DashScope, dashscope.NewMultiAgentFormatter(dopts), logger).
			WithMetrics(otelMetrics)
		if opts.Collector != nil {
			p.WithRecorder(opts.Collector)
		}
		a.provider = p
		a.format = p.BuildPayload
		if a.mode == modeChat {
			f := dashscope.NewChatFormatter(dopts)
			a.format = func(ctx context.Context, req *llm.ChatRequest) (any, error) {
				return f.Format(ctx, req.Messages)
			}
		}
	default:
		a.Close()
		return nil, types.NewError(types.ErrConfigInvalid,
			fmt.Sprintf("unknown provider %q, want anthropic or dashscope", opts.Provider))
	}
	return a, nil
}

// resolver 构建媒体解析器，启用缓存且 Redis 可达时包一层 CachedResolver
func (a *app) resolver(ctx context.Context, cfg *config.Config, collector *metrics.Collector, m *observability.Metrics, logger *zap.Logger) media.Resolver {
	inliner := media.NewInliner(cfg.Media, nil, logger).WithMetrics(m)
	if !cfg.Cache.Enabled {
		return inliner
	}
	mgr, err := cache.NewManager(cfg.Cache, logger)
	if err != nil {
		a.logger.Warn("media cache unavailable, resolving without cache",
			zap.String("addr", cfg.Cache.Addr), zap.Error(err))
		return inliner
	}
	a.cache = mgr
	ttl := cfg.Media.CacheTTL
	if ttl <= 0 {
		ttl = cfg.Cache.DefaultTTL
	}
	cached := media.NewCachedResolver(inliner, mgr, ttl, logger).WithMetrics(m)
	if collector != nil {
		cached.WithStats(collector)
	}
	return cached
}

// Close 释放缓存连接
func (a *app) Close() {
	if a.cache == nil {
		return
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close media cache", zap.Error(err))
	}
	a.cache = nil
}

// =============================================================================
// 🔄 执行
// =============================================================================

// result 是每个输入文件对应的一行输出
type result struct {
	File     string              `json:"file"`
	RunID    string              `json:"run_id"`
	Payload  any                 `json:"payload,omitempty"`
	Response *types.ChatResponse `json:"response,omitempty"`
}

// Run formats every file concurrently and writes one JSON line per file in
// input order. The first failure cancels the remaining files.
func (a *app) Run(ctx context.Context, files []string, opts runOptions) error {
	if opts.Send && a.mode == modeChat {
		return types.NewError(types.ErrConfigInvalid, "complete requires multi_agent mode")
	}

	// 标准输入只能读一次，先读出来
	var stdin []byte
	for _, f := range files {
		if f == "-" {
			if stdin != nil {
				return types.NewError(types.ErrInvalidRequest, "stdin given more than once")
			}
			data, err := io.ReadAll(opts.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			stdin = data
		}
	}

	results := make([]result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, file := range files {
		g.Go(func() error {
			data := stdin
			if file != "-" {
				var err error
				if data, err = os.ReadFile(file); err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
			}
			res, err := a.process(gctx, file, data, opts.Send)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(opts.Stdout)
	if opts.Pretty {
		enc.SetIndent("", "  ")
	}
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}

func (a *app) process(ctx context.Context, file string, data []byte, send bool) (result, error) {
	runID := uuid.NewString()
	ctx = types.WithRunID(ctx, runID)

	ctx, span := a.tracer.Start(ctx, "agentscope.format", trace.WithAttributes(
		attribute.String("file", file),
		attribute.String("run_id", runID),
		attribute.Bool("send", send)))
	defer span.End()
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = types.WithTraceID(ctx, sc.TraceID().String())
	}

	out := result{File: file, RunID: runID}
	err := func() error {
		req, err := decodeRequest(data)
		if err != nil {
			return err
		}
		if send {
			out.Response, err = a.provider.Completion(ctx, req)
			return err
		}
		out.Payload, err = a.format(ctx, req)
		return err
	}()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(types.GetErrorCode(err)))
		a.logger.Warn("file failed",
			zap.String("file", file),
			zap.String("run_id", runID),
			zap.Error(err))
		return result{}, err
	}

	a.logger.Debug("file formatted",
		zap.String("file", file),
		zap.String("run_id", runID))
	return out, nil
}

// decodeRequest 接受消息数组或 ChatRequest 对象
func decodeRequest(data []byte) (*llm.ChatRequest, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "input is empty")
	}
	req := &llm.ChatRequest{}
	var err error
	if data[0] == '[' {
		err = json.Unmarshal(data, &req.Messages)
	} else {
		err = json.Unmarshal(data, req)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "decode input").WithCause(err)
	}
	return req, nil
}
