package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/agentscope/llm"

// Metrics 是格式化与 provider 调用共享的 OpenTelemetry 仪表。
// 所有方法对 nil 接收者安全。
type Metrics struct {
	tracer trace.Tracer
	meter  metric.Meter
	// 柜台
	formatTotal      metric.Int64Counter
	groupTotal       metric.Int64Counter
	mediaResolutions metric.Int64Counter
	requestTotal     metric.Int64Counter
	tokenTotal       metric.Int64Counter
	errorTotal       metric.Int64Counter
	// 直方图
	formatDuration  metric.Float64Histogram
	requestDuration metric.Float64Histogram
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default 返回基于全局 TracerProvider / MeterProvider 的共享实例。
// 全局 provider 可以在之后由 telemetry.Init 设置，仪表会自动委托过去。
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetTracerProvider(), otel.GetMeterProvider())
		if err == nil {
			defaultMetrics = m
		}
	})
	return defaultMetrics
}

// NewMetrics 创建指标收集器
func NewMetrics(tp trace.TracerProvider, mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentationName)
	m := &Metrics{
		tracer: tp.Tracer(instrumentationName),
		meter:  meter,
	}

	var err error

	// 格式化次数
	m.formatTotal, err = meter.Int64Counter("formatter.format.total",
		metric.WithDescription("Total number of format calls"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, err
	}

	// 分组计数
	m.groupTotal, err = meter.Int64Counter("formatter.groups",
		metric.WithDescription("Message groups produced by the grouper"),
		metric.WithUnit("{group}"))
	if err != nil {
		return nil, err
	}

	// 媒体解析结果
	m.mediaResolutions, err = meter.Int64Counter("media.resolutions",
		metric.WithDescription("Media source resolutions by outcome"),
		metric.WithUnit("{resolution}"))
	if err != nil {
		return nil, err
	}

	// 请求计数
	m.requestTotal, err = meter.Int64Counter("llm.request.total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	// Token 计数
	m.tokenTotal, err = meter.Int64Counter("llm.token.total",
		metric.WithDescription("Total tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	// 错误计数
	m.errorTotal, err = meter.Int64Counter("llm.error.total",
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}

	// 格式化延迟
	m.formatDuration, err = meter.Float64Histogram("formatter.format.duration",
		metric.WithDescription("Format duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1))
	if err != nil {
		return nil, err
	}

	// 请求延迟
	m.requestDuration, err = meter.Float64Histogram("llm.request.duration",
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// FormatResult 描述一次格式化的结果
type FormatResult struct {
	Groups          map[string]int
	Messages        int
	TruncatedGroups int
	MediaDegraded   int
	Duration        time.Duration
	Err             error
}

// StartFormat 开始格式化追踪
func (m *Metrics) StartFormat(ctx context.Context, provider string, messages int) (context.Context, trace.Span) {
	if m == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return m.tracer.Start(ctx, "formatter.Format",
		trace.WithAttributes(
			attribute.String("formatter.provider", provider),
			attribute.Int("formatter.messages", messages),
		))
}

// EndFormat 结束格式化追踪
func (m *Metrics) EndFormat(ctx context.Context, span trace.Span, provider string, res FormatResult) {
	if m == nil {
		return
	}
	defer span.End()

	status := "ok"
	if res.Err != nil {
		status = "error"
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status))

	m.formatTotal.Add(ctx, 1, attrs)
	m.formatDuration.Record(ctx, res.Duration.Seconds(), attrs)

	total := 0
	for groupType, n := range res.Groups {
		total += n
		m.groupTotal.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("type", groupType)))
	}

	span.SetAttributes(
		attribute.Int("formatter.groups", total),
		attribute.Int("formatter.truncated_groups", res.TruncatedGroups),
		attribute.Int("formatter.media_degraded", res.MediaDegraded))
}

// RecordMediaResolution 记录一次媒体解析，outcome 取 passthrough / inlined / cached / failed
func (m *Metrics) RecordMediaResolution(ctx context.Context, kind, source, outcome string) {
	if m == nil {
		return
	}
	m.mediaResolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("source", source),
		attribute.String("outcome", outcome)))
}

// RequestAttrs 请求属性
type RequestAttrs struct {
	Provider string
	Model    string
	TraceID  string
}

// ResponseAttrs 响应属性
type ResponseAttrs struct {
	Status           string
	ErrorCode        string
	TokensPrompt     int
	TokensCompletion int
	Duration         time.Duration
}

// StartRequest 开始请求追踪
func (m *Metrics) StartRequest(ctx context.Context, attrs RequestAttrs) (context.Context, trace.Span) {
	if m == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return m.tracer.Start(ctx, "provider.Completion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", attrs.Provider),
			attribute.String("llm.model", attrs.Model),
			attribute.String("llm.trace_id", attrs.TraceID),
		))
}

// EndRequest 结束请求追踪
func (m *Metrics) EndRequest(ctx context.Context, span trace.Span, req RequestAttrs, resp ResponseAttrs) {
	if m == nil {
		return
	}
	defer span.End()

	commonAttrs := []attribute.KeyValue{
		attribute.String("provider", req.Provider),
		attribute.String("model", req.Model),
		attribute.String("status", resp.Status),
	}

	m.requestTotal.Add(ctx, 1, metric.WithAttributes(commonAttrs...))
	m.requestDuration.Record(ctx, resp.Duration.Seconds(), metric.WithAttributes(commonAttrs...))

	if resp.TokensPrompt > 0 {
		m.tokenTotal.Add(ctx, int64(resp.TokensPrompt), metric.WithAttributes(
			attribute.String("provider", req.Provider),
			attribute.String("model", req.Model),
			attribute.String("type", "prompt")))
	}
	if resp.TokensCompletion > 0 {
		m.tokenTotal.Add(ctx, int64(resp.TokensCompletion), metric.WithAttributes(
			attribute.String("provider", req.Provider),
			attribute.String("model", req.Model),
			attribute.String("type", "completion")))
	}

	if resp.ErrorCode != "" {
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", req.Provider),
			attribute.String("model", req.Model),
			attribute.String("error_code", resp.ErrorCode)))

		span.SetAttributes(attribute.String("error.code", resp.ErrorCode))
		span.SetStatus(codes.Error, resp.ErrorCode)
	}

	span.SetAttributes(
		attribute.String("llm.status", resp.Status),
		attribute.Int("llm.tokens.prompt", resp.TokensPrompt),
		attribute.Int("llm.tokens.completion", resp.TokensCompletion),
		attribute.Float64("llm.duration_ms", float64(resp.Duration.Milliseconds())))
}

// Tracer 获取 Tracer
func (m *Metrics) Tracer() trace.Tracer {
	if m == nil {
		return otel.Tracer(instrumentationName)
	}
	return m.tracer
}
