package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestMetrics(t *testing.T) (*Metrics, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	m, err := NewMetrics(tp, mp)
	require.NoError(t, err)
	return m, exp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			out[md.Name] = md.Data
		}
	}
	return out
}

// sumFor 返回属性完全匹配的数据点之和
func sumFor(t *testing.T, data metricdata.Aggregation, kvs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	want := attribute.NewSet(kvs...)
	var total int64
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}
	return total
}

func spanAttrs(s tracetest.SpanStub) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(s.Attributes))
	for _, kv := range s.Attributes {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestMetrics_FormatSpanAndCounters(t *testing.T) {
	m, exp, reader := newTestMetrics(t)
	ctx := context.Background()

	_, span := m.StartFormat(ctx, "anthropic", 5)
	m.EndFormat(ctx, span, "anthropic", FormatResult{
		Groups:          map[string]int{"system": 1, "agent_conversation": 2},
		Messages:        5,
		TruncatedGroups: 1,
		MediaDegraded:   2,
		Duration:        3 * time.Millisecond,
	})

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "formatter.Format", spans[0].Name)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "anthropic", attrs["formatter.provider"].AsString())
	assert.Equal(t, int64(5), attrs["formatter.messages"].AsInt64())
	assert.Equal(t, int64(3), attrs["formatter.groups"].AsInt64())
	assert.Equal(t, int64(1), attrs["formatter.truncated_groups"].AsInt64())
	assert.Equal(t, int64(2), attrs["formatter.media_degraded"].AsInt64())
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumFor(t, data["formatter.format.total"],
		attribute.String("provider", "anthropic"), attribute.String("status", "ok")))
	assert.Equal(t, int64(2), sumFor(t, data["formatter.groups"],
		attribute.String("provider", "anthropic"), attribute.String("type", "agent_conversation")))
	assert.Equal(t, int64(1), sumFor(t, data["formatter.groups"],
		attribute.String("provider", "anthropic"), attribute.String("type", "system")))

	hist, ok := data["formatter.format.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestMetrics_FormatErrorMarksSpan(t *testing.T) {
	m, exp, reader := newTestMetrics(t)
	ctx := context.Background()

	_, span := m.StartFormat(ctx, "dashscope", 1)
	m.EndFormat(ctx, span, "dashscope", FormatResult{Err: errors.New("unsupported block")})

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "unsupported block", spans[0].Status.Description)

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumFor(t, data["formatter.format.total"],
		attribute.String("provider", "dashscope"), attribute.String("status", "error")))
}

func TestMetrics_RecordMediaResolution(t *testing.T) {
	m, _, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordMediaResolution(ctx, "image", "url", "inlined")
	m.RecordMediaResolution(ctx, "image", "url", "inlined")
	m.RecordMediaResolution(ctx, "audio", "file", "failed")

	data := collect(t, reader)
	res := data["media.resolutions"]
	assert.Equal(t, int64(2), sumFor(t, res,
		attribute.String("kind", "image"), attribute.String("source", "url"), attribute.String("outcome", "inlined")))
	assert.Equal(t, int64(1), sumFor(t, res,
		attribute.String("kind", "audio"), attribute.String("source", "file"), attribute.String("outcome", "failed")))
}

func TestMetrics_RequestSpanAndTokens(t *testing.T) {
	m, exp, reader := newTestMetrics(t)
	ctx := context.Background()

	req := RequestAttrs{Provider: "anthropic", Model: "claude-sonnet-4-5", TraceID: "trace-1"}
	_, span := m.StartRequest(ctx, req)
	m.EndRequest(ctx, span, req, ResponseAttrs{
		Status:           "error",
		ErrorCode:        "RATE_LIMITED",
		TokensPrompt:     12,
		TokensCompletion: 3,
		Duration:         150 * time.Millisecond,
	})

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "provider.Completion", spans[0].Name)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "claude-sonnet-4-5", attrs["llm.model"].AsString())
	assert.Equal(t, "trace-1", attrs["llm.trace_id"].AsString())
	assert.Equal(t, "RATE_LIMITED", attrs["error.code"].AsString())

	data := collect(t, reader)
	model := attribute.String("model", "claude-sonnet-4-5")
	provider := attribute.String("provider", "anthropic")
	assert.Equal(t, int64(1), sumFor(t, data["llm.request.total"], provider, model, attribute.String("status", "error")))
	assert.Equal(t, int64(12), sumFor(t, data["llm.token.total"], provider, model, attribute.String("type", "prompt")))
	assert.Equal(t, int64(3), sumFor(t, data["llm.token.total"], provider, model, attribute.String("type", "completion")))
	assert.Equal(t, int64(1), sumFor(t, data["llm.error.total"], provider, model, attribute.String("error_code", "RATE_LIMITED")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		fctx, span := m.StartFormat(ctx, "anthropic", 1)
		assert.Equal(t, ctx, fctx)
		m.EndFormat(fctx, span, "anthropic", FormatResult{})
		m.RecordMediaResolution(ctx, "image", "url", "passthrough")
		rctx, rspan := m.StartRequest(ctx, RequestAttrs{Provider: "dashscope"})
		m.EndRequest(rctx, rspan, RequestAttrs{}, ResponseAttrs{})
	})
	assert.NotNil(t, m.Tracer())
}
