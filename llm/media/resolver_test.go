package media

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/agentscope/llm/observability"
	"github.com/BaSui01/agentscope/types"
)

type ftpSource struct{}

func (ftpSource) SourceType() string { return "ftp" }

func newTestMetrics(t *testing.T) (*observability.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observability.NewMetrics(noop.NewTracerProvider(), mp)
	require.NoError(t, err)
	return m, reader
}

// resolutionCounts sums media.resolutions by outcome.
func resolutionCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "media.resolutions" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("outcome"))
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestInliner_Base64Passthrough(t *testing.T) {
	r := NewInliner(testConfig(), nil, nil)

	m, err := r.Resolve(context.Background(), types.BlockAudio, types.Base64Source{Data: "AAA"})
	require.NoError(t, err)
	assert.Equal(t, Media{MediaType: "audio/mpeg", Data: "AAA"}, m)

	m, err = r.Resolve(context.Background(), types.BlockImage, types.Base64Source{MediaType: "image/gif", Data: "R0lG"})
	require.NoError(t, err)
	assert.Equal(t, "image/gif", m.MediaType)
}

func TestInliner_RemotePassthrough(t *testing.T) {
	r := NewInliner(testConfig(), nil, nil)

	m, err := r.Resolve(context.Background(), types.BlockImage, types.URLSource{URL: "https://example.com/cat.jpg"})
	require.NoError(t, err)
	assert.False(t, m.IsInline())
	assert.Equal(t, "https://example.com/cat.jpg", m.URL)
	assert.Equal(t, "image/jpeg", m.MediaType)
}

func TestInliner_ForceBase64Fetches(t *testing.T) {
	srv := newMediaServer(t)
	cfg := testConfig()
	cfg.ForceBase64 = true
	metrics, reader := newTestMetrics(t)
	r := NewInliner(cfg, NewFetcher(cfg, srv.Client(), nil), nil).WithMetrics(metrics)

	m, err := r.Resolve(context.Background(), types.BlockImage, types.URLSource{URL: srv.URL + "/typed.png"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", m.MediaType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), m.Data)

	_, err = r.Resolve(context.Background(), types.BlockImage, types.URLSource{URL: srv.URL + "/missing.png"})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrMediaResolution))

	assert.Equal(t, map[string]int64{"inlined": 1, "failed": 1}, resolutionCounts(t, reader))
}

func TestInliner_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "voice.wav")
	require.NoError(t, os.WriteFile(p, []byte("RIFF"), 0o600))

	r := NewInliner(testConfig(), nil, nil)
	want := Media{MediaType: "audio/wav", Data: base64.StdEncoding.EncodeToString([]byte("RIFF"))}

	m, err := r.Resolve(context.Background(), types.BlockAudio, types.URLSource{URL: p})
	require.NoError(t, err)
	assert.Equal(t, want, m)

	m, err = r.Resolve(context.Background(), types.BlockAudio, types.URLSource{URL: "file://" + p})
	require.NoError(t, err)
	assert.Equal(t, want, m)
}

func TestInliner_LocalFileErrors(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.png")
	require.NoError(t, os.WriteFile(big, make([]byte, 16), 0o600))

	cfg := testConfig()
	cfg.MaxBytes = 8
	r := NewInliner(cfg, nil, nil)

	tests := []struct {
		name string
		url  string
		msg  string
	}{
		{"missing", filepath.Join(dir, "nope.png"), "stat"},
		{"directory", dir, "is a directory"},
		{"too large", big, "limit is 8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), types.BlockImage, types.URLSource{URL: tt.url})
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrMediaResolution))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestInliner_LocalFilesDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.AllowLocalFiles = false
	r := NewInliner(cfg, nil, nil)

	_, err := r.Resolve(context.Background(), types.BlockImage, types.URLSource{URL: "/etc/hostname"})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrMediaResolution))
	assert.Contains(t, err.Error(), "disabled")
}

func TestInliner_UnsupportedSource(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewInliner(testConfig(), nil, zap.New(core))

	_, err := r.Resolve(context.Background(), types.BlockImage, ftpSource{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUnsupportedSourceType))

	_, err = r.Resolve(context.Background(), types.BlockImage, nil)
	assert.True(t, types.IsErrorCode(err, types.ErrUnsupportedSourceType))

	entries := logs.FilterMessage("media resolution failed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "ftp", entries[0].ContextMap()["source"])
	assert.Equal(t, "unknown", entries[1].ContextMap()["source"])
}
