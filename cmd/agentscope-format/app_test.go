package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/config"
	"github.com/BaSui01/agentscope/llm/media"
	"github.com/BaSui01/agentscope/llm/observability"
	"github.com/BaSui01/agentscope/types"
)

const conversation = `[
  {"role": "system", "name": "system", "content": [{"type": "text", "text": "You are a helpful assistant."}]},
  {"role": "user", "name": "alice", "content": [{"type": "text", "text": "hi"}]},
  {"role": "assistant", "name": "bob", "content": [{"type": "text", "text": "hello"}]}
]`

// --- 测试辅助 ---

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// quietLogs 让 zap 日志写入临时文件，避免干扰测试输出
func quietLogs(t *testing.T) {
	t.Helper()
	t.Setenv("AGENTSCOPE_LOG_OUTPUT_PATHS", filepath.Join(t.TempDir(), "agentscope.log"))
}

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// decodeLines 解析 JSON Lines 输出
func decodeLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var lines []map[string]any
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		lines = append(lines, m)
	}
	return lines
}

func payloadMessages(t *testing.T, line map[string]any) []any {
	t.Helper()
	payload, ok := line["payload"].(map[string]any)
	require.True(t, ok, "payload should be an object: %v", line["payload"])
	msgs, ok := payload["messages"].([]any)
	require.True(t, ok)
	return msgs
}

// --- decodeRequest ---

func TestDecodeRequest(t *testing.T) {
	t.Run("message array", func(t *testing.T) {
		req, err := decodeRequest([]byte(conversation))
		require.NoError(t, err)
		require.Len(t, req.Messages, 3)
		assert.Equal(t, "alice", req.Messages[1].Name)
		assert.Equal(t, types.TextBlock{Text: "hi"}, req.Messages[1].Content[0])
	})

	t.Run("request object", func(t *testing.T) {
		req, err := decodeRequest([]byte(`{
			"messages": ` + conversation + `,
			"options": {"max_tokens": 256},
			"tool_choice": {"mode": "auto"}
		}`))
		require.NoError(t, err)
		assert.Len(t, req.Messages, 3)
		assert.Equal(t, 256, req.Options.MaxTokens)
		require.NotNil(t, req.ToolChoice)
		assert.Equal(t, types.ToolChoiceAuto, req.ToolChoice.Mode)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := decodeRequest([]byte("  \n"))
		assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	})

	t.Run("unknown block type", func(t *testing.T) {
		_, err := decodeRequest([]byte(`[{"role":"user","content":[{"type":"hologram"}]}]`))
		assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	})
}

// --- format 命令 ---

func TestFormat_AnthropicMultiAgent(t *testing.T) {
	quietLogs(t)
	path := writeFile(t, "conv.json", conversation)

	res := runCLI(t, "", "format", "--provider", "anthropic", path)
	require.Equal(t, 0, res.code, res.stderr)

	lines := decodeLines(t, res.stdout)
	require.Len(t, lines, 1)
	assert.Equal(t, path, lines[0]["file"])
	assert.NotEmpty(t, lines[0]["run_id"])

	payload := lines[0]["payload"].(map[string]any)
	assert.Equal(t, "claude-sonnet-4-5", payload["model"])

	system := payload["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "You are a helpful assistant.", system[0].(map[string]any)["text"])

	msgs := payloadMessages(t, lines[0])
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	text := msg["content"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "<history>\nalice: hi\nbob: hello\n</history>")
}

func TestFormat_DashScopeChatFromStdin(t *testing.T) {
	quietLogs(t)

	res := runCLI(t, conversation, "format", "--provider", "dashscope", "--mode", "chat")
	require.Equal(t, 0, res.code, res.stderr)

	lines := decodeLines(t, res.stdout)
	require.Len(t, lines, 1)
	assert.Equal(t, "-", lines[0]["file"])

	// chat 模式输出消息数组，角色一一对应
	msgs, ok := lines[0]["payload"].([]any)
	require.True(t, ok)
	var roles []string
	for _, m := range msgs {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant"}, roles)
	assert.Equal(t, "hi", msgs[1].(map[string]any)["content"])
}

func TestFormat_MultipleFilesKeepOrder(t *testing.T) {
	quietLogs(t)

	var paths []string
	for i := 0; i < 5; i++ {
		conv := fmt.Sprintf(`[{"role":"user","name":"u%d","content":[{"type":"text","text":"msg %d"}]}]`, i, i)
		paths = append(paths, writeFile(t, fmt.Sprintf("conv%d.json", i), conv))
	}

	args := append([]string{"format", "--provider", "dashscope", "--concurrency", "2"}, paths...)
	res := runCLI(t, "", args...)
	require.Equal(t, 0, res.code, res.stderr)

	lines := decodeLines(t, res.stdout)
	require.Len(t, lines, len(paths))
	seen := map[string]bool{}
	for i, line := range lines {
		assert.Equal(t, paths[i], line["file"])
		runID := line["run_id"].(string)
		assert.False(t, seen[runID], "run ids should be unique")
		seen[runID] = true

		msgs := payloadMessages(t, line)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].(map[string]any)["content"], fmt.Sprintf("u%d: msg %d", i, i))
	}
}

func TestFormat_MaxTokensTruncatesHistory(t *testing.T) {
	quietLogs(t)

	var sb strings.Builder
	sb.WriteString(`[{"role":"system","content":[{"type":"text","text":"sys"}]}`)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, `,{"role":"user","name":"u","content":[{"type":"text","text":"%s"}]}`, strings.Repeat("word ", 50))
		fmt.Fprintf(&sb, `,{"role":"assistant","content":[{"type":"tool_use","id":"c%d","name":"f","input":{}}]}`, i)
		fmt.Fprintf(&sb, `,{"role":"tool","content":[{"type":"tool_result","id":"c%d","name":"f","output":[{"type":"text","text":"ok"}]}]}`, i)
	}
	sb.WriteString(`]`)
	path := writeFile(t, "long.json", sb.String())

	full := runCLI(t, "", "format", "--provider", "dashscope", path)
	require.Equal(t, 0, full.code, full.stderr)
	cut := runCLI(t, "", "format", "--provider", "dashscope", "--max-tokens", "500", path)
	require.Equal(t, 0, cut.code, cut.stderr)

	fullMsgs := payloadMessages(t, decodeLines(t, full.stdout)[0])
	cutMsgs := payloadMessages(t, decodeLines(t, cut.stdout)[0])
	assert.Less(t, len(cutMsgs), len(fullMsgs))
	// 系统消息始终保留
	assert.Equal(t, "system", cutMsgs[0].(map[string]any)["role"])
}

func TestFormat_Errors(t *testing.T) {
	quietLogs(t)
	path := writeFile(t, "conv.json", conversation)

	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr string
	}{
		{"unknown provider", "", []string{"format", "--provider", "openai", path}, "unknown provider"},
		{"missing file", "", []string{"format", filepath.Join(t.TempDir(), "nope.json")}, "nope.json"},
		{"bad mode", "", []string{"format", "--mode", "solo", path}, "formatter.mode"},
		{"bad input", "{", []string{"format", "-"}, "INVALID_REQUEST"},
		{"unbound tool result", `[{"role":"tool","content":[{"type":"tool_result","output":[]}]}]`, []string{"format", "-"}, "TOOL_VALIDATION"},
		{"complete in chat mode", "", []string{"complete", "--mode", "chat", path}, "multi_agent"},
		{"stdin twice", conversation, []string{"format", "-", "-"}, "stdin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, tt.stdin, tt.args...)
			assert.Equal(t, 1, res.code)
			assert.Contains(t, res.stderr, tt.wantErr)
			assert.Empty(t, res.stdout)
		})
	}
}

func TestFormat_BadFlag(t *testing.T) {
	res := runCLI(t, "", "format", "--no-such-flag")
	assert.Equal(t, 2, res.code)
}

// --- 媒体缓存与指标 ---

func TestFormat_CachesInlinedMedia(t *testing.T) {
	quietLogs(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	t.Setenv("AGENTSCOPE_CACHE_ENABLED", "true")
	t.Setenv("AGENTSCOPE_CACHE_ADDR", mr.Addr())
	t.Setenv("AGENTSCOPE_MEDIA_FORCE_BASE64", "true")

	imageURL := srv.URL + "/cat.png"
	conv := fmt.Sprintf(`[{"role":"user","name":"alice","content":[
		{"type":"text","text":"look"},
		{"type":"image","source":{"type":"url","url":%q}}
	]}]`, imageURL)
	path := writeFile(t, "image.json", conv)

	for i := 0; i < 2; i++ {
		res := runCLI(t, "", "format", "--provider", "anthropic", path)
		require.Equal(t, 0, res.code, res.stderr)

		msgs := payloadMessages(t, decodeLines(t, res.stdout)[0])
		content := msgs[0].(map[string]any)["content"].([]any)
		var image map[string]any
		for _, c := range content {
			if block := c.(map[string]any); block["type"] == "image" {
				image = block
			}
		}
		require.NotNil(t, image, "image block expected")
		source := image["source"].(map[string]any)
		assert.Equal(t, "base64", source["type"])
		assert.Equal(t, "image/png", source["media_type"])
	}

	// 第二次运行命中 Redis 缓存，不再下载
	assert.Equal(t, int32(1), fetches.Load())
	assert.True(t, mr.Exists("agentscope:media:"+media.CacheKey(types.BlockImage, imageURL)))
}

func TestFormat_CacheUnavailableFallsBack(t *testing.T) {
	quietLogs(t)
	t.Setenv("AGENTSCOPE_CACHE_ENABLED", "true")
	t.Setenv("AGENTSCOPE_CACHE_ADDR", "127.0.0.1:1")

	res := runCLI(t, conversation, "format", "--provider", "anthropic")
	assert.Equal(t, 0, res.code, res.stderr)
}

func TestFormat_WritesMetricsTextfile(t *testing.T) {
	quietLogs(t)
	textfile := filepath.Join(t.TempDir(), "agentscope.prom")
	t.Setenv("AGENTSCOPE_METRICS_ENABLED", "true")
	t.Setenv("AGENTSCOPE_METRICS_NAMESPACE", "cli_test")
	t.Setenv("AGENTSCOPE_METRICS_TEXTFILE_PATH", textfile)

	res := runCLI(t, conversation, "format", "--provider", "dashscope")
	require.Equal(t, 0, res.code, res.stderr)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cli_test_format_duration_seconds")
	assert.Contains(t, string(data), `provider="dashscope"`)
}

// --- complete 命令 ---

func TestComplete_Anthropic(t *testing.T) {
	quietLogs(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body["messages"], 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "hi alice and bob"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 20, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	t.Setenv("AGENTSCOPE_ANTHROPIC_BASE_URL", srv.URL)
	t.Setenv("AGENTSCOPE_ANTHROPIC_API_KEY", "test-key")

	res := runCLI(t, conversation, "complete", "--provider", "anthropic")
	require.Equal(t, 0, res.code, res.stderr)

	lines := decodeLines(t, res.stdout)
	require.Len(t, lines, 1)
	assert.Nil(t, lines[0]["payload"])
	resp := lines[0]["response"].(map[string]any)
	assert.Equal(t, "msg_01", resp["id"])
	content := resp["content"].([]any)
	assert.Equal(t, "hi alice and bob", content[0].(map[string]any)["text"])
}

func TestComplete_RecordsSpans(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_02",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "ok"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 1}
		}`))
	}))
	defer srv.Close()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	m, err := observability.NewMetrics(tp, noop.NewMeterProvider())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Anthropic.BaseURL = srv.URL
	cfg.Anthropic.APIKey = "test-key"

	ctx := context.Background()
	a, err := newApp(ctx, cfg, appOptions{
		Provider: providerAnthropic,
		Metrics:  m,
		Tracer:   tp.Tracer("test"),
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	defer a.Close()

	var out bytes.Buffer
	err = a.Run(ctx, []string{writeFile(t, "conv.json", conversation)}, runOptions{
		Send:        true,
		Concurrency: 1,
		Stdin:       strings.NewReader(""),
		Stdout:      &out,
	})
	require.NoError(t, err)

	byName := make(map[string]tracetest.SpanStub)
	for _, s := range exporter.GetSpans() {
		byName[s.Name] = s
	}
	require.Contains(t, byName, "agentscope.format")
	require.Contains(t, byName, "formatter.Format")
	require.Contains(t, byName, "provider.Completion")

	root := byName["agentscope.format"].SpanContext.TraceID()
	assert.Equal(t, root, byName["provider.Completion"].SpanContext.TraceID())
	assert.Equal(t, root, byName["formatter.Format"].SpanContext.TraceID())
}

func TestComplete_DashScopeUpstreamError(t *testing.T) {
	quietLogs(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"request_id":"r1","code":"Throttling","message":"slow down"}`))
	}))
	defer srv.Close()

	t.Setenv("AGENTSCOPE_DASHSCOPE_BASE_URL", srv.URL)
	t.Setenv("AGENTSCOPE_DASHSCOPE_API_KEY", "test-key")

	res := runCLI(t, conversation, "complete", "--provider", "dashscope")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "RATE_LIMITED")
}
