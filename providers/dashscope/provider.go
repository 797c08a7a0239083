package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/internal/tlsutil"
	"github.com/BaSui01/agentscope/llm"
	"github.com/BaSui01/agentscope/llm/formatter"
	"github.com/BaSui01/agentscope/llm/observability"
	"github.com/BaSui01/agentscope/providers"
	"github.com/BaSui01/agentscope/types"
)

const (
	defaultBaseURL     = "https://dashscope.aliyuncs.com"
	defaultModel       = "qwen-plus"
	defaultVisionModel = "qwen-vl-max"
	defaultTimeout     = 60 * time.Second

	textGenerationPath       = "/api/v1/services/aigc/text-generation/generation"
	multimodalGenerationPath = "/api/v1/services/aigc/multimodal-generation/generation"

	// maxErrorBody 限制读取的错误响应体大小
	maxErrorBody = 64 << 10
)

// Provider 实现 DashScope 原生生成接口的 llm.Provider
type Provider struct {
	cfg       providers.DashScopeConfig
	client    *http.Client
	formatter *MultiAgentFormatter
	tracker   providers.RequestTracker
	logger    *zap.Logger
}

var _ llm.Provider = (*Provider)(nil)

// NewProvider 创建 DashScope Provider。f 为 nil 时按 cfg.Multimodal 创建默认格式化器，
// 请求走哪个接口由格式化器的多模态开关决定。
func NewProvider(cfg providers.DashScopeConfig, f *MultiAgentFormatter, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if f == nil {
		f = NewMultiAgentFormatter(FormatOptions{
			Options:    formatter.Options{Logger: logger},
			Multimodal: cfg.Multimodal,
		})
	}
	logger = logger.With(zap.String("component", "dashscope_provider"))
	return &Provider{
		cfg:       cfg,
		client:    tlsutil.HTTPClient(timeout),
		formatter: f,
		tracker:   providers.RequestTracker{Metrics: observability.Default(), Logger: logger},
		logger:    logger,
	}
}

// WithHTTPClient replaces the HTTP client.
func (p *Provider) WithHTTPClient(c *http.Client) *Provider {
	p.client = c
	return p
}

// WithRecorder sets the per-request statistics sink.
func (p *Provider) WithRecorder(r llm.RequestRecorder) *Provider {
	p.tracker.Recorder = r
	return p
}

// WithMetrics replaces the OTel instruments. nil keeps the current ones.
func (p *Provider) WithMetrics(m *observability.Metrics) *Provider {
	if m != nil {
		p.tracker.Metrics = m
	}
	return p
}

func (p *Provider) Name() string { return providerName }

// BuildRequest formats req into a generation request body without sending it.
func (p *Provider) BuildRequest(ctx context.Context, req *llm.ChatRequest) (*Request, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "messages are required").WithProvider(providerName)
	}

	fallback := defaultModel
	if p.formatter.Multimodal() {
		fallback = defaultVisionModel
	}
	body := &Request{Model: providers.ChooseModel(ctx, req, p.cfg.Model, fallback)}

	msgs, err := p.formatter.Format(ctx, req.Messages)
	if err != nil {
		return nil, err
	}
	body.Input.Messages = msgs
	if len(msgs) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "request has no messages to send").WithProvider(providerName)
	}

	if err := ApplyOptionsAndTools(body, req.Options, req.Tools, req.ToolChoice); err != nil {
		return nil, err
	}
	return body, nil
}

// BuildPayload implements llm.Provider.
func (p *Provider) BuildPayload(ctx context.Context, req *llm.ChatRequest) (any, error) {
	return p.BuildRequest(ctx, req)
}

func (p *Provider) endpoint() string {
	path := textGenerationPath
	if p.formatter.Multimodal() {
		path = multimodalGenerationPath
	}
	return strings.TrimRight(p.cfg.BaseURL, "/") + path
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// Completion 发起同步请求并解析响应
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (resp *types.ChatResponse, err error) {
	body, err := p.BuildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, finish := p.tracker.Start(ctx, providerName, body.Model)
	defer func() { finish(resp, err) }()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "encode dashscope request").WithCause(err).WithProvider(providerName)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "build dashscope request").WithCause(err).WithProvider(providerName)
	}
	p.buildHeaders(httpReq)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.MapTransportError(err, providerName)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, mapError(httpResp.StatusCode, httpResp.Body)
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.MapTransportError(err, providerName)
	}
	out, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	if out.Model == "" {
		out.Model = body.Model
	}
	return out, nil
}

// mapError 读取 {"code":...,"message":...} 并映射为统一错误码
func mapError(status int, body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var er errorResponse
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &er); err == nil && er.Message != "" {
		msg = er.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("dashscope request failed with status %d", status)
	}
	e := providers.MapHTTPError(status, msg, providerName)
	if er.Code == "DataInspectionFailed" {
		e.Code = types.ErrContentFiltered
	}
	return e
}
