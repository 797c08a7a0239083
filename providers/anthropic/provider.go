package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/llm"
	"github.com/BaSui01/agentscope/llm/formatter"
	"github.com/BaSui01/agentscope/llm/observability"
	"github.com/BaSui01/agentscope/providers"
	"github.com/BaSui01/agentscope/types"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 4096
	defaultTimeout   = 60 * time.Second
)

// MessagesClient is the subset of the SDK messages service used by Provider.
// *sdk.MessageService satisfies it.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Provider 实现 Anthropic Messages API 的 llm.Provider
type Provider struct {
	cfg       providers.AnthropicConfig
	client    MessagesClient
	formatter *MultiAgentFormatter
	tracker   providers.RequestTracker
	logger    *zap.Logger
}

var _ llm.Provider = (*Provider)(nil)

// NewProvider 使用官方 SDK 客户端创建 Provider。
// SDK 自带的重试被关闭，失败直接以统一错误码返回给调用方。
func NewProvider(cfg providers.AnthropicConfig, f *MultiAgentFormatter, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := sdk.NewClient(opts...)
	return NewProviderWithClient(&client.Messages, cfg, f, logger)
}

// NewProviderWithClient 使用外部提供的 MessagesClient 创建 Provider
func NewProviderWithClient(client MessagesClient, cfg providers.AnthropicConfig, f *MultiAgentFormatter, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if f == nil {
		f = NewMultiAgentFormatter(formatter.Options{Logger: logger})
	}
	logger = logger.With(zap.String("component", "anthropic_provider"))
	return &Provider{
		cfg:       cfg,
		client:    client,
		formatter: f,
		tracker:   providers.RequestTracker{Metrics: observability.Default(), Logger: logger},
		logger:    logger,
	}
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

// BuildParams formats req into Messages API parameters without sending them.
func (p *Provider) BuildParams(ctx context.Context, req *llm.ChatRequest) (*sdk.MessageNewParams, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "messages are required").WithProvider(providerName)
	}

	maxTokens := p.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := &sdk.MessageNewParams{
		Model:     sdk.Model(providers.ChooseModel(ctx, req, p.cfg.Model, defaultModel)),
		MaxTokens: int64(maxTokens),
	}

	formatted, err := p.formatter.Format(ctx, req.Messages)
	if err != nil {
		return nil, err
	}
	formatted.Apply(params)
	if len(params.Messages) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest,
			"request has no messages besides the system prompt").WithProvider(providerName)
	}

	if err := ApplyOptionsAndTools(params, req.Options, req.Tools, req.ToolChoice); err != nil {
		return nil, err
	}
	return params, nil
}

// BuildPayload implements llm.Provider.
func (p *Provider) BuildPayload(ctx context.Context, req *llm.ChatRequest) (any, error) {
	return p.BuildParams(ctx, req)
}

// Completion 发起同步请求并解析响应
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (resp *types.ChatResponse, err error) {
	params, err := p.BuildParams(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx, finish := p.tracker.Start(ctx, providerName, string(params.Model))
	defer func() { finish(resp, err) }()

	msg, err := p.client.New(ctx, *params)
	if err != nil {
		return nil, mapError(err)
	}
	return ParseResponse(msg)
}

// mapError 把 SDK 错误映射为统一错误码
func mapError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return providers.MapHTTPError(apiErr.StatusCode, errorMessage(apiErr), providerName).WithCause(err)
	}
	return providers.MapTransportError(err, providerName)
}

// errorMessage 读取 {"type":"error","error":{"type":...,"message":...}} 中的 message
func errorMessage(apiErr *sdk.Error) string {
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if raw := apiErr.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &body) == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return "anthropic request failed"
}
