package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/llm"
	"github.com/BaSui01/agentscope/llm/observability"
	"github.com/BaSui01/agentscope/types"
)

// ChooseModel selects the model to use based on priority:
// 1. Context override (types.WithLLMModel)
// 2. Request model (if specified in ChatRequest options)
// 3. Config model (if specified in provider configuration)
// 4. Default model (provider-specific default)
func ChooseModel(ctx context.Context, req *llm.ChatRequest, configModel string, defaultModel string) string {
	if m, ok := types.LLMModel(ctx); ok && m != "" {
		return m
	}
	if req != nil && req.Options.Model != "" {
		return req.Options.Model
	}
	if configModel != "" {
		return configModel
	}
	return defaultModel
}

// MapHTTPError 将上游 HTTP 状态码映射为统一错误码
func MapHTTPError(status int, msg string, provider string) *types.Error {
	e := types.NewError(types.ErrUpstreamError, msg).WithHTTPStatus(status).WithProvider(provider)
	switch status {
	case http.StatusUnauthorized:
		e.Code = types.ErrUnauthorized
	case http.StatusForbidden:
		e.Code = types.ErrForbidden
	case http.StatusNotFound:
		e.Code = types.ErrModelNotFound
	case http.StatusTooManyRequests:
		e.Code = types.ErrRateLimited
		e.Retryable = true
	case http.StatusBadRequest:
		lower := strings.ToLower(msg)
		switch {
		case strings.Contains(lower, "quota") || strings.Contains(lower, "credit"):
			e.Code = types.ErrQuotaExceeded
		case strings.Contains(lower, "too long") || strings.Contains(lower, "context length"):
			e.Code = types.ErrContextTooLong
		default:
			e.Code = types.ErrInvalidRequest
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		e.Retryable = true
	case http.StatusGatewayTimeout:
		e.Code = types.ErrUpstreamTimeout
		e.Retryable = true
	case 529: // 模型过载
		e.Code = types.ErrModelOverloaded
		e.Retryable = true
	default:
		e.Retryable = status >= 500
	}
	return e
}

// MapTransportError 包装网络层错误（无 HTTP 状态码）
func MapTransportError(err error, provider string) *types.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.ErrUpstreamTimeout, "request timed out").
			WithCause(err).WithRetryable(true).WithProvider(provider)
	}
	return types.NewError(types.ErrUpstreamError, "request failed").
		WithCause(err).WithHTTPStatus(http.StatusBadGateway).WithRetryable(true).WithProvider(provider)
}

// RequestTracker 记录一次 Completion 调用的 span、OTel 指标、Prometheus 指标与日志
type RequestTracker struct {
	Metrics  *observability.Metrics
	Recorder llm.RequestRecorder
	Logger   *zap.Logger
}

// Start 开始追踪，返回的 finish 必须在请求结束时调用
func (t RequestTracker) Start(ctx context.Context, provider, model string) (context.Context, func(resp *types.ChatResponse, err error)) {
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := t.Recorder
	if recorder == nil {
		recorder = llm.NopRequestRecorder{}
	}
	metrics := t.Metrics
	if metrics == nil {
		metrics = observability.Default()
	}

	traceID, _ := types.TraceID(ctx)
	attrs := observability.RequestAttrs{Provider: provider, Model: model, TraceID: traceID}
	start := time.Now()
	ctx, span := metrics.StartRequest(ctx, attrs)

	return ctx, func(resp *types.ChatResponse, err error) {
		res := observability.ResponseAttrs{Status: "success", Duration: time.Since(start)}
		if resp != nil {
			res.TokensPrompt = resp.Usage.InputTokens
			res.TokensCompletion = resp.Usage.OutputTokens
		}
		if err != nil {
			res.Status = "error"
			res.ErrorCode = string(types.GetErrorCode(err))
			if res.ErrorCode == "" {
				res.ErrorCode = string(types.ErrInternalError)
			}
		}
		metrics.EndRequest(ctx, span, attrs, res)
		recorder.RecordLLMRequest(provider, model, res.Status, res.Duration, res.TokensPrompt, res.TokensCompletion)

		fields := []zap.Field{
			zap.String("provider", provider),
			zap.String("model", model),
			zap.Duration("duration", res.Duration),
			zap.Int("input_tokens", res.TokensPrompt),
			zap.Int("output_tokens", res.TokensCompletion),
		}
		if traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		if err != nil {
			logger.Warn("completion failed", append(fields, zap.Error(err))...)
			return
		}
		logger.Info("completion succeeded", fields...)
	}
}
