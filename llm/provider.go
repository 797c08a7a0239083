package llm

import (
	"context"
	"time"

	"github.com/BaSui01/agentscope/types"
)

// ChatRequest 是与 provider 无关的一次补全请求。
type ChatRequest struct {
	Messages   []types.Message       `json:"messages"`
	Options    types.GenerateOptions `json:"options,omitempty"`
	Tools      []types.ToolSchema    `json:"tools,omitempty"`
	ToolChoice *types.ToolChoice     `json:"tool_choice,omitempty"`
}

// Provider 定义了统一的 LLM 适配接口。
// 消息在发送前由 provider 自己的多智能体格式化器转换为厂商载荷。
type Provider interface {
	// Name 返回 Provider 的唯一标识
	Name() string

	// BuildPayload 只做格式化，返回可直接序列化为请求体的厂商载荷，不发起网络请求
	BuildPayload(ctx context.Context, req *ChatRequest) (any, error)

	// Completion 发起同步聊天请求，返回解析后的响应
	Completion(ctx context.Context, req *ChatRequest) (*types.ChatResponse, error)
}

// RequestRecorder receives per-request statistics. internal/metrics.Collector
// implements it.
type RequestRecorder interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// NopRequestRecorder discards everything.
type NopRequestRecorder struct{}

func (NopRequestRecorder) RecordLLMRequest(string, string, string, time.Duration, int, int) {}
