package types

import (
	"encoding/json"
	"time"
)

// ToolSchema defines a tool's interface for LLM function calling.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ToolChoiceMode 控制模型是否以及如何调用工具。
type ToolChoiceMode string

const (
	ToolChoiceAuto ToolChoiceMode = "auto"
	ToolChoiceNone ToolChoiceMode = "none"
	ToolChoiceAny  ToolChoiceMode = "any"
	ToolChoiceTool ToolChoiceMode = "tool" // 强制调用 Name 指定的工具
)

// ToolChoice is the provider-neutral tool selection directive.
// A nil *ToolChoice leaves the provider default in place.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode"`
	Name string         `json:"name,omitempty"`
}

// GenerateOptions carries sampling and limit parameters. Pointer fields are
// left unset on the provider request when nil.
type GenerateOptions struct {
	Model          string   `json:"model,omitempty" yaml:"model"`
	MaxTokens      int      `json:"max_tokens,omitempty" yaml:"max_tokens"`
	Temperature    *float64 `json:"temperature,omitempty" yaml:"temperature"`
	TopP           *float64 `json:"top_p,omitempty" yaml:"top_p"`
	TopK           *int     `json:"top_k,omitempty" yaml:"top_k"`
	Seed           *int     `json:"seed,omitempty" yaml:"seed"`
	StopSequences  []string `json:"stop_sequences,omitempty" yaml:"stop_sequences"`
	ThinkingBudget int      `json:"thinking_budget,omitempty" yaml:"thinking_budget"`
}

// ChatUsage reports token consumption of one completion.
type ChatUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ChatResponse is a parsed provider completion.
type ChatResponse struct {
	ID         string         `json:"id,omitempty"`
	Provider   string         `json:"provider,omitempty"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	Usage      ChatUsage      `json:"usage"`
	StopReason string         `json:"stop_reason,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
}

// Message converts the response into an assistant message named after sender.
func (r *ChatResponse) Message(sender string) Message {
	return NewMessage(RoleAssistant, r.Content...).WithName(sender)
}
