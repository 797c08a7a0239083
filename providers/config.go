package providers

import "time"

// AnthropicConfig Anthropic Provider 配置
type AnthropicConfig struct {
	APIKey    string        `json:"api_key" yaml:"api_key" env:"API_KEY"`
	BaseURL   string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Model     string        `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	MaxTokens int           `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" env:"MAX_TOKENS"` // Anthropic 要求必须提供 max_tokens
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// DashScopeConfig Alibaba DashScope (通义千问) Provider 配置
type DashScopeConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key" env:"API_KEY"`
	BaseURL string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
	// 多模态模式：content 为 parts 列表，走 multimodal-generation 接口
	Multimodal bool `json:"multimodal,omitempty" yaml:"multimodal,omitempty" env:"MULTIMODAL"`
}
