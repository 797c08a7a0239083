// =============================================================================
// 📦 AgentScope 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"github.com/BaSui01/agentscope/internal/cache"
	"github.com/BaSui01/agentscope/llm/media"
	"github.com/BaSui01/agentscope/providers"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Formatter: DefaultFormatterConfig(),
		Media:     media.DefaultConfig(),
		Cache:     cache.DefaultConfig(),
		Anthropic: DefaultAnthropicConfig(),
		DashScope: DefaultDashScopeConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultFormatterConfig 返回默认格式化配置
func DefaultFormatterConfig() FormatterConfig {
	return FormatterConfig{
		Mode:           "multi_agent",
		MaxTokens:      0,
		Tokenizer:      "estimator",
		TokenizerModel: "cl100k_base",
	}
}

// DefaultAnthropicConfig 返回默认 Anthropic 配置
func DefaultAnthropicConfig() providers.AnthropicConfig {
	return providers.AnthropicConfig{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 4096,
	}
}

// DefaultDashScopeConfig 返回默认 DashScope 配置
func DefaultDashScopeConfig() providers.DashScopeConfig {
	return providers.DashScopeConfig{
		BaseURL: "https://dashscope.aliyuncs.com",
		Model:   "qwen-plus",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "agentscope",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentscope",
		SampleRate:   0.1,
	}
}
