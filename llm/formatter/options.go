package formatter

import (
	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/llm/media"
	"github.com/BaSui01/agentscope/llm/observability"
	"github.com/BaSui01/agentscope/llm/tokenizer"
)

// Options 是各 provider 格式化器共享的构造参数
type Options struct {
	// Preamble 放在第一段 <history> 之前，空串时使用 DefaultPreamble
	Preamble string
	// Resolver 为 nil 时媒体一律渲染为占位文本
	Resolver  media.Resolver
	Tokenizer tokenizer.Tokenizer
	MaxTokens int
	Recorder  Recorder
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// NewPipeline builds the shared pipeline for provider.
func (o Options) NewPipeline(provider string) *Pipeline {
	return &Pipeline{
		Provider:  provider,
		Tokenizer: o.Tokenizer,
		MaxTokens: o.MaxTokens,
		Recorder:  o.Recorder,
		Metrics:   o.Metrics,
		Logger:    o.logger().With(zap.String("component", "formatter")),
	}
}

// NewMerger builds a history merger with the given media policy.
func (o Options) NewMerger(provider string, policy MediaPolicy) *Merger {
	preamble := o.Preamble
	if preamble == "" {
		preamble = DefaultPreamble
	}
	return &Merger{
		Preamble: preamble,
		Policy:   policy,
		Resolver: o.Resolver,
		Logger:   o.logger().With(zap.String("component", "merger"), zap.String("provider", provider)),
	}
}
