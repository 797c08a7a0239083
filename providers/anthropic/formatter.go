package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/llm/formatter"
	"github.com/BaSui01/agentscope/llm/media"
	"github.com/BaSui01/agentscope/types"
)

const providerName = "anthropic"

// mediaPolicy: Messages API 只接受图片，音视频在记录中保留为占位文本
var mediaPolicy = formatter.InlineKinds(types.BlockImage)

// Request is the formatted part of a Messages API request.
type Request struct {
	System   []sdk.TextBlockParam `json:"system,omitempty"`
	Messages []sdk.MessageParam   `json:"messages"`
}

// Apply writes the system prompt and messages into params.
func (r *Request) Apply(params *sdk.MessageNewParams) {
	params.System = r.System
	params.Messages = r.Messages
}

// MultiAgentFormatter merges multi-agent conversation turns into a single
// user message per conversation group. It holds no per-call state and is safe
// for concurrent use.
type MultiAgentFormatter struct {
	pipeline *formatter.Pipeline
	merger   *formatter.Merger
	conv     *converter
}

// NewMultiAgentFormatter 创建多智能体格式化器
func NewMultiAgentFormatter(opts formatter.Options) *MultiAgentFormatter {
	return &MultiAgentFormatter{
		pipeline: opts.NewPipeline(providerName),
		merger:   opts.NewMerger(providerName, mediaPolicy),
		conv:     newConverter(opts),
	}
}

// Format converts msgs into a Messages API request.
func (f *MultiAgentFormatter) Format(ctx context.Context, msgs []types.Message) (*Request, error) {
	req := &Request{}
	err := f.pipeline.Run(ctx, msgs, func(ctx context.Context, st *formatter.FormatState, index int, g formatter.MessageGroup) error {
		switch g.Type {
		case formatter.GroupSystem:
			f.conv.emitSystem(req, index, g.Messages[0])
		case formatter.GroupToolSequence:
			f.conv.emitToolSequence(ctx, st, req, g.Messages)
		default:
			parts := f.merger.Merge(ctx, st, g.Messages)
			req.Messages = append(req.Messages, sdk.NewUserMessage(f.conv.parts(parts)...))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ChatFormatter maps every message to a provider turn of the same role.
type ChatFormatter struct {
	pipeline *formatter.Pipeline
	conv     *converter
}

// NewChatFormatter 创建单智能体格式化器
func NewChatFormatter(opts formatter.Options) *ChatFormatter {
	return &ChatFormatter{
		pipeline: opts.NewPipeline(providerName),
		conv:     newConverter(opts),
	}
}

// Format converts msgs into a Messages API request.
func (f *ChatFormatter) Format(ctx context.Context, msgs []types.Message) (*Request, error) {
	req := &Request{}
	err := f.pipeline.Run(ctx, msgs, func(ctx context.Context, st *formatter.FormatState, index int, g formatter.MessageGroup) error {
		switch g.Type {
		case formatter.GroupSystem:
			f.conv.emitSystem(req, index, g.Messages[0])
		case formatter.GroupToolSequence:
			f.conv.emitToolSequence(ctx, st, req, g.Messages)
		default:
			for _, msg := range g.Messages {
				if blocks := f.conv.blocks(ctx, st, msg.Content); len(blocks) > 0 {
					req.Messages = append(req.Messages, turn(msg.Role, blocks))
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// =============================================================================
// 🔄 内容块转换
// =============================================================================

type converter struct {
	resolver media.Resolver
	logger   *zap.Logger
}

func newConverter(opts formatter.Options) *converter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &converter{
		resolver: opts.Resolver,
		logger:   logger.With(zap.String("component", "anthropic_formatter")),
	}
}

// turn 把角色映射为 Messages API 的两种角色之一
func turn(role types.Role, blocks []sdk.ContentBlockParamUnion) sdk.MessageParam {
	if role == types.RoleAssistant {
		return sdk.NewAssistantMessage(blocks...)
	}
	return sdk.NewUserMessage(blocks...)
}

func (c *converter) emitSystem(req *Request, index int, msg types.Message) {
	text := msg.TextContent()
	if text == "" {
		return
	}
	if index == 0 {
		req.System = append(req.System, sdk.TextBlockParam{Text: text})
		return
	}
	c.logger.Debug("demoting non-leading system message to user turn", zap.Int("group", index))
	req.Messages = append(req.Messages, sdk.NewUserMessage(sdk.NewTextBlock(text)))
}

// emitToolSequence 每条源消息先输出普通内容，再为每个 tool_result 输出一条 user 消息
func (c *converter) emitToolSequence(ctx context.Context, st *formatter.FormatState, req *Request, msgs []types.Message) {
	for _, msg := range msgs {
		var (
			rest    []types.ContentBlock
			results []types.ToolResultBlock
		)
		for _, b := range msg.Content {
			if tr, ok := b.(types.ToolResultBlock); ok {
				results = append(results, tr)
				continue
			}
			rest = append(rest, b)
		}
		if blocks := c.blocks(ctx, st, rest); len(blocks) > 0 {
			req.Messages = append(req.Messages, turn(msg.Role, blocks))
		}
		for _, tr := range results {
			req.Messages = append(req.Messages, sdk.NewUserMessage(c.toolResult(ctx, st, tr)))
		}
	}
}

func (c *converter) blocks(ctx context.Context, st *formatter.FormatState, content []types.ContentBlock) []sdk.ContentBlockParamUnion {
	out := make([]sdk.ContentBlockParamUnion, 0, len(content))
	for _, b := range content {
		switch v := b.(type) {
		case types.TextBlock:
			// API 拒绝空文本块
			if v.Text != "" {
				out = append(out, sdk.NewTextBlock(v.Text))
			}
		case types.ThinkingBlock:
			sig := v.Signature()
			if sig == "" {
				c.logger.Debug("dropping unsigned thinking block")
				continue
			}
			out = append(out, sdk.NewThinkingBlock(sig, v.Thinking))
		case types.ImageBlock:
			out = append(out, c.image(ctx, st, v.Source))
		case types.AudioBlock, types.VideoBlock:
			out = append(out, sdk.NewTextBlock(formatter.Placeholder(v.BlockType())))
		case types.ToolUseBlock:
			input := v.Input
			if input == nil {
				input = map[string]any{}
			}
			out = append(out, sdk.NewToolUseBlock(v.ID, input, v.Name))
		case types.ToolResultBlock:
			out = append(out, c.toolResult(ctx, st, v))
		default:
			c.logger.Warn("unsupported content block", zap.Any("block", b))
			out = append(out, sdk.NewTextBlock(formatter.UnsupportedPlaceholder))
		}
	}
	return out
}

// image 解析失败时降级为可见的占位文本
func (c *converter) image(ctx context.Context, st *formatter.FormatState, src types.Source) sdk.ContentBlockParamUnion {
	if c.resolver == nil {
		return sdk.NewTextBlock(formatter.Placeholder(types.BlockImage))
	}
	m, err := c.resolver.Resolve(ctx, types.BlockImage, src)
	if err != nil {
		st.NoteDegraded(types.BlockImage)
		c.logger.Warn("image degraded to placeholder", zap.Error(err))
		return sdk.NewTextBlock(formatter.FailedPlaceholder(types.BlockImage, err))
	}
	return imageBlock(m)
}

func imageBlock(m media.Media) sdk.ContentBlockParamUnion {
	if m.IsInline() {
		return sdk.NewImageBlockBase64(m.MediaType, m.Data)
	}
	return sdk.NewImageBlock(sdk.URLImageSourceParam{URL: m.URL})
}

func (c *converter) toolResult(ctx context.Context, st *formatter.FormatState, tr types.ToolResultBlock) sdk.ContentBlockParamUnion {
	p := sdk.ToolResultBlockParam{ToolUseID: tr.ID}
	for _, b := range tr.Output {
		switch v := b.(type) {
		case types.TextBlock:
			if v.Text != "" {
				p.Content = append(p.Content, sdk.ToolResultBlockParamContentUnion{OfText: &sdk.TextBlockParam{Text: v.Text}})
			}
		case types.ImageBlock:
			img := c.image(ctx, st, v.Source)
			if img.OfImage != nil {
				p.Content = append(p.Content, sdk.ToolResultBlockParamContentUnion{OfImage: img.OfImage})
			} else {
				p.Content = append(p.Content, sdk.ToolResultBlockParamContentUnion{OfText: img.OfText})
			}
		case types.ThinkingBlock:
		default:
			if text := formatter.Collapse([]types.ContentBlock{b}); text != "" {
				p.Content = append(p.Content, sdk.ToolResultBlockParamContentUnion{OfText: &sdk.TextBlockParam{Text: text}})
			}
		}
	}
	if isErr, ok := tr.Metadata[types.MetaIsError].(bool); ok && isErr {
		p.IsError = sdk.Bool(true)
	}
	return sdk.ContentBlockParamUnion{OfToolResult: &p}
}

// parts 把合并后的记录转换为内容块
func (c *converter) parts(parts []formatter.Part) []sdk.ContentBlockParamUnion {
	out := make([]sdk.ContentBlockParamUnion, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case formatter.TextPart:
			out = append(out, sdk.NewTextBlock(v.Text))
		case formatter.MediaPart:
			if v.Kind != types.BlockImage {
				out = append(out, sdk.NewTextBlock(formatter.Placeholder(v.Kind)))
				continue
			}
			out = append(out, imageBlock(v.Media))
		}
	}
	return out
}
