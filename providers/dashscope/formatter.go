package dashscope

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/llm/formatter"
	"github.com/BaSui01/agentscope/llm/media"
	"github.com/BaSui01/agentscope/types"
)

const providerName = "dashscope"

const (
	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"
	roleTool      = "tool"
)

// FormatOptions 在共享选项之外增加多模态开关
type FormatOptions struct {
	formatter.Options
	Multimodal bool
}

// MultiAgentFormatter merges multi-agent conversation turns into one user
// message per conversation group. Safe for concurrent use.
type MultiAgentFormatter struct {
	pipeline *formatter.Pipeline
	merger   *formatter.Merger
	conv     *converter
}

// NewMultiAgentFormatter 创建多智能体格式化器
func NewMultiAgentFormatter(opts FormatOptions) *MultiAgentFormatter {
	policy := formatter.MediaPlaceholder
	if opts.Multimodal {
		policy = formatter.MediaInline
	}
	return &MultiAgentFormatter{
		pipeline: opts.NewPipeline(providerName),
		merger:   opts.NewMerger(providerName, policy),
		conv:     newConverter(opts),
	}
}

// Multimodal reports whether content is emitted as part lists.
func (f *MultiAgentFormatter) Multimodal() bool { return f.conv.multimodal }

// Format converts msgs into DashScope messages.
func (f *MultiAgentFormatter) Format(ctx context.Context, msgs []types.Message) ([]Message, error) {
	var out []Message
	err := f.pipeline.Run(ctx, msgs, func(ctx context.Context, st *formatter.FormatState, index int, g formatter.MessageGroup) error {
		switch g.Type {
		case formatter.GroupSystem:
			out = f.conv.appendSystem(out, index, g.Messages[0])
		case formatter.GroupToolSequence:
			out = f.conv.appendToolSequence(ctx, st, out, g.Messages)
		default:
			parts := f.merger.Merge(ctx, st, g.Messages)
			out = append(out, Message{Role: roleUser, Content: f.conv.transcript(parts)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ChatFormatter maps every message to a DashScope message of the same role.
type ChatFormatter struct {
	pipeline *formatter.Pipeline
	conv     *converter
}

// NewChatFormatter 创建单智能体格式化器
func NewChatFormatter(opts FormatOptions) *ChatFormatter {
	return &ChatFormatter{
		pipeline: opts.NewPipeline(providerName),
		conv:     newConverter(opts),
	}
}

// Format converts msgs into DashScope messages.
func (f *ChatFormatter) Format(ctx context.Context, msgs []types.Message) ([]Message, error) {
	var out []Message
	err := f.pipeline.Run(ctx, msgs, func(ctx context.Context, st *formatter.FormatState, index int, g formatter.MessageGroup) error {
		switch g.Type {
		case formatter.GroupSystem:
			out = f.conv.appendSystem(out, index, g.Messages[0])
		case formatter.GroupToolSequence:
			out = f.conv.appendToolSequence(ctx, st, out, g.Messages)
		default:
			for _, msg := range g.Messages {
				if m, ok := f.conv.message(ctx, st, msg.Role, msg.Content); ok {
					out = append(out, m)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// 🔄 内容转换
// =============================================================================

type converter struct {
	multimodal bool
	resolver   media.Resolver
	logger     *zap.Logger
}

func newConverter(opts FormatOptions) *converter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &converter{
		multimodal: opts.Multimodal,
		resolver:   opts.Resolver,
		logger:     logger.With(zap.String("component", "dashscope_formatter")),
	}
}

func (c *converter) appendSystem(out []Message, index int, msg types.Message) []Message {
	text := msg.TextContent()
	if text == "" {
		return out
	}
	role := roleSystem
	if index > 0 {
		c.logger.Debug("demoting non-leading system message to user turn", zap.Int("group", index))
		role = roleUser
	}
	return append(out, Message{Role: role, Content: c.textContent(text)})
}

// appendToolSequence 每条源消息先输出普通内容（含 tool_calls），再为每个 tool_result 输出一条 tool 消息
func (c *converter) appendToolSequence(ctx context.Context, st *formatter.FormatState, out []Message, msgs []types.Message) []Message {
	for _, msg := range msgs {
		var (
			rest    []types.ContentBlock
			calls   []ToolCall
			results []types.ToolResultBlock
		)
		for _, b := range msg.Content {
			switch v := b.(type) {
			case types.ToolResultBlock:
				results = append(results, v)
			case types.ToolUseBlock:
				calls = append(calls, toolCall(v))
			default:
				rest = append(rest, b)
			}
		}

		m, ok := c.message(ctx, st, msg.Role, rest)
		if len(calls) > 0 {
			if !ok {
				m = Message{Role: roleAssistant, Content: c.emptyContent()}
			}
			// tool_calls 只能出现在 assistant 消息上
			m.Role = roleAssistant
			m.ToolCalls = calls
			ok = true
		}
		if ok {
			out = append(out, m)
		}

		for _, tr := range results {
			out = append(out, Message{
				Role:       roleTool,
				Content:    c.toolOutput(ctx, st, tr.Output),
				Name:       tr.Name,
				ToolCallID: tr.ID,
			})
		}
	}
	return out
}

func toolCall(tu types.ToolUseBlock) ToolCall {
	args := tu.RawContent
	if tu.Input != nil || args == "" {
		input := tu.Input
		if input == nil {
			input = map[string]any{}
		}
		raw, err := json.Marshal(input)
		if err == nil {
			args = string(raw)
		}
	}
	return ToolCall{
		ID:       tu.ID,
		Type:     "function",
		Function: FunctionCall{Name: tu.Name, Arguments: args},
	}
}

// message 转换一条消息的普通内容；没有可发送内容时返回 false
func (c *converter) message(ctx context.Context, st *formatter.FormatState, role types.Role, content []types.ContentBlock) (Message, bool) {
	r := roleUser
	if role == types.RoleAssistant {
		r = roleAssistant
	}
	if c.multimodal {
		parts := c.parts(ctx, st, content)
		if len(parts) == 0 {
			return Message{}, false
		}
		return Message{Role: r, Content: parts}, true
	}
	text := c.text(content)
	if text == "" {
		return Message{}, false
	}
	return Message{Role: r, Content: text}, true
}

func (c *converter) emptyContent() any {
	if c.multimodal {
		return []Part{}
	}
	return ""
}

func (c *converter) textContent(text string) any {
	if c.multimodal {
		return []Part{{Text: text}}
	}
	return text
}

// text 文本模式：媒体渲染为占位文本，思考内容丢弃
func (c *converter) text(content []types.ContentBlock) string {
	lines := make([]string, 0, len(content))
	for _, b := range content {
		switch v := b.(type) {
		case types.TextBlock:
			if v.Text != "" {
				lines = append(lines, v.Text)
			}
		case types.ThinkingBlock:
		case types.ImageBlock, types.AudioBlock, types.VideoBlock:
			lines = append(lines, formatter.Placeholder(v.BlockType()))
		default:
			c.logger.Warn("unsupported content block", zap.Any("block", b))
			lines = append(lines, formatter.UnsupportedPlaceholder)
		}
	}
	return strings.Join(lines, "\n")
}

func (c *converter) parts(ctx context.Context, st *formatter.FormatState, content []types.ContentBlock) []Part {
	out := make([]Part, 0, len(content))
	for _, b := range content {
		switch v := b.(type) {
		case types.TextBlock:
			if v.Text != "" {
				out = append(out, Part{Text: v.Text})
			}
		case types.ThinkingBlock:
		case types.ImageBlock, types.AudioBlock, types.VideoBlock:
			src, _ := types.MediaSource(v)
			out = append(out, c.media(ctx, st, v.BlockType(), src))
		default:
			c.logger.Warn("unsupported content block", zap.Any("block", b))
			out = append(out, Part{Text: formatter.UnsupportedPlaceholder})
		}
	}
	return out
}

// media 解析失败时降级为占位文本
func (c *converter) media(ctx context.Context, st *formatter.FormatState, kind types.BlockType, src types.Source) Part {
	if c.resolver == nil {
		return Part{Text: formatter.Placeholder(kind)}
	}
	m, err := c.resolver.Resolve(ctx, kind, src)
	if err != nil {
		st.NoteDegraded(kind)
		c.logger.Warn("media degraded to placeholder", zap.String("kind", string(kind)), zap.Error(err))
		return Part{Text: formatter.FailedPlaceholder(kind, err)}
	}
	return mediaPart(kind, m)
}

func mediaPart(kind types.BlockType, m media.Media) Part {
	ref := m.DataURI()
	switch kind {
	case types.BlockAudio:
		return Part{Audio: ref}
	case types.BlockVideo:
		return Part{Video: ref}
	default:
		return Part{Image: ref}
	}
}

func (c *converter) toolOutput(ctx context.Context, st *formatter.FormatState, output []types.ContentBlock) any {
	if !c.multimodal {
		text := formatter.Collapse(output)
		if text == "" {
			text = formatter.EmptyToolResult
		}
		return text
	}
	var parts []Part
	for _, b := range output {
		switch v := b.(type) {
		case types.ImageBlock, types.AudioBlock, types.VideoBlock:
			src, _ := types.MediaSource(v)
			parts = append(parts, c.media(ctx, st, v.BlockType(), src))
		default:
			if text := formatter.Collapse([]types.ContentBlock{b}); text != "" {
				parts = append(parts, Part{Text: text})
			}
		}
	}
	if len(parts) == 0 {
		parts = []Part{{Text: formatter.EmptyToolResult}}
	}
	return parts
}

// transcript 把合并后的记录转换为 content
func (c *converter) transcript(parts []formatter.Part) any {
	if !c.multimodal {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			switch v := p.(type) {
			case formatter.TextPart:
				texts = append(texts, v.Text)
			case formatter.MediaPart:
				texts = append(texts, formatter.Placeholder(v.Kind))
			}
		}
		return strings.Join(texts, "\n")
	}
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case formatter.TextPart:
			out = append(out, Part{Text: v.Text})
		case formatter.MediaPart:
			out = append(out, mediaPart(v.Kind, v.Media))
		}
	}
	return out
}
