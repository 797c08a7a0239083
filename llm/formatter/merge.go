package formatter

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/llm/media"
	"github.com/BaSui01/agentscope/types"
)

// DefaultPreamble introduces the first history transcript of a request.
const DefaultPreamble = "# Conversation History\n" +
	"The content between <history></history> tags contains your conversation history\n"

const (
	historyOpen  = "<history>"
	historyClose = "</history>"
)

// Part is one piece of a merged transcript: TextPart or MediaPart.
type Part interface {
	isPart()
}

// TextPart is a run of transcript lines joined by "\n".
type TextPart struct {
	Text string
}

// MediaPart is a resolved media block spliced between text parts.
type MediaPart struct {
	Kind  types.BlockType
	Media media.Media
}

func (TextPart) isPart()  {}
func (MediaPart) isPart() {}

// MediaPolicy decides which media kinds a transcript carries inline. Kinds
// that are not inline become "{label}: [Image]" style lines. The zero value
// inlines nothing.
type MediaPolicy struct {
	inline map[types.BlockType]bool
}

// InlineKinds returns a policy inlining the given kinds.
func InlineKinds(kinds ...types.BlockType) MediaPolicy {
	p := MediaPolicy{inline: make(map[types.BlockType]bool, len(kinds))}
	for _, k := range kinds {
		p.inline[k] = true
	}
	return p
}

// Inline reports whether kind is emitted as a MediaPart.
func (p MediaPolicy) Inline(kind types.BlockType) bool { return p.inline[kind] }

var (
	// MediaInline splices every media kind into the transcript.
	MediaInline = InlineKinds(types.BlockImage, types.BlockAudio, types.BlockVideo)
	// MediaPlaceholder renders every media kind as a text placeholder.
	MediaPlaceholder = MediaPolicy{}
)

// Merger folds an AGENT_CONVERSATION group into a single history transcript.
type Merger struct {
	Preamble string
	Policy   MediaPolicy
	Resolver media.Resolver
	Logger   *zap.Logger
}

// Merge renders msgs as "<history>" ... "</history>" lines labelled by
// sender. Text accumulated before an inline media block is flushed into its
// own TextPart so text never merges across a media boundary. Only the first
// conversation group of a call carries the preamble.
func (m *Merger) Merge(ctx context.Context, st *FormatState, msgs []types.Message) []Part {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		parts []Part
		lines []string
	)
	if st.TakeFirstConversation() {
		lines = append(lines, m.Preamble+historyOpen)
	} else {
		lines = append(lines, historyOpen)
	}

	flush := func() {
		if len(lines) == 0 {
			return
		}
		parts = append(parts, TextPart{Text: strings.Join(lines, "\n")})
		lines = nil
	}

	for _, msg := range msgs {
		label := SenderLabel(msg)
		for _, b := range msg.Content {
			switch v := b.(type) {
			case types.TextBlock:
				lines = append(lines, label+": "+v.Text)

			case types.ImageBlock, types.AudioBlock, types.VideoBlock:
				kind := v.BlockType()
				if !m.Policy.Inline(kind) || m.Resolver == nil {
					lines = append(lines, label+": "+Placeholder(kind))
					continue
				}
				src, _ := types.MediaSource(v)
				resolved, err := m.Resolver.Resolve(ctx, kind, src)
				if err != nil {
					st.NoteDegraded(kind)
					logger.Warn("media degraded to placeholder",
						zap.String("sender", label),
						zap.String("kind", string(kind)),
						zap.Error(err))
					lines = append(lines, label+": "+FailedPlaceholder(kind, err))
					continue
				}
				flush()
				parts = append(parts, MediaPart{Kind: kind, Media: resolved})

			case types.ThinkingBlock:
				logger.Debug("skipping thinking block in history", zap.String("sender", label))

			case types.ToolResultBlock:
				logger.Warn("tool result inside conversation group",
					zap.String("sender", label),
					zap.String("tool", v.Name))
				text := Collapse(v.Output)
				if text == "" {
					text = EmptyToolResult
				}
				lines = append(lines, label+": "+text)

			default:
				logger.Warn("unsupported block in conversation group",
					zap.String("sender", label),
					zap.Any("block", b))
				lines = append(lines, label+": "+UnsupportedPlaceholder)
			}
		}
	}

	lines = append(lines, historyClose)
	flush()
	return parts
}
