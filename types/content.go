package types

// BlockType 是内容块的类型标签。
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockThinking   BlockType = "thinking"
	BlockImage      BlockType = "image"
	BlockAudio      BlockType = "audio"
	BlockVideo      BlockType = "video"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one typed unit of message content.
// The interface is open: consumers must handle unknown variants in a default branch.
type ContentBlock interface {
	BlockType() BlockType
}

// TextBlock is plain UTF-8 text. Empty text is allowed.
type TextBlock struct {
	Text string `json:"text"`
}

func (TextBlock) BlockType() BlockType { return BlockText }

// ThinkingBlock carries model reasoning. Metadata is provider-opaque and is
// passed through unmodified (Anthropic stores its signature under MetaSignature).
type ThinkingBlock struct {
	Thinking string         `json:"thinking"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (ThinkingBlock) BlockType() BlockType { return BlockThinking }

// MetaSignature is the ThinkingBlock metadata key holding a provider signature.
const MetaSignature = "signature"

// Signature returns the signature stored in metadata, if any.
func (b ThinkingBlock) Signature() string {
	if s, ok := b.Metadata[MetaSignature].(string); ok {
		return s
	}
	return ""
}

// ImageBlock is an image referenced by URL or carried inline.
type ImageBlock struct {
	Source Source `json:"source"`
}

func (ImageBlock) BlockType() BlockType { return BlockImage }

// AudioBlock is an audio clip referenced by URL or carried inline.
type AudioBlock struct {
	Source Source `json:"source"`
}

func (AudioBlock) BlockType() BlockType { return BlockAudio }

// VideoBlock is a video referenced by URL or carried inline.
type VideoBlock struct {
	Source Source `json:"source"`
}

func (VideoBlock) BlockType() BlockType { return BlockVideo }

// MediaSource returns the source of an image, audio or video block.
func MediaSource(b ContentBlock) (Source, bool) {
	switch v := b.(type) {
	case ImageBlock:
		return v.Source, true
	case AudioBlock:
		return v.Source, true
	case VideoBlock:
		return v.Source, true
	}
	return nil, false
}

// IsMedia reports whether the block is an image, audio or video block.
func IsMedia(b ContentBlock) bool {
	_, ok := MediaSource(b)
	return ok
}

// ToolUseBlock is a tool invocation request. ID and Name are required when
// the block is sent to a provider.
type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
	// RawContent keeps the unparsed streaming arguments when available.
	RawContent string         `json:"raw_content,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (ToolUseBlock) BlockType() BlockType { return BlockToolUse }

// NewToolUseBlock builds a tool_use block; a nil input becomes an empty map.
func NewToolUseBlock(id, name string, input map[string]any) ToolUseBlock {
	if input == nil {
		input = map[string]any{}
	}
	return ToolUseBlock{ID: id, Name: name, Input: input}
}

// MetaSuspended is the ToolResultBlock metadata key marking a result that
// awaits out-of-band (human) completion.
const MetaSuspended = "suspended"

// MetaIsError is the ToolResultBlock metadata key marking a failed tool call.
const MetaIsError = "is_error"

// ToolResultBlock is the output of a tool invocation. ID and Name are empty
// when returned straight from tool execution and must be set once the
// result is embedded in a message.
type ToolResultBlock struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Output   []ContentBlock `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (ToolResultBlock) BlockType() BlockType { return BlockToolResult }

// NewToolResult builds an unbound tool result from the tool's output.
func NewToolResult(output ...ContentBlock) ToolResultBlock {
	out := make([]ContentBlock, 0, len(output))
	for _, b := range output {
		if b != nil {
			out = append(out, b)
		}
	}
	return ToolResultBlock{Output: out}
}

// WithCall binds the result to the tool call it answers.
func (b ToolResultBlock) WithCall(id, name string) ToolResultBlock {
	b.ID = id
	b.Name = name
	return b
}

// Suspend returns a copy marked as awaiting out-of-band completion.
func (b ToolResultBlock) Suspend() ToolResultBlock {
	meta := make(map[string]any, len(b.Metadata)+1)
	for k, v := range b.Metadata {
		meta[k] = v
	}
	meta[MetaSuspended] = true
	b.Metadata = meta
	return b
}

// IsSuspended reports whether the result awaits out-of-band completion.
func (b ToolResultBlock) IsSuspended() bool {
	v, _ := b.Metadata[MetaSuspended].(bool)
	return v
}

// Source 描述媒体内容的来源：URL 或内联 base64 数据。
type Source interface {
	SourceType() string
}

const (
	SourceURL    = "url"
	SourceBase64 = "base64"
)

// URLSource points at a remote URL or a local file path.
type URLSource struct {
	URL string `json:"url"`
}

func (URLSource) SourceType() string { return SourceURL }

// Base64Source carries inline base64-encoded data.
type Base64Source struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

func (Base64Source) SourceType() string { return SourceBase64 }
