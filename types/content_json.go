package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 内容块与 Source 以 "type" 字段作为判别标签进行序列化，
// 解码时据此恢复具体类型。

func (b TextBlock) MarshalJSON() ([]byte, error) {
	type alias TextBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{BlockText, alias(b)})
}

func (b ThinkingBlock) MarshalJSON() ([]byte, error) {
	type alias ThinkingBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{BlockThinking, alias(b)})
}

func (b ImageBlock) MarshalJSON() ([]byte, error) { return marshalMedia(BlockImage, b.Source) }
func (b AudioBlock) MarshalJSON() ([]byte, error) { return marshalMedia(BlockAudio, b.Source) }
func (b VideoBlock) MarshalJSON() ([]byte, error) { return marshalMedia(BlockVideo, b.Source) }

func marshalMedia(t BlockType, src Source) ([]byte, error) {
	return json.Marshal(struct {
		Type   BlockType `json:"type"`
		Source Source    `json:"source"`
	}{t, src})
}

func (b ToolUseBlock) MarshalJSON() ([]byte, error) {
	type alias ToolUseBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{BlockToolUse, alias(b)})
}

func (b ToolResultBlock) MarshalJSON() ([]byte, error) {
	type alias ToolResultBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{BlockToolResult, alias(b)})
}

func (s URLSource) MarshalJSON() ([]byte, error) {
	type alias URLSource
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{SourceURL, alias(s)})
}

func (s Base64Source) MarshalJSON() ([]byte, error) {
	type alias Base64Source
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{SourceBase64, alias(s)})
}

// UnmarshalJSON decodes a Message while materializing concrete ContentBlock
// implementations stored in the Content slice.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var tmp struct {
		alias
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*m = Message(tmp.alias)
	blocks, err := decodeBlocks(tmp.Content)
	if err != nil {
		return err
	}
	m.Content = blocks
	return nil
}

func (b *ToolResultBlock) UnmarshalJSON(data []byte) error {
	type alias ToolResultBlock
	var tmp struct {
		alias
		Output []json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*b = ToolResultBlock(tmp.alias)
	out, err := decodeBlocks(tmp.Output)
	if err != nil {
		return fmt.Errorf("decode tool_result output: %w", err)
	}
	b.Output = out
	return nil
}

func decodeBlocks(raws []json.RawMessage) ([]ContentBlock, error) {
	if len(raws) == 0 {
		return []ContentBlock{}, nil
	}
	out := make([]ContentBlock, 0, len(raws))
	for i, raw := range raws {
		b, err := DecodeContentBlock(raw)
		if err != nil {
			return nil, fmt.Errorf("decode content[%d]: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// DecodeContentBlock decodes one block using its "type" discriminator.
func DecodeContentBlock(raw json.RawMessage) (ContentBlock, error) {
	var head struct {
		Type   BlockType       `json:"type"`
		Source json.RawMessage `json:"source"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode block header: %w", err)
	}
	switch head.Type {
	case BlockText:
		var b TextBlock
		err := json.Unmarshal(raw, &b)
		return b, err
	case BlockThinking:
		var b ThinkingBlock
		err := json.Unmarshal(raw, &b)
		return b, err
	case BlockImage, BlockAudio, BlockVideo:
		src, err := DecodeSource(head.Source)
		if err != nil {
			return nil, fmt.Errorf("decode %s source: %w", head.Type, err)
		}
		switch head.Type {
		case BlockImage:
			return ImageBlock{Source: src}, nil
		case BlockAudio:
			return AudioBlock{Source: src}, nil
		default:
			return VideoBlock{Source: src}, nil
		}
	case BlockToolUse:
		var b ToolUseBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		if b.Input == nil {
			b.Input = map[string]any{}
		}
		return b, nil
	case BlockToolResult:
		var b ToolResultBlock
		err := json.Unmarshal(raw, &b)
		return b, err
	case "":
		return nil, errors.New("content block is missing type")
	default:
		return nil, fmt.Errorf("unknown content block type %q", head.Type)
	}
}

// DecodeSource decodes a media source using its "type" discriminator.
func DecodeSource(raw json.RawMessage) (Source, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("media source is missing")
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case SourceURL:
		var s URLSource
		err := json.Unmarshal(raw, &s)
		return s, err
	case SourceBase64:
		var s Base64Source
		err := json.Unmarshal(raw, &s)
		return s, err
	default:
		return nil, fmt.Errorf("unknown source type %q", head.Type)
	}
}
