package formatter

import (
	"strings"

	"github.com/BaSui01/agentscope/types"
)

const (
	UnsupportedPlaceholder = "[Unsupported content]"
	EmptyToolResult        = "[Empty tool result]"
)

// Placeholder returns the bracketed stand-in for a media block kind,
// e.g. "[Image]".
func Placeholder(kind types.BlockType) string {
	switch kind {
	case types.BlockImage:
		return "[Image]"
	case types.BlockAudio:
		return "[Audio]"
	case types.BlockVideo:
		return "[Video]"
	default:
		return UnsupportedPlaceholder
	}
}

// FailedPlaceholder renders a media block that could not be resolved,
// e.g. "[Image - processing failed: file not found]".
func FailedPlaceholder(kind types.BlockType, err error) string {
	p := Placeholder(kind)
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return strings.TrimSuffix(p, "]") + " - processing failed: " + reason + "]"
}

// Collapse renders tool output as plain text. Text blocks are joined with
// newlines, media becomes a placeholder, thinking is omitted and nested
// results are collapsed recursively. It never fails.
func Collapse(output []types.ContentBlock) string {
	lines := make([]string, 0, len(output))
	for _, b := range output {
		switch v := b.(type) {
		case types.TextBlock:
			lines = append(lines, v.Text)
		case types.ThinkingBlock:
		case types.ImageBlock, types.AudioBlock, types.VideoBlock:
			lines = append(lines, Placeholder(v.BlockType()))
		case types.ToolResultBlock:
			if s := Collapse(v.Output); s != "" {
				lines = append(lines, s)
			}
		default:
			lines = append(lines, UnsupportedPlaceholder)
		}
	}
	return strings.Join(lines, "\n")
}

// SenderLabel is the name shown in front of a transcript line: the sender
// name when set, the role otherwise.
func SenderLabel(msg types.Message) string {
	if msg.Name != "" {
		return msg.Name
	}
	return string(msg.Role)
}
