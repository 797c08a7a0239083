package types

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// String returns the underlying string value of the role.
func (r Role) String() string { return string(r) }

// Message 是一条不可变的对话消息。
// Content 中不允许出现 nil；Name 为空表示未设置发送者。
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Name      string         `json:"name,omitempty"`
	Content   []ContentBlock `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// NewMessage creates a new message with the given role and content blocks.
// Nil blocks are dropped.
func NewMessage(role Role, blocks ...ContentBlock) Message {
	content := make([]ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if b != nil {
			content = append(content, b)
		}
	}
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewTextMessage creates a single-text message from the named sender.
func NewTextMessage(role Role, name, text string) Message {
	return NewMessage(role, TextBlock{Text: text}).WithName(name)
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(text string) Message {
	return NewMessage(RoleSystem, TextBlock{Text: text})
}

// NewUserMessage creates a new user message.
func NewUserMessage(name, text string) Message {
	return NewTextMessage(RoleUser, name, text)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(name, text string) Message {
	return NewTextMessage(RoleAssistant, name, text)
}

// WithName returns a copy of the message with the sender name set.
func (m Message) WithName(name string) Message {
	m.Name = name
	return m
}

// WithMetadata returns a copy of the message with the metadata replaced.
func (m Message) WithMetadata(metadata map[string]any) Message {
	m.Metadata = metadata
	return m
}

// TextContent joins the text of every text block with newlines.
func (m Message) TextContent() string {
	var parts []string
	for _, b := range m.Content {
		if t, ok := b.(TextBlock); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// HasToolBlocks reports whether the message carries a tool_use or tool_result block.
func (m Message) HasToolBlocks() bool {
	for _, b := range m.Content {
		switch b.(type) {
		case ToolUseBlock, ToolResultBlock:
			return true
		}
	}
	return false
}

// ToolUses returns the tool_use blocks in order.
func (m Message) ToolUses() []ToolUseBlock {
	var out []ToolUseBlock
	for _, b := range m.Content {
		if tu, ok := b.(ToolUseBlock); ok {
			out = append(out, tu)
		}
	}
	return out
}

// ToolResults returns the tool_result blocks in order.
func (m Message) ToolResults() []ToolResultBlock {
	var out []ToolResultBlock
	for _, b := range m.Content {
		if tr, ok := b.(ToolResultBlock); ok {
			out = append(out, tr)
		}
	}
	return out
}

// Validate 校验工具相关字段，在构建 provider 请求之前尽早失败，
// 而不是把空的 id/name 交给远端去拒绝。
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return NewError(ErrInvalidRequest, "message role is invalid: "+string(m.Role))
	}
	for i, b := range m.Content {
		switch v := b.(type) {
		case nil:
			return NewError(ErrInvalidRequest, "message content contains a nil block")
		case ToolUseBlock:
			if v.ID == "" || v.Name == "" {
				return NewError(ErrToolValidation, toolFieldMessage("tool_use", i, v.ID, v.Name))
			}
		case ToolResultBlock:
			if v.ID == "" || v.Name == "" {
				return NewError(ErrToolValidation, toolFieldMessage("tool_result", i, v.ID, v.Name))
			}
		}
	}
	return nil
}

func toolFieldMessage(kind string, index int, id, name string) string {
	var missing []string
	if id == "" {
		missing = append(missing, "id")
	}
	if name == "" {
		missing = append(missing, "name")
	}
	return kind + " block at index " + strconv.Itoa(index) + " is missing " + strings.Join(missing, " and ")
}
