package formatter

import "github.com/BaSui01/agentscope/types"

// GroupType 是消息在格式化时的分类。
type GroupType int

const (
	GroupSystem GroupType = iota
	GroupToolSequence
	GroupAgentConversation
)

// String returns the lowercase name used in logs and metric labels.
func (t GroupType) String() string {
	switch t {
	case GroupSystem:
		return "system"
	case GroupToolSequence:
		return "tool_sequence"
	case GroupAgentConversation:
		return "agent_conversation"
	default:
		return "unknown"
	}
}

// Classify assigns a message to exactly one group type.
//
// A system-role message whose first block is a tool result is treated as part
// of a tool sequence, not as a system prompt.
func Classify(msg types.Message) GroupType {
	if msg.Role == types.RoleSystem && len(msg.Content) > 0 {
		if _, ok := msg.Content[0].(types.ToolResultBlock); !ok {
			return GroupSystem
		}
	}
	if msg.HasToolBlocks() {
		return GroupToolSequence
	}
	return GroupAgentConversation
}
