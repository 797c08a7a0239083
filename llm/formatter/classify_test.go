package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/agentscope/types"
)

func TestClassify(t *testing.T) {
	toolUse := types.NewToolUseBlock("c1", "search", nil)
	toolResult := types.NewToolResult(text("ok")).WithCall("c1", "search")

	tests := []struct {
		name string
		msg  types.Message
		want GroupType
	}{
		{"system text", types.NewSystemMessage("be nice"), GroupSystem},
		{"empty system", types.NewMessage(types.RoleSystem), GroupAgentConversation},
		{"system led by tool result", types.NewMessage(types.RoleSystem, toolResult), GroupToolSequence},
		{"system with trailing tool use", types.NewMessage(types.RoleSystem, text("x"), toolUse), GroupSystem},
		{"assistant tool use", types.NewMessage(types.RoleAssistant, text("calling"), toolUse), GroupToolSequence},
		{"tool result", types.NewMessage(types.RoleTool, toolResult), GroupToolSequence},
		{"user text", types.NewUserMessage("alice", "hi"), GroupAgentConversation},
		{"assistant image", types.NewMessage(types.RoleAssistant, image("https://x/a.png")), GroupAgentConversation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.msg))
		})
	}
}

func TestGroupType_String(t *testing.T) {
	assert.Equal(t, "system", GroupSystem.String())
	assert.Equal(t, "tool_sequence", GroupToolSequence.String())
	assert.Equal(t, "agent_conversation", GroupAgentConversation.String())
	assert.Equal(t, "unknown", GroupType(42).String())
}
