package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentscope/llm/tokenizer"
	"github.com/BaSui01/agentscope/types"
)

func longText(words int) string {
	return strings.Repeat("word ", words)
}

func TestTruncate_DropsOldestConversationalGroups(t *testing.T) {
	tok := tokenizer.NewEstimatorTokenizer("test", 0)
	msgs := []types.Message{
		types.NewSystemMessage("sys"),
		types.NewUserMessage("alice", longText(200)),
		types.NewMessage(types.RoleAssistant, types.NewToolUseBlock("1", "f", nil)),
		types.NewMessage(types.RoleTool, types.NewToolResult(text(longText(200))).WithCall("1", "f")),
		types.NewUserMessage("bob", "latest"),
	}
	groups := Group(msgs)
	require.Len(t, groups, 4)

	kept, dropped, err := Truncate(groups, tok, 50)
	require.NoError(t, err)

	assert.Equal(t, 2, dropped)
	require.Len(t, kept, 2)
	assert.Equal(t, GroupSystem, kept[0].Type)
	assert.Equal(t, "latest", kept[1].Messages[0].TextContent())
}

func TestTruncate_KeepsToolPairsTogether(t *testing.T) {
	tok := tokenizer.NewEstimatorTokenizer("test", 0)
	groups := Group([]types.Message{
		types.NewUserMessage("alice", longText(100)),
		types.NewMessage(types.RoleAssistant, types.NewToolUseBlock("1", "f", nil)),
		types.NewMessage(types.RoleTool, types.NewToolResult(text("r")).WithCall("1", "f")),
	})

	kept, dropped, err := Truncate(groups, tok, 40)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, kept, 1)
	assert.Equal(t, GroupToolSequence, kept[0].Type)
	assert.Len(t, kept[0].Messages, 2)
}

func TestTruncate_NoOpWhenFitsOrDisabled(t *testing.T) {
	tok := tokenizer.NewEstimatorTokenizer("test", 0)
	groups := Group([]types.Message{types.NewUserMessage("a", "hi"), types.NewSystemMessage("s")})

	kept, dropped, err := Truncate(groups, tok, 10_000)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, groups, kept)

	kept, dropped, err = Truncate(groups, tok, 0)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, groups, kept)
}

func TestTruncate_NewestGroupAlwaysKept(t *testing.T) {
	tok := tokenizer.NewEstimatorTokenizer("test", 0)
	groups := Group([]types.Message{types.NewUserMessage("a", longText(500))})

	kept, dropped, err := Truncate(groups, tok, 1)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Len(t, kept, 1)
}
