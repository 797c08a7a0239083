package anthropic

import (
	"encoding/json"
	"fmt"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/BaSui01/agentscope/types"
)

// ParseResponse converts a Messages API response into a ChatResponse.
// Accepted inputs are sdk.Message and *sdk.Message.
func ParseResponse(resp any) (*types.ChatResponse, error) {
	var msg *sdk.Message
	switch v := resp.(type) {
	case *sdk.Message:
		msg = v
	case sdk.Message:
		msg = &v
	}
	if msg == nil {
		return nil, types.NewError(types.ErrUnsupportedResponse,
			fmt.Sprintf("unsupported response type %T", resp)).WithProvider(providerName)
	}

	out := &types.ChatResponse{
		ID:         msg.ID,
		Provider:   providerName,
		Model:      string(msg.Model),
		Content:    make([]types.ContentBlock, 0, len(msg.Content)),
		StopReason: string(msg.StopReason),
		CreatedAt:  time.Now(),
		Usage: types.ChatUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	out.Usage.TotalTokens = out.Usage.InputTokens + out.Usage.OutputTokens

	for _, b := range msg.Content {
		switch b.Type {
		case "text":
			out.Content = append(out.Content, types.TextBlock{Text: b.Text})
		case "thinking":
			tb := types.ThinkingBlock{Thinking: b.Thinking}
			if b.Signature != "" {
				tb.Metadata = map[string]any{types.MetaSignature: b.Signature}
			}
			out.Content = append(out.Content, tb)
		case "tool_use", "server_tool_use":
			out.Content = append(out.Content, toolUse(b.ID, b.Name, b.Input))
		}
	}
	return out, nil
}

// toolUse 解析工具参数；无法解析为对象时保留原始文本
func toolUse(id, name string, raw json.RawMessage) types.ToolUseBlock {
	tu := types.NewToolUseBlock(id, name, nil)
	if len(raw) == 0 {
		return tu
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil || input == nil {
		tu.RawContent = string(raw)
		return tu
	}
	tu.Input = input
	return tu
}
