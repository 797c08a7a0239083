package dashscope

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentscope/types"
)

// ParseResponse converts a generation response into a ChatResponse. Accepted
// inputs are Response, *Response and the raw JSON body as []byte.
func ParseResponse(resp any) (*types.ChatResponse, error) {
	var r *Response
	switch v := resp.(type) {
	case *Response:
		r = v
	case Response:
		r = &v
	case []byte:
		var decoded Response
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil, types.NewError(types.ErrUpstreamError, "decode dashscope response").
				WithCause(err).WithProvider(providerName)
		}
		r = &decoded
	}
	if r == nil {
		return nil, types.NewError(types.ErrUnsupportedResponse,
			fmt.Sprintf("unsupported response type %T", resp)).WithProvider(providerName)
	}

	out := &types.ChatResponse{
		ID:        r.RequestID,
		Provider:  providerName,
		Content:   []types.ContentBlock{},
		CreatedAt: time.Now(),
		Usage: types.ChatUsage{
			InputTokens:  r.Usage.InputTokens,
			OutputTokens: r.Usage.OutputTokens,
			TotalTokens:  r.Usage.TotalTokens,
		},
	}
	if out.Usage.TotalTokens == 0 {
		out.Usage.TotalTokens = out.Usage.InputTokens + out.Usage.OutputTokens
	}
	if len(r.Output.Choices) == 0 {
		return out, nil
	}

	choice := r.Output.Choices[0]
	out.StopReason = choice.FinishReason
	msg := choice.Message
	if msg.ReasoningContent != "" {
		out.Content = append(out.Content, types.ThinkingBlock{Thinking: msg.ReasoningContent})
	}
	if text := contentText(msg.Content); text != "" {
		out.Content = append(out.Content, types.TextBlock{Text: text})
	}
	for _, tc := range msg.ToolCalls {
		out.Content = append(out.Content, toolUse(tc))
	}
	return out, nil
}

// contentText 兼容字符串与 [{"text":...}] 两种 content
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []Part
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func toolUse(tc ToolCall) types.ToolUseBlock {
	tu := types.NewToolUseBlock(tc.ID, tc.Function.Name, nil)
	if tc.Function.Arguments == "" {
		return tu
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil || input == nil {
		tu.RawContent = tc.Function.Arguments
		return tu
	}
	tu.Input = input
	return tu
}
