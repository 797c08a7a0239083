package dashscope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentscope/types"
)

const textResponse = `{
	"request_id": "req-1",
	"output": {
		"choices": [{
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": "checking the weather",
				"reasoning_content": "user wants weather",
				"tool_calls": [
					{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"location\":\"Beijing\"}"}},
					{"id": "call_2", "type": "function", "function": {"name": "broken", "arguments": "not json"}}
				]
			}
		}]
	},
	"usage": {"input_tokens": 30, "output_tokens": 12, "total_tokens": 42}
}`

func TestParseResponse_Text(t *testing.T) {
	resp, err := ParseResponse([]byte(textResponse))
	require.NoError(t, err)

	assert.Equal(t, "req-1", resp.ID)
	assert.Equal(t, "dashscope", resp.Provider)
	assert.Equal(t, "tool_calls", resp.StopReason)
	assert.Equal(t, types.ChatUsage{InputTokens: 30, OutputTokens: 12, TotalTokens: 42}, resp.Usage)
	require.Len(t, resp.Content, 4)

	assert.Equal(t, types.ThinkingBlock{Thinking: "user wants weather"}, resp.Content[0])
	assert.Equal(t, types.TextBlock{Text: "checking the weather"}, resp.Content[1])

	weather := resp.Content[2].(types.ToolUseBlock)
	assert.Equal(t, "call_1", weather.ID)
	assert.Equal(t, map[string]any{"location": "Beijing"}, weather.Input)

	broken := resp.Content[3].(types.ToolUseBlock)
	assert.Equal(t, map[string]any{}, broken.Input)
	assert.Equal(t, "not json", broken.RawContent)
}

func TestParseResponse_Multimodal(t *testing.T) {
	raw := []byte(`{
		"request_id": "req-2",
		"output": {"choices": [{"finish_reason": "stop", "message": {"role": "assistant", "content": [{"text": "a cat"}, {"text": "on a mat"}]}}]},
		"usage": {"input_tokens": 100, "output_tokens": 4}
	}`)

	resp, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, 104, resp.Usage.TotalTokens)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, types.TextBlock{Text: "a cat\non a mat"}, resp.Content[0])
}

func TestParseResponse_Struct(t *testing.T) {
	r := Response{RequestID: "req-3"}
	for _, in := range []any{r, &r} {
		resp, err := ParseResponse(in)
		require.NoError(t, err)
		assert.Equal(t, "req-3", resp.ID)
		assert.Empty(t, resp.Content)
	}
}

func TestParseResponse_Errors(t *testing.T) {
	_, err := ParseResponse([]byte("{"))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))

	var nilResp *Response
	for _, in := range []any{nil, "text", nilResp, 42} {
		_, err := ParseResponse(in)
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrUnsupportedResponse))
	}
}
