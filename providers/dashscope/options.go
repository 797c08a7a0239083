package dashscope

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/agentscope/llm/formatter"
	"github.com/BaSui01/agentscope/types"
)

// resultFormatMessage 让响应以 choices[].message 形式返回
const resultFormatMessage = "message"

// ApplySystemMessage 在 msgs[0] 是系统提示且请求尚无 system 消息时，把它插入到最前面
func ApplySystemMessage(req *Request, msgs []types.Message, multimodal bool) bool {
	if len(msgs) == 0 || formatter.Classify(msgs[0]) != formatter.GroupSystem {
		return false
	}
	if len(req.Input.Messages) > 0 && req.Input.Messages[0].Role == roleSystem {
		return false
	}
	text := msgs[0].TextContent()
	if text == "" {
		return false
	}
	var content any = text
	if multimodal {
		content = []Part{{Text: text}}
	}
	req.Input.Messages = append([]Message{{Role: roleSystem, Content: content}}, req.Input.Messages...)
	return true
}

// ApplyOptionsAndTools writes generation parameters, tools and tool choice into req.
func ApplyOptionsAndTools(req *Request, opts types.GenerateOptions, tools []types.ToolSchema, choice *types.ToolChoice) error {
	p := &req.Parameters
	p.ResultFormat = resultFormatMessage
	if opts.MaxTokens > 0 {
		p.MaxTokens = opts.MaxTokens
	}
	p.Temperature = opts.Temperature
	p.TopP = opts.TopP
	p.TopK = opts.TopK
	p.Seed = opts.Seed
	if len(opts.StopSequences) > 0 {
		p.Stop = opts.StopSequences
	}
	if opts.ThinkingBudget > 0 {
		enabled := true
		p.EnableThinking = &enabled
		p.ThinkingBudget = opts.ThinkingBudget
	}

	if len(tools) > 0 {
		p.Tools = make([]Tool, 0, len(tools))
		for _, t := range tools {
			if t.Name == "" {
				return types.NewError(types.ErrInvalidRequest, "tool name is required").WithProvider(providerName)
			}
			if len(t.Parameters) > 0 && !json.Valid(t.Parameters) {
				return types.NewError(types.ErrInvalidRequest,
					fmt.Sprintf("tool %q has an invalid parameter schema", t.Name)).WithProvider(providerName)
			}
			p.Tools = append(p.Tools, Tool{
				Type:     "function",
				Function: ToolFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
			})
		}
	}

	if choice != nil {
		tc, err := encodeToolChoice(choice, tools)
		if err != nil {
			return err
		}
		p.ToolChoice = tc
	}
	return nil
}

func encodeToolChoice(choice *types.ToolChoice, tools []types.ToolSchema) (any, error) {
	switch choice.Mode {
	case "", types.ToolChoiceAuto:
		return "auto", nil
	case types.ToolChoiceNone:
		return "none", nil
	case types.ToolChoiceTool:
		if choice.Name == "" {
			return nil, types.NewError(types.ErrInvalidRequest,
				"tool choice mode \"tool\" requires a tool name").WithProvider(providerName)
		}
		for _, t := range tools {
			if t.Name == choice.Name {
				return map[string]any{
					"type":     "function",
					"function": map[string]string{"name": choice.Name},
				}, nil
			}
		}
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("tool choice references unknown tool %q", choice.Name)).WithProvider(providerName)
	default:
		// DashScope 不支持 "any"（强制调用任意工具）
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("tool choice mode %q is not supported by dashscope", choice.Mode)).WithProvider(providerName)
	}
}
