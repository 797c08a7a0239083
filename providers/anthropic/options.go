package anthropic

import (
	"encoding/json"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/BaSui01/agentscope/llm/formatter"
	"github.com/BaSui01/agentscope/types"
)

// minThinkingBudget 是 Messages API 接受的最小 thinking 预算
const minThinkingBudget = 1024

// ApplySystemMessage writes the text of msgs[0] into params.System when it is
// a system prompt. It reports whether anything was written.
func ApplySystemMessage(params *sdk.MessageNewParams, msgs []types.Message) bool {
	if len(msgs) == 0 || formatter.Classify(msgs[0]) != formatter.GroupSystem {
		return false
	}
	text := msgs[0].TextContent()
	if text == "" {
		return false
	}
	params.System = []sdk.TextBlockParam{{Text: text}}
	return true
}

// ApplyOptionsAndTools writes sampling parameters, tools and tool choice into params.
// params.MaxTokens must already be set when a thinking budget is requested.
func ApplyOptionsAndTools(params *sdk.MessageNewParams, opts types.GenerateOptions, tools []types.ToolSchema, choice *types.ToolChoice) error {
	if opts.MaxTokens > 0 {
		params.MaxTokens = int64(opts.MaxTokens)
	}
	if opts.Temperature != nil {
		params.Temperature = sdk.Float(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = sdk.Float(*opts.TopP)
	}
	if opts.TopK != nil {
		params.TopK = sdk.Int(int64(*opts.TopK))
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}

	if opts.ThinkingBudget > 0 {
		budget := int64(opts.ThinkingBudget)
		if budget < minThinkingBudget {
			return types.NewError(types.ErrInvalidRequest,
				fmt.Sprintf("thinking budget must be at least %d tokens", minThinkingBudget)).WithProvider(providerName)
		}
		if budget >= params.MaxTokens {
			return types.NewError(types.ErrInvalidRequest,
				"thinking budget must be less than max_tokens").WithProvider(providerName)
		}
		params.Thinking = sdk.ThinkingConfigParamOfEnabled(budget)
	}

	if len(tools) > 0 {
		encoded, err := encodeTools(tools)
		if err != nil {
			return err
		}
		params.Tools = encoded
	}
	if choice != nil {
		tc, err := encodeToolChoice(choice, tools)
		if err != nil {
			return err
		}
		params.ToolChoice = tc
	}
	return nil
}

func encodeTools(tools []types.ToolSchema) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		if t.Name == "" {
			return nil, types.NewError(types.ErrInvalidRequest, "tool name is required").WithProvider(providerName)
		}
		schema, err := inputSchema(t.Parameters)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidRequest,
				fmt.Sprintf("tool %q has an invalid parameter schema", t.Name)).WithCause(err).WithProvider(providerName)
		}
		u := sdk.ToolUnionParamOfTool(schema, t.Name)
		if t.Description != "" && u.OfTool != nil {
			u.OfTool.Description = sdk.String(t.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

// inputSchema 拆分 JSON Schema：properties 与 required 单独放置，其余字段保留在 ExtraFields
func inputSchema(raw json.RawMessage) (sdk.ToolInputSchemaParam, error) {
	var schema sdk.ToolInputSchemaParam
	if len(raw) == 0 || string(raw) == "null" {
		schema.Properties = map[string]any{}
		return schema, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return schema, err
	}
	if props, ok := doc["properties"]; ok {
		schema.Properties = props
	} else {
		schema.Properties = map[string]any{}
	}
	if req, ok := doc["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	delete(doc, "type")
	delete(doc, "properties")
	delete(doc, "required")
	if len(doc) > 0 {
		schema.ExtraFields = doc
	}
	return schema, nil
}

func encodeToolChoice(choice *types.ToolChoice, tools []types.ToolSchema) (sdk.ToolChoiceUnionParam, error) {
	switch choice.Mode {
	case "", types.ToolChoiceAuto:
		return sdk.ToolChoiceUnionParam{OfAuto: &sdk.ToolChoiceAutoParam{}}, nil
	case types.ToolChoiceNone:
		none := sdk.NewToolChoiceNoneParam()
		return sdk.ToolChoiceUnionParam{OfNone: &none}, nil
	case types.ToolChoiceAny:
		return sdk.ToolChoiceUnionParam{OfAny: &sdk.ToolChoiceAnyParam{}}, nil
	case types.ToolChoiceTool:
		if choice.Name == "" {
			return sdk.ToolChoiceUnionParam{}, types.NewError(types.ErrInvalidRequest,
				"tool choice mode \"tool\" requires a tool name").WithProvider(providerName)
		}
		for _, t := range tools {
			if t.Name == choice.Name {
				return sdk.ToolChoiceParamOfTool(choice.Name), nil
			}
		}
		return sdk.ToolChoiceUnionParam{}, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("tool choice references unknown tool %q", choice.Name)).WithProvider(providerName)
	default:
		return sdk.ToolChoiceUnionParam{}, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("unsupported tool choice mode %q", choice.Mode)).WithProvider(providerName)
	}
}
