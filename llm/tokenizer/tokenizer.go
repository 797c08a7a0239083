package tokenizer

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/agentscope/types"
)

// Tokenizer是统一的代号计数界面.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// CountMessages 返回消息列表的总 token 数,
	// 包括每条消息的开销（角色标记、分隔符等）。
	CountMessages(messages []types.Message) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

const (
	// 每条消息的固定开销（角色标记、分隔符）。
	messageOverhead = 4
	// 会话结束开销。
	replyOverhead = 3
	// 媒体块按固定成本估算，不解码实际内容。
	mediaTokens = 85
)

// 全局分词器注册表.
var (
	modelTokenizers   = make(map[string]Tokenizer)
	modelTokenizersMu sync.RWMutex
)

// RegisterTokenizer 为给定的模型名称注册分词器.
func RegisterTokenizer(model string, t Tokenizer) {
	modelTokenizersMu.Lock()
	defer modelTokenizersMu.Unlock()
	modelTokenizers[model] = t
}

// GetTokenizer 返回为给定型号注册的分词器。
// 它也尝试了前缀匹配(如"qwen-max"匹配"qwen-max-latest").
func GetTokenizer(model string) (Tokenizer, error) {
	modelTokenizersMu.RLock()
	defer modelTokenizersMu.RUnlock()

	if t, ok := modelTokenizers[model]; ok {
		return t, nil
	}

	longest := ""
	for prefix := range modelTokenizers {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(longest) {
			longest = prefix
		}
	}
	if longest != "" {
		return modelTokenizers[longest], nil
	}

	return nil, fmt.Errorf("no tokenizer registered for model: %s", model)
}

// New builds a tokenizer by kind: "tiktoken" or "estimator".
// For "tiktoken" a tokenizer registered for model wins; otherwise one is
// created and registered so later calls share its loaded encoding.
func New(kind, model string) (Tokenizer, error) {
	switch kind {
	case "", "estimator":
		return NewEstimatorTokenizer(model, 0), nil
	case "tiktoken":
		if t, err := GetTokenizer(model); err == nil {
			return t, nil
		}
		t, err := NewTiktokenTokenizer(model)
		if err != nil {
			return nil, err
		}
		RegisterTokenizer(model, t)
		return t, nil
	default:
		return nil, types.NewError(types.ErrTokenizerError, "unknown tokenizer kind: "+kind)
	}
}

// countMessages 把每条消息展开为可计数的文本片段，再交给 count 统计。
func countMessages(messages []types.Message, count func(string) (int, error)) (int, error) {
	total := 0
	for _, msg := range messages {
		total += messageOverhead
		n, err := count(string(msg.Role) + msg.Name)
		if err != nil {
			return 0, err
		}
		total += n
		n, err = countBlocks(msg.Content, count)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total + replyOverhead, nil
}

func countBlocks(blocks []types.ContentBlock, count func(string) (int, error)) (int, error) {
	total := 0
	for _, b := range blocks {
		var text string
		switch v := b.(type) {
		case types.TextBlock:
			text = v.Text
		case types.ThinkingBlock:
			text = v.Thinking
		case types.ToolUseBlock:
			args, err := json.Marshal(v.Input)
			if err != nil {
				return 0, fmt.Errorf("encode tool input: %w", err)
			}
			text = v.Name + string(args)
		case types.ToolResultBlock:
			n, err := countBlocks(v.Output, count)
			if err != nil {
				return 0, err
			}
			total += n
			continue
		case types.ImageBlock, types.AudioBlock, types.VideoBlock:
			total += mediaTokens
			continue
		default:
			continue
		}
		n, err := count(text)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
