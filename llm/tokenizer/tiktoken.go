package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/BaSui01/agentscope/types"
)

// TiktokenTokenizer 使用 tiktoken 编码近似计数。
// Claude 与 Qwen 没有公开的 BPE 表，cl100k_base 的误差足以支撑预算裁剪。
type TiktokenTokenizer struct {
	model     string
	encoding  string
	maxTokens int
	enc       *tiktoken.Tiktoken
	once      sync.Once
	initErr   error
}

type encodingInfo struct {
	encoding  string
	maxTokens int
}

// 模型编码将模型名称前缀映射到其tiktoken编码和上下文大小。
var modelEncodings = map[string]encodingInfo{
	"claude-opus":   {encoding: "cl100k_base", maxTokens: 200000},
	"claude-sonnet": {encoding: "cl100k_base", maxTokens: 200000},
	"claude-haiku":  {encoding: "cl100k_base", maxTokens: 200000},
	"claude-3":      {encoding: "cl100k_base", maxTokens: 200000},
	"qwen-max":      {encoding: "cl100k_base", maxTokens: 32768},
	"qwen-plus":     {encoding: "cl100k_base", maxTokens: 131072},
	"qwen-turbo":    {encoding: "cl100k_base", maxTokens: 1000000},
	"qwen-vl":       {encoding: "cl100k_base", maxTokens: 32768},
	"qwen3":         {encoding: "cl100k_base", maxTokens: 131072},
}

// NewTiktokenTokenizer为给定型号创建了以tiktoken为主的分词器.
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	info, ok := modelEncodings[model]
	if !ok {
		// 尝试前缀匹配 。
		for prefix, i := range modelEncodings {
			if strings.HasPrefix(model, prefix) {
				info = i
				ok = true
				break
			}
		}
	}

	if !ok {
		// 默认为 cl100k_base 。
		info = encodingInfo{encoding: "cl100k_base", maxTokens: 8192}
	}

	return &TiktokenTokenizer{
		model:     model,
		encoding:  info.encoding,
		maxTokens: info.maxTokens,
	}, nil
}

// init lazily 初始化 tiktoken 编码(可以在第一次使用时下载数据).
func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = types.NewError(types.ErrTokenizerError, "init tiktoken encoding "+t.encoding).WithCause(err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) CountMessages(messages []types.Message) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return countMessages(messages, t.CountTokens)
}

func (t *TiktokenTokenizer) MaxTokens() int {
	return t.maxTokens
}

func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}
