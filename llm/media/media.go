package media

import (
	"context"
	"time"

	"github.com/BaSui01/agentscope/types"
)

// Media is a resolved media source. Exactly one of URL or Data is set.
type Media struct {
	URL       string `json:"url,omitempty"`
	MediaType string `json:"media_type"`
	Data      string `json:"data,omitempty"` // base64
}

// IsInline reports whether the media carries inline base64 data.
func (m Media) IsInline() bool { return m.Data != "" }

// DataURI returns "data:<type>;base64,<data>" for inline media and the URL
// otherwise.
func (m Media) DataURI() string {
	if !m.IsInline() {
		return m.URL
	}
	return "data:" + m.MediaType + ";base64," + m.Data
}

// Resolver turns a media source into Media. kind is the block type the
// source belongs to and drives the fallback media type.
type Resolver interface {
	Resolve(ctx context.Context, kind types.BlockType, src types.Source) (Media, error)
}

// Config 媒体解析配置
type Config struct {
	// 远程 URL 也下载并内联为 base64
	ForceBase64 bool `yaml:"force_base64" json:"force_base64" env:"FORCE_BASE64"`

	// 是否允许读取本地文件
	AllowLocalFiles bool `yaml:"allow_local_files" json:"allow_local_files" env:"ALLOW_LOCAL_FILES"`

	// 单个媒体的最大字节数
	MaxBytes int64 `yaml:"max_bytes" json:"max_bytes" env:"MAX_BYTES"`

	// 远程下载超时
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout" env:"FETCH_TIMEOUT"`

	// 远程下载速率（每秒请求数），<=0 表示不限速
	FetchRateLimit float64 `yaml:"fetch_rate_limit" json:"fetch_rate_limit" env:"FETCH_RATE_LIMIT"`

	// 限速突发量
	FetchBurst int `yaml:"fetch_burst" json:"fetch_burst" env:"FETCH_BURST"`

	// 内联结果缓存时间
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl" env:"CACHE_TTL"`
}

// DefaultConfig 返回默认媒体解析配置
func DefaultConfig() Config {
	return Config{
		ForceBase64:     false,
		AllowLocalFiles: true,
		MaxBytes:        20 << 20,
		FetchTimeout:    30 * time.Second,
		FetchRateLimit:  10,
		FetchBurst:      5,
		CacheTTL:        24 * time.Hour,
	}
}
