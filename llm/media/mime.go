package media

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/BaSui01/agentscope/types"
)

// 系统 mime 表在精简镜像中常常缺项，这里补齐常见媒体扩展名。
var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
}

// DefaultMediaType returns the media type assumed when nothing better is known.
func DefaultMediaType(kind types.BlockType) string {
	switch kind {
	case types.BlockAudio:
		return "audio/mpeg"
	case types.BlockVideo:
		return "video/mp4"
	default:
		return "image/png"
	}
}

// TypeByExtension guesses the media type of a path or URL from its
// extension, falling back to the kind default.
func TypeByExtension(location string, kind types.BlockType) string {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return DefaultMediaType(kind)
	}
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	return DefaultMediaType(kind)
}
