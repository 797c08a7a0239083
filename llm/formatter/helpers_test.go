package formatter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/agentscope/llm/media"
	"github.com/BaSui01/agentscope/types"
)

// stubResolver passes URLs through and fails for URLs listed in failing.
type stubResolver struct {
	failing map[string]bool
}

func (s stubResolver) Resolve(_ context.Context, kind types.BlockType, src types.Source) (media.Media, error) {
	u, ok := src.(types.URLSource)
	if !ok {
		return media.Media{}, types.NewError(types.ErrUnsupportedSourceType, "unsupported source")
	}
	if s.failing[u.URL] {
		return media.Media{}, errors.New("file not found")
	}
	return media.Media{URL: u.URL, MediaType: media.DefaultMediaType(kind)}, nil
}

// customBlock is a content block variant no formatter knows about.
type customBlock struct{}

func (customBlock) BlockType() types.BlockType { return "hologram" }

func text(s string) types.TextBlock { return types.TextBlock{Text: s} }

func image(url string) types.ImageBlock {
	return types.ImageBlock{Source: types.URLSource{URL: url}}
}

func named(role types.Role, name string, blocks ...types.ContentBlock) types.Message {
	return types.NewMessage(role, blocks...).WithName(name)
}

type countingRecorder struct {
	mu        sync.Mutex
	formats   int
	groups    map[string]int
	degraded  map[string]int
	truncated int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{groups: map[string]int{}, degraded: map[string]int{}}
}

func (r *countingRecorder) ObserveFormat(string, time.Duration, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats++
}

func (r *countingRecorder) IncGroup(_, groupType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[groupType]++
}

func (r *countingRecorder) IncMediaDegraded(_, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded[kind]++
}

func (r *countingRecorder) AddTruncatedGroups(_ string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.truncated += n
}
