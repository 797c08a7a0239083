package formatter

import (
	"sort"

	"github.com/BaSui01/agentscope/types"
)

// FormatState is the per-call mutable state of one Format invocation.
// It is created by Pipeline.Run and must not be shared between calls.
type FormatState struct {
	conversationSeen bool
	degraded         map[types.BlockType]int
}

// NewFormatState returns the state for a fresh Format call.
func NewFormatState() *FormatState {
	return &FormatState{degraded: make(map[types.BlockType]int)}
}

// TakeFirstConversation reports whether no AGENT_CONVERSATION group has been
// merged yet in this call, and marks one as merged.
func (s *FormatState) TakeFirstConversation() bool {
	first := !s.conversationSeen
	s.conversationSeen = true
	return first
}

// NoteDegraded records a media block replaced by placeholder text.
func (s *FormatState) NoteDegraded(kind types.BlockType) {
	s.degraded[kind]++
}

// Degraded returns the number of degraded media blocks per kind.
func (s *FormatState) Degraded() map[types.BlockType]int {
	out := make(map[types.BlockType]int, len(s.degraded))
	for k, v := range s.degraded {
		out[k] = v
	}
	return out
}

// DegradedTotal returns the number of degraded media blocks.
func (s *FormatState) DegradedTotal() int {
	n := 0
	for _, v := range s.degraded {
		n += v
	}
	return n
}

func (s *FormatState) degradedKinds() []types.BlockType {
	kinds := make([]types.BlockType, 0, len(s.degraded))
	for k := range s.degraded {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
