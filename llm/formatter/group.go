package formatter

import "github.com/BaSui01/agentscope/types"

// MessageGroup is a maximal run of consecutive messages sharing a GroupType.
type MessageGroup struct {
	Type     GroupType
	Messages []types.Message
}

// Group partitions msgs into ordered groups. Every message lands in exactly
// one group, SYSTEM groups hold a single message, and no two adjacent
// non-SYSTEM groups share a type.
func Group(msgs []types.Message) []MessageGroup {
	var (
		groups  []MessageGroup
		pending []types.Message
		current GroupType
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		groups = append(groups, MessageGroup{Type: current, Messages: pending})
		pending = nil
	}

	for _, msg := range msgs {
		t := Classify(msg)
		if t == GroupSystem {
			flush()
			groups = append(groups, MessageGroup{Type: GroupSystem, Messages: []types.Message{msg}})
			continue
		}
		if len(pending) > 0 && t != current {
			flush()
		}
		current = t
		pending = append(pending, msg)
	}
	flush()

	return groups
}
