package formatter

import (
	"github.com/BaSui01/agentscope/llm/tokenizer"
)

// Truncate drops whole non-SYSTEM groups, oldest first, until the estimated
// token count fits budget. Dropping whole groups keeps tool_use/tool_result
// pairs together. SYSTEM groups and the newest non-SYSTEM group are always
// kept, so the result may still exceed budget. It returns the kept groups and
// the number dropped.
func Truncate(groups []MessageGroup, tok tokenizer.Tokenizer, budget int) ([]MessageGroup, int, error) {
	drop, dropped, err := dropOldest(groups, tok, budget)
	if err != nil || dropped == 0 {
		return groups, 0, err
	}

	kept := make([]MessageGroup, 0, len(groups)-dropped)
	for i, g := range groups {
		if !drop[i] {
			kept = append(kept, g)
		}
	}
	return kept, dropped, nil
}

// dropOldest marks the groups Truncate removes. drop is nil when nothing is
// dropped.
func dropOldest(groups []MessageGroup, tok tokenizer.Tokenizer, budget int) ([]bool, int, error) {
	if budget <= 0 || len(groups) == 0 {
		return nil, 0, nil
	}

	costs := make([]int, len(groups))
	total := 0
	lastConversational := -1
	for i, g := range groups {
		n, err := tok.CountMessages(g.Messages)
		if err != nil {
			return nil, 0, err
		}
		costs[i] = n
		total += n
		if g.Type != GroupSystem {
			lastConversational = i
		}
	}

	drop := make([]bool, len(groups))
	dropped := 0
	for i := 0; i < len(groups) && total > budget; i++ {
		if groups[i].Type == GroupSystem || i == lastConversational {
			continue
		}
		drop[i] = true
		total -= costs[i]
		dropped++
	}
	if dropped == 0 {
		return nil, 0, nil
	}
	return drop, dropped, nil
}
