// Package atomizer classifies a build goal as atomic (directly
// executable) or composite (needs decomposition into a task graph).
// Classification is a pure function of the goal text.
package atomizer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Classification is the atomizer's verdict on one goal string.
type Classification struct {
	IsAtomic  bool   `json:"isAtomic"`
	Reasoning string `json:"reasoning"`
}

const (
	minCompositeWords = 4
	maxAtomicRunes    = 120
)

// conjunctions are clause separators that signal multiple independent
// goals packed into one sentence. Space-padded so they only match
// whole words.
var conjunctions = []string{
	" and ",
	" then ",
	" with ",
	" plus ",
	" as well as ",
	" along with ",
}

// Classify decides whether the goal can be handed to the backend as a
// single unit of work. It never fails: empty, huge and otherwise odd
// inputs all produce a Classification.
func Classify(goal string) Classification {
	trimmed := strings.TrimSpace(goal)
	if trimmed == "" {
		return Classification{IsAtomic: true, Reasoning: "empty goal is trivially atomic"}
	}

	words := strings.Fields(trimmed)
	if len(words) < minCompositeWords {
		return Classification{
			IsAtomic:  true,
			Reasoning: fmt.Sprintf("short goal (%d words) treated as a single unit", len(words)),
		}
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range conjunctions {
		if strings.Contains(lower, marker) {
			return Classification{
				IsAtomic:  false,
				Reasoning: fmt.Sprintf("conjunction %q joins independent clauses", strings.TrimSpace(marker)),
			}
		}
	}
	if strings.Contains(trimmed, ";") {
		return Classification{IsAtomic: false, Reasoning: "semicolon separates independent clauses"}
	}

	if bullets := countListItems(trimmed); bullets >= 2 {
		return Classification{
			IsAtomic:  false,
			Reasoning: fmt.Sprintf("enumerated list with %d items", bullets),
		}
	}
	if commas := strings.Count(trimmed, ","); commas >= 3 {
		return Classification{
			IsAtomic:  false,
			Reasoning: fmt.Sprintf("comma enumeration with %d separators", commas),
		}
	}

	if n := utf8.RuneCountInString(trimmed); n > maxAtomicRunes {
		return Classification{
			IsAtomic:  false,
			Reasoning: fmt.Sprintf("goal length %d exceeds the single-task threshold", n),
		}
	}

	return Classification{IsAtomic: true, Reasoning: "single clause within the single-task threshold"}
}

func countListItems(goal string) int {
	count := 0
	for _, line := range strings.Split(goal, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
			count++
			continue
		}
		// Numbered items: "1." / "2)" style prefixes.
		if len(line) >= 2 && line[0] >= '0' && line[0] <= '9' && (line[1] == '.' || line[1] == ')') {
			count++
		}
	}
	return count
}
