package categorization

import (
	"fmt"

	"github.com/cloudflare/ahocorasick"
)

// KeywordClassifier maps a note to a category name using an immutable keyword table.
// All keywords are matched in a single pass over the note with an Aho-Corasick automaton;
// among the rules that matched, the one earliest in the table wins.
type KeywordClassifier struct {
	table    KeywordTable
	matcher  *ahocorasick.Matcher
	patterns []string // unique normalized keywords, in matcher order
	owners   [][]int  // rule indexes owning each pattern, ascending
}

// NewKeywordClassifier validates and copies the table, then builds the automaton.
func NewKeywordClassifier(table KeywordTable) (*KeywordClassifier, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	k := &KeywordClassifier{table: table.clone()}

	// The same keyword can belong to several rules ("ticket", "store"); group owners per pattern.
	patternIndex := make(map[string]int)
	for ruleIdx, rule := range k.table.Rules {
		for _, kw := range rule.Keywords {
			p := normalizeText(kw)
			if p == "" {
				continue
			}
			idx, ok := patternIndex[p]
			if !ok {
				idx = len(k.patterns)
				patternIndex[p] = idx
				k.patterns = append(k.patterns, p)
				k.owners = append(k.owners, nil)
			}
			if n := len(k.owners[idx]); n == 0 || k.owners[idx][n-1] != ruleIdx {
				k.owners[idx] = append(k.owners[idx], ruleIdx)
			}
		}
	}

	bytePatterns := make([][]byte, len(k.patterns))
	for i, p := range k.patterns {
		bytePatterns[i] = []byte(p)
	}
	k.matcher = ahocorasick.NewMatcher(bytePatterns)

	return k, nil
}

// MustKeywordClassifier panics on an invalid table. Intended for the built-in table.
func MustKeywordClassifier(table KeywordTable) *KeywordClassifier {
	k, err := NewKeywordClassifier(table)
	if err != nil {
		panic(fmt.Sprintf("invalid keyword table: %v", err))
	}
	return k
}

// Classify returns the category for note, or the table's fallback when nothing matches.
// It never fails and performs no I/O.
func (k *KeywordClassifier) Classify(note string) string {
	if category, ok := k.Match(note); ok {
		return category
	}
	return k.table.Fallback
}

// Match returns the highest-priority matching category and whether any rule matched.
func (k *KeywordClassifier) Match(note string) (string, bool) {
	normalized := normalizeText(note)
	if normalized == "" {
		return "", false
	}

	// Match keeps per-call state inside the matcher; the thread-safe variant does not.
	hits := k.matcher.MatchThreadSafe([]byte(normalized))
	best := -1
	for _, idx := range hits {
		if idx < 0 || idx >= len(k.owners) {
			continue
		}
		// owners are ascending, so the first is the highest priority for this pattern
		if ruleIdx := k.owners[idx][0]; best == -1 || ruleIdx < best {
			best = ruleIdx
		}
	}

	if best == -1 {
		return "", false
	}
	return k.table.Rules[best].Category, true
}

// Version identifies the table in use.
func (k *KeywordClassifier) Version() string {
	return k.table.Version
}

// Fallback is the category returned when no rule matches.
func (k *KeywordClassifier) Fallback() string {
	return k.table.Fallback
}

// PatternCount returns the number of distinct keywords loaded.
func (k *KeywordClassifier) PatternCount() int {
	return len(k.patterns)
}

// Categories lists the rule categories in priority order followed by the fallback.
func (k *KeywordClassifier) Categories() []string {
	out := make([]string, 0, len(k.table.Rules)+1)
	for _, r := range k.table.Rules {
		out = append(out, r.Category)
	}
	return append(out, k.table.Fallback)
}
