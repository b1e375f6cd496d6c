package categorization

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"
)

// DefaultSuggestionLimit is how many suggestions Preview returns.
const DefaultSuggestionLimit = 3

// Suggestion is an advisory ranking entry; it is never written to an expense.
type Suggestion struct {
	Category   string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Suggest scores every rule against the note and returns the best limit categories.
// Whole keyword hits score 1, a word that contains or is contained in a keyword scores 0.5,
// and so does a one-edit typo of a longer keyword ("swigy" for "swiggy").
// Scores are normalized by the note's word count.
func (k *KeywordClassifier) Suggest(note string, limit int) []Suggestion {
	normalized := normalizeText(note)
	words := strings.Fields(normalized)
	if len(words) == 0 || limit <= 0 {
		return nil
	}

	type scored struct {
		rule  int
		score float64
	}
	var results []scored

	for ruleIdx, rule := range k.table.Rules {
		score := 0.0
		for _, raw := range rule.Keywords {
			kw := normalizeText(raw)
			if kw == "" {
				continue
			}
			if strings.Contains(normalized, kw) {
				score += 1.0
			}
			for _, w := range words {
				if partialMatch(w, kw) {
					score += 0.5
					break
				}
			}
		}
		if score > 0 {
			results = append(results, scored{rule: ruleIdx, score: score / float64(len(words))})
		}
	}

	// Stable on table order so equal scores rank by priority.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]Suggestion, len(results))
	for i, r := range results {
		out[i] = Suggestion{
			Category:   k.table.Rules[r.rule].Category,
			Confidence: decimal.NewFromFloat(r.score * 100).Round(1).InexactFloat64(),
		}
	}
	return out
}

// ParseSuggestions reads "Category:Confidence" lines from a model answer. Names are mapped onto
// candidates case-insensitively; unknown names, repeats and unparsable confidences are skipped.
// Confidence is clamped to 0..100 and rounded to one decimal.
func ParseSuggestions(answer string, candidates []string, limit int) []Suggestion {
	var out []Suggestion
	seen := make(map[string]bool)
	for _, line := range strings.Split(answer, "\n") {
		if len(out) >= limit {
			break
		}
		line = strings.TrimLeft(strings.TrimSpace(line), "-*0123456789.) ")
		i := strings.LastIndexByte(line, ':')
		if i <= 0 {
			continue
		}
		name, ok := MatchCandidate(line[:i], candidates)
		if !ok || seen[name] {
			continue
		}
		confidence, err := strconv.ParseFloat(strings.Trim(line[i+1:], " \t%"), 64)
		if err != nil || math.IsNaN(confidence) {
			continue
		}
		confidence = min(max(confidence, 0), 100)
		seen[name] = true
		out = append(out, Suggestion{
			Category:   name,
			Confidence: decimal.NewFromFloat(confidence).Round(1).InexactFloat64(),
		})
	}
	return out
}

func partialMatch(word, keyword string) bool {
	if strings.Contains(word, keyword) {
		return true
	}
	if len(word) >= 3 && strings.Contains(keyword, word) {
		return true
	}
	if len(keyword) >= 5 && abs(len(word)-len(keyword)) <= 1 {
		return fuzzy.LevenshteinDistance(word, keyword) <= 1
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
