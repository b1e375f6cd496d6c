package categorization

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassifier_Classify(t *testing.T) {
	k := MustKeywordClassifier(DefaultKeywordTable())

	tests := []struct {
		note string
		want string
	}{
		{"swiggy lunch", "Food"},
		{"SWIGGY Lunch!!", "Food"},
		{"dmart groceries", "Grocery"},
		{"ola to office", "Transport"},
		{"netflix plan", "Entertainment"},
		{"flipkart shirt", "Shopping"},
		{"pharmacy", "Healthcare"},
		{"electricity bill", "Utilities"},
		{"udemy course", "Education"},
		// ticket belongs to Transport and Entertainment; Transport is earlier
		{"concert ticket", "Transport"},
		{"qwerty zxcv", "Other"},
		{"", "Other"},
		{"   ", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.note, func(t *testing.T) {
			assert.Equal(t, tt.want, k.Classify(tt.note))
		})
	}
}

func TestKeywordClassifier_Deterministic(t *testing.T) {
	k := MustKeywordClassifier(DefaultKeywordTable())
	for i := 0; i < 50; i++ {
		require.Equal(t, "Food", k.Classify("swiggy lunch"))
	}
}

func TestKeywordClassifier_TableIsCopied(t *testing.T) {
	table := KeywordTable{
		Version:  "test",
		Fallback: "Misc",
		Rules:    []KeywordRule{{Category: "Travel", Keywords: []string{"train"}}},
	}
	k, err := NewKeywordClassifier(table)
	require.NoError(t, err)

	table.Rules[0].Category = "Changed"
	table.Rules[0].Keywords[0] = "bus"

	assert.Equal(t, "Travel", k.Classify("night train"))
	assert.Equal(t, "Misc", k.Classify("bus"))
	assert.Equal(t, []string{"Travel", "Misc"}, k.Categories())
	assert.Equal(t, "test", k.Version())
}

func TestKeywordClassifier_SharedKeywordOwners(t *testing.T) {
	k, err := NewKeywordClassifier(KeywordTable{
		Version:  "v1",
		Fallback: "Other",
		Rules: []KeywordRule{
			{Category: "A", Keywords: []string{"alpha", "shared"}},
			{Category: "B", Keywords: []string{"Shared", "beta"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, k.PatternCount())
	assert.Equal(t, "A", k.Classify("shared thing"))
	assert.Equal(t, "B", k.Classify("beta"))
	assert.Equal(t, "A", k.Classify("beta alpha"))
}

func TestKeywordClassifier_ConcurrentUse(t *testing.T) {
	k := MustKeywordClassifier(DefaultKeywordTable())
	notes := map[string]string{
		"swiggy lunch":     "Food",
		"ola to office":    "Transport",
		"electricity bill": "Utilities",
		"qwerty zxcv":      "Other",
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				for note, want := range notes {
					if got := k.Classify(note); got != want {
						t.Errorf("Classify(%q) = %q, want %q", note, got, want)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestKeywordTable_Validate(t *testing.T) {
	tests := []struct {
		name  string
		table KeywordTable
	}{
		{"missing version", KeywordTable{Fallback: "Other", Rules: []KeywordRule{{Category: "A", Keywords: []string{"a"}}}}},
		{"missing fallback", KeywordTable{Version: "v", Rules: []KeywordRule{{Category: "A", Keywords: []string{"a"}}}}},
		{"no rules", KeywordTable{Version: "v", Fallback: "Other"}},
		{"blank category", KeywordTable{Version: "v", Fallback: "Other", Rules: []KeywordRule{{Category: " ", Keywords: []string{"a"}}}}},
		{"only punctuation keywords", KeywordTable{Version: "v", Fallback: "Other", Rules: []KeywordRule{{Category: "A", Keywords: []string{"--", " "}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKeywordClassifier(tt.table)
			assert.Error(t, err)
		})
	}

	assert.NoError(t, DefaultKeywordTable().Validate())
}

func TestLoadKeywordTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "custom-1",
		"rules": [{"category": "Pets", "keywords": ["vet", "dog food"]}]
	}`), 0o600))

	table, err := LoadKeywordTable(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-1", table.Version)
	assert.Equal(t, DefaultFallback, table.Fallback)

	k, err := NewKeywordClassifier(table)
	require.NoError(t, err)
	assert.Equal(t, "Pets", k.Classify("Dog-Food refill"))

	_, err = LoadKeywordTable(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":`), 0o600))
	_, err = LoadKeywordTable(bad)
	assert.Error(t, err)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "uber eats 250", normalizeText("  Uber-Eats   ₹250 "))
	assert.Equal(t, "", normalizeText("!!!"))
}

func TestKeywordClassifier_Suggest(t *testing.T) {
	k := MustKeywordClassifier(DefaultKeywordTable())

	t.Run("exact hits", func(t *testing.T) {
		got := k.Suggest("swiggy lunch", DefaultSuggestionLimit)
		require.NotEmpty(t, got)
		assert.Equal(t, "Food", got[0].Category)
		assert.InDelta(t, 150.0, got[0].Confidence, 0.001)
	})

	t.Run("one edit typo", func(t *testing.T) {
		got := k.Suggest("swigy", DefaultSuggestionLimit)
		require.Len(t, got, 1)
		assert.Equal(t, Suggestion{Category: "Food", Confidence: 50}, got[0])
		_, matched := k.Match("swigy")
		assert.False(t, matched)
	})

	t.Run("limit", func(t *testing.T) {
		got := k.Suggest("swiggy lunch ola cab netflix movie electricity bill", 2)
		assert.Len(t, got, 2)
		assert.GreaterOrEqual(t, got[0].Confidence, got[1].Confidence)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, k.Suggest("", 3))
		assert.Empty(t, k.Suggest("swiggy", 0))
	})
}

func TestPartialMatch(t *testing.T) {
	assert.True(t, partialMatch("swiggyone", "swiggy"))
	assert.True(t, partialMatch("pharm", "pharmacy"))
	assert.True(t, partialMatch("zomaato", "zomato"))
	assert.False(t, partialMatch("ab", "abc"))
	assert.False(t, partialMatch("cat", "car"))
}

func BenchmarkKeywordClassifier_Classify(b *testing.B) {
	k := MustKeywordClassifier(DefaultKeywordTable())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k.Classify("dinner at the dhaba near the railway station")
	}
}
