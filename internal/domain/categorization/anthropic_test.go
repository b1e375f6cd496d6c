package categorization

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCandidates = []string{"Food", "Grocery", "Transport", "Other", "Pets"}

func newTestClassifier(t *testing.T, handler http.HandlerFunc, mutate ...func(*AnthropicConfig)) *AnthropicClassifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := AnthropicConfig{
		APIKey:        "test-key",
		Model:         "claude-test",
		Endpoint:      srv.URL,
		MaxTokens:     16,
		Timeout:       time.Second,
		RatePerSecond: 100,
		Burst:         100,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewAnthropicClassifier(cfg, srv.Client())
	require.NoError(t, err)
	return c
}

func textReply(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		})
	}
}

func TestAnthropicClassifier_Success(t *testing.T) {
	var got anthropicRequest
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		textReply(" \"food\".\n")(w, r)
	})

	name, err := c.Classify(context.Background(), "swiggy lunch", testCandidates)
	require.NoError(t, err)
	assert.Equal(t, "Food", name)

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 16, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "swiggy lunch")
	assert.Contains(t, got.Messages[0].Content, "Food, Grocery, Transport, Other, Pets")
}

func TestAnthropicClassifier_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  UnavailableReason
	}{
		{
			name: "non 200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			},
			reason: ReasonBadStatus,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"content": [`))
			},
			reason: ReasonMalformed,
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"content": []}`))
			},
			reason: ReasonMalformed,
		},
		{
			name:    "answer outside candidates",
			handler: textReply("Groceries and household"),
			reason:  ReasonInvalidAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(t, tt.handler)
			name, err := c.Classify(context.Background(), "something", testCandidates)
			require.Error(t, err)
			assert.Empty(t, name)
			assert.True(t, errors.Is(err, ErrClassifierUnavailable))
			assert.Equal(t, tt.reason, ReasonOf(err))
		})
	}
}

func TestAnthropicClassifier_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(cfg *AnthropicConfig) { cfg.Timeout = 50 * time.Millisecond })

	start := time.Now()
	_, err := c.Classify(context.Background(), "swiggy lunch", testCandidates)
	require.Error(t, err)
	assert.Equal(t, ReasonTimeout, ReasonOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestAnthropicClassifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		textReply("Food")(w, r)
	}, func(cfg *AnthropicConfig) {
		cfg.RatePerSecond = 0.001
		cfg.Burst = 1
	})

	_, err := c.Classify(context.Background(), "lunch", testCandidates)
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "lunch", testCandidates)
	require.Error(t, err)
	assert.Equal(t, ReasonRateLimited, ReasonOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnthropicClassifier_NoCandidates(t *testing.T) {
	c := newTestClassifier(t, textReply("Food"))
	_, err := c.Classify(context.Background(), "lunch", nil)
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestNewAnthropicClassifier_Validation(t *testing.T) {
	_, err := NewAnthropicClassifier(AnthropicConfig{Model: "m"}, nil)
	assert.Error(t, err)

	_, err = NewAnthropicClassifier(AnthropicConfig{APIKey: "k"}, nil)
	assert.Error(t, err)

	c, err := NewAnthropicClassifier(AnthropicConfig{APIKey: "k", Model: "m"}, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAnthropicEndpoint, c.cfg.Endpoint)
	assert.Equal(t, 3*time.Second, c.cfg.Timeout)
}

func TestNoopClassifier(t *testing.T) {
	_, err := NoopClassifier{}.Classify(context.Background(), "lunch", testCandidates)
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
	assert.Equal(t, ReasonDisabled, ReasonOf(err))
}

func TestMatchCandidate(t *testing.T) {
	tests := []struct {
		answer string
		want   string
		ok     bool
	}{
		{"Food", "Food", true},
		{"food", "Food", true},
		{"  'TRANSPORT'. ", "Transport", true},
		{"Category: Pets", "Pets", true},
		{"**Grocery**", "Grocery", true},
		{"Other\nbecause it is unclear", "Other", true},
		{"Travel", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, ok := MatchCandidate(tt.answer, testCandidates)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnavailableError(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := unavailable(ReasonTransport, inner)

	assert.ErrorIs(t, err, ErrClassifierUnavailable)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "transport")
	assert.Equal(t, UnavailableReason(""), ReasonOf(inner))
}

func TestAnthropicClassifier_SuggestCategories(t *testing.T) {
	var got anthropicRequest
	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		textReply("Grocery:85\nFood:10\nTravel:3\nOther:5")(w, r)
	})

	out, err := c.SuggestCategories(context.Background(), "dmart vegetables", testCandidates, 3)
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{
		{Category: "Grocery", Confidence: 85},
		{Category: "Food", Confidence: 10},
		{Category: "Other", Confidence: 5},
	}, out)

	assert.Equal(t, suggestMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content, "dmart vegetables")
	assert.Contains(t, got.Messages[0].Content, "top 3")
}

func TestAnthropicClassifier_SuggestCategoriesFailures(t *testing.T) {
	c := newTestClassifier(t, textReply("I think this is groceries"))
	_, err := c.SuggestCategories(context.Background(), "dmart", testCandidates, 3)
	assert.Equal(t, ReasonInvalidAnswer, ReasonOf(err))

	c = newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err = c.SuggestCategories(context.Background(), "dmart", testCandidates, 3)
	assert.Equal(t, ReasonBadStatus, ReasonOf(err))

	_, err = c.SuggestCategories(context.Background(), "dmart", nil, 3)
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		limit  int
		want   []Suggestion
	}{
		{
			name:   "plain lines",
			answer: "Food:70\nGrocery:20",
			limit:  3,
			want:   []Suggestion{{Category: "Food", Confidence: 70}, {Category: "Grocery", Confidence: 20}},
		},
		{
			name:   "list markers, casing and percent signs",
			answer: "1. food: 62.46%\n- **Transport**: 30",
			limit:  3,
			want:   []Suggestion{{Category: "Food", Confidence: 62.5}, {Category: "Transport", Confidence: 30}},
		},
		{
			name:   "unknown, repeated and unparsable lines skipped",
			answer: "Travel:50\nFood:abc\nFood:40\nfood:30\nno colon here",
			limit:  3,
			want:   []Suggestion{{Category: "Food", Confidence: 40}},
		},
		{
			name:   "confidence clamped",
			answer: "Pets:140\nOther:-5",
			limit:  3,
			want:   []Suggestion{{Category: "Pets", Confidence: 100}, {Category: "Other", Confidence: 0}},
		},
		{
			name:   "limit",
			answer: "Food:50\nGrocery:30\nOther:20",
			limit:  1,
			want:   []Suggestion{{Category: "Food", Confidence: 50}},
		},
		{
			name:   "nothing usable",
			answer: "Food",
			limit:  3,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSuggestions(tt.answer, testCandidates, tt.limit))
		})
	}
}
