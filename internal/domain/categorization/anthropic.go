package categorization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	defaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion         = "2023-06-01"
	maxResponseBytes         = 64 << 10
)

// AnthropicConfig configures the Messages API adapter.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	Endpoint  string
	MaxTokens int
	// Timeout bounds each call; there is exactly one attempt per note.
	Timeout time.Duration
	// RatePerSecond and Burst cap outgoing calls. Calls over the limit fail fast.
	RatePerSecond float64
	Burst         int
}

// AnthropicClassifier asks a Claude model to pick a category from the user's candidates.
type AnthropicClassifier struct {
	httpClient *http.Client
	cfg        AnthropicConfig
	limiter    *rate.Limiter
	tracer     trace.Tracer
}

var (
	_ AIClassifier = (*AnthropicClassifier)(nil)
	_ AISuggester  = (*AnthropicClassifier)(nil)
)

// NewAnthropicClassifier builds the adapter. httpClient may be nil.
func NewAnthropicClassifier(cfg AnthropicConfig, httpClient *http.Client) (*AnthropicClassifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic model is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultAnthropicEndpoint
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &AnthropicClassifier{
		httpClient: httpClient,
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, burst),
		tracer:     otel.Tracer("github.com/FACorreiaa/smart-expense-tracker/internal/domain/categorization"),
	}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

const systemPrompt = "You categorize personal expenses for users in India. " +
	"Answer with exactly one category name from the list you are given and nothing else."

func buildPrompt(note string, candidates []string) string {
	var b strings.Builder
	b.WriteString("Expense note: ")
	b.WriteString(strconvQuote(note))
	b.WriteString("\nAvailable categories: ")
	b.WriteString(strings.Join(candidates, ", "))
	b.WriteString("\n\nRules:\n")
	b.WriteString("1. Choose only from the available categories.\n")
	b.WriteString("2. Consider Indian context (swiggy = food, ola = transport, dmart = grocery).\n")
	b.WriteString("3. If unclear, answer Other when it is available.\n")
	b.WriteString("4. Respond with the category name only.")
	return b.String()
}

const (
	suggestMaxTokens    = 64
	suggestSystemPrompt = "You rank expense categories for users in India. " +
		"Answer only with lines of the form Category:Confidence, most likely first."
)

func buildSuggestPrompt(note string, candidates []string, limit int) string {
	var b strings.Builder
	b.WriteString("Expense note: ")
	b.WriteString(strconvQuote(note))
	b.WriteString("\nAvailable categories: ")
	b.WriteString(strings.Join(candidates, ", "))
	fmt.Fprintf(&b, "\n\nSuggest the top %d most likely categories with a confidence from 0 to 100.\n", limit)
	b.WriteString("Keep food (swiggy, zomato, restaurants) apart from grocery (vegetables, dmart, supermarket).\n")
	b.WriteString("Respond in this exact format, one per line:\nGrocery:85\nFood:10\nOther:5")
	return b.String()
}

// Classify makes one bounded call. Every failure is an *UnavailableError.
func (c *AnthropicClassifier) Classify(ctx context.Context, note string, candidates []string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "categorization.ai_classify",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ai.model", c.cfg.Model),
			attribute.Int("ai.candidates", len(candidates)),
		),
	)
	defer span.End()

	name, err := c.classify(ctx, note, candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ReasonOf(err)))
		return "", err
	}
	span.SetAttributes(attribute.String("ai.category", name))
	return name, nil
}

func (c *AnthropicClassifier) classify(ctx context.Context, note string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", unavailable(ReasonInvalidAnswer, errors.New("no candidates"))
	}

	text, err := c.complete(ctx, systemPrompt, buildPrompt(note, candidates), c.cfg.MaxTokens)
	if err != nil {
		return "", err
	}

	name, ok := MatchCandidate(text, candidates)
	if !ok {
		return "", unavailable(ReasonInvalidAnswer, fmt.Errorf("answer %q is not a candidate", truncate(text, 50)))
	}
	return name, nil
}

// SuggestCategories asks the model to rank up to limit candidates with a confidence percentage.
// Lines naming unknown categories are dropped; an answer with no usable line is an *UnavailableError.
func (c *AnthropicClassifier) SuggestCategories(ctx context.Context, note string, candidates []string, limit int) ([]Suggestion, error) {
	ctx, span := c.tracer.Start(ctx, "categorization.ai_suggest",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ai.model", c.cfg.Model),
			attribute.Int("ai.candidates", len(candidates)),
		),
	)
	defer span.End()

	out, err := c.suggest(ctx, note, candidates, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ReasonOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.Int("ai.suggestions", len(out)))
	return out, nil
}

func (c *AnthropicClassifier) suggest(ctx context.Context, note string, candidates []string, limit int) ([]Suggestion, error) {
	if len(candidates) == 0 || limit <= 0 {
		return nil, unavailable(ReasonInvalidAnswer, errors.New("no candidates"))
	}

	text, err := c.complete(ctx, suggestSystemPrompt, buildSuggestPrompt(note, candidates, limit), max(c.cfg.MaxTokens, suggestMaxTokens))
	if err != nil {
		return nil, err
	}

	out := ParseSuggestions(text, candidates, limit)
	if len(out) == 0 {
		return nil, unavailable(ReasonInvalidAnswer, fmt.Errorf("no ranked candidates in %q", truncate(text, 50)))
	}
	return out, nil
}

// complete sends one Messages API request and returns the first text block.
func (c *AnthropicClassifier) complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if !c.limiter.Allow() {
		return "", unavailable(ReasonRateLimited, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(anthropicRequest{
		Model:       c.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: 0.1,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", unavailable(ReasonMalformed, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", unavailable(ReasonTransport, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", unavailable(ReasonTimeout, err)
		}
		return "", unavailable(ReasonTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", unavailable(ReasonTimeout, err)
		}
		return "", unavailable(ReasonTransport, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", unavailable(ReasonBadStatus, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(payload), 200)))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", unavailable(ReasonMalformed, fmt.Errorf("failed to parse response: %w", err))
	}

	for _, block := range parsed.Content {
		if (block.Type == "text" || block.Type == "") && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", unavailable(ReasonMalformed, errors.New("no text content in response"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
