package categorization

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/catalog"
)

// Source records which step produced a category.
type Source string

const (
	SourceAI       Source = "ai"
	SourceKeyword  Source = "keyword"
	SourceFallback Source = "fallback"
)

// Result is the outcome of categorizing one note. Category always resolves in the user's catalog.
type Result struct {
	Category catalog.Category `json:"category"`
	Name     string           `json:"name"`
	Source   Source           `json:"source"`
}

// PreviewResult adds advisory suggestions to a Result. SuggestionSource is SourceAI when the
// hosted model ranked them and SourceKeyword otherwise.
type PreviewResult struct {
	Result
	Suggestions      []Suggestion `json:"suggestions"`
	SuggestionSource Source       `json:"suggestion_source"`
}

// Service picks a category for an expense note: hosted model first, keyword table second,
// and the catalog's fallback when neither name exists for the user.
type Service struct {
	catalog  catalog.Reader
	ai       AIClassifier
	keywords *KeywordClassifier
	metrics  *Metrics
	logger   *slog.Logger
}

// NewService wires the engine. A nil ai means keyword-only; nil metrics disables counting.
func NewService(reader catalog.Reader, ai AIClassifier, keywords *KeywordClassifier, metrics *Metrics, logger *slog.Logger) *Service {
	if ai == nil {
		ai = NoopClassifier{}
	}
	if keywords == nil {
		keywords = MustKeywordClassifier(DefaultKeywordTable())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:  reader,
		ai:       ai,
		keywords: keywords,
		metrics:  metrics,
		logger:   logger,
	}
}

// Categorize returns a category id that resolves for userID. The only error is a catalog
// read failure; classifier problems are absorbed by the keyword fallback.
func (s *Service) Categorize(ctx context.Context, userID uuid.UUID, note string) (*Result, error) {
	res, _, err := s.categorize(ctx, userID, note)
	return res, err
}

func (s *Service) categorize(ctx context.Context, userID uuid.UUID, note string) (*Result, []string, error) {
	cats, err := s.catalog.ListCategories(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list categories: %w", err)
	}

	candidates := make([]string, len(cats))
	for i, c := range cats {
		candidates[i] = c.Name
	}

	name, source := s.choose(ctx, note, candidates)

	if cat, ok := catalog.FindByName(cats, name); ok {
		s.metrics.observeDecision(source)
		return &Result{Category: *cat, Name: cat.Name, Source: source}, candidates, nil
	}

	fallback, err := s.catalog.DefaultFallbackCategory(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve fallback category: %w", err)
	}
	s.logger.DebugContext(ctx, "category name not in catalog, using fallback",
		slog.String("user_id", userID.String()),
		slog.String("name", name),
		slog.String("source", string(source)),
	)
	s.metrics.observeDecision(SourceFallback)
	return &Result{Category: *fallback, Name: fallback.Name, Source: SourceFallback}, candidates, nil
}

// Preview categorizes without persisting and adds the top suggestions. The hosted model ranks
// them when it supports it; any failure there falls back to the keyword scores.
func (s *Service) Preview(ctx context.Context, userID uuid.UUID, note string) (*PreviewResult, error) {
	res, candidates, err := s.categorize(ctx, userID, note)
	if err != nil {
		return nil, err
	}

	if ranker, ok := s.ai.(AISuggester); ok && len(candidates) > 0 {
		suggestions, err := ranker.SuggestCategories(ctx, note, candidates, DefaultSuggestionLimit)
		if err == nil && len(suggestions) > 0 {
			return &PreviewResult{Result: *res, Suggestions: suggestions, SuggestionSource: SourceAI}, nil
		}
		s.logger.DebugContext(ctx, "ai suggestions unavailable, using keyword scores",
			slog.String("reason", string(ReasonOf(err))),
			slog.Any("error", err),
		)
	}

	suggestions := s.keywords.Suggest(note, DefaultSuggestionLimit)
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	return &PreviewResult{Result: *res, Suggestions: suggestions, SuggestionSource: SourceKeyword}, nil
}

// KeywordVersion identifies the keyword table the engine was built with.
func (s *Service) KeywordVersion() string {
	return s.keywords.Version()
}

func (s *Service) choose(ctx context.Context, note string, candidates []string) (string, Source) {
	if len(candidates) > 0 {
		start := time.Now()
		name, err := s.ai.Classify(ctx, note, candidates)
		s.metrics.observeAILatency(time.Since(start).Seconds())

		if err == nil {
			// Adapters are external code; only trust names the user actually has.
			if canonical, ok := MatchCandidate(name, candidates); ok {
				return canonical, SourceAI
			}
			err = unavailable(ReasonInvalidAnswer, fmt.Errorf("answer %q is not a candidate", name))
		}

		reason := ReasonOf(err)
		s.metrics.observeAIFailure(reason)
		if reason != ReasonDisabled {
			s.logger.WarnContext(ctx, "ai classifier failed, using keyword fallback",
				slog.String("reason", string(reason)),
				slog.Any("error", err),
			)
		}
	}

	if name, ok := s.keywords.Match(note); ok {
		return name, SourceKeyword
	}
	return s.keywords.Fallback(), SourceFallback
}
