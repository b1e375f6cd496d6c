package categorization

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrClassifierUnavailable is matched by every failure of an AIClassifier.
var ErrClassifierUnavailable = errors.New("ai classifier unavailable")

// UnavailableReason says why the AI classifier produced no usable answer.
type UnavailableReason string

const (
	ReasonDisabled      UnavailableReason = "disabled"
	ReasonRateLimited   UnavailableReason = "rate_limited"
	ReasonTimeout       UnavailableReason = "timeout"
	ReasonTransport     UnavailableReason = "transport"
	ReasonBadStatus     UnavailableReason = "bad_status"
	ReasonMalformed     UnavailableReason = "malformed_response"
	ReasonInvalidAnswer UnavailableReason = "invalid_answer"
)

// UnavailableError is the typed failure of an AIClassifier. errors.Is(err, ErrClassifierUnavailable) holds.
type UnavailableError struct {
	Reason UnavailableReason
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ai classifier unavailable: %s", e.Reason)
	}
	return fmt.Sprintf("ai classifier unavailable: %s: %v", e.Reason, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrClassifierUnavailable }

func unavailable(reason UnavailableReason, err error) error {
	return &UnavailableError{Reason: reason, Err: err}
}

// ReasonOf extracts the failure reason, or "" when err is not an UnavailableError.
func ReasonOf(err error) UnavailableReason {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Reason
	}
	return ""
}

// AIClassifier picks one of candidates for a note. Implementations return either a
// name from candidates (canonical casing) or an error matching ErrClassifierUnavailable.
type AIClassifier interface {
	Classify(ctx context.Context, note string, candidates []string) (string, error)
}

// AISuggester is implemented by classifiers that can also rank candidates for a preview.
type AISuggester interface {
	SuggestCategories(ctx context.Context, note string, candidates []string, limit int) ([]Suggestion, error)
}

// NoopClassifier is used when no hosted model is configured.
type NoopClassifier struct{}

func (NoopClassifier) Classify(context.Context, string, []string) (string, error) {
	return "", unavailable(ReasonDisabled, nil)
}

// MatchCandidate maps a free-form model answer onto the candidate list, case-insensitively.
// Surrounding quotes, trailing punctuation and a "Category:" prefix are ignored.
func MatchCandidate(answer string, candidates []string) (string, bool) {
	answer = strings.TrimSpace(answer)
	if i := strings.IndexByte(answer, '\n'); i >= 0 {
		answer = answer[:i]
	}
	if i := strings.LastIndexByte(answer, ':'); i >= 0 {
		answer = answer[i+1:]
	}
	answer = strings.Trim(answer, " \t\"'`.*")

	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c), answer) {
			return c, true
		}
	}
	return "", false
}
