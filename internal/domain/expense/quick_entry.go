package expense

import (
	"fmt"
	"regexp"
	"strings"
)

// quickAmount matches "250", "₹250", "Rs. 1,250.50", "250 INR", "99.5rs".
// Groups: (prefix)(amount)(suffix).
var quickAmount = regexp.MustCompile(`(?i)(₹|\brs\.?|\binr)?\s*(\d{1,3}(?:,\d{2,3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)\s*(₹|rs\b\.?|inr\b|/-)?`)

// ParseQuickEntry splits one line such as "swiggy lunch ₹250" into an amount and a note.
// The last number in the text is the amount; an amount with an explicit rupee marker
// wins over a bare number ("2 samosa rs 40" is 40).
func ParseQuickEntry(raw string) (Input, error) {
	text := strings.TrimSpace(raw)
	matches := quickAmount.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return Input{}, fmt.Errorf("%w: no amount in %q", ErrInvalidAmount, raw)
	}

	chosen := matches[len(matches)-1]
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if m[2] != -1 || m[6] != -1 {
			chosen = m
			break
		}
	}

	amount := text[chosen[4]:chosen[5]]
	note := strings.Join(strings.Fields(text[:chosen[0]]+" "+text[chosen[1]:]), " ")
	note = strings.Trim(note, " -:,")
	if note == "" {
		return Input{}, fmt.Errorf("%w: only an amount was given", ErrInvalidNote)
	}

	return Input{Amount: amount, Note: note}, nil
}
