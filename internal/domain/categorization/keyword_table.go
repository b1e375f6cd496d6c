package categorization

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// DefaultFallback is the category returned when no keyword matches.
const DefaultFallback = "Other"

// KeywordRule maps a category to the keyword substrings that select it.
type KeywordRule struct {
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// KeywordTable is an ordered, versioned set of rules. Earlier rules win ties.
// A table is copied into the classifier at construction and never mutated afterwards.
type KeywordTable struct {
	Version  string        `json:"version"`
	Fallback string        `json:"fallback"`
	Rules    []KeywordRule `json:"rules"`
}

// Validate checks the table is usable.
func (t KeywordTable) Validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return errors.New("keyword table: version is required")
	}
	if strings.TrimSpace(t.Fallback) == "" {
		return errors.New("keyword table: fallback is required")
	}
	if len(t.Rules) == 0 {
		return errors.New("keyword table: at least one rule is required")
	}
	for i, r := range t.Rules {
		if strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("keyword table: rule %d has no category", i)
		}
		usable := 0
		for _, kw := range r.Keywords {
			if normalizeText(kw) != "" {
				usable++
			}
		}
		if usable == 0 {
			return fmt.Errorf("keyword table: rule %q has no keywords", r.Category)
		}
	}
	return nil
}

func (t KeywordTable) clone() KeywordTable {
	out := KeywordTable{Version: t.Version, Fallback: t.Fallback, Rules: make([]KeywordRule, len(t.Rules))}
	for i, r := range t.Rules {
		out.Rules[i] = KeywordRule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// LoadKeywordTable reads a JSON keyword table from disk.
func LoadKeywordTable(path string) (KeywordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KeywordTable{}, fmt.Errorf("failed to read keyword table: %w", err)
	}

	var t KeywordTable
	if err := json.Unmarshal(data, &t); err != nil {
		return KeywordTable{}, fmt.Errorf("failed to parse keyword table: %w", err)
	}
	if t.Fallback == "" {
		t.Fallback = DefaultFallback
	}
	if err := t.Validate(); err != nil {
		return KeywordTable{}, err
	}
	return t, nil
}

// normalizeText lowercases, turns punctuation into spaces and collapses whitespace.
func normalizeText(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// DefaultKeywordTable is the built-in table tuned for Indian spending notes.
// Order is the priority order: Food is checked before Grocery, Grocery before Transport, and so on.
func DefaultKeywordTable() KeywordTable {
	return KeywordTable{
		Version:  "2024-01",
		Fallback: DefaultFallback,
		Rules: []KeywordRule{
			{Category: "Food", Keywords: []string{
				"food", "meal", "lunch", "dinner", "breakfast", "snack", "restaurant", "cafe", "coffee",
				"pizza", "burger", "sandwich", "vegetables", "fruits", "milk", "bread",
				"rice", "dal", "curry", "biryani", "dosa", "idli", "samosa", "tea", "juice",
				"swiggy", "zomato", "uber eats", "foodpanda", "dominos", "kfc", "mcdonalds",
				"hotel", "dhaba", "canteen", "mess", "tiffin", "paratha", "roti", "chapati",
			}},
			{Category: "Grocery", Keywords: []string{
				"grocery", "groceries", "supermarket", "market", "bazaar", "store", "shop",
				"reliance fresh", "big bazaar", "more", "dmart", "spencer", "nature basket",
				"chicken", "mutton", "lamb", "beef", "pork", "fish", "seafood", "prawns", "crab",
				"egg", "eggs", "paneer", "tofu", "protein",
				"apple", "banana", "orange", "mango", "grapes", "strawberry", "watermelon", "pineapple",
				"papaya", "guava", "kiwi", "pomegranate", "lemon", "lime", "coconut", "dates",
				"potato", "onion", "tomato", "carrot", "cabbage", "spinach", "broccoli", "cauliflower",
				"peas", "beans", "corn", "cucumber", "pepper", "chilli", "ginger", "garlic",
				"wheat", "flour", "oats", "quinoa", "barley", "pulses", "lentils", "chickpeas",
				"yogurt", "curd", "cheese", "butter", "cream", "ghee", "almond milk", "soy milk",
				"detergent", "soap", "shampoo", "toothpaste", "tissue", "toilet paper", "oil", "salt", "sugar", "spices",
			}},
			{Category: "Transport", Keywords: []string{
				"transport", "uber", "ola", "taxi", "cab", "bus", "train", "metro", "auto",
				"rickshaw", "fuel", "petrol", "diesel", "gas", "parking", "toll", "flight",
				"airport", "railway", "ticket", "booking", "travel", "commute", "vehicle",
				"bike", "car", "scooter", "motorcycle", "rapido", "bounce", "yulu",
			}},
			{Category: "Entertainment", Keywords: []string{
				"movie", "cinema", "theater", "concert", "show", "game", "gaming", "netflix",
				"prime", "hotstar", "spotify", "youtube", "subscription", "entertainment",
				"fun", "party", "club", "bar", "pub", "bowling", "sports", "gym", "fitness",
				"book", "magazine", "newspaper", "music", "album", "ticket", "event",
			}},
			{Category: "Shopping", Keywords: []string{
				"shopping", "clothes", "shirt", "pants", "dress", "shoes", "bag", "accessories",
				"amazon", "flipkart", "myntra", "ajio", "nykaa", "electronics", "mobile",
				"laptop", "computer", "headphones", "charger", "cable", "gadget", "appliance",
				"furniture", "home", "decoration", "gift", "present", "online", "store", "mall",
			}},
			{Category: "Healthcare", Keywords: []string{
				"doctor", "hospital", "clinic", "medicine", "pharmacy", "medical", "health",
				"checkup", "consultation", "treatment", "surgery", "dental", "dentist",
				"eye", "optician", "glasses", "test", "lab", "blood", "xray", "scan",
				"physiotherapy", "therapy", "massage", "wellness", "vitamins", "supplements",
			}},
			{Category: "Utilities", Keywords: []string{
				"electricity", "water", "gas", "internet", "wifi", "phone", "mobile", "postpaid",
				"prepaid", "recharge", "bill", "utility", "maintenance", "repair", "service",
				"cleaning", "laundry", "rent", "emi", "loan", "insurance", "bank", "charges",
				"fee", "subscription", "premium", "payment", "transfer",
			}},
			{Category: "Education", Keywords: []string{
				"education", "school", "college", "university", "course", "class", "tuition",
				"coaching", "training", "workshop", "seminar", "conference", "book", "notebook",
				"pen", "pencil", "stationery", "fees", "admission", "exam", "test", "study",
				"online course", "udemy", "coursera", "skill", "learning", "certificate",
			}},
		},
	}
}
