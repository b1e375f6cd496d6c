package money

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// TestDataGenerator produces realistic expense fixtures using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// TestExpense is a generated expense before it is bound to a user or category id.
type TestExpense struct {
	Amount   *Money
	Note     string
	Date     time.Time
	Category string
}

var fixtureNotes = map[string][]string{
	"Food":          {"swiggy lunch", "zomato dinner", "coffee at cafe", "dominos pizza", "breakfast dosa"},
	"Grocery":       {"dmart groceries", "onion and tomato", "chicken from market", "paneer 500g"},
	"Transport":     {"ola to office", "uber airport", "metro card recharge", "petrol refill"},
	"Entertainment": {"netflix plan", "movie tickets", "bowling night"},
	"Shopping":      {"amazon headphones", "flipkart shirt", "myntra shoes"},
	"Healthcare":    {"pharmacy medicine", "dentist visit", "blood test lab"},
	"Utilities":     {"electricity bill", "wifi internet", "rent transfer"},
	"Education":     {"udemy course", "college fees", "notebook and pen"},
	"Other":         {"misc", "gift wrap", "donation"},
}

var fixtureCategories = []string{"Food", "Grocery", "Transport", "Entertainment", "Shopping", "Healthcare", "Utilities", "Education", "Other"}

// Category returns one of the default category names.
func (g *TestDataGenerator) Category() string {
	return g.faker.RandomString(fixtureCategories)
}

// Note returns a plausible free-text note for the category.
func (g *TestDataGenerator) Note(category string) string {
	notes, ok := fixtureNotes[category]
	if !ok {
		return g.faker.Phrase()
	}
	return g.faker.RandomString(notes)
}

// RandomAmount returns an amount between minMinor and maxMinor inclusive.
func (g *TestDataGenerator) RandomAmount(currency string, minMinor, maxMinor int64) *Money {
	if maxMinor <= minMinor {
		return New(minMinor, currency)
	}
	return New(minMinor+int64(g.faker.IntRange(0, int(maxMinor-minMinor))), currency)
}

// Expense generates a single expense dated within [from, to].
func (g *TestDataGenerator) Expense(currency string, from, to time.Time) TestExpense {
	category := g.Category()
	return TestExpense{
		Amount:   g.RandomAmount(currency, 100, 500000),
		Note:     g.Note(category),
		Date:     g.faker.DateRange(from, to),
		Category: category,
	}
}

// Expenses generates count expenses dated within [from, to].
func (g *TestDataGenerator) Expenses(currency string, count int, from, to time.Time) []TestExpense {
	out := make([]TestExpense, count)
	for i := range out {
		out[i] = g.Expense(currency, from, to)
	}
	return out
}
