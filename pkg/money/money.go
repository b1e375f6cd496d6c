// Package money provides currency-safe arithmetic over integer minor units.
// Expense amounts never touch floating point: they are parsed into decimals,
// rounded half-up to the currency's minor unit and carried as int64.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes the service formats reports in (ISO-4217)
const (
	INR = "INR"
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
)

// ErrInvalidAmount is returned when a string cannot be parsed as an amount.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	hundred  = decimal.NewFromInt(100)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// Money is a monetary value with currency backed by go-money.
type Money struct {
	m *money.Money
}

// New creates Money from minor units (paise, cents).
func New(amountMinor int64, currencyCode string) *Money {
	return &Money{m: money.New(amountMinor, normalizeCode(currencyCode))}
}

// NewFromDecimal converts a major-unit decimal, rounding half-up to the minor unit.
// Amounts whose minor units do not fit in an int64 are rejected with ErrInvalidAmount.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) (*Money, error) {
	code := normalizeCode(currencyCode)
	fraction := money.GetCurrency(code).Fraction
	minor := amount.Shift(int32(fraction)).Round(0)
	if minor.Abs().GreaterThan(maxMinor) {
		return nil, fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, amount.String())
	}
	return New(minor.IntPart(), code), nil
}

// NewFromString parses user input such as "250", "1,250.50" or "₹ 99.999".
// Grouping commas and currency symbols are ignored.
func NewFromString(amount, currencyCode string) (*Money, error) {
	cleaned := strings.TrimSpace(amount)
	for _, sym := range []string{"₹", "$", "€", "£", "Rs.", "Rs", ",", " "} {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	return NewFromDecimal(d, currencyCode)
}

// Amount returns the amount in minor units
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

func (m *Money) IsPositive() bool {
	return m != nil && m.m != nil && m.m.IsPositive()
}

// GreaterThan reports m > other; mismatched currencies compare false.
func (m *Money) GreaterThan(other *Money) bool {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return false
	}
	gt, _ := m.m.GreaterThan(other.m)
	return gt
}

// ToDecimal converts to major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.m.Currency().Fraction))
}

// String returns the amount in major units with the currency's fraction digits, e.g. "1250.50".
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().StringFixed(int32(m.m.Currency().Fraction))
}

// Display formats with the currency symbol, e.g. "₹1,250.50".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// PercentageOf returns m as a percentage of total, rounded half-up to two places.
func (m *Money) PercentageOf(total *Money) decimal.Decimal {
	if m == nil || total == nil {
		return decimal.Zero
	}
	return Percent(m.Amount(), total.Amount())
}

// Percent computes part/whole*100 rounded half-up to two decimal places.
// A zero whole yields zero.
func Percent(part, whole int64) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).
		Mul(hundred).
		DivRound(decimal.NewFromInt(whole), 16).
		Round(2)
}

// ChangePercent is the relative change from previous to current in percent,
// rounded half-up to two places. Zero when previous is zero.
func ChangePercent(current, previous int64) decimal.Decimal {
	if previous == 0 {
		return decimal.Zero
	}
	return Percent(current-previous, previous)
}

// Average divides a minor-unit total by count and returns major units
// rounded half-up to two places.
func Average(totalMinor int64, count int, currencyCode string) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	fraction := money.GetCurrency(normalizeCode(currencyCode)).Fraction
	return decimal.New(totalMinor, -int32(fraction)).
		DivRound(decimal.NewFromInt(int64(count)), 16).
		Round(2)
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || money.GetCurrency(code) == nil {
		return INR
	}
	return code
}
