package expense

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuickEntry(t *testing.T) {
	tests := []struct {
		input      string
		wantNote   string
		wantAmount string
	}{
		{"swiggy lunch 250", "swiggy lunch", "250"},
		{"swiggy lunch ₹250", "swiggy lunch", "250"},
		{"₹ 99.50 chai", "chai", "99.50"},
		{"Rs. 1,250.50 myntra shoes", "myntra shoes", "1,250.50"},
		{"ola to office 180 INR", "ola to office", "180"},
		{"2 samosa rs 40", "2 samosa", "40"},
		{"electricity bill - 1200/-", "electricity bill", "1200"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseQuickEntry(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNote, got.Note)
			assert.Equal(t, tt.wantAmount, got.Amount)
		})
	}
}

func TestParseQuickEntry_Errors(t *testing.T) {
	_, err := ParseQuickEntry("lunch with friends")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseQuickEntry("")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseQuickEntry("₹250")
	assert.ErrorIs(t, err, ErrInvalidNote)
}
