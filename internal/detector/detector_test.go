package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		name   string
		texts  []string
		amount float64
		ok     bool
	}{
		{"plain deposit", []string{"Deposit of 0.25 BTC credited"}, 0.25, true},
		{"suffix", []string{"deposit 1.5k received"}, 1500, true},
		{"symbol first", []string{"$120 added to your balance"}, 120, true},
		{"decimal comma", []string{"Einzahlung received: 0,75 ETH"}, 0.75, true},
		{"no wording", []string{"You won 5 BTC"}, 0, false},
		{"no amount", []string{"deposit pending"}, 0, false},
		{"id digits ignored", []string{"deposit a3f-77 confirmed"}, 0, false},
		{"zero ignored", []string{"deposited 0 BTC", "credited 2 LTC"}, 2, true},
		{"first matching text wins", []string{"bet lost 3", "received 4", "received 9"}, 4, true},
		{"nothing", nil, 0, false},
	}
	c := NewKeywordClassifier()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			amount, ok := c.Classify(tc.texts)
			assert.Equal(t, tc.ok, ok)
			assert.InDelta(t, tc.amount, amount, 1e-12)
		})
	}
}

func TestKeywordClassifier_CustomKeywords(t *testing.T) {
	c := NewKeywordClassifier("Vault Top-Up")
	amount, ok := c.Classify([]string{"VAULT TOP-UP 12"})
	assert.True(t, ok)
	assert.Equal(t, 12.0, amount)

	_, ok = c.Classify([]string{"deposit 12"})
	assert.False(t, ok)
}
