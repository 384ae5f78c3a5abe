package calculator

import (
	"testing"

	"VaultSentinel/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestProfitSkim(t *testing.T) {
	p := model.Policy{SaveRate: 0.1, BigWinThreshold: 5, BigWinMultiplier: 3, PollIntervalMs: 90000}

	tests := []struct {
		name     string
		baseline float64
		current  float64
		skim     float64
		big      bool
	}{
		{"regular win", 100, 150, 5, false},
		{"big win", 100, 600, 150, true},
		{"exactly threshold is not big", 100, 500, 40, false},
		{"no change", 100, 100, 0, false},
		{"loss", 100, 90, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			skim, big := ProfitSkim(tc.baseline, tc.current, p)
			assert.InDelta(t, tc.skim, skim, 1e-12)
			assert.Equal(t, tc.big, big)
		})
	}
}

func TestProfitSkim_ExactDecimal(t *testing.T) {
	p := model.Policy{SaveRate: 0.2, BigWinThreshold: 5, BigWinMultiplier: 10}
	skim, big := ProfitSkim(10, 12, p)
	assert.Equal(t, 0.4, skim)
	assert.False(t, big)
}

func TestDepositSkim(t *testing.T) {
	p := model.DefaultPolicy()
	assert.Equal(t, 0.04, DepositSkim(1, p))
	assert.Equal(t, 0.0, DepositSkim(-1, p))
}

func TestDepositLanded(t *testing.T) {
	assert.True(t, DepositLanded(1, 1))
	assert.True(t, DepositLanded(0.95, 1))
	assert.False(t, DepositLanded(0.94, 1))
	assert.False(t, DepositLanded(5, 0))
}

func TestEffectiveRate(t *testing.T) {
	p := model.DefaultPolicy()
	assert.InDelta(t, 4, EffectiveRate(p, false), 1e-9)
	assert.InDelta(t, 40, EffectiveRate(p, true), 1e-9)
}
