package calculator

import (
	"VaultSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// MinSkim is the smallest amount worth sending to the vault.
const MinSkim = 1e-8

// DepositLandedRatio is the share of a notified deposit the balance must have
// grown by before the deposit counts as landed.
const DepositLandedRatio = 0.95

// IsBigWin reports whether current exceeds baseline by the big win threshold factor.
func IsBigWin(baseline, current, threshold float64) bool {
	return current > baseline*threshold
}

// ProfitSkim returns the amount to vault for a rise from baseline to current and
// whether it counts as a big win. It returns zero when there is no profit.
func ProfitSkim(baseline, current float64, p model.Policy) (float64, bool) {
	if current <= baseline {
		return 0, false
	}
	big := IsBigWin(baseline, current, p.BigWinThreshold)
	multiplier := 1.0
	if big {
		multiplier = p.BigWinMultiplier
	}
	profit := decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(baseline))
	skim := profit.
		Mul(decimal.NewFromFloat(p.SaveRate)).
		Mul(decimal.NewFromFloat(multiplier))
	return skim.InexactFloat64(), big
}

// DepositSkim is the amount to vault for an external deposit. The big win
// multiplier never applies.
func DepositSkim(amount float64, p model.Policy) float64 {
	if amount <= 0 {
		return 0
	}
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(p.SaveRate)).InexactFloat64()
}

// DepositLanded reports whether a balance increase accounts for a notified deposit.
func DepositLanded(increase, deposit float64) bool {
	return deposit > 0 && increase >= deposit*DepositLandedRatio
}

// EffectiveRate is the share of profit vaulted, in percent, for log lines.
func EffectiveRate(p model.Policy, bigWin bool) float64 {
	if bigWin {
		return p.SaveRate * p.BigWinMultiplier * 100
	}
	return p.SaveRate * 100
}
