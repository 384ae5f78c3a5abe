package strategy

import (
	"VaultSentinel/internal/calculator"
	"VaultSentinel/internal/model"
)

// Tick is everything one main tick needs to classify the balance movement.
type Tick struct {
	Baseline float64
	Previous float64 // balance read on the previous tick
	Current  float64
	Deposit  float64 // unconsumed notified deposit, 0 when none
	Policy   model.Policy
}

// Decision is the outcome of Evaluate. Baseline is the value the engine must
// adopt before any skim resolves.
type Decision struct {
	Kind           model.TickKind
	Skim           float64
	BigWin         bool
	Baseline       float64
	ConsumeDeposit bool
}

// Evaluate classifies a tick as deposit, profit, loss or no change. A baseline
// of zero means initialization never confirmed a balance, so the current read is
// adopted without skimming.
func Evaluate(t Tick) Decision {
	if t.Baseline <= 0 {
		return Decision{Kind: model.TickNone, Baseline: t.Current}
	}

	// Step a: an external deposit that the balance has caught up with
	if calculator.DepositLanded(t.Current-t.Previous, t.Deposit) {
		return Decision{
			Kind:           model.TickDeposit,
			Skim:           calculator.DepositSkim(t.Deposit, t.Policy),
			Baseline:       t.Current,
			ConsumeDeposit: true,
		}
	}

	switch {
	// Step b: profit, possibly a big win
	case t.Current > t.Baseline:
		skim, big := calculator.ProfitSkim(t.Baseline, t.Current, t.Policy)
		kind := model.TickProfit
		if big {
			kind = model.TickBigWin
		}
		return Decision{Kind: kind, Skim: skim, BigWin: big, Baseline: t.Current}

	// Step c: loss or withdrawal
	case t.Current < t.Baseline:
		return Decision{Kind: model.TickLoss, Baseline: t.Current}
	}

	return Decision{Kind: model.TickNone, Baseline: t.Baseline}
}
