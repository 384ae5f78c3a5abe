package engine

import (
	"context"

	"VaultSentinel/internal/model"
	"VaultSentinel/internal/strategy"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// requiredPositiveReads is how many consecutive positive reads make the baseline trustworthy.
const requiredPositiveReads = 2

func (e *Engine) resetInitLocked() {
	e.positiveReads = 0
	e.initTries = 0
	e.lastRead = 0
	e.baseline = 0
	e.previous = 0
}

func (e *Engine) scheduleInitLocked() {
	if e.initJob != 0 {
		return
	}
	id, err := e.deps.Timers.Every(e.opts.InitInterval, e.initTick)
	if err != nil {
		// without the init timer the engine would never leave Initializing
		e.log.Error("schedule initialization, monitoring from zero", zap.Error(err))
		e.monitorLocked(e.lastRead)
		return
	}
	e.initJob = id
}

// initTick is one initialization read.
func (e *Engine) initTick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initStepLocked(context.Background())
}

func (e *Engine) initStepLocked(ctx context.Context) {
	if !e.running || e.state != model.StateInitializing {
		return
	}
	if cur := e.deps.Resolver.Resolve(); cur != e.currency {
		e.switchCurrencyLocked(cur)
		return
	}

	v := e.deps.Oracle.Read(ctx, e.currency)
	e.lastRead = v
	e.initTries++
	if v > 0 {
		e.positiveReads++
	} else {
		e.positiveReads = 0
	}

	switch {
	case e.positiveReads >= requiredPositiveReads:
		e.log.Info("initial balance",
			zap.String("currency", e.currency), zap.String("balance", fixed(v)))
		e.monitorLocked(v)
	case e.initTries >= e.opts.InitMaxTries:
		e.log.Warn("unable to confirm starting balance, using last read",
			zap.String("currency", e.currency), zap.String("balance", fixed(v)),
			zap.Int("tries", e.initTries))
		e.monitorLocked(v)
	}
}

func (e *Engine) monitorLocked(baseline float64) {
	e.cancelJobLocked(&e.initJob)
	e.baseline = baseline
	e.previous = baseline
	e.state = model.StateMonitoring
}

// switchCurrencyLocked is the currency transition: the ledger shows the new
// currency's total and initialization starts over.
func (e *Engine) switchCurrencyLocked(next string) {
	e.log.Info("currency changed", zap.String("from", e.currency), zap.String("to", next))
	e.currency = next
	e.deps.Ledger.SetCurrency(next)
	e.consumed = make(map[string]bool)
	if b, ok := e.deps.Oracle.OutOfBand(next); ok {
		e.remoteVault = b.Vault
	} else {
		e.remoteVault = 0
	}
	e.resetInitLocked()
	e.state = model.StateInitializing
	e.scheduleInitLocked()
}

// pollTick is the main tick.
func (e *Engine) pollTick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	res := e.tickLocked(context.Background())
	if res.Kind == model.TickUninitialized {
		return
	}
	if err := e.deps.Recorder.RecordTick(&res); err != nil {
		e.log.Error("record tick", zap.Error(err))
	}
}

func (e *Engine) tickLocked(ctx context.Context) model.TickResult {
	if !e.running || e.state != model.StateMonitoring {
		return model.TickResult{Kind: model.TickUninitialized, Currency: e.currency}
	}

	if cur := e.deps.Resolver.Resolve(); cur != e.currency {
		before := e.baseline
		e.switchCurrencyLocked(cur)
		return model.TickResult{Kind: model.TickCurrencyChange, Currency: cur, Before: before}
	}

	p := e.deps.Policies.Get()
	cur := e.deps.Oracle.Read(ctx, e.currency)
	deposit := e.pendingDepositLocked()

	d := strategy.Evaluate(strategy.Tick{
		Baseline: e.baseline,
		Previous: e.previous,
		Current:  cur,
		Deposit:  deposit,
		Policy:   p,
	})
	res := model.TickResult{Kind: d.Kind, Currency: e.currency, Before: e.baseline, Current: cur, Skim: d.Skim}

	// the baseline moves before any skim resolves so an overlapping tick cannot
	// skim the same profit twice
	e.baseline = d.Baseline
	e.previous = cur
	if d.ConsumeDeposit {
		e.consumed[depositKey(deposit)] = true
	}

	switch {
	case res.Before <= 0 && cur > 0:
		e.log.Info("starting balance adopted", zap.String("currency", e.currency), zap.String("balance", fixed(cur)))
	case d.Kind == model.TickLoss:
		e.log.Debug("balance decreased", zap.String("currency", e.currency),
			zap.String("from", fixed(res.Before)), zap.String("to", fixed(cur)))
	case d.Kind == model.TickDeposit:
		e.log.Info("deposit landed", zap.String("currency", e.currency), zap.String("deposit", fixed(deposit)))
	}
	if d.Skim > 0 {
		e.skimLocked(d.Kind, d.Skim, p)
	}
	return res
}

// pendingDepositLocked returns the classified deposit amount unless it was
// already consumed.
func (e *Engine) pendingDepositLocked() float64 {
	if e.deps.Classifier == nil || e.deps.Source == nil {
		return 0
	}
	amount, ok := e.deps.Classifier.Classify(e.deps.Source.Recent())
	if !ok || amount <= 0 || e.consumed[depositKey(amount)] {
		return 0
	}
	return amount
}

func depositKey(v float64) string {
	return decimal.NewFromFloat(v).Round(8).String()
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(8)
}
