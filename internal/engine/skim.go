package engine

import (
	"context"
	"errors"

	"VaultSentinel/internal/calculator"
	"VaultSentinel/internal/model"
	"VaultSentinel/internal/notifier"
	"VaultSentinel/internal/vault"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type skimOp struct {
	id       string
	kind     model.TickKind
	currency string
	amount   float64
}

type depositResult struct {
	conf *vault.Confirmation
	err  error
}

// skimLocked is the skim procedure. At most one deposit is outstanding; a
// second request while one is in flight is dropped, not queued.
func (e *Engine) skimLocked(kind model.TickKind, amount float64, p model.Policy) {
	if amount < calculator.MinSkim {
		return
	}
	op := skimOp{id: uuid.NewString(), kind: kind, currency: e.currency, amount: amount}
	log := e.log.With(
		zap.String("operation_id", op.id),
		zap.String("currency", op.currency),
		zap.String("amount", fixed(amount)),
		zap.String("kind", string(kind)))

	if e.inFlight != "" {
		log.Info("skim dropped, deposit already in flight", zap.String("reason", "in_flight"),
			zap.String("in_flight_id", e.inFlight))
		e.recordSkim(op, model.SkimDropped, "in_flight", 0)
		return
	}
	if !e.deps.Limiter.Admit() {
		log.Warn("skim skipped, local rate limit reached", zap.String("reason", "local_rate_limit"))
		e.recordSkim(op, model.SkimRateLimited, "local_rate_limit", 0)
		e.notify(notifier.FormatSkim(&model.SkimEvent{Currency: op.currency, Amount: amount, Outcome: model.SkimRateLimited}))
		return
	}

	e.inFlight = op.id
	log.Info("saving to vault", zap.Float64("save_percent", calculator.EffectiveRate(p, kind == model.TickBigWin)))
	e.notify(notifier.FormatSkimIntent(kind, amount, op.currency, p))

	e.wg.Add(1)
	go e.runSkim(op, log)
}

// runSkim issues the deposit under the deposit timeout. When the timer wins the
// flag is released even if the call never returns.
func (e *Engine) runSkim(op skimOp, log *zap.Logger) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), e.opts.DepositTimeout)
	defer cancel()

	results := make(chan depositResult, 1)
	go func() {
		conf, err := e.deps.Vault.Deposit(ctx, op.currency, op.amount)
		results <- depositResult{conf: conf, err: err}
	}()

	var r depositResult
	select {
	case r = <-results:
	case <-ctx.Done():
		r = depositResult{err: ctx.Err()}
	}
	e.finishSkim(op, r, log)
}

func (e *Engine) finishSkim(op skimOp, r depositResult, log *zap.Logger) {
	e.mu.Lock()
	if e.inFlight == op.id {
		e.inFlight = ""
	}

	if r.err != nil || r.conf == nil {
		e.mu.Unlock()
		outcome, reason := classifyFailure(r.err)
		if outcome == model.SkimTimeout {
			log.Warn("vault deposit timed out, skim forfeited", zap.String("reason", reason), zap.Error(r.err))
		} else {
			log.Warn("vault deposit failed, skim forfeited", zap.String("reason", reason), zap.Error(r.err))
		}
		e.recordSkim(op, outcome, reason, 0)
		e.notify(notifier.FormatSkim(&model.SkimEvent{Currency: op.currency, Amount: op.amount, Outcome: outcome, Reason: reason}))
		return
	}

	e.deps.Limiter.Record()
	e.deps.Ledger.AddTo(op.currency, op.amount)
	if len(r.conf.Balances) > 0 {
		e.deps.Oracle.UpdateOutOfBand(r.conf.Balances)
	}
	if b, ok := r.conf.Balances.Get(op.currency); ok && op.currency == e.currency {
		e.remoteVault = b.Vault
	}

	after := e.resyncLocked(op.currency)
	e.mu.Unlock()

	log.Info("saved to vault", zap.String("deposit_id", r.conf.ID), zap.String("balance_after", fixed(after)))
	e.recordSkim(op, model.SkimSuccess, "", after)
	e.notify(notifier.FormatSkim(&model.SkimEvent{Currency: op.currency, Amount: op.amount, Outcome: model.SkimSuccess}))
}

// resyncLocked re-reads the balance after a confirmed deposit and adopts it as
// the baseline, absorbing drift while the call was in flight. It leaves the
// baseline alone once the engine stopped or moved to another currency.
func (e *Engine) resyncLocked(currency string) float64 {
	if !e.running || e.state != model.StateMonitoring || e.currency != currency {
		return e.baseline
	}
	after := e.deps.Oracle.Read(context.Background(), currency)
	e.baseline = after
	e.previous = after
	return after
}

// classifyFailure maps a deposit error to an outcome and a log reason.
func classifyFailure(err error) (model.SkimOutcome, string) {
	switch {
	case err == nil:
		return model.SkimFailed, string(vault.KindRejected)
	case errors.Is(err, context.DeadlineExceeded):
		return model.SkimTimeout, "timeout"
	}
	if kind := vault.KindOf(err); kind != "" {
		return model.SkimFailed, string(kind)
	}
	return model.SkimFailed, "unknown"
}

func (e *Engine) recordSkim(op skimOp, outcome model.SkimOutcome, reason string, after float64) {
	evt := &model.SkimEvent{
		OperationID:  op.id,
		Currency:     op.currency,
		Kind:         op.kind,
		Amount:       op.amount,
		Outcome:      outcome,
		Reason:       reason,
		BalanceAfter: after,
	}
	if err := e.deps.Recorder.RecordSkim(evt); err != nil {
		e.log.Error("record skim", zap.String("operation_id", op.id), zap.Error(err))
	}
}
