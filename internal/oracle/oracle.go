package oracle

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"VaultSentinel/internal/model"

	"go.uber.org/zap"
)

// Reading is raw balance text as a display shows it, with the denomination the
// display was showing ("" when unknown).
type Reading struct {
	Text     string
	Currency string
}

// Strategy extracts the balance display from one source.
type Strategy interface {
	Name() string
	Extract(ctx context.Context) (Reading, error)
}

// Oracle produces the current balance for a currency. Strategies are tried in
// order and the first one yielding a usable number is remembered for the next
// call. It never fails: on total failure it falls back to the last value read
// for the currency, then the out-of-band balance, then zero.
type Oracle struct {
	mu         sync.Mutex
	strategies []Strategy
	working    int
	last       map[string]float64
	outOfBand  model.BalanceSheet
	display    string // denomination of the last readable display
	warned     bool
	log        *zap.Logger
}

// New builds an oracle over the given strategies.
func New(log *zap.Logger, strategies ...Strategy) *Oracle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Oracle{
		strategies: strategies,
		working:    -1,
		last:       make(map[string]float64),
		log:        log,
	}
}

// Read returns the balance for currency.
func (o *Oracle) Read(ctx context.Context, currency string) float64 {
	currency = strings.ToLower(currency)

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, i := range o.order() {
		s := o.strategies[i]
		r, err := s.Extract(ctx)
		if err != nil {
			o.log.Debug("strategy failed", zap.String("strategy", s.Name()), zap.Error(err))
			continue
		}
		o.noteDisplayLocked(r)
		if r.Currency != "" && !strings.EqualFold(r.Currency, currency) {
			// display shows another denomination, the remote sheet is the better answer
			if b, ok := o.outOfBand.Get(currency); ok {
				o.log.Debug("display currency mismatch, using out-of-band balance",
					zap.String("strategy", s.Name()),
					zap.String("display_currency", r.Currency),
					zap.String("currency", currency))
				return b.Available
			}
			continue
		}
		v, err := ParseAmount(r.Text)
		if err != nil || !usable(v) {
			o.log.Debug("unusable display value",
				zap.String("strategy", s.Name()), zap.String("text", r.Text), zap.Error(err))
			continue
		}
		o.working = i
		o.last[currency] = v
		return v
	}

	return o.fallbackLocked(currency)
}

// order puts the remembered strategy first.
func (o *Oracle) order() []int {
	idx := make([]int, 0, len(o.strategies))
	if o.working >= 0 && o.working < len(o.strategies) {
		idx = append(idx, o.working)
	}
	for i := range o.strategies {
		if i != o.working {
			idx = append(idx, i)
		}
	}
	return idx
}

func (o *Oracle) fallbackLocked(currency string) float64 {
	o.working = -1

	v, source := 0.0, "none"
	if last, ok := o.last[currency]; ok {
		v, source = last, "last_read"
	} else if b, ok := o.outOfBand.Get(currency); ok && usable(b.Available) {
		v, source = b.Available, "out_of_band"
	}

	if !o.warned {
		o.warned = true
		o.log.Warn("balance display unreadable, using fallback",
			zap.String("currency", currency),
			zap.String("source", source),
			zap.Float64("value", v))
	}
	return v
}

// UpdateOutOfBand replaces the cached balance sheet from the vault client.
func (o *Oracle) UpdateOutOfBand(sheet model.BalanceSheet) {
	o.mu.Lock()
	o.outOfBand = sheet
	o.mu.Unlock()
}

// OutOfBand returns the cached balances for currency.
func (o *Oracle) OutOfBand(currency string) (model.Balances, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outOfBand.Get(currency)
}

// DisplayCurrency is the denomination the display is showing. Strategies are
// asked in order; when none names one, the last denomination seen is kept.
func (o *Oracle) DisplayCurrency() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, i := range o.order() {
		r, err := o.strategies[i].Extract(context.Background())
		if err != nil {
			continue
		}
		if o.noteDisplayLocked(r) {
			break
		}
	}
	return o.display, o.display != ""
}

// noteDisplayLocked remembers the denomination of a reading that carries a
// usable amount.
func (o *Oracle) noteDisplayLocked(r Reading) bool {
	if r.Currency == "" {
		return false
	}
	if v, err := ParseAmount(r.Text); err != nil || !usable(v) {
		return false
	}
	o.display = strings.ToLower(r.Currency)
	return true
}

// ResetSession re-arms the fallback warning and forgets the working strategy.
func (o *Oracle) ResetSession() {
	o.mu.Lock()
	o.warned = false
	o.working = -1
	o.mu.Unlock()
}

// Working names the remembered strategy, or "" when none.
func (o *Oracle) Working() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.working < 0 {
		return ""
	}
	return o.strategies[o.working].Name()
}

func usable(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// String lists the configured strategies in order.
func (o *Oracle) String() string {
	names := make([]string, len(o.strategies))
	for i, s := range o.strategies {
		names[i] = s.Name()
	}
	return fmt.Sprintf("oracle[%s]", strings.Join(names, ","))
}
