package ledger

import (
	"errors"
	"math"
	"strings"
	"sync"

	"VaultSentinel/internal/store"

	"go.uber.org/zap"
)

// Ledger accumulates the amount vaulted during the current session, one total per
// currency. The displayed value tracks the active currency; Reset clears only the
// display, while Clear drops the persisted session namespace at session end.
type Ledger struct {
	mu        sync.Mutex
	store     store.Store
	prefix    string
	currency  string
	displayed float64
	reset     bool // display stays zero until the next SetCurrency
	log       *zap.Logger
}

// New binds a ledger to the given session id.
func New(st store.Store, sessionID string, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		store:  st,
		prefix: "ledger/" + sessionID + "/",
		log:    log,
	}
}

// SetCurrency switches the active currency and reloads its persisted total
// without treating it as a new deposit.
func (l *Ledger) SetCurrency(code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currency = strings.ToLower(code)
	l.reset = false
	l.displayed = l.loadLocked()
}

// Currency returns the active currency.
func (l *Ledger) Currency() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currency
}

// Add credits amount to the active currency. Non-positive and non-finite
// amounts are ignored.
func (l *Ledger) Add(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addLocked(l.currency, amount)
}

// AddTo credits amount to currency. The displayed total only moves when
// currency is the active one.
func (l *Ledger) AddTo(currency string, amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addLocked(strings.ToLower(currency), amount)
}

func (l *Ledger) addLocked(currency string, amount float64) {
	if amount <= 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return
	}
	active := currency == l.currency && !l.reset
	if currency == "" {
		if !l.reset {
			l.displayed += amount
		}
		return
	}
	total := l.loadFor(currency) + amount
	if err := l.store.Put(l.prefix+currency, total); err != nil {
		l.log.Error("persist session ledger", zap.String("currency", currency), zap.Error(err))
	}
	if active {
		l.displayed = total
	}
}

// Get returns the displayed total.
func (l *Ledger) Get() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.displayed
}

// Reset zeroes the displayed total. Credits arriving afterwards are persisted but
// not shown; the persisted value comes back on the next SetCurrency.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.displayed = 0
	l.reset = true
	l.mu.Unlock()
}

// Clear deletes every persisted total of this session.
func (l *Ledger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.displayed = 0
	return l.store.DeletePrefix(l.prefix)
}

func (l *Ledger) loadLocked() float64 {
	if l.currency == "" {
		return l.displayed
	}
	return l.loadFor(l.currency)
}

func (l *Ledger) loadFor(currency string) float64 {
	var total float64
	if err := l.store.Get(l.prefix+currency, &total); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.log.Warn("session ledger record unreadable, using zero",
				zap.String("currency", currency), zap.Error(err))
		}
		return 0
	}
	if total < 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return total
}
