package ratelimit

import (
	"errors"
	"sync"
	"time"

	"VaultSentinel/internal/store"

	"go.uber.org/zap"
)

const (
	DefaultWindow = time.Hour
	DefaultMax    = 50

	storeKey = "ratelimit/vault_actions"
)

// Window caps vault actions per trailing interval. Timestamps are kept in
// chronological order and persisted as millisecond epochs; every access prunes
// entries older than the window, so no background timer is needed.
type Window struct {
	mu     sync.Mutex
	store  store.Store
	window time.Duration
	max    int
	now    func() time.Time
	log    *zap.Logger
}

// NewWindow builds a limiter over st. Non-positive arguments fall back to defaults.
func NewWindow(st store.Store, window time.Duration, max int, log *zap.Logger) *Window {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Window{store: st, window: window, max: max, now: time.Now, log: log}
}

// WithClock replaces the time source.
func (w *Window) WithClock(now func() time.Time) *Window {
	w.now = now
	return w
}

// Max returns the configured cap.
func (w *Window) Max() int { return w.max }

// Admit prunes and persists the window, then reports whether another action fits.
func (w *Window) Admit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.prunedLocked()) < w.max
}

// Record appends the current time to the window.
func (w *Window) Record() {
	w.mu.Lock()
	defer w.mu.Unlock()
	stamps := w.prunedLocked()
	stamps = append(stamps, w.now().UnixMilli())
	w.saveLocked(stamps)
}

// CountInWindow returns the number of actions inside the trailing window.
func (w *Window) CountInWindow() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.prunedLocked())
}

// Headroom returns how many more actions the window admits right now.
func (w *Window) Headroom() int {
	n := w.max - w.CountInWindow()
	if n < 0 {
		return 0
	}
	return n
}

func (w *Window) prunedLocked() []int64 {
	var stamps []int64
	if err := w.store.Get(storeKey, &stamps); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			w.log.Warn("rate-limit record unreadable, starting empty", zap.Error(err))
		}
		stamps = nil
	}

	cutoff := w.now().Add(-w.window).UnixMilli()
	kept := make([]int64, 0, len(stamps))
	for _, ts := range stamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	w.saveLocked(kept)
	return kept
}

func (w *Window) saveLocked(stamps []int64) {
	if err := w.store.Put(storeKey, stamps); err != nil {
		w.log.Error("persist rate-limit window", zap.Error(err))
	}
}
