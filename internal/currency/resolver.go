package currency

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// CacheTTL is how long a resolved currency is reused before re-deriving it.
const CacheTTL = 5 * time.Second

const (
	DefaultCurrency   = "bnb"
	DefaultUSCurrency = "sc"
)

// Signal yields a currency code when it has one.
type Signal interface {
	Currency() (string, bool)
}

// SignalFunc adapts a function to Signal.
type SignalFunc func() (string, bool)

func (f SignalFunc) Currency() (string, bool) { return f() }

// Resolver determines the active currency from an ordered list of signals,
// caching the answer for CacheTTL. It never returns an empty code.
type Resolver struct {
	mu       sync.Mutex
	signals  []Signal
	fallback string
	cached   string
	cachedAt time.Time
	now      func() time.Time
}

// NewResolver tries the explicit signal first, then the inferred one, then fallback.
func NewResolver(fallback string, signals ...Signal) *Resolver {
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if fallback == "" {
		fallback = DefaultCurrency
	}
	return &Resolver{signals: signals, fallback: fallback, now: time.Now}
}

// WithClock replaces the time source.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns the active currency code.
func (r *Resolver) Resolve() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.cached != "" && now.Sub(r.cachedAt) < CacheTTL {
		return r.cached
	}

	code := r.fallback
	for _, s := range r.signals {
		if s == nil {
			continue
		}
		if c, ok := s.Currency(); ok {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				code = c
				break
			}
		}
	}
	r.cached, r.cachedAt = code, now
	return code
}

// Invalidate forces the next Resolve to re-derive the currency.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cached = ""
	r.mu.Unlock()
}

// PlatformDefault picks the static default for a platform base URL: US mirrors
// play in sweepstakes coins, everything else defaults to BNB.
func PlatformDefault(baseURL string) string {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	if strings.HasSuffix(strings.ToLower(host), ".us") {
		return DefaultUSCurrency
	}
	return DefaultCurrency
}
