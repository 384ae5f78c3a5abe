package currency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubSignal struct {
	code  string
	ok    bool
	calls int
}

func (s *stubSignal) Currency() (string, bool) {
	s.calls++
	return s.code, s.ok
}

func TestResolver_SignalOrder(t *testing.T) {
	explicit := &stubSignal{code: "ETH", ok: true}
	inferred := &stubSignal{code: "btc", ok: true}

	r := NewResolver("bnb", explicit, inferred)
	assert.Equal(t, "eth", r.Resolve())
	assert.Equal(t, 0, inferred.calls)

	explicit.ok = false
	r.Invalidate()
	assert.Equal(t, "btc", r.Resolve())

	inferred.ok = false
	r.Invalidate()
	assert.Equal(t, "bnb", r.Resolve())
}

func TestResolver_CachesForTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sig := &stubSignal{code: "ltc", ok: true}
	r := NewResolver("", sig).WithClock(func() time.Time { return now })

	assert.Equal(t, "ltc", r.Resolve())
	sig.code = "doge"
	now = now.Add(CacheTTL - time.Millisecond)
	assert.Equal(t, "ltc", r.Resolve())
	assert.Equal(t, 1, sig.calls)

	now = now.Add(time.Millisecond)
	assert.Equal(t, "doge", r.Resolve())
	assert.Equal(t, 2, sig.calls)
}

func TestResolver_NeverEmpty(t *testing.T) {
	r := NewResolver("", &stubSignal{code: "   ", ok: true}, nil)
	assert.Equal(t, DefaultCurrency, r.Resolve())
}

func TestPlatformDefault(t *testing.T) {
	tests := []struct {
		baseURL  string
		expected string
	}{
		{"https://stake.com", "bnb"},
		{"https://stake.us", "sc"},
		{"https://stake.us:443/", "sc"},
		{"stake.bet", "bnb"},
		{"", "bnb"},
	}
	for _, tc := range tests {
		t.Run(tc.baseURL, func(t *testing.T) {
			assert.Equal(t, tc.expected, PlatformDefault(tc.baseURL))
		})
	}
}
