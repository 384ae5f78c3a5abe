package ledger

import (
	"math"
	"testing"

	"VaultSentinel/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_AddAccumulatesPerCurrency(t *testing.T) {
	st := store.NewMemory()
	l := New(st, "s1", nil)
	l.SetCurrency("BTC")

	l.Add(0.5)
	l.Add(0.25)
	assert.InDelta(t, 0.75, l.Get(), 1e-12)
	assert.Equal(t, "btc", l.Currency())

	var persisted float64
	require.NoError(t, st.Get("ledger/s1/btc", &persisted))
	assert.InDelta(t, 0.75, persisted, 1e-12)
}

func TestLedger_IgnoresInvalidAmounts(t *testing.T) {
	l := New(store.NewMemory(), "s1", nil)
	l.SetCurrency("eth")

	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		l.Add(v)
	}
	assert.Equal(t, 0.0, l.Get())
}

func TestLedger_CurrencySwitchShowsOnlyNewCurrency(t *testing.T) {
	st := store.NewMemory()
	l := New(st, "s1", nil)
	l.SetCurrency("btc")
	l.Add(1)

	l.SetCurrency("eth")
	assert.Equal(t, 0.0, l.Get())
	l.Add(2)

	l.SetCurrency("btc")
	assert.Equal(t, 1.0, l.Get())
	l.SetCurrency("eth")
	assert.Equal(t, 2.0, l.Get())
}

func TestLedger_ResetKeepsPersistedValue(t *testing.T) {
	l := New(store.NewMemory(), "s1", nil)
	l.SetCurrency("btc")
	l.Add(3)

	l.Reset()
	assert.Equal(t, 0.0, l.Get())

	l.SetCurrency("btc")
	assert.Equal(t, 3.0, l.Get())
}

func TestLedger_CreditAfterResetIsPersistedNotShown(t *testing.T) {
	st := store.NewMemory()
	l := New(st, "s1", nil)
	l.SetCurrency("btc")
	l.Add(1)
	l.Reset()

	l.AddTo("BTC", 0.5)
	assert.Equal(t, 0.0, l.Get())
	var persisted float64
	require.NoError(t, st.Get("ledger/s1/btc", &persisted))
	assert.InDelta(t, 1.5, persisted, 1e-12)

	l.SetCurrency("btc")
	assert.InDelta(t, 1.5, l.Get(), 1e-12)
	l.Add(0.25)
	assert.InDelta(t, 1.75, l.Get(), 1e-12)
}

func TestLedger_ClearDropsSession(t *testing.T) {
	st := store.NewMemory()
	other := New(st, "s2", nil)
	other.SetCurrency("btc")
	other.Add(9)

	l := New(st, "s1", nil)
	l.SetCurrency("btc")
	l.Add(3)
	require.NoError(t, l.Clear())

	l.SetCurrency("btc")
	assert.Equal(t, 0.0, l.Get())
	other.SetCurrency("btc")
	assert.Equal(t, 9.0, other.Get())
}

func TestLedger_MalformedRecordReadsAsZero(t *testing.T) {
	st := store.NewMemory()
	st.PutRaw("ledger/s1/btc", []byte("nope"))
	l := New(st, "s1", nil)
	l.SetCurrency("btc")
	assert.Equal(t, 0.0, l.Get())

	l.Add(1)
	assert.Equal(t, 1.0, l.Get())
}

func TestLedger_AddToOtherCurrencyKeepsDisplay(t *testing.T) {
	st := store.NewMemory()
	l := New(st, "s1", nil)
	l.SetCurrency("btc")
	l.Add(1)

	l.AddTo("ETH", 0.5)
	assert.Equal(t, 1.0, l.Get())

	l.SetCurrency("eth")
	assert.Equal(t, 0.5, l.Get())
}
