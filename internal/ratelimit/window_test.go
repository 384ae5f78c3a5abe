package ratelimit

import (
	"testing"
	"time"

	"VaultSentinel/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestWindow(t *testing.T, max int) (*Window, *fakeClock, *store.Memory) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	st := store.NewMemory()
	return NewWindow(st, time.Hour, max, nil).WithClock(clk.Now), clk, st
}

func TestWindow_DeniesAfterMaxActions(t *testing.T) {
	w, clk, _ := newTestWindow(t, 3)

	for i := 0; i < 3; i++ {
		require.True(t, w.Admit(), "action %d should be admitted", i+1)
		w.Record()
		clk.Advance(time.Minute)
	}
	assert.False(t, w.Admit())
	assert.Equal(t, 3, w.CountInWindow())
	assert.Equal(t, 0, w.Headroom())
}

func TestWindow_ReadmitsWhenOldestAgesOut(t *testing.T) {
	w, clk, _ := newTestWindow(t, 2)

	w.Record()
	clk.Advance(10 * time.Minute)
	w.Record()
	require.False(t, w.Admit())

	clk.Advance(50*time.Minute + time.Millisecond)
	assert.True(t, w.Admit())
	assert.Equal(t, 1, w.CountInWindow())
}

func TestWindow_DefaultCapOfFifty(t *testing.T) {
	w, _, _ := newTestWindow(t, 0)
	for i := 0; i < DefaultMax; i++ {
		require.True(t, w.Admit())
		w.Record()
	}
	assert.False(t, w.Admit())
}

func TestWindow_PersistsPrunedWindow(t *testing.T) {
	w, clk, st := newTestWindow(t, 5)
	w.Record()
	clk.Advance(2 * time.Hour)
	w.Record()

	var stamps []int64
	require.NoError(t, st.Get(storeKey, &stamps))
	assert.Len(t, stamps, 1)
	assert.Equal(t, clk.Now().UnixMilli(), stamps[0])

	reloaded := NewWindow(st, time.Hour, 5, nil).WithClock(clk.Now)
	assert.Equal(t, 1, reloaded.CountInWindow())
}

func TestWindow_MalformedRecordTreatedAsEmpty(t *testing.T) {
	w, _, st := newTestWindow(t, 2)
	st.PutRaw(storeKey, []byte(`{"bad":`))

	assert.True(t, w.Admit())
	assert.Equal(t, 0, w.CountInWindow())

	w.Record()
	var stamps []int64
	require.NoError(t, st.Get(storeKey, &stamps))
	assert.Len(t, stamps, 1)
}
