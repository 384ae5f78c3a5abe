package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_EveryAndCancel(t *testing.T) {
	s := New(nil)
	var runs atomic.Int32
	id, err := s.Every(time.Second, func() { runs.Add(1) })
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	s.Cancel(id)
	n := runs.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), n+1)
}

func TestScheduler_SubSecondRoundsUp(t *testing.T) {
	s := New(nil)
	_, err := s.Every(10*time.Millisecond, func() {})
	assert.NoError(t, err)
}
