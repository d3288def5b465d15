package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Next_Unit(t *testing.T) {
	t.Run("first call starts at sequence 0", func(t *testing.T) {
		st := newState()
		ts, seq, waited, err := st.next(newManualClock(100), 4095)
		require.NoError(t, err)
		assert.Equal(t, int64(100), ts)
		assert.Equal(t, uint64(0), seq)
		assert.False(t, waited)
	})

	t.Run("same millisecond increments sequence", func(t *testing.T) {
		st := newState()
		clock := newManualClock(100)
		for want := uint64(0); want < 5; want++ {
			_, seq, _, err := st.next(clock, 4095)
			require.NoError(t, err)
			assert.Equal(t, want, seq)
		}
	})

	t.Run("new millisecond resets sequence", func(t *testing.T) {
		st := newState()
		clock := newManualClock(100)
		_, _, _, _ = st.next(clock, 4095)
		_, _, _, _ = st.next(clock, 4095)
		clock.Advance(1)
		ts, seq, _, err := st.next(clock, 4095)
		require.NoError(t, err)
		assert.Equal(t, int64(101), ts)
		assert.Equal(t, uint64(0), seq)
	})

	t.Run("sequence wrap waits for next millisecond", func(t *testing.T) {
		st := newState()
		// 4 次发号停在 100，溢出后再读到两次 100，然后 101
		clock := newScriptClock(100, 100, 100, 100, 100, 100, 100, 101)
		for i := 0; i < 4; i++ {
			_, _, waited, err := st.next(clock, 3)
			require.NoError(t, err)
			assert.False(t, waited)
		}
		ts, seq, waited, err := st.next(clock, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(101), ts)
		assert.Equal(t, uint64(0), seq)
		assert.True(t, waited)
		assert.Equal(t, 8, clock.Reads())
	})

	t.Run("regression fails and leaves state unchanged", func(t *testing.T) {
		st := newState()
		clock := newManualClock(100)
		_, _, _, _ = st.next(clock, 4095)
		_, _, _, _ = st.next(clock, 4095)
		before := st

		clock.Set(95)
		_, _, _, err := st.next(clock, 4095)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrClockRegressed)

		var regressed *ClockRegressedError
		require.ErrorAs(t, err, &regressed)
		assert.Equal(t, int64(100), regressed.Last)
		assert.Equal(t, int64(95), regressed.Now)
		assert.Equal(t, 5*time.Millisecond, regressed.BehindBy)
		assert.Contains(t, err.Error(), "refusing to generate id for 5 milliseconds")
		assert.Equal(t, before, st)

		clock.Set(100)
		_, seq, _, err := st.next(clock, 4095)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), seq)
	})
}

func TestState_Issue_Overflow_Unit(t *testing.T) {
	l, err := NewLayout(1000, 5, 5, 0, 12)
	require.NoError(t, err)

	t.Run("before epoch", func(t *testing.T) {
		st := newState()
		_, _, err := st.issue(newManualClock(999), l, 1, 1, 0)
		assert.ErrorIs(t, err, ErrTimestampOverflow)
	})

	t.Run("at epoch", func(t *testing.T) {
		st := newState()
		id, _, err := st.issue(newManualClock(1000), l, 1, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), l.Decode(id).Timestamp)
	})

	t.Run("past timestamp bits", func(t *testing.T) {
		st := newState()
		_, _, err := st.issue(newManualClock(1000+l.MaxTimestamp()+1), l, 1, 1, 0)
		assert.ErrorIs(t, err, ErrTimestampOverflow)
	})
}
