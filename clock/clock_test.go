package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMockSleepAdvances(t *testing.T) {
	m := NewMock(time.Unix(1000, 0))
	m.Sleep(5 * time.Second)
	require.Equal(t, time.Unix(1005, 0), m.Now())
}

func TestMockAdvanceReturnsNewTime(t *testing.T) {
	m := NewMock(time.Unix(0, 0))
	got := m.Advance(time.Minute)
	require.Equal(t, time.Unix(60, 0), got)
	require.Equal(t, got, m.Now())
}
