package baker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRTTGateSleepDefaultsWithoutSamples(t *testing.T) {
	r := newRTT()
	require.Equal(t, baseGateSleep, r.gateSleep())
}

func TestRTTGateSleepTracksFastNode(t *testing.T) {
	r := newRTT()
	for i := 0; i < rttLength; i++ {
		r.addTime(20 * time.Millisecond)
	}

	require.Equal(t, minGateSleep, r.gateSleep())
}

func TestRTTGateSleepClampsSlowNode(t *testing.T) {
	r := newRTT()
	for i := 0; i < rttLength; i++ {
		r.addTime(10 * time.Second)
	}

	require.Equal(t, maxGateSleep, r.gateSleep())
}

func TestRTTSingleSlowSampleDoesNotDominate(t *testing.T) {
	r := newRTT()
	for i := 0; i < rttLength; i++ {
		r.addTime(10 * time.Millisecond)
	}

	before := r.avg()
	r.addTime(10 * time.Second)

	// A single outlier is capped at 2x the running average, so it can
	// only move the average by a bounded amount.
	require.LessOrEqual(t, r.avg(), before+10*time.Millisecond)
}
