package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFPSMeter(t *testing.T) {
	t.Parallel()

	var m fpsMeter
	start := time.Unix(100, 0)
	for i := 0; i <= 60; i++ {
		m.tick(start.Add(time.Duration(i) * time.Second / 60))
	}
	assert.InDelta(t, 61.0, m.value(), 0.01)

	m.reset()
	assert.Zero(t, m.value())
}

func TestIntervalWindowMeanStdDev(t *testing.T) {
	t.Parallel()

	var w intervalWindow
	mean, std := w.meanStdDev()
	assert.Zero(t, mean)
	assert.Zero(t, std)

	at := time.Unix(100, 0)
	w.record(at)
	at = at.Add(10 * time.Millisecond)
	w.record(at)
	mean, std = w.meanStdDev()
	assert.Equal(t, 10*time.Millisecond, mean)
	assert.Zero(t, std)

	at = at.Add(20 * time.Millisecond)
	w.record(at)
	mean, std = w.meanStdDev()
	assert.InDelta(t, float64(15*time.Millisecond), float64(mean), float64(time.Microsecond))
	// sample standard deviation of {10ms, 20ms}
	assert.InDelta(t, float64(7071067*time.Nanosecond), float64(std), float64(time.Microsecond))
}

func TestIntervalWindowKeepsRecentSamples(t *testing.T) {
	t.Parallel()

	var w intervalWindow
	at := time.Unix(0, 0)
	for i := 0; i < intervalSamples+50; i++ {
		w.record(at)
		at = at.Add(time.Millisecond)
	}
	assert.Len(t, w.samples, intervalSamples)
	mean, std := w.meanStdDev()
	assert.InDelta(t, float64(time.Millisecond), float64(mean), float64(time.Microsecond))
	assert.InDelta(t, 0, float64(std), float64(time.Microsecond))
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "recovering", StateRecovering.String())
	assert.Equal(t, "unknown", State(99).String())
}
