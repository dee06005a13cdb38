package capture

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

// State is the lifecycle state of a CaptureService.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateRunning
	StateRecovering
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateRecovering:
		return "recovering"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// CaptureStats summarises frame loop behaviour for instrumentation.
type CaptureStats struct {
	State            State
	Captures         uint64 // frames published
	Timeouts         uint64
	Transient        uint64
	Dropped          uint64
	Reinits          uint64
	AvgConvert       time.Duration
	AvgConvertMicros float64
	FPS              float64 // frames published during the last full second
	IntervalMean     time.Duration
	IntervalStdDev   time.Duration
	LastCapture      time.Time
	LatestFrameAge   time.Duration
	Sequence         uint64
	Width            int
	Height           int
	Format           PixelFormat
	FrameBytes       int
	Kernel           string
	SessionID        string
}

// fpsMeter counts publishes per wall-clock second. Only the producer calls
// tick; readers use value.
type fpsMeter struct {
	windowStart time.Time
	count       int
	bits        atomic.Uint64
}

func (m *fpsMeter) tick(now time.Time) {
	if m.windowStart.IsZero() {
		m.windowStart = now
	}
	m.count++
	if el := now.Sub(m.windowStart); el >= time.Second {
		m.bits.Store(math.Float64bits(float64(m.count) / el.Seconds()))
		m.count = 0
		m.windowStart = now
	}
}

func (m *fpsMeter) value() float64 { return math.Float64frombits(m.bits.Load()) }

func (m *fpsMeter) reset() {
	m.windowStart = time.Time{}
	m.count = 0
	m.bits.Store(0)
}

const intervalSamples = 120

// intervalWindow keeps the most recent gaps between published frames.
type intervalWindow struct {
	mu      sync.Mutex
	last    time.Time
	samples []float64 // seconds
	next    int
}

func (w *intervalWindow) record(at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.last.IsZero() {
		d := at.Sub(w.last).Seconds()
		if len(w.samples) < intervalSamples {
			w.samples = append(w.samples, d)
		} else {
			w.samples[w.next] = d
			w.next = (w.next + 1) % intervalSamples
		}
	}
	w.last = at
}

// meanStdDev returns the mean and standard deviation of the recorded gaps.
func (w *intervalWindow) meanStdDev() (time.Duration, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch len(w.samples) {
	case 0:
		return 0, 0
	case 1:
		return secondsToDuration(w.samples[0]), 0
	}
	mean, std := stat.MeanStdDev(w.samples, nil)
	return secondsToDuration(mean), secondsToDuration(std)
}

func (w *intervalWindow) reset() {
	w.mu.Lock()
	w.last = time.Time{}
	w.samples = w.samples[:0]
	w.next = 0
	w.mu.Unlock()
}

func secondsToDuration(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
