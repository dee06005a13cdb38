package capture

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/stream-console/config"
)

const (
	waitFor = 2 * time.Second
	tick    = time.Millisecond
)

var _ CaptureService = (*captureService)(nil)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.TargetFPS = 0
	cfg.OutputWidth, cfg.OutputHeight = 0, 0
	cfg.PixelFormat = "rgb"
	cfg.ReinitAttempts = 3
	cfg.ReinitDelayMs = 1
	cfg.ReinitMaxDelayMs = 2
	cfg.MaxTransientFailures = 5
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config, o *fakeOpener) *captureService {
	t.Helper()
	s := newCaptureService(nil, cfg, o.open)
	t.Cleanup(s.Stop)
	return s
}

func redFrame() RawFrame { return solidBGRA(8, 4, 40, [4]byte{0, 0, 255, 255}) }

func TestServiceStartPublishesFrames(t *testing.T) {
	sess := newFakeSession(frameStep(redFrame()))
	s := newTestService(t, testConfig(), &fakeOpener{sessions: []*fakeSession{sess}})

	_, ok := s.LatestFrame()
	assert.False(t, ok)
	assert.Equal(t, StateUninitialized, s.State())

	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	assert.Equal(t, StateRunning, s.State())

	require.Eventually(t, func() bool { _, ok := s.LatestFrame(); return ok }, waitFor, tick)
	f, _ := s.LatestFrame()
	assert.Equal(t, 8, f.Width)
	assert.Equal(t, 4, f.Height)
	assert.Equal(t, FormatRGB, f.Format)
	assert.Equal(t, uint64(1), f.Sequence)
	assert.Equal(t, sess.ID(), f.SessionID)
	require.Len(t, f.Data, 8*4*3)
	for i := 0; i < len(f.Data); i += 3 {
		assert.Equal(t, []byte{255, 0, 0}, f.Data[i:i+3])
	}

	s.Stop()
	assert.False(t, s.Running())
	assert.Equal(t, StateStopped, s.State())

	c := sess.counts()
	assert.True(t, c.closed)
	assert.Equal(t, c.frames, c.releases)
	assert.Zero(t, c.violations)

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Captures)
	assert.Equal(t, 8*4*3, stats.FrameBytes)
	assert.NotEmpty(t, stats.Kernel)
	assert.Equal(t, sess.ID(), stats.SessionID)
}

func TestServiceDoubleStartRunsOneProducer(t *testing.T) {
	o := &fakeOpener{sessions: []*fakeSession{newFakeSession(), newFakeSession()}}
	s := newTestService(t, testConfig(), o)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Equal(t, 1, o.callCount())
	assert.True(t, s.Running())

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
	assert.Equal(t, 1, o.callCount())
}

func TestServiceStopBeforeStart(t *testing.T) {
	s := newTestService(t, testConfig(), &fakeOpener{})
	s.Stop()
	assert.False(t, s.Running())
	assert.Equal(t, StateUninitialized, s.State())
}

func TestServiceStartSurfacesDeviceCreationError(t *testing.T) {
	o := &fakeOpener{errs: []error{errors.New("no adapter")}}
	s := newTestService(t, testConfig(), o)

	err := s.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceCreation)
	assert.False(t, s.Running())
	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.Err(), ErrDeviceCreation)
	s.Stop()
}

func TestServiceStartValidatesConfigCopy(t *testing.T) {
	cfg := testConfig()
	cfg.OutputWidth = 10 // height left at zero
	o := &fakeOpener{sessions: []*fakeSession{newFakeSession()}}
	s := newCaptureService(nil, cfg, o.open)

	// Validate on a copy restores a consistent size, so start succeeds
	require.NoError(t, s.Start())
	s.Stop()
	assert.Equal(t, 10, cfg.OutputWidth)
}

func TestServiceTimeoutsAreSilent(t *testing.T) {
	steps := make([]step, 1000)
	for i := range steps {
		steps[i] = timeoutStep()
	}
	sess := newFakeSession(steps...)
	s := newTestService(t, testConfig(), &fakeOpener{sessions: []*fakeSession{sess}})

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return sess.counts().scriptDone }, waitFor, tick)
	s.Stop()

	_, ok := s.LatestFrame()
	assert.False(t, ok)
	assert.Zero(t, s.buffer.Writes())
	assert.NoError(t, s.Err())
	assert.GreaterOrEqual(t, s.Stats().Timeouts, uint64(1000))
	assert.Zero(t, s.Stats().Reinits)
}

func TestServiceTimeoutsKeepLastFrame(t *testing.T) {
	steps := []step{frameStep(redFrame())}
	for i := 0; i < 1000; i++ {
		steps = append(steps, timeoutStep())
	}
	sess := newFakeSession(steps...)
	s := newTestService(t, testConfig(), &fakeOpener{sessions: []*fakeSession{sess}})

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { _, ok := s.LatestFrame(); return ok }, waitFor, tick)
	before, _ := s.LatestFrame()
	require.Eventually(t, func() bool { return sess.counts().scriptDone }, waitFor, tick)

	after, ok := s.LatestFrame()
	require.True(t, ok)
	assert.Equal(t, before.Sequence, after.Sequence)
	assert.Equal(t, before.Data, after.Data)
	assert.Equal(t, uint64(1), s.buffer.Writes())
	assert.NoError(t, s.Err())
	assert.Equal(t, StateRunning, s.State())
	s.Stop()
	assert.GreaterOrEqual(t, s.Stats().Timeouts, uint64(1000))
}

func TestServiceStopDoesNotWaitOutFrameInterval(t *testing.T) {
	cfg := testConfig()
	cfg.TargetFPS = 0.5
	cfg.Pacing = string(PacingHybrid)
	sess := newFakeSession().withTail(frameStep(redFrame()))
	s := newTestService(t, cfg, &fakeOpener{sessions: []*fakeSession{sess}})

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { _, ok := s.LatestFrame(); return ok }, waitFor, tick)

	start := time.Now()
	s.Stop()
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.Equal(t, StateStopped, s.State())
	c := sess.counts()
	assert.Equal(t, c.frames, c.releases)
	assert.Zero(t, c.violations)
}

func TestServiceNoWritesAfterStop(t *testing.T) {
	sess := newFakeSession().withTail(frameStep(redFrame()))
	s := newTestService(t, testConfig(), &fakeOpener{sessions: []*fakeSession{sess}})

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return s.buffer.Writes() >= 10 }, waitFor, tick)
	s.Stop()

	writes := s.buffer.Writes()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, writes, s.buffer.Writes())
	c := sess.counts()
	assert.Equal(t, c.frames, c.releases)
	assert.Zero(t, c.violations)
}

func TestServiceRecoversFromDuplicationLost(t *testing.T) {
	first := newFakeSession(frameStep(redFrame()), errStep(ErrDuplicationLost))
	second := newFakeSession().withTail(frameStep(solidBGRA(8, 4, 32, [4]byte{255, 0, 0, 255})))
	o := &fakeOpener{sessions: []*fakeSession{first, second}}
	s := newTestService(t, testConfig(), o)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool {
		f, ok := s.LatestFrame()
		return ok && f.SessionID == second.ID()
	}, waitFor, tick)

	assert.True(t, first.counts().closed)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, uint64(1), s.Stats().Reinits)
	assert.Equal(t, StateRunning, s.State())
	assert.True(t, s.Running())

	f, _ := s.LatestFrame()
	assert.Equal(t, []byte{0, 0, 255}, f.Data[:3])
	assert.Greater(t, f.Sequence, uint64(1))
}

func TestServiceRecoversAfterRepeatedTransientFailures(t *testing.T) {
	first := newFakeSession().withTail(errStep(ErrFrameAcquire))
	second := newFakeSession().withTail(frameStep(redFrame()))
	o := &fakeOpener{sessions: []*fakeSession{first, second}}
	s := newTestService(t, testConfig(), o)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { _, ok := s.LatestFrame(); return ok }, waitFor, tick)

	stats := s.Stats()
	assert.Equal(t, uint64(5), stats.Transient)
	assert.Equal(t, uint64(1), stats.Reinits)
	assert.True(t, first.counts().closed)
}

func TestServiceTimeoutsDoNotResetTransientCount(t *testing.T) {
	var steps []step
	for i := 0; i < 5; i++ {
		steps = append(steps, errStep(ErrFrameAcquire), timeoutStep())
	}
	first := newFakeSession(steps...)
	second := newFakeSession().withTail(frameStep(redFrame()))
	o := &fakeOpener{sessions: []*fakeSession{first, second}}
	s := newTestService(t, testConfig(), o)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { _, ok := s.LatestFrame(); return ok }, waitFor, tick)

	assert.Equal(t, uint64(5), s.Stats().Transient)
	assert.Equal(t, uint64(1), s.Stats().Reinits)
	assert.True(t, first.counts().closed)
}

func TestServiceFailsWhenRecoveryExhausted(t *testing.T) {
	first := newFakeSession(errStep(ErrAccessDenied))
	boom := errors.New("output busy")
	o := &fakeOpener{sessions: []*fakeSession{first}, errs: []error{nil, boom, boom, boom}}
	s := newTestService(t, testConfig(), o)

	var fatal atomic.Pointer[error]
	s.SetFatalHandler(func(err error) { fatal.Store(&err) })

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return fatal.Load() != nil }, waitFor, tick)

	assert.Equal(t, StateFailed, s.State())
	assert.False(t, s.Running())
	assert.ErrorIs(t, s.Err(), ErrReinitFailed)
	assert.ErrorIs(t, *fatal.Load(), ErrReinitFailed)
	assert.Equal(t, 4, o.callCount())
	assert.True(t, first.counts().closed)

	s.Stop()
	assert.Equal(t, StateStopped, s.State())
}

func TestServiceDropsMalformedFrames(t *testing.T) {
	bad := RawFrame{Data: make([]byte, 16), Pitch: 4, Width: 4, Height: 4, Format: FormatBGRA}
	sess := newFakeSession(frameStep(bad), frameStep(redFrame()))
	s := newTestService(t, testConfig(), &fakeOpener{sessions: []*fakeSession{sess}})

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { _, ok := s.LatestFrame(); return ok }, waitFor, tick)
	s.Stop()

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, uint64(1), stats.Captures)
	c := sess.counts()
	assert.Equal(t, 2, c.releases)
	assert.Zero(t, c.violations)
}

func TestServiceRestartAfterStop(t *testing.T) {
	o := &fakeOpener{sessions: []*fakeSession{
		newFakeSession().withTail(frameStep(redFrame())),
		newFakeSession().withTail(frameStep(redFrame())),
	}}
	s := newTestService(t, testConfig(), o)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { _, ok := s.LatestFrame(); return ok }, waitFor, tick)
	s.Stop()

	require.NoError(t, s.Start())
	assert.Equal(t, 2, o.callCount())
	require.Eventually(t, func() bool {
		f, ok := s.LatestFrame()
		return ok && f.SessionID == o.sessions[1].ID()
	}, waitFor, tick)
}

func TestServiceSessionOptionsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.CaptureArea = config.AreaCustom
	cfg.SelectionX, cfg.SelectionY, cfg.SelectionW, cfg.SelectionH = 100, 50, 640, 360
	cfg.OutputWidth, cfg.OutputHeight = 320, 180
	cfg.PixelFormat = "bgra"

	s := newCaptureService(nil, cfg, (&fakeOpener{}).open)
	opts, conv, err := s.sessionOptions()
	require.NoError(t, err)
	assert.Equal(t, AreaCustom, opts.Area)
	assert.Equal(t, image.Rect(100, 50, 740, 410), opts.Region)
	assert.Equal(t, FormatBGRA, conv.Format)
	assert.Equal(t, 320, conv.Width)
	assert.Equal(t, 180, conv.Height)
}

func TestServiceAcquireTimeout(t *testing.T) {
	cfg := testConfig()
	s := newCaptureService(nil, cfg, nil)
	assert.Equal(t, 16*time.Millisecond, s.acquireTimeout(0))
	assert.Equal(t, 10*time.Millisecond, s.acquireTimeout(10*time.Millisecond))
	assert.Equal(t, time.Millisecond, s.acquireTimeout(100*time.Microsecond))
}
