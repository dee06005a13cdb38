package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/soocke/stream-console/config"
)

// transientBackoff is the pause after a transient acquire failure.
const transientBackoff = 100 * time.Microsecond

// CaptureService runs the frame loop on a dedicated OS thread and exposes the
// latest converted frame alongside instrumentation data. Use
// NewCaptureService to construct an instance.
type CaptureService interface {
	// Start opens the capture session and launches the frame loop. It is a
	// no-op while running and returns initialization errors synchronously.
	Start() error
	// Stop ends the loop and waits for it to exit. Safe to call repeatedly
	// and before Start.
	Stop()
	// LatestFrame returns the newest published frame, or false while no
	// frame has been produced yet.
	LatestFrame() (Frame, bool)
	Running() bool
	State() State
	// Err reports the error that moved the service to StateFailed.
	Err() error
	Stats() CaptureStats
	// SetFatalHandler registers fn to run on the loop goroutine when the
	// service fails after start.
	SetFatalHandler(fn func(error))
}

type runInfo struct {
	sessionID string
	kernel    string
}

type captureService struct {
	cfg    *config.Config
	active config.Config // snapshot taken by Start; read by the loop
	open   Opener
	logger *slog.Logger
	clock  clock

	mu     sync.Mutex // serialises Start and Stop
	cancel context.CancelFunc
	done   chan struct{}

	running atomic.Bool
	state   atomic.Int32
	errMu   sync.Mutex
	err     error
	onFatal atomic.Pointer[func(error)]

	buffer *FrameBuffer
	info   atomic.Pointer[runInfo]

	captures     atomic.Uint64
	timeouts     atomic.Uint64
	transient    atomic.Uint64
	dropped      atomic.Uint64
	reinits      atomic.Uint64
	convertNanos atomic.Uint64
	sequence     atomic.Uint64
	fps          fpsMeter
	intervals    intervalWindow
}

func newCaptureService(logger *slog.Logger, cfg *config.Config, open Opener) *captureService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if open == nil {
		open = Open
	}
	return &captureService{cfg: cfg, active: snapshot(cfg), open: open, logger: logger, clock: realClock{}, buffer: NewFrameBuffer()}
}

// snapshot returns a validated copy of cfg; cfg itself is left untouched.
func snapshot(cfg *config.Config) config.Config {
	c := *cfg
	_ = c.Validate()
	return c
}

// NewCaptureService constructs a capture service reading its settings from
// cfg at every Start. A nil open uses the platform backends.
func NewCaptureService(logger *slog.Logger, cfg *config.Config, open Opener) CaptureService {
	return newCaptureService(logger, cfg, open)
}

func (s *captureService) LatestFrame() (Frame, bool) { return s.buffer.Latest() }

func (s *captureService) Running() bool { return s.running.Load() }

func (s *captureService) State() State { return State(s.state.Load()) }

func (s *captureService) setState(st State) { s.state.Store(int32(st)) }

func (s *captureService) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *captureService) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

func (s *captureService) SetFatalHandler(fn func(error)) { s.onFatal.Store(&fn) }

func (s *captureService) Stats() CaptureStats {
	captures := s.captures.Load()
	total := s.convertNanos.Load()
	var avg time.Duration
	avgMicros := 0.0
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
		avgMicros = float64(avg) / float64(time.Microsecond)
	}
	mean, std := s.intervals.meanStdDev()
	st := CaptureStats{
		State:            s.State(),
		Captures:         captures,
		Timeouts:         s.timeouts.Load(),
		Transient:        s.transient.Load(),
		Dropped:          s.dropped.Load(),
		Reinits:          s.reinits.Load(),
		AvgConvert:       avg,
		AvgConvertMicros: avgMicros,
		FPS:              s.fps.value(),
		IntervalMean:     mean,
		IntervalStdDev:   std,
	}
	if info := s.info.Load(); info != nil {
		st.SessionID, st.Kernel = info.sessionID, info.kernel
	}
	if f, ok := s.buffer.Latest(); ok {
		st.LastCapture = f.CapturedAt
		st.LatestFrameAge = s.clock.Since(f.CapturedAt)
		st.Sequence = f.Sequence
		st.Width, st.Height, st.Format = f.Width, f.Height, f.Format
		st.FrameBytes = len(f.Data)
	}
	return st
}

// sessionOptions translates the config into backend and converter settings.
func (s *captureService) sessionOptions() (SessionOptions, ConverterOptions, error) {
	c := s.active
	format, err := ParsePixelFormat(c.PixelFormat)
	if err != nil {
		return SessionOptions{}, ConverterOptions{}, err
	}
	opts := SessionOptions{
		Area:         Area(c.CaptureArea),
		DisplayIndex: c.DisplayIndex,
		WindowTitle:  c.WindowTitle,
		Logger:       s.logger,
	}
	if opts.Area == AreaCustom {
		opts.Region = image.Rect(c.SelectionX, c.SelectionY, c.SelectionX+c.SelectionW, c.SelectionY+c.SelectionH)
	}
	conv := ConverterOptions{
		Width:       c.OutputWidth,
		Height:      c.OutputHeight,
		Format:      format,
		OpaqueAlpha: c.OpaqueAlpha,
		SIMD:        c.SIMD,
	}
	return opts, conv, nil
}

func (s *captureService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return nil
	}
	s.join()

	s.active = snapshot(s.cfg)
	opts, convOpts, err := s.sessionOptions()
	if err != nil {
		return s.failStart(err)
	}
	conv, err := NewConverter(convOpts)
	if err != nil {
		return s.failStart(err)
	}

	s.setErr(nil)
	s.buffer.Reset()
	s.fps.reset()
	s.intervals.reset()
	s.sequence.Store(0)
	s.setState(StateInitializing)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan error, 1)
	s.cancel, s.done = cancel, make(chan struct{})
	s.running.Store(true)
	go s.run(ctx, opts, conv, ready, s.done)

	if err := <-ready; err != nil {
		s.running.Store(false)
		s.join()
		return s.failStart(err)
	}
	return nil
}

func (s *captureService) failStart(err error) error {
	s.setErr(err)
	s.setState(StateFailed)
	s.logger.Error("capture.start failed", "error", err)
	return err
}

// join cancels and waits for a previous loop; callers hold s.mu.
func (s *captureService) join() {
	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}

func (s *captureService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return
	}
	s.running.Store(false)
	s.join()
	s.setState(StateStopped)
	s.logger.Info("capture.stop", "captures", s.captures.Load())
}

func (s *captureService) openSession(opts SessionOptions) (Session, error) {
	sess, err := s.open(opts)
	if err != nil {
		if !errors.Is(err, ErrDeviceCreation) && !errors.Is(err, ErrNotSupported) {
			err = fmt.Errorf("%w: %v", ErrDeviceCreation, err)
		}
		return nil, err
	}
	return sess, nil
}

// run owns the session for its whole life; it reports the outcome of the
// initial open on ready.
func (s *captureService) run(ctx context.Context, opts SessionOptions, conv *Converter, ready chan<- error, done chan<- struct{}) {
	defer close(done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	sess, err := s.openSession(opts)
	if err != nil {
		ready <- err
		return
	}
	s.info.Store(&runInfo{sessionID: sess.ID(), kernel: conv.Kernel()})
	s.setState(StateRunning)
	s.logger.Info("capture.start",
		"area", opts.Area,
		"session_id", sess.ID(),
		"kernel", conv.Kernel(),
		"format", conv.Format(),
		"target_fps", s.active.TargetFPS,
	)
	ready <- nil

	if sess = s.loop(ctx, sess, opts, conv); sess != nil {
		if err := sess.Close(); err != nil {
			s.logger.Warn("capture.close", "session_id", sess.ID(), "error", err)
		}
	}
}

func (s *captureService) acquireTimeout(interval time.Duration) time.Duration {
	t := time.Duration(s.active.AcquireTimeoutMs) * time.Millisecond
	if t <= 0 {
		t = 16 * time.Millisecond
	}
	if interval > 0 && interval < t {
		t = interval
	}
	if t < time.Millisecond {
		t = time.Millisecond
	}
	return t
}

func (s *captureService) recoveryPolicy() RecoveryPolicy {
	p := DefaultRecoveryPolicy()
	if s.active.ReinitAttempts > 0 {
		p.MaxAttempts = s.active.ReinitAttempts
	}
	if s.active.ReinitDelayMs > 0 {
		p.Delay = time.Duration(s.active.ReinitDelayMs) * time.Millisecond
	}
	if s.active.ReinitMaxDelayMs > 0 {
		p.MaxDelay = time.Duration(s.active.ReinitMaxDelayMs) * time.Millisecond
	}
	return p
}

// loop is the frame pump. It returns the session still open at exit, or nil
// when the session was already closed.
func (s *captureService) loop(ctx context.Context, sess Session, opts SessionOptions, conv *Converter) Session {
	pace := newPacer(s.active.TargetFPS, PacingMode(s.active.Pacing), s.clock)
	timeout := s.acquireTimeout(pace.Interval())
	pace.slice = timeout
	maxTransient := s.active.MaxTransientFailures
	if maxTransient <= 0 {
		maxTransient = 30
	}
	statsInterval := time.Duration(s.active.StatsIntervalSeconds) * time.Second
	if statsInterval <= 0 {
		statsInterval = 5 * time.Second
	}
	logTicker := time.NewTicker(statsInterval)
	defer logTicker.Stop()

	var scratch []byte
	consecutive := 0
	for s.running.Load() {
		if !pace.wait(ctx) {
			break
		}
		raw, ok, err := sess.Acquire(timeout)
		if err == nil && !ok {
			s.timeouts.Add(1)
			s.maybeLogStats(logTicker)
			continue
		}
		if err == nil {
			consecutive = 0
			scratch, err = s.deliver(sess, conv, raw, scratch)
		}

		switch Classify(err) {
		case KindNone:
		case KindDrop:
			s.dropped.Add(1)
			s.logger.Debug("capture.drop", "error", err)
		case KindTransient:
			s.transient.Add(1)
			consecutive++
			if consecutive < maxTransient {
				if consecutive == 1 {
					s.logger.Warn("capture.acquire", "session_id", sess.ID(), "error", err)
				}
				s.clock.Sleep(transientBackoff)
				break
			}
			err = fmt.Errorf("%w: %d consecutive failures: %v", ErrDuplicationLost, consecutive, err)
			fallthrough
		case KindReinit:
			next, rerr := s.recover(ctx, sess, opts, err)
			if rerr != nil {
				if ctx.Err() == nil {
					s.fail(rerr)
				}
				return nil
			}
			sess = next
			consecutive = 0
			pace.reset()
		case KindFatal:
			s.fail(err)
			return sess
		}
		s.maybeLogStats(logTicker)
	}
	return sess
}

// deliver converts raw, releases it and publishes the result. It returns the
// scratch buffer to use for the next frame.
func (s *captureService) deliver(sess Session, conv *Converter, raw RawFrame, scratch []byte) ([]byte, error) {
	start := s.clock.Now()
	out, convErr := conv.Convert(scratch, raw)
	relErr := sess.Release()
	if relErr != nil {
		relErr = fmt.Errorf("release: %w", relErr)
	}
	if convErr != nil {
		return out, errors.Join(convErr, relErr)
	}
	s.convertNanos.Add(uint64(s.clock.Since(start).Nanoseconds()))

	w, h := conv.OutputSize(raw.Width, raw.Height)
	seq := s.sequence.Load() + 1
	capturedAt := raw.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = start
	}
	spare, err := s.buffer.Publish(out, FrameMeta{
		Width:      w,
		Height:     h,
		Format:     conv.Format(),
		Sequence:   seq,
		CapturedAt: capturedAt,
		SessionID:  sess.ID(),
	})
	if err != nil {
		return out, errors.Join(err, relErr)
	}
	s.sequence.Store(seq)
	s.captures.Add(1)
	now := s.clock.Now()
	s.fps.tick(now)
	s.intervals.record(now)
	return spare, relErr
}

func (s *captureService) recover(ctx context.Context, sess Session, opts SessionOptions, cause error) (Session, error) {
	s.setState(StateRecovering)
	s.reinits.Add(1)
	s.logger.Warn("capture.recover", "session_id", sess.ID(), "error", cause)
	if err := sess.Close(); err != nil {
		s.logger.Debug("capture.close", "session_id", sess.ID(), "error", err)
	}
	next, err := reopen(ctx, func() (Session, error) { return s.openSession(opts) }, s.recoveryPolicy(), s.logger)
	if err != nil {
		return nil, err
	}
	prev := s.info.Load()
	kernel := ""
	if prev != nil {
		kernel = prev.kernel
	}
	s.info.Store(&runInfo{sessionID: next.ID(), kernel: kernel})
	s.setState(StateRunning)
	return next, nil
}

func (s *captureService) fail(err error) {
	s.setErr(err)
	s.setState(StateFailed)
	s.running.Store(false)
	s.logger.Error("capture.failed", "error", err)
	if fn := s.onFatal.Load(); fn != nil && *fn != nil {
		(*fn)(err)
	}
}

func (s *captureService) maybeLogStats(t *time.Ticker) {
	select {
	case <-t.C:
		s.logStats()
	default:
	}
}

func (s *captureService) logStats() {
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"state", stats.State.String(),
		"captures", humanize.Comma(int64(stats.Captures)),
		"fps", fmt.Sprintf("%.1f", stats.FPS),
		"interval_mean", stats.IntervalMean,
		"interval_stddev", stats.IntervalStdDev,
		"avg_convert", stats.AvgConvert,
		"timeouts", stats.Timeouts,
		"transient", stats.Transient,
		"dropped", stats.Dropped,
		"reinits", stats.Reinits,
		"frame_size", humanize.Bytes(uint64(stats.FrameBytes)),
		"age", stats.LatestFrameAge,
	)
}
