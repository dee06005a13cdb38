package capture

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// step is one scripted Acquire outcome.
type step struct {
	raw     RawFrame
	timeout bool
	err     error
}

func frameStep(raw RawFrame) step { return step{raw: raw} }
func timeoutStep() step           { return step{timeout: true} }
func errStep(err error) step      { return step{err: err} }

// fakeSession replays a script of Acquire outcomes, then repeats tail.
type fakeSession struct {
	id string

	mu         sync.Mutex
	script     []step
	pos        int
	tail       step
	tailDelay  time.Duration
	acquires   int
	frames     int
	releases   int
	held       bool
	violations int
	closed     bool
}

func newFakeSession(steps ...step) *fakeSession {
	return &fakeSession{
		id:        uuid.NewString(),
		script:    steps,
		tail:      timeoutStep(),
		tailDelay: 200 * time.Microsecond,
	}
}

func (s *fakeSession) withTail(st step) *fakeSession {
	s.tail = st
	return s
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Acquire(time.Duration) (RawFrame, bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return RawFrame{}, false, errors.New("fake: acquire after close")
	}
	if s.held {
		s.violations++
		s.mu.Unlock()
		return RawFrame{}, false, ErrFrameHeld
	}
	st := s.tail
	scripted := s.pos < len(s.script)
	if scripted {
		st = s.script[s.pos]
		s.pos++
	}
	s.acquires++
	if st.err == nil && !st.timeout {
		s.held = true
		s.frames++
	}
	s.mu.Unlock()

	if !scripted && s.tailDelay > 0 {
		time.Sleep(s.tailDelay)
	}
	switch {
	case st.err != nil:
		return RawFrame{}, false, st.err
	case st.timeout:
		return RawFrame{}, false, nil
	}
	return st.raw, true, nil
}

func (s *fakeSession) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.held {
		s.violations++
		return nil
	}
	s.held = false
	s.releases++
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeSessionCounts struct {
	acquires, frames, releases, violations int
	closed                                 bool
	scriptDone                             bool
}

func (s *fakeSession) counts() fakeSessionCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fakeSessionCounts{
		acquires:   s.acquires,
		frames:     s.frames,
		releases:   s.releases,
		violations: s.violations,
		closed:     s.closed,
		scriptDone: s.pos >= len(s.script),
	}
}

// fakeOpener hands out sessions in order; a nil entry with an error in errs
// at the same index fails that open.
type fakeOpener struct {
	mu       sync.Mutex
	sessions []*fakeSession
	errs     []error
	calls    int
	opts     []SessionOptions
}

func (o *fakeOpener) open(opts SessionOptions) (Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.calls
	o.calls++
	o.opts = append(o.opts, opts)
	if i < len(o.errs) && o.errs[i] != nil {
		return nil, o.errs[i]
	}
	if i < len(o.sessions) && o.sessions[i] != nil {
		return o.sessions[i], nil
	}
	return nil, errors.New("fake: no session scripted")
}

func (o *fakeOpener) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}
