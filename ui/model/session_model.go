package model

import (
	"time"
)

// SessionModel tracks how long the stream has been live, the accumulated live
// time across sessions, and how many frames the current session published.
// It is decoupled from the UI; presenters should poll Values() and update views.
// The zero value is ready to use.
type SessionModel struct {
	active      bool
	start       time.Time
	last        time.Duration
	accumulated time.Duration

	firstSeq uint64
	lastSeq  uint64
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick updates the model from the current streaming state, the sequence of
// the latest published frame and the timestamp. A sequence that moves
// backwards means the capture service restarted and starts a new count.
func (m *SessionModel) OnTick(live bool, seq uint64, now time.Time) {
	if m == nil {
		return
	}
	if !live {
		if m.active { // on -> off
			m.last = now.Sub(m.start)
			m.accumulated += m.last
			m.active = false
		}
		return
	}
	if !m.active { // off -> on
		m.active = true
		m.start = now
		m.last = 0
		m.firstSeq, m.lastSeq = seq, seq
	}
	if seq < m.lastSeq {
		m.firstSeq = 0
	}
	m.lastSeq = seq
	m.last = now.Sub(m.start)
}

// Values returns the current session duration and the total accumulated
// duration. The total includes the ongoing session when active.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	session = m.last
	total = m.accumulated
	if m.active {
		total += session
	}
	return
}

// Frames returns the number of frames published during the current or last
// session.
func (m *SessionModel) Frames() uint64 {
	if m == nil || m.lastSeq < m.firstSeq {
		return 0
	}
	return m.lastSeq - m.firstSeq
}
