package presenter

import (
	"time"

	"github.com/soocke/stream-console/ui/model"
)

// CaptureEnabledModel reports whether streaming is enabled.
type CaptureEnabledModel interface{ Enabled() bool }

// SessionView displays formatted session and total durations plus the
// session frame count.
type SessionView interface {
	SetSession(session, total time.Duration, frames uint64)
}

// SessionPresenter formats live durations from the model to the view.
type SessionPresenter struct {
	sess   *model.SessionModel
	cap    CaptureEnabledModel
	source StatsSource
	view   SessionView
}

// NewSessionPresenter returns a new SessionPresenter.
func NewSessionPresenter(sess *model.SessionModel, cap CaptureEnabledModel, source StatsSource, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, cap: cap, source: source, view: view}
}

// Tick advances the session model and pushes values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.cap == nil || p.view == nil {
		return
	}
	var seq uint64
	if p.source != nil {
		seq = p.source.Stats().Sequence
	}
	p.sess.OnTick(p.cap.Enabled(), seq, now)
	s, t := p.sess.Values()
	p.view.SetSession(s, t, p.sess.Frames())
}
