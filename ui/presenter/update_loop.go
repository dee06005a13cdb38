package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates.
//
// It calls Tick/Refresh on the sub-presenters and invokes a scheduler
// callback. The zero value is usable (methods are nil-safe).
type Loop struct {
	Session  *SessionPresenter
	Status   *StatusPresenter
	Preview  *PreviewPresenter
	Schedule func()
	now      func() time.Time
}

func NewLoop(sess *SessionPresenter, status *StatusPresenter, preview *PreviewPresenter, schedule func()) *Loop {
	return &Loop{Session: sess, Status: status, Preview: preview, Schedule: schedule, now: time.Now}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	if l.Status != nil {
		l.Status.Tick()
	}
	if l.Session != nil {
		l.Session.Tick(now())
	}
	if l.Preview != nil {
		l.Preview.Refresh()
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
