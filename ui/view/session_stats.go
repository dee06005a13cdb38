package view

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows live session time, total live time and frames sent.
type SessionStats interface {
	SetSession(session, total time.Duration, frames uint64)
}

type sessionStats struct {
	sessionLbl *LabelWidget
	totalLbl   *LabelWidget
	framesLbl  *LabelWidget
}

// NewSessionStats creates the labels at (row, startCol) .. (row, startCol+2).
func NewSessionStats(row, startCol int) SessionStats {
	s := &sessionStats{sessionLbl: Label(Width(14)), totalLbl: Label(Width(14)), framesLbl: Label(Width(16))}
	for i, l := range []*LabelWidget{s.sessionLbl, s.totalLbl, s.framesLbl} {
		Grid(l, Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
	}
	s.SetSession(0, 0, 0)
	return s
}

func (s *sessionStats) SetSession(session, total time.Duration, frames uint64) {
	if s == nil || s.sessionLbl == nil {
		return
	}
	s.sessionLbl.Configure(Txt("Live: " + clock(session)))
	s.totalLbl.Configure(Txt("Total: " + clock(total)))
	s.framesLbl.Configure(Txt("Frames: " + humanize.Comma(int64(frames))))
}

func clock(d time.Duration) string {
	seconds := int(d.Seconds())
	h, m, sec := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
