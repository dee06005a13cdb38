package presenter

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/soocke/stream-console/domain/capture"
)

// StatsSource reports capture state and instrumentation.
type StatsSource interface {
	Stats() capture.CaptureStats
}

// StatusView displays the service state and a one-line stats summary.
type StatusView interface {
	SetState(state capture.State)
	SetStatus(text string)
}

// StatusPresenter formats CaptureStats for the status bar. It only pushes
// to the view when the text changes.
type StatusPresenter struct {
	source StatsSource
	view   StatusView

	state   capture.State
	started bool
	text    string
}

func NewStatusPresenter(source StatsSource, view StatusView) *StatusPresenter {
	return &StatusPresenter{source: source, view: view}
}

func (p *StatusPresenter) Tick() {
	if p == nil || p.source == nil || p.view == nil {
		return
	}
	st := p.source.Stats()
	if !p.started || st.State != p.state {
		p.view.SetState(st.State)
		p.state, p.started = st.State, true
	}
	if text := FormatStats(st); text != p.text {
		p.view.SetStatus(text)
		p.text = text
	}
}

// FormatStats renders a compact single-line summary.
func FormatStats(st capture.CaptureStats) string {
	if st.Width == 0 {
		return fmt.Sprintf("%s | %s", st.State, AwaitingSignal)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %.1f fps | %dx%d %s (%s) | %s",
		st.State, st.FPS, st.Width, st.Height, st.Format, humanize.IBytes(uint64(st.FrameBytes)), st.Kernel)
	fmt.Fprintf(&b, " | convert %.0fµs", st.AvgConvertMicros)
	if st.Dropped > 0 || st.Reinits > 0 {
		fmt.Fprintf(&b, " | dropped %s reinit %d", humanize.Comma(int64(st.Dropped)), st.Reinits)
	}
	return b.String()
}
