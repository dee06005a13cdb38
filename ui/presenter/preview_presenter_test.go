package presenter

import (
	"image"
	"testing"
	"time"

	"github.com/soocke/stream-console/domain/capture"
	"github.com/soocke/stream-console/ui/model"
)

type mockSource struct {
	frame capture.Frame
	ok    bool
	stats capture.CaptureStats
}

func (s *mockSource) LatestFrame() (capture.Frame, bool) { return s.frame, s.ok }
func (s *mockSource) Stats() capture.CaptureStats        { return s.stats }

var _ FrameSource = (*mockSource)(nil)
var _ StatsSource = (*mockSource)(nil)

type mockPreview struct {
	frames       []image.Image
	placeholders []string
}

func (v *mockPreview) ShowFrame(img image.Image)   { v.frames = append(v.frames, img) }
func (v *mockPreview) ShowPlaceholder(text string) { v.placeholders = append(v.placeholders, text) }

func rgbFrame(seq uint64, session string) capture.Frame {
	return capture.Frame{Data: make([]byte, 2*2*3), Width: 2, Height: 2, Format: capture.FormatRGB, Sequence: seq, SessionID: session}
}

func TestPreviewPresenter_PlaceholderUntilFirstFrame(t *testing.T) {
	src := &mockSource{}
	view := &mockPreview{}
	p := NewPreviewPresenter(src, view, nil)

	p.Refresh()
	p.Refresh()
	if len(view.placeholders) != 1 || view.placeholders[0] != AwaitingSignal {
		t.Fatalf("expected a single placeholder, got %v", view.placeholders)
	}

	src.frame, src.ok = rgbFrame(1, "a"), true
	p.Refresh()
	if len(view.frames) != 1 {
		t.Fatalf("expected first frame shown, got %d", len(view.frames))
	}
	if b := view.frames[0].Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("unexpected frame bounds %v", b)
	}
}

func TestPreviewPresenter_SkipsUnchangedFrames(t *testing.T) {
	src := &mockSource{frame: rgbFrame(7, "a"), ok: true}
	view := &mockPreview{}
	p := NewPreviewPresenter(src, view, nil)

	p.Refresh()
	p.Refresh()
	if len(view.frames) != 1 {
		t.Fatalf("unchanged frame redrawn: %d", len(view.frames))
	}
	src.frame = rgbFrame(8, "a")
	p.Refresh()
	// same sequence from a new session is a different frame
	src.frame = rgbFrame(8, "b")
	p.Refresh()
	if len(view.frames) != 3 {
		t.Fatalf("expected 3 frames shown, got %d", len(view.frames))
	}

	p.Reset()
	p.Refresh()
	if len(view.frames) != 4 {
		t.Fatalf("reset should force a redraw, got %d", len(view.frames))
	}
}

func TestPreviewPresenter_IgnoresMalformedFrame(t *testing.T) {
	bad := rgbFrame(1, "a")
	bad.Data = bad.Data[:5]
	src := &mockSource{frame: bad, ok: true}
	view := &mockPreview{}
	NewPreviewPresenter(src, view, nil).Refresh()
	if len(view.frames) != 0 {
		t.Fatalf("malformed frame should not be shown")
	}
}

type mockStatus struct {
	states []capture.State
	texts  []string
}

func (v *mockStatus) SetState(s capture.State) { v.states = append(v.states, s) }
func (v *mockStatus) SetStatus(text string)    { v.texts = append(v.texts, text) }

func TestStatusPresenter_PushesOnChange(t *testing.T) {
	src := &mockSource{stats: capture.CaptureStats{State: capture.StateRunning}}
	view := &mockStatus{}
	p := NewStatusPresenter(src, view)

	p.Tick()
	p.Tick()
	if len(view.states) != 1 || len(view.texts) != 1 {
		t.Fatalf("expected single push, got states=%v texts=%v", view.states, view.texts)
	}
	if view.texts[0] != "running | "+AwaitingSignal {
		t.Fatalf("unexpected status %q", view.texts[0])
	}

	src.stats = capture.CaptureStats{
		State: capture.StateRecovering, FPS: 59.94, Width: 1280, Height: 720,
		Format: capture.FormatRGB, FrameBytes: 1280 * 720 * 3, Kernel: "wide16",
		AvgConvertMicros: 812, Dropped: 1200, Reinits: 2,
	}
	p.Tick()
	if len(view.states) != 2 || view.states[1] != capture.StateRecovering {
		t.Fatalf("state change not pushed: %v", view.states)
	}
	want := "recovering | 59.9 fps | 1280x720 rgb (2.6 MiB) | wide16 | convert 812µs | dropped 1,200 reinit 2"
	if got := view.texts[len(view.texts)-1]; got != want {
		t.Fatalf("status = %q\nwant %q", got, want)
	}
}

type mockSessionView struct {
	session, total time.Duration
	frames         uint64
	calls          int
}

func (v *mockSessionView) SetSession(session, total time.Duration, frames uint64) {
	v.session, v.total, v.frames = session, total, frames
	v.calls++
}

func TestLoop_TicksPresenters(t *testing.T) {
	capModel := &model.CaptureModel{}
	capModel.SetEnabled(true)
	src := &mockSource{frame: rgbFrame(3, "a"), ok: true, stats: capture.CaptureStats{State: capture.StateRunning, Sequence: 3}}
	preview := &mockPreview{}
	status := &mockStatus{}
	sessView := &mockSessionView{}
	scheduled := 0

	l := NewLoop(
		NewSessionPresenter(model.NewSessionModel(), capModel, src, sessView),
		NewStatusPresenter(src, status),
		NewPreviewPresenter(src, preview, nil),
		func() { scheduled++ },
	)
	base := time.Unix(0, 0)
	l.now = func() time.Time { return base }
	l.Tick()
	src.stats.Sequence = 63
	base = base.Add(time.Second)
	l.Tick()

	if scheduled != 2 || len(preview.frames) != 1 || len(status.states) != 1 {
		t.Fatalf("unexpected loop effects: scheduled=%d frames=%d states=%d", scheduled, len(preview.frames), len(status.states))
	}
	if sessView.calls != 2 || sessView.session != time.Second || sessView.frames != 60 {
		t.Fatalf("session view = %+v", sessView)
	}

	var nilLoop *Loop
	nilLoop.Tick()
}
