package presenter

import (
	"image"
	"log/slog"

	"github.com/soocke/stream-console/domain/capture"
	"github.com/soocke/stream-console/ui/images"
)

// AwaitingSignal is shown while no frame has been published.
const AwaitingSignal = "Awaiting signal"

// FrameSource yields the newest published frame.
type FrameSource interface {
	LatestFrame() (capture.Frame, bool)
}

// PreviewView renders either a frame or a placeholder message.
type PreviewView interface {
	ShowFrame(img image.Image)
	ShowPlaceholder(text string)
}

// PreviewPresenter polls the frame source and pushes new frames to the view.
// Frames already shown are skipped by (session, sequence).
type PreviewPresenter struct {
	source FrameSource
	view   PreviewView
	logger *slog.Logger

	shown       bool
	session     string
	seq         uint64
	placeholder bool
}

func NewPreviewPresenter(source FrameSource, view PreviewView, logger *slog.Logger) *PreviewPresenter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PreviewPresenter{source: source, view: view, logger: logger}
}

// Refresh shows the latest frame if it changed since the previous call.
func (p *PreviewPresenter) Refresh() {
	if p == nil || p.source == nil || p.view == nil {
		return
	}
	f, ok := p.source.LatestFrame()
	if !ok {
		if !p.placeholder {
			p.view.ShowPlaceholder(AwaitingSignal)
			p.placeholder = true
		}
		p.shown = false
		return
	}
	if p.shown && f.SessionID == p.session && f.Sequence == p.seq {
		return
	}
	img, err := images.FrameImage(f)
	if err != nil {
		p.logger.Warn("preview.frame", slog.Uint64("sequence", f.Sequence), slog.Any("error", err))
		return
	}
	p.view.ShowFrame(img)
	p.shown, p.placeholder = true, false
	p.session, p.seq = f.SessionID, f.Sequence
}

// Reset forgets the last shown frame so the next Refresh redraws.
func (p *PreviewPresenter) Reset() {
	if p == nil {
		return
	}
	p.shown, p.placeholder = false, false
}
