//go:build linux

package capture

// X11 capture through github.com/vova616/screenshot. Each Acquire grabs the
// area into an RGBA image owned by the session until Release.

import (
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/vova616/screenshot"
)

var supportedAreas = []Area{AreaFullScreen, AreaCustom}

type screenshotSession struct {
	id     string
	rect   image.Rectangle
	grab   func(image.Rectangle) (*image.RGBA, error)
	frame  *image.RGBA
	held   bool
	closed bool
}

func newScreenshotSession(r image.Rectangle) *screenshotSession {
	return &screenshotSession{id: uuid.NewString(), rect: r, grab: screenshot.CaptureRect}
}

func screenRect() (image.Rectangle, error) {
	r, err := screenshot.ScreenRect()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("%w: screen rect: %v", ErrDeviceCreation, err)
	}
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: empty screen %v", ErrDeviceCreation, r)
	}
	return r, nil
}

func openFullScreen(SessionOptions) (Session, error) {
	r, err := screenRect()
	if err != nil {
		return nil, err
	}
	return newScreenshotSession(r), nil
}

func openRegion(opts SessionOptions) (Session, error) {
	screen, err := screenRect()
	if err != nil {
		return nil, err
	}
	r := opts.Region.Intersect(screen)
	if r.Empty() {
		return nil, fmt.Errorf("%w: region %v outside screen %v", ErrDeviceCreation, opts.Region, screen)
	}
	return newScreenshotSession(r), nil
}

func openWindow(SessionOptions) (Session, error) {
	return nil, fmt.Errorf("%w: window capture", ErrNotSupported)
}

func (s *screenshotSession) ID() string { return s.id }

func (s *screenshotSession) Acquire(time.Duration) (RawFrame, bool, error) {
	if s.closed {
		return RawFrame{}, false, fmt.Errorf("%w: session closed", ErrDuplicationLost)
	}
	if s.held {
		return RawFrame{}, false, ErrFrameHeld
	}
	img, err := s.grab(s.rect)
	if err != nil {
		return RawFrame{}, false, fmt.Errorf("screenshot: %w: %v", ErrFrameAcquire, err)
	}
	s.frame, s.held = img, true
	b := img.Bounds()
	return RawFrame{
		Data:       img.Pix,
		Pitch:      img.Stride,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Format:     FormatRGBA,
		CapturedAt: time.Now(),
	}, true, nil
}

func (s *screenshotSession) Release() error {
	s.frame, s.held = nil, false
	return nil
}

func (s *screenshotSession) Close() error {
	s.frame, s.held, s.closed = nil, false, true
	return nil
}
