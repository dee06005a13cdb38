package capture

import "errors"

var (
	// ErrDeviceCreation means the graphics device or duplication could not be
	// created. Fatal at start.
	ErrDeviceCreation = errors.New("capture: device creation failed")
	// ErrFrameAcquire is a transient acquisition failure.
	ErrFrameAcquire = errors.New("capture: frame acquire failed")
	// ErrDuplicationLost means the session was invalidated by a mode change,
	// secure desktop, device removal or a vanished window.
	ErrDuplicationLost = errors.New("capture: duplication lost")
	// ErrAccessDenied is returned for protected content; the session instance
	// cannot continue.
	ErrAccessDenied = errors.New("capture: access denied")
	// ErrBufferSizeMismatch means the converted output length does not match
	// the requested dimensions.
	ErrBufferSizeMismatch = errors.New("capture: buffer size mismatch")
	// ErrFrameMap means the mapped source memory is malformed or unreadable.
	ErrFrameMap = errors.New("capture: frame map failed")
	// ErrUnsupportedFormat is returned for source pixel formats the converter
	// cannot read.
	ErrUnsupportedFormat = errors.New("capture: unsupported pixel format")
	// ErrFrameHeld is returned by Acquire when the previous frame was not
	// released.
	ErrFrameHeld = errors.New("capture: previous frame not released")
	// ErrNotSupported means the area cannot be captured on this platform.
	ErrNotSupported = errors.New("capture: not supported on this platform")
	// ErrReinitFailed is the fatal error reported after recovery gave up.
	ErrReinitFailed = errors.New("capture: reinitialization failed")
)

// ErrorKind tells the frame loop how to react to an error.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	// KindTransient: log, back off briefly, retry with the same session.
	KindTransient
	// KindDrop: skip this frame, keep the previous one published.
	KindDrop
	// KindReinit: discard the session and open a new one.
	KindReinit
	// KindFatal: stop the loop and surface the error.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	case KindDrop:
		return "drop"
	case KindReinit:
		return "reinit"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

// Classify maps an error returned by a Session or Converter to an ErrorKind.
// Unrecognised errors are treated as transient.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDeviceCreation), errors.Is(err, ErrNotSupported), errors.Is(err, ErrReinitFailed):
		return KindFatal
	case errors.Is(err, ErrDuplicationLost), errors.Is(err, ErrAccessDenied):
		return KindReinit
	case errors.Is(err, ErrBufferSizeMismatch), errors.Is(err, ErrFrameMap), errors.Is(err, ErrUnsupportedFormat):
		return KindDrop
	}
	return KindTransient
}
