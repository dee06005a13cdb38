// Package capture pulls frames from the desktop, converts them to a packed
// pixel layout and publishes the latest one to any number of readers.
package capture

import (
	"fmt"
	"image"
	"log/slog"
	"time"
)

// PixelFormat names the byte order of a packed pixel.
type PixelFormat string

const (
	FormatBGRA PixelFormat = "bgra"
	FormatRGBA PixelFormat = "rgba"
	FormatBGR  PixelFormat = "bgr"
	FormatRGB  PixelFormat = "rgb"
)

// BytesPerPixel returns 4 for formats with alpha, 3 for packed RGB/BGR and 0
// for unknown values.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatBGRA, FormatRGBA:
		return 4
	case FormatBGR, FormatRGB:
		return 3
	}
	return 0
}

// Valid reports whether f is one of the known formats.
func (f PixelFormat) Valid() bool { return f.BytesPerPixel() != 0 }

// bgrOrder reports whether the colour channels start with blue.
func (f PixelFormat) bgrOrder() bool { return f == FormatBGRA || f == FormatBGR }

// ParsePixelFormat maps a config string to a PixelFormat.
func ParsePixelFormat(s string) (PixelFormat, error) {
	f := PixelFormat(s)
	if !f.Valid() {
		return "", fmt.Errorf("capture: unknown pixel format %q", s)
	}
	return f, nil
}

// Area selects which part of the desktop a Session duplicates.
type Area string

const (
	AreaFullScreen Area = "full_screen"
	AreaWindow     Area = "window"
	AreaCustom     Area = "custom"
)

// RawFrame is a view of a captured image in CPU memory. Data stays valid only
// until the owning Session's Release is called.
type RawFrame struct {
	Data       []byte
	Pitch      int // bytes per source row, >= Width*4
	Width      int
	Height     int
	Format     PixelFormat
	CapturedAt time.Time
}

// Frame is a tightly packed, immutable image handed to consumers.
// len(Data) == Width*Height*Format.BytesPerPixel().
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	Format     PixelFormat
	Sequence   uint64
	CapturedAt time.Time
	SessionID  string
}

// Stride returns the number of bytes per row.
func (f Frame) Stride() int { return f.Width * f.Format.BytesPerPixel() }

// Session is one live duplication of a capture area. A Session is used by a
// single goroutine; Release must follow every successful Acquire before the
// next Acquire.
type Session interface {
	// ID identifies the instance; a recreated session gets a new ID.
	ID() string
	// Acquire waits up to timeout for a new frame. ok is false on timeout.
	Acquire(timeout time.Duration) (raw RawFrame, ok bool, err error)
	// Release hands the frame acquired last back to the OS.
	Release() error
	// Close releases every handle owned by the session. It is idempotent.
	Close() error
}

// SessionOptions describe the area a Session duplicates.
type SessionOptions struct {
	Area         Area
	DisplayIndex int
	WindowTitle  string
	Region       image.Rectangle
	Logger       *slog.Logger
}

// Opener creates a Session. Open is the platform implementation.
type Opener func(SessionOptions) (Session, error)
