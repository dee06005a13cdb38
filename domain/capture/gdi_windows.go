//go:build windows

package capture

// Window and region capture through GDI. The screen area is BitBlt'ed into a
// top-down 32-bit DIB section that is kept across frames and recreated only
// when the area size changes; its bits are handed to the converter directly.

import (
	"fmt"
	"image"
	"log/slog"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"golang.org/x/sys/windows"
)

// Win32 constants
const (
	smCxScreen   = 0
	smCyScreen   = 1
	srccopy      = 0x00CC0020
	captureblt   = 0x40000000
	dibRGBColors = 0
	biRgb        = 0
)

// Win32 DLL procs (lazy loaded)
var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	gdi32                  = windows.NewLazySystemDLL("gdi32.dll")
	procGetDC              = user32.NewProc("GetDC")
	procReleaseDC          = user32.NewProc("ReleaseDC")
	procGetSystemMetrics   = user32.NewProc("GetSystemMetrics")
	procFindWindowW        = user32.NewProc("FindWindowW")
	procIsWindow           = user32.NewProc("IsWindow")
	procGetWindowRect      = user32.NewProc("GetWindowRect")
	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC           = gdi32.NewProc("DeleteDC")
	procSelectObject       = gdi32.NewProc("SelectObject")
	procBitBlt             = gdi32.NewProc("BitBlt")
	procCreateDIBSection   = gdi32.NewProc("CreateDIBSection")
	procDeleteObject       = gdi32.NewProc("DeleteObject")
)

// BITMAPINFO structures (Win32 layout).
type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	_      [4]byte // one RGBQUAD placeholder (unused for 32-bit)
}

type winRect struct{ Left, Top, Right, Bottom int32 }

// dibSection is a memory DC with a DIB selected into it.
type dibSection struct {
	memDC uintptr
	bmp   uintptr
	prev  uintptr
	bits  unsafe.Pointer
	size  int
}

type gdiSession struct {
	id       string
	logger   *slog.Logger
	hwnd     uintptr // window capture target, 0 for region capture
	region   image.Rectangle
	screenDC uintptr
	staging  stagingCache[*dibSection]
	held     bool
	closed   bool
}

func newGDISession(logger *slog.Logger) (*gdiSession, error) {
	dc, _, err := procGetDC.Call(0)
	if dc == 0 {
		return nil, fmt.Errorf("gdi: GetDC %w: %v", ErrDeviceCreation, err)
	}
	s := &gdiSession{id: uuid.NewString(), logger: logger, screenDC: dc}
	s.staging.create = s.createDIB
	s.staging.destroy = destroyDIB
	return s, nil
}

func openWindow(opts SessionOptions) (Session, error) {
	title, err := windows.UTF16PtrFromString(opts.WindowTitle)
	if err != nil {
		return nil, fmt.Errorf("gdi: window title %w: %v", ErrDeviceCreation, err)
	}
	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(title)))
	if hwnd == 0 {
		return nil, fmt.Errorf("gdi: %w: no window titled %q", ErrDeviceCreation, opts.WindowTitle)
	}
	s, err := newGDISession(opts.Logger)
	if err != nil {
		return nil, err
	}
	s.hwnd = hwnd
	return s, nil
}

func openRegion(opts SessionOptions) (Session, error) {
	s, err := newGDISession(opts.Logger)
	if err != nil {
		return nil, err
	}
	s.region = opts.Region
	if _, err := s.area(); err != nil {
		s.Close()
		return nil, fmt.Errorf("gdi: %w: %v", ErrDeviceCreation, err)
	}
	return s, nil
}

func screenBounds() image.Rectangle {
	w, _, _ := procGetSystemMetrics.Call(smCxScreen)
	h, _, _ := procGetSystemMetrics.Call(smCyScreen)
	return image.Rect(0, 0, int(int32(w)), int(int32(h)))
}

// area returns the screen rectangle to copy, clipped to the screen.
func (s *gdiSession) area() (image.Rectangle, error) {
	screen := screenBounds()
	if s.hwnd == 0 {
		r := s.region.Intersect(screen)
		if r.Empty() {
			return r, fmt.Errorf("region %v outside screen %v", s.region, screen)
		}
		return r, nil
	}
	if ok, _, _ := procIsWindow.Call(s.hwnd); ok == 0 {
		return image.Rectangle{}, fmt.Errorf("gdi: %w: window closed", ErrDuplicationLost)
	}
	var wr winRect
	if ok, _, err := procGetWindowRect.Call(s.hwnd, uintptr(unsafe.Pointer(&wr))); ok == 0 {
		return image.Rectangle{}, fmt.Errorf("gdi: GetWindowRect: %w: %v", ErrFrameAcquire, err)
	}
	r := image.Rect(int(wr.Left), int(wr.Top), int(wr.Right), int(wr.Bottom)).Intersect(screen)
	if r.Empty() {
		// minimised or moved off screen
		return r, fmt.Errorf("gdi: %w: window not visible", ErrFrameAcquire)
	}
	return r, nil
}

func (s *gdiSession) createDIB(d stagingDesc) (*dibSection, error) {
	memDC, _, err := procCreateCompatibleDC.Call(s.screenDC)
	if memDC == 0 {
		return nil, fmt.Errorf("gdi: CreateCompatibleDC: %w: %v", ErrFrameAcquire, err)
	}

	var bi bitmapInfo
	bi.Header.BiSize = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.BiWidth = int32(d.Width)
	bi.Header.BiHeight = -int32(d.Height) // top-down
	bi.Header.BiPlanes = 1
	bi.Header.BiBitCount = 32
	bi.Header.BiCompression = biRgb
	bi.Header.BiSizeImage = uint32(d.Width * d.Height * 4)

	var bits unsafe.Pointer
	bmp, _, err := procCreateDIBSection.Call(memDC, uintptr(unsafe.Pointer(&bi)), dibRGBColors, uintptr(unsafe.Pointer(&bits)), 0, 0)
	if bmp == 0 {
		procDeleteDC.Call(memDC)
		return nil, fmt.Errorf("gdi: CreateDIBSection: %w: %v", ErrFrameAcquire, err)
	}
	prev, _, err := procSelectObject.Call(memDC, bmp)
	if prev == 0 || prev == ^uintptr(0) { // failure or GDI_ERROR
		procDeleteObject.Call(bmp)
		procDeleteDC.Call(memDC)
		return nil, fmt.Errorf("gdi: SelectObject: %w: %v", ErrFrameAcquire, err)
	}
	if s.logger != nil {
		s.logger.Debug("gdi.staging", "session_id", s.id, "width", d.Width, "height", d.Height)
	}
	return &dibSection{memDC: memDC, bmp: bmp, prev: prev, bits: bits, size: d.Width * d.Height * 4}, nil
}

func destroyDIB(d *dibSection) {
	procSelectObject.Call(d.memDC, d.prev)
	procDeleteObject.Call(d.bmp)
	procDeleteDC.Call(d.memDC)
}

func (s *gdiSession) ID() string { return s.id }

func (s *gdiSession) Acquire(time.Duration) (RawFrame, bool, error) {
	if s.closed {
		return RawFrame{}, false, fmt.Errorf("gdi: %w: session closed", ErrDuplicationLost)
	}
	if s.held {
		return RawFrame{}, false, ErrFrameHeld
	}
	r, err := s.area()
	if err != nil {
		return RawFrame{}, false, err
	}
	w, h := r.Dx(), r.Dy()
	dib, err := s.staging.get(stagingDesc{Width: w, Height: h, Format: FormatBGRA})
	if err != nil {
		return RawFrame{}, false, err
	}
	ok, _, werr := procBitBlt.Call(dib.memDC, 0, 0, uintptr(w), uintptr(h), s.screenDC, uintptr(r.Min.X), uintptr(r.Min.Y), srccopy|captureblt)
	if ok == 0 {
		return RawFrame{}, false, fmt.Errorf("gdi: BitBlt x=%d y=%d w=%d h=%d: %w: %v", r.Min.X, r.Min.Y, w, h, ErrFrameAcquire, werr)
	}
	s.held = true
	return RawFrame{
		Data:       unsafe.Slice((*byte)(dib.bits), dib.size),
		Pitch:      w * 4,
		Width:      w,
		Height:     h,
		Format:     FormatBGRA,
		CapturedAt: time.Now(),
	}, true, nil
}

func (s *gdiSession) Release() error {
	s.held = false
	return nil
}

func (s *gdiSession) Close() error {
	if s.closed {
		return nil
	}
	s.held = false
	s.staging.release()
	if s.screenDC != 0 {
		procReleaseDC.Call(0, s.screenDC)
		s.screenDC = 0
	}
	s.closed = true
	return nil
}
