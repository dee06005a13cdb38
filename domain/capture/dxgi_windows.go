//go:build windows

package capture

// Full screen capture through DXGI Desktop Duplication. The desktop texture
// is copied into a CPU-readable staging texture that is reused until the
// desktop size or format changes, then mapped for the converter.

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"golang.org/x/sys/windows"
)

var (
	modDXGI                = windows.NewLazySystemDLL("dxgi.dll")
	modD3D11               = windows.NewLazySystemDLL("d3d11.dll")
	procCreateDXGIFactory1 = modDXGI.NewProc("CreateDXGIFactory1")
	procD3D11CreateDevice  = modD3D11.NewProc("D3D11CreateDevice")
)

// vtable slots
const (
	vtblFactoryEnumAdapters1    = 12 // IDXGIFactory1
	vtblAdapterEnumOutputs      = 7  // IDXGIAdapter
	vtblOutput1DuplicateOutput  = 22 // IDXGIOutput1
	vtblDuplAcquireNextFrame    = 8  // IDXGIOutputDuplication
	vtblDuplReleaseFrame        = 14 // IDXGIOutputDuplication
	vtblDeviceCreateTexture2D   = 5  // ID3D11Device
	vtblContextMap              = 14 // ID3D11DeviceContext
	vtblContextUnmap            = 15 // ID3D11DeviceContext
	vtblContextCopyResource     = 47 // ID3D11DeviceContext
	vtblTexture2DGetDesc        = 10 // ID3D11Texture2D
	d3dDriverTypeUnknown        = 0
	d3d11CreateDeviceBGRA       = 0x20
	d3d11SDKVersion             = 7
	d3d11UsageStaging           = 3
	d3d11CPUAccessRead          = 0x20000
	d3d11MapRead                = 1
	dxgiFormatR8G8B8A8Unorm     = 28
	dxgiFormatB8G8R8A8Unorm     = 87
	d3dFeatureLevel11_0         = 0xb000
	d3dFeatureLevel10_1         = 0xa100
	d3dFeatureLevel10_0         = 0xa000
)

type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

type d3d11MappedSubresource struct {
	Data       uintptr
	RowPitch   uint32
	DepthPitch uint32
}

type dxgiOutduplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerX                  int32
	PointerY                  int32
	PointerVisible            int32
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}

var supportedAreas = []Area{AreaFullScreen, AreaWindow, AreaCustom}

type dxgiSession struct {
	id      string
	logger  *slog.Logger
	device  uintptr // ID3D11Device
	context uintptr // ID3D11DeviceContext
	output  uintptr // IDXGIOutput1
	dupl    uintptr // IDXGIOutputDuplication
	staging stagingCache[uintptr]
	mapped  uintptr // staging texture currently mapped
	frame   uintptr // IDXGIResource between AcquireNextFrame and ReleaseFrame
	held    bool
	seen    bool // at least one desktop image delivered
	closed  bool
}

func openFullScreen(opts SessionOptions) (Session, error) {
	s := &dxgiSession{id: uuid.NewString(), logger: opts.Logger}
	if err := s.init(opts.DisplayIndex); err != nil {
		s.Close()
		return nil, err
	}
	s.staging.create = s.createStaging
	s.staging.destroy = comRelease
	return s, nil
}

func (s *dxgiSession) init(display int) error {
	var factory uintptr
	r, _, _ := procCreateDXGIFactory1.Call(uintptr(unsafe.Pointer(&iidIDXGIFactory1)), uintptr(unsafe.Pointer(&factory)))
	if int32(r) < 0 {
		return fmt.Errorf("dxgi: CreateDXGIFactory1 %w: %v", ErrDeviceCreation, hresult(r))
	}
	defer comRelease(factory)

	var adapter uintptr
	if _, err := comCall(factory, vtblFactoryEnumAdapters1, 0, uintptr(unsafe.Pointer(&adapter))); err != nil {
		return fmt.Errorf("dxgi: EnumAdapters1 %w: %v", ErrDeviceCreation, err)
	}
	defer comRelease(adapter)

	levels := [...]uint32{d3dFeatureLevel11_0, d3dFeatureLevel10_1, d3dFeatureLevel10_0}
	var level uint32
	r, _, _ = procD3D11CreateDevice.Call(
		adapter,
		d3dDriverTypeUnknown,
		0,
		d3d11CreateDeviceBGRA,
		uintptr(unsafe.Pointer(&levels[0])),
		uintptr(len(levels)),
		d3d11SDKVersion,
		uintptr(unsafe.Pointer(&s.device)),
		uintptr(unsafe.Pointer(&level)),
		uintptr(unsafe.Pointer(&s.context)),
	)
	if int32(r) < 0 {
		return fmt.Errorf("dxgi: D3D11CreateDevice %w: %v", ErrDeviceCreation, hresult(r))
	}

	var output uintptr
	if hr, err := comCall(adapter, vtblAdapterEnumOutputs, uintptr(display), uintptr(unsafe.Pointer(&output))); err != nil {
		if hr == hrDXGINotFound {
			return fmt.Errorf("dxgi: %w: no display %d on adapter 0", ErrDeviceCreation, display)
		}
		return fmt.Errorf("dxgi: EnumOutputs %w: %v", ErrDeviceCreation, err)
	}
	out1, err := queryInterface(output, &iidIDXGIOutput1)
	comRelease(output)
	if err != nil {
		return fmt.Errorf("dxgi: IDXGIOutput1 %w: %v", ErrDeviceCreation, err)
	}
	s.output = out1

	if hr, err := comCall(s.output, vtblOutput1DuplicateOutput, s.device, uintptr(unsafe.Pointer(&s.dupl))); err != nil {
		// too many duplication clients, or the secure desktop is up
		if hr == hrDXGINotCurrentlyAvailable || hr == hrEAccessDenied {
			return fmt.Errorf("dxgi: DuplicateOutput: %w: %v", ErrAccessDenied, err)
		}
		return fmt.Errorf("dxgi: DuplicateOutput %w: %v", ErrDeviceCreation, err)
	}
	if s.logger != nil {
		s.logger.Debug("dxgi.open", "session_id", s.id, "display", display, "feature_level", fmt.Sprintf("0x%x", level))
	}
	return nil
}

func dxgiPixelFormat(f uint32) (PixelFormat, bool) {
	switch f {
	case dxgiFormatB8G8R8A8Unorm:
		return FormatBGRA, true
	case dxgiFormatR8G8B8A8Unorm:
		return FormatRGBA, true
	}
	return "", false
}

func dxgiFormatOf(f PixelFormat) uint32 {
	if f == FormatRGBA {
		return dxgiFormatR8G8B8A8Unorm
	}
	return dxgiFormatB8G8R8A8Unorm
}

func (s *dxgiSession) createStaging(d stagingDesc) (uintptr, error) {
	desc := d3d11Texture2DDesc{
		Width:          uint32(d.Width),
		Height:         uint32(d.Height),
		MipLevels:      1,
		ArraySize:      1,
		Format:         dxgiFormatOf(d.Format),
		SampleCount:    1,
		Usage:          d3d11UsageStaging,
		CPUAccessFlags: d3d11CPUAccessRead,
	}
	var tex uintptr
	if _, err := comCall(s.device, vtblDeviceCreateTexture2D, uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&tex))); err != nil {
		return 0, fmt.Errorf("dxgi: CreateTexture2D: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("dxgi.staging", "session_id", s.id, "width", d.Width, "height", d.Height, "format", d.Format)
	}
	return tex, nil
}

func (s *dxgiSession) ID() string { return s.id }

// acquireError maps an AcquireNextFrame/ReleaseFrame HRESULT.
func acquireError(op string, hr uint32, err error) error {
	switch hr {
	case hrDXGIAccessLost, hrDXGIDeviceRemoved, hrDXGIDeviceReset, hrDXGISessionDisconnected, hrDXGIInvalidCall:
		return fmt.Errorf("dxgi: %s: %w: %v", op, ErrDuplicationLost, err)
	case hrEAccessDenied, hrDXGINotCurrentlyAvailable:
		return fmt.Errorf("dxgi: %s: %w: %v", op, ErrAccessDenied, err)
	}
	return fmt.Errorf("dxgi: %s: %w: %v", op, ErrFrameAcquire, err)
}

func (s *dxgiSession) Acquire(timeout time.Duration) (RawFrame, bool, error) {
	if s.closed {
		return RawFrame{}, false, fmt.Errorf("dxgi: %w: session closed", ErrDuplicationLost)
	}
	if s.held {
		return RawFrame{}, false, ErrFrameHeld
	}
	var info dxgiOutduplFrameInfo
	var res uintptr
	hr, err := comCall(s.dupl, vtblDuplAcquireNextFrame,
		uintptr(timeout.Milliseconds()),
		uintptr(unsafe.Pointer(&info)),
		uintptr(unsafe.Pointer(&res)),
	)
	if hr == hrDXGIWaitTimeout {
		return RawFrame{}, false, nil
	}
	if err != nil {
		return RawFrame{}, false, acquireError("AcquireNextFrame", hr, err)
	}
	s.frame, s.held = res, true

	// pointer-only updates carry no new desktop image
	if info.LastPresentTime == 0 && s.seen {
		return RawFrame{}, false, s.Release()
	}

	raw, err := s.copyFrame(res)
	if err != nil {
		if relErr := s.Release(); relErr != nil {
			err = errors.Join(err, relErr)
		}
		return RawFrame{}, false, err
	}
	s.seen = true
	return raw, true, nil
}

// copyFrame copies the acquired desktop texture into staging, hands the
// desktop image back to DXGI and maps the copy.
func (s *dxgiSession) copyFrame(res uintptr) (RawFrame, error) {
	tex, err := queryInterface(res, &iidID3D11Texture2D)
	if err != nil {
		return RawFrame{}, fmt.Errorf("dxgi: ID3D11Texture2D: %w: %v", ErrFrameAcquire, err)
	}
	defer comRelease(tex)

	var desc d3d11Texture2DDesc
	comCallVoid(tex, vtblTexture2DGetDesc, uintptr(unsafe.Pointer(&desc)))
	format, ok := dxgiPixelFormat(desc.Format)
	if !ok {
		return RawFrame{}, fmt.Errorf("dxgi: %w: DXGI_FORMAT %d", ErrUnsupportedFormat, desc.Format)
	}
	w, h := int(desc.Width), int(desc.Height)
	staging, err := s.staging.get(stagingDesc{Width: w, Height: h, Format: format})
	if err != nil {
		return RawFrame{}, err
	}
	comCallVoid(s.context, vtblContextCopyResource, staging, tex)
	if err := s.releaseFrame(); err != nil {
		return RawFrame{}, err
	}

	var m d3d11MappedSubresource
	if _, err := comCall(s.context, vtblContextMap, staging, 0, d3d11MapRead, 0, uintptr(unsafe.Pointer(&m))); err != nil {
		return RawFrame{}, fmt.Errorf("dxgi: Map: %w: %v", ErrFrameMap, err)
	}
	s.mapped = staging
	pitch := int(m.RowPitch)
	return RawFrame{
		Data:       unsafe.Slice((*byte)(unsafe.Pointer(m.Data)), pitch*h),
		Pitch:      pitch,
		Width:      w,
		Height:     h,
		Format:     format,
		CapturedAt: time.Now(),
	}, nil
}

func (s *dxgiSession) releaseFrame() error {
	if s.frame == 0 {
		return nil
	}
	comRelease(s.frame)
	s.frame = 0
	if hr, err := comCall(s.dupl, vtblDuplReleaseFrame); err != nil {
		return acquireError("ReleaseFrame", hr, err)
	}
	return nil
}

func (s *dxgiSession) Release() error {
	if !s.held {
		return nil
	}
	s.held = false
	if s.mapped != 0 {
		comCallVoid(s.context, vtblContextUnmap, s.mapped, 0)
		s.mapped = 0
	}
	return s.releaseFrame()
}

func (s *dxgiSession) Close() error {
	if s.closed {
		return nil
	}
	var err error
	if s.dupl != 0 {
		err = s.Release()
	}
	s.staging.release()
	comRelease(s.dupl)
	comRelease(s.output)
	comRelease(s.context)
	comRelease(s.device)
	s.dupl, s.output, s.context, s.device = 0, 0, 0, 0
	s.closed = true
	return err
}
