package capture

import "fmt"

// ConverterOptions configure the output of a Converter. A zero Width and
// Height keep the source resolution.
type ConverterOptions struct {
	Width       int
	Height      int
	Format      PixelFormat
	OpaqueAlpha bool
	SIMD        string // "auto" or "off"
}

// Converter turns padded 4-byte source frames into tightly packed frames of
// the configured format and resolution. A Converter is not safe for
// concurrent use; the frame loop owns one.
type Converter struct {
	width, height int
	format        PixelFormat
	opaque        bool
	kernel        rowKernel
	tables        *tableCache
}

// NewConverter validates opts and selects the row kernel.
func NewConverter(opts ConverterOptions) (*Converter, error) {
	if !opts.Format.Valid() {
		return nil, fmt.Errorf("%w: output %q", ErrUnsupportedFormat, opts.Format)
	}
	if opts.Width < 0 || opts.Height < 0 || (opts.Width == 0) != (opts.Height == 0) {
		return nil, fmt.Errorf("capture: invalid output size %dx%d", opts.Width, opts.Height)
	}
	return &Converter{
		width:  opts.Width,
		height: opts.Height,
		format: opts.Format,
		opaque: opts.OpaqueAlpha,
		kernel: selectKernel(opts.SIMD),
		tables: newTableCache(),
	}, nil
}

// Format returns the output pixel format.
func (c *Converter) Format() PixelFormat { return c.format }

// Kernel names the selected row kernel.
func (c *Converter) Kernel() string { return c.kernel.name() }

// OutputSize returns the dimensions produced for a source of srcW x srcH.
func (c *Converter) OutputSize(srcW, srcH int) (int, int) {
	if c.width == 0 {
		return srcW, srcH
	}
	return c.width, c.height
}

// Convert writes raw into dst, growing it when its capacity is too small,
// and returns the packed result. raw must stay mapped for the duration of
// the call.
func (c *Converter) Convert(dst []byte, raw RawFrame) ([]byte, error) {
	if raw.Format != FormatBGRA && raw.Format != FormatRGBA {
		return dst, fmt.Errorf("%w: source %q", ErrUnsupportedFormat, raw.Format)
	}
	srcRowBytes := raw.Width * 4
	if raw.Width <= 0 || raw.Height <= 0 || raw.Pitch < srcRowBytes {
		return dst, fmt.Errorf("%w: %dx%d pitch=%d", ErrFrameMap, raw.Width, raw.Height, raw.Pitch)
	}
	if need := (raw.Height-1)*raw.Pitch + srcRowBytes; len(raw.Data) < need {
		return dst, fmt.Errorf("%w: mapped %d bytes, need %d", ErrFrameMap, len(raw.Data), need)
	}

	w, h := c.OutputSize(raw.Width, raw.Height)
	bpp := c.format.BytesPerPixel()
	size := w * h * bpp
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]

	t := c.tables.get(tableKey{srcW: raw.Width, srcH: raw.Height, dstW: w, dstH: h})
	op := newPixelOp(raw.Format, c.format, c.opaque)
	passthrough := t.xs == nil && op.dstBPP == 4 && !op.swap && !op.opaque
	rowBytes := w * bpp
	for y := 0; y < h; y++ {
		off := t.ys[y] * raw.Pitch
		src := raw.Data[off : off+srcRowBytes]
		row := dst[y*rowBytes : (y+1)*rowBytes]
		if passthrough {
			copy(row, src)
			continue
		}
		c.kernel.convertRow(row, src, t.xs, op)
	}

	if len(dst) != w*h*bpp {
		return dst, fmt.Errorf("%w: got %d bytes for %dx%d %s", ErrBufferSizeMismatch, len(dst), w, h, c.format)
	}
	return dst, nil
}
