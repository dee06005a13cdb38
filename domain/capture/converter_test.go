package capture

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidBGRA builds a w x h BGRA frame with rows padded to pitch.
func solidBGRA(w, h, pitch int, px [4]byte) RawFrame {
	data := make([]byte, h*pitch)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			copy(data[y*pitch+x*4:], px[:])
		}
	}
	return RawFrame{Data: data, Pitch: pitch, Width: w, Height: h, Format: FormatBGRA}
}

// coordBGRA encodes the pixel coordinates into the colour channels so a
// sampled pixel reveals its source position: B,G = x lo/hi, R = y lo, A = y hi.
func coordBGRA(w, h, pitch int) RawFrame {
	data := make([]byte, h*pitch)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := y*pitch + x*4
			data[o], data[o+1], data[o+2], data[o+3] = byte(x), byte(x>>8), byte(y), byte(y>>8)
		}
	}
	return RawFrame{Data: data, Pitch: pitch, Width: w, Height: h, Format: FormatBGRA}
}

func newTestConverter(t *testing.T, opts ConverterOptions) *Converter {
	t.Helper()
	c, err := NewConverter(opts)
	require.NoError(t, err)
	return c
}

func TestConvertSolidRedToRGB(t *testing.T) {
	t.Parallel()

	raw := solidBGRA(1920, 1080, 1920*4, [4]byte{0, 0, 255, 255})
	c := newTestConverter(t, ConverterOptions{Format: FormatRGB, SIMD: "off"})

	out, err := c.Convert(nil, raw)
	require.NoError(t, err)
	require.Len(t, out, 6220800)
	for i := 0; i < len(out); i += 3 {
		if out[i] != 255 || out[i+1] != 0 || out[i+2] != 0 {
			t.Fatalf("pixel %d = %v, want [255 0 0]", i/3, out[i:i+3])
		}
	}
}

func TestConvertSolidRedDownscaleToRGB(t *testing.T) {
	t.Parallel()

	raw := solidBGRA(1920, 1080, 1920*4, [4]byte{0, 0, 255, 255})
	for _, simd := range []string{"off", "auto"} {
		c := newTestConverter(t, ConverterOptions{Width: 1280, Height: 720, Format: FormatRGB, SIMD: simd})
		out, err := c.Convert(nil, raw)
		require.NoError(t, err)
		require.Len(t, out, 2764800)
		for i := 0; i < len(out); i += 3 {
			if out[i] != 255 || out[i+1] != 0 || out[i+2] != 0 {
				t.Fatalf("simd=%s pixel %d = %v, want [255 0 0]", simd, i/3, out[i:i+3])
			}
		}
	}
}

func TestConvertDownscaleSamplesNearest(t *testing.T) {
	t.Parallel()

	raw := coordBGRA(1920, 1080, 1920*4)
	c := newTestConverter(t, ConverterOptions{Width: 1280, Height: 720, Format: FormatBGRA, SIMD: "off"})

	out, err := c.Convert(nil, raw)
	require.NoError(t, err)
	require.Len(t, out, 1280*720*4)

	at := func(x, y int) (int, int) {
		o := (y*1280 + x) * 4
		return int(out[o]) | int(out[o+1])<<8, int(out[o+2]) | int(out[o+3])<<8
	}
	sx, sy := at(0, 0)
	assert.Equal(t, 0, sx)
	assert.Equal(t, 0, sy)
	sx, sy = at(1279, 719)
	assert.Equal(t, 1918, sx)
	assert.Equal(t, 1078, sy)
	sx, sy = at(1, 1)
	assert.Equal(t, 1, sx)
	assert.Equal(t, 1, sy)
}

func TestConvertHonoursPitch(t *testing.T) {
	t.Parallel()

	const w, h, pitch = 5, 3, 32
	raw := solidBGRA(w, h, pitch, [4]byte{1, 2, 3, 4})
	// garbage in the padding must not leak into the output
	for y := 0; y < h; y++ {
		for i := w * 4; i < pitch; i++ {
			raw.Data[y*pitch+i] = 0xEE
		}
	}
	c := newTestConverter(t, ConverterOptions{Format: FormatBGRA})
	out, err := c.Convert(nil, raw)
	require.NoError(t, err)
	require.Len(t, out, w*h*4)
	for i := 0; i < len(out); i += 4 {
		assert.Equal(t, []byte{1, 2, 3, 4}, out[i:i+4])
	}
}

func TestConvertOutputLengthProperty(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(3, 5))
	for _, format := range []PixelFormat{FormatBGRA, FormatRGBA, FormatBGR, FormatRGB} {
		for i := 0; i < 20; i++ {
			srcW, srcH := 1+r.IntN(300), 1+r.IntN(200)
			pitch := srcW*4 + r.IntN(64)
			dstW, dstH := 1+r.IntN(400), 1+r.IntN(300)
			raw := RawFrame{Data: randomBytes(r, srcH*pitch), Pitch: pitch, Width: srcW, Height: srcH, Format: FormatRGBA}

			c := newTestConverter(t, ConverterOptions{Width: dstW, Height: dstH, Format: format})
			out, err := c.Convert(nil, raw)
			require.NoError(t, err)
			assert.Len(t, out, dstW*dstH*format.BytesPerPixel())
		}
	}
}

func TestConvertWideMatchesScalar(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(9, 1))
	raw := RawFrame{Data: randomBytes(r, 333*(257*4+12)), Pitch: 257*4 + 12, Width: 257, Height: 333, Format: FormatBGRA}

	for _, format := range []PixelFormat{FormatBGRA, FormatRGBA, FormatBGR, FormatRGB} {
		for _, size := range [][2]int{{0, 0}, {128, 72}, {400, 500}} {
			scalar := newTestConverter(t, ConverterOptions{Width: size[0], Height: size[1], Format: format, OpaqueAlpha: true, SIMD: "off"})
			for _, lanes := range []int{8, 16, 32} {
				wide := newTestConverter(t, ConverterOptions{Width: size[0], Height: size[1], Format: format, OpaqueAlpha: true})
				wide.kernel = wideKernel{n: lanes}

				want, err := scalar.Convert(nil, raw)
				require.NoError(t, err)
				got, err := wide.Convert(nil, raw)
				require.NoError(t, err)
				require.Equal(t, want, got, "format=%s size=%v lanes=%d", format, size, lanes)
			}
		}
	}
}

func TestConvertReusesDestination(t *testing.T) {
	t.Parallel()

	raw := solidBGRA(64, 32, 256, [4]byte{9, 8, 7, 6})
	c := newTestConverter(t, ConverterOptions{Format: FormatRGB})
	buf := make([]byte, 0, 64*32*3)
	out, err := c.Convert(buf, raw)
	require.NoError(t, err)
	assert.Same(t, &buf[:1][0], &out[0])
}

func TestConvertRejectsMalformedSource(t *testing.T) {
	t.Parallel()

	c := newTestConverter(t, ConverterOptions{Format: FormatRGB})
	tests := []struct {
		name string
		raw  RawFrame
		want error
	}{
		{"pitch too small", RawFrame{Data: make([]byte, 100), Pitch: 8, Width: 4, Height: 2, Format: FormatBGRA}, ErrFrameMap},
		{"short data", RawFrame{Data: make([]byte, 10), Pitch: 16, Width: 4, Height: 2, Format: FormatBGRA}, ErrFrameMap},
		{"empty", RawFrame{Format: FormatBGRA}, ErrFrameMap},
		{"three byte source", RawFrame{Data: make([]byte, 24), Pitch: 12, Width: 4, Height: 2, Format: FormatRGB}, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Convert(nil, tt.raw)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindDrop, Classify(err))
		})
	}
}

func TestNewConverterValidates(t *testing.T) {
	t.Parallel()

	_, err := NewConverter(ConverterOptions{Format: "yuv"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = NewConverter(ConverterOptions{Width: 10, Format: FormatRGB})
	assert.Error(t, err)
	c, err := NewConverter(ConverterOptions{Format: FormatRGB})
	require.NoError(t, err)
	w, h := c.OutputSize(800, 600)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}
