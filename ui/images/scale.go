package images

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/soocke/stream-console/domain/capture"
)

// FrameImage wraps a published frame as an *image.RGBA. Alpha is forced to
// 0xFF for three-byte formats. The result never aliases f.Data.
func FrameImage(f capture.Frame) (*image.RGBA, error) {
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %q", capture.ErrUnsupportedFormat, f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Data) != f.Width*f.Height*bpp {
		return nil, fmt.Errorf("%w: %dx%d %s with %d bytes", capture.ErrBufferSizeMismatch, f.Width, f.Height, f.Format, len(f.Data))
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	if f.Format == capture.FormatRGBA {
		copy(img.Pix, f.Data)
		return img, nil
	}
	bgr := f.Format == capture.FormatBGRA || f.Format == capture.FormatBGR
	for i, o := 0, 0; i < len(f.Data); i, o = i+bpp, o+4 {
		r, b := f.Data[i], f.Data[i+2]
		if bgr {
			r, b = b, r
		}
		img.Pix[o] = r
		img.Pix[o+1] = f.Data[i+1]
		img.Pix[o+2] = b
		if bpp == 4 {
			img.Pix[o+3] = f.Data[i+3]
		} else {
			img.Pix[o+3] = 0xFF
		}
	}
	return img, nil
}

// EncodePNG encodes an image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode png: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// FitSize returns the largest w x h within maxW x maxH that keeps the aspect
// ratio of a srcW x srcH image. Sizes that already fit are returned as is.
func FitSize(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH
	}
	maxW, maxH = max(maxW, 1), max(maxH, 1)
	// compare maxW/srcW against maxH/srcH without floats
	if maxW*srcH <= maxH*srcW {
		return maxW, max(srcH*maxW/srcW, 1)
	}
	return max(srcW*maxH/srcH, 1), maxH
}

// ScaleToFit performs a nearest-neighbour scale so that the returned image
// fits within maxW x maxH preserving aspect ratio. If the source already
// fits, the original is returned.
func ScaleToFit(src image.Image, maxW, maxH int) image.Image {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), maxW, maxH)
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	rgba, ok := src.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sw, sh := rgba.Rect.Dx(), rgba.Rect.Dy()
	for y := 0; y < h; y++ {
		srow := rgba.Pix[(y*sh/h)*rgba.Stride:]
		drow := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			s := (x * sw / w) * 4
			copy(drow[x*4:x*4+4], srow[s:s+4])
		}
	}
	return dst
}
