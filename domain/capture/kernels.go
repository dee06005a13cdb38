package capture

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/cpu"
)

// pixelOp describes the per-pixel transform from a 4-byte source pixel.
type pixelOp struct {
	swap   bool // exchange bytes 0 and 2
	dstBPP int  // 3 or 4
	opaque bool // force alpha to 0xFF, 4-byte output only
}

func newPixelOp(src, dst PixelFormat, opaque bool) pixelOp {
	return pixelOp{
		swap:   src.bgrOrder() != dst.bgrOrder(),
		dstBPP: dst.BytesPerPixel(),
		opaque: opaque && dst.BytesPerPixel() == 4,
	}
}

// word32 applies the op to one little-endian pixel.
func (op pixelOp) word32(v uint32) uint32 {
	if op.swap {
		v = v&0xFF00FF00 | (v&0x000000FF)<<16 | (v>>16)&0x000000FF
	}
	if op.opaque {
		v |= 0xFF000000
	}
	return v
}

// word64 applies the op to two adjacent little-endian pixels.
func (op pixelOp) word64(v uint64) uint64 {
	if op.swap {
		v = v&0xFF00FF00FF00FF00 | (v&0x000000FF000000FF)<<16 | (v>>16)&0x000000FF000000FF
	}
	if op.opaque {
		v |= 0xFF000000FF000000
	}
	return v
}

// rowKernel converts one destination row. xs maps destination columns to
// source columns; nil means the row is copied column for column.
// len(dst) must be a multiple of op.dstBPP.
type rowKernel interface {
	name() string
	convertRow(dst, src []byte, xs []int, op pixelOp)
}

type scalarKernel struct{}

func (scalarKernel) name() string { return "scalar" }

func (k scalarKernel) convertRow(dst, src []byte, xs []int, op pixelOp) {
	k.span(dst, src, xs, 0, len(dst)/op.dstBPP, op)
}

// span converts destination columns [from, to).
func (scalarKernel) span(dst, src []byte, xs []int, from, to int, op pixelOp) {
	bpp := op.dstBPP
	for x := from; x < to; x++ {
		sx := x
		if xs != nil {
			sx = xs[x]
		}
		s := src[sx*4 : sx*4+4]
		d := dst[x*bpp : x*bpp+bpp]
		c0, c1, c2, a := s[0], s[1], s[2], s[3]
		if op.swap {
			c0, c2 = c2, c0
		}
		d[0], d[1], d[2] = c0, c1, c2
		if bpp == 4 {
			if op.opaque {
				a = 0xFF
			}
			d[3] = a
		}
	}
}

// wideKernel converts blocks of n pixels at a time with word-sized loads and
// stores, finishing the row remainder with the scalar kernel. Its output is
// identical to scalarKernel.
type wideKernel struct{ n int }

func (k wideKernel) name() string { return fmt.Sprintf("wide%d", k.n) }

func (k wideKernel) convertRow(dst, src []byte, xs []int, op pixelOp) {
	n := len(dst) / op.dstBPP
	var x int
	switch {
	case xs == nil && op.dstBPP == 4:
		x = k.copy4(dst, src, n, op)
	case xs == nil:
		x = k.pack3(dst, src, n, op)
	default:
		x = k.gather(dst, src, xs, n, op)
	}
	scalarKernel{}.span(dst, src, xs, x, n, op)
}

func (k wideKernel) copy4(dst, src []byte, n int, op pixelOp) int {
	step := k.n * 4
	x := 0
	for ; x+k.n <= n; x += k.n {
		s := src[x*4 : x*4+step]
		d := dst[x*4 : x*4+step]
		for i := 0; i < step; i += 8 {
			binary.LittleEndian.PutUint64(d[i:], op.word64(binary.LittleEndian.Uint64(s[i:])))
		}
	}
	return x
}

func (k wideKernel) pack3(dst, src []byte, n int, op pixelOp) int {
	x := 0
	for ; x+k.n <= n; x += k.n {
		s := src[x*4 : (x+k.n)*4]
		d := dst[x*3 : (x+k.n)*3]
		for i, j := 0, 0; i < len(s); i, j = i+4, j+3 {
			v := op.word32(binary.LittleEndian.Uint32(s[i:]))
			d[j], d[j+1], d[j+2] = byte(v), byte(v>>8), byte(v>>16)
		}
	}
	return x
}

func (k wideKernel) gather(dst, src []byte, xs []int, n int, op pixelOp) int {
	bpp := op.dstBPP
	x := 0
	for ; x+k.n <= n; x += k.n {
		idx := xs[x : x+k.n]
		d := dst[x*bpp : (x+k.n)*bpp]
		for i, sx := range idx {
			v := op.word32(binary.LittleEndian.Uint32(src[sx*4:]))
			if bpp == 4 {
				binary.LittleEndian.PutUint32(d[i*4:], v)
			} else {
				j := i * 3
				d[j], d[j+1], d[j+2] = byte(v), byte(v>>8), byte(v>>16)
			}
		}
	}
	return x
}

// wideLanes returns the block width for the widest vector unit the CPU
// reports, or 0 when none is available.
func wideLanes() int {
	switch {
	case cpu.X86.HasAVX512F:
		return 32
	case cpu.X86.HasAVX2:
		return 16
	case cpu.X86.HasSSSE3, cpu.ARM64.HasASIMD:
		return 8
	}
	return 0
}

// selectKernel picks the row kernel once at startup. mode "off" forces the
// scalar path.
func selectKernel(mode string) rowKernel {
	if mode == "off" {
		return scalarKernel{}
	}
	if n := wideLanes(); n > 0 {
		return wideKernel{n: n}
	}
	return scalarKernel{}
}

// KernelName reports the kernel selectKernel would choose for mode.
func KernelName(mode string) string { return selectKernel(mode).name() }
