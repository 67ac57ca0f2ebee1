package raster

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Mode selects the resampling filter.
type Mode int

const (
	// Bicubic uses cubic convolution (a = -0.5) over a 4×4 neighborhood.
	Bicubic Mode = iota
	// Nearest copies the closest source pixel, so no new colors appear.
	Nearest
)

func (m Mode) String() string {
	switch m {
	case Nearest:
		return "nearest"
	default:
		return "bicubic"
	}
}

// cubicA is the free parameter of the Keys kernel (Catmull-Rom for -0.5).
const cubicA = -0.5

func cubicWeight(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t <= 1:
		return (cubicA+2)*t*t*t - (cubicA+3)*t*t + 1
	case t <= 2:
		return cubicA*t*t*t - 5*cubicA*t*t + 8*cubicA*t - 4*cubicA
	}
	return 0
}

// tap is one source index with its kernel weight, edge-clamped.
type tap struct {
	idx    int
	weight float64
}

// cubicTaps precomputes the four taps for every destination coordinate.
func cubicTaps(srcLen, dstLen int) [][4]tap {
	scale := float64(srcLen) / float64(dstLen)
	out := make([][4]tap, dstLen)
	for d := range dstLen {
		s := (float64(d)+0.5)*scale - 0.5
		s1 := math.Floor(s)
		frac := s - s1
		for i := range 4 {
			out[d][i] = tap{
				idx:    max(0, min(srcLen-1, int(s1)+i-1)),
				weight: cubicWeight(frac - float64(i-1)),
			}
		}
	}
	return out
}

// Resize scales src to w×h. Equal dimensions return a copy of src.
func Resize(src *Buffer, w, h int, mode Mode) (*Buffer, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrEmpty, w, h)
	}
	if w == src.W && h == src.H {
		return src.Clone(), nil
	}
	switch mode {
	case Nearest:
		return resizeNearest(src, w, h), nil
	default:
		return resizeBicubic(src, w, h), nil
	}
}

func resizeNearest(src *Buffer, w, h int) *Buffer {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src.Image(), image.Rect(0, 0, src.W, src.H), draw.Src, nil)
	return &Buffer{W: w, H: h, Pix: dst.Pix}
}

// resizeBicubic runs the separable kernel per channel: four horizontal
// passes, one per source row, combined by the vertical weights.
func resizeBicubic(src *Buffer, w, h int) *Buffer {
	xt := cubicTaps(src.W, w)
	yt := cubicTaps(src.H, h)
	dst := &Buffer{W: w, H: h, Pix: make([]uint8, w*h*4)}

	for y := range h {
		for x := range w {
			off := pixOffset(w, x, y)
			for ch := range 3 {
				sum := 0.0
				for _, ty := range yt[y] {
					row := 0.0
					for _, tx := range xt[x] {
						row += tx.weight * float64(src.Pix[pixOffset(src.W, tx.idx, ty.idx)+ch])
					}
					sum += ty.weight * row
				}
				dst.Pix[off+ch] = uint8(math.Round(max(0, min(255, sum))))
			}
			dst.Pix[off+3] = 255
		}
	}
	return dst
}

// FitSize returns the largest size whose longer side is maxSide and whose
// aspect ratio matches w:h.
func FitSize(w, h, maxSide int) image.Point {
	if w <= 0 || h <= 0 || maxSide <= 0 {
		return image.Point{}
	}
	aspect := float64(w) / float64(h)
	if aspect > 1 {
		return image.Pt(maxSide, max(1, int(math.Round(float64(maxSide)/aspect))))
	}
	return image.Pt(max(1, int(math.Round(float64(maxSide)*aspect))), maxSide)
}
