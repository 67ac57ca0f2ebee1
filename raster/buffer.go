// Package raster holds the flat RGBA8 pixel buffer the pattern engine works
// on, and resamples it to a target grid size.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/setanarut/beadgrid/colorspace"
	"golang.org/x/image/draw"
)

var (
	// ErrEmpty is returned for buffers with zero width or height.
	ErrEmpty = errors.New("raster: zero-area buffer")
	// ErrSize is returned when the pixel slice does not hold W*H pixels.
	ErrSize = errors.New("raster: buffer length does not match dimensions")
)

// AlphaThreshold is the alpha value below which a pixel is left out of
// color statistics.
const AlphaThreshold = 128

// Buffer is a row-major RGBA8 image with its origin at the top left.
type Buffer struct {
	W, H int
	Pix  []uint8 // Interleaved RGBA, len = W*H*4
}

func pixOffset(w, x, y int) int {
	return (y*w + x) * 4
}

// New returns a transparent black buffer.
func New(w, h int) (*Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmpty, w, h)
	}
	return &Buffer{W: w, H: h, Pix: make([]uint8, w*h*4)}, nil
}

// FromRGBA8 wraps pix without copying.
func FromRGBA8(w, h int, pix []uint8) (*Buffer, error) {
	b := &Buffer{W: w, H: h, Pix: pix}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// FromRGB8 expands tightly packed RGB triples into an opaque buffer.
func FromRGB8(w, h int, pix []uint8) (*Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmpty, w, h)
	}
	if len(pix) != w*h*3 {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(pix), w*h*3)
	}
	b := &Buffer{W: w, H: h, Pix: make([]uint8, w*h*4)}
	for i := range w * h {
		copy(b.Pix[i*4:i*4+3], pix[i*3:i*3+3])
		b.Pix[i*4+3] = 255
	}
	return b, nil
}

// FromImage copies img into a new buffer with bounds starting at (0,0).
func FromImage(img image.Image) (*Buffer, error) {
	r := img.Bounds()
	if r.Empty() {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmpty, r.Dx(), r.Dy())
	}
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return &Buffer{W: r.Dx(), H: r.Dy(), Pix: dst.Pix}, nil
}

// Validate reports input-shape problems.
func (b *Buffer) Validate() error {
	if b == nil || b.W <= 0 || b.H <= 0 {
		w, h := 0, 0
		if b != nil {
			w, h = b.W, b.H
		}
		return fmt.Errorf("%w: %dx%d", ErrEmpty, w, h)
	}
	if len(b.Pix) != b.W*b.H*4 {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(b.Pix), b.W*b.H*4)
	}
	return nil
}

// Image returns a view of b as an *image.NRGBA sharing the same pixels.
func (b *Buffer) Image() *image.NRGBA {
	return &image.NRGBA{Pix: b.Pix, Stride: b.W * 4, Rect: image.Rect(0, 0, b.W, b.H)}
}

// Size returns the buffer dimensions.
func (b *Buffer) Size() image.Point {
	return image.Pt(b.W, b.H)
}

// At returns the color at (x, y), ignoring alpha.
func (b *Buffer) At(x, y int) colorspace.Pixel {
	off := pixOffset(b.W, x, y)
	return colorspace.Pixel{R: b.Pix[off], G: b.Pix[off+1], B: b.Pix[off+2]}
}

// Alpha returns the alpha channel at (x, y).
func (b *Buffer) Alpha(x, y int) uint8 {
	return b.Pix[pixOffset(b.W, x, y)+3]
}

// Set writes an opaque color at (x, y).
func (b *Buffer) Set(x, y int, p colorspace.Pixel) {
	off := pixOffset(b.W, x, y)
	b.Pix[off] = p.R
	b.Pix[off+1] = p.G
	b.Pix[off+2] = p.B
	b.Pix[off+3] = 255
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{W: b.W, H: b.H, Pix: append([]uint8(nil), b.Pix...)}
}

// OpaquePixels returns the colors of all pixels whose alpha is at least
// AlphaThreshold, in row-major order.
func (b *Buffer) OpaquePixels() []colorspace.Pixel {
	return b.opaqueUnder(b)
}

// MaskedPixels is OpaquePixels with the alpha taken from mask instead of
// b. Use it when b was resampled with alpha forced opaque and mask is a
// resample of the same source that kept it.
func (b *Buffer) MaskedPixels(mask *Buffer) ([]colorspace.Pixel, error) {
	if err := mask.Validate(); err != nil {
		return nil, err
	}
	if mask.W != b.W || mask.H != b.H {
		return nil, fmt.Errorf("%w: mask %dx%d for %dx%d buffer", ErrSize, mask.W, mask.H, b.W, b.H)
	}
	return b.opaqueUnder(mask), nil
}

func (b *Buffer) opaqueUnder(mask *Buffer) []colorspace.Pixel {
	out := make([]colorspace.Pixel, 0, b.W*b.H)
	for off := 0; off+3 < len(b.Pix); off += 4 {
		if mask.Pix[off+3] < AlphaThreshold {
			continue
		}
		out = append(out, colorspace.Pixel{R: b.Pix[off], G: b.Pix[off+1], B: b.Pix[off+2]})
	}
	return out
}

// Uniform returns a w×h buffer filled with p.
func Uniform(w, h int, p colorspace.Pixel) (*Buffer, error) {
	b, err := New(w, h)
	if err != nil {
		return nil, err
	}
	c := color.NRGBA{R: p.R, G: p.G, B: p.B, A: 255}
	draw.Draw(b.Image(), image.Rect(0, 0, w, h), image.NewUniform(c), image.Point{}, draw.Src)
	return b, nil
}
