package beadgrid

import (
	"math"

	"github.com/setanarut/beadgrid/raster"
)

// PreprocessOptions adjusts the resized image before it is matched. A zero
// factor is treated as 1 (unchanged).
type PreprocessOptions struct {
	// Contrast around mid gray. Ideal range: 0.5-2.0.
	Contrast float64
	// Brightness multiplier. Ideal range: 0.5-2.0.
	Brightness float64
	// Saturation relative to Rec.601 gray. Ideal range: 0.5-2.0.
	Saturation float64
	// Sharpen applies a 3x3 unsharp kernel after the color adjustments.
	Sharpen bool
	// SharpenAmount is the kernel's neighbor weight. Ideal range: 0-1.
	SharpenAmount float64
}

// Neutral reports whether the options leave every pixel unchanged.
func (o PreprocessOptions) Neutral() bool {
	return factor(o.Contrast) == 1 && factor(o.Brightness) == 1 &&
		factor(o.Saturation) == 1 && (!o.Sharpen || o.SharpenAmount == 0)
}

func factor(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func clamp8(v float64) uint8 {
	return uint8(max(0, min(255, math.Round(v))))
}

// Preprocess returns an adjusted copy of src. Alpha is kept.
func Preprocess(src *raster.Buffer, o PreprocessOptions) *raster.Buffer {
	out := src.Clone()
	if o.Neutral() {
		return out
	}
	brightness := factor(o.Brightness)
	contrast := factor(o.Contrast)
	saturation := factor(o.Saturation)

	for off := 0; off < len(out.Pix); off += 4 {
		r := float64(out.Pix[off]) * brightness
		g := float64(out.Pix[off+1]) * brightness
		b := float64(out.Pix[off+2]) * brightness

		r = ((r/255-0.5)*contrast + 0.5) * 255
		g = ((g/255-0.5)*contrast + 0.5) * 255
		b = ((b/255-0.5)*contrast + 0.5) * 255

		if saturation != 1 {
			gray := 0.299*r + 0.587*g + 0.114*b
			r = gray + (r-gray)*saturation
			g = gray + (g-gray)*saturation
			b = gray + (b-gray)*saturation
		}
		out.Pix[off] = clamp8(r)
		out.Pix[off+1] = clamp8(g)
		out.Pix[off+2] = clamp8(b)
	}
	if o.Sharpen && o.SharpenAmount != 0 {
		return sharpen(out, o.SharpenAmount)
	}
	return out
}

// sharpen convolves with [0 -a 0; -a 1+4a -a; 0 -a 0], clamping at edges.
func sharpen(src *raster.Buffer, amount float64) *raster.Buffer {
	out := src.Clone()
	w, h := src.W, src.H
	at := func(x, y, ch int) float64 {
		x = max(0, min(w-1, x))
		y = max(0, min(h-1, y))
		return float64(src.Pix[(y*w+x)*4+ch])
	}
	for y := range h {
		for x := range w {
			off := (y*w + x) * 4
			for ch := range 3 {
				v := (1+4*amount)*at(x, y, ch) -
					amount*(at(x-1, y, ch)+at(x+1, y, ch)+at(x, y-1, ch)+at(x, y+1, ch))
				out.Pix[off+ch] = clamp8(v)
			}
		}
	}
	return out
}
