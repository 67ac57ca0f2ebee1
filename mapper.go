package beadgrid

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/setanarut/beadgrid/palette"
	"github.com/setanarut/beadgrid/raster"
)

// Dither selects the error-diffusion kernel used by Map.
type Dither int

const (
	DitherNone Dither = iota
	FloydSteinberg
	Atkinson
	Jarvis
	Stucki
)

var ditherNames = []string{"none", "floyd-steinberg", "atkinson", "jarvis", "stucki"}

func (d Dither) String() string {
	if d < 0 || int(d) >= len(ditherNames) {
		return fmt.Sprintf("Dither(%d)", int(d))
	}
	return ditherNames[d]
}

// ParseDither is the inverse of Dither.String.
func ParseDither(s string) (Dither, error) {
	if i := slices.Index(ditherNames, s); i >= 0 {
		return Dither(i), nil
	}
	return 0, fmt.Errorf("unknown dither mode %q", s)
}

// Tap spreads Weight of a pixel's error to the pixel at (+DX, +DY).
type Tap struct {
	DX, DY int
	Weight float64
}

// Kernel is an error-diffusion matrix. Total is the fraction of the error
// it passes on; Atkinson deliberately drops a quarter.
type Kernel struct {
	Name  string
	Taps  []Tap
	Total float64
}

var kernels = map[Dither]Kernel{
	FloydSteinberg: {Name: "floyd-steinberg", Total: 1, Taps: []Tap{
		{1, 0, 7.0 / 16}, {-1, 1, 3.0 / 16}, {0, 1, 5.0 / 16}, {1, 1, 1.0 / 16},
	}},
	Atkinson: {Name: "atkinson", Total: 0.75, Taps: []Tap{
		{1, 0, 1.0 / 8}, {2, 0, 1.0 / 8},
		{-1, 1, 1.0 / 8}, {0, 1, 1.0 / 8}, {1, 1, 1.0 / 8},
		{0, 2, 1.0 / 8},
	}},
	Jarvis: {Name: "jarvis", Total: 1, Taps: []Tap{
		{1, 0, 7.0 / 48}, {2, 0, 5.0 / 48},
		{-2, 1, 3.0 / 48}, {-1, 1, 5.0 / 48}, {0, 1, 7.0 / 48}, {1, 1, 5.0 / 48}, {2, 1, 3.0 / 48},
		{-2, 2, 1.0 / 48}, {-1, 2, 3.0 / 48}, {0, 2, 5.0 / 48}, {1, 2, 3.0 / 48}, {2, 2, 1.0 / 48},
	}},
	Stucki: {Name: "stucki", Total: 1, Taps: []Tap{
		{1, 0, 8.0 / 42}, {2, 0, 4.0 / 42},
		{-2, 1, 2.0 / 42}, {-1, 1, 4.0 / 42}, {0, 1, 8.0 / 42}, {1, 1, 4.0 / 42}, {2, 1, 2.0 / 42},
		{-2, 2, 1.0 / 42}, {-1, 2, 2.0 / 42}, {0, 2, 4.0 / 42}, {1, 2, 2.0 / 42}, {2, 2, 1.0 / 42},
	}},
}

// Kernel returns the diffusion kernel of d. DitherNone has no taps.
func (d Dither) Kernel() Kernel {
	if k, ok := kernels[d]; ok {
		return k
	}
	return Kernel{Name: d.String()}
}

const (
	ditherProgressRows = 5
	plainProgressRows  = 10
)

// Map assigns every pixel of buf its nearest color from m. With a dither
// kernel the quantization error is diffused over a working copy of buf in
// serpentine order; cell sources always hold the pixels of buf itself.
// Every cell gets a color regardless of alpha.
func Map(ctx context.Context, buf *raster.Buffer, m *palette.Matcher, d Dither, progress ProgressFunc) (*Grid, error) {
	if err := buf.Validate(); err != nil {
		return nil, invalid(err)
	}
	if m == nil {
		return nil, invalid(palette.ErrEmptyPalette)
	}
	if d < DitherNone || d > Stucki {
		return nil, invalidf("dither mode %d", int(d))
	}
	if d == DitherNone {
		return mapPlain(ctx, buf, m, progress)
	}
	return mapDiffused(ctx, buf, m, d.Kernel(), progress)
}

func mapPlain(ctx context.Context, buf *raster.Buffer, m *palette.Matcher, progress ProgressFunc) (*Grid, error) {
	g := newGrid(buf.W, buf.H)
	pal := m.Palette()
	for y := range buf.H {
		if err := checkCanceled(ctx); err != nil {
			return nil, err
		}
		if y%plainProgressRows == 0 {
			progress.report(StageMap, y*100/buf.H)
		}
		for x := range buf.W {
			c := g.At(x, y)
			c.Source = buf.At(x, y)
			c.Color = pal[m.Nearest(c.Source)]
		}
	}
	progress.report(StageMap, 100)
	return g, nil
}

// mapDiffused works on an RGBA copy of buf. Every tap addition is rounded
// and clamped back to a byte, so the working buffer never leaves [0,255]
// and the scan order fully determines the result.
func mapDiffused(ctx context.Context, buf *raster.Buffer, m *palette.Matcher, k Kernel, progress ProgressFunc) (*Grid, error) {
	g := newGrid(buf.W, buf.H)
	pal := m.Palette()
	work := buf.Clone()
	w, h := buf.W, buf.H

	for y := range h {
		if err := checkCanceled(ctx); err != nil {
			return nil, err
		}
		if y%ditherProgressRows == 0 {
			progress.report(StageMap, y*100/h)
		}
		reverse := y%2 == 1
		for i := range w {
			x := i
			if reverse {
				x = w - 1 - i
			}
			cur := work.At(x, y)
			chosen := pal[m.Nearest(cur)]

			c := g.At(x, y)
			c.Source = buf.At(x, y)
			c.Color = chosen

			errR := float64(cur.R) - float64(chosen.RGB.R)
			errG := float64(cur.G) - float64(chosen.RGB.G)
			errB := float64(cur.B) - float64(chosen.RGB.B)
			if errR == 0 && errG == 0 && errB == 0 {
				continue
			}
			for _, t := range k.Taps {
				dx := t.DX
				if reverse {
					dx = -dx
				}
				nx, ny := x+dx, y+t.DY
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				off := (ny*w + nx) * 4
				work.Pix[off] = addClamped(work.Pix[off], errR*t.Weight)
				work.Pix[off+1] = addClamped(work.Pix[off+1], errG*t.Weight)
				work.Pix[off+2] = addClamped(work.Pix[off+2], errB*t.Weight)
			}
		}
	}
	progress.report(StageMap, 100)
	return g, nil
}

func addClamped(v uint8, e float64) uint8 {
	return uint8(max(0, min(255, math.Round(float64(v)+e))))
}
