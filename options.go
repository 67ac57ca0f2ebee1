package beadgrid

import (
	"image"
	"log/slog"
	"math/rand/v2"

	"github.com/setanarut/beadgrid/colorspace"
	"github.com/setanarut/beadgrid/palette"
	"github.com/setanarut/beadgrid/raster"
)

type Options struct {
	// Grid width in beads. 0 derives it from Height and the source aspect.
	// Common pegboards are 29 beads wide; 25-60 suits most photos.
	Width int
	// Grid height in beads. 0 derives it from Width.
	Height int
	// Number of palette colors kept for the pattern.
	// Ideal start: 12-20. Lower => flatter, poster-like output.
	// 0 keeps every candidate color.
	PaletteSize int
	// Error diffusion kernel. Floyd-Steinberg is a good default;
	// Atkinson keeps skin tones calmer; DitherNone suits pixel art.
	Dither Dither
	// How the image's colors are clustered before picking palette colors.
	Method palette.Method
	// Precise keeps exact source colors: nearest-neighbor resize and no
	// preprocessing. Use for pixel art that already matches the grid.
	Precise bool
	// CIEDE2000 lightness/chroma/hue weights. Zero selects DefaultWeights.
	Weights colorspace.Weights
	// Cap on distinct colors after mapping. 0 disables.
	MaxColorTypes int
	// Merge colors used by fewer than MinColorCount beads into their
	// nearest common neighbor.
	CollapseRare bool
	// Rarity threshold for CollapseRare. 0 => 0.5% of the beads.
	MinColorCount int
	// Color adjustments applied after resizing, unless Precise is set.
	Preprocess PreprocessOptions

	// Random source for palette clustering. Nil seeds from entropy; set it
	// for reproducible output.
	Rand *rand.Rand
	// Optional progress callback.
	Progress ProgressFunc
	// Logger for debug output. Nil uses slog.Default().
	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Width:       35,
		PaletteSize: 14,
		Dither:      FloydSteinberg,
		Method:      palette.MethodKMeansPP,
		Weights:     colorspace.DefaultWeights,
		Preprocess: PreprocessOptions{
			Contrast:      1.0,
			Brightness:    1.0,
			Saturation:    1.0,
			SharpenAmount: 0.5,
		},
	}
}

// OptionsFromSize scales the grid with the source image: small images get
// small boards and fewer colors.
func OptionsFromSize(size image.Point) Options {
	opt := DefaultOptions()
	if size.X <= 0 || size.Y <= 0 {
		return opt
	}
	pixels := size.X * size.Y
	side := 40
	if pixels <= 256*256 {
		side = 29
		opt.PaletteSize = 10
	} else if pixels > 1920*1080 {
		side = 58
		opt.PaletteSize = 20
	}
	fit := raster.FitSize(size.X, size.Y, side)
	opt.Width, opt.Height = fit.X, fit.Y
	return opt
}

const maxGridSide = 1000

// Validate reports option values no build can use.
func (o Options) Validate() error {
	switch {
	case o.Width < 0 || o.Height < 0:
		return invalidf("negative grid size %dx%d", o.Width, o.Height)
	case o.Width == 0 && o.Height == 0:
		return invalidf("grid size not set")
	case o.Width > maxGridSide || o.Height > maxGridSide:
		return invalidf("grid size %dx%d exceeds %d", o.Width, o.Height, maxGridSide)
	case o.PaletteSize < 0:
		return invalidf("negative palette size %d", o.PaletteSize)
	case o.MaxColorTypes < 0:
		return invalidf("negative color cap %d", o.MaxColorTypes)
	case o.MinColorCount < 0:
		return invalidf("negative minimum color count %d", o.MinColorCount)
	case o.Dither < DitherNone || o.Dither > Stucki:
		return invalidf("dither mode %d", int(o.Dither))
	case o.Method < palette.MethodKMeansPP || o.Method > palette.MethodDominant:
		return invalidf("palette method %d", int(o.Method))
	case o.Weights != (colorspace.Weights{}) && !o.Weights.Valid():
		return invalidf("distance weights %+v", o.Weights)
	case o.Preprocess.Contrast < 0 || o.Preprocess.Brightness < 0 || o.Preprocess.Saturation < 0:
		return invalidf("negative preprocessing factor")
	}
	return nil
}

// gridSize resolves a zero Width or Height from the source aspect ratio.
func (o Options) gridSize(src image.Point) image.Point {
	w, h := o.Width, o.Height
	switch {
	case w == 0:
		w = max(1, int(float64(h)*float64(src.X)/float64(src.Y)+0.5))
	case h == 0:
		h = max(1, int(float64(w)*float64(src.Y)/float64(src.X)+0.5))
	}
	return image.Pt(w, h)
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) optimizeOptions() OptimizeOptions {
	return OptimizeOptions{
		MaxColorTypes: o.MaxColorTypes,
		CollapseRare:  o.CollapseRare,
		MinColorCount: o.MinColorCount,
	}
}
