// Package beadgrid turns an image into a bead pattern: a grid of cells,
// each holding one color from a fixed, named palette.
package beadgrid

import (
	"context"
	"image"
	"time"

	"github.com/setanarut/beadgrid/palette"
	"github.com/setanarut/beadgrid/raster"
)

// Result is the outcome of one build.
type Result struct {
	Grid    *Grid
	Usage   Usage
	Palette palette.Palette // working palette the grid was mapped to
	Quality QualityReport
	Size    image.Point
}

// Builder runs the pattern pipeline. A Builder is safe for concurrent use;
// builds share only the lookup cache.
type Builder struct {
	Cache *palette.Cache
}

// NewBuilder returns a builder sharing cache across builds. A nil cache
// gets a fresh one with the default limit.
func NewBuilder(cache *palette.Cache) *Builder {
	if cache == nil {
		cache = palette.NewCache(0)
	}
	return &Builder{Cache: cache}
}

// BuildImage is Build for a decoded image.
func (b *Builder) BuildImage(ctx context.Context, img image.Image, candidates palette.Palette, opt Options) (*Result, error) {
	src, err := raster.FromImage(img)
	if err != nil {
		return nil, invalid(err)
	}
	return b.Build(ctx, src, candidates, opt)
}

// Build converts src into a pattern restricted to candidates:
// resize, preprocess, reduce the palette, map, optimize and analyze.
// Input errors wrap ErrInvalidInput; a done ctx yields ErrCanceled.
func (b *Builder) Build(ctx context.Context, src *raster.Buffer, candidates palette.Palette, opt Options) (*Result, error) {
	if err := src.Validate(); err != nil {
		return nil, invalid(err)
	}
	if len(candidates) == 0 {
		return nil, invalid(palette.ErrEmptyPalette)
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	weights := weightsOrDefault(opt.Weights)
	size := opt.gridSize(src.Size())
	logger := opt.logger().With("grid", size.String())
	start := time.Now()

	// ============ RESIZE ============
	mode := raster.Bicubic
	if opt.Precise {
		mode = raster.Nearest
	}
	opt.Progress.report(StageResize, 0)
	resized, err := raster.Resize(src, size.X, size.Y, mode)
	if err != nil {
		return nil, invalid(err)
	}
	// Bicubic output is opaque. The clustering population takes its alpha
	// from a nearest resample, which keeps the source alpha.
	mask := resized
	if mode == raster.Bicubic {
		if mask, err = raster.Resize(src, size.X, size.Y, raster.Nearest); err != nil {
			return nil, invalid(err)
		}
	}
	opt.Progress.report(StageResize, 100)
	logger.Debug("resized", "from", src.Size().String(), "mode", mode.String())

	// ============ PREPROCESS ============
	working := resized
	if !opt.Precise && !opt.Preprocess.Neutral() {
		opt.Progress.report(StagePreprocess, 0)
		working = Preprocess(resized, opt.Preprocess)
		opt.Progress.report(StagePreprocess, 100)
	}
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	// ============ REDUCE ============
	opt.Progress.report(StageReduce, 0)
	population, err := working.MaskedPixels(mask)
	if err != nil {
		return nil, invalid(err)
	}
	pal, err := palette.Reduce(population, candidates, opt.PaletteSize, palette.ReduceOptions{
		Method:  opt.Method,
		Rand:    opt.Rand,
		Weights: weights,
		Cache:   b.Cache,
		Logger:  logger,
	})
	if err != nil {
		return nil, invalid(err)
	}
	opt.Progress.report(StageReduce, 100)
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	// ============ MAP ============
	m, err := palette.NewMatcher(pal, weights, b.Cache)
	if err != nil {
		return nil, invalid(err)
	}
	g, err := Map(ctx, working, m, opt.Dither, opt.Progress)
	if err != nil {
		return nil, err
	}

	// ============ OPTIMIZE ============
	opt.Progress.report(StageOptimize, 0)
	recolored, err := Optimize(ctx, g, opt.optimizeOptions(), weights)
	if err != nil {
		return nil, err
	}
	opt.Progress.report(StageOptimize, 100)

	// ============ ANALYZE ============
	opt.Progress.report(StageAnalyze, 0)
	q, err := Analyze(ctx, resized, g, weights)
	if err != nil {
		return nil, err
	}
	opt.Progress.report(StageAnalyze, 100)

	usage := g.Usage()
	logger.Debug("built pattern",
		"population", len(population),
		"palette", len(pal),
		"colors", len(usage),
		"recolored", recolored,
		"avgDeltaE", q.Average,
		"elapsed", time.Since(start))

	return &Result{Grid: g, Usage: usage, Palette: pal, Quality: q, Size: size}, nil
}
