package beadgrid

import (
	"context"
	"math"

	"github.com/setanarut/beadgrid/palette"
	"github.com/setanarut/beadgrid/raster"
)

// ============ RECOMMEND ============

// Recommendation is a starting parameter set derived from image features.
type Recommendation struct {
	Kind        string
	Reason      string
	Width       int
	Height      int
	PaletteSize int
	Dither      Dither
	Preprocess  PreprocessOptions
}

// Apply copies the recommended values into opt.
func (r Recommendation) Apply(opt Options) Options {
	opt.Width, opt.Height = r.Width, r.Height
	opt.PaletteSize = r.PaletteSize
	opt.Dither = r.Dither
	opt.Preprocess = r.Preprocess
	return opt
}

// ImageStats are the features Recommend looks at, measured on a 100×100
// resample.
type ImageStats struct {
	Brightness   float64 // mean Rec.601 luma, 0-255
	ColorSpread  float64 // RMS distance from the mean color
	Diversity    int     // occupied cells of an 8×8×8 RGB grid
	EdgeDensity  float64 // share of pixels with a horizontal luma step > 30
	Aspect       float64 // source width / height
	SourcePixels int
}

const statsSide = 100

func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// MeasureImage computes ImageStats for src.
func MeasureImage(src *raster.Buffer) (ImageStats, error) {
	if err := src.Validate(); err != nil {
		return ImageStats{}, invalid(err)
	}
	small, err := raster.Resize(src, statsSide, statsSide, raster.Bicubic)
	if err != nil {
		return ImageStats{}, invalid(err)
	}
	st := ImageStats{
		Aspect:       float64(src.W) / float64(src.H),
		SourcePixels: src.W * src.H,
	}

	n := float64(statsSide * statsSide)
	var sumR, sumG, sumB, sumY float64
	buckets := make(map[[3]uint8]struct{})
	for y := range statsSide {
		for x := range statsSide {
			p := small.At(x, y)
			sumR += float64(p.R)
			sumG += float64(p.G)
			sumB += float64(p.B)
			sumY += luma(p.R, p.G, p.B)
			buckets[[3]uint8{p.R / 32, p.G / 32, p.B / 32}] = struct{}{}
		}
	}
	avgR, avgG, avgB := sumR/n, sumG/n, sumB/n
	st.Brightness = sumY / n
	st.Diversity = len(buckets)

	variance := 0.0
	edges := 0
	for y := range statsSide {
		for x := range statsSide {
			p := small.At(x, y)
			dr, dg, db := float64(p.R)-avgR, float64(p.G)-avgG, float64(p.B)-avgB
			variance += dr*dr + dg*dg + db*db
			if x == 0 || y == 0 || x == statsSide-1 || y == statsSide-1 {
				continue
			}
			l, r := small.At(x-1, y), small.At(x+1, y)
			c := luma(p.R, p.G, p.B)
			if math.Abs(c-luma(l.R, l.G, l.B)) > 30 || math.Abs(c-luma(r.R, r.G, r.B)) > 30 {
				edges++
			}
		}
	}
	st.ColorSpread = math.Sqrt(variance / n)
	st.EdgeDensity = float64(edges) / n
	return st, nil
}

// Recommend classifies src as pixel art, cartoon, portrait, landscape or
// dark photo and returns parameters suited to it.
func Recommend(src *raster.Buffer) (Recommendation, error) {
	st, err := MeasureImage(src)
	if err != nil {
		return Recommendation{}, err
	}
	return recommendFor(st), nil
}

func recommendFor(st ImageStats) Recommendation {
	sq := math.Sqrt(st.Aspect)
	switch {
	case st.Diversity < 50 && st.EdgeDensity > 0.15 && st.SourcePixels < 10000:
		return Recommendation{
			Kind: "pixel-art", Reason: "few colors and hard edges",
			Width: 25, Height: 25, PaletteSize: 8, Dither: DitherNone,
			Preprocess: PreprocessOptions{Contrast: 1.5, Brightness: 1, Saturation: 1.2},
		}
	case st.EdgeDensity > 0.2 && st.ColorSpread > 70:
		return Recommendation{
			Kind: "cartoon", Reason: "clear outlines and vivid colors",
			Width: int(math.Round(40 * sq)), Height: int(math.Round(40 / sq)),
			PaletteSize: 12, Dither: FloydSteinberg,
			Preprocess: PreprocessOptions{Contrast: 1.4, Brightness: 1, Saturation: 1.3, Sharpen: true, SharpenAmount: 0.5},
		}
	case st.Brightness > 120 && st.ColorSpread < 60 && st.Aspect > 0.7 && st.Aspect < 1.3:
		return Recommendation{
			Kind: "portrait", Reason: "soft gradients; gentle dithering keeps skin tones even",
			Width: 40, Height: 50, PaletteSize: 16, Dither: Atkinson,
			Preprocess: PreprocessOptions{Contrast: 1.3, Brightness: 1.1, Saturation: 1, Sharpen: true, SharpenAmount: 0.5},
		}
	case st.Aspect > 1.2 && st.Diversity > 150:
		return Recommendation{
			Kind: "landscape", Reason: "wide layout with rich colors",
			Width: 50, Height: 40, PaletteSize: 20, Dither: FloydSteinberg,
			Preprocess: PreprocessOptions{Contrast: 1.2, Brightness: 1, Saturation: 1.2, Sharpen: true, SharpenAmount: 0.5},
		}
	case st.Brightness < 80:
		return Recommendation{
			Kind: "dark", Reason: "dark image; brightness and contrast raised",
			Width: 35, Height: 35, PaletteSize: 14, Dither: FloydSteinberg,
			Preprocess: PreprocessOptions{Contrast: 1.5, Brightness: 1.2, Saturation: 1.1, Sharpen: true, SharpenAmount: 0.5},
		}
	}
	return Recommendation{
		Kind: "general", Reason: "general purpose settings",
		Width: 35, Height: 35, PaletteSize: 14, Dither: FloydSteinberg,
		Preprocess: PreprocessOptions{Contrast: 1.3, Brightness: 1, Saturation: 1.1, Sharpen: true, SharpenAmount: 0.5},
	}
}

// ============ FEEDBACK ============

// Suggest proposes options likely to lower the average ΔE of a build that
// produced q. It returns false when it has nothing left to try.
// candidateCount bounds the palette size.
func Suggest(q QualityReport, opt Options, candidateCount int) (Options, bool) {
	if q.Total == 0 || q.Average < GoodBelow && q.Share(q.Poor) <= 5 {
		return opt, false
	}
	canGrow := opt.PaletteSize > 0 && opt.PaletteSize < candidateCount
	switch {
	case q.Share(q.Poor) > 10 && canGrow:
		opt.PaletteSize = min(candidateCount, opt.PaletteSize+4)
	case opt.MaxColorTypes > 0 && opt.MaxColorTypes < opt.PaletteSize:
		opt.MaxColorTypes = 0
	case opt.CollapseRare:
		opt.CollapseRare = false
	case canGrow:
		opt.PaletteSize = min(candidateCount, opt.PaletteSize+2)
	case opt.Dither == DitherNone:
		opt.Dither = FloydSteinberg
	default:
		return opt, false
	}
	return opt, true
}

// BuildTuned builds once, then follows Suggest for up to rounds more builds
// and returns the result with the lowest average ΔE together with the
// options that produced it. Every round draws from the same opt.Rand.
func (b *Builder) BuildTuned(ctx context.Context, src *raster.Buffer, candidates palette.Palette, opt Options, rounds int) (*Result, Options, error) {
	best, err := b.Build(ctx, src, candidates, opt)
	if err != nil {
		return nil, opt, err
	}
	bestOpt := opt
	for round := range rounds {
		next, ok := Suggest(best.Quality, bestOpt, len(candidates))
		if !ok {
			break
		}
		res, err := b.Build(ctx, src, candidates, next)
		if err != nil {
			return nil, opt, err
		}
		opt.logger().Debug("tuning round",
			"round", round+1,
			"avgDeltaE", res.Quality.Average,
			"best", best.Quality.Average)
		if res.Quality.Average >= best.Quality.Average {
			break
		}
		best, bestOpt = res, next
	}
	return best, bestOpt, nil
}
