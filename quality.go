package beadgrid

import (
	"context"
	"slices"

	"github.com/setanarut/beadgrid/colorspace"
	"github.com/setanarut/beadgrid/raster"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Severity band upper bounds in ΔE2000 units.
const (
	ExcellentBelow = 2.0
	GoodBelow      = 5.0
	FairBelow      = 10.0
)

// QualityReport summarizes the ΔE2000 distance between source pixels and
// their assigned colors. The four band counts always add up to Total.
type QualityReport struct {
	Total   int     `json:"total"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	StdDev  float64 `json:"stddev"`
	Median  float64 `json:"median"`
	P95     float64 `json:"p95"`

	Excellent int `json:"excellent"` // < 2
	Good      int `json:"good"`      // < 5
	Fair      int `json:"fair"`      // < 10
	Poor      int `json:"poor"`      // >= 10
}

// Share returns n as a percentage of Total.
func (q QualityReport) Share(n int) float64 {
	if q.Total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(q.Total)
}

// Analyze measures g against src, which must be aligned 1:1 with the
// cells. Every cell is visited exactly once.
func Analyze(ctx context.Context, src *raster.Buffer, g *Grid, w colorspace.Weights) (QualityReport, error) {
	if err := src.Validate(); err != nil {
		return QualityReport{}, invalid(err)
	}
	if g == nil || g.W != src.W || g.H != src.H || len(g.Cells) != g.W*g.H {
		return QualityReport{}, invalidf("grid does not match %dx%d source", src.W, src.H)
	}
	if w == (colorspace.Weights{}) {
		w = colorspace.DefaultWeights
	}

	labs := make(map[colorspace.Pixel]colorspace.Lab)
	lab := func(p colorspace.Pixel) colorspace.Lab {
		if v, ok := labs[p]; ok {
			return v
		}
		v := colorspace.ToLab(p)
		labs[p] = v
		return v
	}

	var q QualityReport
	dist := make([]float64, 0, len(g.Cells))
	for y := range g.H {
		if err := checkCanceled(ctx); err != nil {
			return QualityReport{}, err
		}
		for x := range g.W {
			d := colorspace.DeltaE2000Weighted(lab(src.At(x, y)), lab(g.At(x, y).Color.RGB), w)
			dist = append(dist, d)
			switch {
			case d < ExcellentBelow:
				q.Excellent++
			case d < GoodBelow:
				q.Good++
			case d < FairBelow:
				q.Fair++
			default:
				q.Poor++
			}
		}
	}

	q.Total = len(dist)
	q.Min = floats.Min(dist)
	q.Max = floats.Max(dist)
	mean, std := stat.MeanStdDev(dist, nil)
	// Summation can land a hair outside the extremes.
	q.Average = max(q.Min, min(q.Max, mean))
	if q.Total > 1 {
		q.StdDev = std
	}
	slices.Sort(dist)
	q.Median = stat.Quantile(0.5, stat.Empirical, dist, nil)
	q.P95 = stat.Quantile(0.95, stat.Empirical, dist, nil)
	return q, nil
}
