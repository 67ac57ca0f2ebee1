package palette

import (
	"math"

	"github.com/setanarut/beadgrid/colorspace"
)

// LabTable holds the L*a*b* value of every palette entry, by index.
type LabTable []colorspace.Lab

// NewLabTable converts every color of p once.
func NewLabTable(p Palette) LabTable {
	t := make(LabTable, len(p))
	for i, c := range p {
		t[i] = colorspace.ToLab(c.RGB)
	}
	return t
}

// Matcher finds the perceptually closest palette entry for a color.
type Matcher struct {
	pal     Palette
	lab     LabTable
	weights colorspace.Weights
	fp      uint64
	cache   *Cache
}

// NewMatcher prepares lookups against p. A nil cache disables memoization;
// results are identical either way.
func NewMatcher(p Palette, w colorspace.Weights, cache *Cache) (*Matcher, error) {
	if len(p) == 0 {
		return nil, ErrEmptyPalette
	}
	return &Matcher{
		pal:     p,
		lab:     NewLabTable(p),
		weights: w,
		fp:      p.Fingerprint(),
		cache:   cache,
	}, nil
}

// Palette returns the colors the matcher chooses from.
func (m *Matcher) Palette() Palette { return m.pal }

// Lab returns the cached L*a*b* value of palette entry i.
func (m *Matcher) Lab(i int) colorspace.Lab { return m.lab[i] }

// Weights returns the CIEDE2000 weights used for matching.
func (m *Matcher) Weights() colorspace.Weights { return m.weights }

// Nearest returns the index of the closest palette color to p. Ties go to
// the earliest entry.
func (m *Matcher) Nearest(p colorspace.Pixel) int {
	k := cacheKey{rgb: p, palette: m.fp, weights: m.weights}
	if idx, ok := m.cache.get(k); ok {
		return idx
	}
	idx, _ := m.NearestLab(colorspace.ToLab(p))
	m.cache.put(k, idx)
	return idx
}

// NearestLab returns the index of the closest palette color to lc and its
// CIEDE2000 distance.
func (m *Matcher) NearestLab(lc colorspace.Lab) (int, float64) {
	best, bestDist := 0, math.MaxFloat64
	for i, v := range m.lab {
		d := colorspace.DeltaE2000Weighted(lc, v, m.weights)
		if d < bestDist {
			if d == 0 {
				return i, 0
			}
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// Distance returns the CIEDE2000 distance between p and palette entry i.
func (m *Matcher) Distance(p colorspace.Pixel, i int) float64 {
	return colorspace.DeltaE2000Weighted(colorspace.ToLab(p), m.lab[i], m.weights)
}
