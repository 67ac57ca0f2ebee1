package palette

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/setanarut/beadgrid/colorspace"
)

// Method selects how the pixel population is summarized into clusters
// before clusters are matched to candidate colors.
type Method int

const (
	// MethodKMeansPP is weighted K-means with K-means++ seeding, measured
	// with CIEDE2000. Reproducible for a given random source.
	MethodKMeansPP Method = iota
	// MethodKMeans partitions L*a*b* coordinates with muesli/kmeans. Faster
	// on large populations, but seeded internally and not reproducible.
	MethodKMeans
	// MethodDominant uses dominantcolor's weighted dominant colors.
	MethodDominant
)

func (m Method) String() string {
	switch m {
	case MethodKMeans:
		return "kmeans"
	case MethodDominant:
		return "dominant"
	default:
		return "kmeans++"
	}
}

// ParseMethod is the inverse of Method.String.
func ParseMethod(s string) (Method, error) {
	for _, m := range []Method{MethodKMeansPP, MethodKMeans, MethodDominant} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown palette method %q", s)
}

const (
	maxClusters      = 48
	clusterFactor    = 3
	maxIterations    = 15
	scoreFalloff     = 10.0
	minPaletteFloor  = 4
	keyContrastRange = 50.0
	darkKeyL         = 30.0
	darkSupportL     = 40.0
	lightKeyL        = 80.0
	lightSupportL    = 70.0
	maxKMeansSamples = 12000
)

// Cluster is one group of similar pixels. Weight is the number of pixels
// assigned to it in the final iteration.
type Cluster struct {
	Center colorspace.Pixel
	Lab    colorspace.Lab
	Weight int
}

// ReduceOptions tunes Reduce. The zero value uses K-means++ with an
// entropy-seeded random source and plain CIEDE2000.
type ReduceOptions struct {
	Method Method
	// Rand seeds K-means++. Nil draws a fresh seed.
	Rand *rand.Rand
	// Weights for CIEDE2000. The zero value selects DefaultWeights.
	Weights colorspace.Weights
	// Cache memoizes center-to-candidate lookups. May be nil.
	Cache  *Cache
	Logger *slog.Logger
}

// sample is one distinct pixel color with its occurrence count.
type sample struct {
	rgb   colorspace.Pixel
	lab   colorspace.Lab
	count int
}

// distinct groups pixels by color in first-appearance order.
func distinct(pixels []colorspace.Pixel) []sample {
	index := make(map[colorspace.Pixel]int)
	var out []sample
	for _, p := range pixels {
		if i, ok := index[p]; ok {
			out[i].count++
			continue
		}
		index[p] = len(out)
		out = append(out, sample{rgb: p, lab: colorspace.ToLab(p), count: 1})
	}
	return out
}

// Reduce selects at most targetSize candidates that best represent pixels.
// The result is a subset of candidates holding at least min(4, targetSize)
// colors. When targetSize <= 0 or >= len(candidates) the full candidate set
// is returned; an empty population returns the first targetSize candidates.
func Reduce(pixels []colorspace.Pixel, candidates Palette, targetSize int, opt ReduceOptions) (Palette, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyPalette
	}
	if targetSize <= 0 || targetSize >= len(candidates) {
		return candidates.Clone(), nil
	}
	if len(pixels) == 0 {
		return candidates[:targetSize].Clone(), nil
	}

	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	weights := opt.Weights
	if weights == (colorspace.Weights{}) {
		weights = colorspace.DefaultWeights
	}
	rng := opt.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	samples := distinct(pixels)
	k := min(targetSize*clusterFactor, len(pixels), maxClusters)

	var cl []Cluster
	switch opt.Method {
	case MethodKMeans:
		var err error
		if cl, err = clusterKMeans(pixels, min(k, len(samples))); err != nil {
			logger.Debug("kmeans failed, falling back to kmeans++", "error", err)
			cl = clusterKMeansPP(samples, k, rng, weights)
		}
	case MethodDominant:
		cl = clusterDominant(pixels, min(k, len(samples)))
	default:
		cl = clusterKMeansPP(samples, k, rng, weights)
	}

	m, err := NewMatcher(candidates, weights, opt.Cache)
	if err != nil {
		return nil, err
	}
	sel := selectCandidates(m, cl, samples, targetSize)

	out := make(Palette, len(sel))
	for i, idx := range sel {
		out[i] = candidates[idx]
	}
	logger.Debug("reduced palette",
		"method", opt.Method.String(),
		"pixels", len(pixels),
		"distinct", len(samples),
		"clusters", len(cl),
		"candidates", len(candidates),
		"selected", len(out))
	return out, nil
}

// selectCandidates scores candidates against clusters, keeps the best
// targetSize, enforces key colors and tops up to the floor. It returns
// candidate indices.
func selectCandidates(m *Matcher, cl []Cluster, samples []sample, targetSize int) []int {
	n := len(m.Palette())
	score := make([]float64, n)
	for _, c := range cl {
		if c.Weight == 0 {
			continue
		}
		idx := m.Nearest(c.Center)
		d := m.Distance(c.Center, idx)
		score[idx] += float64(c.Weight) * math.Exp(-d/scoreFalloff)
	}

	ranked := make([]int, 0, n)
	for i, s := range score {
		if s > 0 {
			ranked = append(ranked, i)
		}
	}
	slices.SortStableFunc(ranked, func(a, b int) int {
		switch {
		case score[a] > score[b]:
			return -1
		case score[a] < score[b]:
			return 1
		}
		return 0
	})
	sel := ranked[:min(targetSize, len(ranked))]

	used := make([]bool, n)
	for _, i := range sel {
		used[i] = true
	}
	protected := make([]bool, n)

	add := func(idx int) {
		if len(sel) < targetSize {
			sel = append(sel, idx)
			used[idx], protected[idx] = true, true
			return
		}
		// sel is ordered by score; replace the lowest unprotected entry.
		for j := len(sel) - 1; j >= 0; j-- {
			if !protected[sel[j]] {
				used[sel[j]] = false
				sel[j] = idx
				used[idx], protected[idx] = true, true
				return
			}
		}
	}

	minL, maxL := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		minL = min(minL, s.lab.L)
		maxL = max(maxL, s.lab.L)
	}
	if maxL-minL > keyContrastRange {
		has := func(pred func(l float64) bool) bool {
			return slices.ContainsFunc(sel, func(i int) bool { return pred(m.Lab(i).L) })
		}
		if minL < darkSupportL && !has(func(l float64) bool { return l < darkKeyL }) {
			if idx := extremeCandidate(m, used, func(l, best float64) bool { return l < darkKeyL && l < best }, math.Inf(1)); idx >= 0 {
				add(idx)
			}
		}
		if maxL > lightSupportL && !has(func(l float64) bool { return l > lightKeyL }) {
			if idx := extremeCandidate(m, used, func(l, best float64) bool { return l > lightKeyL && l > best }, math.Inf(-1)); idx >= 0 {
				add(idx)
			}
		}
	}

	floor := min(minPaletteFloor, targetSize)
	for i := 0; i < n && len(sel) < floor; i++ {
		if !used[i] {
			used[i] = true
			sel = append(sel, i)
		}
	}
	return sel
}

// extremeCandidate returns the unused candidate with the most extreme
// lightness according to better, or -1 when none qualifies.
func extremeCandidate(m *Matcher, used []bool, better func(l, best float64) bool, start float64) int {
	idx, best := -1, start
	for i := range m.Palette() {
		if used[i] {
			continue
		}
		if l := m.Lab(i).L; better(l, best) {
			idx, best = i, l
		}
	}
	return idx
}

// ============ K-MEANS++ ============

// clusterKMeansPP runs weighted K-means over distinct colors. Every loop
// walks samples and centers in a fixed order so results only depend on rng.
func clusterKMeansPP(samples []sample, k int, rng *rand.Rand, w colorspace.Weights) []Cluster {
	centers := seedCenters(samples, k, rng, w)

	assign := make([]int, len(samples))
	for i := range assign {
		assign[i] = -1
	}
	weight := make([]int, len(centers))

	for range maxIterations {
		changed := false
		for i, s := range samples {
			c := nearestCenter(centers, s.lab, w)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([]colorspace.Lab, len(centers))
		clear(weight)
		for i, s := range samples {
			c := assign[i]
			n := float64(s.count)
			sums[c].L += s.lab.L * n
			sums[c].A += s.lab.A * n
			sums[c].B += s.lab.B * n
			weight[c] += s.count
		}
		for c := range centers {
			if weight[c] == 0 {
				continue
			}
			n := float64(weight[c])
			centers[c] = colorspace.Lab{L: sums[c].L / n, A: sums[c].A / n, B: sums[c].B / n}
		}
	}

	clear(weight)
	for i, s := range samples {
		weight[assign[i]] += s.count
	}
	out := make([]Cluster, len(centers))
	for c, lc := range centers {
		out[c] = Cluster{Center: colorspace.ToRGB(lc), Lab: lc, Weight: weight[c]}
	}
	return out
}

// seedCenters picks the first center with probability proportional to
// pixel count, then each next one proportional to count times the squared
// distance to the closest chosen center. It stops early once every sample
// coincides with a center.
func seedCenters(samples []sample, k int, rng *rand.Rand, w colorspace.Weights) []colorspace.Lab {
	total := 0
	for _, s := range samples {
		total += s.count
	}
	r := rng.IntN(total)
	first := 0
	for i, s := range samples {
		if r < s.count {
			first = i
			break
		}
		r -= s.count
	}
	centers := make([]colorspace.Lab, 1, k)
	centers[0] = samples[first].lab

	dist := make([]float64, len(samples))
	for i, s := range samples {
		dist[i] = colorspace.DeltaE2000Weighted(s.lab, centers[0], w)
	}
	for len(centers) < k {
		sum := 0.0
		for i, s := range samples {
			sum += dist[i] * dist[i] * float64(s.count)
		}
		if sum == 0 {
			break
		}
		target := rng.Float64() * sum
		next := len(samples) - 1
		for i, s := range samples {
			target -= dist[i] * dist[i] * float64(s.count)
			if target < 0 {
				next = i
				break
			}
		}
		c := samples[next].lab
		centers = append(centers, c)
		for i, s := range samples {
			dist[i] = min(dist[i], colorspace.DeltaE2000Weighted(s.lab, c, w))
		}
	}
	return centers
}

func nearestCenter(centers []colorspace.Lab, lc colorspace.Lab, w colorspace.Weights) int {
	best, bestDist := 0, math.MaxFloat64
	for i, c := range centers {
		if d := colorspace.DeltaE2000Weighted(lc, c, w); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// ============ MUESLI K-MEANS ============

// clusterKMeans subsamples the population to keep kmeans tractable on
// large images.
func clusterKMeans(pixels []colorspace.Pixel, k int) ([]Cluster, error) {
	step := 1
	if len(pixels) > maxKMeansSamples {
		step = len(pixels)/maxKMeansSamples + 1
	}
	dataset := make(clusters.Observations, 0, len(pixels)/step+1)
	for i := 0; i < len(pixels); i += step {
		lc := colorspace.ToLab(pixels[i])
		dataset = append(dataset, clusters.Coordinates{lc.L, lc.A, lc.B})
	}
	k = min(k, len(dataset))

	cc, err := kmeans.New().Partition(dataset, k)
	if err != nil {
		return nil, err
	}
	out := make([]Cluster, 0, len(cc))
	for _, c := range cc {
		if len(c.Observations) == 0 || len(c.Center) < 3 {
			continue
		}
		lc := colorspace.Lab{L: c.Center[0], A: c.Center[1], B: c.Center[2]}
		out = append(out, Cluster{Center: colorspace.ToRGB(lc), Lab: lc, Weight: len(c.Observations) * step})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("kmeans returned no clusters")
	}
	return out, nil
}

// ============ DOMINANT COLORS ============

// clusterDominant lays the population out as a near-square image and asks
// dominantcolor for k weighted colors.
func clusterDominant(pixels []colorspace.Pixel, k int) []Cluster {
	w := int(math.Ceil(math.Sqrt(float64(len(pixels)))))
	h := (len(pixels) + w - 1) / w
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range w * h {
		p := pixels[i%len(pixels)]
		img.SetNRGBA(i%w, i/w, color.NRGBA{R: p.R, G: p.G, B: p.B, A: 255})
	}

	found := dominantcolor.FindWeight(img, k)
	out := make([]Cluster, 0, len(found))
	for _, c := range found {
		p := colorspace.Pixel{R: c.RGBA.R, G: c.RGBA.G, B: c.RGBA.B}
		out = append(out, Cluster{
			Center: p,
			Lab:    colorspace.ToLab(p),
			Weight: max(1, int(math.Round(c.Weight*float64(len(pixels))))),
		})
	}
	return out
}
