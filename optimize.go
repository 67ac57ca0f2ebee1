package beadgrid

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/setanarut/beadgrid/colorspace"
	"github.com/setanarut/beadgrid/palette"
)

// rareShare is the usage share below which a color counts as rare when no
// explicit minimum is given.
const rareShare = 0.005

// DefaultMinColorCount returns max(1, ceil(0.5% of cells)).
func DefaultMinColorCount(cells int) int {
	return max(1, int(math.Ceil(rareShare*float64(cells))))
}

// CollapseRareColors remaps every color used by fewer than minCount cells
// onto the closest color that is used at least minCount times. With
// minCount <= 0 the default from DefaultMinColorCount applies. Nothing
// changes when no color is rare or every color is. It returns the number
// of recolored cells; a second run with the same minCount recolors none.
func CollapseRareColors(ctx context.Context, g *Grid, minCount int, w colorspace.Weights) (int, error) {
	if err := checkCanceled(ctx); err != nil {
		return 0, err
	}
	if minCount <= 0 {
		minCount = DefaultMinColorCount(len(g.Cells))
	}
	usage := g.Usage()
	var low, high palette.Palette
	for _, c := range g.Colors() {
		if usage[c.ID] < minCount {
			low = append(low, c)
		} else {
			high = append(high, c)
		}
	}
	if len(low) == 0 || len(high) == 0 {
		return 0, nil
	}

	m, err := palette.NewMatcher(high, weightsOrDefault(w), nil)
	if err != nil {
		return 0, invalid(err)
	}
	remap := make(map[string]palette.Color, len(low))
	for _, c := range low {
		idx, _ := m.NearestLab(colorspace.ToLab(c.RGB))
		remap[c.ID] = high[idx]
	}
	if err := checkCanceled(ctx); err != nil {
		return 0, err
	}
	return g.recolor(remap), nil
}

// CapColorCount keeps the maxTypes most used colors (earlier first use wins
// ties) and reassigns every other cell to the kept color nearest to its
// source pixel. It is a no-op when maxTypes <= 0 or the grid already uses
// at most maxTypes colors. It returns the number of recolored cells.
// ctx is checked once per row; on cancellation the grid may be partly
// recolored.
func CapColorCount(ctx context.Context, g *Grid, maxTypes int, w colorspace.Weights) (int, error) {
	if err := checkCanceled(ctx); err != nil {
		return 0, err
	}
	if maxTypes <= 0 {
		return 0, nil
	}
	usage := g.Usage()
	if len(usage) <= maxTypes {
		return 0, nil
	}

	used := g.Colors()
	slices.SortStableFunc(used, func(a, b palette.Color) int {
		return cmp.Compare(usage[b.ID], usage[a.ID])
	})
	kept := used[:maxTypes]
	keep := make(map[string]bool, maxTypes)
	for _, c := range kept {
		keep[c.ID] = true
	}

	m, err := palette.NewMatcher(kept, weightsOrDefault(w), nil)
	if err != nil {
		return 0, invalid(err)
	}
	n := 0
	for i := range g.Cells {
		if g.W > 0 && i%g.W == 0 {
			if err := checkCanceled(ctx); err != nil {
				return n, err
			}
		}
		c := &g.Cells[i]
		if keep[c.Color.ID] {
			continue
		}
		c.Color = kept[m.Nearest(c.Source)]
		n++
	}
	return n, nil
}

// OptimizeOptions selects the cleanup passes run by Optimize.
type OptimizeOptions struct {
	// MaxColorTypes caps the distinct colors in the grid. 0 disables.
	MaxColorTypes int
	// CollapseRare merges rarely used colors into common ones.
	CollapseRare bool
	// MinColorCount is the rarity threshold. 0 selects DefaultMinColorCount.
	MinColorCount int
}

// Optimize caps the color count first and collapses rare colors second;
// reversing the order gives different grids. It returns the number of
// recolorings performed. A done ctx stops it with ErrCanceled.
func Optimize(ctx context.Context, g *Grid, opt OptimizeOptions, w colorspace.Weights) (int, error) {
	n, err := CapColorCount(ctx, g, opt.MaxColorTypes, w)
	if err != nil || !opt.CollapseRare {
		return n, err
	}
	m, err := CollapseRareColors(ctx, g, opt.MinColorCount, w)
	return n + m, err
}

func weightsOrDefault(w colorspace.Weights) colorspace.Weights {
	if w == (colorspace.Weights{}) {
		return colorspace.DefaultWeights
	}
	return w
}
