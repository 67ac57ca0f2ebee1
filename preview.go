package beadgrid

import (
	"context"

	"github.com/setanarut/beadgrid/palette"
	"github.com/setanarut/beadgrid/raster"
)

const (
	previewSide    = 15
	previewPalette = 8
)

// QuickPreview builds a rough pattern at most 15 beads on a side with up to
// 8 colors. It runs the same resize, reduce and map steps as Build, so the
// preview looks like a scaled-down final result. Cleanup passes are
// skipped.
func (b *Builder) QuickPreview(ctx context.Context, src *raster.Buffer, candidates palette.Palette, opt Options) (*Result, error) {
	if err := src.Validate(); err != nil {
		return nil, invalid(err)
	}
	size := raster.FitSize(src.W, src.H, previewSide)
	opt.Width, opt.Height = size.X, size.Y
	opt.PaletteSize = min(previewPalette, len(candidates))
	opt.MaxColorTypes = 0
	opt.CollapseRare = false
	return b.Build(ctx, src, candidates, opt)
}
