package beadgrid

import (
	"cmp"
	"image"
	"image/color"
	"slices"

	"github.com/setanarut/beadgrid/colorspace"
	"github.com/setanarut/beadgrid/palette"
)

// Cell is one bead: the palette color assigned to it and the pixel color
// it was matched from.
type Cell struct {
	X, Y   int
	Color  palette.Color
	Source colorspace.Pixel
}

// Grid is a row-major W×H pattern with its origin at the top left. Only
// cell colors change after creation.
type Grid struct {
	W, H  int
	Cells []Cell
}

func newGrid(w, h int) *Grid {
	g := &Grid{W: w, H: h, Cells: make([]Cell, w*h)}
	for y := range h {
		for x := range w {
			c := &g.Cells[y*w+x]
			c.X, c.Y = x, y
		}
	}
	return g
}

// At returns the cell at (x, y).
func (g *Grid) At(x, y int) *Cell {
	return &g.Cells[y*g.W+x]
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	return &Grid{W: g.W, H: g.H, Cells: slices.Clone(g.Cells)}
}

// Usage counts cells per palette color ID. It is recomputed from the cells
// on every call.
func (g *Grid) Usage() Usage {
	u := make(Usage)
	for i := range g.Cells {
		u[g.Cells[i].Color.ID]++
	}
	return u
}

// Colors returns the palette colors in use, in row-major first-seen order.
func (g *Grid) Colors() palette.Palette {
	seen := make(map[string]bool)
	var out palette.Palette
	for i := range g.Cells {
		c := g.Cells[i].Color
		if !seen[c.ID] {
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return out
}

// Distinct returns the number of colors in use.
func (g *Grid) Distinct() int {
	return len(g.Usage())
}

// Image renders one pixel per cell.
func (g *Grid) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.W, g.H))
	for i := range g.Cells {
		c := &g.Cells[i]
		p := c.Color.RGB
		img.SetNRGBA(c.X, c.Y, color.NRGBA{R: p.R, G: p.G, B: p.B, A: 255})
	}
	return img
}

// recolor replaces every cell whose color ID is a key of remap.
func (g *Grid) recolor(remap map[string]palette.Color) int {
	n := 0
	for i := range g.Cells {
		if to, ok := remap[g.Cells[i].Color.ID]; ok {
			g.Cells[i].Color = to
			n++
		}
	}
	return n
}

// Usage maps palette color IDs to cell counts.
type Usage map[string]int

// UsageEntry is one row of Usage.Sorted.
type UsageEntry struct {
	ID    string
	Count int
}

// Sorted lists the usage by count, most used first, then by ID.
func (u Usage) Sorted() []UsageEntry {
	out := make([]UsageEntry, 0, len(u))
	for id, n := range u {
		out = append(out, UsageEntry{ID: id, Count: n})
	}
	slices.SortFunc(out, func(a, b UsageEntry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Total returns the number of counted cells.
func (u Usage) Total() int {
	n := 0
	for _, c := range u {
		n += c
	}
	return n
}
