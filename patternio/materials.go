package patternio

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/setanarut/beadgrid"
)

// Material is one line of a shopping list.
type Material struct {
	ID, Name, Hex string
	Count         int
	Percent       float64
}

// Materials lists the colors g uses, most used first.
func Materials(g *beadgrid.Grid) []Material {
	u := g.Usage()
	total := u.Total()
	colors := g.Colors()
	out := make([]Material, 0, len(u))
	for _, e := range u.Sorted() {
		c, _ := colors.ByID(e.ID)
		out = append(out, Material{
			ID:      e.ID,
			Name:    c.Name,
			Hex:     c.Hex(),
			Count:   e.Count,
			Percent: 100 * float64(e.Count) / float64(total),
		})
	}
	return out
}

// WriteMaterialList prints the materials of g as an aligned table followed
// by a total line.
func WriteMaterialList(w io.Writer, g *beadgrid.Grid) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tHEX\tCOUNT\tSHARE")
	for _, m := range Materials(g) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f%%\n", m.ID, m.Name, m.Hex, m.Count, m.Percent)
	}
	fmt.Fprintf(tw, "total\t\t\t%d\t\n", len(g.Cells))
	return tw.Flush()
}
