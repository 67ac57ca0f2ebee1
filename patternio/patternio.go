// Package patternio reads and writes finished bead patterns.
//
// A pattern file is a JSON document holding the grid size, the colors it
// uses and one palette index per cell in row-major order. Files may be
// zstd compressed; Decode detects compression from the frame magic.
package patternio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/compress/zstd"
	"github.com/setanarut/beadgrid"
	"github.com/setanarut/beadgrid/colorspace"
	"github.com/setanarut/beadgrid/palette"
)

// FormatVersion identifies the document layout.
const FormatVersion = "beadgrid/1"

// ErrFormat is returned for documents Decode cannot interpret.
var ErrFormat = errors.New("patternio: malformed pattern")

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Pattern is a grid together with the palette its cells index into.
type Pattern struct {
	Grid    *beadgrid.Grid
	Palette palette.Palette
	Quality *beadgrid.QualityReport
}

// FromResult wraps a build result.
func FromResult(r *beadgrid.Result) *Pattern {
	q := r.Quality
	return &Pattern{Grid: r.Grid, Palette: r.Palette, Quality: &q}
}

// EncodeOptions controls Encode.
type EncodeOptions struct {
	// Compress wraps the document in a zstd frame.
	Compress bool
	// Sources stores each cell's source pixel so the pattern can be
	// analyzed again without the original image.
	Sources bool
}

type document struct {
	Format  string                  `json:"format"`
	Width   int                     `json:"width"`
	Height  int                     `json:"height"`
	Palette []entry                 `json:"palette"`
	Cells   []int                   `json:"cells"`
	Source  []string                `json:"source,omitempty"`
	Quality *beadgrid.QualityReport `json:"quality,omitempty"`
}

type entry struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Hex  string `json:"hex"`
}

// Encode writes p to w.
func Encode(w io.Writer, p *Pattern, opt EncodeOptions) error {
	doc, err := toDocument(p, opt.Sources)
	if err != nil {
		return err
	}
	if !opt.Compress {
		return json.NewEncoder(w).Encode(doc)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(runtime.NumCPU()))
	if err != nil {
		return err
	}
	if err := json.NewEncoder(enc).Encode(doc); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func toDocument(p *Pattern, sources bool) (*document, error) {
	g := p.Grid
	if g == nil || g.W <= 0 || g.H <= 0 || len(g.Cells) != g.W*g.H {
		return nil, fmt.Errorf("%w: grid has no cells", ErrFormat)
	}
	pal := p.Palette
	if len(pal) == 0 {
		pal = g.Colors()
	}
	index := make(map[string]int, len(pal))
	doc := &document{
		Format:  FormatVersion,
		Width:   g.W,
		Height:  g.H,
		Palette: make([]entry, len(pal)),
		Cells:   make([]int, len(g.Cells)),
		Quality: p.Quality,
	}
	for i, c := range pal {
		if _, dup := index[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate color id %q", ErrFormat, c.ID)
		}
		index[c.ID] = i
		doc.Palette[i] = entry{ID: c.ID, Name: c.Name, Hex: c.Hex()}
	}
	if sources {
		doc.Source = make([]string, len(g.Cells))
	}
	for i := range g.Cells {
		c := &g.Cells[i]
		idx, ok := index[c.Color.ID]
		if !ok {
			return nil, fmt.Errorf("%w: cell (%d,%d) uses %q outside the palette", ErrFormat, c.X, c.Y, c.Color.ID)
		}
		doc.Cells[i] = idx
		if sources {
			doc.Source[i] = c.Source.Hex()
		}
	}
	return doc, nil
}

// Decode reads a pattern written by Encode, compressed or not.
func Decode(r io.Reader) (*Pattern, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))
	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		src = dec
	}

	var doc document
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return fromDocument(&doc)
}

func fromDocument(doc *document) (*Pattern, error) {
	if doc.Format != FormatVersion {
		return nil, fmt.Errorf("%w: unknown format %q", ErrFormat, doc.Format)
	}
	if doc.Width <= 0 || doc.Height <= 0 || len(doc.Cells) != doc.Width*doc.Height {
		return nil, fmt.Errorf("%w: %d cells for %dx%d", ErrFormat, len(doc.Cells), doc.Width, doc.Height)
	}
	if doc.Source != nil && len(doc.Source) != len(doc.Cells) {
		return nil, fmt.Errorf("%w: %d source pixels for %d cells", ErrFormat, len(doc.Source), len(doc.Cells))
	}

	pal := make(palette.Palette, len(doc.Palette))
	seen := make(map[string]bool, len(doc.Palette))
	for i, e := range doc.Palette {
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: duplicate color id %q", ErrFormat, e.ID)
		}
		seen[e.ID] = true
		rgb, err := colorspace.ParseHex(e.Hex)
		if err != nil {
			return nil, fmt.Errorf("%w: color %q: %w", ErrFormat, e.ID, err)
		}
		pal[i] = palette.Color{ID: e.ID, Name: e.Name, RGB: rgb}
	}

	g := &beadgrid.Grid{W: doc.Width, H: doc.Height, Cells: make([]beadgrid.Cell, len(doc.Cells))}
	for i, idx := range doc.Cells {
		if idx < 0 || idx >= len(pal) {
			return nil, fmt.Errorf("%w: cell %d has palette index %d", ErrFormat, i, idx)
		}
		c := &g.Cells[i]
		c.X, c.Y = i%doc.Width, i/doc.Width
		c.Color = pal[idx]
		c.Source = pal[idx].RGB
		if doc.Source != nil {
			s, err := colorspace.ParseHex(doc.Source[i])
			if err != nil {
				return nil, fmt.Errorf("%w: source of cell %d: %w", ErrFormat, i, err)
			}
			c.Source = s
		}
	}
	return &Pattern{Grid: g, Palette: pal, Quality: doc.Quality}, nil
}
