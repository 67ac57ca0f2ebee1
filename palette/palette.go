// Package palette holds named candidate colors (bead color lines), loads
// them from files, matches pixels against them and reduces a large
// candidate set to the few colors an image actually needs.
package palette

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"slices"

	"github.com/setanarut/beadgrid/colorspace"
)

var (
	// ErrEmptyPalette is returned when an operation needs at least one color.
	ErrEmptyPalette = errors.New("palette: no colors")
	// ErrDuplicateID is returned by the loaders when two colors share an ID.
	ErrDuplicateID = errors.New("palette: duplicate color id")
)

// Color is one named palette entry. Two colors with equal RGB but
// different IDs are distinct.
type Color struct {
	ID   string           `json:"id"`
	Name string           `json:"name,omitempty"`
	RGB  colorspace.Pixel `json:"-"`
}

// Hex returns the color as #rrggbb.
func (c Color) Hex() string {
	return c.RGB.Hex()
}

// Palette is an ordered set of colors. Apart from SortByLightness,
// functions in this package never modify a palette they are given.
type Palette []Color

// Index returns the position of the color with the given id, or -1.
func (p Palette) Index(id string) int {
	return slices.IndexFunc(p, func(c Color) bool { return c.ID == id })
}

// ByID returns the color with the given id.
func (p Palette) ByID(id string) (Color, bool) {
	if i := p.Index(id); i >= 0 {
		return p[i], true
	}
	return Color{}, false
}

// Clone returns a copy of p.
func (p Palette) Clone() Palette {
	return slices.Clone(p)
}

// Fingerprint identifies the palette contents and order. Matchers built
// over palettes with equal fingerprints return the same indices.
func (p Palette) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, c := range p {
		binary.LittleEndian.PutUint32(buf[:], uint32(len(c.ID)))
		h.Write(buf[:])
		h.Write([]byte(c.ID))
		h.Write([]byte{c.RGB.R, c.RGB.G, c.RGB.B})
	}
	return h.Sum64()
}

// SortByLightness orders colors from darkest to brightest by relative
// luminance. Equal luminances keep their order.
func SortByLightness(p Palette) {
	slices.SortStableFunc(p, func(a, b Color) int {
		ya, yb := luminance(a.RGB), luminance(b.RGB)
		if ya < yb {
			return -1
		}
		if ya > yb {
			return 1
		}
		return 0
	})
}

func luminance(p colorspace.Pixel) float64 {
	r, g, b := p.Colorful().LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}
