package utils

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/setanarut/beadgrid"
	"github.com/setanarut/beadgrid/palette"
	"github.com/setanarut/beadgrid/raster"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ReadImage decodes a PNG, JPEG, GIF, BMP, TIFF or WebP file.
func ReadImage(path string) (*raster.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("could not decode %q: %w", path, err)
	}
	return raster.FromImage(img)
}

// SaveImage encodes img in the format named by the file extension. PNG is
// used when the extension is unknown.
func SaveImage(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 100})
	case ".gif":
		err = gif.Encode(f, img, nil)
	case ".bmp":
		err = bmp.Encode(f, img)
	case ".tif", ".tiff":
		err = tiff.Encode(f, img, nil)
	default:
		err = (&png.Encoder{CompressionLevel: png.BestCompression}).Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("could not write %q: %w", filename, err)
	}
	return nil
}

// SavePalette writes one tileSize square per color, left to right.
func SavePalette(p palette.Palette, tileSize int, filename string) error {
	if len(p) == 0 {
		return palette.ErrEmptyPalette
	}
	if tileSize <= 0 {
		tileSize = 64
	}
	img := image.NewRGBA(image.Rect(0, 0, tileSize*len(p), tileSize))
	for i, c := range p {
		rect := image.Rect(i*tileSize, 0, (i+1)*tileSize, tileSize)
		draw.Draw(img, rect, image.NewUniform(color.RGBA{R: c.RGB.R, G: c.RGB.G, B: c.RGB.B, A: 255}), image.Point{}, draw.Src)
	}
	return SaveImage(img, filename)
}

// Preview renders g with beadSize pixels per cell. Beads of 4 pixels or
// more are outlined with a one pixel grid line.
func Preview(g *beadgrid.Grid, beadSize int) *image.NRGBA {
	beadSize = max(1, beadSize)
	dst := image.NewNRGBA(image.Rect(0, 0, g.W*beadSize, g.H*beadSize))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), g.Image(), image.Rect(0, 0, g.W, g.H), draw.Src, nil)
	if beadSize < 4 {
		return dst
	}
	line := color.NRGBA{R: 64, G: 64, B: 64, A: 255}
	b := dst.Bounds()
	for y := 0; y < b.Dy(); y += beadSize {
		for x := range b.Dx() {
			dst.SetNRGBA(x, y, line)
		}
	}
	for x := 0; x < b.Dx(); x += beadSize {
		for y := range b.Dy() {
			dst.SetNRGBA(x, y, line)
		}
	}
	return dst
}

// SavePreview writes Preview(g, beadSize) to filename.
func SavePreview(g *beadgrid.Grid, beadSize int, filename string) error {
	return SaveImage(Preview(g, beadSize), filename)
}

// ColorLayers returns one mask per color in use, in Colors order. Cells of
// that color are white, all others black.
func ColorLayers(g *beadgrid.Grid) (palette.Palette, []*image.Gray) {
	colors := g.Colors()
	layers := make([]*image.Gray, len(colors))
	index := make(map[string]int, len(colors))
	for i, c := range colors {
		layers[i] = image.NewGray(image.Rect(0, 0, g.W, g.H))
		index[c.ID] = i
	}
	for _, c := range g.Cells {
		layers[index[c.Color.ID]].SetGray(c.X, c.Y, color.Gray{Y: 255})
	}
	return colors, layers
}

// SaveColorLayers writes each color mask to dir as layer_<ID>.png.
func SaveColorLayers(g *beadgrid.Grid, dir string) error {
	colors, layers := ColorLayers(g)
	for i := range layers {
		if err := SaveImage(layers[i], filepath.Join(dir, "layer_"+colors[i].ID+".png")); err != nil {
			return err
		}
	}
	return nil
}
