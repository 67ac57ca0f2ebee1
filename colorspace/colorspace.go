// Package colorspace converts 8-bit sRGB colors to CIE L*a*b* (D65) and
// measures perceptual differences between them with CIEDE2000.
package colorspace

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Pixel is an opaque 8-bit sRGB color.
type Pixel struct {
	R, G, B uint8
}

// Lab is a CIE L*a*b* color relative to the D65 white point.
type Lab struct {
	L, A, B float64
}

// D65 reference white, XYZ scaled so that Y = 1.
const (
	whiteX = 0.95047
	whiteY = 1.00000
	whiteZ = 1.08883

	epsilon = 0.008856
	kappa   = 903.3
)

// ============ RGB → LAB ============

func toLinear(v float64) float64 {
	if v > 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}

func fromLinear(v float64) float64 {
	if v > 0.0031308 {
		return 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	return v * 12.92
}

func labF(t float64) float64 {
	if t > epsilon {
		return math.Cbrt(t)
	}
	return (kappa*t + 16) / 116
}

func labFInv(f float64) float64 {
	if t := f * f * f; t > epsilon {
		return t
	}
	return (116*f - 16) / kappa
}

// ToLab converts p to L*a*b*.
func ToLab(p Pixel) Lab {
	r := toLinear(float64(p.R) / 255)
	g := toLinear(float64(p.G) / 255)
	b := toLinear(float64(p.B) / 255)

	x := (r*0.4124564 + g*0.3575761 + b*0.1804375) / whiteX
	y := (r*0.2126729 + g*0.7151522 + b*0.0721750) / whiteY
	z := (r*0.0193339 + g*0.1191920 + b*0.9503041) / whiteZ

	fx, fy, fz := labF(x), labF(y), labF(z)
	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

// ToRGB is the inverse of ToLab. Out-of-gamut values are clamped.
func ToRGB(lc Lab) Pixel {
	fy := (lc.L + 16) / 116
	fx := fy + lc.A/500
	fz := fy - lc.B/200

	x := labFInv(fx) * whiteX
	z := labFInv(fz) * whiteZ
	var y float64
	if lc.L > kappa*epsilon {
		y = fy * fy * fy
	} else {
		y = lc.L / kappa
	}
	y *= whiteY

	r := x*3.2404542 - y*1.5371385 - z*0.4985314
	g := -x*0.9692660 + y*1.8760108 + z*0.0415560
	b := x*0.0556434 - y*0.2040259 + z*1.0572252

	return Pixel{
		R: to8(fromLinear(r)),
		G: to8(fromLinear(g)),
		B: to8(fromLinear(b)),
	}
}

func to8(v float64) uint8 {
	return uint8(max(0, min(255, math.Round(v*255))))
}

// Lightness returns the L* component of p.
func Lightness(p Pixel) float64 {
	return ToLab(p).L
}

// ============ HEX ============

// Colorful returns p as a go-colorful color.
func (p Pixel) Colorful() colorful.Color {
	return colorful.Color{R: float64(p.R) / 255, G: float64(p.G) / 255, B: float64(p.B) / 255}
}

// Hex formats p as #RRGGBB.
func (p Pixel) Hex() string {
	return p.Colorful().Hex()
}

func (p Pixel) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", p.R, p.G, p.B)
}

// ParseHex parses #RRGGBB (or #RGB) notation.
func ParseHex(s string) (Pixel, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Pixel{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return Pixel{R: r, G: g, B: b}, nil
}
