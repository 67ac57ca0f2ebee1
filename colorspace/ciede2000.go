package colorspace

import "math"

// Weights scale the lightness, chroma and hue terms of CIEDE2000
// (kL, kC, kH). The zero value is not usable; start from DefaultWeights.
type Weights struct {
	L, C, H float64
}

// DefaultWeights reduces DeltaE2000Weighted to plain CIEDE2000.
var DefaultWeights = Weights{L: 1, C: 1, H: 1}

// IsDefault reports whether w equals DefaultWeights.
func (w Weights) IsDefault() bool {
	return w == DefaultWeights
}

// Valid reports whether every weight is positive and finite.
func (w Weights) Valid() bool {
	for _, k := range [3]float64{w.L, w.C, w.H} {
		if !(k > 0) || math.IsInf(k, 0) {
			return false
		}
	}
	return true
}

const pow25to7 = 6103515625.0 // 25^7

func deg(rad float64) float64 { return rad * 180 / math.Pi }
func rad(deg float64) float64 { return deg * math.Pi / 180 }

// DeltaE2000 returns the CIEDE2000 color difference between a and b.
func DeltaE2000(a, b Lab) float64 {
	return DeltaE2000Weighted(a, b, DefaultWeights)
}

// DeltaE2000Weighted is DeltaE2000 with the parametric factors kL, kC and
// kH taken from w.
func DeltaE2000Weighted(c1, c2 Lab, w Weights) float64 {
	C1 := math.Hypot(c1.A, c1.B)
	C2 := math.Hypot(c2.A, c2.B)
	avgC := (C1 + C2) / 2
	avgC7 := math.Pow(avgC, 7)
	G := 0.5 * (1 - math.Sqrt(avgC7/(avgC7+pow25to7)))

	a1p := c1.A * (1 + G)
	a2p := c2.A * (1 + G)
	C1p := math.Hypot(a1p, c1.B)
	C2p := math.Hypot(a2p, c2.B)

	h1p := hueAngle(c1.B, a1p)
	h2p := hueAngle(c2.B, a2p)

	dLp := c2.L - c1.L
	dCp := C2p - C1p

	// Hue is undefined for achromatic colors.
	achromatic := C1p*C2p == 0

	var dhp float64
	switch {
	case achromatic:
		dhp = 0
	case math.Abs(h2p-h1p) <= 180:
		dhp = h2p - h1p
	case h2p-h1p > 180:
		dhp = h2p - h1p - 360
	default:
		dhp = h2p - h1p + 360
	}
	dHp := 2 * math.Sqrt(C1p*C2p) * math.Sin(rad(dhp)/2)

	avgLp := (c1.L + c2.L) / 2
	avgCp := (C1p + C2p) / 2

	var avghp float64
	switch {
	case achromatic:
		avghp = h1p + h2p
	case math.Abs(h1p-h2p) <= 180:
		avghp = (h1p + h2p) / 2
	case h1p+h2p < 360:
		avghp = (h1p + h2p + 360) / 2
	default:
		avghp = (h1p + h2p - 360) / 2
	}

	T := 1 - 0.17*math.Cos(rad(avghp-30)) +
		0.24*math.Cos(rad(2*avghp)) +
		0.32*math.Cos(rad(3*avghp+6)) -
		0.20*math.Cos(rad(4*avghp-63))

	dL50 := (avgLp - 50) * (avgLp - 50)
	SL := 1 + 0.015*dL50/math.Sqrt(20+dL50)
	SC := 1 + 0.045*avgCp
	SH := 1 + 0.015*avgCp*T

	dTheta := 30 * math.Exp(-((avghp-275)/25)*((avghp-275)/25))
	avgCp7 := math.Pow(avgCp, 7)
	RC := 2 * math.Sqrt(avgCp7/(avgCp7+pow25to7))
	RT := -RC * math.Sin(rad(2*dTheta))

	l := dLp / (w.L * SL)
	c := dCp / (w.C * SC)
	h := dHp / (w.H * SH)
	return math.Sqrt(l*l + c*c + h*h + RT*c*h)
}

// hueAngle returns atan2(b, a) in degrees within [0, 360).
func hueAngle(b, a float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	h := deg(math.Atan2(b, a))
	if h < 0 {
		h += 360
	}
	return h
}
