package colorspace

import (
	"math"
	"testing"
)

func TestDeltaE2000ReferencePairs(t *testing.T) {
	// Sharma, Wu & Dalal test data.
	for _, tc := range []struct {
		name string
		a, b Lab
		want float64
	}{
		{"pair01", Lab{50, 2.6772, -79.7751}, Lab{50, 0, -82.7485}, 2.0425},
		{"pair07_achromatic", Lab{50, 0, 0}, Lab{50, -1, 2}, 2.3669},
		{"pair17", Lab{50, 2.5, 0}, Lab{73, 25, -18}, 27.1492},
		{"pair25", Lab{60.2574, -34.0099, 36.2677}, Lab{60.4626, -34.1751, 39.4387}, 1.2644},
		{"pair31", Lab{90.8027, -2.0831, 1.4410}, Lab{91.1528, -1.6435, 0.0447}, 1.4441},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := DeltaE2000(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-4 {
				t.Errorf("DeltaE2000 = %.5f, want %.4f", got, tc.want)
			}
		})
	}
}

func TestDeltaE2000IdentityAndSymmetry(t *testing.T) {
	for r := 0; r < 256; r += 51 {
		for g := 0; g < 256; g += 51 {
			for b := 0; b < 256; b += 51 {
				c1 := ToLab(Pixel{uint8(r), uint8(g), uint8(b)})
				if d := DeltaE2000(c1, c1); d != 0 {
					t.Fatalf("DeltaE2000(c, c) = %v for %v", d, c1)
				}
				c2 := ToLab(Pixel{uint8(255 - b), uint8(r), uint8(255 - g)})
				d12 := DeltaE2000(c1, c2)
				d21 := DeltaE2000(c2, c1)
				if math.Abs(d12-d21) > 1e-9 {
					t.Fatalf("asymmetric: %v vs %v", d12, d21)
				}
			}
		}
	}
}

func TestDeltaE2000AchromaticNoNaN(t *testing.T) {
	d := DeltaE2000(Lab{0, 0, 0}, Lab{100, 0, 0})
	if math.IsNaN(d) || math.IsInf(d, 0) {
		t.Fatalf("DeltaE2000 black/white = %v", d)
	}
	if d < 99 {
		t.Errorf("black/white difference too small: %v", d)
	}
}

func TestDeltaE2000Weighted(t *testing.T) {
	a := Lab{50, 2.5, 0}
	b := Lab{73, 25, -18}
	if got, want := DeltaE2000Weighted(a, b, DefaultWeights), DeltaE2000(a, b); got != want {
		t.Fatalf("default weights = %v, want %v", got, want)
	}
	// Differences in lightness only shrink when kL grows.
	c := Lab{40, 0, 0}
	d := Lab{60, 0, 0}
	plain := DeltaE2000(c, d)
	loose := DeltaE2000Weighted(c, d, Weights{L: 2, C: 1, H: 1})
	if math.Abs(loose-plain/2) > 1e-9 {
		t.Errorf("kL=2 gave %v, want %v", loose, plain/2)
	}
}

func TestWeightsValid(t *testing.T) {
	if !DefaultWeights.Valid() || !DefaultWeights.IsDefault() {
		t.Fatal("default weights rejected")
	}
	for _, w := range []Weights{{}, {L: -1, C: 1, H: 1}, {L: 1, C: math.Inf(1), H: 1}, {L: 1, C: 1, H: math.NaN()}} {
		if w.Valid() {
			t.Errorf("%+v reported valid", w)
		}
	}
}

func TestToLabKnownValues(t *testing.T) {
	for _, tc := range []struct {
		p    Pixel
		want Lab
	}{
		{Pixel{0, 0, 0}, Lab{0, 0, 0}},
		{Pixel{255, 255, 255}, Lab{100, 0, 0}},
		{Pixel{255, 0, 0}, Lab{53.24, 80.09, 67.20}},
		{Pixel{0, 0, 255}, Lab{32.30, 79.19, -107.86}},
	} {
		got := ToLab(tc.p)
		if math.Abs(got.L-tc.want.L) > 0.02 || math.Abs(got.A-tc.want.A) > 0.05 || math.Abs(got.B-tc.want.B) > 0.05 {
			t.Errorf("ToLab(%v) = %+v, want %+v", tc.p, got, tc.want)
		}
	}
}

func TestToLabMatchesColorful(t *testing.T) {
	for r := 0; r < 256; r += 32 {
		for g := 0; g < 256; g += 32 {
			for b := 0; b < 256; b += 32 {
				p := Pixel{uint8(r), uint8(g), uint8(b)}
				got := ToLab(p)
				l, a, bb := p.Colorful().Lab()
				// go-colorful keeps L in [0,1] and a/b scaled by 1/100.
				if math.Abs(got.L-l*100) > 0.1 || math.Abs(got.A-a*100) > 0.1 || math.Abs(got.B-bb*100) > 0.1 {
					t.Fatalf("ToLab(%v) = %+v, colorful = (%v, %v, %v)", p, got, l*100, a*100, bb*100)
				}
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	check := func(p Pixel) {
		t.Helper()
		q := ToRGB(ToLab(p))
		if absDiff(p.R, q.R) > 1 || absDiff(p.G, q.G) > 1 || absDiff(p.B, q.B) > 1 {
			t.Fatalf("round trip %v -> %v", p, q)
		}
	}
	for r := 0; r < 256; r += 15 {
		for g := 0; g < 256; g += 15 {
			for b := 0; b < 256; b += 15 {
				check(Pixel{uint8(r), uint8(g), uint8(b)})
			}
		}
	}
	for _, c := range [2]uint8{0, 255} {
		for _, d := range [2]uint8{0, 255} {
			for _, e := range [2]uint8{0, 255} {
				check(Pixel{c, d, e})
			}
		}
	}
	for v := range 256 {
		check(Pixel{uint8(v), uint8(v), uint8(v)})
	}
}

func TestHex(t *testing.T) {
	p, err := ParseHex("#F1F1F1")
	if err != nil {
		t.Fatal(err)
	}
	if p != (Pixel{241, 241, 241}) {
		t.Fatalf("ParseHex = %v", p)
	}
	if got := (Pixel{221, 8, 25}).Hex(); got != "#dd0819" {
		t.Errorf("Hex = %q", got)
	}
	if _, err := ParseHex("nope"); err == nil {
		t.Error("expected error for invalid hex")
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
