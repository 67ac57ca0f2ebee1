package beadgrid

import (
	"context"
	"errors"
	"image"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/setanarut/beadgrid/colorspace"
	"github.com/setanarut/beadgrid/palette"
	"github.com/setanarut/beadgrid/raster"
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(42, 1)) }

func testOptions(w, h int) Options {
	opt := DefaultOptions()
	opt.Width, opt.Height = w, h
	opt.Rand = seeded()
	return opt
}

func TestBuildExactMatch(t *testing.T) {
	src, _ := raster.FromRGB8(2, 2, []uint8{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255})
	pal := palette.Palette{
		{ID: "W", RGB: px(255, 255, 255)},
		{ID: "B", RGB: px(0, 0, 255)},
		{ID: "G", RGB: px(0, 255, 0)},
		{ID: "R", RGB: px(255, 0, 0)},
		{ID: "K", RGB: px(0, 0, 0)},
	}
	opt := testOptions(2, 2)
	opt.Precise = true
	opt.Dither = DitherNone
	opt.PaletteSize = 0

	res, err := NewBuilder(nil).Build(context.Background(), src, pal, opt)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"R", "G", "B", "W"} {
		if got := res.Grid.Cells[i].Color.ID; got != want {
			t.Errorf("cell %d = %s, want %s", i, got, want)
		}
	}
	q := res.Quality
	if q.Average != 0 || q.Excellent != 4 || q.Total != 4 {
		t.Errorf("quality = %+v", q)
	}
	if res.Size != image.Pt(2, 2) || res.Usage.Total() != 4 {
		t.Errorf("size %v usage %v", res.Size, res.Usage)
	}
}

func TestBuildGridSize(t *testing.T) {
	src := gradient(40, 20)
	for _, tc := range []struct {
		w, h int
		want image.Point
	}{
		{10, 0, image.Pt(10, 5)},
		{0, 10, image.Pt(20, 10)},
		{7, 3, image.Pt(7, 3)},
		{80, 40, image.Pt(80, 40)}, // upscaling still works
	} {
		opt := testOptions(tc.w, tc.h)
		opt.PaletteSize = 4
		res, err := NewBuilder(nil).Build(context.Background(), src, rainbow, opt)
		if err != nil {
			t.Fatal(err)
		}
		if res.Size != tc.want || res.Grid.W != tc.want.X || res.Grid.H != tc.want.Y {
			t.Errorf("%dx%d: size %v", tc.w, tc.h, res.Size)
		}
		if len(res.Palette) > 4 {
			t.Errorf("working palette has %d colors", len(res.Palette))
		}
		for id := range res.Usage {
			if res.Palette.Index(id) < 0 {
				t.Errorf("grid uses %s outside the working palette", id)
			}
		}
	}
}

func TestBuildReproducible(t *testing.T) {
	src := gradient(30, 30)
	b := NewBuilder(palette.NewCache(0))
	var grids []*Grid
	for _, progress := range []ProgressFunc{nil, func(Progress) {}} {
		opt := testOptions(15, 15)
		opt.PaletteSize = 6
		opt.MaxColorTypes = 5
		opt.CollapseRare = true
		opt.Progress = progress
		res, err := b.Build(context.Background(), src, rainbow, opt)
		if err != nil {
			t.Fatal(err)
		}
		grids = append(grids, res.Grid)
	}
	if !slices.Equal(grids[0].Cells, grids[1].Cells) {
		t.Error("same seed and a progress callback gave a different grid")
	}
	if grids[0].Distinct() > 5 {
		t.Errorf("cap ignored: %d colors", grids[0].Distinct())
	}
}

func TestBuildStages(t *testing.T) {
	opt := testOptions(12, 12)
	opt.Preprocess.Contrast = 1.2
	var stages []Stage
	opt.Progress = func(p Progress) {
		if len(stages) == 0 || stages[len(stages)-1] != p.Stage {
			stages = append(stages, p.Stage)
		}
	}
	if _, err := NewBuilder(nil).Build(context.Background(), gradient(24, 24), rainbow, opt); err != nil {
		t.Fatal(err)
	}
	want := []Stage{StageResize, StagePreprocess, StageReduce, StageMap, StageOptimize, StageAnalyze}
	if !slices.Equal(stages, want) {
		t.Errorf("stages = %v", stages)
	}
}

func TestBuildErrors(t *testing.T) {
	b := NewBuilder(nil)
	ctx := context.Background()
	good := gradient(4, 4)

	for _, tc := range []struct {
		name string
		src  *raster.Buffer
		pal  palette.Palette
		opt  Options
	}{
		{"zero area", &raster.Buffer{}, rainbow, testOptions(4, 4)},
		{"short buffer", &raster.Buffer{W: 4, H: 4, Pix: make([]uint8, 10)}, rainbow, testOptions(4, 4)},
		{"empty palette", good, nil, testOptions(4, 4)},
		{"no size", good, rainbow, testOptions(0, 0)},
		{"negative size", good, rainbow, testOptions(-1, 4)},
		{"bad weights", good, rainbow, func() Options {
			o := testOptions(4, 4)
			o.Weights = colorspace.Weights{L: -1, C: 1, H: 1}
			return o
		}()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := b.Build(ctx, tc.src, tc.pal, tc.opt)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v", err)
			}
			if errors.Is(err, ErrCanceled) || res != nil {
				t.Error("invalid input reported as cancellation or with a result")
			}
		})
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := b.Build(canceled, good, rainbow, testOptions(4, 4)); !errors.Is(err, ErrCanceled) || errors.Is(err, ErrInvalidInput) {
		t.Errorf("canceled: err = %v", err)
	}
}

func TestBuildDegenerateInputs(t *testing.T) {
	b := NewBuilder(nil)
	ctx := context.Background()

	uniform, _ := raster.Uniform(10, 10, px(90, 120, 200))
	if _, err := b.Build(ctx, uniform, rainbow, testOptions(5, 5)); err != nil {
		t.Errorf("uniform image: %v", err)
	}
	if _, err := b.Build(ctx, gradient(10, 10), rainbow[:1], testOptions(5, 5)); err != nil {
		t.Errorf("single color palette: %v", err)
	}
	transparent, _ := raster.New(10, 10)
	res, err := b.Build(ctx, transparent, rainbow, testOptions(5, 5))
	if err != nil {
		t.Fatalf("transparent image: %v", err)
	}
	if res.Usage.Total() != 25 {
		t.Errorf("transparent image left cells unassigned: %v", res.Usage)
	}
}

func TestBuildIgnoresTransparentBackground(t *testing.T) {
	// Black sorts last so that only clustering, not the top-up, could pick it.
	pal := palette.Palette{
		{ID: "R", RGB: px(230, 30, 30)},
		{ID: "O", RGB: px(240, 140, 20)},
		{ID: "P", RGB: px(230, 90, 170)},
		{ID: "Y", RGB: px(240, 230, 40)},
		{ID: "W", RGB: px(255, 255, 255)},
		{ID: "K", RGB: px(0, 0, 0)},
	}
	sticker, _ := raster.New(20, 20)
	for y := 6; y < 14; y++ {
		for x := 6; x < 14; x++ {
			sticker.Set(x, y, px(230, 30, 30))
		}
	}
	empty, _ := raster.New(20, 20)

	for _, tc := range []struct {
		name    string
		src     *raster.Buffer
		precise bool
		want    []string
	}{
		{"bicubic", sticker, false, []string{"R", "O", "P"}},
		{"nearest", sticker, true, []string{"R", "O", "P"}},
		{"fully transparent", empty, false, []string{"R", "O", "P"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			opt := testOptions(10, 10)
			opt.PaletteSize = 3
			opt.Precise = tc.precise
			res, err := NewBuilder(nil).Build(context.Background(), tc.src, pal, opt)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, c := range res.Palette {
				got = append(got, c.ID)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("palette = %v, want %v", got, tc.want)
			}
			if res.Usage.Total() != 100 {
				t.Errorf("usage total = %d", res.Usage.Total())
			}
		})
	}
}

func TestQuickPreview(t *testing.T) {
	res, err := NewBuilder(nil).QuickPreview(context.Background(), gradient(60, 30), rainbow, testOptions(50, 25))
	if err != nil {
		t.Fatal(err)
	}
	if res.Size != image.Pt(15, 8) {
		t.Errorf("size = %v", res.Size)
	}
	if len(res.Palette) > 8 {
		t.Errorf("palette = %d colors", len(res.Palette))
	}
}

func TestOptionsFromSize(t *testing.T) {
	for _, tc := range []struct {
		size image.Point
		want image.Point
	}{
		{image.Pt(200, 100), image.Pt(29, 15)},
		{image.Pt(800, 600), image.Pt(40, 30)},
		{image.Pt(1080, 3840), image.Pt(16, 58)},
	} {
		opt := OptionsFromSize(tc.size)
		if got := image.Pt(opt.Width, opt.Height); got != tc.want {
			t.Errorf("OptionsFromSize(%v) = %v, want %v", tc.size, got, tc.want)
		}
		if err := opt.Validate(); err != nil {
			t.Errorf("OptionsFromSize(%v) invalid: %v", tc.size, err)
		}
	}
	if opt, def := OptionsFromSize(image.Point{}), DefaultOptions(); opt.Width != def.Width || opt.Height != def.Height || opt.PaletteSize != def.PaletteSize {
		t.Error("empty size should give defaults")
	}
}

func TestPreprocess(t *testing.T) {
	src, _ := raster.Uniform(3, 3, px(100, 150, 200))
	same := Preprocess(src, PreprocessOptions{})
	if !slices.Equal(same.Pix, src.Pix) {
		t.Error("zero options changed pixels")
	}
	bright := Preprocess(src, PreprocessOptions{Brightness: 2})
	if got := bright.At(1, 1); got != px(200, 255, 255) {
		t.Errorf("brightness 2 = %v", got)
	}
	gray := Preprocess(src, PreprocessOptions{Saturation: 0.000001})
	if p := gray.At(0, 0); p.R != p.G || p.G != p.B {
		t.Errorf("desaturated = %v", p)
	}
	// Sharpening leaves flat areas alone.
	sharp := Preprocess(src, PreprocessOptions{Sharpen: true, SharpenAmount: 1})
	if !slices.Equal(sharp.Pix, src.Pix) {
		t.Error("sharpen changed a flat image")
	}
	if src.At(0, 0) != px(100, 150, 200) {
		t.Error("source modified")
	}
}

func TestRecommend(t *testing.T) {
	dark, _ := raster.Uniform(200, 200, px(20, 20, 25))
	r, err := Recommend(dark)
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind != "dark" || r.Preprocess.Brightness <= 1 {
		t.Errorf("dark image: %+v", r)
	}

	light, _ := raster.Uniform(200, 200, px(210, 190, 180))
	if r, _ := Recommend(light); r.Kind != "portrait" || r.Dither != Atkinson {
		t.Errorf("bright square image: %+v", r)
	}

	for _, tc := range []struct {
		st   ImageStats
		kind string
	}{
		{ImageStats{Diversity: 20, EdgeDensity: 0.3, SourcePixels: 64 * 64, Aspect: 1, Brightness: 100}, "pixel-art"},
		{ImageStats{Diversity: 90, EdgeDensity: 0.25, ColorSpread: 80, SourcePixels: 1e6, Aspect: 1}, "cartoon"},
		{ImageStats{Diversity: 200, Aspect: 1.5, Brightness: 100, ColorSpread: 65, SourcePixels: 1e6}, "landscape"},
		{ImageStats{Diversity: 100, Aspect: 0.5, Brightness: 100, ColorSpread: 65, SourcePixels: 1e6}, "general"},
	} {
		if got := recommendFor(tc.st); got.Kind != tc.kind {
			t.Errorf("%+v: kind = %s, want %s", tc.st, got.Kind, tc.kind)
		}
	}

	opt := r.Apply(DefaultOptions())
	if opt.Width != r.Width || opt.PaletteSize != r.PaletteSize {
		t.Errorf("Apply = %+v", opt)
	}
	if _, err := Recommend(&raster.Buffer{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty image: err = %v", err)
	}
}

func TestSuggest(t *testing.T) {
	opt := DefaultOptions()
	opt.PaletteSize = 8

	good := QualityReport{Total: 100, Average: 1.5, Excellent: 90, Good: 10}
	if _, ok := Suggest(good, opt, 20); ok {
		t.Error("suggested changes for a good result")
	}

	bad := QualityReport{Total: 100, Average: 12, Poor: 50, Fair: 50}
	next, ok := Suggest(bad, opt, 20)
	if !ok || next.PaletteSize != 12 {
		t.Errorf("poor result: ok=%v palette=%d", ok, next.PaletteSize)
	}
	next, ok = Suggest(bad, opt, 10)
	if !ok || next.PaletteSize != 10 {
		t.Errorf("palette growth not bounded: %d", next.PaletteSize)
	}

	opt.PaletteSize = 20
	opt.Dither = DitherNone
	next, ok = Suggest(bad, opt, 20)
	if !ok || next.Dither != FloydSteinberg {
		t.Errorf("expected dithering to be enabled: %+v", next)
	}
	opt.Dither = FloydSteinberg
	if _, ok := Suggest(bad, opt, 20); ok {
		t.Error("suggested changes with nothing left to try")
	}
}

func TestBuildTuned(t *testing.T) {
	src := gradient(32, 32)
	opt := testOptions(16, 16)
	opt.PaletteSize = 3

	base, err := NewBuilder(nil).Build(context.Background(), src, rainbow, opt)
	if err != nil {
		t.Fatal(err)
	}
	opt.Rand = seeded()
	best, bestOpt, err := NewBuilder(nil).BuildTuned(context.Background(), src, rainbow, opt, 3)
	if err != nil {
		t.Fatal(err)
	}
	if best.Quality.Average > base.Quality.Average {
		t.Errorf("tuned %v worse than first build %v", best.Quality.Average, base.Quality.Average)
	}
	if bestOpt.PaletteSize < opt.PaletteSize {
		t.Errorf("tuning shrank the palette to %d", bestOpt.PaletteSize)
	}
}
