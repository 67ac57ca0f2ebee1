package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/alecthomas/kong"
	"github.com/setanarut/beadgrid"
	"github.com/setanarut/beadgrid/palette"
	"github.com/setanarut/beadgrid/patternio"
	"github.com/setanarut/beadgrid/raster"
	"github.com/setanarut/beadgrid/utils"
)

// buildFlags are the pattern options shared by convert and preview.
type buildFlags struct {
	Palette string `help:"Bead palette: RIFF .pal, .json or a hex list." required:"" type:"existingfile" group:"palette"`
	Colors  int    `help:"Working palette size. 0 keeps every palette color." default:"14" group:"palette"`
	Method  string `help:"Color clustering method." enum:"kmeans++,kmeans,dominant" default:"kmeans++" group:"palette"`
	Seed    uint64 `help:"Random seed for clustering." default:"1" group:"palette"`

	Width   int    `help:"Grid width in beads. With height also 0 the size follows the image." group:"grid"`
	Height  int    `help:"Grid height in beads." group:"grid"`
	Dither  string `help:"Error diffusion kernel." enum:"none,floyd-steinberg,atkinson,jarvis,stucki" default:"floyd-steinberg" group:"grid"`
	Precise bool   `help:"Keep exact source colors: nearest resize, no adjustments." group:"grid"`

	MaxColors    int  `help:"Cap on distinct colors in the finished pattern. 0 disables." group:"cleanup"`
	CollapseRare bool `help:"Merge rarely used colors into common neighbors." group:"cleanup"`
	MinCount     int  `help:"Rarity threshold for --collapse-rare. 0 means 0.5% of the beads." group:"cleanup"`

	Contrast      float64 `help:"Contrast factor." default:"1" group:"adjust"`
	Brightness    float64 `help:"Brightness factor." default:"1" group:"adjust"`
	Saturation    float64 `help:"Saturation factor." default:"1" group:"adjust"`
	Sharpen       bool    `help:"Apply a 3x3 sharpen." group:"adjust"`
	SharpenAmount float64 `help:"Sharpen strength." default:"0.5" group:"adjust"`

	candidates palette.Palette
	dither     beadgrid.Dither
	method     palette.Method
}

func (f *buildFlags) validate() error {
	var err error
	if f.dither, err = beadgrid.ParseDither(f.Dither); err != nil {
		return err
	}
	if f.method, err = palette.ParseMethod(f.Method); err != nil {
		return err
	}
	if f.candidates, err = palette.Load(f.Palette); err != nil {
		return fmt.Errorf("invalid palette %q: %w", f.Palette, err)
	}
	if len(f.candidates) == 0 {
		return fmt.Errorf("palette %q has no colors", f.Palette)
	}
	return f.options(nil).Validate()
}

// options converts the flags. With no grid size given, the size is
// derived from src.
func (f *buildFlags) options(src *raster.Buffer) beadgrid.Options {
	opt := beadgrid.DefaultOptions()
	if f.Width == 0 && f.Height == 0 && src != nil {
		opt = beadgrid.OptionsFromSize(src.Size())
	} else if f.Width != 0 || f.Height != 0 {
		opt.Width, opt.Height = f.Width, f.Height
	}
	opt.PaletteSize = f.Colors
	opt.Method = f.method
	opt.Dither = f.dither
	opt.Precise = f.Precise
	opt.MaxColorTypes = f.MaxColors
	opt.CollapseRare = f.CollapseRare
	opt.MinColorCount = f.MinCount
	opt.Preprocess = beadgrid.PreprocessOptions{
		Contrast:      f.Contrast,
		Brightness:    f.Brightness,
		Saturation:    f.Saturation,
		Sharpen:       f.Sharpen,
		SharpenAmount: f.SharpenAmount,
	}
	opt.Rand = rand.New(rand.NewPCG(f.Seed, 0))
	return opt
}

func logProgress(logger *slog.Logger) beadgrid.ProgressFunc {
	return func(p beadgrid.Progress) {
		logger.Debug("progress", "stage", p.Stage, "percent", p.Percent)
	}
}

func logQuality(logger *slog.Logger, q beadgrid.QualityReport) {
	logger.Info("quality",
		"avgDeltaE", fmt.Sprintf("%.2f", q.Average),
		"maxDeltaE", fmt.Sprintf("%.2f", q.Max),
		"p95", fmt.Sprintf("%.2f", q.P95),
		"excellent", fmt.Sprintf("%.1f%%", q.Share(q.Excellent)),
		"poor", fmt.Sprintf("%.1f%%", q.Share(q.Poor)))
}

type previewCmd struct {
	Flags buildFlags `embed:""`

	Image string `arg:"" type:"existingfile" help:"Source image."`
	Out   string `help:"Write the preview image here." type:"path"`
	Bead  int    `help:"Preview pixels per bead." default:"16"`
}

func (c *previewCmd) Validate(kctx *kong.Context) error {
	return c.Flags.validate()
}

func (c *previewCmd) Run(ctx context.Context) error {
	src, err := utils.ReadImage(c.Image)
	if err != nil {
		return err
	}
	logger := slog.Default().With("file", c.Image)
	opt := c.Flags.options(src)
	opt.Logger = logger
	res, err := beadgrid.NewBuilder(nil).QuickPreview(ctx, src, c.Flags.candidates, opt)
	if err != nil {
		return err
	}
	logQuality(logger, res.Quality)
	if c.Out != "" {
		if err := utils.SavePreview(res.Grid, c.Bead, c.Out); err != nil {
			return err
		}
	}
	return patternio.WriteMaterialList(os.Stdout, res.Grid)
}
