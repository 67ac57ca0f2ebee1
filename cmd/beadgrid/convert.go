package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/alecthomas/kong"
	"github.com/setanarut/beadgrid"
	"github.com/setanarut/beadgrid/palette"
	"github.com/setanarut/beadgrid/parallel"
	"github.com/setanarut/beadgrid/patternio"
	"github.com/setanarut/beadgrid/utils"
)

type convertCmd struct {
	Flags buildFlags `embed:""`

	Images  []string `arg:"" type:"existingfile" help:"Source images."`
	Out     string   `help:"Output directory." default:"." type:"path"`
	Zstd    bool     `help:"Compress pattern files with zstd."`
	Sources bool     `help:"Store source pixels in pattern files."`
	Bead    int      `help:"Preview pixels per bead. 0 skips the preview image." default:"16"`
	Layers  bool     `help:"Write one mask image per color."`
	Tune    int      `help:"Extra feedback rounds that try to lower the average color error."`
	Workers int      `help:"Images converted in parallel. 0 uses every CPU." env:"BEADGRID_WORKERS"`
}

func (c *convertCmd) Validate(kctx *kong.Context) error {
	if c.Tune < 0 {
		return fmt.Errorf("invalid tune rounds: %d", c.Tune)
	}
	return c.Flags.validate()
}

func (c *convertCmd) Run(ctx context.Context) error {
	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return fmt.Errorf("unable to create output folder %q: %w", c.Out, err)
	}

	b := beadgrid.NewBuilder(palette.NewCache(palette.DefaultCacheLimit))
	pool := parallel.Start(c.Workers)
	var converted atomic.Int64
	for _, path := range c.Images {
		pool.Do(func() error {
			if err := c.convert(ctx, b, path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			converted.Add(1)
			return nil
		})
	}
	err := pool.Wait()
	slog.Info("done", "converted", converted.Load(), "total", len(c.Images), "cachedColors", b.Cache.Len())
	return err
}

func (c *convertCmd) convert(ctx context.Context, b *beadgrid.Builder, path string) error {
	logger := slog.Default().With("file", path)
	src, err := utils.ReadImage(path)
	if err != nil {
		return err
	}
	opt := c.Flags.options(src)
	opt.Logger = logger
	opt.Progress = logProgress(logger)

	var res *beadgrid.Result
	if c.Tune > 0 {
		var tuned beadgrid.Options
		res, tuned, err = b.BuildTuned(ctx, src, c.Flags.candidates, opt, c.Tune)
		if err == nil {
			logger.Info("tuned", "colors", tuned.PaletteSize, "dither", tuned.Dither, "maxColors", tuned.MaxColorTypes)
		}
	} else {
		res, err = b.Build(ctx, src, c.Flags.candidates, opt)
	}
	if err != nil {
		return err
	}
	logger.Info("built", "size", fmt.Sprintf("%dx%d", res.Size.X, res.Size.Y), "colors", res.Grid.Distinct())
	logQuality(logger, res.Quality)

	base := filepath.Join(c.Out, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err := c.writePattern(res, base); err != nil {
		return err
	}
	if err := writeFile(base+".materials.txt", func(f *os.File) error {
		return patternio.WriteMaterialList(f, res.Grid)
	}); err != nil {
		return err
	}
	if c.Bead > 0 {
		if err := utils.SavePreview(res.Grid, c.Bead, base+".png"); err != nil {
			return err
		}
	}
	if c.Layers {
		dir := base + "_layers"
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := utils.SaveColorLayers(res.Grid, dir); err != nil {
			return err
		}
	}
	return nil
}

func (c *convertCmd) writePattern(res *beadgrid.Result, base string) error {
	name := base + ".bead.json"
	if c.Zstd {
		name += ".zst"
	}
	return writeFile(name, func(f *os.File) error {
		return patternio.Encode(f, patternio.FromResult(res), patternio.EncodeOptions{Compress: c.Zstd, Sources: c.Sources})
	})
}

// writeFile creates name and hands it to write, reporting the first error
// from writing or closing.
func writeFile(name string, write func(*os.File) error) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("could not close %q: %w", name, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("could not write %q: %w", name, err)
	}
	return nil
}
