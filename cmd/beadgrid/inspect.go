package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/setanarut/beadgrid"
	"github.com/setanarut/beadgrid/colorspace"
	"github.com/setanarut/beadgrid/patternio"
	"github.com/setanarut/beadgrid/raster"
	"github.com/setanarut/beadgrid/utils"
)

type recommendCmd struct {
	Image string `arg:"" type:"existingfile" help:"Source image."`
}

func (c *recommendCmd) Run() error {
	src, err := utils.ReadImage(c.Image)
	if err != nil {
		return err
	}
	st, err := beadgrid.MeasureImage(src)
	if err != nil {
		return err
	}
	r, err := beadgrid.Recommend(src)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "kind\t%s\n", r.Kind)
	fmt.Fprintf(tw, "reason\t%s\n", r.Reason)
	fmt.Fprintf(tw, "grid\t%dx%d\n", r.Width, r.Height)
	fmt.Fprintf(tw, "colors\t%d\n", r.PaletteSize)
	fmt.Fprintf(tw, "dither\t%s\n", r.Dither)
	p := r.Preprocess
	fmt.Fprintf(tw, "adjust\tcontrast %.1f, brightness %.1f, saturation %.1f, sharpen %v\n", p.Contrast, p.Brightness, p.Saturation, p.Sharpen)
	fmt.Fprintf(tw, "measured\tbrightness %.0f, spread %.0f, diversity %d, edges %.2f\n", st.Brightness, st.ColorSpread, st.Diversity, st.EdgeDensity)
	return tw.Flush()
}

type analyzeCmd struct {
	Pattern string `arg:"" type:"existingfile" help:"Pattern file written by convert."`
	Image   string `arg:"" optional:"" type:"existingfile" help:"Image to compare against. Defaults to the source pixels stored in the pattern."`
}

func (c *analyzeCmd) Run(ctx context.Context) error {
	f, err := os.Open(c.Pattern)
	if err != nil {
		return err
	}
	defer f.Close()
	p, err := patternio.Decode(f)
	if err != nil {
		return err
	}
	g := p.Grid

	ref, err := raster.New(g.W, g.H)
	if err != nil {
		return err
	}
	if c.Image == "" {
		for _, cell := range g.Cells {
			ref.Set(cell.X, cell.Y, cell.Source)
		}
	} else {
		src, err := utils.ReadImage(c.Image)
		if err != nil {
			return err
		}
		if ref, err = raster.Resize(src, g.W, g.H, raster.Bicubic); err != nil {
			return err
		}
	}

	q, err := beadgrid.Analyze(ctx, ref, g, colorspace.DefaultWeights)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "beads\t%d\n", q.Total)
	fmt.Fprintf(tw, "average ΔE\t%.2f\n", q.Average)
	fmt.Fprintf(tw, "median / p95\t%.2f / %.2f\n", q.Median, q.P95)
	fmt.Fprintf(tw, "min / max\t%.2f / %.2f\n", q.Min, q.Max)
	fmt.Fprintf(tw, "stddev\t%.2f\n", q.StdDev)
	for _, band := range []struct {
		name string
		n    int
	}{{"excellent", q.Excellent}, {"good", q.Good}, {"fair", q.Fair}, {"poor", q.Poor}} {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", band.name, band.n, q.Share(band.n))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Println()
	return patternio.WriteMaterialList(os.Stdout, g)
}
