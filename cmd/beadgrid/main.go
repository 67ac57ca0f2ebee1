package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
)

type cli struct {
	LogLevel slog.Level `help:"Log level (debug, info, warn, error)." default:"info" env:"BEADGRID_LOG_LEVEL"`

	Convert   convertCmd   `cmd:"" help:"Convert images to bead patterns."`
	Preview   previewCmd   `cmd:"" help:"Build a small preview pattern and print its materials."`
	Recommend recommendCmd `cmd:"" help:"Suggest parameters for an image."`
	Analyze   analyzeCmd   `cmd:"" help:"Measure a saved pattern against an image."`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("beadgrid"),
		kong.Description("Turn pictures into fuse bead patterns."),
		kong.UsageOnError(),
	)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.FatalIfErrorf(kctx.Run())
}
