package beadgrid

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput wraps every input-shape problem: zero-area or
	// mis-sized buffers, empty palettes and out-of-range options. It is
	// always reported before any processing starts.
	ErrInvalidInput = errors.New("beadgrid: invalid input")
	// ErrCanceled is returned when the context is done mid-run. No partial
	// grid is returned with it.
	ErrCanceled = errors.New("beadgrid: canceled")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// checkCanceled returns a wrapped ErrCanceled once ctx is done.
func checkCanceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
	}
	return nil
}

// Stage names a pipeline step in progress reports.
type Stage string

const (
	StageResize     Stage = "resize"
	StagePreprocess Stage = "preprocess"
	StageReduce     Stage = "reduce"
	StageMap        Stage = "map"
	StageOptimize   Stage = "optimize"
	StageAnalyze    Stage = "analyze"
)

// Progress is one progress report. Percent is within the stage.
type Progress struct {
	Stage   Stage
	Percent int
}

// ProgressFunc receives progress reports. It is called synchronously from
// the building goroutine and must not block for long.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(stage Stage, percent int) {
	if f != nil {
		f(Progress{Stage: stage, Percent: percent})
	}
}
