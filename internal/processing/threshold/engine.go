package threshold

import (
	"context"
	"fmt"

	"turmoric/internal/processing/chain"
	"turmoric/internal/raster"
)

// Engine selects the signal channel, thresholds it and runs the cleanup chain.
type Engine struct {
	Method    Method
	Channel   int
	Cleanup   *chain.ProcessingChain
	Params    chain.Params
	MaxPixels int
}

// NewEngine wires the standard small-object and hole-filling cleanup.
func NewEngine(m Method, channel, minObjectSize int, fillHoles bool) *Engine {
	return &Engine{
		Method:  m,
		Channel: channel,
		Cleanup: chain.NewCleanupChain(),
		Params: chain.Params{
			"min_object_size": minObjectSize,
			"fill_holes":      fillHoles,
		},
	}
}

func (e *Engine) Run(ctx context.Context, img *raster.Image) (*raster.Mask, float64, error) {
	if err := img.Validate(e.MaxPixels); err != nil {
		return nil, 0, err
	}

	signal, err := img.Channel(e.Channel)
	if err != nil {
		return nil, 0, err
	}

	mask, t, err := Apply(signal, e.Method)
	if err != nil {
		return nil, t, err
	}

	if e.Cleanup != nil {
		if err := chain.Validate(e.Params); err != nil {
			return nil, t, err
		}
		mask, err = e.Cleanup.Execute(ctx, mask, e.Params)
		if err != nil {
			return nil, t, fmt.Errorf("mask cleanup: %w", err)
		}
	}
	return mask, t, nil
}
