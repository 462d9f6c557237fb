// Package raster holds the in-memory image, mask and label types that flow
// through the pipeline.
package raster

import (
	"errors"
	"fmt"
)

var (
	ErrChannelOutOfRange = errors.New("channel out of range")
	ErrDimensionality    = errors.New("unsupported dimensionality")
	ErrTooLarge          = errors.New("image exceeds pixel budget")
	ErrShapeMismatch     = errors.New("shape mismatch")
)

// Image is a row-major, channel-interleaved numeric raster.
type Image struct {
	Height   int
	Width    int
	Channels int
	// Integer is true when the source samples were integral (8/16-bit, int arrays).
	Integer bool
	Pix     []float64
}

func NewImage(height, width, channels int, integer bool) *Image {
	return &Image{
		Height:   height,
		Width:    width,
		Channels: channels,
		Integer:  integer,
		Pix:      make([]float64, height*width*channels),
	}
}

func (im *Image) At(row, col, channel int) float64 {
	return im.Pix[(row*im.Width+col)*im.Channels+channel]
}

func (im *Image) Set(row, col, channel int, v float64) {
	im.Pix[(row*im.Width+col)*im.Channels+channel] = v
}

// Channel extracts one channel as a single-channel image. Grayscale inputs
// only accept channel 0.
func (im *Image) Channel(c int) (*Image, error) {
	if im.Channels == 1 {
		if c != 0 {
			return nil, fmt.Errorf("%w: grayscale image only has channel 0, got %d", ErrChannelOutOfRange, c)
		}
		return im, nil
	}
	if err := ValidateChannel(c, im.Channels, "channel selection"); err != nil {
		return nil, err
	}

	out := NewImage(im.Height, im.Width, 1, im.Integer)
	for i := 0; i < im.Height*im.Width; i++ {
		out.Pix[i] = im.Pix[i*im.Channels+c]
	}
	return out, nil
}

// Validate rejects empty rasters and rasters whose sample count exceeds maxPixels.
func (im *Image) Validate(maxPixels int) error {
	if err := ValidateDimensions(im.Width, im.Height, "image validation"); err != nil {
		return err
	}
	if im.Channels <= 0 {
		return fmt.Errorf("%w: image has %d channels", ErrDimensionality, im.Channels)
	}
	if len(im.Pix) != im.Height*im.Width*im.Channels {
		return fmt.Errorf("%w: %d samples for %dx%dx%d", ErrShapeMismatch, len(im.Pix), im.Height, im.Width, im.Channels)
	}
	if maxPixels > 0 && len(im.Pix) > maxPixels {
		return fmt.Errorf("%w: %d samples, limit %d", ErrTooLarge, len(im.Pix), maxPixels)
	}
	return nil
}
