package raster

import "fmt"

const maxSide = 1 << 16

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d for operation: %s", ErrDimensionality, width, height, operation)
	}

	if width > maxSide || height > maxSide {
		return fmt.Errorf("%w: dimensions %dx%d exceed maximum side %d for operation: %s", ErrTooLarge, width, height, maxSide, operation)
	}

	return nil
}

func ValidateChannel(channel, channels int, operation string) error {
	if channel < 0 || channel >= channels {
		return fmt.Errorf("%w: channel %d out of bounds [0, %d) for operation: %s", ErrChannelOutOfRange, channel, channels, operation)
	}

	return nil
}
