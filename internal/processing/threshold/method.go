// Package threshold computes global intensity thresholds and turns a single
// channel into a boolean foreground mask.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"turmoric/internal/raster"
)

var (
	ErrUnknownMethod = errors.New("threshold method not available")
	ErrEmptyImage    = errors.New("image has no finite pixels")
	ErrNoConvergence = errors.New("threshold did not converge")
)

// Method computes a scalar threshold from the finite samples of one channel.
// integer reports whether the samples came from an integral dtype.
type Method interface {
	Name() string
	Compute(values []float64, integer bool) (float64, error)
}

var registry = map[string]Method{
	"li":   Li{},
	"otsu": Otsu{Bins: 256},
	"mean": Mean{},
}

// Lookup returns the method registered under name.
func Lookup(name string) (Method, error) {
	m, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q, choose from: %s", ErrUnknownMethod, name, strings.Join(Names(), ", "))
	}
	return m, nil
}

// Names lists the registered methods in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply thresholds a single-channel image: the mask is true where the pixel
// is strictly greater than the threshold. An image without finite pixels
// yields an all-false mask and a NaN threshold.
func Apply(img *raster.Image, m Method) (*raster.Mask, float64, error) {
	if img.Channels != 1 {
		return nil, math.NaN(), fmt.Errorf("%w: expected one channel, got %d", raster.ErrDimensionality, img.Channels)
	}

	mask := raster.NewMask(img.Height, img.Width)
	t, err := m.Compute(finite(img.Pix), img.Integer)
	if errors.Is(err, ErrEmptyImage) {
		return mask, math.NaN(), nil
	}
	if err != nil {
		return nil, math.NaN(), fmt.Errorf("%s threshold: %w", m.Name(), err)
	}

	for i, v := range img.Pix {
		mask.Bits[i] = v > t
	}
	return mask, t, nil
}

func finite(pix []float64) []float64 {
	out := make([]float64, 0, len(pix))
	for _, v := range pix {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func uniform(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
