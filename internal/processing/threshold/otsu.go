package threshold

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// maxIntegerBins caps the one-bin-per-value histogram of integer images.
const maxIntegerBins = 1 << 24

// Otsu maximizes the between-class variance of a histogram and returns the
// centre of the winning bin. Integer images get one bin per integer value
// between their minimum and maximum, so the threshold is an integer; other
// images use Bins equal-width bins.
type Otsu struct {
	Bins int
}

func (Otsu) Name() string { return "otsu" }

func (o Otsu) Compute(values []float64, integer bool) (float64, error) {
	if len(values) == 0 {
		return math.NaN(), ErrEmptyImage
	}
	if uniform(values) {
		return values[0], nil
	}

	hist, centers := o.histogram(values, integer)
	bins := len(hist)

	// Class weights and means for every split point, accumulated from both ends.
	weightLow := make([]float64, bins)
	meanLow := make([]float64, bins)
	var w, s float64
	for i := 0; i < bins; i++ {
		w += hist[i]
		s += hist[i] * centers[i]
		weightLow[i] = w
		if w > 0 {
			meanLow[i] = s / w
		}
	}

	weightHigh := make([]float64, bins)
	meanHigh := make([]float64, bins)
	w, s = 0, 0
	for i := bins - 1; i >= 0; i-- {
		w += hist[i]
		s += hist[i] * centers[i]
		weightHigh[i] = w
		if w > 0 {
			meanHigh[i] = s / w
		}
	}

	best, bestVariance := 0, -1.0
	for i := 0; i < bins-1; i++ {
		diff := meanLow[i] - meanHigh[i+1]
		variance := weightLow[i] * weightHigh[i+1] * diff * diff
		if variance > bestVariance {
			best, bestVariance = i, variance
		}
	}

	return centers[best], nil
}

func (o Otsu) histogram(values []float64, integer bool) (hist, centers []float64) {
	lo, hi := floats.Min(values), floats.Max(values)

	if integer && hi-lo < maxIntegerBins {
		bins := int(hi-lo) + 1
		hist = make([]float64, bins)
		centers = make([]float64, bins)
		for i := range centers {
			centers[i] = lo + float64(i)
		}
		for _, v := range values {
			hist[int(v-lo)]++
		}
		return hist, centers
	}

	bins := o.Bins
	if bins < 2 {
		bins = 256
	}
	width := (hi - lo) / float64(bins)
	hist = make([]float64, bins)
	centers = make([]float64, bins)
	for i := range centers {
		centers[i] = lo + (float64(i)+0.5)*width
	}
	for _, v := range values {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		hist[b]++
	}
	return hist, centers
}

// Mean thresholds at the arithmetic mean of the samples.
type Mean struct{}

func (Mean) Name() string { return "mean" }

func (Mean) Compute(values []float64, _ bool) (float64, error) {
	if len(values) == 0 {
		return math.NaN(), ErrEmptyImage
	}
	return floats.Sum(values) / float64(len(values)), nil
}
