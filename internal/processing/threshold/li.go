package threshold

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Li is Li's iterative minimum cross-entropy threshold (Li & Lee 1993,
// Li & Tam 1998), iterated from the image mean.
type Li struct {
	// MaxIterations bounds the iteration; zero means 10000.
	MaxIterations int
}

func (Li) Name() string { return "li" }

func (l Li) Compute(values []float64, integer bool) (float64, error) {
	if len(values) == 0 {
		return math.NaN(), ErrEmptyImage
	}
	if uniform(values) {
		return values[0], nil
	}

	maxIter := l.MaxIterations
	if maxIter <= 0 {
		maxIter = 10000
	}

	// Shift to a zero minimum so the logarithms below stay defined.
	lo := floats.Min(values)
	shifted := make([]float64, len(values))
	for i, v := range values {
		shifted[i] = v - lo
	}

	tolerance := 0.5
	if !integer {
		tolerance = smallestGap(shifted) / 2
	}

	tNext := stat.Mean(shifted, nil)
	tCurr := -2 * tolerance

	for iter := 0; math.Abs(tNext-tCurr) > tolerance; iter++ {
		if iter >= maxIter {
			return math.NaN(), ErrNoConvergence
		}
		tCurr = tNext

		var sumFore, sumBack float64
		var nFore, nBack int
		for _, v := range shifted {
			if v > tCurr {
				sumFore += v
				nFore++
			} else {
				sumBack += v
				nBack++
			}
		}
		if nFore == 0 || nBack == 0 {
			break
		}

		meanFore := sumFore / float64(nFore)
		meanBack := sumBack / float64(nBack)
		if meanBack == 0 {
			break
		}

		tNext = (meanBack - meanFore) / (math.Log(meanBack) - math.Log(meanFore))
	}

	return tNext + lo, nil
}

func smallestGap(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	gap := math.Inf(1)
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i] - sorted[i-1]; d > 0 && d < gap {
			gap = d
		}
	}
	return gap
}
