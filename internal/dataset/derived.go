package dataset

import (
	"fmt"
	"math"
)

// AddDerivedMetrics appends circularity (4π·area/perimeter²) and aspect_ratio
// (major/minor axis length). A zero denominator yields inf or NaN, matching
// float division.
func AddDerivedMetrics(t *Table) error {
	area, err := t.FloatColumn("area")
	if err != nil {
		return fmt.Errorf("circularity: %w", err)
	}
	perimeter, err := t.FloatColumn("perimeter")
	if err != nil {
		return fmt.Errorf("circularity: %w", err)
	}
	major, err := t.FloatColumn("major_axis_length")
	if err != nil {
		return fmt.Errorf("aspect_ratio: %w", err)
	}
	minor, err := t.FloatColumn("minor_axis_length")
	if err != nil {
		return fmt.Errorf("aspect_ratio: %w", err)
	}

	circ := make([]float64, t.Len())
	aspect := make([]float64, t.Len())
	for i := range circ {
		circ[i] = 4 * math.Pi * area[i] / (perimeter[i] * perimeter[i])
		aspect[i] = major[i] / minor[i]
	}

	if err := t.SetFloatColumn("circularity", circ); err != nil {
		return err
	}
	return t.SetFloatColumn("aspect_ratio", aspect)
}
