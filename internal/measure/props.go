package measure

import (
	"errors"
	"fmt"

	"turmoric/internal/dataset"
	"turmoric/internal/processing/morphology"
	"turmoric/internal/raster"
)

var ErrUnknownProperty = errors.New("unknown region property")

// DefaultProperties is the property list written by the regionprops batch.
var DefaultProperties = []string{
	"area", "bbox_area", "centroid", "convex_area",
	"eccentricity", "equivalent_diameter", "euler_number",
	"extent", "filled_area", "major_axis_length",
	"minor_axis_length", "orientation", "perimeter", "solidity",
}

type property struct {
	columns []string
	values  func(*Region) ([]float64, error)
}

func scalar(name string, f func(*Region) float64) property {
	return property{columns: []string{name}, values: func(r *Region) ([]float64, error) { return []float64{f(r)}, nil }}
}

// fallible wraps descriptors that run component analysis on the region.
func fallible(name string, f func(*Region) (float64, error)) property {
	return property{columns: []string{name}, values: func(r *Region) ([]float64, error) {
		v, err := f(r)
		if err != nil {
			return nil, fmt.Errorf("%s of region %d: %w", name, r.Label, err)
		}
		return []float64{v}, nil
	}}
}

var catalogue = map[string]property{
	"label":               scalar("label", func(r *Region) float64 { return float64(r.Label) }),
	"area":                scalar("area", (*Region).Area),
	"bbox_area":           scalar("bbox_area", (*Region).BBoxArea),
	"convex_area":         scalar("convex_area", (*Region).ConvexArea),
	"eccentricity":        scalar("eccentricity", (*Region).Eccentricity),
	"equivalent_diameter": scalar("equivalent_diameter", (*Region).EquivalentDiameter),
	"euler_number":        fallible("euler_number", (*Region).EulerNumber),
	"extent":              scalar("extent", (*Region).Extent),
	"filled_area":         fallible("filled_area", (*Region).FilledArea),
	"major_axis_length":   scalar("major_axis_length", (*Region).MajorAxisLength),
	"minor_axis_length":   scalar("minor_axis_length", (*Region).MinorAxisLength),
	"orientation":         scalar("orientation", (*Region).Orientation),
	"perimeter":           scalar("perimeter", (*Region).Perimeter),
	"solidity":            scalar("solidity", (*Region).Solidity),
	"centroid": {
		columns: []string{"centroid-0", "centroid-1"},
		values: func(r *Region) ([]float64, error) {
			row, col := r.Centroid()
			return []float64{row, col}, nil
		},
	},
	"bbox": {
		columns: []string{"bbox-0", "bbox-1", "bbox-2", "bbox-3"},
		values: func(r *Region) ([]float64, error) {
			b := r.BBox()
			return b[:], nil
		},
	},
}

// Columns expands property names into table column names.
func Columns(props []string) ([]string, error) {
	var cols []string
	for _, name := range props {
		p, ok := catalogue[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
		}
		cols = append(cols, p.columns...)
	}
	return cols, nil
}

// Table labels mask with 8-connectivity and returns one row per region with
// the requested properties, followed by a "filename" column holding source.
func Table(mask *raster.Mask, props []string, source string) (*dataset.Table, error) {
	cols, err := Columns(props)
	if err != nil {
		return nil, err
	}

	labels, err := morphology.Label(mask, morphology.Conn8)
	if err != nil {
		return nil, err
	}

	tbl := dataset.NewTable(append(cols, "filename")...)
	for _, reg := range Regions(labels) {
		row := make([]string, 0, len(cols)+1)
		for _, name := range props {
			values, err := catalogue[name].values(reg)
			if err != nil {
				return nil, err
			}
			for _, v := range values {
				row = append(row, dataset.FormatFloat(v))
			}
		}
		row = append(row, source)
		if err := tbl.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
