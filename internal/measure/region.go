// Package measure computes per-region shape descriptors from a binary mask.
// Descriptor definitions follow scikit-image's regionprops so tables stay
// comparable with existing Python analyses.
package measure

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"turmoric/internal/processing/morphology"
	"turmoric/internal/raster"
)

// Region is one connected component. Coordinates are (row, col).
type Region struct {
	Label  int
	Coords [][2]int

	// Bounding box; max is exclusive.
	MinRow, MinCol, MaxRow, MaxCol int

	image   *raster.Mask
	moments *centralMoments
}

// Regions groups labeled pixels by label id, in label order.
func Regions(labels *raster.Labels) []*Region {
	regions := make([]*Region, labels.Count)
	for i := range regions {
		regions[i] = &Region{Label: i + 1, MinRow: math.MaxInt, MinCol: math.MaxInt}
	}

	for i, id := range labels.Data {
		if id == 0 {
			continue
		}
		r, c := i/labels.Width, i%labels.Width
		reg := regions[id-1]
		reg.Coords = append(reg.Coords, [2]int{r, c})
		reg.MinRow = min(reg.MinRow, r)
		reg.MinCol = min(reg.MinCol, c)
		reg.MaxRow = max(reg.MaxRow, r+1)
		reg.MaxCol = max(reg.MaxCol, c+1)
	}
	return regions
}

func (r *Region) Area() float64 {
	return float64(len(r.Coords))
}

func (r *Region) BBox() [4]float64 {
	return [4]float64{float64(r.MinRow), float64(r.MinCol), float64(r.MaxRow), float64(r.MaxCol)}
}

func (r *Region) BBoxArea() float64 {
	return float64((r.MaxRow - r.MinRow) * (r.MaxCol - r.MinCol))
}

// Image is the region's foreground cropped to its bounding box.
func (r *Region) Image() *raster.Mask {
	if r.image == nil {
		m := raster.NewMask(r.MaxRow-r.MinRow, r.MaxCol-r.MinCol)
		for _, p := range r.Coords {
			m.Set(p[0]-r.MinRow, p[1]-r.MinCol, true)
		}
		r.image = m
	}
	return r.image
}

type centralMoments struct {
	rowMean, colMean float64
	// Normalized second moments: sum((row-rowMean)^2)/n etc.
	rr, cc, rc float64
}

func (r *Region) central() *centralMoments {
	if r.moments != nil {
		return r.moments
	}

	n := r.Area()
	m := &centralMoments{}
	for _, p := range r.Coords {
		m.rowMean += float64(p[0])
		m.colMean += float64(p[1])
	}
	m.rowMean /= n
	m.colMean /= n

	for _, p := range r.Coords {
		dr := float64(p[0]) - m.rowMean
		dc := float64(p[1]) - m.colMean
		m.rr += dr * dr
		m.cc += dc * dc
		m.rc += dr * dc
	}
	m.rr /= n
	m.cc /= n
	m.rc /= n

	r.moments = m
	return m
}

// Centroid is the mean (row, col) of the region's pixels.
func (r *Region) Centroid() (float64, float64) {
	m := r.central()
	return m.rowMean, m.colMean
}

// InertiaTensor returns [[a, b], [b, c]] with a = mu02/mu00, b = -mu11/mu00
// and c = mu20/mu00, where mu_pq weights rows by p and columns by q.
func (r *Region) InertiaTensor() (a, b, c float64) {
	m := r.central()
	return m.cc, -m.rc, m.rr
}

// InertiaTensorEigvals returns the eigenvalues clipped at zero, largest first.
func (r *Region) InertiaTensorEigvals() (float64, float64) {
	a, b, c := r.InertiaTensor()

	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(2, []float64{a, b, b, c}), false) {
		return math.NaN(), math.NaN()
	}
	vals := eig.Values(nil)
	return math.Max(vals[1], 0), math.Max(vals[0], 0)
}

func (r *Region) MajorAxisLength() float64 {
	l1, _ := r.InertiaTensorEigvals()
	return 4 * math.Sqrt(l1)
}

func (r *Region) MinorAxisLength() float64 {
	_, l2 := r.InertiaTensorEigvals()
	return 4 * math.Sqrt(l2)
}

func (r *Region) Eccentricity() float64 {
	l1, l2 := r.InertiaTensorEigvals()
	if l1 == 0 {
		return 0
	}
	return math.Sqrt(1 - l2/l1)
}

// Orientation is the angle in radians between the row axis and the major
// axis, in [-pi/2, pi/2].
func (r *Region) Orientation() float64 {
	a, b, c := r.InertiaTensor()
	if a-c == 0 {
		if b < 0 {
			return math.Pi / 4
		}
		return -math.Pi / 4
	}
	return 0.5 * math.Atan2(-2*b, c-a)
}

func (r *Region) EquivalentDiameter() float64 {
	return math.Sqrt(4 * r.Area() / math.Pi)
}

func (r *Region) Extent() float64 {
	return r.Area() / r.BBoxArea()
}

func (r *Region) ConvexArea() float64 {
	return float64(convexImage(r.Image()).Count())
}

func (r *Region) Solidity() float64 {
	return r.Area() / r.ConvexArea()
}

// FilledArea counts the region's pixels plus its enclosed holes. Background
// is traced with 8-connectivity, so a gap that reaches the bounding box edge
// through a corner is not a hole.
func (r *Region) FilledArea() (float64, error) {
	filled, err := morphology.FillHoles(r.Image(), morphology.Conn8)
	if err != nil {
		return math.NaN(), err
	}
	return float64(filled.Count()), nil
}

// EulerNumber is one minus the number of 4-connected holes; a region is a
// single 8-connected object.
func (r *Region) EulerNumber() (float64, error) {
	n, err := morphology.HoleCount(r.Image(), morphology.Conn4)
	if err != nil {
		return math.NaN(), err
	}
	return float64(1 - n), nil
}

// Perimeter estimates the boundary length from the 4-connected border
// pixels, weighting each by its local border configuration.
func (r *Region) Perimeter() float64 {
	return perimeter(r.Image())
}
