package measure

import (
	"math"
	"testing"

	"turmoric/internal/processing/morphology"
	"turmoric/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func single(t *testing.T, m *raster.Mask) *Region {
	t.Helper()
	labels, err := morphology.Label(m, morphology.Conn8)
	require.NoError(t, err)
	regions := Regions(labels)
	require.Len(t, regions, 1)
	return regions[0]
}

func assertFilled(t *testing.T, r *Region, want float64) {
	t.Helper()
	got, err := r.FilledArea()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func assertEuler(t *testing.T, r *Region, want float64) {
	t.Helper()
	got, err := r.EulerNumber()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSquareDescriptors(t *testing.T) {
	m := raster.NewMask(60, 60)
	m.Fill(5, 45, 10, 50, true)
	r := single(t, m)

	assert.Equal(t, 1600.0, r.Area())
	assert.Equal(t, [4]float64{5, 10, 45, 50}, r.BBox())
	assert.Equal(t, 1600.0, r.BBoxArea())
	assert.Equal(t, 1.0, r.Extent())

	row, col := r.Centroid()
	assert.Equal(t, 24.5, row)
	assert.Equal(t, 29.5, col)

	axis := 4 * math.Sqrt(1599.0/12)
	assert.InDelta(t, axis, r.MajorAxisLength(), 1e-9)
	assert.InDelta(t, axis, r.MinorAxisLength(), 1e-9)
	assert.InDelta(t, 0, r.Eccentricity(), 1e-6)

	assert.InDelta(t, 156, r.Perimeter(), 1e-9)
	assert.Equal(t, 1600.0, r.ConvexArea())
	assert.Equal(t, 1.0, r.Solidity())
	assertFilled(t, r, 1600)
	assertEuler(t, r, 1)
	assert.InDelta(t, math.Sqrt(4*1600/math.Pi), r.EquivalentDiameter(), 1e-12)
}

func TestRingHoleDescriptors(t *testing.T) {
	m := raster.NewMask(12, 12)
	m.Fill(1, 11, 1, 11, true)
	m.Fill(4, 8, 4, 8, false)
	r := single(t, m)

	assert.Equal(t, 84.0, r.Area())
	assertFilled(t, r, 100)
	assertEuler(t, r, 0)
	assert.Equal(t, 100.0, r.ConvexArea())
	assert.InDelta(t, 0.84, r.Solidity(), 1e-12)
}

func TestFilledAreaIgnoresCornerOpenGap(t *testing.T) {
	// 4x4 ring missing its bottom-right corner: the 2x2 interior reaches the
	// bounding box edge only diagonally. It is still a 4-connected hole for
	// the Euler number but not for filled_area.
	m := raster.NewMask(6, 6)
	m.Fill(1, 5, 1, 5, true)
	m.Fill(2, 4, 2, 4, false)
	m.Set(4, 4, false)
	r := single(t, m)

	assert.Equal(t, 11.0, r.Area())
	assert.Equal(t, 16.0, r.BBoxArea())
	assertFilled(t, r, 11)
	assertEuler(t, r, 0)
}

func TestOrientation(t *testing.T) {
	wide := raster.NewMask(10, 30)
	wide.Fill(4, 7, 2, 25, true)
	assert.InDelta(t, math.Pi/2, math.Abs(single(t, wide).Orientation()), 1e-12)

	tall := raster.NewMask(30, 10)
	tall.Fill(2, 25, 4, 7, true)
	reg := single(t, tall)
	assert.InDelta(t, 0, reg.Orientation(), 1e-12)
	assert.Greater(t, reg.MajorAxisLength(), reg.MinorAxisLength())
	assert.Greater(t, reg.Eccentricity(), 0.9)
}

func TestDiagonalAndSinglePixel(t *testing.T) {
	diag := raster.NewMask(3, 3)
	for i := 0; i < 3; i++ {
		diag.Set(i, i, true)
	}
	r := single(t, diag)
	assert.Equal(t, 3.0, r.Area())
	assert.InDelta(t, math.Sqrt2, r.Perimeter(), 1e-12)

	dot := raster.NewMask(3, 3)
	dot.Set(1, 1, true)
	r = single(t, dot)
	assert.Equal(t, 0.0, r.Perimeter())
	assert.Equal(t, 1.0, r.ConvexArea())
	assert.Equal(t, 0.0, r.Eccentricity())
	assert.Equal(t, 0.0, r.MajorAxisLength())
}

func TestConvexAreaOfLShape(t *testing.T) {
	m := raster.NewMask(6, 6)
	m.Fill(0, 5, 0, 1, true)
	m.Fill(4, 5, 0, 5, true)
	r := single(t, m)

	assert.Equal(t, 9.0, r.Area())
	assert.Greater(t, r.ConvexArea(), r.Area())
	assert.LessOrEqual(t, r.ConvexArea(), r.BBoxArea())
}

func TestTable(t *testing.T) {
	m := raster.NewMask(20, 20)
	m.Fill(2, 6, 2, 6, true)
	m.Set(15, 15, true)
	m.Set(16, 16, true)

	tbl, err := Table(m, []string{"label", "area", "centroid", "bbox"}, "slice_1.npy")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"label", "area", "centroid-0", "centroid-1",
		"bbox-0", "bbox-1", "bbox-2", "bbox-3", "filename",
	}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"1", "16", "3.5", "3.5", "2", "2", "6", "6", "slice_1.npy"}, tbl.Rows[0])
	assert.Equal(t, "2", tbl.Cell(1, "area"))
}

func TestTableDefaultPropertiesAndEmptyMask(t *testing.T) {
	tbl, err := Table(raster.NewMask(5, 5), DefaultProperties, "empty.npy")
	require.NoError(t, err)
	assert.Zero(t, tbl.Len())
	assert.Len(t, tbl.Columns, len(DefaultProperties)+2)
}

func TestUnknownProperty(t *testing.T) {
	_, err := Table(raster.NewMask(2, 2), []string{"area", "moments_hu"}, "x")
	assert.ErrorIs(t, err, ErrUnknownProperty)
}
