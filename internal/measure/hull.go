package measure

import (
	"math"
	"sort"

	"turmoric/internal/raster"
)

type point struct{ x, y float64 }

func cross(o, a, b point) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

// convexHull returns the hull of pts in counter-clockwise order without
// collinear vertices (Andrew's monotone chain).
func convexHull(pts []point) []point {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		return pts[i].y < pts[j].y
	})
	if len(pts) < 3 {
		return pts
	}

	hull := make([]point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

const hullTolerance = 1e-10

// convexImage marks every pixel whose centre lies inside or on the convex
// hull of the foreground pixels' edge midpoints.
func convexImage(img *raster.Mask) *raster.Mask {
	var pts []point
	for r := 0; r < img.Height; r++ {
		lo, hi := -1, -1
		for c := 0; c < img.Width; c++ {
			if img.At(r, c) {
				if lo < 0 {
					lo = c
				}
				hi = c
			}
		}
		if lo < 0 {
			continue
		}
		fr, flo, fhi := float64(r), float64(lo), float64(hi)
		pts = append(pts,
			point{flo - 0.5, fr}, point{flo, fr - 0.5}, point{flo, fr + 0.5},
			point{fhi + 0.5, fr}, point{fhi, fr - 0.5}, point{fhi, fr + 0.5},
		)
	}

	out := raster.NewMask(img.Height, img.Width)
	if len(pts) == 0 {
		return out
	}
	hull := convexHull(pts)

	for r := 0; r < img.Height; r++ {
		for c := 0; c < img.Width; c++ {
			if insideHull(hull, point{float64(c), float64(r)}) {
				out.Set(r, c, true)
			}
		}
	}
	return out
}

func insideHull(hull []point, p point) bool {
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		length := math.Hypot(b.x-a.x, b.y-a.y)
		if cross(a, b, p)/length < -hullTolerance {
			return false
		}
	}
	return true
}
