package measure

import (
	"math"

	"turmoric/internal/raster"
)

// perimeterWeights maps a border pixel's neighbourhood code to its length
// contribution. The code is 1 for the pixel itself, 2 per edge-adjacent
// border pixel and 10 per diagonal border pixel.
var perimeterWeights = func() [50]float64 {
	var w [50]float64
	for _, i := range []int{5, 7, 15, 17, 25, 27} {
		w[i] = 1
	}
	for _, i := range []int{21, 33} {
		w[i] = math.Sqrt2
	}
	for _, i := range []int{13, 23} {
		w[i] = (1 + math.Sqrt2) / 2
	}
	return w
}()

func perimeter(img *raster.Mask) float64 {
	h, w := img.Height, img.Width
	fg := func(r, c int) bool {
		return r >= 0 && r < h && c >= 0 && c < w && img.At(r, c)
	}

	border := make([]bool, h*w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if !img.At(r, c) {
				continue
			}
			interior := fg(r-1, c) && fg(r+1, c) && fg(r, c-1) && fg(r, c+1)
			border[r*w+c] = !interior
		}
	}
	isBorder := func(r, c int) bool {
		return r >= 0 && r < h && c >= 0 && c < w && border[r*w+c]
	}

	total := 0.0
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if !border[r*w+c] {
				continue
			}
			code := 1
			for _, o := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				if isBorder(r+o[0], c+o[1]) {
					code += 2
				}
			}
			for _, o := range [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}} {
				if isBorder(r+o[0], c+o[1]) {
					code += 10
				}
			}
			total += perimeterWeights[code]
		}
	}
	return total
}
