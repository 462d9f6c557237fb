package morphology

import (
	"turmoric/internal/opencv"
	"turmoric/internal/raster"
)

// RemoveSmallObjects clears every component with fewer than minSize pixels.
// Components of exactly minSize pixels are kept.
func RemoveSmallObjects(mask *raster.Mask, minSize int, conn Connectivity) (*raster.Mask, error) {
	return opencv.RemoveSmallObjects(mask, minSize, int(conn))
}

// FillHoles sets every background pixel that cannot reach the image border
// through background connected under conn.
func FillHoles(mask *raster.Mask, conn Connectivity) (*raster.Mask, error) {
	hs, err := holes(mask, conn)
	if err != nil {
		return nil, err
	}

	out := mask.Clone()
	for _, hole := range hs {
		for _, p := range hole {
			out.Bits[p] = true
		}
	}
	return out, nil
}

// HoleCount reports the number of enclosed background components.
func HoleCount(mask *raster.Mask, conn Connectivity) (int, error) {
	hs, err := holes(mask, conn)
	return len(hs), err
}

// holes returns the pixel indices of each background component of mask that
// does not touch the border.
func holes(mask *raster.Mask, conn Connectivity) ([][]int, error) {
	height, width := mask.Height, mask.Width
	inverse := raster.NewMask(height, width)
	for i, b := range mask.Bits {
		inverse.Bits[i] = !b
	}

	bg, err := Label(inverse, conn)
	if err != nil {
		return nil, err
	}
	if bg.Count == 0 {
		return nil, nil
	}

	touches := make([]bool, bg.Count+1)
	for c := 0; c < width; c++ {
		touches[bg.Data[c]] = true
		touches[bg.Data[(height-1)*width+c]] = true
	}
	for r := 0; r < height; r++ {
		touches[bg.Data[r*width]] = true
		touches[bg.Data[r*width+width-1]] = true
	}

	byID := make([][]int, bg.Count+1)
	for i, id := range bg.Data {
		if id != 0 && !touches[id] {
			byID[id] = append(byID[id], i)
		}
	}

	var out [][]int
	for _, pixels := range byID {
		if len(pixels) > 0 {
			out = append(out, pixels)
		}
	}
	return out, nil
}
