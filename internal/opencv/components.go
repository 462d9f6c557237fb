package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"turmoric/internal/raster"
)

// ConnectedComponents labels the foreground of mask with 4 or 8
// connectivity and returns the labels plus pixel counts indexed by label
// (index 0 is background). Labels are renumbered in raster order of each
// component's first pixel.
func ConnectedComponents(mask *raster.Mask, connectivity int) (*raster.Labels, []int, error) {
	if connectivity != 4 && connectivity != 8 {
		return nil, nil, fmt.Errorf("connectivity must be 4 or 8, got %d", connectivity)
	}

	labels := &raster.Labels{Height: mask.Height, Width: mask.Width, Data: make([]int32, len(mask.Bits))}
	if len(mask.Bits) == 0 {
		return labels, []int{0}, nil
	}

	src, err := maskToMat(mask)
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	out := gocv.NewMat()
	defer out.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStatsWithParams(src, &out, &stats, &centroids,
		connectivity, gocv.MatTypeCV32S, gocv.CCL_WU)

	data, err := out.DataPtrInt32()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access label data: %w", err)
	}

	// OpenCV's numbering depends on the scan algorithm; pin it to raster order.
	remap := make([]int32, n)
	sizes := []int{int(stats.GetIntAt(0, int(gocv.CC_STAT_AREA)))}
	for i, id := range data {
		if id == 0 {
			continue
		}
		if remap[id] == 0 {
			labels.Count++
			remap[id] = int32(labels.Count)
			sizes = append(sizes, int(stats.GetIntAt(int(id), int(gocv.CC_STAT_AREA))))
		}
		labels.Data[i] = remap[id]
	}
	return labels, sizes, nil
}

// RemoveSmallObjects clears every component with fewer than minSize pixels,
// reading component areas from OpenCV's stats table.
func RemoveSmallObjects(mask *raster.Mask, minSize, connectivity int) (*raster.Mask, error) {
	out := mask.Clone()
	if minSize <= 1 || len(mask.Bits) == 0 {
		return out, nil
	}

	labels, sizes, err := ConnectedComponents(mask, connectivity)
	if err != nil {
		return nil, err
	}
	for i, id := range labels.Data {
		if id != 0 && sizes[id] < minSize {
			out.Bits[i] = false
		}
	}
	return out, nil
}

// maskToMat copies mask into an 8-bit single-channel Mat with 255 for
// foreground.
func maskToMat(mask *raster.Mask) (gocv.Mat, error) {
	if err := raster.ValidateDimensions(mask.Width, mask.Height, "mask conversion"); err != nil {
		return gocv.Mat{}, err
	}
	buf := make([]byte, len(mask.Bits))
	for i, b := range mask.Bits {
		if b {
			buf[i] = 255
		}
	}
	m, err := gocv.NewMatFromBytes(mask.Height, mask.Width, gocv.MatTypeCV8UC1, buf)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to build mask mat: %w", err)
	}
	return m, nil
}
