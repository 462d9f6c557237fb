// Package morphology implements the binary-mask operations used after
// thresholding and before measurement: connected-component labeling,
// small-object removal and hole filling. Component analysis runs through
// OpenCV.
package morphology

import (
	"turmoric/internal/opencv"
	"turmoric/internal/raster"
)

type Connectivity int

const (
	// Conn4 joins edge-adjacent pixels.
	Conn4 Connectivity = 4
	// Conn8 also joins diagonal neighbours.
	Conn8 Connectivity = 8
)

// Label assigns a positive id to every connected foreground component, in
// raster order of each component's first pixel.
func Label(mask *raster.Mask, conn Connectivity) (*raster.Labels, error) {
	labels, _, err := opencv.ConnectedComponents(mask, int(conn))
	return labels, err
}
