// Package opencv decodes microscopy rasters through OpenCV so 16-bit and
// multi-page TIFF stacks keep their native sample values.
package opencv

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"turmoric/internal/raster"
)

var ErrDecode = errors.New("opencv could not decode image")

// Extensions are the formats the CLI routes through ReadImage.
var Extensions = []string{".tif", ".tiff", ".png", ".jpg", ".jpeg", ".bmp"}

// ReadImage loads every page of path unchanged. A stack of equally sized
// single-channel pages becomes one multi-channel raster (page i is channel
// i); otherwise the first page is used. Color pages are reordered to RGB.
func ReadImage(path string) (*raster.Image, error) {
	pages := gocv.IMReadMulti(path, gocv.IMReadUnchanged)
	defer func() {
		for i := range pages {
			pages[i].Close()
		}
	}()

	if len(pages) == 0 {
		// IMReadMulti refuses some single-image formats.
		single := gocv.IMRead(path, gocv.IMReadUnchanged)
		if single.Empty() {
			single.Close()
			return nil, fmt.Errorf("%w: %s", ErrDecode, path)
		}
		pages = append(pages, single)
	}

	if len(pages) > 1 && stackable(pages) {
		return stackPages(pages)
	}
	return matToImage(pages[0])
}

func stackable(pages []gocv.Mat) bool {
	for _, p := range pages {
		if p.Channels() != 1 || p.Rows() != pages[0].Rows() || p.Cols() != pages[0].Cols() {
			return false
		}
	}
	return true
}

func stackPages(pages []gocv.Mat) (*raster.Image, error) {
	rows, cols := pages[0].Rows(), pages[0].Cols()
	if err := raster.ValidateDimensions(cols, rows, "page stacking"); err != nil {
		return nil, err
	}

	img := raster.NewImage(rows, cols, len(pages), isIntegerDepth(pages[0].Type()))
	for ch, p := range pages {
		values, err := samples(p)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			img.Pix[i*img.Channels+ch] = float64(v)
		}
	}
	return img, nil
}

func matToImage(m gocv.Mat) (*raster.Image, error) {
	rows, cols, channels := m.Rows(), m.Cols(), m.Channels()
	if err := raster.ValidateDimensions(cols, rows, "mat conversion"); err != nil {
		return nil, err
	}

	values, err := samples(m)
	if err != nil {
		return nil, err
	}

	img := raster.NewImage(rows, cols, channels, isIntegerDepth(m.Type()))
	for i, v := range values {
		img.Pix[i] = float64(v)
	}
	if channels == 3 || channels == 4 {
		bgrToRGB(img)
	}
	return img, nil
}

// samples widens any depth to float32 in row-major, channel-interleaved order.
func samples(m gocv.Mat) ([]float32, error) {
	f := gocv.NewMat()
	defer f.Close()
	if err := m.ConvertTo(&f, gocv.MatTypeCV32F); err != nil {
		return nil, fmt.Errorf("failed to widen mat: %w", err)
	}

	data, err := f.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to access mat data: %w", err)
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func isIntegerDepth(t gocv.MatType) bool {
	switch gocv.MatType(int(t) & 7) {
	case gocv.MatTypeCV32F, gocv.MatTypeCV64F:
		return false
	default:
		return true
	}
}

func bgrToRGB(img *raster.Image) {
	for i := 0; i < len(img.Pix); i += img.Channels {
		img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
	}
}
