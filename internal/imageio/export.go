package imageio

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"golang.org/x/image/tiff"

	"turmoric/internal/raster"
)

var tiffOptions = &tiff.Options{Compression: tiff.Deflate}

// MaskToGray renders foreground as 255 and background as 0.
func MaskToGray(m *raster.Mask) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		if b {
			g.Pix[i] = 255
		}
	}
	return g
}

// Normalize8 rescales the finite samples of img linearly onto 0..255.
// Constant images map to 0; NaN samples map to 0.
func Normalize8(img *raster.Image) []uint8 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range img.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]uint8, len(img.Pix))
	if !(hi > lo) {
		return out
	}
	scale := 255 / (hi - lo)
	for i, v := range img.Pix {
		if math.IsNaN(v) {
			continue
		}
		s := (v - lo) * scale
		switch {
		case s <= 0:
		case s >= 255:
			out[i] = 255
		default:
			out[i] = uint8(s)
		}
	}
	return out
}

// ImageToStd renders a normalized 1-channel raster as Gray and a 3 or
// 4-channel raster as NRGBA.
func ImageToStd(img *raster.Image) (image.Image, error) {
	px := Normalize8(img)
	rect := image.Rect(0, 0, img.Width, img.Height)

	switch img.Channels {
	case 1:
		g := image.NewGray(rect)
		copy(g.Pix, px)
		return g, nil
	case 3, 4:
		out := image.NewNRGBA(rect)
		for i := 0; i < img.Height*img.Width; i++ {
			o := i * 4
			s := i * img.Channels
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = px[s], px[s+1], px[s+2]
			out.Pix[o+3] = 255
			if img.Channels == 4 {
				out.Pix[o+3] = px[s+3]
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot render %d channels", raster.ErrDimensionality, img.Channels)
	}
}

func WriteMaskTIFF(w io.Writer, m *raster.Mask) error {
	return tiff.Encode(w, MaskToGray(m), tiffOptions)
}

func ExportMaskTIFF(path string, m *raster.Mask) error {
	return writeFile(path, func(w io.Writer) error { return WriteMaskTIFF(w, m) })
}

func ExportImageTIFF(path string, img *raster.Image) error {
	std, err := ImageToStd(img)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return tiff.Encode(w, std, tiffOptions) })
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
