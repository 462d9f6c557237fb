// Package imageio maps input files to rasters by extension and exports
// rasters and masks as 8-bit TIFFs.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/tiff"

	"turmoric/internal/logger"
	"turmoric/internal/npy"
	"turmoric/internal/raster"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// DecodeFunc reads the file at path into a raster.
type DecodeFunc func(path string) (*raster.Image, error)

// Loader dispatches on the lower-cased file extension.
type Loader struct {
	mu       sync.RWMutex
	decoders map[string]DecodeFunc
	logger   logger.Logger
}

// NewLoader returns a loader that understands .npy arrays and, through the
// pure-Go decoders, 8/16-bit PNG, JPEG and single-page TIFF.
func NewLoader(log logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	l := &Loader{decoders: make(map[string]DecodeFunc), logger: log}
	l.Register(".npy", npy.LoadImage)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".tif", ".tiff"} {
		l.Register(ext, DecodeStd)
	}
	return l
}

// Register installs fn for ext, replacing any previous decoder.
func (l *Loader) Register(ext string, fn DecodeFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decoders[normalizeExt(ext)] = fn
}

// Extensions lists the registered extensions, sorted.
func (l *Loader) Extensions() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	exts := make([]string, 0, len(l.decoders))
	for ext := range l.decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (l *Loader) Load(path string) (*raster.Image, error) {
	ext := normalizeExt(filepath.Ext(path))

	l.mu.RLock()
	fn, ok := l.decoders[ext]
	l.mu.RUnlock()

	if !ok {
		if ext == ".nd2" {
			return nil, fmt.Errorf("%w: %s (convert ND2 stacks to TIFF first)", ErrUnsupportedFormat, path)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	l.logger.Debug("ImageLoader", "loading image", map[string]interface{}{
		"path":      path,
		"extension": ext,
	})

	img, err := fn(path)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("ImageLoader", "image loaded", map[string]interface{}{
		"path":     path,
		"width":    img.Width,
		"height":   img.Height,
		"channels": img.Channels,
	})
	return img, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// DecodeStd decodes any format registered with the image package. Gray
// images become one channel; everything else becomes RGB with alpha dropped.
func DecodeStd(path string) (*raster.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return FromImage(src), nil
}

// FromImage converts a decoded image into a raster, preserving 8/16-bit sample values.
func FromImage(src image.Image) *raster.Image {
	b := src.Bounds()
	h, w := b.Dy(), b.Dx()

	switch s := src.(type) {
	case *image.Gray:
		img := raster.NewImage(h, w, 1, true)
		for r := 0; r < h; r++ {
			for c := 0; c < w; c++ {
				img.Pix[r*w+c] = float64(s.GrayAt(b.Min.X+c, b.Min.Y+r).Y)
			}
		}
		return img
	case *image.Gray16:
		img := raster.NewImage(h, w, 1, true)
		for r := 0; r < h; r++ {
			for c := 0; c < w; c++ {
				img.Pix[r*w+c] = float64(s.Gray16At(b.Min.X+c, b.Min.Y+r).Y)
			}
		}
		return img
	}

	shift := uint32(8)
	switch src.(type) {
	case *image.RGBA64, *image.NRGBA64:
		shift = 0
	}

	img := raster.NewImage(h, w, 3, true)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			px := color.NRGBA64Model.Convert(src.At(b.Min.X+c, b.Min.Y+r)).(color.NRGBA64)
			img.Set(r, c, 0, float64(uint32(px.R)>>shift))
			img.Set(r, c, 1, float64(uint32(px.G)>>shift))
			img.Set(r, c, 2, float64(uint32(px.B)>>shift))
		}
	}
	return img
}
