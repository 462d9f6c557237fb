package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"turmoric/internal/discovery"
	"turmoric/internal/imageio"
	"turmoric/internal/logger"
	"turmoric/internal/models"
	"turmoric/internal/npy"
	"turmoric/internal/raster"
)

// ExportService converts .npy masks into 8-bit TIFFs for viewing in
// ordinary image tools.
type ExportService struct {
	Workers int

	logger logger.Logger
}

func NewExportService(log logger.Logger) *ExportService {
	if log == nil {
		log = logger.Nop()
	}
	return &ExportService{logger: log}
}

// MasksToTIFF writes <stem>.tif for every .npy below in, mirroring the tree
// under out. Boolean masks become 0/255; numeric arrays are min-max scaled.
func (s *ExportService) MasksToTIFF(ctx context.Context, in, out string) (*models.BatchReport, error) {
	abs, err := filepath.Abs(in)
	if err != nil {
		return nil, err
	}
	paths, err := discovery.RecursivelyGetAllFilepaths(abs, ".npy")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	report := runBatch(ctx, "npy2tif", paths, s.Workers, s.logger, func(ctx context.Context, _ int, path string) models.FileResult {
		img, err := npy.LoadImage(path)
		if err != nil {
			return models.FileResult{Err: err}
		}
		dir, err := outputDir(abs, out, path)
		if err != nil {
			return models.FileResult{Err: err}
		}
		dst := filepath.Join(dir, strings.TrimSuffix(filepath.Base(path), ".npy")+".tif")
		if mask, ok := binaryMask(img); ok {
			err = imageio.ExportMaskTIFF(dst, mask)
		} else {
			err = imageio.ExportImageTIFF(dst, img)
		}
		if err != nil {
			return models.FileResult{Err: err}
		}
		return models.FileResult{Output: dst}
	})
	return report, nil
}

// binaryMask reports whether img is a single-channel 0/1 integer array, so
// an all-foreground mask still exports as white.
func binaryMask(img *raster.Image) (*raster.Mask, bool) {
	if img.Channels != 1 || !img.Integer {
		return nil, false
	}
	m := raster.NewMask(img.Height, img.Width)
	for i, v := range img.Pix {
		switch v {
		case 0:
		case 1:
			m.Bits[i] = true
		default:
			return nil, false
		}
	}
	return m, true
}
