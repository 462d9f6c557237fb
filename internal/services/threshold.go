package services

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"turmoric/internal/discovery"
	"turmoric/internal/imageio"
	"turmoric/internal/logger"
	"turmoric/internal/models"
	"turmoric/internal/npy"
	"turmoric/internal/processing/threshold"
	"turmoric/internal/raster"
)

// ImageLoader decodes an input file into a raster.
type ImageLoader interface {
	Load(path string) (*raster.Image, error)
}

type ThresholdService struct {
	Loader      ImageLoader
	Engine      *threshold.Engine
	InputSuffix string
	Workers     int

	logger logger.Logger
}

func NewThresholdService(loader ImageLoader, engine *threshold.Engine, inputSuffix string, log logger.Logger) *ThresholdService {
	if log == nil {
		log = logger.Nop()
	}
	return &ThresholdService{
		Loader:      loader,
		Engine:      engine,
		InputSuffix: inputSuffix,
		logger:      log,
	}
}

// MaskName maps "slice_1.tif" to "slice_1_li_thresh.npy".
func MaskName(input, suffix, method string) string {
	stem := strings.TrimSuffix(filepath.Base(input), suffix)
	return stem + "_" + method + "_thresh.npy"
}

// outputDir mirrors the directory of path below in into out.
func outputDir(in, out, path string) (string, error) {
	rel, err := filepath.Rel(in, filepath.Dir(path))
	if err != nil {
		return "", err
	}
	dir := filepath.Join(out, rel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return dir, nil
}

// ApplyRecursively thresholds every image below in and writes one mask per
// image into the mirrored tree under out.
func (s *ThresholdService) ApplyRecursively(ctx context.Context, in, out string) (*models.BatchReport, error) {
	in, paths, err := s.discover(in, out)
	if err != nil {
		return nil, err
	}

	method := s.Engine.Method.Name()
	s.logger.Info("ThresholdService", "thresholding images", map[string]interface{}{
		"input":  in,
		"output": out,
		"method": method,
		"files":  len(paths),
		"steps":  s.cleanupSteps(),
	})

	report := runBatch(ctx, "threshold", paths, s.Workers, s.logger, func(ctx context.Context, _ int, path string) models.FileResult {
		img, err := s.Loader.Load(path)
		if err != nil {
			return models.FileResult{Err: err}
		}
		mask, t, err := s.Engine.Run(ctx, img)
		if err != nil {
			return models.FileResult{Err: err}
		}

		dir, err := outputDir(in, out, path)
		if err != nil {
			return models.FileResult{Err: err}
		}
		dst := filepath.Join(dir, MaskName(path, s.InputSuffix, method))
		if err := npy.SaveMask(dst, mask); err != nil {
			return models.FileResult{Err: err}
		}

		s.logger.Debug("ThresholdService", "mask written", map[string]interface{}{
			"path":       path,
			"threshold":  t,
			"foreground": mask.Count(),
		})
		return models.FileResult{Output: dst}
	})
	return report, nil
}

func (s *ThresholdService) cleanupSteps() []string {
	if s.Engine.Cleanup == nil {
		return nil
	}
	return s.Engine.Cleanup.GetStepNames()
}

// TryAll runs every registered threshold method on each image, saves each
// mask and a montage <stem>_all_thresh.png with the normalized signal
// channel followed by one panel per method.
func (s *ThresholdService) TryAll(ctx context.Context, in, out string) (*models.BatchReport, error) {
	in, paths, err := s.discover(in, out)
	if err != nil {
		return nil, err
	}

	methods := threshold.Names()
	report := runBatch(ctx, "try_all", paths, s.Workers, s.logger, func(ctx context.Context, _ int, path string) models.FileResult {
		img, err := s.Loader.Load(path)
		if err != nil {
			return models.FileResult{Err: err}
		}
		signal, err := img.Channel(s.Engine.Channel)
		if err != nil {
			return models.FileResult{Err: err}
		}
		panel, err := imageio.ImageToStd(signal)
		if err != nil {
			return models.FileResult{Err: err}
		}

		dir, err := outputDir(in, out, path)
		if err != nil {
			return models.FileResult{Err: err}
		}

		panels := []image.Image{panel}
		for _, name := range methods {
			m, err := threshold.Lookup(name)
			if err != nil {
				return models.FileResult{Err: err}
			}
			engine := *s.Engine
			engine.Method = m

			mask, _, err := engine.Run(ctx, img)
			if err != nil {
				return models.FileResult{Err: fmt.Errorf("%s: %w", name, err)}
			}
			if err := npy.SaveMask(filepath.Join(dir, MaskName(path, s.InputSuffix, name)), mask); err != nil {
				return models.FileResult{Err: err}
			}
			panels = append(panels, imageio.MaskToGray(mask))
		}

		stem := strings.TrimSuffix(filepath.Base(path), s.InputSuffix)
		dst := filepath.Join(dir, stem+"_all_thresh.png")
		if err := imaging.Save(Montage(panels, 4), dst); err != nil {
			return models.FileResult{Err: fmt.Errorf("failed to save montage: %w", err)}
		}
		return models.FileResult{Output: dst, Rows: len(methods)}
	})
	return report, nil
}

// Montage lays equally sized panels out left to right with gap pixels of
// black between them.
func Montage(panels []image.Image, gap int) *image.NRGBA {
	if len(panels) == 0 {
		return imaging.New(0, 0, color.Black)
	}
	b := panels[0].Bounds()
	w, h := b.Dx(), b.Dy()

	dst := imaging.New(len(panels)*w+(len(panels)-1)*gap, h, color.Black)
	for i, p := range panels {
		dst = imaging.Paste(dst, p, image.Pt(i*(w+gap), 0))
	}
	return dst
}

func (s *ThresholdService) discover(in, out string) (string, []string, error) {
	abs, err := filepath.Abs(in)
	if err != nil {
		return "", nil, err
	}
	paths, err := discovery.RecursivelyGetAllFilepaths(abs, s.InputSuffix)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return abs, paths, nil
}
