package services

import (
	"context"
	"fmt"

	"turmoric/internal/dataset"
	"turmoric/internal/discovery"
	"turmoric/internal/logger"
	"turmoric/internal/measure"
	"turmoric/internal/models"
	"turmoric/internal/npy"
)

type RegionpropsService struct {
	MaskSuffix string
	Properties []string
	Workers    int

	logger logger.Logger
}

func NewRegionpropsService(maskSuffix string, properties []string, log logger.Logger) *RegionpropsService {
	if log == nil {
		log = logger.Nop()
	}
	if len(properties) == 0 {
		properties = measure.DefaultProperties
	}
	return &RegionpropsService{
		MaskSuffix: maskSuffix,
		Properties: properties,
		logger:     log,
	}
}

// ApplyRecursively measures every mask below in and concatenates the
// per-file tables in discovery order. Each row's "filename" is the mask path.
func (s *RegionpropsService) ApplyRecursively(ctx context.Context, in string) (*dataset.Table, *models.BatchReport, error) {
	if _, err := measure.Columns(s.Properties); err != nil {
		return nil, nil, err
	}

	paths, err := discovery.RecursivelyGetAllFilepaths(in, s.MaskSuffix)
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("%w: no *%s under %s", dataset.ErrNoFiles, s.MaskSuffix, in)
	}

	tables := make([]*dataset.Table, len(paths))
	report := runBatch(ctx, "regionprops", paths, s.Workers, s.logger, func(ctx context.Context, i int, path string) models.FileResult {
		mask, err := npy.LoadMask(path)
		if err != nil {
			return models.FileResult{Err: err}
		}
		tbl, err := measure.Table(mask, s.Properties, path)
		if err != nil {
			return models.FileResult{Err: err}
		}
		tables[i] = tbl
		return models.FileResult{Rows: tbl.Len()}
	})

	var loaded []*dataset.Table
	for _, t := range tables {
		if t != nil {
			loaded = append(loaded, t)
		}
	}
	if len(loaded) == 0 {
		return nil, report, fmt.Errorf("%w: %d of %d masks failed", dataset.ErrNoTables, len(report.Failed()), len(paths))
	}
	return dataset.Concat(loaded...), report, nil
}
