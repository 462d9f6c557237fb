// Package services drives the per-file batch operations: thresholding image
// trees, measuring mask trees and exporting masks for inspection.
package services

import (
	"context"
	"runtime"
	"sync"
	"time"

	"turmoric/internal/logger"
	"turmoric/internal/models"
)

// fileFunc processes paths[i] and fills in the result's Output and Rows.
type fileFunc func(ctx context.Context, i int, path string) models.FileResult

// runBatch processes paths on a bounded worker pool. A failure is logged with
// its path and recorded; the remaining files still run. Results keep the
// order of paths. Cancelling ctx stops new files from starting.
func runBatch(ctx context.Context, operation string, paths []string, workers int, log logger.Logger, fn fileFunc) *models.BatchReport {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := make(chan struct{}, workers)
	report := models.NewBatchReport(operation, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		select {
		case pool <- struct{}{}:
		case <-ctx.Done():
			report.Set(i, models.FileResult{Path: path, Err: ctx.Err()})
			continue
		}

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-pool }()

			start := time.Now()
			res := fn(ctx, i, path)
			res.Path = path
			res.Duration = time.Since(start)
			report.Set(i, res)

			if res.Err != nil {
				log.Error(operation, res.Err, map[string]interface{}{"path": path})
				return
			}
			log.Debug(operation, "file processed", map[string]interface{}{
				"path":     path,
				"output":   res.Output,
				"rows":     res.Rows,
				"duration": res.Duration.String(),
			})
		}(i, path)
	}
	wg.Wait()
	report.Finish()

	log.Info(operation, "batch completed", report.Summary())
	return report
}
