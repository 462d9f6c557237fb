package dataset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"turmoric/internal/discovery"
	"turmoric/internal/logger"
	"turmoric/internal/models"
)

var (
	ErrNoFiles  = errors.New("no input files found")
	ErrNoTables = errors.New("no tables could be loaded")
)

// ConcatenateDirectory loads every *.csv below root, tags each row with
// "treatment" and "source_file" (path relative to root) and stacks them in
// discovery order. Unreadable files are logged, recorded and skipped.
func ConcatenateDirectory(ctx context.Context, root string, treat Treatment, log logger.Logger) (*Table, *models.BatchReport, error) {
	paths, err := discovery.RecursivelyGetAllFilepaths(root, ".csv")
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("%w: no .csv under %s", ErrNoFiles, root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}

	report := models.NewBatchReport("concat", len(paths))
	var tables []*Table

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		start := time.Now()
		t, err := loadTagged(path, absRoot, treat)
		report.Set(i, models.FileResult{Path: path, Rows: rowsOf(t), Err: err, Duration: time.Since(start)})
		if err != nil {
			log.Error("Concatenate", err, map[string]interface{}{"path": path})
			continue
		}

		log.Debug("Concatenate", "table loaded", map[string]interface{}{
			"path":      path,
			"treatment": treat.Treatment(path),
			"rows":      t.Len(),
		})
		tables = append(tables, t)
	}
	report.Finish()

	if len(tables) == 0 {
		return nil, report, fmt.Errorf("%w: %d files failed", ErrNoTables, len(paths))
	}

	combined := Concat(tables...)
	log.Info("Concatenate", "tables concatenated", report.Summary())
	return combined, report, nil
}

func loadTagged(path, root string, treat Treatment) (*Table, error) {
	t, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	if err := t.Fill("treatment", treat.Treatment(path)); err != nil {
		return nil, err
	}
	if err := t.Fill("source_file", rel); err != nil {
		return nil, err
	}
	return t, nil
}

func rowsOf(t *Table) int {
	if t == nil {
		return 0
	}
	return t.Len()
}
