// Package models holds the typed results shared by the batch drivers.
package models

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// FileResult is the outcome of processing one input file.
type FileResult struct {
	Path     string
	Output   string
	Rows     int
	Err      error
	Duration time.Duration
}

func (r FileResult) OK() bool {
	return r.Err == nil
}

// BatchReport collects per-file results. Results are kept in input order
// regardless of which worker finished first.
type BatchReport struct {
	Operation string
	Results   []FileResult
	StartTime time.Time
	Elapsed   time.Duration

	mu sync.Mutex
}

func NewBatchReport(operation string, files int) *BatchReport {
	return &BatchReport{
		Operation: operation,
		Results:   make([]FileResult, files),
		StartTime: time.Now(),
	}
}

// Set stores the result for input index i.
func (r *BatchReport) Set(i int, res FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results[i] = res
}

// Finish stamps the elapsed wall time.
func (r *BatchReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Elapsed = time.Since(r.StartTime)
}

func (r *BatchReport) Succeeded() []FileResult {
	return r.filter(true)
}

func (r *BatchReport) Failed() []FileResult {
	return r.filter(false)
}

func (r *BatchReport) filter(ok bool) []FileResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []FileResult
	for _, res := range r.Results {
		if res.OK() == ok {
			out = append(out, res)
		}
	}
	return out
}

// Rows sums the rows produced by successful files.
func (r *BatchReport) Rows() int {
	n := 0
	for _, res := range r.Succeeded() {
		n += res.Rows
	}
	return n
}

// Err joins the errors of every failed file, or returns nil.
func (r *BatchReport) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Path, res.Err))
	}
	return errors.Join(errs...)
}

// Summary is a log-friendly view of the report.
func (r *BatchReport) Summary() map[string]interface{} {
	return map[string]interface{}{
		"operation": r.Operation,
		"files":     len(r.Results),
		"succeeded": len(r.Succeeded()),
		"failed":    len(r.Failed()),
		"rows":      r.Rows(),
		"elapsed":   r.Elapsed.String(),
	}
}
