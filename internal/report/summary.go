// Package report summarizes a combined region table per treatment and
// renders the summary as CSV and bar charts.
package report

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/stat"

	"turmoric/internal/dataset"
)

var ErrMissingColumn = dataset.ErrMissingColumn

// SummaryFile is the name WriteSummaryCSV uses inside an output directory.
const SummaryFile = "treatment_summary_stats.csv"

// GroupStats describes one metric within one treatment. Std is the sample
// standard deviation and is NaN when fewer than two values are present.
type GroupStats struct {
	Treatment string
	Metric    string
	Mean      float64
	Std       float64
	N         int
}

// Summarize groups rows by the "treatment" column. Results are ordered by
// treatment name, then by the order of metrics. Missing cells are skipped.
func Summarize(t *dataset.Table, metrics []string) ([]GroupStats, error) {
	if !t.HasColumn("treatment") {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, "treatment")
	}

	columns := make(map[string][]float64, len(metrics))
	for _, m := range metrics {
		values, err := t.FloatColumn(m)
		if err != nil {
			return nil, err
		}
		columns[m] = values
	}

	groups := map[string][]int{}
	for i := 0; i < t.Len(); i++ {
		name := t.Cell(i, "treatment")
		groups[name] = append(groups[name], i)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []GroupStats
	for _, name := range names {
		for _, m := range metrics {
			var values []float64
			for _, row := range groups[name] {
				if v := columns[m][row]; !math.IsNaN(v) {
					values = append(values, v)
				}
			}
			out = append(out, describe(name, m, values))
		}
	}
	return out, nil
}

func describe(treatment, metric string, values []float64) GroupStats {
	gs := GroupStats{Treatment: treatment, Metric: metric, Mean: math.NaN(), Std: math.NaN(), N: len(values)}
	if len(values) > 0 {
		gs.Mean = stat.Mean(values, nil)
	}
	if len(values) > 1 {
		gs.Std = stat.StdDev(values, nil)
	}
	return gs
}

// Treatments lists the distinct treatments of stats in first-seen order.
func Treatments(stats []GroupStats) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range stats {
		if !seen[s.Treatment] {
			seen[s.Treatment] = true
			out = append(out, s.Treatment)
		}
	}
	return out
}

// ForMetric returns the stats of one metric, keeping treatment order.
func ForMetric(stats []GroupStats, metric string) []GroupStats {
	var out []GroupStats
	for _, s := range stats {
		if s.Metric == metric {
			out = append(out, s)
		}
	}
	return out
}

var titler = cases.Title(language.English)

func title(metric string) string {
	return titler.String(metric)
}

func fixed3(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.3f", v)
}

// SummaryTable lays stats out as Treatment, Metric, Mean, Std Dev,
// Sample Size and "Mean ± SD", with three decimals.
func SummaryTable(stats []GroupStats) *dataset.Table {
	t := dataset.NewTable("Treatment", "Metric", "Mean", "Std Dev", "Sample Size", "Mean ± SD")
	for _, s := range stats {
		mean, std := fixed3(s.Mean), fixed3(s.Std)
		// Width always matches the header.
		_ = t.AppendRow([]string{
			s.Treatment, title(s.Metric), mean, std,
			fmt.Sprint(s.N), mean + " ± " + std,
		})
	}
	return t
}

func WriteSummaryCSV(path string, stats []GroupStats) error {
	return dataset.WriteCSV(path, SummaryTable(stats))
}
