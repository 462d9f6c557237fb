package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"turmoric/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTreatments(t *testing.T) *dataset.Table {
	t.Helper()
	tbl := dataset.NewTable("treatment", "area", "perimeter", "circularity")
	rows := [][]string{
		{"OGD", "10", "12", "0.5"},
		{"ORST", "2", "6", "0.9"},
		{"OGD", "20", "", "0.7"},
		{"ORST", "4", "8", "0.8"},
		{"OGD", "30", "16", "0.6"},
	}
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r))
	}
	return tbl
}

func TestSummarize(t *testing.T) {
	stats, err := Summarize(twoTreatments(t), []string{"area", "perimeter"})
	require.NoError(t, err)
	require.Len(t, stats, 4)

	assert.Equal(t, GroupStats{Treatment: "OGD", Metric: "area", Mean: 20, Std: 10, N: 3}, stats[0])
	assert.Equal(t, "perimeter", stats[1].Metric)
	assert.Equal(t, 2, stats[1].N)
	assert.Equal(t, 14.0, stats[1].Mean)
	assert.InDelta(t, math.Sqrt(8), stats[1].Std, 1e-12)
	assert.Equal(t, "ORST", stats[2].Treatment)
	assert.Equal(t, 3.0, stats[2].Mean)

	assert.Equal(t, []string{"OGD", "ORST"}, Treatments(stats))
	assert.Len(t, ForMetric(stats, "area"), 2)
}

func TestSummarizeSingleValueHasNaNStd(t *testing.T) {
	tbl := dataset.NewTable("treatment", "area")
	require.NoError(t, tbl.AppendRow([]string{"ctrl", "5"}))

	stats, err := Summarize(tbl, []string{"area"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, stats[0].Mean)
	assert.True(t, math.IsNaN(stats[0].Std))
}

func TestSummarizeMissingColumn(t *testing.T) {
	_, err := Summarize(twoTreatments(t), []string{"solidity"})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Summarize(dataset.NewTable("area"), []string{"area"})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestSummaryTable(t *testing.T) {
	tbl := SummaryTable([]GroupStats{
		{Treatment: "OGD", Metric: "area", Mean: 20, Std: 10, N: 3},
		{Treatment: "ctrl", Metric: "circularity", Mean: 0.25, Std: math.NaN(), N: 1},
	})

	assert.Equal(t, []string{"Treatment", "Metric", "Mean", "Std Dev", "Sample Size", "Mean ± SD"}, tbl.Columns)
	assert.Equal(t, []string{"OGD", "Area", "20.000", "10.000", "3", "20.000 ± 10.000"}, tbl.Rows[0])
	assert.Equal(t, []string{"ctrl", "Circularity", "0.250", "nan", "1", "0.250 ± nan"}, tbl.Rows[1])
}

func TestPlots(t *testing.T) {
	stats, err := Summarize(twoTreatments(t), []string{"area", "perimeter", "circularity"})
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "plots")

	files, err := PlotTreatmentMeans(stats, []string{"area", "perimeter", "circularity"}, dir, []string{"png", "pdf"})
	require.NoError(t, err)
	assert.Len(t, files, 6)
	assert.Contains(t, files, filepath.Join(dir, "area_by_treatment.png"))

	combined, err := PlotCombined(stats, []string{"area", "perimeter", "circularity"}, dir, []string{"png"})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, CombinedFile+".png")}, combined)

	for _, f := range append(files, combined...) {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), f)
	}
}

func TestPlotUnsupportedFormat(t *testing.T) {
	stats := []GroupStats{{Treatment: "a", Metric: "area", Mean: 1, Std: 0, N: 1}}
	_, err := PlotTreatmentMeans(stats, []string{"area"}, t.TempDir(), []string{"bmp"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
