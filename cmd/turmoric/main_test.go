package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"turmoric/internal/config"
	"turmoric/internal/npy"
	"turmoric/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUsage(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, exitSetup, run(nil, &buf))
	assert.Contains(t, buf.String(), "threshold")
	assert.Contains(t, buf.String(), "regionprops")

	buf.Reset()
	assert.Equal(t, exitOK, run([]string{"help"}, &buf))
}

func TestRunUnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, exitSetup, run([]string{"segment"}, &buf))
	assert.Contains(t, buf.String(), `unknown command "segment"`)
}

func TestRunWrongArity(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, exitSetup, run([]string{"threshold", "only-input"}, &buf))
	assert.Contains(t, buf.String(), "usage: turmoric threshold")
}

func TestRunConcatAndPlot(t *testing.T) {
	root := t.TempDir()
	csv := "label,area,perimeter,major_axis_length,minor_axis_length\n1,100,40,20,10\n2,50,30,12,6\n"
	for _, dir := range []string{"control", "treated"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, dir, "slice.csv"), []byte(csv), 0o644))
	}

	out := t.TempDir()
	combined := filepath.Join(out, "all.csv")
	var buf bytes.Buffer
	require.Equal(t, exitOK, run([]string{"concat", "-log-level", "error", "-by", "directory", root, combined}, &buf), buf.String())

	data, err := os.ReadFile(combined)
	require.NoError(t, err)
	assert.Contains(t, string(data), "circularity")
	assert.Contains(t, string(data), "treated")

	plots := filepath.Join(out, "plots")
	require.Equal(t, exitOK, run([]string{"plot", "-log-level", "error", combined, plots}, &buf), buf.String())
	assert.FileExists(t, filepath.Join(plots, "treatment_summary_stats.csv"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}

func TestRunRegionpropsPartialFailure(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(in, "ctrl"), 0o755))

	m := raster.NewMask(20, 20)
	m.Fill(2, 8, 2, 8, true)
	m.Fill(12, 15, 12, 18, true)
	require.NoError(t, npy.SaveMask(filepath.Join(in, "ctrl", "s1_li_thresh.npy"), m))
	require.NoError(t, os.WriteFile(filepath.Join(in, "ctrl", "s2_li_thresh.npy"), []byte("not an array"), 0o644))

	out := filepath.Join(t.TempDir(), "props", "regions.csv")
	var buf bytes.Buffer
	assert.Equal(t, exitPartial, run([]string{"regionprops", "-log-level", "error", in, out}, &buf))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "filled_area")
	assert.Contains(t, string(data), "s1_li_thresh.npy")
	assert.NotContains(t, string(data), "s2_li_thresh.npy")
}

func TestRunThresholdMissingInput(t *testing.T) {
	var buf bytes.Buffer
	code := run([]string{"threshold", "-log-level", "error",
		filepath.Join(t.TempDir(), "absent"), t.TempDir()}, &buf)
	assert.Equal(t, exitSetup, code)
}

func TestRunThresholdNpyImages(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	img := raster.NewMask(30, 30)
	img.Fill(5, 20, 5, 20, true)
	require.NoError(t, npy.SaveMask(filepath.Join(in, "s1.npy"), img))

	var buf bytes.Buffer
	code := run([]string{"threshold", "-log-level", "error", "-channel", "0", "-size", "10",
		"-config", writeConfig(t, "threshold:\n  input_suffix: .npy\n"), in, out}, &buf)
	require.Equal(t, exitOK, code, buf.String())

	mask, err := npy.LoadMask(filepath.Join(out, "s1_li_thresh.npy"))
	require.NoError(t, err)
	assert.Equal(t, 225, mask.Count())
}

func TestRunSplit(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "m1", "ctrl")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range []string{
		"m1_ctrl_S1_a.tif", "m1_ctrl_S1_b.tif",
		"m1_ctrl_S2_a.tif", "m1_ctrl_S3_a.tif",
		"m1_ctrl_S4_a.tif", "m1_ctrl_S5_a.tif",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}

	train, test := t.TempDir(), t.TempDir()
	var buf bytes.Buffer
	code := run([]string{"split", "-log-level", "error", "-groups", "m1", "-conditions", "ctrl",
		"-test-size", "0.4", base, train, test}, &buf)
	require.Equal(t, exitOK, code, buf.String())

	trained, err := os.ReadDir(filepath.Join(train, "m1", "ctrl"))
	require.NoError(t, err)
	tested, err := os.ReadDir(filepath.Join(test, "m1", "ctrl"))
	require.NoError(t, err)
	assert.Equal(t, 6, len(trained)+len(tested))
	assert.NotEmpty(t, tested)

	inTrain := map[string]bool{}
	for _, e := range trained {
		inTrain[e.Name()] = true
	}
	assert.Equal(t, inTrain["m1_ctrl_S1_a.tif"], inTrain["m1_ctrl_S1_b.tif"], "a slice stays on one side")
}

func TestRunSplitWithoutGroups(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, exitSetup, run([]string{"split", "-log-level", "error", t.TempDir(), t.TempDir(), t.TempDir()}, &buf))
}

func TestRunNpy2Tif(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	m := raster.NewMask(4, 4)
	m.Set(1, 1, true)
	require.NoError(t, npy.SaveMask(filepath.Join(in, "s1_li_thresh.npy"), m))

	var buf bytes.Buffer
	require.Equal(t, exitOK, run([]string{"npy2tif", "-log-level", "error", in, out}, &buf), buf.String())
	assert.FileExists(t, filepath.Join(out, "s1_li_thresh.tif"))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "turmoric.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEnvironmentWorkersFallsBackToLimits(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "limits:\n  workers: 3\n"))
	require.NoError(t, err)

	env := &environment{cfg: cfg}
	assert.Equal(t, 3, env.workers(0))
	assert.Equal(t, 5, env.workers(5))
}

func TestRunPlotMissingMetric(t *testing.T) {
	csv := filepath.Join(t.TempDir(), "all.csv")
	require.NoError(t, os.WriteFile(csv, []byte("treatment,area\nctrl,10\nogd,12\n"), 0o644))

	var buf bytes.Buffer
	code := run([]string{"plot", "-log-level", "error",
		"-config", writeConfig(t, "report:\n  metrics: [area, solidity]\n"),
		csv, t.TempDir()}, &buf)
	assert.Equal(t, exitSetup, code)
}
