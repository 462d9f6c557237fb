package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"turmoric/internal/dataset"
	"turmoric/internal/processing/threshold"
	"turmoric/internal/report"
	"turmoric/internal/services"
	"turmoric/internal/split"
)

func init() {
	register(command{
		name:    "threshold",
		usage:   "[-config f] [-size N] [-channel C] [-method li] INPUT OUTPUT",
		summary: "threshold every image below INPUT into .npy masks under OUTPUT",
		run:     runThreshold,
	})
	register(command{
		name:    "try-all",
		usage:   "[-config f] [-channel C] INPUT OUTPUT",
		summary: "apply every threshold method and write comparison montages",
		run:     runTryAll,
	})
	register(command{
		name:    "regionprops",
		usage:   "[-config f] INPUT OUTPUT_CSV",
		summary: "measure every mask below INPUT into one CSV",
		run:     runRegionprops,
	})
	register(command{
		name:    "concat",
		usage:   "[-config f] [-by directory|filename] ROOT OUTPUT_CSV",
		summary: "combine region CSVs with a treatment column and derived metrics",
		run:     runConcat,
	})
	register(command{
		name:    "plot",
		usage:   "[-config f] INPUT_CSV OUTPUT_DIR",
		summary: "summarize metrics per treatment and draw bar charts",
		run:     runPlot,
	})
	register(command{
		name:    "split",
		usage:   "[-config f] [-groups a,b] [-conditions x,y] BASE TRAIN TEST",
		summary: "copy slices into train/test trees without slice leakage",
		run:     runSplit,
	})
	register(command{
		name:    "npy2tif",
		usage:   "[-config f] INPUT OUTPUT",
		summary: "convert .npy masks and arrays to 8-bit TIFFs",
		run:     runNpy2Tif,
	})
}

// thresholdFlags are shared by threshold and try-all. Negative or empty
// values defer to the configuration.
type thresholdFlags struct {
	size    int
	channel int
	method  string
	workers int
}

func buildThreshold(env *environment, f *thresholdFlags) (*services.ThresholdService, error) {
	tc := env.cfg.Threshold
	if f.size >= 0 {
		tc.MinObjectSize = f.size
	}
	if f.channel >= 0 {
		tc.Channel = f.channel
	}
	if f.method != "" {
		tc.Method = f.method
	}

	m, err := threshold.Lookup(tc.Method)
	if err != nil {
		return nil, err
	}
	engine := threshold.NewEngine(m, tc.Channel, tc.MinObjectSize, tc.FillHoles)
	engine.MaxPixels = env.cfg.Limits.MaxPixels

	loader := env.loader()
	if !slices.Contains(loader.Extensions(), strings.ToLower(filepath.Ext(tc.InputSuffix))) {
		env.log.Warning(env.name, "input suffix has no registered decoder", map[string]interface{}{
			"suffix":    tc.InputSuffix,
			"supported": loader.Extensions(),
		})
	}

	svc := services.NewThresholdService(loader, engine, tc.InputSuffix, env.log)
	svc.Workers = env.workers(f.workers)
	return svc, nil
}

func runThreshold(env *environment, args []string) int {
	var f thresholdFlags
	fs := env.flags()
	fs.IntVar(&f.size, "size", -1, "minimum object size in pixels (default from config)")
	fs.StringVar(&f.method, "method", "", "threshold method: li, mean, otsu (default from config)")
	fs.IntVar(&f.channel, "channel", -1, "signal channel index (default from config)")
	fs.IntVar(&f.workers, "workers", 0, "parallel files (default: limits.workers, 0 = number of CPUs)")

	pos, ok := env.setup(fs, args, 2)
	if !ok {
		return exitSetup
	}
	svc, err := buildThreshold(env, &f)
	if err != nil {
		return env.fail(err)
	}

	rep, err := svc.ApplyRecursively(env.ctx(), pos[0], pos[1])
	if err != nil {
		return env.fail(err)
	}
	return env.finish(rep)
}

func runTryAll(env *environment, args []string) int {
	var f thresholdFlags
	fs := env.flags()
	fs.IntVar(&f.channel, "channel", -1, "signal channel index (default from config)")
	fs.IntVar(&f.workers, "workers", 0, "parallel files (default: limits.workers, 0 = number of CPUs)")
	f.size = -1

	pos, ok := env.setup(fs, args, 2)
	if !ok {
		return exitSetup
	}
	svc, err := buildThreshold(env, &f)
	if err != nil {
		return env.fail(err)
	}

	rep, err := svc.TryAll(env.ctx(), pos[0], pos[1])
	if err != nil {
		return env.fail(err)
	}
	return env.finish(rep)
}

func runRegionprops(env *environment, args []string) int {
	fs := env.flags()
	workers := fs.Int("workers", 0, "parallel files (default: limits.workers, 0 = number of CPUs)")

	pos, ok := env.setup(fs, args, 2)
	if !ok {
		return exitSetup
	}

	svc := services.NewRegionpropsService(env.cfg.Regionprops.MaskSuffix, env.cfg.Regionprops.Properties, env.log)
	svc.Workers = env.workers(*workers)

	tbl, rep, err := svc.ApplyRecursively(env.ctx(), pos[0])
	if err != nil {
		return env.fail(err)
	}
	if err := writeTable(pos[1], tbl); err != nil {
		return env.fail(err)
	}
	env.log.Info("regionprops", "table written", map[string]interface{}{
		"path": pos[1],
		"rows": tbl.Len(),
	})
	return env.finish(rep)
}

func runConcat(env *environment, args []string) int {
	fs := env.flags()
	by := fs.String("by", "", "treatment source: directory or filename (default from config)")

	pos, ok := env.setup(fs, args, 2)
	if !ok {
		return exitSetup
	}

	ac := env.cfg.Aggregate
	if *by != "" {
		ac.TreatmentSource = *by
	}

	var treat dataset.Treatment
	switch ac.TreatmentSource {
	case "directory":
		treat = dataset.DirectoryTreatment{Root: pos[0], Mapping: ac.TreatmentMapping}
	case "filename":
		treat = dataset.FilenameTreatment{Tokens: ac.FilenameTokens, SingleTokenLabels: ac.SingleTokenLabels}
	default:
		return env.fail(fmt.Errorf("-by must be directory or filename, got %q", ac.TreatmentSource))
	}

	tbl, rep, err := dataset.ConcatenateDirectory(env.ctx(), pos[0], treat, env.log)
	if err != nil {
		return env.fail(err)
	}
	if err := dataset.AddDerivedMetrics(tbl); err != nil {
		env.log.Warning("concat", "derived metrics skipped", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	if err := writeTable(pos[1], tbl); err != nil {
		return env.fail(err)
	}
	return env.finish(rep)
}

func runPlot(env *environment, args []string) int {
	fs := env.flags()
	pos, ok := env.setup(fs, args, 2)
	if !ok {
		return exitSetup
	}
	defer env.shutdown.Shutdown()

	tbl, err := dataset.ReadCSV(pos[0])
	if err != nil {
		return env.fail(err)
	}
	if !tbl.HasColumn("circularity") {
		if err := dataset.AddDerivedMetrics(tbl); err != nil {
			env.log.Warning("plot", "circularity could not be derived", map[string]interface{}{
				"reason": err.Error(),
			})
		}
	}

	metrics := env.cfg.Report.Metrics
	stats, err := report.Summarize(tbl, metrics)
	if err != nil {
		return env.fail(err)
	}
	if err := os.MkdirAll(pos[1], 0o755); err != nil {
		return env.fail(err)
	}
	if err := report.WriteSummaryCSV(filepath.Join(pos[1], report.SummaryFile), stats); err != nil {
		return env.fail(err)
	}

	files, err := report.PlotTreatmentMeans(stats, metrics, pos[1], env.cfg.Report.Formats)
	if err != nil {
		return env.fail(err)
	}
	combined, err := report.PlotCombined(stats, metrics, pos[1], env.cfg.Report.Formats)
	if err != nil {
		return env.fail(err)
	}

	env.log.Info("plot", "plots written", map[string]interface{}{
		"dir":        pos[1],
		"files":      len(files) + len(combined),
		"treatments": report.Treatments(stats),
	})
	return exitOK
}

func runSplit(env *environment, args []string) int {
	fs := env.flags()
	groups := fs.String("groups", "", "comma-separated group directories (default from config)")
	conditions := fs.String("conditions", "", "comma-separated condition directories (default from config)")
	testSize := fs.Float64("test-size", -1, "fraction of slices for testing (default from config)")
	seed := fs.Int64("seed", -1, "shuffle seed (default from config)")

	pos, ok := env.setup(fs, args, 3)
	if !ok {
		return exitSetup
	}
	defer env.shutdown.Shutdown()

	sc := env.cfg.Split
	if list := splitList(*groups); len(list) > 0 {
		sc.Groups = list
	}
	if list := splitList(*conditions); len(list) > 0 {
		sc.Conditions = list
	}
	if *testSize >= 0 {
		sc.TestSize = *testSize
	}
	if *seed >= 0 {
		sc.Seed = *seed
	}
	if len(sc.Groups) == 0 || len(sc.Conditions) == 0 {
		return env.fail(fmt.Errorf("split needs at least one group and one condition"))
	}

	p := &split.Partitioner{
		BaseDir:    pos[0],
		TrainDir:   pos[1],
		TestDir:    pos[2],
		Groups:     sc.Groups,
		Conditions: sc.Conditions,
		TestSize:   sc.TestSize,
		Seed:       sc.Seed,
		Token:      sc.SliceToken,
		Logger:     env.log,
	}
	res, err := p.Run(env.ctx())
	if err != nil {
		return env.fail(err)
	}

	train, test := res.Files()
	env.log.Info("split", "split completed", map[string]interface{}{
		"pairs":       len(res.Assignments),
		"train_files": train,
		"test_files":  test,
	})
	return exitOK
}

func runNpy2Tif(env *environment, args []string) int {
	fs := env.flags()
	workers := fs.Int("workers", 0, "parallel files (default: limits.workers, 0 = number of CPUs)")

	pos, ok := env.setup(fs, args, 2)
	if !ok {
		return exitSetup
	}

	svc := services.NewExportService(env.log)
	svc.Workers = env.workers(*workers)
	rep, err := svc.MasksToTIFF(env.ctx(), pos[0], pos[1])
	if err != nil {
		return env.fail(err)
	}
	return env.finish(rep)
}

func writeTable(path string, tbl *dataset.Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return dataset.WriteCSV(path, tbl)
}
