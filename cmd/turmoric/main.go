// Command turmoric segments microglia images and measures the resulting
// cell shapes: threshold image trees into masks, extract region properties,
// aggregate and plot them per treatment, and split slices into train/test sets.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"

	"turmoric/internal/config"
	"turmoric/internal/imageio"
	"turmoric/internal/logger"
	"turmoric/internal/models"
	"turmoric/internal/opencv"
	"turmoric/internal/shutdown"
)

const (
	exitOK = iota
	exitSetup
	exitPartial
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(env *environment, args []string) int
}

var commands = map[string]command{}

func register(c command) {
	commands[c.name] = c
}

func main() {
	configureRuntime()
	os.Exit(run(os.Args[1:], os.Stderr))
}

// configureRuntime raises the GC target; batches allocate whole images and
// release them together.
func configureRuntime() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(200)
	}
}

func run(args []string, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return exitSetup
		}
		return exitOK
	}

	c, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "turmoric: unknown command %q\n\n", args[0])
		usage(stderr)
		return exitSetup
	}
	return c.run(&environment{name: c.name, usage: c.usage, stderr: stderr}, args[1:])
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: turmoric <command> [flags] args...")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
}

// environment carries what every subcommand needs once its flags are parsed.
type environment struct {
	name   string
	usage  string
	stderr io.Writer

	configPath string
	logLevel   string

	cfg      *config.Config
	log      logger.Logger
	shutdown *shutdown.Manager
}

// flags returns a FlagSet with the shared -config and -log-level flags.
func (e *environment) flags() *flag.FlagSet {
	fs := flag.NewFlagSet(e.name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVar(&e.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&e.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "usage: turmoric %s %s\n", e.name, e.usage)
		fs.PrintDefaults()
	}
	return fs
}

// setup parses args, loads configuration and starts signal handling. It
// returns the positional arguments, or false after reporting a usage error.
func (e *environment) setup(fs *flag.FlagSet, args []string, positional int) ([]string, bool) {
	if err := fs.Parse(args); err != nil {
		return nil, false
	}
	if fs.NArg() != positional {
		fs.Usage()
		return nil, false
	}

	cfg, err := config.Load(e.configPath)
	if err != nil {
		fmt.Fprintf(e.stderr, "turmoric: %v\n", err)
		return nil, false
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Out: e.stderr})
	if err != nil {
		fmt.Fprintf(e.stderr, "turmoric: %v\n", err)
		return nil, false
	}

	e.cfg = cfg
	e.log = log.With(map[string]interface{}{"command": e.name})
	e.shutdown = shutdown.NewManager(context.Background(), e.log)
	e.shutdown.Listen()
	return fs.Args(), true
}

func (e *environment) ctx() context.Context {
	return e.shutdown.Context()
}

// fail logs a setup or aggregation error and returns exitSetup.
func (e *environment) fail(err error) int {
	if e.log != nil {
		e.log.Error(e.name, err, nil)
	} else {
		fmt.Fprintf(e.stderr, "turmoric %s: %v\n", e.name, err)
	}
	return exitSetup
}

// finish maps a batch report to the exit status.
func (e *environment) finish(report *models.BatchReport) int {
	e.shutdown.Shutdown()
	if report == nil {
		return exitOK
	}
	if failed := report.Failed(); len(failed) > 0 {
		e.log.Warning(e.name, "some files failed", map[string]interface{}{
			"failed": len(failed),
			"total":  len(report.Results),
		})
		return exitPartial
	}
	return exitOK
}

// workers resolves a -workers flag against limits.workers.
func (e *environment) workers(flagValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return e.cfg.Limits.Workers
}

// loader decodes .npy natively and routes microscopy formats through OpenCV.
func (e *environment) loader() *imageio.Loader {
	l := imageio.NewLoader(e.log)
	for _, ext := range opencv.Extensions {
		l.Register(ext, opencv.ReadImage)
	}
	return l
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
