package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"
)

// ErrUsage marks invalid command lines.
var ErrUsage = errors.New("invalid usage")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// compilerFlags select and tune the TeX engine.
type compilerFlags struct {
	cmd     string
	args    []string
	passes  int
	timeout time.Duration
}

// pathFlags hold search paths and staged files.
type pathFlags struct {
	inputs      []string
	fonts       []string
	precompiled []string
	assets      []string
}

// logFlags control what survives a failed compilation.
type logFlags struct {
	errorLogs     string
	keepWorkspace bool
}

// compileFlags holds all flags for the compile command.
type compileFlags struct {
	common   commonFlags
	output   string
	workers  int
	compiler compilerFlags
	paths    pathFlags
	logs     logFlags

	// changed reports whether a flag was set on the command line.
	changed func(name string) bool
}

// watchFlags holds flags for the watch command.
type watchFlags struct {
	compileFlags
	debounce time.Duration
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	compileFlags
	addr         string
	maxBodyBytes int64
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	json bool
	cmd  string
}

// newFlags holds flags for the new command.
type newFlags struct {
	template string
	force    bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and timing")
}

// addCompilerFlags adds engine flags to a FlagSet.
func addCompilerFlags(fs *flag.FlagSet, f *compilerFlags) {
	fs.StringVar(&f.cmd, "cmd", "", "TeX engine (default pdflatex)")
	fs.StringArrayVar(&f.args, "arg", nil, "engine argument, repeatable (replaces -halt-on-error)")
	fs.IntVarP(&f.passes, "passes", "n", 0, "compiler runs per document")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-document deadline, all passes (e.g. 2m)")
}

// addPathFlags adds search path and staging flags to a FlagSet.
func addPathFlags(fs *flag.FlagSet, f *pathFlags) {
	fs.StringSliceVarP(&f.inputs, "inputs", "I", nil, "TEXINPUTS directories")
	fs.StringSliceVar(&f.fonts, "fonts", nil, "font directories (TTFONTS, OPENTYPEFONTS)")
	fs.StringSliceVar(&f.precompiled, "precompiled", nil, "format files copied into the workspace")
	fs.StringSliceVar(&f.assets, "asset", nil, "files or directories copied into the workspace")
}

// addLogFlags adds failure-inspection flags to a FlagSet.
func addLogFlags(fs *flag.FlagSet, f *logFlags) {
	fs.StringVar(&f.errorLogs, "error-logs", "", "copy the full TeX log here on failure")
	fs.BoolVar(&f.keepWorkspace, "keep-workspace", false, "keep the workspace of a failed compilation")
}

func addCompileFlags(fs *flag.FlagSet, f *compileFlags) {
	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.output, "output", "o", "", "output file, or directory for several inputs")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel compilations (0 = auto)")
	addCompilerFlags(fs, &f.compiler)
	addPathFlags(fs, &f.paths)
	addLogFlags(fs, &f.logs)
	f.changed = fs.Changed
}

// newFlagSet returns a FlagSet that reports errors instead of exiting.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	return fs
}

// parseInto parses args and wraps failures as usage errors.
func parseInto(fs *flag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUsage, fs.Name(), err)
	}
	return fs.Args(), nil
}

// parseCompileFlags parses flags for the compile command.
func parseCompileFlags(args []string) (*compileFlags, []string, error) {
	f := &compileFlags{}
	fs := newFlagSet("compile")
	addCompileFlags(fs, f)

	positional, err := parseInto(fs, args)
	if err != nil {
		return nil, nil, err
	}
	if err := validateWorkers(f.workers); err != nil {
		return nil, nil, err
	}
	return f, positional, nil
}

// parseWatchFlags parses flags for the watch command.
func parseWatchFlags(args []string) (*watchFlags, []string, error) {
	f := &watchFlags{}
	fs := newFlagSet("watch")
	addCompileFlags(fs, &f.compileFlags)
	fs.DurationVar(&f.debounce, "debounce", defaultDebounce, "quiet period before recompiling")

	positional, err := parseInto(fs, args)
	if err != nil {
		return nil, nil, err
	}
	if f.debounce <= 0 {
		return nil, nil, fmt.Errorf("%w: --debounce must be positive", ErrUsage)
	}
	return f, positional, nil
}

// parseServeFlags parses flags for the serve command.
func parseServeFlags(args []string) (*serveFlags, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve")
	addCompileFlags(fs, &f.compileFlags)
	fs.StringVar(&f.addr, "addr", "", "listen address (default :8080)")
	fs.Int64Var(&f.maxBodyBytes, "max-body", 0, "request body limit in bytes (default 10MiB)")

	positional, err := parseInto(fs, args)
	if err != nil {
		return nil, err
	}
	if len(positional) > 0 {
		return nil, fmt.Errorf("%w: serve takes no arguments, got %v", ErrUsage, positional)
	}
	if err := validateWorkers(f.workers); err != nil {
		return nil, err
	}
	return f, nil
}

// parseDoctorFlags parses flags for the doctor command.
func parseDoctorFlags(args []string) (*doctorFlags, error) {
	f := &doctorFlags{}
	fs := newFlagSet("doctor")
	fs.BoolVar(&f.json, "json", false, "machine-readable output")
	fs.StringVar(&f.cmd, "cmd", "", "engine to smoke-test (default pdflatex)")

	if _, err := parseInto(fs, args); err != nil {
		return nil, err
	}
	return f, nil
}

// parseNewFlags parses flags for the new command.
func parseNewFlags(args []string) (*newFlags, []string, error) {
	f := &newFlags{}
	fs := newFlagSet("new")
	fs.StringVarP(&f.template, "template", "t", "", "starter template (article, letter)")
	fs.BoolVarP(&f.force, "force", "f", false, "overwrite an existing file")

	positional, err := parseInto(fs, args)
	if err != nil {
		return nil, nil, err
	}
	return f, positional, nil
}

// maxWorkers bounds --workers; each worker runs a full TeX process.
const maxWorkers = 32

func validateWorkers(n int) error {
	if n < 0 || n > maxWorkers {
		return fmt.Errorf("%w: --workers must be between 0 and %d, got %d", ErrUsage, maxWorkers, n)
	}
	return nil
}
