package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	tex2pdf "github.com/alnah/go-tex2pdf"
	"github.com/alnah/go-tex2pdf/internal/logfields"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Command names.
const (
	cmdCompile = "compile"
	cmdWatch   = "watch"
	cmdServe   = "serve"
	cmdNew     = "new"
	cmdDoctor  = "doctor"
	cmdConfig  = "config"
	cmdVersion = "version"
	cmdHelp    = "help"
)

func main() {
	env := DefaultEnv()

	if err := loadDotEnv(); err != nil {
		fmt.Fprintf(env.Stderr, "warning: %v\n", err)
	}

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if hasVerboseFlag(os.Args[1:]) {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	}

	os.Exit(runMain(os.Args, env))
}

// runMain dispatches to a command and returns the process exit code.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	cmd, rest := args[1], args[2:]
	switch {
	case cmd == cmdCompile:
		return runCompileCmd(rest, env)
	case cmd == stdinArg || validateTeXExtension(cmd) == nil:
		return runCompileCmd(args[1:], env)
	case cmd == cmdWatch:
		return runWatchCmd(rest, env)
	case cmd == cmdServe:
		return runServeCmd(rest, env)
	case cmd == cmdNew:
		return runNewCmd(rest, env)
	case cmd == cmdDoctor:
		if _, err := prepare(commonFlags{quiet: true}, nil, env); err != nil {
			return report(env, err)
		}
		return runDoctorCmd(rest, env, defaultDoctorDeps())
	case cmd == cmdConfig:
		return runConfigCmd(rest, env)
	case cmd == cmdVersion:
		fmt.Fprintf(env.Stdout, "tex2pdf %s\n", Version)
		return ExitSuccess
	case cmd == cmdHelp || cmd == "-h" || cmd == "--help":
		return runHelp(rest, env)
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}
}

// prepare loads env and file configuration into env.Config, merges
// command-line flags when f is set, and returns the command logger.
func prepare(common commonFlags, f *compileFlags, env *Environment) (*slog.Logger, error) {
	envCfg := loadEnvConfig()
	if !common.quiet {
		printWarnings(env.Stderr, envCfg.Warnings)
		warnUnknownEnvVars(env.Stderr)
	}

	cfg, err := loadConfig(common.config, envCfg)
	if err != nil {
		return nil, err
	}
	if f != nil {
		if err := mergeFlags(f, cfg); err != nil {
			return nil, err
		}
	}
	env.Config = cfg

	return newLogger(env.Stderr, logLevel(common, envCfg.LogLevel)), nil
}

// newPool creates the compiler pool for a command.
func newPool(env *Environment, logger *slog.Logger) *tex2pdf.CompilerPool {
	size := tex2pdf.ResolvePoolSize(env.Config.Workers)
	logger.Debug("compiler pool", slog.Int("size", size))
	return tex2pdf.NewCompilerPool(size, compilerOptions(env.Config, logger)...)
}

func closePool(pool *tex2pdf.CompilerPool, logger *slog.Logger) {
	if err := pool.Close(); err != nil {
		logger.Warn("closing compiler pool", logfields.Error(err))
	}
}

func runCompileCmd(args []string, env *Environment) int {
	f, positional, err := parseCompileFlags(args)
	if err != nil {
		return parseFailure(env, err, printCompileUsage)
	}
	logger, err := prepare(f.common, f, env)
	if err != nil {
		return report(env, err)
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	pool := newPool(env, logger)
	defer closePool(pool, logger)

	return report(env, runCompile(ctx, positional, f, &poolAdapter{pool: pool}, env))
}

func runWatchCmd(args []string, env *Environment) int {
	f, positional, err := parseWatchFlags(args)
	if err != nil {
		return parseFailure(env, err, printWatchUsage)
	}
	logger, err := prepare(f.common, &f.compileFlags, env)
	if err != nil {
		return report(env, err)
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	pool := newPool(env, logger)
	defer closePool(pool, logger)

	return report(env, runWatch(ctx, positional, f, &poolAdapter{pool: pool}, env, logger))
}

func runServeCmd(args []string, env *Environment) int {
	f, err := parseServeFlags(args)
	if err != nil {
		return parseFailure(env, err, printServeUsage)
	}
	logger, err := prepare(f.common, &f.compileFlags, env)
	if err != nil {
		return report(env, err)
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	return report(env, runServe(ctx, f, env, logger))
}

func runNewCmd(args []string, env *Environment) int {
	f, positional, err := parseNewFlags(args)
	if err != nil {
		return parseFailure(env, err, printNewUsage)
	}
	return report(env, runNew(positional, f, env))
}

func runConfigCmd(args []string, env *Environment) int {
	var common commonFlags
	fs := newFlagSet(cmdConfig)
	addCommonFlags(fs, &common)
	if _, err := parseInto(fs, args); err != nil {
		return parseFailure(env, err, printConfigUsage)
	}

	if _, err := prepare(common, nil, env); err != nil {
		return report(env, err)
	}
	data, err := env.Config.Dump()
	if err != nil {
		return report(env, err)
	}
	_, _ = env.Stdout.Write(data)
	return ExitSuccess
}

// parseFailure handles flag errors: -h prints usage and succeeds.
func parseFailure(env *Environment, err error, usage func(io.Writer)) int {
	if errors.Is(err, flag.ErrHelp) {
		usage(env.Stdout)
		return ExitSuccess
	}
	fmt.Fprintln(env.Stderr, err)
	usage(env.Stderr)
	return ExitUsage
}

// report prints err and maps it to an exit code.
func report(env *Environment, err error) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(env.Stderr, "error: %v\n", err)
	return exitCodeFor(err)
}

// hasVerboseFlag reports whether -v or --verbose appears before "--".
func hasVerboseFlag(args []string) bool {
	end := len(args)
	if i := slices.Index(args, "--"); i >= 0 {
		end = i
	}
	return slices.Contains(args[:end], "-v") || slices.Contains(args[:end], "--verbose")
}
