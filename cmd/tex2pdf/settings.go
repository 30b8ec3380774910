package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	tex2pdf "github.com/alnah/go-tex2pdf"
	"github.com/alnah/go-tex2pdf/internal/config"
	"github.com/alnah/go-tex2pdf/internal/fileutil"
	"github.com/alnah/go-tex2pdf/internal/hints"
)

// loadConfig resolves the configuration for one command run.
// Priority: --config flag > TEX2PDF_CONFIG > built-in defaults,
// then environment overrides are applied on top.
func loadConfig(flagConfig string, env *envConfig) (*config.Config, error) {
	name := flagConfig
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			var hint string
			if errors.Is(err, config.ErrConfigNotFound) && !fileutil.IsFilePath(name) {
				hint = hints.ForConfigNotFound(config.SearchPaths(name))
			}
			return nil, fmt.Errorf("loading config: %w%s", err, hint)
		}
		cfg = loaded
	}

	applyEnvConfig(env, cfg)
	return cfg, nil
}

// mergeFlags applies command-line flags to cfg. Only flags the user set
// are applied, so an explicit zero can still override a config value.
func mergeFlags(f *compileFlags, cfg *config.Config) error {
	changed := f.changed
	if changed == nil {
		changed = func(string) bool { return false }
	}

	if changed("cmd") {
		cfg.Compiler.Cmd = f.compiler.cmd
	}
	if changed("arg") {
		cfg.Compiler.Args = slices.Clone(f.compiler.args)
	}
	if changed("passes") {
		cfg.Compiler.Passes = f.compiler.passes
	}
	if changed("timeout") {
		cfg.Compiler.Timeout = f.compiler.timeout
	}
	if changed("inputs") {
		cfg.Paths.Inputs = slices.Clone(f.paths.inputs)
	}
	if changed("fonts") {
		cfg.Paths.Fonts = slices.Clone(f.paths.fonts)
	}
	if changed("precompiled") {
		cfg.Paths.Precompiled = slices.Clone(f.paths.precompiled)
	}
	if changed("asset") {
		cfg.Paths.Assets = slices.Clone(f.paths.assets)
	}
	if changed("error-logs") {
		cfg.Logs.ErrorLogs = f.logs.errorLogs
	}
	if changed("keep-workspace") {
		cfg.Logs.KeepWorkspace = f.logs.keepWorkspace
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return nil
}

// compileOptions converts cfg into per-document options.
// sourceDir, when set, is searched before the configured inputs so that
// \input and \includegraphics resolve relative to the document.
func compileOptions(cfg *config.Config, sourceDir string) tex2pdf.Options {
	inputs := slices.Clone(cfg.Paths.Inputs)
	if sourceDir != "" && !slices.Contains(inputs, sourceDir) {
		inputs = append([]string{sourceDir}, inputs...)
	}

	return tex2pdf.Options{
		Inputs:                 inputs,
		Fonts:                  slices.Clone(cfg.Paths.Fonts),
		Args:                   slices.Clone(cfg.Compiler.Args),
		Passes:                 cfg.Compiler.Passes,
		ErrorLogs:              cfg.Logs.ErrorLogs,
		Precompiled:            slices.Clone(cfg.Paths.Precompiled),
		Assets:                 slices.Clone(cfg.Paths.Assets),
		KeepWorkspaceOnFailure: cfg.Logs.KeepWorkspace,
	}
}

// compilerOptions returns the Compiler options shared by every document.
func compilerOptions(cfg *config.Config, logger *slog.Logger, extra ...tex2pdf.Option) []tex2pdf.Option {
	opts := []tex2pdf.Option{
		tex2pdf.WithLogger(logger),
		tex2pdf.WithDefaultCmd(cfg.Compiler.Cmd),
	}
	if cfg.Compiler.Timeout > 0 {
		opts = append(opts, tex2pdf.WithTimeout(cfg.Compiler.Timeout))
	}
	return append(opts, extra...)
}

// absDir returns the absolute directory of path, or the cleaned relative one
// if the working directory cannot be determined.
func absDir(path string) string {
	dir := filepath.Dir(path)
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// printWarnings writes environment parsing warnings to w.
func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}
