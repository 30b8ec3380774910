package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tex2pdf "github.com/alnah/go-tex2pdf"
	"github.com/alnah/go-tex2pdf/internal/config"
)

// stdinArg selects standard input as the document source.
const stdinArg = "-"

// batchError reports a batch with failures. It unwraps to the first failure
// so the exit code reflects what went wrong.
type batchError struct {
	failed int
	first  error
}

func (e *batchError) Error() string {
	return fmt.Sprintf("%d compilation(s) failed", e.failed)
}

func (e *batchError) Unwrap() error { return e.first }

// runCompile compiles the positional arguments with the merged config in
// env.Config. No arguments, or a single "-", reads one document from stdin.
func runCompile(ctx context.Context, positional []string, f *compileFlags, pool Pool, env *Environment) error {
	cfg := env.Config
	outputDir := resolveOutputDir(f.output, cfg)

	if len(positional) == 0 || (len(positional) == 1 && positional[0] == stdinArg) {
		return compileStdin(ctx, pool, f, outputDir, env)
	}
	if slices.Contains(positional, stdinArg) {
		return fmt.Errorf("%w: %q cannot be combined with file arguments", ErrUsage, stdinArg)
	}

	var files []FileToCompile
	seen := make(map[string]bool)
	for _, arg := range positional {
		found, err := discoverFiles(arg, outputDir)
		if err != nil {
			return fmt.Errorf("discovering files: %w", err)
		}
		if len(found) == 0 {
			return fmt.Errorf("%w: no LaTeX documents found in %s", ErrNoInput, arg)
		}
		for _, file := range found {
			if !seen[file.InputPath] {
				seen[file.InputPath] = true
				files = append(files, file)
			}
		}
	}

	if len(files) > 1 && strings.HasSuffix(outputDir, ".pdf") {
		return fmt.Errorf("%w: -o must be a directory when compiling %d documents", ErrUsage, len(files))
	}

	params := &batchParams{
		opts: func(sourceDir string) tex2pdf.Options { return compileOptions(cfg, sourceDir) },
	}
	results := compileBatch(ctx, pool, files, params)

	if failed := printResults(results, f.common.quiet, f.common.verbose, env); failed > 0 {
		return &batchError{failed: failed, first: firstError(results)}
	}
	return nil
}

// compileStdin compiles one document read from env.Stdin. The PDF goes to
// stdout unless an output path or directory is configured.
func compileStdin(ctx context.Context, pool Pool, f *compileFlags, outputDir string, env *Environment) error {
	compiler, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pool.Release(compiler)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	doc := tex2pdf.FromReader(env.Stdin)
	opts := compileOptions(env.Config, cwd)

	if outputDir == "" {
		if _, err := compiler.CompileTo(ctx, doc, opts, env.Stdout); err != nil {
			if !isLibraryError(err) {
				err = fmt.Errorf("%w: stdout: %w", ErrWritePDF, err)
			}
			return withHints(err)
		}
		return nil
	}

	path := outputDir
	if !strings.HasSuffix(path, ".pdf") {
		path = filepath.Join(outputDir, tex2pdf.DefaultJobName+".pdf")
	}
	if err := compiler.CompileToFile(ctx, doc, opts, path); err != nil {
		return withHints(err)
	}
	if !f.common.quiet {
		fmt.Fprintf(env.Stdout, "Created %s\n", path)
	}
	return nil
}

// resolveOutputDir returns the output location: flag, then config.
func resolveOutputDir(flagOutput string, cfg *config.Config) string {
	if flagOutput != "" {
		return flagOutput
	}
	return cfg.Output.DefaultDir
}

// isLibraryError reports whether err already carries a tex2pdf category or
// a context error.
func isLibraryError(err error) bool {
	for _, target := range []error{
		tex2pdf.ErrConfiguration,
		tex2pdf.ErrLaunch,
		tex2pdf.ErrCompilation,
		tex2pdf.ErrLogMissing,
		tex2pdf.ErrIO,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
