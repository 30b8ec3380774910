package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	tex2pdf "github.com/alnah/go-tex2pdf"
	"github.com/alnah/go-tex2pdf/internal/hints"
)

// Sentinel errors for batch operations.
var (
	ErrNoInput  = errors.New("no input specified")
	ErrReadTeX  = errors.New("failed to read TeX file")
	ErrWritePDF = errors.New("failed to write PDF file")
)

// CLICompiler is the subset of *tex2pdf.Compiler the CLI depends on.
type CLICompiler interface {
	CompileTo(ctx context.Context, doc tex2pdf.Document, opts tex2pdf.Options, w io.Writer) (int64, error)
	CompileToFile(ctx context.Context, doc tex2pdf.Document, opts tex2pdf.Options, path string) error
}

// Compile-time interface implementation check.
var _ CLICompiler = (*tex2pdf.Compiler)(nil)

// Pool abstracts compiler pool operations for testability.
type Pool interface {
	Acquire(ctx context.Context) (CLICompiler, error)
	Release(CLICompiler)
	Size() int
}

// poolAdapter exposes *tex2pdf.CompilerPool through the Pool interface.
type poolAdapter struct {
	pool *tex2pdf.CompilerPool
}

// Compile-time check that poolAdapter implements Pool.
var _ Pool = (*poolAdapter)(nil)

func (a *poolAdapter) Acquire(ctx context.Context) (CLICompiler, error) {
	c, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Release panics if c did not come from Acquire.
func (a *poolAdapter) Release(c CLICompiler) {
	if c == nil {
		return
	}
	compiler, ok := c.(*tex2pdf.Compiler)
	if !ok {
		panic(fmt.Sprintf("poolAdapter.Release: expected *tex2pdf.Compiler, got %T", c))
	}
	a.pool.Release(compiler)
}

func (a *poolAdapter) Size() int {
	return a.pool.Size()
}

// CompilationResult holds the outcome of a single compilation.
type CompilationResult struct {
	InputPath  string
	OutputPath string
	Err        error
	Duration   time.Duration
}

// compileBatch compiles files concurrently using the compiler pool.
// Results keep the order of files.
func compileBatch(ctx context.Context, pool Pool, files []FileToCompile, params *batchParams) []CompilationResult {
	if len(files) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(files))

	results := make([]CompilationResult, len(files))
	var wg sync.WaitGroup
	jobs := make(chan int, len(files))

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()

			compiler, err := pool.Acquire(ctx)
			if err != nil {
				for idx := range jobs {
					results[idx] = CompilationResult{InputPath: files[idx].InputPath, OutputPath: files[idx].OutputPath, Err: err}
				}
				return
			}
			defer pool.Release(compiler)

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = CompilationResult{InputPath: files[idx].InputPath, OutputPath: files[idx].OutputPath, Err: ctx.Err()}
					continue
				}
				results[idx] = compileFile(ctx, compiler, files[idx], params)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// batchParams groups what every file in a batch shares.
type batchParams struct {
	opts func(sourceDir string) tex2pdf.Options
}

// compileFile reads one source file and writes its PDF.
func compileFile(ctx context.Context, compiler CLICompiler, f FileToCompile, params *batchParams) CompilationResult {
	start := time.Now()
	result := CompilationResult{
		InputPath:  f.InputPath,
		OutputPath: f.OutputPath,
	}

	content, err := os.ReadFile(f.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", ErrReadTeX, err)
		result.Duration = time.Since(start)
		return result
	}
	if len(content) == 0 {
		result.Err = fmt.Errorf("%w: %s is empty", ErrReadTeX, f.InputPath)
		result.Duration = time.Since(start)
		return result
	}

	opts := params.opts(absDir(f.InputPath))
	err = compiler.CompileToFile(ctx, tex2pdf.FromString(string(content)), opts, f.OutputPath)
	result.Err = withHints(err)
	result.Duration = time.Since(start)
	return result
}

// withHints appends actionable hints to known library failures.
func withHints(err error) error {
	if err == nil {
		return nil
	}

	var hint string
	var compErr *tex2pdf.CompilationError
	switch {
	case errors.As(err, &compErr):
		hint = hints.ForDiagnostics(compErr.Diagnostics)
		if compErr.Workspace != "" {
			hint += "\n  workspace kept at " + compErr.Workspace
		}
	case errors.Is(err, tex2pdf.ErrLaunch):
		var launchErr *tex2pdf.LaunchError
		cmd := ""
		if errors.As(err, &launchErr) {
			cmd = launchErr.Cmd
		}
		hint = hints.ForLaunch(cmd)
	case errors.Is(err, tex2pdf.ErrStreamMultiPass):
		hint = hints.ForStreamMultiPass()
	case errors.Is(err, context.DeadlineExceeded):
		hint = hints.ForTimeout()
	case errors.Is(err, tex2pdf.ErrOutput):
		hint = hints.ForOutputDirectory()
	}

	if hint == "" {
		return err
	}
	return fmt.Errorf("%w%s", err, hint)
}

// ResultSummary holds the count of succeeded and failed compilations.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed compilations.
func countResults(results []CompilationResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// firstError returns the first failure in input order.
func firstError(results []CompilationResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// printResults outputs compilation results and returns the failure count.
func printResults(results []CompilationResult, quiet, verbose bool, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.InputPath, r.Err)
			continue
		}

		if quiet {
			continue
		}

		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.InputPath, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary.Failed
}
