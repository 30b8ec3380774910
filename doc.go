// Package tex2pdf compiles LaTeX documents to PDF by driving an external TeX
// compiler (pdflatex by default) as a subprocess.
//
// # Quick Start
//
// Create a compiler, compile a document, and close the resulting stream:
//
//	c := tex2pdf.NewCompiler()
//	defer c.Close()
//
//	pdf, err := c.Compile(ctx, tex2pdf.FromString(src), tex2pdf.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pdf.Close()
//	io.Copy(out, pdf)
//
// CompileBytes and CompileToFile wrap Compile for callers that want the whole
// PDF in memory or on disk.
//
// # Compilation Pipeline
//
// Each call to Compile:
//
//  1. Validates the request (document source, pass count, job name)
//  2. Creates a private temporary workspace
//  3. Stages precompiled formats and assets into the workspace
//  4. Runs the compiler once per pass, feeding the document on stdin
//  5. Streams <jobname>.pdf back, removing the workspace once the stream
//     is drained or closed
//
// When a pass exits non-zero, the compiler log is scanned for lines starting
// with "!" and a *CompilationError carries them. Options.ErrorLogs keeps a
// copy of the full log.
//
// # Multiple Passes
//
// Cross-references and tables of contents need several runs. Set
// Options.Passes; the document must then come from FromString, since a
// reader can only be consumed once:
//
//	pdf, err := c.Compile(ctx, tex2pdf.FromString(src), tex2pdf.Options{Passes: 2})
//
// # Search Paths
//
// Options.Inputs and Options.Fonts set TEXINPUTS, TTFONTS and OPENTYPEFONTS
// for the compiler. Both default to the workspace, and a trailing separator
// keeps the TeX distribution's own directories searchable.
//
// # Errors
//
// Every error matches one of ErrConfiguration, ErrLaunch, ErrCompilation,
// ErrLogMissing or ErrIO through errors.Is:
//
//	var cerr *tex2pdf.CompilationError
//	if errors.As(err, &cerr) {
//	    fmt.Println(cerr.Diagnostics)
//	}
//
// # Parallel Processing
//
// A Compiler is safe for concurrent use. CompilerPool bounds the number of
// TeX processes running at once:
//
//	pool := tex2pdf.NewCompilerPool(tex2pdf.ResolvePoolSize(0))
//	defer pool.Close()
//
//	c, err := pool.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(c)
//
// # Requirements
//
// A TeX distribution (TeX Live, MiKTeX) must provide the compiler binary on
// PATH, or Options.Cmd must name it.
package tex2pdf
