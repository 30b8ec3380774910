package main

// Notes:
// - runCompile: exercised with a fake CLICompiler so no TeX installation is
//   needed. The fake records documents and options and writes a fake PDF.
// - compileBatch: order preservation, pool acquire failure, and context
//   cancellation are covered; real concurrency limits are covered by the
//   library's pool tests.
// - discovery: root-document detection reads only the file head.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	tex2pdf "github.com/alnah/go-tex2pdf"
	"github.com/alnah/go-tex2pdf/internal/config"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake compiler and pool
// ---------------------------------------------------------------------------

const fakePDF = "%PDF-1.5 fake"

type compileCall struct {
	text   string
	stream bool
	opts   tex2pdf.Options
	path   string
}

// fakeCompiler implements CLICompiler.
type fakeCompiler struct {
	mu    sync.Mutex
	calls []compileCall
	// fail returns an error for a document, or nil to succeed.
	fail func(text string) error
}

func (f *fakeCompiler) record(doc tex2pdf.Document, opts tex2pdf.Options, path string) (string, error) {
	text := doc.Text
	if doc.Reader != nil {
		data, err := io.ReadAll(doc.Reader)
		if err != nil {
			return "", err
		}
		text = string(data)
	}

	f.mu.Lock()
	f.calls = append(f.calls, compileCall{text: text, stream: doc.Reader != nil, opts: opts, path: path})
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(text); err != nil {
			return "", err
		}
	}
	return text, nil
}

func (f *fakeCompiler) CompileTo(_ context.Context, doc tex2pdf.Document, opts tex2pdf.Options, w io.Writer) (int64, error) {
	if _, err := f.record(doc, opts, ""); err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, fakePDF)
	return int64(n), err
}

func (f *fakeCompiler) CompileToFile(_ context.Context, doc tex2pdf.Document, opts tex2pdf.Options, path string) error {
	if _, err := f.record(doc, opts, path); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fakePDF), 0o600)
}

func (f *fakeCompiler) snapshot() []compileCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// fakePool hands out one shared fakeCompiler.
type fakePool struct {
	compiler   *fakeCompiler
	size       int
	acquireErr error
}

func (p *fakePool) Acquire(ctx context.Context) (CLICompiler, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.compiler, nil
}

func (p *fakePool) Release(CLICompiler) {}

func (p *fakePool) Size() int {
	if p.size == 0 {
		return 2
	}
	return p.size
}

func newFakePool() *fakePool {
	return &fakePool{compiler: &fakeCompiler{}}
}

func testEnv(stdin string) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Environment{
		Now:    time.Now,
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
		Config: config.DefaultConfig(),
	}, &stdout, &stderr
}

func writeTeX(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const rootDoc = "\\documentclass{article}\n\\begin{document}\nHi\n\\end{document}\n"

// ---------------------------------------------------------------------------
// TestRunCompile - Files and directories
// ---------------------------------------------------------------------------

func TestRunCompile_SingleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeTeX(t, filepath.Join(dir, "paper.tex"), rootDoc)
	pool := newFakePool()
	env, stdout, _ := testEnv("")
	env.Config.Compiler.Passes = 2
	env.Config.Paths.Inputs = []string{"/shared/styles"}

	if err := runCompile(context.Background(), []string{src}, &compileFlags{}, pool, env); err != nil {
		t.Fatalf("runCompile() error = %v", err)
	}

	calls := pool.compiler.snapshot()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	c := calls[0]
	if c.stream || c.text != rootDoc {
		t.Errorf("document = stream:%v text:%q, want inline file contents", c.stream, c.text)
	}
	if c.path != filepath.Join(dir, "paper.pdf") {
		t.Errorf("output path = %q", c.path)
	}
	if c.opts.Passes != 2 {
		t.Errorf("Passes = %d, want 2", c.opts.Passes)
	}
	absSrcDir, _ := filepath.Abs(dir)
	if want := []string{absSrcDir, "/shared/styles"}; !slices.Equal(c.opts.Inputs, want) {
		t.Errorf("Inputs = %v, want %v", c.opts.Inputs, want)
	}
	if !strings.Contains(stdout.String(), "Created "+c.path) {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunCompile_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTeX(t, filepath.Join(dir, "a.tex"), rootDoc)
	writeTeX(t, filepath.Join(dir, "sub", "b.tex"), "% comment\n"+rootDoc)
	writeTeX(t, filepath.Join(dir, "chapters", "intro.tex"), "\\section{Intro}\n")
	writeTeX(t, filepath.Join(dir, ".hidden", "c.tex"), rootDoc)
	writeTeX(t, filepath.Join(dir, "notes.txt"), rootDoc)
	outDir := filepath.Join(t.TempDir(), "out")

	pool := newFakePool()
	env, stdout, _ := testEnv("")
	f := &compileFlags{output: outDir}

	if err := runCompile(context.Background(), []string{dir}, f, pool, env); err != nil {
		t.Fatalf("runCompile() error = %v", err)
	}

	var got []string
	for _, c := range pool.compiler.snapshot() {
		got = append(got, c.path)
	}
	slices.Sort(got)
	want := []string{filepath.Join(outDir, "a.pdf"), filepath.Join(outDir, "sub", "b.pdf")}
	if !slices.Equal(got, want) {
		t.Errorf("outputs = %v, want %v", got, want)
	}
	if !strings.Contains(stdout.String(), "2 succeeded, 0 failed") {
		t.Errorf("stdout = %q, want summary", stdout.String())
	}
}

func TestRunCompile_Failures(t *testing.T) {
	t.Parallel()

	t.Run("one failing document", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		good := writeTeX(t, filepath.Join(dir, "good.tex"), rootDoc)
		bad := writeTeX(t, filepath.Join(dir, "bad.tex"), rootDoc+"% broken\n")

		pool := newFakePool()
		pool.compiler.fail = func(text string) error {
			if strings.Contains(text, "broken") {
				return &tex2pdf.CompilationError{Cmd: "pdflatex", ExitCode: 1, Pass: 1,
					Diagnostics: []string{"! Undefined control sequence.", `l.3 \foo`}}
			}
			return nil
		}
		env, _, stderr := testEnv("")

		err := runCompile(context.Background(), []string{good, bad}, &compileFlags{}, pool, env)

		var be *batchError
		if !errors.As(err, &be) || be.failed != 1 {
			t.Fatalf("error = %v, want batchError with 1 failure", err)
		}
		if exitCodeFor(err) != ExitCompilation {
			t.Errorf("exit code = %d, want %d", exitCodeFor(err), ExitCompilation)
		}
		if !strings.Contains(stderr.String(), "FAILED "+bad) || !strings.Contains(stderr.String(), "macro spelling") {
			t.Errorf("stderr = %q, want failure with hint", stderr.String())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		env, _, _ := testEnv("")
		err := runCompile(context.Background(), []string{filepath.Join(t.TempDir(), "nope.tex")}, &compileFlags{}, newFakePool(), env)
		if exitCodeFor(err) != ExitIO {
			t.Errorf("error = %v, want I/O exit code", err)
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		t.Parallel()

		path := writeTeX(t, filepath.Join(t.TempDir(), "doc.md"), "# hi")
		env, _, _ := testEnv("")
		err := runCompile(context.Background(), []string{path}, &compileFlags{}, newFakePool(), env)
		if !errors.Is(err, ErrInvalidExtension) {
			t.Errorf("error = %v, want ErrInvalidExtension", err)
		}
	})

	t.Run("directory without documents", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeTeX(t, filepath.Join(dir, "chapter.tex"), "\\chapter{One}\n")
		env, _, _ := testEnv("")
		err := runCompile(context.Background(), []string{dir}, &compileFlags{}, newFakePool(), env)
		if !errors.Is(err, ErrNoInput) {
			t.Errorf("error = %v, want ErrNoInput", err)
		}
	})

	t.Run("pdf output with several documents", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		a := writeTeX(t, filepath.Join(dir, "a.tex"), rootDoc)
		b := writeTeX(t, filepath.Join(dir, "b.tex"), rootDoc)
		env, _, _ := testEnv("")
		err := runCompile(context.Background(), []string{a, b}, &compileFlags{output: "out.pdf"}, newFakePool(), env)
		if !errors.Is(err, ErrUsage) {
			t.Errorf("error = %v, want ErrUsage", err)
		}
	})

	t.Run("stdin mixed with files", func(t *testing.T) {
		t.Parallel()

		env, _, _ := testEnv("")
		err := runCompile(context.Background(), []string{"-", "a.tex"}, &compileFlags{}, newFakePool(), env)
		if !errors.Is(err, ErrUsage) {
			t.Errorf("error = %v, want ErrUsage", err)
		}
	})

	t.Run("duplicate arguments compile once", func(t *testing.T) {
		t.Parallel()

		src := writeTeX(t, filepath.Join(t.TempDir(), "a.tex"), rootDoc)
		pool := newFakePool()
		env, _, _ := testEnv("")
		if err := runCompile(context.Background(), []string{src, src}, &compileFlags{}, pool, env); err != nil {
			t.Fatal(err)
		}
		if n := len(pool.compiler.snapshot()); n != 1 {
			t.Errorf("calls = %d, want 1", n)
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunCompile_Stdin
// ---------------------------------------------------------------------------

func TestRunCompile_Stdin(t *testing.T) {
	t.Parallel()

	t.Run("to stdout", func(t *testing.T) {
		t.Parallel()

		pool := newFakePool()
		env, stdout, _ := testEnv(rootDoc)

		if err := runCompile(context.Background(), nil, &compileFlags{}, pool, env); err != nil {
			t.Fatalf("runCompile() error = %v", err)
		}
		if stdout.String() != fakePDF {
			t.Errorf("stdout = %q, want PDF bytes only", stdout.String())
		}
		calls := pool.compiler.snapshot()
		if len(calls) != 1 || !calls[0].stream || calls[0].text != rootDoc {
			t.Errorf("calls = %+v, want one stream document", calls)
		}
	})

	t.Run("dash to output directory", func(t *testing.T) {
		t.Parallel()

		outDir := t.TempDir()
		pool := newFakePool()
		env, stdout, _ := testEnv(rootDoc)

		if err := runCompile(context.Background(), []string{"-"}, &compileFlags{output: outDir}, pool, env); err != nil {
			t.Fatalf("runCompile() error = %v", err)
		}
		want := filepath.Join(outDir, tex2pdf.DefaultJobName+".pdf")
		if calls := pool.compiler.snapshot(); calls[0].path != want {
			t.Errorf("path = %q, want %q", calls[0].path, want)
		}
		if !strings.Contains(stdout.String(), "Created "+want) {
			t.Errorf("stdout = %q", stdout.String())
		}
	})

	t.Run("explicit pdf path from config", func(t *testing.T) {
		t.Parallel()

		out := filepath.Join(t.TempDir(), "result.pdf")
		pool := newFakePool()
		env, _, _ := testEnv(rootDoc)
		env.Config.Output.DefaultDir = out

		if err := runCompile(context.Background(), nil, &compileFlags{common: commonFlags{quiet: true}}, pool, env); err != nil {
			t.Fatalf("runCompile() error = %v", err)
		}
		if calls := pool.compiler.snapshot(); calls[0].path != out {
			t.Errorf("path = %q, want %q", calls[0].path, out)
		}
	})

	t.Run("multi-pass stream gets hint", func(t *testing.T) {
		t.Parallel()

		pool := newFakePool()
		pool.compiler.fail = func(string) error { return tex2pdf.ErrStreamMultiPass }
		env, stdout, _ := testEnv(rootDoc)

		err := runCompile(context.Background(), nil, &compileFlags{}, pool, env)
		if !errors.Is(err, tex2pdf.ErrStreamMultiPass) {
			t.Fatalf("error = %v, want ErrStreamMultiPass", err)
		}
		if !strings.Contains(err.Error(), "--passes 1") {
			t.Errorf("error = %q, want hint", err.Error())
		}
		if stdout.Len() != 0 {
			t.Errorf("stdout = %q, want nothing on failure", stdout.String())
		}
	})

	t.Run("stdout write failure", func(t *testing.T) {
		t.Parallel()

		env, _, _ := testEnv(rootDoc)
		env.Stdout = failingWriter{}

		err := runCompile(context.Background(), nil, &compileFlags{}, newFakePool(), env)
		if !errors.Is(err, ErrWritePDF) {
			t.Errorf("error = %v, want ErrWritePDF", err)
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

// ---------------------------------------------------------------------------
// TestCompileBatch
// ---------------------------------------------------------------------------

func TestCompileBatch(t *testing.T) {
	t.Parallel()

	params := &batchParams{opts: func(string) tex2pdf.Options { return tex2pdf.Options{} }}

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		if got := compileBatch(context.Background(), newFakePool(), nil, params); got != nil {
			t.Errorf("compileBatch(nil) = %v, want nil", got)
		}
	})

	t.Run("results keep input order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		var files []FileToCompile
		for _, name := range []string{"a", "b", "c", "d", "e"} {
			src := writeTeX(t, filepath.Join(dir, name+".tex"), rootDoc)
			files = append(files, FileToCompile{InputPath: src, OutputPath: filepath.Join(dir, name+".pdf")})
		}

		pool := newFakePool()
		pool.size = 3
		results := compileBatch(context.Background(), pool, files, params)

		for i, r := range results {
			if r.InputPath != files[i].InputPath || r.Err != nil {
				t.Errorf("results[%d] = %+v, want %s ok", i, r, files[i].InputPath)
			}
		}
	})

	t.Run("acquire failure marks every file", func(t *testing.T) {
		t.Parallel()

		files := []FileToCompile{{InputPath: "a.tex"}, {InputPath: "b.tex"}}
		pool := newFakePool()
		pool.acquireErr = tex2pdf.ErrPoolClosed

		for _, r := range compileBatch(context.Background(), pool, files, params) {
			if !errors.Is(r.Err, tex2pdf.ErrPoolClosed) {
				t.Errorf("%s: Err = %v, want ErrPoolClosed", r.InputPath, r.Err)
			}
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		files := []FileToCompile{{InputPath: "a.tex"}}

		results := compileBatch(ctx, newFakePool(), files, params)
		if !errors.Is(results[0].Err, context.Canceled) {
			t.Errorf("Err = %v, want context.Canceled", results[0].Err)
		}
	})

	t.Run("empty source file", func(t *testing.T) {
		t.Parallel()

		src := writeTeX(t, filepath.Join(t.TempDir(), "empty.tex"), "")
		results := compileBatch(context.Background(), newFakePool(), []FileToCompile{{InputPath: src}}, params)
		if !errors.Is(results[0].Err, ErrReadTeX) {
			t.Errorf("Err = %v, want ErrReadTeX", results[0].Err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestPrintResults
// ---------------------------------------------------------------------------

func TestPrintResults(t *testing.T) {
	t.Parallel()

	results := []CompilationResult{
		{InputPath: "a.tex", OutputPath: "a.pdf", Duration: 1500 * time.Millisecond},
		{InputPath: "b.tex", Err: errors.New("boom")},
	}

	tests := []struct {
		name          string
		quiet         bool
		verbose       bool
		wantStdout    []string
		notWantStdout []string
	}{
		{name: "default", wantStdout: []string{"Created a.pdf", "1 succeeded, 1 failed"}},
		{name: "verbose", verbose: true, wantStdout: []string{"a.tex -> a.pdf (1.5s)"}},
		{name: "quiet", quiet: true, notWantStdout: []string{"Created", "succeeded"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, stdout, stderr := testEnv("")
			failed := printResults(results, tt.quiet, tt.verbose, env)

			if failed != 1 {
				t.Errorf("failed = %d, want 1", failed)
			}
			if !strings.Contains(stderr.String(), "FAILED b.tex: boom") {
				t.Errorf("stderr = %q", stderr.String())
			}
			for _, w := range tt.wantStdout {
				if !strings.Contains(stdout.String(), w) {
					t.Errorf("stdout = %q, want %q", stdout.String(), w)
				}
			}
			for _, w := range tt.notWantStdout {
				if strings.Contains(stdout.String(), w) {
					t.Errorf("stdout = %q, should not contain %q", stdout.String(), w)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWithHints
// ---------------------------------------------------------------------------

func TestWithHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"compilation", &tex2pdf.CompilationError{Diagnostics: []string{"! Emergency stop."}}, "end{document}"},
		{"kept workspace", &tex2pdf.CompilationError{Workspace: "/tmp/tex2pdf-1"}, "workspace kept at /tmp/tex2pdf-1"},
		{"launch", &tex2pdf.LaunchError{Cmd: "pdflatex", Err: os.ErrNotExist}, "--cmd"},
		{"timeout", context.DeadlineExceeded, "--timeout"},
		{"output dir", fmt.Errorf("%w: creating directory /ro: %w", tex2pdf.ErrOutput, os.ErrPermission), "writable"},
		{"other", errors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := withHints(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Errorf("withHints(nil) = %v", got)
				}
				return
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("withHints() = %v, lost original error", got)
			}
			if !strings.Contains(got.Error(), tt.want) {
				t.Errorf("withHints() = %q, want %q", got.Error(), tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestDiscovery helpers
// ---------------------------------------------------------------------------

func TestResolveOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, input, outDir, base, want string
	}{
		{"next to source", "docs/paper.tex", "", "", filepath.Join("docs", "paper.pdf")},
		{"explicit pdf", "docs/paper.tex", "final.pdf", "", "final.pdf"},
		{"flat directory", "docs/paper.tex", "out", "", filepath.Join("out", "paper.pdf")},
		{"mirrors tree", "docs/sub/paper.ltx", "out", "docs", filepath.Join("out", "sub", "paper.pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := resolveOutputPath(tt.input, tt.outDir, tt.base); got != tt.want {
				t.Errorf("resolveOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRootDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"documentclass", rootDoc, true},
		{"indented with options", "  \\documentclass[12pt]{report}\n", true},
		{"commented out", "% \\documentclass{article}\n\\section{x}\n", false},
		{"fragment", "\\section{Intro}\n", false},
	}

	for i, tt := range tests {
		path := writeTeX(t, filepath.Join(dir, string(rune('a'+i))+".tex"), tt.content)
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := isRootDocument(path); got != tt.want {
				t.Errorf("isRootDocument() = %v, want %v", got, tt.want)
			}
		})
	}

	if isRootDocument(filepath.Join(dir, "missing.tex")) {
		t.Error("isRootDocument(missing) = true")
	}
}

// ---------------------------------------------------------------------------
// TestCompileOptions
// ---------------------------------------------------------------------------

func TestCompileOptions(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Compiler.Args = []string{"-interaction=nonstopmode"}
	cfg.Compiler.Passes = 2
	cfg.Paths.Inputs = []string{"/src", "/styles"}
	cfg.Paths.Fonts = []string{"/fonts"}
	cfg.Paths.Assets = []string{"figures"}
	cfg.Logs.ErrorLogs = "err.log"
	cfg.Logs.KeepWorkspace = true

	opts := compileOptions(cfg, "/src")

	if !slices.Equal(opts.Inputs, []string{"/src", "/styles"}) {
		t.Errorf("Inputs = %v, source dir should not be duplicated", opts.Inputs)
	}
	if opts.Passes != 2 || opts.ErrorLogs != "err.log" || !opts.KeepWorkspaceOnFailure {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Cmd != "" {
		t.Errorf("Cmd = %q, engine comes from WithDefaultCmd", opts.Cmd)
	}

	opts.Args[0] = "mutated"
	if cfg.Compiler.Args[0] != "-interaction=nonstopmode" {
		t.Error("compileOptions shares slices with config")
	}
}

// ---------------------------------------------------------------------------
// TestPoolAdapter
// ---------------------------------------------------------------------------

func TestPoolAdapter(t *testing.T) {
	t.Parallel()

	pool := tex2pdf.NewCompilerPool(1)
	defer pool.Close()
	adapter := &poolAdapter{pool: pool}

	if adapter.Size() != 1 {
		t.Errorf("Size() = %d, want 1", adapter.Size())
	}

	c, err := adapter.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	adapter.Release(c)
	adapter.Release(nil)

	defer func() {
		if recover() == nil {
			t.Error("Release(wrong type) did not panic")
		}
	}()
	adapter.Release(&fakeCompiler{})
}
