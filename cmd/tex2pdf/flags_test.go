package main

// Notes:
// - parse*Flags: we test shorthand and long forms, repeatable flags, and that
//   bad input surfaces as ErrUsage. pflag parsing itself is not retested.
// - mergeFlags: only flags the user set override config, including explicit
//   zero values.

import (
	"errors"
	"slices"
	"testing"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-tex2pdf/internal/config"
)

// ---------------------------------------------------------------------------
// TestParseCompileFlags
// ---------------------------------------------------------------------------

func TestParseCompileFlags(t *testing.T) {
	t.Parallel()

	t.Run("all flags", func(t *testing.T) {
		t.Parallel()

		f, positional, err := parseCompileFlags([]string{
			"-o", "out",
			"-w", "3",
			"--cmd", "xelatex",
			"--arg", "-interaction=nonstopmode",
			"--arg", "-jobname=report,final",
			"-n", "2",
			"--timeout", "90s",
			"-I", "styles,shared",
			"--fonts", "fonts",
			"--precompiled", "preamble.fmt",
			"--asset", "figures",
			"--error-logs", "last.log",
			"--keep-workspace",
			"-c", "thesis",
			"-v",
			"main.tex", "appendix.tex",
		})
		if err != nil {
			t.Fatalf("parseCompileFlags() error = %v", err)
		}

		if f.output != "out" || f.workers != 3 {
			t.Errorf("output/workers = %q/%d", f.output, f.workers)
		}
		if f.compiler.cmd != "xelatex" || f.compiler.passes != 2 || f.compiler.timeout != 90*time.Second {
			t.Errorf("compiler = %+v", f.compiler)
		}
		// StringArray keeps commas inside a single argument.
		if want := []string{"-interaction=nonstopmode", "-jobname=report,final"}; !slices.Equal(f.compiler.args, want) {
			t.Errorf("args = %v, want %v", f.compiler.args, want)
		}
		if want := []string{"styles", "shared"}; !slices.Equal(f.paths.inputs, want) {
			t.Errorf("inputs = %v, want %v", f.paths.inputs, want)
		}
		if f.logs.errorLogs != "last.log" || !f.logs.keepWorkspace {
			t.Errorf("logs = %+v", f.logs)
		}
		if f.common.config != "thesis" || !f.common.verbose {
			t.Errorf("common = %+v", f.common)
		}
		if want := []string{"main.tex", "appendix.tex"}; !slices.Equal(positional, want) {
			t.Errorf("positional = %v, want %v", positional, want)
		}
		if !f.changed("cmd") || !f.changed("fonts") || f.changed("quiet") {
			t.Error("changed() does not reflect the command line")
		}
	})

	t.Run("stdin dash is positional", func(t *testing.T) {
		t.Parallel()

		_, positional, err := parseCompileFlags([]string{"-"})
		if err != nil {
			t.Fatalf("parseCompileFlags() error = %v", err)
		}
		if !slices.Equal(positional, []string{"-"}) {
			t.Errorf("positional = %v", positional)
		}
	})

	errTests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--engine", "xelatex"}},
		{"bad passes", []string{"--passes", "many"}},
		{"bad timeout", []string{"--timeout", "soon"}},
		{"too many workers", []string{"-w", "100"}},
		{"negative workers", []string{"-w", "-1"}},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := parseCompileFlags(tt.args)
			if !errors.Is(err, ErrUsage) {
				t.Errorf("parseCompileFlags(%v) error = %v, want ErrUsage", tt.args, err)
			}
		})
	}

	t.Run("help flag", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseCompileFlags([]string{"-h"})
		if !errors.Is(err, flag.ErrHelp) {
			t.Errorf("error = %v, want flag.ErrHelp", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestParseOtherFlags
// ---------------------------------------------------------------------------

func TestParseWatchFlags(t *testing.T) {
	t.Parallel()

	f, positional, err := parseWatchFlags([]string{"--debounce", "1s", "-n", "2", "doc.tex"})
	if err != nil {
		t.Fatalf("parseWatchFlags() error = %v", err)
	}
	if f.debounce != time.Second || f.compiler.passes != 2 {
		t.Errorf("debounce/passes = %v/%d", f.debounce, f.compiler.passes)
	}
	if !slices.Equal(positional, []string{"doc.tex"}) {
		t.Errorf("positional = %v", positional)
	}

	defaults, _, err := parseWatchFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	if defaults.debounce != defaultDebounce {
		t.Errorf("default debounce = %v, want %v", defaults.debounce, defaultDebounce)
	}

	if _, _, err := parseWatchFlags([]string{"--debounce", "0s"}); !errors.Is(err, ErrUsage) {
		t.Errorf("zero debounce error = %v, want ErrUsage", err)
	}
}

func TestParseServeFlags(t *testing.T) {
	t.Parallel()

	f, err := parseServeFlags([]string{"--addr", ":9000", "--max-body", "1024", "--cmd", "lualatex"})
	if err != nil {
		t.Fatalf("parseServeFlags() error = %v", err)
	}
	if f.addr != ":9000" || f.maxBodyBytes != 1024 || f.compiler.cmd != "lualatex" {
		t.Errorf("flags = %+v", f)
	}
	if !f.changed("addr") {
		t.Error("changed(addr) = false")
	}

	if _, err := parseServeFlags([]string{"doc.tex"}); !errors.Is(err, ErrUsage) {
		t.Errorf("positional error = %v, want ErrUsage", err)
	}
}

func TestParseDoctorAndNewFlags(t *testing.T) {
	t.Parallel()

	d, err := parseDoctorFlags([]string{"--json", "--cmd", "xelatex"})
	if err != nil {
		t.Fatalf("parseDoctorFlags() error = %v", err)
	}
	if !d.json || d.cmd != "xelatex" {
		t.Errorf("doctor flags = %+v", d)
	}

	n, positional, err := parseNewFlags([]string{"-t", "letter", "-f", "memo.tex"})
	if err != nil {
		t.Fatalf("parseNewFlags() error = %v", err)
	}
	if n.template != "letter" || !n.force || !slices.Equal(positional, []string{"memo.tex"}) {
		t.Errorf("new flags = %+v, positional = %v", n, positional)
	}
}

// ---------------------------------------------------------------------------
// TestMergeFlags - CLI wins over config, only when set
// ---------------------------------------------------------------------------

func TestMergeFlags(t *testing.T) {
	t.Parallel()

	t.Run("set flags override", func(t *testing.T) {
		t.Parallel()

		f, _, err := parseCompileFlags([]string{"--cmd", "xelatex", "-n", "3", "--asset", "img", "--keep-workspace", "-w", "2"})
		if err != nil {
			t.Fatal(err)
		}
		cfg := config.DefaultConfig()
		cfg.Paths.Fonts = []string{"from-config"}

		if err := mergeFlags(f, cfg); err != nil {
			t.Fatalf("mergeFlags() error = %v", err)
		}
		if cfg.Compiler.Cmd != "xelatex" || cfg.Compiler.Passes != 3 {
			t.Errorf("Compiler = %+v", cfg.Compiler)
		}
		if !slices.Equal(cfg.Paths.Assets, []string{"img"}) {
			t.Errorf("Assets = %v", cfg.Paths.Assets)
		}
		if !cfg.Logs.KeepWorkspace || cfg.Workers != 2 {
			t.Errorf("KeepWorkspace/Workers = %v/%d", cfg.Logs.KeepWorkspace, cfg.Workers)
		}
		if !slices.Equal(cfg.Paths.Fonts, []string{"from-config"}) {
			t.Errorf("Fonts = %v, unset flag should keep config", cfg.Paths.Fonts)
		}
	})

	t.Run("explicit zero overrides", func(t *testing.T) {
		t.Parallel()

		f, _, err := parseCompileFlags([]string{"--timeout", "0s", "--keep-workspace=false"})
		if err != nil {
			t.Fatal(err)
		}
		cfg := config.DefaultConfig()
		cfg.Compiler.Timeout = time.Minute
		cfg.Logs.KeepWorkspace = true

		if err := mergeFlags(f, cfg); err != nil {
			t.Fatal(err)
		}
		if cfg.Compiler.Timeout != 0 || cfg.Logs.KeepWorkspace {
			t.Errorf("timeout/keep = %v/%v, want zero values", cfg.Compiler.Timeout, cfg.Logs.KeepWorkspace)
		}
	})

	t.Run("invalid merged config", func(t *testing.T) {
		t.Parallel()

		f, _, err := parseCompileFlags([]string{"-n", "99"})
		if err != nil {
			t.Fatal(err)
		}
		err = mergeFlags(f, config.DefaultConfig())
		if !errors.Is(err, ErrUsage) || !errors.Is(err, config.ErrInvalidValue) {
			t.Errorf("mergeFlags() error = %v, want ErrUsage wrapping ErrInvalidValue", err)
		}
	})

	t.Run("nil changed func", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		if err := mergeFlags(&compileFlags{compiler: compilerFlags{cmd: "ignored"}}, cfg); err != nil {
			t.Fatal(err)
		}
		if cfg.Compiler.Cmd != config.DefaultCmd {
			t.Errorf("Cmd = %q, want default", cfg.Compiler.Cmd)
		}
	})
}
