package main

// Notes:
// - runMain: dispatch and exit codes for commands that need no TeX engine.
//   Compilation through the real pool is covered by the integration tests.
// - hasVerboseFlag: arguments after "--" are ignored.

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRunMain - Dispatch and exit codes
// ---------------------------------------------------------------------------

func TestRunMain(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "team.yaml")
	if err := os.WriteFile(cfgPath, []byte("compiler:\n  cmd: lualatex\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	newPath := filepath.Join(t.TempDir(), "fresh.tex")

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "no command", args: nil, wantCode: ExitUsage, wantStderr: "Usage: tex2pdf"},
		{name: "version", args: []string{"version"}, wantCode: ExitSuccess, wantStdout: "tex2pdf " + Version},
		{name: "help", args: []string{"help"}, wantCode: ExitSuccess, wantStdout: "Commands:"},
		{name: "dash h", args: []string{"-h"}, wantCode: ExitSuccess, wantStdout: "Commands:"},
		{name: "help for command", args: []string{"help", "serve"}, wantCode: ExitSuccess, wantStdout: "POST /compile"},
		{name: "help unknown", args: []string{"help", "render"}, wantCode: ExitUsage, wantStderr: "unknown command: render"},
		{name: "unknown command", args: []string{"render"}, wantCode: ExitUsage, wantStderr: "unknown command: render"},
		{name: "compile help flag", args: []string{"compile", "-h"}, wantCode: ExitSuccess, wantStdout: "Usage: tex2pdf compile"},
		{name: "compile bad flag", args: []string{"compile", "--bogus"}, wantCode: ExitUsage, wantStderr: "unknown flag"},
		{name: "compile missing file", args: []string{"compile", "-q", "missing-document.tex"}, wantCode: ExitIO, wantStderr: "error:"},
		{name: "shorthand missing file", args: []string{"missing-document.tex"}, wantCode: ExitIO},
		{name: "compile bad passes", args: []string{"compile", "-n", "99", "a.tex"}, wantCode: ExitUsage},
		{name: "missing config name", args: []string{"compile", "-c", "no-such-config-xyz", "a.tex"}, wantCode: ExitUsage, wantStderr: "hint:"},
		{name: "config dump", args: []string{"config", "-c", cfgPath}, wantCode: ExitSuccess, wantStdout: "cmd: lualatex"},
		{name: "new", args: []string{"new", newPath}, wantCode: ExitSuccess, wantStdout: "Created " + newPath},
		{name: "new without file", args: []string{"new"}, wantCode: ExitUsage},
		{name: "watch without file", args: []string{"watch", "-q"}, wantCode: ExitUsage},
		{name: "serve positional", args: []string{"serve", "doc.tex"}, wantCode: ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, stdout, stderr := testEnv("")
			code := runMain(append([]string{"tex2pdf"}, tt.args...), env)

			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nstdout: %s\nstderr: %s", code, tt.wantCode, stdout, stderr)
			}
			if tt.wantStdout != "" && !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestHelp
// ---------------------------------------------------------------------------

func TestHelp_EveryCommand(t *testing.T) {
	t.Parallel()

	for _, cmd := range []string{cmdCompile, cmdWatch, cmdServe, cmdNew, cmdDoctor, cmdConfig, cmdVersion, cmdHelp} {
		t.Run(cmd, func(t *testing.T) {
			t.Parallel()

			env, stdout, _ := testEnv("")
			if code := runHelp([]string{cmd}, env); code != ExitSuccess {
				t.Errorf("runHelp(%s) = %d", cmd, code)
			}
			if !strings.Contains(stdout.String(), "Usage: tex2pdf "+cmd) {
				t.Errorf("help for %s = %q", cmd, stdout.String())
			}
		})
	}
}

func TestStarterTemplates(t *testing.T) {
	t.Parallel()

	got := starterTemplates()
	if len(got) == 0 {
		t.Fatal("no starter templates")
	}
	for _, name := range got {
		if name == "smoke" {
			t.Error("smoke template offered to users")
		}
	}
}

func TestPrintEnvVars(t *testing.T) {
	t.Parallel()

	env, stdout, _ := testEnv("")
	printEnvVars(env.Stdout)

	for name := range knownEnvVars {
		if !strings.Contains(stdout.String(), name) {
			t.Errorf("env help missing %s", name)
		}
	}
}

// ---------------------------------------------------------------------------
// TestHasVerboseFlag
// ---------------------------------------------------------------------------

func TestHasVerboseFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"compile", "-v", "a.tex"}, true},
		{[]string{"watch", "--verbose"}, true},
		{[]string{"compile", "--", "-v"}, false},
		{[]string{"compile", "a.tex"}, false},
	}

	for _, tt := range tests {
		if got := hasVerboseFlag(tt.args); got != tt.want {
			t.Errorf("hasVerboseFlag(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
