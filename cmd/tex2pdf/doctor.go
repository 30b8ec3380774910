package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	tex2pdf "github.com/alnah/go-tex2pdf"
	"github.com/alnah/go-tex2pdf/internal/assets"
	"github.com/alnah/go-tex2pdf/internal/hints"
)

// smokeTimeout bounds the doctor's test compilation.
const smokeTimeout = 60 * time.Second

// Doctor status values.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"`
	Engines  []engineInfo `json:"engines"`
	Smoke    smokeInfo    `json:"smoke"`
	Env      envInfo      `json:"environment"`
	System   systemInfo   `json:"system"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// engineInfo holds TeX engine detection results.
type engineInfo struct {
	Name     string `json:"name"`
	Found    bool   `json:"found"`
	Path     string `json:"path,omitempty"`
	Version  string `json:"version,omitempty"`
	Selected bool   `json:"selected"`
}

// smokeInfo holds the result of compiling the embedded test document.
type smokeInfo struct {
	Ran      bool   `json:"ran"`
	OK       bool   `json:"ok"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Container bool   `json:"container"`
	CI        bool   `json:"ci"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempDir      string `json:"temp_dir"`
	TempWritable bool   `json:"temp_writable"`
}

// doctorDeps are the probes the doctor runs; tests swap them.
type doctorDeps struct {
	lookPath func(name string) (string, error)
	version  func(path string) string
	smoke    func(ctx context.Context, cmd string) error
	tempDir  func() string
}

func defaultDoctorDeps() doctorDeps {
	return doctorDeps{
		lookPath: exec.LookPath,
		version:  engineVersion,
		smoke:    smokeCompile,
		tempDir:  os.TempDir,
	}
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment, deps doctorDeps) int {
	f, err := parseDoctorFlags(args)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return ExitUsage
	}

	cmd := f.cmd
	if cmd == "" {
		cmd = env.Config.Compiler.Cmd
	}
	if cmd == "" {
		cmd = tex2pdf.DefaultCmd
	}

	result := runDoctor(context.Background(), cmd, deps)

	if f.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks for the selected engine.
func runDoctor(ctx context.Context, cmd string, deps doctorDeps) *doctorResult {
	result := &doctorResult{
		Status: statusReady,
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	selected := checkEngines(result, cmd, deps)
	checkEnvironment(result)
	checkSystem(result, deps)
	if selected != nil && selected.Found && result.System.TempWritable {
		checkSmoke(ctx, result, selected.Path, deps)
	}

	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}

	return result
}

// checkEngines looks up the selected engine and the common alternatives.
// Only the selected engine is required.
func checkEngines(result *doctorResult, cmd string, deps doctorDeps) *engineInfo {
	names := []string{cmd}
	for _, e := range allowedEngines {
		if e != cmd {
			names = append(names, e)
		}
	}

	for _, name := range names {
		info := engineInfo{Name: name, Selected: name == cmd}
		if path, err := deps.lookPath(name); err == nil {
			info.Found = true
			info.Path = path
			info.Version = deps.version(path)
		}
		result.Engines = append(result.Engines, info)
	}

	selected := &result.Engines[0]
	if !selected.Found {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%s not found in PATH%s", cmd, strings.ReplaceAll(hints.ForLaunch(cmd), "\n  hint:", ";")))
	} else if selected.Version == "" {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get %s version", cmd))
	}
	return selected
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container = hints.IsInContainer()

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}
}

// checkSystem verifies the temp directory can hold workspaces.
func checkSystem(result *doctorResult, deps doctorDeps) {
	dir := deps.tempDir()
	result.System.TempDir = dir

	probe, err := os.MkdirTemp(dir, "tex2pdf-doctor-")
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Temp directory not writable: %s", dir))
		return
	}
	_ = os.RemoveAll(probe)
	result.System.TempWritable = true
}

// checkSmoke compiles the embedded smoke document with the engine at path.
func checkSmoke(ctx context.Context, result *doctorResult, path string, deps doctorDeps) {
	start := time.Now()
	err := deps.smoke(ctx, path)
	result.Smoke = smokeInfo{Ran: true, OK: err == nil, Duration: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		result.Smoke.Error = err.Error()
		result.Errors = append(result.Errors, "Test compilation failed: "+firstLine(err.Error()))
	}
}

// engineVersion returns the first line of `<path> --version`.
func engineVersion(path string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output() // #nosec G204 -- path from LookPath
	if err != nil {
		return ""
	}
	return firstLine(string(out))
}

// smokeCompile compiles the embedded smoke template and checks the result
// looks like a PDF.
func smokeCompile(ctx context.Context, cmd string) error {
	src, err := assets.LoadTemplate(assets.SmokeTemplate)
	if err != nil {
		return err
	}

	compiler := tex2pdf.NewCompiler(tex2pdf.WithTimeout(smokeTimeout))
	defer compiler.Close()

	pdf, err := compiler.CompileBytes(ctx, tex2pdf.FromString(src), tex2pdf.Options{Cmd: cmd})
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return fmt.Errorf("%s produced %d bytes without a PDF header", cmd, len(pdf))
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "tex2pdf doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TeX engines")
	for _, e := range r.Engines {
		label := e.Name
		if e.Selected {
			label += " (selected)"
		}
		switch {
		case e.Found && e.Version != "":
			fmt.Fprintf(w, "  [OK] %s: %s\n       %s\n", label, e.Path, e.Version)
		case e.Found:
			fmt.Fprintf(w, "  [OK] %s: %s\n", label, e.Path)
		case e.Selected:
			fmt.Fprintf(w, "  [ERROR] %s: not found\n", label)
		default:
			fmt.Fprintf(w, "  [--] %s: not found\n", label)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintln(w, "  [OK] Container: detected")
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintf(w, "  [OK] Temp directory: %s (writable)\n", r.System.TempDir)
	} else {
		fmt.Fprintf(w, "  [ERROR] Temp directory: %s (not writable)\n", r.System.TempDir)
	}
	switch {
	case !r.Smoke.Ran:
		fmt.Fprintln(w, "  [--] Test compilation: skipped")
	case r.Smoke.OK:
		fmt.Fprintf(w, "  [OK] Test compilation: %s\n", r.Smoke.Duration)
	default:
		fmt.Fprintln(w, "  [ERROR] Test compilation: failed")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to compile")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
