package tex2pdf

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every error returned by the package matches exactly one
// of these through errors.Is.
var (
	ErrConfiguration = errors.New("invalid compilation request")
	ErrLaunch        = errors.New("failed to launch compiler")
	ErrCompilation   = errors.New("compilation failed")
	ErrLogMissing    = errors.New("compiler exited without writing a log")
	ErrIO            = errors.New("I/O error")
)

// Configuration errors, rejected before any subprocess is spawned.
var (
	ErrNoDocument        = newCategorized(ErrConfiguration, "no TeX document provided")
	ErrAmbiguousDocument = newCategorized(ErrConfiguration, "document has both text and reader set")
	ErrStreamMultiPass   = newCategorized(ErrConfiguration, "stream sources do not support multiple passes")
	ErrInvalidPasses     = newCategorized(ErrConfiguration, "passes must not be negative")
	ErrInvalidJobName    = newCategorized(ErrConfiguration, "invalid job name")
	ErrStreamReplay      = newCategorized(ErrConfiguration, "stream source already consumed")
)

// I/O errors.
var (
	ErrWorkspace  = newCategorized(ErrIO, "workspace setup failed")
	ErrStage      = newCategorized(ErrIO, "staging inputs failed")
	ErrPDFMissing = newCategorized(ErrIO, "compiler reported success but produced no PDF")
	ErrStream     = newCategorized(ErrIO, "reading PDF stream failed")
	ErrLogRead    = newCategorized(ErrIO, "reading compiler log failed")
	ErrLogCopy    = newCategorized(ErrIO, "copying compiler log failed")
	ErrCleanup    = newCategorized(ErrIO, "workspace cleanup failed")
	ErrOutput     = newCategorized(ErrIO, "writing output file failed")
)

// categorized is a sentinel that also matches its parent category.
type categorized struct {
	parent error
	msg    string
}

func newCategorized(parent error, msg string) error {
	return &categorized{parent: parent, msg: msg}
}

func (e *categorized) Error() string { return e.msg }
func (e *categorized) Unwrap() error { return e.parent }

// Banners prefixed to CompilationError messages.
const (
	BannerSyntax  = "LaTeX Syntax Error"
	BannerGeneric = "LaTeX Error"
)

// CompilationError reports a non-zero compiler exit.
type CompilationError struct {
	Cmd         string
	ExitCode    int
	Pass        int      // 1-based pass that failed
	Diagnostics []string // "!"-prefixed log lines plus context, in log order
	LogCopy     string   // full log copy path, when Options.ErrorLogs was written
	Workspace   string   // retained workspace, when Options.KeepWorkspaceOnFailure is set
}

// Error returns the banner followed by the extracted diagnostics.
// With no diagnostics the banner is followed by the exit status instead.
func (e *CompilationError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("%s\n%s exited with status %d", BannerGeneric, e.Cmd, e.ExitCode)
	}
	return BannerSyntax + "\n" + strings.Join(e.Diagnostics, "\n")
}

// Unwrap lets errors.Is match ErrCompilation.
func (e *CompilationError) Unwrap() error { return ErrCompilation }

// LaunchError reports a compiler binary that could not be started.
type LaunchError struct {
	Cmd string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("unable to run %s: %v", e.Cmd, e.Err)
}

// Unwrap exposes both ErrLaunch and the underlying exec error.
func (e *LaunchError) Unwrap() []error { return []error{ErrLaunch, e.Err} }

// LogCopyError reports a failure to persist the log to Options.ErrorLogs.
// It is joined to the CompilationError, never returned in its place.
type LogCopyError struct {
	Path string
	Err  error
}

func (e *LogCopyError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrLogCopy, e.Path, e.Err)
}

// Unwrap exposes both ErrLogCopy and the underlying I/O error.
func (e *LogCopyError) Unwrap() []error { return []error{ErrLogCopy, e.Err} }
