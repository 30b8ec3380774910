// Package logfields holds canonical slog attribute keys so that library,
// CLI and server logs stay greppable with the same field names.
package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names.
const (
	KeyCompilationID = "compilation_id"
	KeyCommand       = "cmd"
	KeyPass          = "pass"
	KeyPasses        = "passes"
	KeyWorkspace     = "workspace"
	KeyExitCode      = "exit_code"
	KeyDurationMS    = "duration_ms"
	KeyPath          = "path"
	KeyOutcome       = "outcome"
	KeyError         = "error"
)

func CompilationID(id string) slog.Attr { return slog.String(KeyCompilationID, id) }
func Command(cmd string) slog.Attr      { return slog.String(KeyCommand, cmd) }
func Pass(n int) slog.Attr              { return slog.Int(KeyPass, n) }
func Passes(n int) slog.Attr            { return slog.Int(KeyPasses, n) }
func Workspace(path string) slog.Attr   { return slog.String(KeyWorkspace, path) }
func ExitCode(code int) slog.Attr       { return slog.Int(KeyExitCode, code) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Outcome(o string) slog.Attr        { return slog.String(KeyOutcome, o) }

// Duration records d in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

// Error records err's message, or an empty string for nil.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
