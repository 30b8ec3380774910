package tex2pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-tex2pdf/internal/fileutil"
	"github.com/alnah/go-tex2pdf/internal/texlog"
)

// failure describes a pass that exited non-zero.
type failure struct {
	dir      string // workspace path
	cmd      string
	jobName  string
	pass     int
	exitCode int
	logCopy  string // Options.ErrorLogs
}

// reportFailure turns a failed pass into the caller-facing error. Diagnostic
// extraction and the optional full-log copy run concurrently; neither blocks
// the other, and a copy failure is joined to, never substituted for, the
// CompilationError.
func reportFailure(ctx context.Context, f failure) error {
	logPath := filepath.Join(f.dir, f.jobName+".log")
	if !fileutil.FileExists(logPath) {
		return fmt.Errorf("%w: %s exited with status %d on pass %d", ErrLogMissing, f.cmd, f.exitCode, f.pass)
	}

	var (
		diags    []texlog.Diagnostic
		readErr  error
		copyErr  error
		g, gctx  = errgroup.WithContext(ctx)
		copyPath = f.logCopy
	)

	g.Go(func() error {
		diags, readErr = extractDiagnostics(logPath)
		return nil
	})
	if copyPath != "" {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				copyErr = err
				return nil
			}
			copyErr = copyLog(logPath, copyPath)
			return nil
		})
	}
	_ = g.Wait()

	cerr := &CompilationError{
		Cmd:         f.cmd,
		ExitCode:    f.exitCode,
		Pass:        f.pass,
		Diagnostics: texlog.Flatten(diags),
	}
	if copyPath != "" && copyErr == nil {
		cerr.LogCopy = copyPath
	}

	errs := []error{cerr}
	if readErr != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrLogRead, readErr))
	}
	if copyErr != nil {
		errs = append(errs, &LogCopyError{Path: copyPath, Err: copyErr})
	}
	if len(errs) == 1 {
		return cerr
	}
	return errors.Join(errs...)
}

func extractDiagnostics(logPath string) ([]texlog.Diagnostic, error) {
	f, err := os.Open(logPath) // #nosec G304 -- workspace artifact
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return texlog.Extract(f)
}

// copyLog writes the raw log to dst, creating parent directories as needed.
func copyLog(src, dst string) error {
	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, fileutil.DirPermissions); err != nil {
			return err
		}
	}
	return fileutil.CopyFile(src, dst)
}
