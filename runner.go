package tex2pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/alnah/go-tex2pdf/internal/process"
)

// invocation describes one compiler run.
type invocation struct {
	Cmd   string
	Args  []string
	Dir   string
	Env   []string
	Stdin io.Reader
}

// runResult is what the pass loop needs to know about a finished run.
type runResult struct {
	ExitCode int
	Output   string // tail of combined stdout/stderr
	StdinErr error  // failure reading the document, other than a broken pipe
}

// commandRunner abstracts process execution to enable testing without a TeX installation.
// A non-nil error means the process could not be started or was interrupted;
// a non-zero exit is reported through runResult, not as an error.
type commandRunner interface {
	Run(ctx context.Context, inv invocation) (runResult, error)
}

// Compile-time interface check.
var _ commandRunner = (*execRunner)(nil)

// outputTailSize bounds the compiler output kept for debug logging. The full
// transcript is in the .log file anyway.
const outputTailSize = 8 << 10

// waitDelay bounds how long Wait blocks on I/O after the process is killed.
const waitDelay = 2 * time.Second

// execRunner implements commandRunner using os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, inv invocation) (runResult, error) {
	cmd := exec.CommandContext(ctx, inv.Cmd, inv.Args...) // #nosec G204 -- compiler command is caller-chosen by design
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	process.Isolate(cmd)
	cmd.Cancel = func() error { return process.KillTree(cmd) }
	cmd.WaitDelay = waitDelay

	out := &tailBuffer{max: outputTailSize}
	cmd.Stdout = out
	cmd.Stderr = out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return runResult{ExitCode: -1}, fmt.Errorf("creating stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return runResult{ExitCode: -1}, &LaunchError{Cmd: inv.Cmd, Err: err}
	}

	// Feed the document. The compiler may exit before reading everything
	// (\end{document} or -halt-on-error), in which case the write fails with
	// a broken pipe. That is a normal exit signal, not an error.
	copyDone := make(chan error, 1)
	go func() {
		var err error
		if inv.Stdin != nil {
			_, err = io.Copy(stdin, inv.Stdin)
		}
		if closeErr := stdin.Close(); err == nil {
			err = closeErr
		}
		copyDone <- err
	}()

	waitErr := cmd.Wait()
	res := runResult{ExitCode: -1, Output: out.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	// Wait closed our end of the pipe, so a blocked write has returned by
	// now. Only a caller's reader stuck in Read can hold the copy up.
	select {
	case err := <-copyDone:
		if err != nil && !isBrokenPipe(err) {
			res.StdinErr = err
		}
	case <-time.After(waitDelay):
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("running %s: %w", inv.Cmd, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.As(waitErr, &exitErr):
		return res, nil
	case isBrokenPipe(waitErr), errors.Is(waitErr, exec.ErrWaitDelay):
		// stdin copy lost the race with process exit; the exit status stands.
		return res, nil
	default:
		return res, fmt.Errorf("waiting for %s: %w", inv.Cmd, waitErr)
	}
}

// isBrokenPipe reports whether err means the other end of a pipe went away.
func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed)
}

// tailBuffer keeps the last max bytes written to it. Safe for concurrent
// writers (exec shares it between stdout and stderr).
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if len(p) > t.max {
		p = p[len(p)-t.max:]
	}
	if over := t.buf.Len() + len(p) - t.max; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
