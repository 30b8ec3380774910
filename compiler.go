package tex2pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-tex2pdf/internal/fileutil"
	"github.com/alnah/go-tex2pdf/internal/logfields"
	"github.com/alnah/go-tex2pdf/internal/metrics"
	"github.com/alnah/go-tex2pdf/internal/texenv"
	"github.com/alnah/go-tex2pdf/internal/workspace"
)

// workspacePrefix names workspace directories under the temp dir.
const workspacePrefix = "tex2pdf-"

// Compiler orchestrates the TeX-to-PDF pipeline: workspace setup, input
// staging, the compiler pass loop, PDF streaming and error reporting.
// A Compiler is safe for concurrent use; each Compile call owns its own
// workspace and subprocess.
type Compiler struct {
	cfg      compilerConfig
	logger   *slog.Logger
	recorder metrics.Recorder
	runner   commandRunner
	tracker  *workspace.Tracker
	environ  func() []string
}

// NewCompiler creates a Compiler with default configuration.
// Use options to customize behavior (e.g., WithLogger, WithTimeout).
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		cfg:      compilerConfig{timeout: defaultTimeout, defaultCmd: DefaultCmd},
		logger:   slog.New(slog.DiscardHandler),
		recorder: metrics.NoopRecorder{},
		tracker:  workspace.NewTracker(),
		environ:  os.Environ,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Create runner if not injected (e.g., by tests)
	if c.runner == nil {
		c.runner = execRunner{}
	}

	return c
}

// Compile runs the compiler on doc and returns the resulting PDF as a
// stream. The caller must Close the stream; the workspace is removed when
// it is closed or drained. On failure no stream is returned and the
// workspace is already gone (unless Options.KeepWorkspaceOnFailure).
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Compiler) Compile(ctx context.Context, doc Document, opts Options) (stream *PDFStream, err error) {
	start := time.Now()
	cmdLabel := opts.Cmd
	if cmdLabel == "" {
		cmdLabel = c.cfg.defaultCmd
	}

	c.recorder.AddInFlight(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
			stream = nil
		}
		c.recorder.AddInFlight(-1)
		c.recorder.ObserveCompilation(cmdLabel, time.Since(start), outcomeFor(err))
	}()

	req, err := newRequest(doc, opts, c.cfg.defaultCmd)
	if err != nil {
		return nil, err
	}

	if c.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()
	}

	log := c.logger.With(
		logfields.CompilationID(uuid.NewString()),
		logfields.Command(req.cmd),
		logfields.Passes(req.passes),
	)

	ws, err := workspace.Provision(c.cfg.tempDir, workspacePrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkspace, err)
	}
	log = log.With(logfields.Workspace(ws.Path()))
	log.Debug("workspace provisioned")

	// Until the stream takes ownership, every return path removes the workspace.
	owned := true
	defer func() {
		if owned {
			c.release(ws, log)
		}
	}()

	if err := ws.Stage(req.precompiled...); err != nil {
		return nil, fmt.Errorf("%w: precompiled: %w", ErrStage, err)
	}
	if err := ws.Stage(req.assets...); err != nil {
		return nil, fmt.Errorf("%w: assets: %w", ErrStage, err)
	}

	overlay := texenv.SearchPaths(req.inputs, req.fonts, ws.Path())
	for k, v := range req.env {
		overlay[k] = v
	}
	base := invocation{
		Cmd:  req.cmd,
		Args: req.args,
		Dir:  ws.Path(),
		Env:  texenv.Build(c.environ(), overlay),
	}
	if inputs, ok := texenv.Lookup(base.Env, "TEXINPUTS"); ok {
		log.Debug("search path", slog.String("TEXINPUTS", inputs))
	}

	completed, err := c.runPasses(ctx, req, base, log)
	if err != nil {
		var cerr *CompilationError
		if req.keepOnFail && errors.As(err, &cerr) {
			owned = false
			cerr.Workspace = ws.Path()
			log.Info("keeping workspace of failed compilation")
		}
		return nil, err
	}

	pdfPath := filepath.Join(ws.Path(), req.jobName+".pdf")
	stream, err = openPDF(pdfPath, req.jobName, completed, func() error {
		return c.release(ws, log)
	})
	if err != nil {
		return nil, err
	}
	owned = false
	c.tracker.Track(ws)

	log.Info("compilation succeeded", logfields.Duration(time.Since(start)))
	return stream, nil
}

// runPasses drives the pass loop. Passes run strictly in sequence and the
// loop stops at the first non-zero exit.
func (c *Compiler) runPasses(ctx context.Context, req *request, base invocation, log *slog.Logger) (int, error) {
	completed := 0
	for completed < req.passes {
		pass := completed + 1
		if err := ctx.Err(); err != nil {
			return completed, fmt.Errorf("compilation canceled before pass %d: %w", pass, err)
		}

		src, err := req.doc.open(pass)
		if err != nil {
			return completed, err
		}
		inv := base
		inv.Stdin = src

		passStart := time.Now()
		res, err := c.runner.Run(ctx, inv)
		elapsed := time.Since(passStart)
		plog := log.With(logfields.Pass(pass), logfields.ExitCode(res.ExitCode), logfields.Duration(elapsed))

		if err != nil {
			plog.Warn("compiler run failed", logfields.Error(err))
			return completed, err
		}
		c.recorder.ObservePass(req.cmd, elapsed, res.ExitCode)
		if res.StdinErr != nil {
			plog.Warn("reading document failed", logfields.Error(res.StdinErr))
		}

		if res.ExitCode != 0 {
			plog.Info("compiler exited with error")
			plog.Debug("compiler output", slog.String("output", res.Output))
			rerr := reportFailure(ctx, failure{
				dir:      base.Dir,
				cmd:      req.cmd,
				jobName:  req.jobName,
				pass:     pass,
				exitCode: res.ExitCode,
				logCopy:  req.errorLogs,
			})
			return completed, rerr
		}

		completed++
		plog.Debug("pass completed")
	}
	return completed, nil
}

// release destroys ws and forgets it. Cleanup failures are logged and
// returned, never allowed to replace a compilation result.
func (c *Compiler) release(ws *workspace.Workspace, log *slog.Logger) error {
	c.tracker.Untrack(ws)
	if err := ws.Destroy(); err != nil {
		log.Warn("workspace cleanup failed", logfields.Error(err))
		return fmt.Errorf("%w: %w", ErrCleanup, err)
	}
	log.Debug("workspace removed")
	return nil
}

// CompileTo compiles doc and copies the PDF to w. It returns the number of
// bytes written.
func (c *Compiler) CompileTo(ctx context.Context, doc Document, opts Options, w io.Writer) (int64, error) {
	stream, err := c.Compile(ctx, doc, opts)
	if err != nil {
		return 0, err
	}
	n, copyErr := io.Copy(w, stream)
	if closeErr := stream.Close(); closeErr != nil {
		c.logger.Warn("closing PDF stream", logfields.Error(closeErr))
	}
	return n, copyErr
}

// CompileBytes compiles doc and returns the whole PDF in memory.
func (c *Compiler) CompileBytes(ctx context.Context, doc Document, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.CompileTo(ctx, doc, opts, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CompileToFile compiles doc and writes the PDF to path. The file is written
// to a temporary sibling first and renamed, so a failed compilation never
// leaves a truncated PDF behind.
func (c *Compiler) CompileToFile(ctx context.Context, doc Document, opts Options, path string) (err error) {
	stream, err := c.Compile(ctx, doc, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			c.logger.Warn("closing PDF stream", logfields.Error(closeErr))
		}
	}()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, fileutil.DirPermissions); err != nil {
		return fmt.Errorf("%w: creating directory %s: %w", ErrOutput, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, stream); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	if err = os.Chmod(tmp.Name(), fileutil.FilePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	return nil
}

// Close removes the workspaces behind PDF streams that were never closed.
// A compilation still running keeps its workspace and returns normally;
// its stream is swept by a later Close.
func (c *Compiler) Close() error {
	if err := c.tracker.DestroyAll(); err != nil {
		return fmt.Errorf("%w: %w", ErrCleanup, err)
	}
	return nil
}

// outcomeFor classifies err for metrics.
func outcomeFor(err error) metrics.Outcome {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case errors.Is(err, ErrCompilation):
		return metrics.OutcomeCompileErr
	case errors.Is(err, ErrLaunch):
		return metrics.OutcomeLaunchErr
	case errors.Is(err, ErrConfiguration):
		return metrics.OutcomeConfigErr
	case errors.Is(err, ErrLogMissing):
		return metrics.OutcomeLogMissing
	case errors.Is(err, ErrIO):
		return metrics.OutcomeIOErr
	default:
		return metrics.OutcomeInternalErr
	}
}
