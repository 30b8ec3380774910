package tex2pdf

import (
	"log/slog"
	"time"

	"github.com/alnah/go-tex2pdf/internal/metrics"
)

// defaultTimeout of zero means no per-compilation deadline; callers bound
// compilations with their own context.
const defaultTimeout time.Duration = 0

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder. The default records nothing.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Compiler) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithTempDir sets the parent directory for workspaces (default os.TempDir()).
func WithTempDir(dir string) Option {
	return func(c *Compiler) {
		c.cfg.tempDir = dir
	}
}

// WithTimeout bounds each compilation, all passes included. On expiry the
// compiler process group is killed and the workspace removed.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("tex2pdf: WithTimeout duration must be positive")
	}
	return func(c *Compiler) {
		c.cfg.timeout = d
	}
}

// WithDefaultCmd sets the compiler used when Options.Cmd is empty.
func WithDefaultCmd(cmd string) Option {
	return func(c *Compiler) {
		c.cfg.defaultCmd = cmd
	}
}

// withRunner injects a process runner (internal, for tests).
func withRunner(r commandRunner) Option {
	return func(c *Compiler) {
		c.runner = r
	}
}

// withEnviron replaces the inherited environment baseline (internal, for tests).
func withEnviron(fn func() []string) Option {
	return func(c *Compiler) {
		c.environ = fn
	}
}
