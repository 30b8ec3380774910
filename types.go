package tex2pdf

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"
)

// Compiler defaults.
const (
	DefaultCmd     = "pdflatex"
	DefaultJobName = "texput"
	DefaultPasses  = 1
)

// jobNameFlag is the compiler flag that fixes output artifact names.
const jobNameFlag = "-jobname="

// DefaultArgs returns the arguments used when Options.Args is empty.
func DefaultArgs() []string {
	return []string{"-halt-on-error"}
}

// Document is the TeX source to compile. Exactly one of Text or Reader must
// be set. Only Text can be replayed for multiple passes.
type Document struct {
	Text   string
	Reader io.Reader
}

// FromString returns a Document backed by inline text.
func FromString(text string) Document {
	return Document{Text: text}
}

// FromReader returns a Document backed by a single-use stream.
func FromReader(r io.Reader) Document {
	return Document{Reader: r}
}

// IsStream reports whether the document is backed by a reader.
func (d Document) IsStream() bool {
	return d.Reader != nil
}

// Validate checks that exactly one source is set.
func (d Document) Validate() error {
	switch {
	case d.Reader != nil && d.Text != "":
		return ErrAmbiguousDocument
	case d.Reader == nil && d.Text == "":
		return ErrNoDocument
	}
	return nil
}

// Options configures one compilation. The zero value compiles once with
// pdflatex, searching only the workspace and the compiler's defaults.
type Options struct {
	Inputs      []string          // TEXINPUTS directories (default: workspace)
	Fonts       []string          // TTFONTS/OPENTYPEFONTS directories (default: workspace)
	Cmd         string            // compiler binary (default: pdflatex, or WithDefaultCmd)
	Args        []string          // compiler arguments (default: -halt-on-error)
	Passes      int               // compiler runs (default: 1; >1 needs Document.Text)
	ErrorLogs   string            // copy the full log here when compilation fails
	Precompiled []string          // format files copied into the workspace
	Assets      []string          // files or directories staged into the workspace
	Env         map[string]string // extra variables for the compiler

	// KeepWorkspaceOnFailure leaves the workspace on disk after a failed
	// compilation; CompilationError.Workspace names it.
	KeepWorkspaceOnFailure bool
}

// request is the immutable, defaulted form of Document plus Options.
type request struct {
	doc         Document
	cmd         string
	args        []string
	jobName     string
	passes      int
	inputs      []string
	fonts       []string
	errorLogs   string
	precompiled []string
	assets      []string
	env         map[string]string
	keepOnFail  bool
}

// newRequest validates the caller's input and returns a private copy with
// defaults applied. Nothing here touches the filesystem.
func newRequest(doc Document, opts Options, defaultCmd string) (*request, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	passes := opts.Passes
	switch {
	case passes == 0:
		passes = DefaultPasses
	case passes < 0:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPasses, passes)
	}
	if passes > 1 && doc.IsStream() {
		return nil, ErrStreamMultiPass
	}

	cmd := opts.Cmd
	if cmd == "" {
		cmd = defaultCmd
	}
	if cmd == "" {
		cmd = DefaultCmd
	}

	args := slices.Clone(opts.Args)
	if len(args) == 0 {
		args = DefaultArgs()
	}
	jobName, hasJob := findJobName(args)
	if !hasJob {
		jobName = DefaultJobName
		args = append(args, jobNameFlag+DefaultJobName)
	}
	if err := validateJobName(jobName); err != nil {
		return nil, err
	}

	return &request{
		doc:         doc,
		cmd:         cmd,
		args:        args,
		jobName:     jobName,
		passes:      passes,
		inputs:      slices.Clone(opts.Inputs),
		fonts:       slices.Clone(opts.Fonts),
		errorLogs:   opts.ErrorLogs,
		precompiled: slices.Clone(opts.Precompiled),
		assets:      slices.Clone(opts.Assets),
		env:         maps.Clone(opts.Env),
		keepOnFail:  opts.KeepWorkspaceOnFailure,
	}, nil
}

// findJobName returns the value of the last -jobname= (or --jobname=) argument.
func findJobName(args []string) (string, bool) {
	name, found := "", false
	for _, a := range args {
		trimmed := strings.TrimLeft(a, "-")
		if v, ok := strings.CutPrefix(trimmed, "jobname="); ok {
			name, found = v, true
		}
	}
	return name, found
}

// validateJobName rejects names that would place artifacts outside the workspace.
func validateJobName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidJobName, name)
	}
	return nil
}

// Option configures a Compiler.
type Option func(*Compiler)

// compilerConfig holds internal configuration for Compiler.
type compilerConfig struct {
	tempDir    string
	timeout    time.Duration
	defaultCmd string
}
