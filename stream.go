package tex2pdf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// PDFStream relays the compiled PDF. The workspace holding it is removed
// once the stream is drained, fails, or is closed, whichever comes first.
// Callers must Close the stream; draining it to EOF alone also cleans up.
type PDFStream struct {
	file    *os.File
	cleanup func() error
	jobName string
	passes  int

	mu       sync.Mutex
	finished bool
	err      error
}

// Compile-time interface check.
var _ io.ReadCloser = (*PDFStream)(nil)

// openPDF opens path as a PDFStream. cleanup runs exactly once when the
// stream finishes.
func openPDF(path, jobName string, passes int, cleanup func() error) (*PDFStream, error) {
	f, err := os.Open(path) // #nosec G304 -- workspace artifact
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPDFMissing, err)
	}
	return &PDFStream{file: f, cleanup: cleanup, jobName: jobName, passes: passes}, nil
}

// Read implements io.Reader. EOF and read errors trigger cleanup; a read
// error is reported as ErrStream.
func (s *PDFStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return 0, io.EOF
	}
	s.mu.Unlock()

	n, err := s.file.Read(p)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		_ = s.finish()
		return n, io.EOF
	default:
		_ = s.finish()
		return n, fmt.Errorf("%w: %w", ErrStream, err)
	}
}

// Close releases the file and removes the workspace. Safe to call more
// than once; later calls return the first result.
func (s *PDFStream) Close() error {
	return s.finish()
}

// JobName returns the job name the PDF was produced under.
func (s *PDFStream) JobName() string { return s.jobName }

// Passes returns the number of compiler passes that ran.
func (s *PDFStream) Passes() int { return s.passes }

func (s *PDFStream) finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return s.err
	}
	s.finished = true

	var errs []error
	if err := s.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrStream, err))
	}
	if s.cleanup != nil {
		if err := s.cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	s.err = errors.Join(errs...)
	return s.err
}
