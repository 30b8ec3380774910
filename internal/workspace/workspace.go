// Package workspace manages the isolated temporary directory owned by a
// single compilation.
//
// A Workspace is created before the first compiler pass, receives staged
// inputs (assets, fonts, precompiled formats), and is destroyed exactly once
// when the caller is done with the result. Destroy is idempotent so the
// success and failure paths may both call it.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/alnah/go-tex2pdf/internal/fileutil"
)

// Sentinel errors for workspace operations.
var (
	ErrCreate  = errors.New("creating workspace")
	ErrStage   = errors.New("staging into workspace")
	ErrDestroy = errors.New("removing workspace")
)

// DefaultPrefix names workspace directories when the caller gives no prefix.
const DefaultPrefix = "tex2pdf-"

// Workspace is an exclusively owned temporary directory.
type Workspace struct {
	path string

	once sync.Once
}

// Provision creates a uniquely named directory under baseDir (os.TempDir()
// when empty).
func Provision(baseDir, prefix string) (*Workspace, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	dir, err := os.MkdirTemp(baseDir, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreate, err)
	}
	return &Workspace{path: dir}, nil
}

// Path returns the absolute workspace directory.
func (w *Workspace) Path() string {
	return w.path
}

// Stage copies each path into the workspace root. Files keep their base
// name; directories have their contents merged into the root. Staging stops
// at the first failure.
func (w *Workspace) Stage(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := fileutil.CopyInto(p, w.path); err != nil {
			return fmt.Errorf("%w: %w", ErrStage, err)
		}
	}
	return nil
}

// Destroy removes the directory tree. Only the first call does any work
// and only it can fail; later calls return nil.
func (w *Workspace) Destroy() error {
	var err error
	w.once.Do(func() {
		if rerr := os.RemoveAll(w.path); rerr != nil {
			err = fmt.Errorf("%w: %s: %w", ErrDestroy, w.path, rerr)
		}
	})
	return err
}
