package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alnah/go-tex2pdf/internal/assets"
	"github.com/alnah/go-tex2pdf/internal/fileutil"
)

// ErrFileExists marks a refusal to overwrite without --force.
var ErrFileExists = errors.New("file already exists")

// runNew writes a starter document from an embedded template.
func runNew(positional []string, f *newFlags, env *Environment) error {
	if len(positional) != 1 {
		return fmt.Errorf("%w: new needs exactly one output file, got %d", ErrUsage, len(positional))
	}
	path := positional[0]
	if filepath.Ext(path) == "" {
		path += ".tex"
	}
	if err := validateTeXExtension(path); err != nil {
		return err
	}

	name := f.template
	if name == "" {
		name = assets.DefaultTemplate
	}
	if name == assets.SmokeTemplate {
		return fmt.Errorf("%w: %q is reserved for doctor", assets.ErrTemplateNotFound, name)
	}
	src, err := assets.LoadTemplate(name)
	if err != nil {
		return err
	}

	if !f.force && fileutil.FileExists(path) {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrFileExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), fileutil.DirPermissions); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	// #nosec G306 -- source files are meant to be readable
	if err := os.WriteFile(path, []byte(src), fileutil.FilePermissions); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Fprintf(env.Stdout, "Created %s from the %s template\n", path, name)
	return nil
}
