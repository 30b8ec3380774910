// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrSourceNotFound = errors.New("source path not found")
	ErrNotRegular     = errors.New("source is not a regular file or directory")
)

// File permission constants.
const (
	DirPermissions  = 0o750 // rwxr-x---: owner full, group read+execute
	FilePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists returns true if the path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
//
// Examples:
//   - "default" -> false (name)
//   - "./tex2pdf.yaml" -> true (relative path)
//   - "/etc/tex2pdf/ci.yaml" -> true (absolute)
//   - "C:\tex\ci.yaml" -> true (Windows)
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// CopyFile copies a regular file from src to dst, creating or truncating dst.
// The destination keeps the source permission bits.
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src) // #nosec G304 -- caller-supplied staging path
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegular, src)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()) // #nosec G304 -- workspace path
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dst, closeErr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return nil
}

// CopyDirContents copies everything below src into dst, preserving relative
// paths. dst must exist. Symlinks and special files are skipped.
func CopyDirContents(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, DirPermissions); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			return nil
		case d.Type().IsRegular():
			return CopyFile(path, target)
		default:
			return nil
		}
	})
}

// CopyInto copies src into the directory dst. A regular file lands at
// dst/<base name>; a directory has its contents merged into dst.
func CopyInto(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		}
		return fmt.Errorf("stat %s: %w", src, err)
	}

	switch {
	case info.IsDir():
		return CopyDirContents(src, dst)
	case info.Mode().IsRegular():
		return CopyFile(src, filepath.Join(dst, filepath.Base(src)))
	default:
		return fmt.Errorf("%w: %s", ErrNotRegular, src)
	}
}
