package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidExtension marks a positional file that is not TeX source.
var ErrInvalidExtension = errors.New("file must have .tex or .ltx extension")

// texExtensions lists source extensions compiled when a directory is given.
var texExtensions = map[string]bool{".tex": true, ".ltx": true}

// FileToCompile represents a single file to process.
type FileToCompile struct {
	InputPath  string
	OutputPath string
}

// discoverFiles expands one positional argument into files to compile.
// A directory is walked recursively; only top-level documents (those
// containing \documentclass) are kept, so chapters pulled in with \input
// are not compiled on their own.
func discoverFiles(inputPath, outputDir string) ([]FileToCompile, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if err := validateTeXExtension(inputPath); err != nil {
			return nil, err
		}
		return []FileToCompile{{InputPath: inputPath, OutputPath: resolveOutputPath(inputPath, outputDir, "")}}, nil
	}

	var files []FileToCompile
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() {
			if path != inputPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !texExtensions[filepath.Ext(path)] || !isRootDocument(path) {
			return nil
		}
		files = append(files, FileToCompile{InputPath: path, OutputPath: resolveOutputPath(path, outputDir, inputPath)})
		return nil
	})

	return files, err
}

// rootMarker identifies a standalone LaTeX document.
const rootMarker = `\documentclass`

// rootScanLimit bounds how much of a file is read to find rootMarker.
const rootScanLimit = 8 << 10

// isRootDocument reports whether the head of path declares a document class.
func isRootDocument(path string) bool {
	f, err := os.Open(path) // #nosec G304 -- discovered path
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, rootScanLimit)
	n, _ := f.Read(buf)
	for line := range strings.Lines(string(buf[:n])) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "%") {
			continue
		}
		if strings.Contains(trimmed, rootMarker) {
			return true
		}
	}
	return false
}

// resolveOutputPath determines the PDF output path for a TeX file.
// An outputDir ending in .pdf names the file directly.
func resolveOutputPath(inputPath, outputDir, baseInputDir string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)

	if outputDir == "" {
		return filepath.Join(filepath.Dir(inputPath), base+".pdf")
	}

	if strings.HasSuffix(outputDir, ".pdf") {
		return outputDir
	}

	if baseInputDir != "" {
		if relPath, err := filepath.Rel(baseInputDir, inputPath); err == nil {
			return filepath.Join(outputDir, filepath.Dir(relPath), base+".pdf")
		}
	}

	return filepath.Join(outputDir, base+".pdf")
}

// validateTeXExtension checks that the file has a TeX source extension.
func validateTeXExtension(path string) error {
	if ext := filepath.Ext(path); !texExtensions[ext] {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, ext)
	}
	return nil
}
