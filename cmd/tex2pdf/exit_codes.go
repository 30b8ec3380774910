package main

import (
	"context"
	"errors"
	"os"

	tex2pdf "github.com/alnah/go-tex2pdf"
	"github.com/alnah/go-tex2pdf/internal/assets"
	"github.com/alnah/go-tex2pdf/internal/config"
)

// Exit codes for the tex2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess     = 0 // Successful compilation
	ExitGeneral     = 1 // General/unexpected error, interrupted
	ExitUsage       = 2 // Invalid flags, config, or request
	ExitIO          = 3 // File not found, permission denied, workspace failures
	ExitLaunch      = 4 // TeX engine could not be started
	ExitCompilation = 5 // TeX engine reported an error
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Interrupted (Ctrl-C, SIGTERM, timeout)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ExitGeneral
	}

	// Compiler errors (exit 5)
	if errors.Is(err, tex2pdf.ErrCompilation) || errors.Is(err, tex2pdf.ErrLogMissing) {
		return ExitCompilation
	}

	// Launch errors (exit 4)
	if errors.Is(err, tex2pdf.ErrLaunch) {
		return ExitLaunch
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrFileExists) ||
		errors.Is(err, tex2pdf.ErrConfiguration) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, assets.ErrTemplateNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, tex2pdf.ErrIO) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadTeX) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	return ExitGeneral
}
