package main

import (
	"io"
	"os"
	"time"

	"github.com/alnah/go-tex2pdf/internal/config"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, and configuration.
type Environment struct {
	Now    func() time.Time
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Config *config.Config // Loaded once per command
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Config: config.DefaultConfig(),
	}
}
