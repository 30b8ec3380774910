// Package texlog extracts error diagnostics from TeX compiler log files.
//
// TeX marks errors with a line starting with "!". For an undefined control
// sequence the offending command is printed on the following line, so that
// case is captured together with one line of context on each side.
package texlog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Log markers.
const (
	ErrorPrefix     = "!"
	UndefinedPrefix = "! Undefined control sequence"
)

// maxLineSize bounds a single log line; TeX wraps at 79 columns by default
// but max_print_line can be raised arbitrarily.
const maxLineSize = 1 << 20

// Kind classifies a diagnostic.
type Kind string

// Diagnostic kinds.
const (
	KindError     Kind = "error"
	KindUndefined Kind = "undefined-control-sequence"
)

// Diagnostic is one error unit extracted from a log.
type Diagnostic struct {
	Kind  Kind
	Line  int      // 1-based log line of the "!" marker
	Lines []string // raw log lines, in log order
}

// String returns the diagnostic lines joined with newlines.
func (d Diagnostic) String() string {
	return strings.Join(d.Lines, "\n")
}

// Extract scans r line by line and returns every diagnostic in log order.
// A missing neighbour (error on the first or last line) is omitted rather
// than replaced with an empty line.
func Extract(r io.Reader) ([]Diagnostic, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		diags    []Diagnostic
		prev     string
		havePrev bool
		pending  = -1 // index of an undefined-sequence unit waiting for its next line
		lineNo   int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		isError := strings.HasPrefix(line, ErrorPrefix)

		if pending >= 0 {
			if !isError {
				diags[pending].Lines = append(diags[pending].Lines, line)
				pending = -1
				prev, havePrev = line, true
				continue
			}
			pending = -1
		}

		switch {
		case strings.HasPrefix(line, UndefinedPrefix):
			d := Diagnostic{Kind: KindUndefined, Line: lineNo}
			if havePrev {
				d.Lines = append(d.Lines, prev)
			}
			d.Lines = append(d.Lines, line)
			diags = append(diags, d)
			pending = len(diags) - 1
		case isError:
			diags = append(diags, Diagnostic{Kind: KindError, Line: lineNo, Lines: []string{line}})
		}

		prev, havePrev = line, true
	}
	if err := scanner.Err(); err != nil {
		return diags, fmt.Errorf("scanning log: %w", err)
	}
	return diags, nil
}

// Flatten returns the lines of all diagnostics in order.
func Flatten(diags []Diagnostic) []string {
	var lines []string
	for _, d := range diags {
		lines = append(lines, d.Lines...)
	}
	return lines
}
