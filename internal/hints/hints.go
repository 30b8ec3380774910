// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"runtime"
	"strings"

	"github.com/alnah/go-tex2pdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// goos is swapped by tests.
var goos = runtime.GOOS

// ForLaunch returns hints for a compiler binary that could not be started.
func ForLaunch(cmd string) string {
	var hints []string

	if cmd == "" || !strings.ContainsAny(cmd, `/\`) {
		switch {
		case IsInContainer():
			hints = append(hints, "install texlive-latex-base (Debian) or texlive (Alpine) in the image")
		case goos == "darwin":
			hints = append(hints, "install MacTeX or BasicTeX and open a new shell")
		case goos == "windows":
			hints = append(hints, "install MiKTeX or TeX Live and add it to PATH")
		default:
			hints = append(hints, "install TeX Live (texlive-latex-base) or check PATH")
		}
	}
	hints = append(hints, "use --cmd or TEX2PDF_CMD to pick another engine")

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow operations.
func ForTimeout() string {
	return format("for large documents or many passes, use --timeout flag")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-tex2pdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepathSlash(p), "/go-tex2pdf/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStreamMultiPass returns the hint for multi-pass compilation of stdin.
func ForStreamMultiPass() string {
	return format("pass a file instead of stdin, or use --passes 1")
}

// ForDiagnostics returns hints keyed on well-known TeX error messages.
func ForDiagnostics(lines []string) string {
	var hints []string
	seen := map[string]bool{}
	add := func(h string) {
		if !seen[h] {
			seen[h] = true
			hints = append(hints, h)
		}
	}

	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "! Undefined control sequence"):
			add("check the macro spelling or load the package that defines it")
		case strings.Contains(l, ".sty' not found"), strings.Contains(l, ".cls' not found"):
			add("install the missing package or add its directory with --inputs")
		case strings.Contains(l, "Font ") && strings.Contains(l, "not loadable"):
			add("add the font directory with --fonts")
		case strings.HasPrefix(l, "! Emergency stop"):
			add("the document ended unexpectedly; check for a missing \\end{document}")
		}
	}

	return formatHints(hints)
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}

func filepathSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
