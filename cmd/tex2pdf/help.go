package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/alnah/go-tex2pdf/internal/assets"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  compile    Compile LaTeX documents to PDF")
	fmt.Fprintln(w, "  watch      Recompile whenever sources change")
	fmt.Fprintln(w, "  serve      Serve an HTTP compilation API")
	fmt.Fprintln(w, "  new        Create a document from a starter template")
	fmt.Fprintln(w, "  doctor     Check the TeX installation")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "'tex2pdf file.tex' is short for 'tex2pdf compile file.tex'.")
	fmt.Fprintln(w, "Run 'tex2pdf help <command>' for details on a specific command.")
}

// printCompileFlags prints the flags shared by compile, watch and serve.
func printCompileFlags(w io.Writer) {
	fmt.Fprintln(w, "Engine:")
	fmt.Fprintln(w, "      --cmd <name>          TeX engine (default pdflatex)")
	fmt.Fprintln(w, "      --arg <arg>           Engine argument, repeatable (replaces -halt-on-error)")
	fmt.Fprintln(w, "  -n, --passes <n>          Compiler runs per document (default 1)")
	fmt.Fprintln(w, "      --timeout <dur>       Deadline per document, all passes (e.g. 2m)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Search paths and staging:")
	fmt.Fprintln(w, "  -I, --inputs <dirs>       TEXINPUTS directories (comma-separated)")
	fmt.Fprintln(w, "      --fonts <dirs>        Font directories (TTFONTS, OPENTYPEFONTS)")
	fmt.Fprintln(w, "      --precompiled <files> Format files copied into the workspace")
	fmt.Fprintln(w, "      --asset <paths>       Files or directories copied into the workspace")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Failures:")
	fmt.Fprintln(w, "      --error-logs <path>   Copy the full TeX log here on failure")
	fmt.Fprintln(w, "      --keep-workspace      Keep the workspace of a failed compilation")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "General:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel compilations (0 = auto)")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs and timing")
}

// printCompileUsage prints usage for the compile command.
func printCompileUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf compile [flags] [file.tex|dir|-]...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compile LaTeX documents to PDF. Directories are searched for files")
	fmt.Fprintln(w, "containing \\documentclass. With no argument or '-', one document is")
	fmt.Fprintln(w, "read from stdin and the PDF is written to stdout unless -o is given.")
	fmt.Fprintln(w, "Stdin documents support a single pass only.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file, or directory for several inputs")
	fmt.Fprintln(w)
	printCompileFlags(w)
	fmt.Fprintln(w)
	printEnvVars(w)
}

// printWatchUsage prints usage for the watch command.
func printWatchUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf watch [flags] <file.tex|dir>...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Compile once, then recompile whenever a source, style, bibliography")
	fmt.Fprintln(w, "or image below the document directory changes. Stop with Ctrl-C.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory")
	fmt.Fprintln(w, "      --debounce <dur>      Quiet period before recompiling (default 300ms)")
	fmt.Fprintln(w)
	printCompileFlags(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve an HTTP API:")
	fmt.Fprintln(w, "  POST /compile?passes=N&cmd=ENGINE   body: LaTeX source, response: PDF")
	fmt.Fprintln(w, "  GET  /healthz                       liveness probe")
	fmt.Fprintln(w, "  GET  /metrics                       Prometheus metrics")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --addr <host:port>    Listen address (default :8080)")
	fmt.Fprintln(w, "      --max-body <bytes>    Request body limit (default 10MiB)")
	fmt.Fprintln(w)
	printCompileFlags(w)
}

// printNewUsage prints usage for the new command.
func printNewUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf new [flags] <file.tex>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Create a LaTeX document from a starter template.")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  -t, --template <name>     One of: %s (default %s)\n", strings.Join(starterTemplates(), ", "), assets.DefaultTemplate)
	fmt.Fprintln(w, "  -f, --force               Overwrite an existing file")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf doctor [--json] [--cmd <engine>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Look up TeX engines, check the temp directory and compile a test")
	fmt.Fprintln(w, "document. Exits 1 when the selected engine cannot compile.")
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tex2pdf config [-c <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the configuration after applying the config file and")
	fmt.Fprintln(w, "TEX2PDF_* environment variables, as YAML.")
}

// printEnvVars lists recognized environment variables.
func printEnvVars(w io.Writer) {
	fmt.Fprintln(w, "Environment:")
	names := make([]string, 0, len(knownEnvVars))
	for name := range knownEnvVars {
		names = append(names, name)
	}
	slices.Sort(names)
	fmt.Fprintf(w, "  %s\n", strings.Join(names, ", "))
	fmt.Fprintf(w, "  A %s file in the working directory is loaded first.\n", dotEnvFile)
}

// starterTemplates lists templates offered by the new command.
func starterTemplates() []string {
	return slices.DeleteFunc(assets.TemplateNames(), func(n string) bool {
		return n == assets.SmokeTemplate
	})
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case cmdCompile:
		printCompileUsage(env.Stdout)
	case cmdWatch:
		printWatchUsage(env.Stdout)
	case cmdServe:
		printServeUsage(env.Stdout)
	case cmdNew:
		printNewUsage(env.Stdout)
	case cmdDoctor:
		printDoctorUsage(env.Stdout)
	case cmdConfig:
		printConfigUsage(env.Stdout)
	case cmdVersion:
		fmt.Fprintln(env.Stdout, "Usage: tex2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case cmdHelp:
		fmt.Fprintln(env.Stdout, "Usage: tex2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
