package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alnah/go-tex2pdf/internal/config"
)

// envPrefix namespaces every variable the CLI reads.
const envPrefix = "TEX2PDF_"

// dotEnvFile is loaded from the working directory before anything else.
const dotEnvFile = ".env"

// Recognized environment variables.
const (
	envConfigPath = envPrefix + "CONFIG"
	envCmd        = envPrefix + "CMD"
	envPasses     = envPrefix + "PASSES"
	envTimeout    = envPrefix + "TIMEOUT"
	envWorkers    = envPrefix + "WORKERS"
	envErrorLogs  = envPrefix + "ERROR_LOGS"
	envLogLevel   = envPrefix + "LOG_LEVEL"
	envOutputDir  = envPrefix + "OUTPUT_DIR"
	envAddr       = envPrefix + "ADDR"
)

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // TEX2PDF_CONFIG: config file name or path
	Cmd        string        // TEX2PDF_CMD: TeX engine
	Passes     int           // TEX2PDF_PASSES: compiler runs per document
	Timeout    time.Duration // TEX2PDF_TIMEOUT: per-document deadline
	Workers    int           // TEX2PDF_WORKERS: parallel compilations
	ErrorLogs  string        // TEX2PDF_ERROR_LOGS: log copy on failure
	LogLevel   string        // TEX2PDF_LOG_LEVEL: debug, info, warn, error
	OutputDir  string        // TEX2PDF_OUTPUT_DIR: default output directory
	Addr       string        // TEX2PDF_ADDR: serve listen address

	// Warnings lists values that were set but could not be parsed.
	Warnings []string
}

// knownEnvVars lists valid TEX2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	envConfigPath: true,
	envCmd:        true,
	envPasses:     true,
	envTimeout:    true,
	envWorkers:    true,
	envErrorLogs:  true,
	envLogLevel:   true,
	envOutputDir:  true,
	envAddr:       true,
}

// loadDotEnv loads .env from the working directory. Variables already set
// in the process environment win. A missing file is not an error.
func loadDotEnv() error {
	if _, err := os.Stat(dotEnvFile); err != nil {
		return nil
	}
	if err := godotenv.Load(dotEnvFile); err != nil {
		return fmt.Errorf("loading %s: %w", dotEnvFile, err)
	}
	return nil
}

// loadEnvConfig reads configuration from environment variables.
// Returns a struct with all recognized TEX2PDF_* values.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv(envConfigPath),
		Cmd:        os.Getenv(envCmd),
		ErrorLogs:  os.Getenv(envErrorLogs),
		LogLevel:   os.Getenv(envLogLevel),
		OutputDir:  os.Getenv(envOutputDir),
		Addr:       os.Getenv(envAddr),
	}

	if v := os.Getenv(envTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s=%q is not a positive duration, ignored", envTimeout, v))
		}
	}

	cfg.Passes = cfg.positiveInt(envPasses)
	cfg.Workers = cfg.positiveInt(envWorkers)

	return cfg
}

func (e *envConfig) positiveInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		e.Warnings = append(e.Warnings, fmt.Sprintf("%s=%q is not a positive integer, ignored", name, v))
		return 0
	}
	return n
}

// warnUnknownEnvVars logs warnings for unrecognized TEX2PDF_* variables.
// Helps catch typos like TEX2PDF_PASS instead of TEX2PDF_PASSES.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		name, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(name, envPrefix) && !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Set variables replace file values, giving:
// CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Cmd != "" {
		cfg.Compiler.Cmd = env.Cmd
	}
	if env.Passes > 0 {
		cfg.Compiler.Passes = env.Passes
	}
	if env.Timeout > 0 {
		cfg.Compiler.Timeout = env.Timeout
	}
	if env.Workers > 0 {
		cfg.Workers = env.Workers
	}
	if env.ErrorLogs != "" {
		cfg.Logs.ErrorLogs = env.ErrorLogs
	}
	if env.OutputDir != "" {
		cfg.Output.DefaultDir = env.OutputDir
	}
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
}
