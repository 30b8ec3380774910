package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-tex2pdf/internal/fileutil"
	"github.com/alnah/go-tex2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Limits for values that end up on a command line or in an environment.
const (
	MaxCmdLength  = 256
	MaxArgs       = 64
	MaxArgLength  = 1024
	MaxPaths      = 64
	MaxPathLength = 4096
	MaxPasses     = 10
)

// Defaults.
const (
	DefaultCmd          = "pdflatex"
	DefaultPasses       = 1
	DefaultAddr         = ":8080"
	DefaultMaxBodyBytes = 10 << 20
)

// configDirName is the directory under os.UserConfigDir() searched for named configs.
const configDirName = "go-tex2pdf"

// Config holds the CLI configuration.
type Config struct {
	Compiler CompilerConfig `yaml:"compiler"`
	Paths    PathsConfig    `yaml:"paths"`
	Output   OutputConfig   `yaml:"output"`
	Logs     LogsConfig     `yaml:"logs"`
	Server   ServerConfig   `yaml:"server"`
	Workers  int            `yaml:"workers"` // 0 = auto (GOMAXPROCS/2, capped)
}

// CompilerConfig selects and tunes the TeX engine.
type CompilerConfig struct {
	Cmd     string        `yaml:"cmd"`     // engine binary (default: pdflatex)
	Args    []string      `yaml:"args"`    // replaces the default -halt-on-error
	Passes  int           `yaml:"passes"`  // runs per document (default: 1)
	Timeout time.Duration `yaml:"timeout"` // per document, all passes (0 = none)
}

// PathsConfig lists search paths and files staged into every workspace.
type PathsConfig struct {
	Inputs      []string `yaml:"inputs"`      // TEXINPUTS
	Fonts       []string `yaml:"fonts"`       // TTFONTS and OPENTYPEFONTS
	Precompiled []string `yaml:"precompiled"` // .fmt files
	Assets      []string `yaml:"assets"`      // files or directories
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // empty = next to the source
}

// LogsConfig controls what survives a failed compilation.
type LogsConfig struct {
	ErrorLogs     string `yaml:"errorLogs"`     // copy of the full log on failure
	KeepWorkspace bool   `yaml:"keepWorkspace"` // leave the workspace for inspection
}

// ServerConfig configures `tex2pdf serve`.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`
}

// Validate checks ranges and lengths. Called automatically by LoadConfig,
// but available for consumers who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("compiler.cmd", c.Compiler.Cmd, MaxCmdLength); err != nil {
		return err
	}
	if strings.ContainsAny(c.Compiler.Cmd, "\x00\n") {
		return fmt.Errorf("%w: compiler.cmd contains control characters", ErrInvalidValue)
	}
	if err := validateList("compiler.args", c.Compiler.Args, MaxArgs, MaxArgLength); err != nil {
		return err
	}
	if c.Compiler.Passes < 0 || c.Compiler.Passes > MaxPasses {
		return fmt.Errorf("%w: compiler.passes must be between 0 and %d, got %d", ErrInvalidValue, MaxPasses, c.Compiler.Passes)
	}
	if c.Compiler.Timeout < 0 {
		return fmt.Errorf("%w: compiler.timeout must not be negative, got %s", ErrInvalidValue, c.Compiler.Timeout)
	}

	lists := []struct {
		name  string
		paths []string
	}{
		{"paths.inputs", c.Paths.Inputs},
		{"paths.fonts", c.Paths.Fonts},
		{"paths.precompiled", c.Paths.Precompiled},
		{"paths.assets", c.Paths.Assets},
	}
	for _, l := range lists {
		if err := validateList(l.name, l.paths, MaxPaths, MaxPathLength); err != nil {
			return err
		}
	}

	if err := validateFieldLength("output.defaultDir", c.Output.DefaultDir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("logs.errorLogs", c.Logs.ErrorLogs, MaxPathLength); err != nil {
		return err
	}

	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: server.maxBodyBytes must not be negative", ErrInvalidValue)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidValue, c.Workers)
	}

	return nil
}

func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s too long (%d chars, max %d)", ErrInvalidValue, fieldName, len(value), maxLength)
	}
	return nil
}

func validateList(fieldName string, values []string, maxItems, maxLength int) error {
	if len(values) > maxItems {
		return fmt.Errorf("%w: %s has %d entries (max %d)", ErrInvalidValue, fieldName, len(values), maxItems)
	}
	for i, v := range values {
		if err := validateFieldLength(fmt.Sprintf("%s[%d]", fieldName, i), v, maxLength); err != nil {
			return err
		}
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{Cmd: DefaultCmd, Passes: DefaultPasses},
		Server:   ServerConfig{Addr: DefaultAddr, MaxBodyBytes: DefaultMaxBodyBytes},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Values absent from the file keep their DefaultConfig value.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.DecodeStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Dump renders cfg as YAML, the same format LoadConfig reads.
func (c *Config) Dump() ([]byte, error) {
	return yamlutil.Encode(c)
}

// SearchPaths lists the files LoadConfig tries for a config name, in order.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-tex2pdf/
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, configDirName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing file among SearchPaths(name).
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
