// Package config provides configuration management for the sqlunit CLI.
//
// Configuration merges four layers, highest priority first: CLI flags,
// SQLUNIT_* environment variables, the sqlunit.yaml project file, and
// built-in defaults.
package config

import (
	"github.com/leapstack-labs/sqlunit/pkg/adapter"
)

// Config holds all CLI configuration options.
type Config struct {
	// Paths lists the files and directories scanned for annotated SQL.
	Paths []string `koanf:"paths"`
	// FloatEpsilon is the absolute tolerance for float comparisons.
	FloatEpsilon float64 `koanf:"float_epsilon"`
	// Ordered selects row comparison mode: auto, always or never.
	Ordered string `koanf:"ordered"`
	// Jobs caps concurrent file execution.
	Jobs         int           `koanf:"jobs"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	Target       *TargetConfig `koanf:"target"`

	// ProjectRoot is the directory relative paths resolve against. Set by
	// the loader, never read from a file.
	ProjectRoot string `koanf:"-"`
}

// TargetConfig describes the engine the tests execute against.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	Path     string            `koanf:"path"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Username string            `koanf:"username"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// AdapterConfig converts the target into the adapter package's config type.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	if t == nil {
		return adapter.Config{Type: DefaultTargetType}
	}
	cfg := adapter.Config{
		Type:     t.Type,
		Path:     t.Path,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.Username,
		Password: t.Password,
		Options:  t.Options,
		Params:   t.Params,
	}
	if cfg.Type == "" {
		cfg.Type = DefaultTargetType
	}
	return cfg
}

// Default configuration values.
const (
	DefaultTargetType = "duckdb"
	DefaultOrdered    = "auto"
	DefaultEpsilon    = 1e-9
	DefaultJobs       = 4
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
