package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for
// config files.
const maxUpwardSearchLevels = 10

var (
	k              = koanf.New(".")
	configFileUsed string
)

// GetConfigFileUsed returns the path of the config file the last load read,
// or empty when configuration came from defaults alone.
func GetConfigFileUsed() string {
	return configFileUsed
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// configExistsIn checks if a sqlunit config file exists in the directory.
func configExistsIn(dir string) (string, bool) {
	for _, name := range []string{"sqlunit.yaml", "sqlunit.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// findProjectRoot searches upward from the working directory for a sqlunit
// config file, falling back to the working directory itself.
func findProjectRoot() (root, cfgFile string) {
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return ".", ""
	}
	dir := cwd
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if candidate, ok := configExistsIn(dir); ok {
			return dir, candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd, ""
}

// Load merges configuration from defaults, the project file, SQLUNIT_*
// environment variables and explicitly set CLI flags, in increasing
// precedence.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	var projectRoot string
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("invalid config path %q: %w", cfgFile, err)
		}
		cfgFile = abs
		projectRoot = filepath.Dir(abs)
	} else {
		projectRoot, cfgFile = findProjectRoot()
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"paths":         []string{"."},
		"float_epsilon": DefaultEpsilon,
		"ordered":       DefaultOrdered,
		"jobs":          DefaultJobs,
		"verbose":       false,
		"output":        DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Project config file
	configFileUsed = ""
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
			}
			configFileUsed = cfgFile
		} else if flags != nil && flags.Changed("config") {
			return nil, fmt.Errorf("config file %s not found", cfgFile)
		}
	}

	// 3. Environment variables (SQLUNIT_ prefix)
	// Transform: SQLUNIT_FLOAT_EPSILON -> float_epsilon
	if err := k.Load(env.Provider("SQLUNIT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SQLUNIT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "epsilon" {
				return "float_epsilon", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal and resolve paths against the project root
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	for i, p := range cfg.Paths {
		if !filepath.IsAbs(p) {
			cfg.Paths[i] = filepath.Join(projectRoot, p)
		}
	}
	if cfg.Target != nil && cfg.Target.Path != "" && cfg.Target.Path != ":memory:" && !filepath.IsAbs(cfg.Target.Path) {
		cfg.Target.Path = filepath.Join(projectRoot, cfg.Target.Path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
