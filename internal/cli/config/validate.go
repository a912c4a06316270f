package config

import (
	"fmt"
	"os"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Ordered {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("ordered must be one of auto, always, never (got %q)", c.Ordered)
	}
	if c.FloatEpsilon < 0 {
		return fmt.Errorf("float_epsilon must not be negative (got %v)", c.FloatEpsilon)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative (got %d)", c.Jobs)
	}
	if len(c.Paths) == 0 {
		return fmt.Errorf("at least one search path is required")
	}
	return nil
}

// ValidatePaths checks that every configured search path exists.
// Kept separate from Validate so help commands work without a project.
func (c *Config) ValidatePaths() error {
	for _, p := range c.Paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s\nHint: Create it or adjust paths in sqlunit.yaml", p)
		}
	}
	return nil
}
