package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level   string `koanf:"level"`
	Format  string `koanf:"format"`
	Service string `koanf:"service"`
}

// NewDefaultConfig returns JSON output at info level.
func NewDefaultConfig() *Config {
	return &Config{
		Level:   "info",
		Format:  "json",
		Service: "food-log",
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level %q: %w", c.Level, err)
	}
	return nil
}
