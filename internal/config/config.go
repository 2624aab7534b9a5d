// Package config provides configuration loading for the food log service.
package config

import (
	"errors"
	"fmt"
	"time"

	"mcp-food-log/internal/logging"
)

// Config holds the complete service configuration.
type Config struct {
	Server  ServerConfig   `koanf:"server"`
	Storage StorageConfig  `koanf:"storage"`
	OpenAI  OpenAIConfig   `koanf:"openai"`
	Log     logging.Config `koanf:"log"`
	User    UserConfig     `koanf:"user"`
	Goals   GoalsConfig    `koanf:"goals"`
	Toast   ToastConfig    `koanf:"toast"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig points at the SQLite database file.
type StorageConfig struct {
	DBPath string `koanf:"db_path"`
}

// OpenAIConfig configures the chat completion endpoint used for food parsing.
type OpenAIConfig struct {
	APIKey      Secret        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	Model       string        `koanf:"model"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
	Timeout     time.Duration `koanf:"timeout"`
	RateLimit   float64       `koanf:"rate_limit"` // requests per second
	Burst       int           `koanf:"burst"`
}

// UserConfig identifies the user whose log this instance serves.
type UserConfig struct {
	ID string `koanf:"id"`
}

// GoalsConfig holds daily targets. The calorie goal is derived from the macros.
type GoalsConfig struct {
	Protein float64 `koanf:"protein"`
	Carbs   float64 `koanf:"carbs"`
	Fat     float64 `koanf:"fat"`
	Steps   int     `koanf:"steps"`
}

// ToastConfig controls how long notifications stay visible.
type ToastConfig struct {
	Duration time.Duration `koanf:"duration"`
}

const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8011
	DefaultShutdownTimeout = 10 * time.Second
	DefaultDBPath          = "/data/food-log.db"
	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultModel           = "gpt-4o-mini"
	DefaultTemperature     = 0.3
	DefaultMaxTokens       = 1000
	DefaultTimeout         = 60 * time.Second
	DefaultRateLimit       = 1.0
	DefaultBurst           = 3
	DefaultUserID          = "local"
	DefaultProteinGoal     = 150
	DefaultCarbsGoal       = 200
	DefaultFatGoal         = 65
	DefaultStepsGoal       = 10000
	DefaultToastDuration   = 3000 * time.Millisecond
)

// Default returns a configuration populated entirely with defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero values. Goals are left alone once any of them is set
// so an explicit 0 for a single macro survives.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = DefaultDBPath
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = DefaultBaseURL
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = DefaultModel
	}
	if cfg.OpenAI.Temperature == 0 {
		cfg.OpenAI.Temperature = DefaultTemperature
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = DefaultMaxTokens
	}
	if cfg.OpenAI.Timeout == 0 {
		cfg.OpenAI.Timeout = DefaultTimeout
	}
	if cfg.OpenAI.RateLimit == 0 {
		cfg.OpenAI.RateLimit = DefaultRateLimit
	}
	if cfg.OpenAI.Burst == 0 {
		cfg.OpenAI.Burst = DefaultBurst
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = logging.NewDefaultConfig().Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = logging.NewDefaultConfig().Format
	}
	if cfg.Log.Service == "" {
		cfg.Log.Service = logging.NewDefaultConfig().Service
	}
	if cfg.User.ID == "" {
		cfg.User.ID = DefaultUserID
	}
	if cfg.Goals == (GoalsConfig{}) {
		cfg.Goals = GoalsConfig{
			Protein: DefaultProteinGoal,
			Carbs:   DefaultCarbsGoal,
			Fat:     DefaultFatGoal,
			Steps:   DefaultStepsGoal,
		}
	}
	if cfg.Toast.Duration == 0 {
		cfg.Toast.Duration = DefaultToastDuration
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path is required"))
	}
	if c.OpenAI.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("openai.max_tokens must be >= 0, got %d", c.OpenAI.MaxTokens))
	}
	if c.OpenAI.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("openai.rate_limit must be >= 0, got %v", c.OpenAI.RateLimit))
	}
	if c.Goals.Protein < 0 || c.Goals.Carbs < 0 || c.Goals.Fat < 0 || c.Goals.Steps < 0 {
		errs = append(errs, errors.New("goals must not be negative"))
	}
	if c.Toast.Duration <= 0 {
		errs = append(errs, errors.New("toast.duration must be positive"))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}
