package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix namespaces environment overrides: FOODLOG_SERVER_PORT -> server.port.
	EnvPrefix = "FOODLOG_"

	// OpenAIKeyEnv is read when no key was configured under openai.api_key.
	OpenAIKeyEnv = "OPENAI_API_KEY"
)

// Load reads configuration from an optional YAML file, then applies environment
// overrides, then defaults.
//
// Precedence (highest to lowest):
//  1. FOODLOG_* environment variables (FOODLOG_OPENAI_MODEL -> openai.model)
//  2. YAML file at configPath, when configPath is non-empty
//  3. Hardcoded defaults
//
// The API key additionally falls back to OPENAI_API_KEY.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !cfg.OpenAI.APIKey.IsSet() {
		cfg.OpenAI.APIKey = Secret(os.Getenv(OpenAIKeyEnv))
	}

	// An explicit 0 disables throttling and must not be replaced by the default.
	rateLimit, rateLimitSet := cfg.OpenAI.RateLimit, k.Exists("openai.rate_limit")
	applyDefaults(&cfg)
	if rateLimitSet {
		cfg.OpenAI.RateLimit = rateLimit
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps FOODLOG_SECTION_FIELD_NAME to section.field_name.
// Only the first underscore after the prefix separates section from field.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	// Open once and stat the descriptor to avoid a TOCTOU race
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("config path %s is not a regular file", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
