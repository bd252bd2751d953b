package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config is the top-level application configuration.
// It is loaded from ~/.config/cmc/config.yaml (or ./cmc.yaml) and must never
// be committed with real secrets.
type Config struct {
	LLM    LLMConfig    `mapstructure:"llm"`
	Server ServerConfig `mapstructure:"server"`
	AWS    AWSConfig    `mapstructure:"aws"`
	Log    LogConfig    `mapstructure:"log"`

	// PolicyPath points at a cmc.policy.yaml file. Empty means look for
	// cmc.policy.yaml in the working directory.
	PolicyPath string `mapstructure:"policy_path"`
}

// LLMConfig configures the optional deep-analysis backend.
type LLMConfig struct {
	// Provider selects the AI backend: "openai" or "none".
	Provider string `mapstructure:"provider"`

	// APIKey is the secret key for the selected provider. Also read from
	// OPENAI_API_KEY. Never committed to version control.
	APIKey string `mapstructure:"api_key"`

	// BaseURL is the OpenAI-compatible endpoint, without /chat/completions.
	BaseURL string `mapstructure:"base_url"`

	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether analysis should be attempted at all.
func (c LLMConfig) Enabled() bool {
	return c.Provider != ProviderNone && c.APIKey != ""
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// AWSConfig holds AWS-specific defaults used when flags are not provided.
type AWSConfig struct {
	// DefaultProfile is used when no --profile flag is provided.
	DefaultProfile string `mapstructure:"default_profile"`

	// DefaultRegion is used when no region flag or profile region is set.
	DefaultRegion string `mapstructure:"default_region"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`

	// Format is "auto" (console on a terminal, JSON otherwise), "console" or
	// "json".
	Format string `mapstructure:"format"`
}

const (
	ProviderOpenAI = "openai"
	ProviderNone   = "none"

	LogFormatAuto    = "auto"
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   2000,
			Timeout:     60 * time.Second,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: LogFormatAuto},
	}
}

// Validate checks the values a user can get wrong.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderNone:
	default:
		return fmt.Errorf("llm.provider %q is not supported (must be openai or none)", c.LLM.Provider)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens cannot be negative")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature %v is outside [0, 2]", c.LLM.Temperature)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout cannot be negative")
	}
	switch c.Log.Format {
	case LogFormatAuto, LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("log.format %q is invalid (must be auto, console or json)", c.Log.Format)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Loader is the interface for reading Config from disk.
// The default implementation is ViperLoader.
type Loader interface {
	// Load reads, parses, and validates the configuration file.
	Load() (*Config, error)

	// ConfigPath returns the path of the file that was read, or "" when none
	// was found.
	ConfigPath() string
}
