package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CMC_LLM_MODEL.
const EnvPrefix = "CMC"

// ViperLoader loads configuration with the following precedence (lowest to
// highest):
//  1. Default values
//  2. Config file
//  3. Environment variables (CMC_*, OPENAI_API_KEY for the key)
//  4. CLI flags (handled by caller)
//
// A .env file, when present, is loaded into the environment first. Variables
// already set in the environment win over the file.
type ViperLoader struct {
	configFile string
	envFile    string
	searchDirs []string
	used       string
}

// LoaderOption configures a ViperLoader.
type LoaderOption func(*ViperLoader)

// WithConfigFile reads exactly path instead of searching.
func WithConfigFile(path string) LoaderOption {
	return func(l *ViperLoader) { l.configFile = path }
}

// WithEnvFile overrides the .env file location.
func WithEnvFile(path string) LoaderOption {
	return func(l *ViperLoader) { l.envFile = path }
}

// WithSearchDirs replaces the directories searched for config.yaml / cmc.yaml.
func WithSearchDirs(dirs ...string) LoaderOption {
	return func(l *ViperLoader) { l.searchDirs = dirs }
}

func NewLoader(opts ...LoaderOption) *ViperLoader {
	l := &ViperLoader{envFile: ".env", searchDirs: defaultSearchDirs()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func defaultSearchDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "cmc"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "cmc"))
	}
	return append(dirs, ".")
}

// ConfigPath implements Loader.
func (l *ViperLoader) ConfigPath() string { return l.used }

// Load implements Loader.
func (l *ViperLoader) Load() (*Config, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", l.envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	path, err := l.resolve()
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		l.used = path
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// resolve returns the explicit config file, which must exist, or the first
// config.yaml / cmc.yaml found in the search directories.
func (l *ViperLoader) resolve() (string, error) {
	if l.configFile != "" {
		if _, err := os.Stat(l.configFile); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return l.configFile, nil
	}
	for _, dir := range l.searchDirs {
		name := "config.yaml"
		if dir == "." {
			name = "cmc.yaml"
		}
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("aws.default_profile", d.AWS.DefaultProfile)
	v.SetDefault("aws.default_region", d.AWS.DefaultRegion)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("policy_path", d.PolicyPath)
}

// SampleConfig is a commented config.yaml with every supported key.
func SampleConfig() string {
	return `# cmc configuration
# Save as ~/.config/cmc/config.yaml or ./cmc.yaml

llm:
  provider: openai          # openai or none
  # api_key: sk-...         # prefer OPENAI_API_KEY or CMC_LLM_API_KEY
  base_url: https://api.openai.com/v1
  model: gpt-4o-mini
  temperature: 0.3
  max_tokens: 2000
  timeout: 60s

server:
  addr: ":8080"

aws:
  default_profile: ""
  default_region: ""

# policy_path: ./cmc.policy.yaml

log:
  level: info               # trace, debug, info, warn, error
  format: auto              # auto, console or json
`
}
