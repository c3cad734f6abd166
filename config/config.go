package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// OpenAIConfig represents configuration for the OpenAI generation provider.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`      // OpenAI API key
	BaseURL      string `yaml:"base_url,omitempty"`     // Custom base URL (default: official API)
	Model        string `yaml:"model,omitempty"`        // Default model name
	Organization string `yaml:"organization,omitempty"` // Organization ID
}

// AnthropicConfig represents configuration for the Anthropic generation provider.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key,omitempty"`    // Anthropic API key
	Model     string `yaml:"model,omitempty"`      // Model name (default: claude-3-5-haiku-latest)
	MaxTokens int    `yaml:"max_tokens,omitempty"` // Max completion tokens per call
}

// OllamaConfig represents configuration for a local Ollama generation provider.
type OllamaConfig struct {
	Host  string `yaml:"host,omitempty"`  // Ollama host (default: "http://localhost:11434")
	Model string `yaml:"model,omitempty"` // Model name (default: llama3.2:3b)
}

// AnalysisConfig tunes the analytics core. The defaults match the reference
// calibration; override only when measurements say otherwise.
type AnalysisConfig struct {
	LookbackDays   int     `yaml:"lookback_days,omitempty"`   // Entry window for theme/arc computation (default: 90)
	TrendDelta     float64 `yaml:"trend_delta,omitempty"`     // Positive-fraction delta for improving/declining (default: 0.2)
	SwingRate      float64 `yaml:"swing_rate,omitempty"`      // Adjacent-flip rate above which an arc is volatile (default: 0.3)
	ExcerptLength  int     `yaml:"excerpt_length,omitempty"`  // Max characters per entry excerpt in theme prompts (default: 200)
	MinTaggedMoods int     `yaml:"min_tagged_moods,omitempty"` // Minimum tagged entries before an arc exists (default: 3)
}

// BatchConfig controls the periodic insight job.
type BatchConfig struct {
	Disabled bool    `yaml:"disabled,omitempty"` // Disable the batch insight job
	Schedule string  `yaml:"schedule,omitempty"` // Cron spec (default: "0 3 * * *")
	RatePerMinute float64 `yaml:"rate_per_minute,omitempty"` // Users processed per minute (default: 6)
}

// ServerConfig is the top-level configuration for the emberd daemon.
type ServerConfig struct {
	Server struct {
		Addr string `yaml:"addr,omitempty"` // HTTP listen address (default: localhost:8787)
	} `yaml:"server,omitempty"`

	// Generation providers, tried in the order listed in Providers.
	Providers []string        `yaml:"providers,omitempty"`
	OpenAI    OpenAIConfig    `yaml:"openai,omitempty"`
	Anthropic AnthropicConfig `yaml:"anthropic,omitempty"`
	Ollama    OllamaConfig    `yaml:"ollama,omitempty"`

	Analysis AnalysisConfig `yaml:"analysis,omitempty"`
	Batch    BatchConfig    `yaml:"batch,omitempty"`
}

// DefaultServerConfig returns the built-in defaults. File values are merged
// on top of these, so a partial config file is always valid.
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{
		Providers: []string{"openai", "ollama"},
		Anthropic: AnthropicConfig{
			Model:     "claude-3-5-haiku-latest",
			MaxTokens: 1024,
		},
		Ollama: OllamaConfig{
			Host:  "http://localhost:11434",
			Model: "llama3.2:3b",
		},
		Analysis: AnalysisConfig{
			LookbackDays:   90,
			TrendDelta:     0.2,
			SwingRate:      0.3,
			ExcerptLength:  200,
			MinTaggedMoods: 3,
		},
		Batch: BatchConfig{
			Schedule:      "0 3 * * *",
			RatePerMinute: 6,
		},
	}
	cfg.Server.Addr = "localhost:8787"
	return cfg
}

// GetServerConfigPath returns the default server config file path.
// Can be overridden via EMBER_CONFIG_PATH environment variable.
func GetServerConfigPath() string {
	if envPath := os.Getenv("EMBER_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.emberd/config.yaml"
	}
	return filepath.Join(homeDir, ".emberd", "config.yaml")
}

// LoadServerConfig reads and parses the YAML config at path, merging file
// values over the built-in defaults. A missing file is not an error; the
// defaults are returned unchanged.
func LoadServerConfig(path string) (*ServerConfig, error) {
	defaults := DefaultServerConfig()

	expandedPath := expandPath(path)
	data, err := os.ReadFile(expandedPath) //nolint:gosec // G304: user-specified config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", expandedPath, err)
	}

	var fileConfig ServerConfig
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", expandedPath, err)
	}

	// Merge file values onto defaults (file takes precedence).
	if err := mergo.Merge(defaults, fileConfig, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	applyEnvOverrides(defaults)
	return defaults, nil
}

// SaveServerConfig saves the server configuration to the specified path.
func SaveServerConfig(cfg *ServerConfig, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvOverrides layers credential env vars over whatever the file set.
// Only secrets are overridable this way; tuning stays in the file.
func applyEnvOverrides(cfg *ServerConfig) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Ollama.Host = v
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
