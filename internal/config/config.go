package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigDirPerm is the permission for the config directory (0700 = rwx------)
	ConfigDirPerm os.FileMode = 0700
	// ConfigFilePerm is the permission for the config file (0600 = rw-------)
	// Restrictive permissions protect the API keys from being read by other users
	ConfigFilePerm os.FileMode = 0600

	dirName = ".hivecouncil"
)

// Config is the process configuration. It is loaded once at startup and
// handed to the provider registry; nothing reads it after that.
type Config struct {
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	GoogleAPIKey    string `mapstructure:"google_api_key"`
	GrokAPIKey      string `mapstructure:"grok_api_key"`

	OpenAIModel    string `mapstructure:"openai_model"`
	AnthropicModel string `mapstructure:"anthropic_model"`
	GoogleModel    string `mapstructure:"google_model"`
	GrokModel      string `mapstructure:"grok_model"`
	OllamaModel    string `mapstructure:"ollama_model"`
	OllamaBaseURL  string `mapstructure:"ollama_base_url"`

	DefaultTemperature    float64 `mapstructure:"default_temperature"`
	DefaultMaxTokens      int     `mapstructure:"default_max_tokens"`
	RateLimitEnabled      bool    `mapstructure:"rate_limit_enabled"`
	RateLimitRequests     int     `mapstructure:"rate_limit_requests"`
	RateLimitWindow       int     `mapstructure:"rate_limit_window_seconds"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds"`
	LogLevel              string  `mapstructure:"log_level"`
	OTELExporter          string  `mapstructure:"otel_exporter"`
}

// APIKey returns the credential configured for a backend, or "" if none.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "google":
		return c.GoogleAPIKey
	case "grok":
		return c.GrokAPIKey
	}
	return ""
}

// Model returns the model override for a backend, or "" to use its default.
func (c *Config) Model(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIModel
	case "anthropic":
		return c.AnthropicModel
	case "google":
		return c.GoogleModel
	case "grok":
		return c.GrokModel
	case "ollama":
		return c.OllamaModel
	}
	return ""
}

// Dir returns the directory holding config.yaml.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

func setDefaults() {
	for _, key := range []string{
		"openai_api_key", "anthropic_api_key", "google_api_key", "grok_api_key",
		"openai_model", "anthropic_model", "google_model", "grok_model", "ollama_model",
	} {
		// Registering the key lets AutomaticEnv resolve it during Unmarshal.
		viper.SetDefault(key, "")
	}
	viper.SetDefault("ollama_base_url", "")
	viper.SetDefault("default_temperature", 0.7)
	viper.SetDefault("default_max_tokens", 2000)
	viper.SetDefault("rate_limit_enabled", true)
	viper.SetDefault("rate_limit_requests", 60)       // 60 requests
	viper.SetDefault("rate_limit_window_seconds", 60) // per minute
	viper.SetDefault("request_timeout_seconds", 0)    // no deadline unless asked for
	viper.SetDefault("log_level", "info")
	viper.SetDefault("otel_exporter", "none")
}

// Load reads configuration from the environment (after loading a .env file
// from the working directory, if present), then ~/.hivecouncil/config.yaml,
// then built-in defaults.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	configPath, err := Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := os.MkdirAll(configPath, ConfigDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.trim()

	return &config, nil
}

func (c *Config) trim() {
	for _, s := range []*string{
		&c.OpenAIAPIKey, &c.AnthropicAPIKey, &c.GoogleAPIKey, &c.GrokAPIKey,
		&c.OpenAIModel, &c.AnthropicModel, &c.GoogleModel, &c.GrokModel, &c.OllamaModel,
		&c.OllamaBaseURL,
	} {
		*s = strings.TrimSpace(*s)
	}
}

// Save writes cfg to ~/.hivecouncil/config.yaml.
func Save(cfg *Config) error {
	configPath, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configPath, ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set("openai_api_key", cfg.OpenAIAPIKey)
	viper.Set("anthropic_api_key", cfg.AnthropicAPIKey)
	viper.Set("google_api_key", cfg.GoogleAPIKey)
	viper.Set("grok_api_key", cfg.GrokAPIKey)
	viper.Set("openai_model", cfg.OpenAIModel)
	viper.Set("anthropic_model", cfg.AnthropicModel)
	viper.Set("google_model", cfg.GoogleModel)
	viper.Set("grok_model", cfg.GrokModel)
	viper.Set("ollama_model", cfg.OllamaModel)
	viper.Set("ollama_base_url", cfg.OllamaBaseURL)
	viper.Set("default_temperature", cfg.DefaultTemperature)
	viper.Set("default_max_tokens", cfg.DefaultMaxTokens)
	viper.Set("rate_limit_enabled", cfg.RateLimitEnabled)
	viper.Set("rate_limit_requests", cfg.RateLimitRequests)
	viper.Set("rate_limit_window_seconds", cfg.RateLimitWindow)
	viper.Set("request_timeout_seconds", cfg.RequestTimeoutSeconds)
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("otel_exporter", cfg.OTELExporter)

	return writeConfigFile(filepath.Join(configPath, "config.yaml"))
}

// Set stores a single key in the config file.
func Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("config key cannot be empty")
	}

	key = strings.TrimSpace(key)
	if strings.ContainsAny(key, " \t\n\r") {
		return fmt.Errorf("config key contains invalid characters")
	}

	configPath, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configPath, ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)

	// Missing file is fine, it is created below.
	_ = viper.ReadInConfig()

	viper.Set(key, value)

	return writeConfigFile(filepath.Join(configPath, "config.yaml"))
}

// Get returns a single value from the config file or environment.
func Get(key string) interface{} {
	if key == "" {
		return nil
	}

	configPath, err := Dir()
	if err != nil {
		return nil
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
	return viper.Get(key)
}

func writeConfigFile(configFile string) error {
	if err := viper.WriteConfigAs(configFile); err != nil {
		if err := viper.SafeWriteConfigAs(configFile); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	if err := os.Chmod(configFile, ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	return nil
}
