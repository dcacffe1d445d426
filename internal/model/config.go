package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/dpage/maildroid/internal/logging"
)

// GoogleConfig holds the OAuth client identity used when refreshing
// Gmail access tokens. The interactive consent flow that yields the
// initial token pair happens outside this program.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// DatabasePath locates the SQLite database holding accounts,
	// prompts, and execution history.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// Accounts are the mailboxes available for analysis. They seed the
	// database at startup.
	Accounts []MailAccount `mapstructure:"accounts" yaml:"accounts"`

	// Prompts are the analysis jobs. They seed the database at startup.
	Prompts []PromptDefinition `mapstructure:"prompts" yaml:"prompts"`

	// Provider selects the LLM backend.
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`

	// Google carries the OAuth client identity for token refresh.
	Google GoogleConfig `mapstructure:"google" yaml:"google"`

	// Log controls log level, format, and file rotation.
	Log logging.Config `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/maildroid/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "maildroid", "config.yaml")
}

// DefaultDatabasePath returns the default SQLite database location,
// next to the default configuration file.
func DefaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "maildroid.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		DatabasePath: DefaultDatabasePath(),
		Accounts:     []MailAccount{},
		Prompts:      []PromptDefinition{},
		Provider: ProviderConfig{
			Kind:  ProviderOllama,
			Model: "llama3.2",
		},
		Log: logging.Config{
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("database_path", DefaultDatabasePath())
	v.SetDefault("provider.kind", string(ProviderOllama))
	v.SetDefault("provider.model", "llama3.2")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Accounts and prompts default to enabled unless explicitly
	// disabled. Viper unmarshals missing bools as false, so the raw
	// value is consulted to distinguish explicit false from absent.
	for i := range cfg.Accounts {
		if cfg.Accounts[i].Kind == "" {
			cfg.Accounts[i].Kind = AccountKindGmail
		}
		if !cfg.Accounts[i].Enabled {
			key := fmt.Sprintf("accounts.%d.enabled", i)
			if !v.IsSet(key) {
				cfg.Accounts[i].Enabled = true
			}
		}
	}
	for i := range cfg.Prompts {
		if cfg.Prompts[i].TimeRange == "" {
			cfg.Prompts[i].TimeRange = TimeRange24Hours
		}
		if cfg.Prompts[i].TriggerMode == "" {
			cfg.Prompts[i].TriggerMode = TriggerOnDemand
		}
		if !cfg.Prompts[i].Enabled {
			key := fmt.Sprintf("prompts.%d.enabled", i)
			if !v.IsSet(key) {
				cfg.Prompts[i].Enabled = true
			}
		}
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database_path", cfg.DatabasePath)
	v.Set("accounts", cfg.Accounts)
	v.Set("prompts", cfg.Prompts)
	v.Set("provider", cfg.Provider)
	v.Set("google", cfg.Google)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
