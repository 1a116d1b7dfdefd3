package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all configuration for the mail client
type Config struct {
	Credentials string `json:"credentials"`
	Token       string `json:"token"`

	// Fetch behavior
	FetchWorkers int   `json:"fetch_workers"`
	PageSize     int64 `json:"page_size"`

	// Local storage (profiles, rendered body cache)
	Database string `json:"database"`

	// Optional YAML file mapping folders to search queries
	FoldersFile string `json:"folders_file"`

	// Logging
	LogFile string `json:"log_file"`
}

// DefaultConfig returns the baseline configuration
func DefaultConfig() *Config {
	return &Config{
		FetchWorkers: 10,
		PageSize:     25,
		LogFile:      "",
	}
}

// LoadConfig loads configuration from a JSON file, layering it over the
// defaults. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = 10
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 25
	}

	return cfg, nil
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "courriels", "config.json")
}

// DefaultCredentialPaths returns the default paths for credentials and token
func DefaultCredentialPaths() (string, string) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", ""
	}

	configDir := filepath.Join(home, ".config", "courriels")
	credentialsPath := filepath.Join(configDir, "credentials.json")
	tokenPath := filepath.Join(configDir, "token.json")

	return credentialsPath, tokenPath
}

// DefaultDatabasePath returns the default local database path
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "courriels", "courriels.db")
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
