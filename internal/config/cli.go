package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir returns the default CLI config directory (~/.modlicense).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".modlicense"), nil
}

// DefaultConfigPath returns the default CLI config file path (~/.modlicense/config.yml).
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// CLIConfig holds the operator CLI's configuration.
type CLIConfig struct {
	DatabaseURL string `yaml:"database_url,omitempty"`
	AdminID     string `yaml:"admin_id,omitempty"`
}

// Validate checks that the configuration has required fields for operation.
func (c *CLIConfig) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if c.AdminID == "" {
		return errors.New("admin_id is required")
	}
	return nil
}

// ApplyEnv overrides file values with DATABASE_URL and MODLICENSE_ADMIN_ID when set.
func (c *CLIConfig) ApplyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("MODLICENSE_ADMIN_ID"); v != "" {
		c.AdminID = v
	}
}

// LoadCLIConfig reads the configuration from the given path.
// If the file does not exist, an empty config is returned.
func LoadCLIConfig(path string) (*CLIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &CLIConfig{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to the given path, creating directories as needed.
func (c *CLIConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// The file holds database credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}
