/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Storage backend kinds.
const (
	StorageFile   = "file"
	StoragePebble = "pebble"
	StorageBolt   = "bolt"
	StorageMemory = "memory"
)

// DefaultDevices matches the two EEPROMs fitted to the reference boards.
const DefaultDevices = 2

// Config represents the tlvinfo configuration
type Config struct {
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Storage selects where EEPROM images live
type Storage struct {
	Kind    string `yaml:"kind"`
	DataDir string `yaml:"data_dir"`
	Devices int    `yaml:"devices"`
}

// Server contains REST API configuration
type Server struct {
	Port   int    `yaml:"port"`
	Bind   string `yaml:"bind"`
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: Storage{
			Kind:    StorageFile,
			DataDir: "./data",
			Devices: DefaultDevices,
		},
		Server: Server{
			Port:   8080,
			Bind:   "127.0.0.1",
			APIKey: "auto",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Validate checks that the configuration can be used to open a backend
func (c *Config) Validate() error {
	switch c.Storage.Kind {
	case StorageFile, StoragePebble, StorageBolt:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage kind %q requires data_dir", c.Storage.Kind)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage kind %q", c.Storage.Kind)
	}
	if c.Storage.Devices < 1 {
		return fmt.Errorf("storage devices must be at least 1, got %d", c.Storage.Devices)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	return nil
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file carries the API key.
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a new configuration with a generated API key. The
// options adjust the configuration before it is validated and saved.
func BootstrapConfig(configPath string, dataDir string, opts ...func(*Config)) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.Storage.DataDir = dataDir
	}
	for _, opt := range opts {
		opt(config)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./tlvinfo.yaml"
	}

	// ~/.config/tlvinfo/config.yaml
	configDir := filepath.Join(homeDir, ".config", "tlvinfo")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
