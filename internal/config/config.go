// Package config handles bobbot configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/bobbot/config.yaml, /etc/bobbot/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "bobbot", "config.yaml"))
	}

	paths = append(paths, "/etc/bobbot/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all bobbot configuration. Values that admins change at
// runtime (model endpoint, channels, thought recipients) live in
// settings.json instead; see the settings package.
type Config struct {
	Discord     DiscordConfig  `yaml:"discord"`
	Health      HealthConfig   `yaml:"health"`
	GameData    GameDataConfig `yaml:"game_data"`
	DataDir     string         `yaml:"data_dir"`
	ArchiveDB   string         `yaml:"archive_db"`
	PersonaFile string         `yaml:"persona_file"`
	LogLevel    string         `yaml:"log_level"`
}

// DiscordConfig defines the chat platform connection.
type DiscordConfig struct {
	Token       string `yaml:"token"`
	SuperuserID string `yaml:"superuser_id"`
}

// HealthConfig defines the HTTP health probe server.
type HealthConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`    // Default: 8081
}

// GameDataConfig defines the companion OSRS data API.
type GameDataConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables so tokens can live outside the file.
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Health:    HealthConfig{Port: 8081},
		DataDir:   "data",
		ArchiveDB: filepath.Join("data", "archive.db"),
	}
}
