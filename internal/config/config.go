// Package config loads process settings from an optional TOML file with
// environment variable overrides.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Transport names accepted by the server.
const (
	TransportStandardStream = "standard-stream"
	TransportStreamingHTTP  = "streaming-http"
)

// Config is the only persisted config file schema.
type Config struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	Host      string `toml:"host"`
	Port      string `toml:"port"`
	Transport string `toml:"transport"`
	Source    string `toml:"-"`
}

// Default returns the built-in settings used when neither file nor
// environment provides a value.
func Default() Config {
	return Config{
		BaseURL:   "https://pokeapi.co/api/v2",
		Host:      "0.0.0.0",
		Port:      "8080",
		Transport: TransportStreamingHTTP,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".poke-mcp", "config.toml")
}

// Load reads the config file at path (DefaultPath when empty), then applies
// environment overrides. A missing file is not an error: defaults plus
// environment apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv("POKE_API_SERVER")); env != "" {
		cfg.BaseURL = env
	}
	if env := strings.TrimSpace(os.Getenv("POKE_API_KEY")); env != "" {
		cfg.APIKey = env
	}
	if env := strings.TrimSpace(os.Getenv("MCP_HOST")); env != "" {
		cfg.Host = env
	}
	if env := strings.TrimSpace(os.Getenv("MCP_PORT")); env != "" {
		cfg.Port = env
	}
	if env := strings.TrimSpace(os.Getenv("MCP_TRANSPORT")); env != "" {
		cfg.Transport = env
	}
}
