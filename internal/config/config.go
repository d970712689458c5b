// Package config loads Holocron configuration from YAML files and
// environment variables. Precedence: defaults < user config
// (~/.config/holocron/config.yaml) < project config (.holocron.yaml) <
// HOLOCRON_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the per-repository config file.
const ProjectConfigName = ".holocron.yaml"

// Config is the complete Holocron configuration.
type Config struct {
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	// Provider is one of: noop, ollama, transformers.
	Provider string `yaml:"provider"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
}

// ChunkerConfig selects the chunking strategy.
type ChunkerConfig struct {
	// Mode is "ast" (language-aware) or "text" (sliding window).
	Mode string `yaml:"mode"`
}

// StorageConfig locates the index database.
type StorageConfig struct {
	// PersistPath is the database file. Empty selects
	// ~/.holocron/index.db.
	PersistPath string `yaml:"persist_path"`
}

// ServerConfig configures the MCP server and logging.
type ServerConfig struct {
	// LogLevel affects only stderr and log-file verbosity.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Embeddings: EmbeddingsConfig{Provider: "noop"},
		Chunker:    ChunkerConfig{Mode: "ast"},
		Server:     ServerConfig{LogLevel: "info"},
	}
}

// Load builds the effective configuration for a project root.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()

	if userPath := userConfigPath(); userPath != "" {
		if err := mergeFile(cfg, userPath); err != nil {
			return nil, err
		}
	}
	if projectRoot != "" {
		if err := mergeFile(cfg, filepath.Join(projectRoot, ProjectConfigName)); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can act on.
func (c *Config) Validate() error {
	switch c.Embeddings.Provider {
	case "", "noop", "ollama", "transformers":
	default:
		return fmt.Errorf("invalid embeddings.provider %q (expected noop, ollama, or transformers)", c.Embeddings.Provider)
	}
	switch c.Chunker.Mode {
	case "", "ast", "text":
	default:
		return fmt.Errorf("invalid chunker.mode %q (expected ast or text)", c.Chunker.Mode)
	}
	return nil
}

// userConfigPath returns ~/.config/holocron/config.yaml or "".
func userConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "holocron", "config.yaml")
}

// mergeFile overlays a YAML file onto cfg. A missing file is not an error.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays HOLOCRON_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("HOLOCRON_EMBED_PROVIDER"); v != "" {
		cfg.Embeddings.Provider = v
	}
	if v := os.Getenv("HOLOCRON_EMBED_BASE_URL"); v != "" {
		cfg.Embeddings.BaseURL = v
	}
	if v := os.Getenv("HOLOCRON_EMBED_MODEL"); v != "" {
		cfg.Embeddings.Model = v
	}
	if v := os.Getenv("HOLOCRON_CHUNKER_MODE"); v != "" {
		cfg.Chunker.Mode = v
	}
	if v := os.Getenv("HOLOCRON_PERSIST_PATH"); v != "" {
		cfg.Storage.PersistPath = v
	}
	if v := os.Getenv("HOLOCRON_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
}
