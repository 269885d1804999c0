package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spycats/internal/logging"
)

const FileName = "spycat.yml"

// Config models spycat.yml.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		BasePath    string   `yaml:"base_path"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Database struct {
		Workspace     string `yaml:"workspace"`
		BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
	} `yaml:"database"`
	Breed BreedConfig `yaml:"breed"`
	Log   struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

type BreedConfig struct {
	URL      string        `yaml:"url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// Static, when set, replaces the remote catalog with a fixed list.
	Static []string `yaml:"static,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "" {
			return fmt.Errorf("config.server.cors_origins contains empty origin")
		}
	}
	if c.Database.BusyTimeoutMS < 0 {
		return fmt.Errorf("config.database.busy_timeout_ms must not be negative")
	}
	if len(c.Breed.Static) == 0 && strings.TrimSpace(c.Breed.URL) == "" {
		return fmt.Errorf("config.breed.url is required unless breed.static is set")
	}
	if c.Breed.Timeout <= 0 {
		return fmt.Errorf("config.breed.timeout must be positive")
	}
	if c.Breed.CacheTTL < 0 {
		return fmt.Errorf("config.breed.cache_ttl must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config.log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses raw YAML over the defaults and validates the result.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v1
  cors_origins:
    - http://localhost:3000

database:
  workspace: .
  busy_timeout_ms: 5000

breed:
  url: https://api.thecatapi.com/v1/breeds
  timeout: 5s
  cache_ttl: 1h

log:
  level: info
  format: text
`
