/*
config.go - Runtime configuration for the CLI and the HTTP server

PRECEDENCE (lowest to highest):
  1. Defaults (Default())
  2. YAML file (Load(path))
  3. Environment (CENSUS_DB_PATH, CENSUS_PORT, CENSUS_LOG_MODE)
  4. Command-line flags (applied by the caller after Load)

VALIDATION:
  Load does not validate. The server calls Validate (store and port); the
  CLI calls ValidateStore, so port settings never break CLI commands.

The store location is always an explicit value in Config; the home
directory default is only the starting value.

EXAMPLE FILE:
  db_path: ./data/census.db
  port: 8080
  log_mode: prod
  allowed_origins:
    - http://localhost:5173
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	EnvDBPath  = "CENSUS_DB_PATH"
	EnvPort    = "CENSUS_PORT"
	EnvLogMode = "CENSUS_LOG_MODE"

	DefaultPort    = 8080
	DefaultLogMode = "dev"
)

// Config holds every tunable of the tracker.
type Config struct {
	DBPath         string   `yaml:"db_path"`
	Port           int      `yaml:"port"`
	LogMode        string   `yaml:"log_mode"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// portErr holds an unparseable CENSUS_PORT until Validate reports it.
	portErr error
}

// DefaultDBPath is ~/.blackroad/census-tracker.db, or a file in the working
// directory when the home directory cannot be resolved.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "census-tracker.db"
	}
	return filepath.Join(home, ".blackroad", "census-tracker.db")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:         DefaultDBPath(),
		Port:           DefaultPort,
		LogMode:        DefaultLogMode,
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
	}
}

// Load reads defaults, then the YAML file at path (skipped when path is
// empty), then environment overrides. The result is not validated: callers
// apply their flags first, then call Validate or ValidateStore.
func Load(path string) (Config, error) {
	return LoadFrom(Default(), path)
}

// LoadFrom is Load starting from base instead of Default().
func LoadFrom(base Config, path string) (Config, error) {
	cfg := base

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			c.portErr = fmt.Errorf("%s: %w", EnvPort, err)
		} else {
			c.SetPort(port)
		}
	}
	if v, ok := lookup(EnvLogMode); ok && v != "" {
		c.LogMode = v
	}
}

// SetPort overrides the port, discarding an unparseable CENSUS_PORT.
func (c *Config) SetPort(port int) {
	c.Port = port
	c.portErr = nil
}

// Validate checks the configuration is usable by the HTTP server.
func (c Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.portErr != nil {
		return c.portErr
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	return nil
}

// ValidateStore checks only the settings the store needs.
func (c Config) ValidateStore() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	return nil
}
