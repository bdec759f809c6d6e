// Package config loads stmc settings from
// $XDG_CONFIG_HOME/stmc/config.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL  = "http://localhost:5000/api/tasks"
	DefaultAuthURL = "http://localhost:5000/api/auth"
)

type Config struct {
	APIURL         string        `yaml:"api_url"`
	AuthURL        string        `yaml:"auth_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // 0 means no timeout
	LogLevel       string        `yaml:"log_level"`
	LogFile        string        `yaml:"log_file"`
	DataDir        string        `yaml:"data_dir"`
}

func (c *Config) ApplyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ApplyEnv overrides file values with STMC_API_URL, STMC_AUTH_URL,
// STMC_LOG_LEVEL and DEBUG.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("STMC_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := getenv("STMC_AUTH_URL"); v != "" {
		c.AuthURL = v
	}
	if v := getenv("STMC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if dbg, err := strconv.ParseBool(getenv("DEBUG")); err == nil && dbg {
		c.LogLevel = "debug"
	}
}

func (c *Config) Validate() error {
	if c.RequestTimeout < 0 {
		return errors.New("request_timeout must not be negative")
	}
	for name, u := range map[string]string{"api_url": c.APIURL, "auth_url": c.AuthURL} {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("%s %q is not an http(s) URL", name, u)
		}
	}
	return nil
}

// Path returns the config file location
func Path() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "stmc", "config.yaml"), nil
}

// Load reads path (a missing file is not an error), then applies defaults
// and environment overrides.
func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	c.ApplyEnv(os.Getenv)
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}
