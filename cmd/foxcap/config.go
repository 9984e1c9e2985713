package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// fileConfig represents the .foxcaprc YAML structure.
type fileConfig struct {
	Host        *string `yaml:"host"`
	Port        *int    `yaml:"port"`
	Transport   *string `yaml:"transport"`
	Path        *string `yaml:"path"`
	Timeout     *string `yaml:"timeout"` // duration string, e.g. "30s"
	Output      *string `yaml:"output"`
	Window      *int    `yaml:"window"`
	LogLevel    *string `yaml:"log_level"`
	MetricsAddr *string `yaml:"metrics_addr"`
	Firefox     *string `yaml:"firefox"`
	Profile     *string `yaml:"profile"`
}

// loadConfigFile loads a .foxcaprc file and applies it to cfg. It checks
// the working directory first, then the home directory, and uses the first
// file found.
func loadConfigFile(cfg *Config) error {
	paths := []string{
		filepath.Join(".", ".foxcaprc"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".foxcaprc"))
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		applyFileConfig(cfg, &fc)
		return nil
	}
	return nil
}

func applyFileConfig(cfg *Config, fc *fileConfig) {
	if fc.Host != nil {
		cfg.Host = *fc.Host
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.Transport != nil {
		cfg.Transport = *fc.Transport
	}
	if fc.Path != nil {
		cfg.Path = *fc.Path
	}
	if fc.Timeout != nil {
		if d, err := time.ParseDuration(*fc.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if fc.Output != nil {
		cfg.Output = *fc.Output
	}
	if fc.Window != nil {
		cfg.Window = *fc.Window
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.MetricsAddr != nil {
		cfg.MetricsAddr = *fc.MetricsAddr
	}
	if fc.Firefox != nil {
		cfg.FirefoxPath = *fc.Firefox
	}
	if fc.Profile != nil {
		cfg.Profile = *fc.Profile
	}
}

// loadDotEnv reads ./.env without touching the process environment. A
// missing or unreadable file yields no values.
func loadDotEnv(cfg *Config) map[string]string {
	values, err := godotenv.Read(".env")
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(cfg.Stderr, "warning: ignoring .env: %v\n", err)
		}
		return nil
	}
	return values
}
