package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the global myshell configuration.
type Config struct {
	History  HistoryConfig  `yaml:"history"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Prompt   PromptConfig   `yaml:"prompt"`
	Audit    AuditConfig    `yaml:"audit"`
	RC       RCConfig       `yaml:"rc"`
}

// HistoryConfig controls the history ring and its file.
type HistoryConfig struct {
	Capacity int    `yaml:"capacity" validate:"gte=1,lte=1000"`
	File     string `yaml:"file"` // empty disables persistence
}

// JobsConfig bounds the background job table.
type JobsConfig struct {
	Capacity int `yaml:"capacity" validate:"gte=1,lte=4096"`
}

// PipelineConfig bounds pipeline depth.
type PipelineConfig struct {
	MaxStages int `yaml:"max_stages" validate:"gte=1,lte=256"`
}

// PromptConfig controls prompt rendering.
type PromptConfig struct {
	Color bool `yaml:"color"`
}

// AuditConfig controls audit log settings.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// RCConfig names the startup script.
type RCConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		History: HistoryConfig{
			Capacity: 10,
			File:     filepath.Join(home, ".local", "share", "myshell", "history"),
		},
		Jobs:     JobsConfig{Capacity: 64},
		Pipeline: PipelineConfig{MaxStages: 10},
		Prompt:   PromptConfig{Color: true},
		Audit: AuditConfig{
			Path: filepath.Join(home, ".local", "share", "myshell", "audit.jsonl"),
		},
		RC: RCConfig{
			Path: filepath.Join(home, ".config", "myshell", "rc.star"),
		},
	}
}

// Load reads the config from the standard location (~/.config/myshell/config.yaml).
// If the file doesn't exist, returns the default config.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	path := filepath.Join(home, ".config", "myshell", "config.yaml")
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes YAML over the defaults, expands ~ in paths and validates
// the result. name is used in error messages.
func Parse(data []byte, name string) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}

	cfg.History.File = expandHome(cfg.History.File)
	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	cfg.RC.Path = expandHome(cfg.RC.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", name, err)
	}
	return cfg, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
	return validate.Struct(c)
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, path[1:])
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "myshell", "config.yaml")
}
