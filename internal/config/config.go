// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the callflow configuration file.
//
// The config lives at ~/.callflow/callflow.yaml and is created with
// defaults on first run. It is loaded once into the Global singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// TenantConfig selects the tenant API endpoint and credentials.
type TenantConfig struct {
	// BaseURL is the voice-configuration API root.
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// TokenEnv names the environment variable holding the bearer
	// token. The token itself never lives in the config file.
	TokenEnv string `yaml:"token_env" validate:"required"`

	// RequestsPerSecond throttles API calls; zero uses the client
	// default.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
}

// OutputConfig controls diagram rendering.
type OutputConfig struct {
	// Direction is the flowchart orientation, TB or LR.
	Direction string `yaml:"direction" validate:"oneof=TB LR"`

	// Theme selects the palette: default or dark.
	Theme string `yaml:"theme" validate:"oneof=default dark"`

	// ThemeOverrides replaces individual classDef styles.
	ThemeOverrides map[string]string `yaml:"theme_overrides,omitempty"`

	// MarkdownFence wraps diagrams in a ```mermaid fence.
	MarkdownFence bool `yaml:"markdown_fence"`

	// ShowGreetingText includes literal TTS text in greeting labels.
	ShowGreetingText bool `yaml:"show_greeting_text"`

	// ShowAudioFileNames includes upload names of audio greetings.
	ShowAudioFileNames bool `yaml:"show_audio_file_names"`

	// TruncateLabelsAt limits greeting label length; zero keeps the
	// built-in limit.
	TruncateLabelsAt int `yaml:"truncate_labels_at" validate:"gte=0"`

	// ExportAssets writes greeting text and audio pointers next to the
	// diagram.
	ExportAssets bool `yaml:"export_assets"`

	// AssetDir is where exported assets land; empty means
	// "<output dir>/assets".
	AssetDir string `yaml:"asset_dir,omitempty"`
}

// CacheConfig controls the local snapshot cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`

	// TTL is the snapshot lifetime.
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Dir enables file logging into the given directory.
	Dir string `yaml:"dir,omitempty"`
}

// ServeConfig controls the HTML preview server.
type ServeConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Config is the full callflow configuration.
type Config struct {
	Tenant  TenantConfig  `yaml:"tenant"`
	Output  OutputConfig  `yaml:"output"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Serve   ServeConfig   `yaml:"serve"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		Tenant: TenantConfig{
			BaseURL:  "https://graph.example.com/v1.0",
			TokenEnv: "CALLFLOW_TOKEN",
		},
		Output: OutputConfig{
			Direction:          "TB",
			Theme:              "default",
			ShowGreetingText:   true,
			ShowAudioFileNames: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Serve: ServeConfig{
			Addr: "127.0.0.1:8734",
		},
	}
}

var (
	// Global is the singleton configuration instance.
	Global Config
	once   sync.Once

	validate = validator.New()
)

// Load reads the config into Global, creating the default file on
// first run. Subsequent calls are no-ops.
func Load() error {
	var err error
	once.Do(func() {
		err = loadInternal()
	})
	return err
}

func loadInternal() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not find the user's home directory: %w", err)
	}
	configPath := filepath.Join(home, ".callflow", "callflow.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf(" First run detected, creating the config at %s\n", configPath)
		if err := createDefault(configPath); err != nil {
			return err
		}
	}
	cfg, err := LoadFrom(configPath)
	if err != nil {
		return err
	}
	Global = *cfg
	return nil
}

// LoadFrom reads and validates a config file at an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse the config file: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return &cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	defaultCfg := DefaultConfig()
	data, err := yaml.Marshal(defaultCfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CachePath resolves the cache directory, defaulting under the config
// directory.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".callflow-cache"
	}
	return filepath.Join(home, ".callflow", "cache")
}
