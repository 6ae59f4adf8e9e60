// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "callflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFrom(t *testing.T) {
	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := writeConfig(t, `
tenant:
  base_url: https://tenant.example.test/v1.0
  token_env: MY_TOKEN
output:
  theme: dark
`)
		cfg, err := LoadFrom(path)
		require.NoError(t, err)

		assert.Equal(t, "https://tenant.example.test/v1.0", cfg.Tenant.BaseURL)
		assert.Equal(t, "MY_TOKEN", cfg.Tenant.TokenEnv)
		assert.Equal(t, "dark", cfg.Output.Theme)
		assert.Equal(t, "TB", cfg.Output.Direction, "unset fields keep defaults")
		assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("invalid theme rejected", func(t *testing.T) {
		path := writeConfig(t, `
tenant:
  base_url: https://tenant.example.test/v1.0
  token_env: MY_TOKEN
output:
  theme: solarized
`)
		_, err := LoadFrom(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("missing token env rejected", func(t *testing.T) {
		path := writeConfig(t, `
tenant:
  base_url: https://tenant.example.test/v1.0
  token_env: ""
`)
		_, err := LoadFrom(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}

func TestDefaultConfigRoundTrip(t *testing.T) {
	// The file written on first run must load and validate.
	data, err := yaml.Marshal(DefaultConfig())
	require.NoError(t, err)

	path := writeConfig(t, string(data))
	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestCachePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Path = "/var/cache/callflow"
	assert.Equal(t, "/var/cache/callflow", cfg.CachePath())

	cfg.Cache.Path = ""
	assert.Contains(t, cfg.CachePath(), ".callflow")
}
