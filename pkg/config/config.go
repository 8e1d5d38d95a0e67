// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads edict host configuration with layered precedence:
// built-in defaults, then an optional YAML file, then EDICT_-prefixed
// environment variables (EDICT_LOGGING_LEVEL=debug sets logging.level).
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jllopis/edict/pkg/errors"
)

type Config struct {
	Plugins   PluginsConfig   `koanf:"plugins"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	History   HistoryConfig   `koanf:"history"`
	Runner    RunnerConfig    `koanf:"runner"`
}

type PluginsConfig struct {
	Paths  []string `koanf:"paths"`
	Strict bool     `koanf:"strict"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text, json
}

type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Exporter    string  `koanf:"exporter"` // stdout, otlp
	Endpoint    string  `koanf:"endpoint"`
	Insecure    bool    `koanf:"insecure"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

type HistoryConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
	Session string `koanf:"session"` // empty = generated per process
}

type RunnerConfig struct {
	Shell  string `koanf:"shell"`
	DryRun bool   `koanf:"dry_run"`
}

// Load builds the configuration. path may be empty to skip the file layer;
// a named file that cannot be read or parsed is a CONFIG_ERROR. Defaults
// and environment overrides always apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("plugins.paths", []string{"~/.config/edict/plugins", "./plugins"})
	k.Set("plugins.strict", false)
	k.Set("logging.level", "info")
	k.Set("logging.format", "text")
	k.Set("telemetry.enabled", false)
	k.Set("telemetry.exporter", "stdout")
	k.Set("telemetry.endpoint", "localhost:4317")
	k.Set("telemetry.insecure", true)
	k.Set("telemetry.sample_ratio", 1.0)
	k.Set("history.enabled", false)
	k.Set("history.path", "~/.local/state/edict/history.db")
	k.Set("history.session", "")
	k.Set("runner.shell", "/bin/sh")
	k.Set("runner.dry_run", true)

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "load config file", err).
				WithContext("path", path)
		}
	}

	// 2. Load from ENV (EDICT_LOGGING_LEVEL -> logging.level)
	if err := k.Load(env.Provider("EDICT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "EDICT_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, errors.Wrap(errors.KindConfig, "load environment", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(errors.KindConfig, "unmarshal config", err)
	}

	for i, p := range cfg.Plugins.Paths {
		cfg.Plugins.Paths[i] = ExpandHome(p)
	}
	cfg.History.Path = ExpandHome(cfg.History.Path)

	return &cfg, nil
}

// DefaultPath returns the well-known config file location, or "" when it
// does not exist. Callers pass the result straight to Load.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "edict", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// ExpandHome rewrites a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
