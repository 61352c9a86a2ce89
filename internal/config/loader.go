// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pkepg/epgstitch/internal/epg"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every environment key the loader looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file parse -> env -> derive -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version
	applyDerived(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return decodeStrict(data, cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnvConfig applies EPGSTITCH_* overrides.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvPrefix+"DATA_DIR", cfg.DataDir)
	cfg.LogLevel = l.envString(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile.Path = l.envString(EnvPrefix+"LOG_FILE", cfg.LogFile.Path)
	cfg.Timezone = l.envString(EnvPrefix+"TIMEZONE", cfg.Timezone)
	cfg.Days = l.envInt(EnvPrefix+"DAYS", cfg.Days)
	cfg.IDSuffix = l.envString(EnvPrefix+"ID_SUFFIX", cfg.IDSuffix)
	cfg.Concurrency = l.envInt(EnvPrefix+"CONCURRENCY", cfg.Concurrency)
	cfg.Gzip = l.envBool(EnvPrefix+"GZIP", cfg.Gzip)

	cfg.HTTP.Timeout = l.envDuration(EnvPrefix+"HTTP_TIMEOUT", cfg.HTTP.Timeout)
	cfg.HTTP.Retries = l.envInt(EnvPrefix+"HTTP_RETRIES", cfg.HTTP.Retries)
	cfg.HTTP.RatePerHost = l.envFloat(EnvPrefix+"HTTP_RATE_PER_HOST", cfg.HTTP.RatePerHost)
	cfg.HTTP.UserAgent = l.envString(EnvPrefix+"USER_AGENT", cfg.HTTP.UserAgent)

	cfg.Fallback.Days = l.envInt(EnvPrefix+"FALLBACK_DAYS", cfg.Fallback.Days)
	cfg.Fallback.Slot = l.envDuration(EnvPrefix+"FALLBACK_SLOT", cfg.Fallback.Slot)

	cfg.Server.Listen = l.envString(EnvPrefix+"LISTEN", cfg.Server.Listen)
	cfg.Server.RateLimit = l.envInt(EnvPrefix+"RATE_LIMIT", cfg.Server.RateLimit)
	cfg.Daemon.Schedule = l.envString(EnvPrefix+"SCHEDULE", cfg.Daemon.Schedule)
	cfg.Daemon.LockFile = l.envString(EnvPrefix+"LOCK_FILE", cfg.Daemon.LockFile)
}

// applyDerived fills per-channel and per-guide defaults that depend on
// other fields.
func applyDerived(cfg *AppConfig) {
	for i := range cfg.Channels {
		ch := &cfg.Channels[i]
		ch.Kind = strings.ToLower(strings.TrimSpace(ch.Kind))
		if ch.Kind == "" {
			ch.Kind = "generic"
		}
		if ch.ID == "" && ch.Name != "" {
			ch.ID = epg.StableID(ch.Name, cfg.IDSuffix)
		}
		if ch.Name == "" {
			ch.Name = ch.ID
		}
		if len(ch.Outputs) == 0 && ch.Name != "" {
			ch.Outputs = []string{"channels/" + epg.FileSlug(ch.Name) + ".xml"}
		}
		if ch.Reference != nil && ch.Reference.Threshold == 0 {
			ch.Reference.Threshold = DefaultThreshold
		}
	}
	if len(cfg.Guides) == 0 {
		cfg.Guides = []GuideConfig{{Name: "epg", Inputs: []string{"channels"}}}
	}
	for i := range cfg.Guides {
		g := &cfg.Guides[i]
		if g.Pattern == "" {
			g.Pattern = DefaultPattern
		}
		if g.Output == "" {
			g.Output = g.Name + ".xml"
		}
	}
}
