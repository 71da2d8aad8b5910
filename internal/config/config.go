/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the per-user YAML configuration and applies OVC_*
// environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GeneralConfig holds app-wide switches.
type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
	// DisableTour suppresses the first-run tour auto-start.
	DisableTour bool `yaml:"disable_tour"`
	TourDelayMs int  `yaml:"tour_delay_ms"`
}

type ExportConfig struct {
	// OutputDir is where headless exports land; empty means the user's Downloads folder.
	OutputDir  string `yaml:"output_dir"`
	FontWaitMs int    `yaml:"font_wait_ms"`
}

type TemplateConfig struct {
	// Path to a card template JSON file; empty selects the built-in template.
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the user-editable configuration persisted as YAML in the user
// config directory. Environment variables are read-only overrides.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Export        ExportConfig   `yaml:"export"`
	Template      TemplateConfig `yaml:"template"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TourDelayMs: 1000},
		Export:        ExportConfig{FontWaitMs: 3000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "OVC_CONFIG"
	EnvTelemetryOptIn = "OVC_TELEMETRY_OPT_IN"
	EnvDisableTour    = "OVC_DISABLE_TOUR"
	EnvTourDelayMs    = "OVC_TOUR_DELAY_MS"
	EnvOutputDir      = "OVC_OUTPUT_DIR"
	EnvFontWaitMs     = "OVC_FONT_WAIT_MS"
	EnvTemplate       = "OVC_TEMPLATE"
	EnvLogLevel       = "OVC_LOG_LEVEL"
	EnvLogFormat      = "OVC_LOG_FORMAT"
	EnvLogSource      = "OVC_LOG_SOURCE"
	EnvLogFile        = "OVC_LOG_FILE"
)

// ConfigPath returns the per-user config file path. OVC_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "OverlayCard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "OverlayCard")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "overlaycard")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "overlaycard")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), merges it over the defaults,
// then applies environment overrides. A missing file is not an error; a file
// that exists but does not parse is.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		applyEnvOverrides(&cfg)
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg to the user config path.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans are copied from the file so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.DisableTour = src.General.DisableTour
	if src.General.TourDelayMs > 0 {
		dst.General.TourDelayMs = src.General.TourDelayMs
	}
	if v := strings.TrimSpace(src.Export.OutputDir); v != "" {
		dst.Export.OutputDir = v
	}
	if src.Export.FontWaitMs > 0 {
		dst.Export.FontWaitMs = src.Export.FontWaitMs
	}
	if v := strings.TrimSpace(src.Template.Path); v != "" {
		dst.Template.Path = v
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v, ok := lookup(EnvTelemetryOptIn); ok {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v, ok := lookup(EnvDisableTour); ok {
		cfg.General.DisableTour = truthy(v)
	}
	if v, ok := lookup(EnvTourDelayMs); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.General.TourDelayMs = n
		}
	}
	if v, ok := lookup(EnvOutputDir); ok {
		cfg.Export.OutputDir = v
	}
	if v, ok := lookup(EnvFontWaitMs); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Export.FontWaitMs = n
		}
	}
	if v, ok := lookup(EnvTemplate); ok {
		cfg.Template.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v, ok := lookup(EnvLogSource); ok {
		cfg.Logging.Source = truthy(v)
	}
	if v, ok := lookup(EnvLogFile); ok {
		cfg.Logging.File = v
	}
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// TourDelay returns the auto-start delay of the onboarding tour.
func (g GeneralConfig) TourDelay() time.Duration {
	if g.TourDelayMs <= 0 {
		return time.Duration(Defaults().General.TourDelayMs) * time.Millisecond
	}
	return time.Duration(g.TourDelayMs) * time.Millisecond
}

// FontWait returns the upper bound an export waits for fonts to finish loading.
func (e ExportConfig) FontWait() time.Duration {
	if e.FontWaitMs <= 0 {
		return time.Duration(Defaults().Export.FontWaitMs) * time.Millisecond
	}
	return time.Duration(e.FontWaitMs) * time.Millisecond
}

// ResolveOutputDir returns OutputDir or, when empty, the user's Downloads
// folder, falling back to the working directory.
func (e ExportConfig) ResolveOutputDir() string {
	if e.OutputDir != "" {
		return e.OutputDir
	}
	if home, err := os.UserHomeDir(); err == nil {
		dl := filepath.Join(home, "Downloads")
		if st, err := os.Stat(dl); err == nil && st.IsDir() {
			return dl
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
