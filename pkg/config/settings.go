// Package config loads the orchestrator's YAML settings file (§6) and
// seeds process environment variables from a .env file, the way the
// teacher's CLI entry points do before touching anything else.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ParameterSetting is one {value, description} sampling knob entry.
type ParameterSetting struct {
	Value       float64 `yaml:"value"`
	Description string  `yaml:"description"`
}

// Parameters holds the sampling knobs §6 lists under `parameters.*`.
type Parameters struct {
	Temperature ParameterSetting `yaml:"temperature"`
	TopP        ParameterSetting `yaml:"top_p"`
	TopK        ParameterSetting `yaml:"top_k"`
}

// ModelSettings is the nested `model` block from §6.
type ModelSettings struct {
	Name                 string `yaml:"name"`
	ContextLimit         int    `yaml:"context_limit"`
	CacheUpdateThreshold int    `yaml:"cache_update_threshold"`
}

// Settings is the full set of recognised YAML options from §6.
type Settings struct {
	APIMode                string        `yaml:"api_mode"`
	Model                  ModelSettings `yaml:"model"`
	SearchModel            string        `yaml:"search_model"`
	Timezone               string        `yaml:"timezone"`
	Language               string        `yaml:"language"`
	Parameters             Parameters    `yaml:"parameters"`
	ToolResponseExpiration int           `yaml:"tool_response_expiration"`
	ReferenceTTL           int           `yaml:"reference_ttl"`
	ExpertMode             bool          `yaml:"expert_mode"`
	Yolo                   bool          `yaml:"yolo"`
	ContextLimit           int           `yaml:"context_limit"`
	CheckpointsEnabled     bool          `yaml:"checkpoints_enabled"`
}

// Default returns the settings a fresh install runs with, absent a
// settings file on disk — mirrors the teacher's DefaultConfig() pattern
// of a sensible, fully-populated zero state rather than leaving callers
// to handle zero-valued fields.
func Default() Settings {
	return Settings{
		APIMode: "anthropic",
		Model: ModelSettings{
			Name:                 "claude-sonnet-4-5-20250929",
			ContextLimit:         200_000,
			CacheUpdateThreshold: 2048,
		},
		Timezone:               "UTC",
		Parameters:             Parameters{Temperature: ParameterSetting{Value: 1.0}, TopP: ParameterSetting{Value: 1.0}},
		ToolResponseExpiration: 3,
		ReferenceTTL:           5,
		ContextLimit:           200_000,
	}
}

// Load reads the YAML settings file at path over top of Default(), so a
// settings file only needs to specify the options it overrides. A
// missing file is not an error — it just yields the defaults, the same
// as a fresh install with no settings.yaml written yet.
func Load(path string) (Settings, error) {
	settings := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return Settings{}, err
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}

	if _, err := time.LoadLocation(settings.Timezone); err != nil {
		fmt.Fprintf(os.Stderr, "warning: unknown timezone %q in %s, falling back to UTC\n", settings.Timezone, path)
		settings.Timezone = "UTC"
	}

	return settings, nil
}
