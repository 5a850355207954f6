package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables read by Loader
const (
	EnvConfig             = "RADAURIO_CONFIG"
	EnvGroupSize          = "RADAURIO_GROUP_SIZE"
	EnvPeakHalfWidth      = "RADAURIO_PEAK_HALF_WIDTH"
	EnvWindow             = "RADAURIO_WINDOW"
	EnvMonoDownmix        = "RADAURIO_MONO_DOWNMIX"
	EnvRemoveDC           = "RADAURIO_REMOVE_DC"
	EnvSpeedOfSound       = "RADAURIO_SPEED_OF_SOUND"
	EnvLowerBound         = "RADAURIO_LOWER_BOUND"
	EnvUpperBound         = "RADAURIO_UPPER_BOUND"
	EnvInitialGuess       = "RADAURIO_INITIAL_GUESS"
	EnvMaxIterations      = "RADAURIO_MAX_ITERATIONS"
	EnvObjectiveTolerance = "RADAURIO_OBJECTIVE_TOLERANCE"
	EnvLogLevel           = "RADAURIO_LOG_LEVEL"
	EnvChartPath          = "RADAURIO_CHART_PATH"
)

// Loader loads configuration from environment variables. Tests can override
// Lookup to inject deterministic maps.
type Loader struct {
	Lookup func(string) (string, bool)
}

// Load starts from Default, applies the RADAURIO_CONFIG JSON document and then
// the individual RADAURIO_* overrides, and validates the result.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}

	cfg := Default()

	if raw, ok := l.Lookup(EnvConfig); ok && strings.TrimSpace(raw) != "" {
		if err := applyJSON(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	overrideString(l.Lookup, EnvWindow, &cfg.Window)
	overrideString(l.Lookup, EnvLogLevel, &cfg.LogLevel)
	overrideString(l.Lookup, EnvChartPath, &cfg.ChartPath)

	for key, target := range map[string]*int{
		EnvGroupSize:     &cfg.GroupSize,
		EnvPeakHalfWidth: &cfg.PeakHalfWidth,
		EnvMaxIterations: &cfg.MaxIterations,
	} {
		if err := overrideInt(l.Lookup, key, target); err != nil {
			return Config{}, err
		}
	}
	for key, target := range map[string]*float64{
		EnvSpeedOfSound:       &cfg.SpeedOfSound,
		EnvLowerBound:         &cfg.LowerBound,
		EnvUpperBound:         &cfg.UpperBound,
		EnvObjectiveTolerance: &cfg.ObjectiveTolerance,
	} {
		if err := overrideFloat(l.Lookup, key, target); err != nil {
			return Config{}, err
		}
	}
	if err := overrideBool(l.Lookup, EnvMonoDownmix, &cfg.MonoDownmix); err != nil {
		return Config{}, err
	}
	if err := overrideBool(l.Lookup, EnvRemoveDC, &cfg.RemoveDC); err != nil {
		return Config{}, err
	}
	if err := overrideTriple(l.Lookup, EnvInitialGuess, &cfg.InitialGuess); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyJSON decodes onto cfg so absent keys keep their current values
func applyJSON(raw string, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", EnvConfig, err)
	}
	return nil
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

// overrideTriple parses "x0,d,v0"
func overrideTriple(lookup func(string) (string, bool), key string, target *[3]float64) error {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	if len(parts) != len(target) {
		return fmt.Errorf("config: invalid value for %s: want %d comma-separated numbers, got %d", key, len(target), len(parts))
	}
	var out [3]float64
	for i, part := range parts {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		out[i] = parsed
	}
	*target = out
	return nil
}
