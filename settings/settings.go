package settings

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/framegate/framegate/gate"
)

var (
	// ErrInvalidThreshold is returned when a threshold is not a finite number.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrUnsupportedFormat is returned when a settings file extension is not .yaml, .yml or .toml.
	ErrUnsupportedFormat = errors.New("unsupported settings format")
)

// Settings are the persisted gate settings.
type Settings struct {
	// Enabled indicates whether the gate applies.
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`
	// DisableThreshold is the rate below which controlled work is suppressed.
	DisableThreshold float64 `json:"disableThreshold" yaml:"disableThreshold" toml:"disableThreshold"`
	// EnableThreshold is the rate above which controlled work is allowed again.
	EnableThreshold float64 `json:"enableThreshold" yaml:"enableThreshold" toml:"enableThreshold"`
}

// Key describes a persisted setting.
type Key struct {
	Name        string
	Description string
	Default     any
}

// Keys describes each persisted setting.
var Keys = []Key{
	{"enabled", "Whether controlled work is gated by the measured rate", true},
	{"disableThreshold", "Suppress controlled work when the rate is below this value", gate.DefaultDisableThreshold},
	{"enableThreshold", "Allow controlled work again when the rate is above this value", gate.DefaultEnableThreshold},
}

// Defaults returns the default settings.
func Defaults() Settings {
	c := gate.DefaultConfig()
	return Settings{
		Enabled:          c.Enabled,
		DisableThreshold: c.DisableThreshold,
		EnableThreshold:  c.EnableThreshold,
	}
}

// GateConfig returns the settings as a gate.Config.
func (s Settings) GateConfig() gate.Config {
	return gate.Config{
		Enabled:          s.Enabled,
		DisableThreshold: s.DisableThreshold,
		EnableThreshold:  s.EnableThreshold,
	}
}

// Validate returns ErrInvalidThreshold if either threshold is NaN or infinite. Inverted thresholds are allowed.
func (s Settings) Validate() error {
	if !isFinite(s.DisableThreshold) {
		return fmt.Errorf("%w: disableThreshold %v", ErrInvalidThreshold, s.DisableThreshold)
	}
	if !isFinite(s.EnableThreshold) {
		return fmt.Errorf("%w: enableThreshold %v", ErrInvalidThreshold, s.EnableThreshold)
	}
	return nil
}

// Inverted returns whether the EnableThreshold is below the DisableThreshold, which causes the gate to toggle on
// every decision between the two.
func (s Settings) Inverted() bool {
	return s.EnableThreshold < s.DisableThreshold
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type format int

const (
	yamlFormat format = iota
	tomlFormat
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlFormat, nil
	case ".toml":
		return tomlFormat, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Load reads settings from a YAML or TOML file, chosen by extension. Keys missing from the file keep their defaults.
func Load(path string) (Settings, error) {
	f, err := formatOf(path)
	if err != nil {
		return Settings{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	s, err := decode(f, data)
	if err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

func decode(f format, data []byte) (Settings, error) {
	s := Defaults()
	switch f {
	case tomlFormat:
		if _, err := toml.Decode(string(data), &s); err != nil {
			return Settings{}, err
		}
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

// Save writes the settings to a YAML or TOML file, chosen by extension.
func Save(path string, s Settings) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	data, err := encode(f, s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}

func encode(f format, s Settings) ([]byte, error) {
	if f == tomlFormat {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(s); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(s)
}

// FromEnv returns s with any settings overridden by the environment variables <prefix>_ENABLED,
// <prefix>_DISABLE_THRESHOLD and <prefix>_ENABLE_THRESHOLD.
func FromEnv(s Settings, prefix string) (Settings, error) {
	if v := os.Getenv(prefix + "_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%s_ENABLED: %w", prefix, err)
		}
		s.Enabled = enabled
	}
	var err error
	if s.DisableThreshold, err = envFloat(prefix+"_DISABLE_THRESHOLD", s.DisableThreshold); err != nil {
		return Settings{}, err
	}
	if s.EnableThreshold, err = envFloat(prefix+"_ENABLE_THRESHOLD", s.EnableThreshold); err != nil {
		return Settings{}, err
	}
	return s, s.Validate()
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
