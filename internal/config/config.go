// Package config loads the shared configuration file for the capture and
// plot commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridseis/gridseis/internal/series"
)

// Config captures the settings shared by the capture and plot commands.
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Plot    PlotConfig    `yaml:"plot"`
}

// CaptureConfig controls the serial capture session.
type CaptureConfig struct {
	OutputDir    string `yaml:"output_dir"`
	BaudRate     int    `yaml:"baud_rate"`
	ReadTimeout  string `yaml:"read_timeout"`  // duration string like "1s"
	PollInterval string `yaml:"poll_interval"` // duration string like "500ms"
	StopGrace    string `yaml:"stop_grace"`    // duration string like "5s"
	MQTTBroker   string `yaml:"mqtt_broker"`   // empty disables publishing
}

// PlotConfig controls series loading and rendering.
type PlotConfig struct {
	Invert      bool   `yaml:"invert"`
	ValueField  string `yaml:"value_field"`  // "raw" or "smoothed"
	WindowStart string `yaml:"window_start"` // RFC 3339; empty = unbounded
	WindowEnd   string `yaml:"window_end"`   // RFC 3339; empty = unbounded
	HTML        bool   `yaml:"html"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Capture: CaptureConfig{
			OutputDir:    ".",
			BaudRate:     115200,
			ReadTimeout:  "1s",
			PollInterval: "500ms",
			StopGrace:    "5s",
		},
		Plot: PlotConfig{
			Invert:     true,
			ValueField: "raw",
		},
	}
}

// Load initialises Config from a YAML file. An empty path returns the
// defaults. Fields omitted from the file keep their default values, so
// partial configs are safe.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are parseable.
func (c Config) Validate() error {
	durations := []struct {
		name, value string
	}{
		{"read_timeout", c.Capture.ReadTimeout},
		{"poll_interval", c.Capture.PollInterval},
		{"stop_grace", c.Capture.StopGrace},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
	}

	if c.Capture.BaudRate < 0 {
		return fmt.Errorf("baud_rate must not be negative, got %d", c.Capture.BaudRate)
	}

	if _, err := series.ParseField(c.Plot.ValueField); err != nil {
		return err
	}

	windows := []struct {
		name, value string
	}{
		{"window_start", c.Plot.WindowStart},
		{"window_end", c.Plot.WindowEnd},
	}
	for _, w := range windows {
		if w.value == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, w.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", w.name, w.value, err)
		}
	}

	return nil
}

// GetReadTimeout parses and returns the serial read timeout.
func (c CaptureConfig) GetReadTimeout() time.Duration {
	return durationOr(c.ReadTimeout, time.Second)
}

// GetPollInterval parses and returns the worker liveness poll interval.
func (c CaptureConfig) GetPollInterval() time.Duration {
	return durationOr(c.PollInterval, 500*time.Millisecond)
}

// GetStopGrace parses and returns the shutdown grace period.
func (c CaptureConfig) GetStopGrace() time.Duration {
	return durationOr(c.StopGrace, 5*time.Second)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// GetField returns the configured value field, defaulting to raw.
func (p PlotConfig) GetField() series.Field {
	f, err := series.ParseField(p.ValueField)
	if err != nil {
		return series.FieldRaw
	}
	return f
}

// GetWindow parses the display window bounds. Zero times leave that side
// unbounded.
func (p PlotConfig) GetWindow() (start, end time.Time) {
	if p.WindowStart != "" {
		start, _ = time.Parse(time.RFC3339, p.WindowStart)
	}
	if p.WindowEnd != "" {
		end, _ = time.Parse(time.RFC3339, p.WindowEnd)
	}
	return start, end
}
