// Package config loads buddyctl settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/buddykit/internal/logger"
	"github.com/joshuapare/buddykit/memory/alloc"
	"github.com/joshuapare/buddykit/pkg/types"
)

// Config represents the top-level configuration structure.
type Config struct {
	Arena   ArenaConfig   `yaml:"arena"`
	Log     LogConfig     `yaml:"log"`
	Input   InputConfig   `yaml:"input"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ArenaConfig sizes the block table.
type ArenaConfig struct {
	Size            Size `yaml:"size"`             // e.g. 65536, "64KiB", "1MiB"
	CheckInvariants bool `yaml:"check_invariants"` // Validate after every mutation
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Dir    string `yaml:"dir"`    // Optional daily log file directory
}

// InputConfig controls how command input is decoded.
type InputConfig struct {
	Encoding string `yaml:"encoding"` // utf-8, windows-1252, iso-8859-1
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr            string   `yaml:"addr"`             // e.g. ":9090"; empty disables
	ShutdownTimeout Duration `yaml:"shutdown_timeout"` // e.g. "5s"
}

// Size is a byte count that unmarshals from an integer or a
// human-readable string such as "64KiB".
type Size uint32

func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	n, err := ParseSize(raw)
	if err != nil {
		return err
	}
	*s = n
	return nil
}

// ParseSize parses a plain byte count or a humanized size ("64KiB", "1 MiB").
func ParseSize(raw string) (Size, error) {
	if n, err := strconv.ParseUint(raw, 10, 32); err == nil {
		return Size(n), nil
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("arena size %q: %w", raw, err)
	}
	if n > types.MaxArenaSize {
		return 0, fmt.Errorf("arena size %q exceeds %s", raw, humanize.IBytes(types.MaxArenaSize))
	}
	return Size(n), nil
}

// Duration wraps time.Duration for YAML unmarshalling from strings like "5s", "10m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Arena:   ArenaConfig{Size: types.DefaultArenaSize},
		Log:     LogConfig{Level: "info", Format: "text"},
		Input:   InputConfig{Encoding: "utf-8"},
		Metrics: MetricsConfig{ShutdownTimeout: Duration{5 * time.Second}},
	}
}

// LoadConfig reads a YAML configuration file from the specified path.
// Keys missing from the file keep their Default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	size := uint32(c.Arena.Size)
	if size == 0 || !alloc.IsPowerOfTwo(size) {
		return fmt.Errorf("arena.size: %d is not a power of two", size)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch logger.Format(c.Log.Format) {
	case "", logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	switch c.Input.Encoding {
	case "", "utf-8", "utf8", "windows-1252", "cp1252", "iso-8859-1", "latin1":
	default:
		return fmt.Errorf("input.encoding: unsupported encoding %q", c.Input.Encoding)
	}
	if c.Metrics.ShutdownTimeout.Duration < 0 {
		return fmt.Errorf("metrics.shutdown_timeout: must not be negative")
	}
	return nil
}
