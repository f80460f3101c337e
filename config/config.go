// Package config provides the configuration of the translator, the
// machine, the compile service and its history store.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/bfasm/core"
)

// ErrInvalid is matched by every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root of the YAML configuration file.
type Config struct {
	InputExt  string        `yaml:"input_ext"`
	OutputExt string        `yaml:"output_ext"`
	Log       LogConfig     `yaml:"log"`
	Machine   MachineConfig `yaml:"machine"`
	Server    ServerConfig  `yaml:"server"`
	Store     StoreConfig   `yaml:"store"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MachineConfig configures core.Machine.
type MachineConfig struct {
	MemoryBase uint32 `yaml:"memory_base"`
	MaxSteps   uint64 `yaml:"max_steps"`
	FreqMHz    int    `yaml:"freq_mhz"`
}

// ServerConfig configures the compile service.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxBody         int64         `yaml:"max_body"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects the compile history backend. An empty driver keeps
// history in memory.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "", sqlite3 or mysql
	DSN    string `yaml:"dsn"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		InputExt:  ".bf",
		OutputExt: ".asm",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Machine: MachineConfig{
			MemoryBase: core.DefaultMemoryBase,
			MaxSteps:   100_000_000,
			FreqMHz:    1000,
		},
		Server: ServerConfig{
			Addr:            "localhost:0",
			MaxBody:         1 << 20,
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch {
	case c.InputExt == "" || c.OutputExt == "":
		return fmt.Errorf("%w: extensions must not be empty", ErrInvalid)
	case c.InputExt == c.OutputExt:
		return fmt.Errorf("%w: input and output extensions are both %q", ErrInvalid, c.InputExt)
	case c.Machine.FreqMHz <= 0:
		return fmt.Errorf("%w: machine.freq_mhz must be positive", ErrInvalid)
	case c.Server.MaxBody <= 0:
		return fmt.Errorf("%w: server.max_body must be positive", ErrInvalid)
	}

	switch c.Store.Driver {
	case "":
	case "sqlite3", "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn is required for %s", ErrInvalid, c.Store.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}

	return nil
}

// SlogLevel maps the level name onto a slog level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "trace":
		return core.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalid, l.Level)
	}
}

// NewLogger builds the slog logger described by the configuration.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
