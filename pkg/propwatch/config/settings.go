package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Journal drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Settings configures a propwatch engine.
type Settings struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format" json:"log_format"`
	// Metrics enables OpenTelemetry metrics.
	Metrics bool `yaml:"metrics" json:"metrics"`
	// Tracing enables OpenTelemetry fan-out spans.
	Tracing bool            `yaml:"tracing" json:"tracing"`
	Journal JournalSettings `yaml:"journal" json:"journal"`
}

// JournalSettings configures the change journal.
type JournalSettings struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Driver  string `yaml:"driver" json:"driver"`
	// Path is the sqlite database file. Ignored by the memory driver.
	Path string `yaml:"path" json:"path"`
}

// Default returns the settings used when nothing is configured:
// info-level text logs, no metrics, no tracing, no journal.
func Default() Settings {
	return Settings{
		LogLevel:  "info",
		LogFormat: FormatText,
		Journal: JournalSettings{
			Driver: DriverMemory,
		},
	}
}

// Level parses LogLevel.
func (s Settings) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalidSettings, s.LogLevel)
	}
	return lvl, nil
}

// Validate checks the settings for unknown values.
func (s Settings) Validate() error {
	var errs []error

	if _, err := s.Level(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(s.LogFormat) {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("%w: log_format %q", ErrInvalidSettings, s.LogFormat))
	}

	if s.Journal.Enabled {
		switch s.Journal.Driver {
		case DriverMemory:
		case DriverSQLite:
			if s.Journal.Path == "" {
				errs = append(errs, fmt.Errorf("%w: journal.path is required for the sqlite driver", ErrInvalidSettings))
			}
		default:
			errs = append(errs, fmt.Errorf("%w: journal.driver %q", ErrInvalidSettings, s.Journal.Driver))
		}
	}

	return errors.Join(errs...)
}
