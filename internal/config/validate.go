package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/AndreyAkinshin/calcheck/pkg/check"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Field: "log_level", Message: err.Error()}
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return &ValidationError{Field: "log_format", Message: fmt.Sprintf("must be text or json, got %q", c.LogFormat)}
	}
	switch strings.ToLower(c.Color) {
	case "auto", "always", "never":
	default:
		return &ValidationError{Field: "color", Message: fmt.Sprintf("must be auto, always or never, got %q", c.Color)}
	}
	if err := c.Policy().Validate(); err != nil {
		return &ValidationError{Field: "check", Message: err.Error()}
	}
	if c.Noise.Stdev < 0 {
		return &ValidationError{Field: "noise.stdev", Message: fmt.Sprintf("must be >= 0, got %v", c.Noise.Stdev)}
	}
	return nil
}

// Policy returns the default tolerance policy described by c.Check.
func (c Config) Policy() check.Policy {
	p := check.Policy{
		Basis:      check.Absolute,
		Mode:       check.Mode(strings.ToLower(c.Check.Mode)),
		Percentile: c.Check.Percentile,
		Eps:        c.Check.Eps,
	}
	if c.Check.Relative {
		p.Basis = check.Relative
	}
	return p
}

// ParseLogLevel converts a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// UseColor resolves the color setting. isTTY reports whether the report
// stream is a terminal and only matters for "auto".
func (c Config) UseColor(isTTY bool) bool {
	switch strings.ToLower(c.Color) {
	case "always":
		return true
	case "never":
		return false
	default:
		return isTTY
	}
}
