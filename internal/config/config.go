// Package config loads calcheck run settings from defaults, an optional
// config file, CALCHECK_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the settings of one run.
type Config struct {
	LogLevel  string       `mapstructure:"log_level"`
	LogFormat string       `mapstructure:"log_format"`
	Color     string       `mapstructure:"color"`
	Check     CheckConfig  `mapstructure:"check"`
	Noise     NoiseConfig  `mapstructure:"noise"`
	Solver    SolverConfig `mapstructure:"solver"`
}

// CheckConfig is the default tolerance policy.
type CheckConfig struct {
	Eps        float64 `mapstructure:"eps"`
	Relative   bool    `mapstructure:"relative"`
	Mode       string  `mapstructure:"mode"`
	Percentile float64 `mapstructure:"percentile"`
}

// NoiseConfig holds the defaults for synthetic pixel noise.
type NoiseConfig struct {
	Seed  uint64  `mapstructure:"seed"`
	Stdev float64 `mapstructure:"stdev"`
}

// SolverConfig names the external solver program.
type SolverConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// LoadOptions controls Load.
type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Color:     "auto",
		Check: CheckConfig{
			Eps:        1e-6,
			Relative:   false,
			Mode:       "rms",
			Percentile: 0,
		},
		Noise: NoiseConfig{
			Seed:  0,
			Stdev: 1,
		},
		Solver: SolverConfig{
			Command: "",
			Args:    nil,
		},
	}
}

// RegisterFlags adds one flag per setting to fs.
func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("log-format", defaults.LogFormat, "Log format (text|json)")
	fs.String("color", defaults.Color, "Colorize report lines (auto|always|never)")
	fs.Float64("check-eps", defaults.Check.Eps, "Default error threshold")
	fs.Bool("check-relative", defaults.Check.Relative, "Compare relative instead of absolute differences")
	fs.String("check-mode", defaults.Check.Mode, "Error aggregation (rms|worstcase|percentile)")
	fs.Float64("check-percentile", defaults.Check.Percentile, "Percentile used by --check-mode=percentile")
	fs.Uint64("noise-seed", defaults.Noise.Seed, "Default seed for synthetic pixel noise")
	fs.Float64("noise-stdev", defaults.Noise.Stdev, "Default standard deviation of synthetic pixel noise")
	fs.String("solver-command", defaults.Solver.Command, "External solver executable")
	fs.StringSlice("solver-args", defaults.Solver.Args, "Arguments passed to the solver")
}

// Load resolves the configuration.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("CALCHECK")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("calcheck")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
	v.SetDefault("color", c.Color)
	v.SetDefault("check.eps", c.Check.Eps)
	v.SetDefault("check.relative", c.Check.Relative)
	v.SetDefault("check.mode", c.Check.Mode)
	v.SetDefault("check.percentile", c.Check.Percentile)
	v.SetDefault("noise.seed", c.Noise.Seed)
	v.SetDefault("noise.stdev", c.Noise.Stdev)
	v.SetDefault("solver.command", c.Solver.Command)
	v.SetDefault("solver.args", c.Solver.Args)
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"log-level":        "log_level",
	"log-format":       "log_format",
	"color":            "color",
	"check-eps":        "check.eps",
	"check-relative":   "check.relative",
	"check-mode":       "check.mode",
	"check-percentile": "check.percentile",
	"noise-seed":       "noise.seed",
	"noise-stdev":      "noise.stdev",
	"solver-command":   "solver.command",
	"solver-args":      "solver.args",
}

// bindFlags binds the registered flags present in fs to their config keys.
// Only flags set on the command line take precedence over other sources.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}
