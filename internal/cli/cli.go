// Package cli provides the calcheck command-line interface.
package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/AndreyAkinshin/calcheck/internal/config"
	calerrors "github.com/AndreyAkinshin/calcheck/internal/errors"
	"github.com/AndreyAkinshin/calcheck/internal/output"
)

// Version is set at build time.
var Version = "dev"

// app carries the state shared by the commands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
	out     *output.Writer

	// code is the exit code requested by a command that completed without
	// an error, such as a run with failed checks.
	code int
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		w := a.out
		if w == nil {
			w = output.NewWithWriters(stdout, stderr, false)
		}
		w.ErrorPrefix("%v", err)
		return exitCode(err)
	}
	return a.code
}

// exitCode maps an error to a process exit code. Errors raised by cobra
// itself, such as unknown flags or a wrong argument count, are usage
// errors.
func exitCode(err error) int {
	var target *calerrors.CalcheckError
	if errors.As(err, &target) {
		return calerrors.GetExitCode(err)
	}
	if isUsageError(err) {
		return calerrors.ExitConfigError
	}
	return calerrors.GetExitCode(err)
}

func isUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "invalid argument", "flag needs an argument", "accepts ", "requires at least"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

func (a *app) rootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "calcheck",
		Short:         "Tolerance-based regression checks for camera calibration",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: a.cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return calerrors.Config(err.Error())
			}
			a.cfg = loaded
			a.logger = newLogger(a.stderr, loaded)
			slog.SetDefault(a.logger)
			a.out = output.NewWithWriters(a.stdout, a.stderr, loaded.UseColor(isTerminal(a.stdout)))
			return nil
		},
	}
	cmd.SetVersionTemplate("calcheck {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(a.runCmd())
	cmd.AddCommand(a.validateCmd())
	cmd.AddCommand(a.policiesCmd())
	cmd.AddCommand(a.schemaCmd())
	cmd.AddCommand(a.versionCmd())

	return cmd
}

// newLogger builds the process logger on w from the configured level and
// format. Validation has already rejected unknown values.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	lvl, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// isTerminal returns true if w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
