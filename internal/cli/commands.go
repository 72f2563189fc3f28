package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	calerrors "github.com/AndreyAkinshin/calcheck/internal/errors"
	"github.com/AndreyAkinshin/calcheck/internal/scenario"
	"github.com/AndreyAkinshin/calcheck/internal/solver"
	"github.com/AndreyAkinshin/calcheck/internal/suite"
	"github.com/AndreyAkinshin/calcheck/pkg/check"
	"github.com/AndreyAkinshin/calcheck/pkg/session"
	schemafs "github.com/AndreyAkinshin/calcheck/schema"
)

func (a *app) runCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run <suite|dir>...",
		Short: "Run check suites and report every check",
		Long: `Run loads each suite file (directories are searched for *.yaml, *.yml
and *.json), evaluates its cases in order and prints one line per check.
The exit code is 0 when every check passed or none ran, and 1 otherwise.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suites, err := suite.LoadAll(args)
			if err != nil {
				return err
			}

			a.out.SetQuiet(quiet)
			sess := session.New(session.WithOutput(a.out), session.WithLogger(a.logger))

			opts := []scenario.Option{
				scenario.WithPolicy(a.cfg.Policy()),
				scenario.WithNoise(a.cfg.Noise.Seed, a.cfg.Noise.Stdev),
				scenario.WithLogger(a.logger),
				scenario.WithOutput(a.out),
			}
			if a.cfg.Solver.Command != "" {
				exec := solver.NewExec(a.cfg.Solver.Command, a.cfg.Solver.Args...)
				exec.Logger = a.logger
				opts = append(opts, scenario.WithSolver(exec))
			} else if n := countSolveCases(suites); n > 0 {
				a.out.Warning("%d solve case(s) will fail: no solver configured (set solver.command)", n)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if err := scenario.New(sess, opts...).RunAll(ctx, suites); err != nil {
				return calerrors.Wrap(err, "run interrupted")
			}

			a.code = sess.Finish().Code
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report failed checks and the summary")

	return cmd
}

func countSolveCases(suites []*suite.Suite) int {
	n := 0
	for _, s := range suites {
		for _, c := range s.Cases {
			if c.Kind == suite.KindSolve {
				n++
			}
		}
	}
	return n
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <suite|dir>...",
		Short: "Check suite files against the suite schema without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			suites, err := suite.LoadAll(args)
			if err != nil {
				return err
			}
			for _, s := range suites {
				a.out.CheckOK(s.Path, fmt.Sprintf("%d cases", len(s.Cases)))
			}
			return nil
		},
	}
}

func (a *app) policiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List tolerance bases and aggregation modes",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			titleCase := cases.Title(language.English)
			rows := [][]string{
				{titleCase.String(string(check.Absolute)), "basis", "x - xref"},
				{titleCase.String(string(check.Relative)), "basis", fmt.Sprintf("(x - xref) / ((|x|+|xref|)/2 + %g)", check.RelativeEps)},
				{titleCase.String(string(check.RMS)), "mode", "sqrt(sum(diff^2)/N)"},
				{titleCase.String(string(check.WorstCase)), "mode", "max(|diff|)"},
				{titleCase.String(string(check.Percentile)), "mode", "p-th percentile of |diff|"},
			}
			a.out.Table([]string{"NAME", "KIND", "ERROR"}, rows)
			a.out.Println("")
			a.out.Println("default: %s", a.cfg.Policy())
			return nil
		},
	}
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for suite files",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := schemafs.FS.ReadFile(schemafs.SuiteSchema)
			if err != nil {
				return calerrors.Wrap(err, "read suite schema")
			}
			a.out.Print("%s", data)
			return nil
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the calcheck version",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a.out.Println("calcheck %s", Version)
			return nil
		},
	}
}
