// Package session tallies check verdicts for one test run and decides how
// the run ends.
//
// A Session is created per run, every check records its verdict exactly
// once, and Finish summarizes the run:
//
//	s := session.New()
//	s.Equal("intrinsics", got, want, check.DefaultPolicy().WithEps(1e-8), "fx")
//	s.Confirm("converged", stats.Converged, "")
//	s.Finish().Exit()
package session

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/AndreyAkinshin/calcheck/internal/output"
	"github.com/AndreyAkinshin/calcheck/pkg/calcheck"
	"github.com/AndreyAkinshin/calcheck/pkg/check"
)

// State classifies how a run ended.
type State int

const (
	// NoTests means no check was attempted.
	NoTests State = iota
	// Failed means at least one check failed.
	Failed
	// Passed means every attempted check passed.
	Passed
)

func (s State) String() string {
	switch s {
	case NoTests:
		return "no tests"
	case Failed:
		return "failed"
	case Passed:
		return "passed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Disposition is the outcome of a finished run.
type Disposition struct {
	State     State
	Attempted int
	Failed    int
	// Code is the process exit code for this outcome.
	Code int
}

// Summary describes the disposition in one line.
func (d Disposition) Summary() string {
	switch d.State {
	case NoTests:
		return "No tests defined"
	case Failed:
		return fmt.Sprintf("Some tests failed: %d out of %d", d.Failed, d.Attempted)
	default:
		return fmt.Sprintf("All tests passed: %d total", d.Attempted)
	}
}

// Exit terminates the process with d.Code.
func (d Disposition) Exit() {
	os.Exit(d.Code)
}

// Session holds the pass/fail tally of one run.
type Session struct {
	mu        sync.Mutex
	attempted int
	failed    int

	out    *output.Writer
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithOutput sets the report writer.
func WithOutput(w *output.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// WithWriter sends reports to w, colored when color is true.
func WithWriter(w io.Writer, color bool) Option {
	return func(s *Session) {
		s.out = output.NewWithWriters(w, io.Discard, color)
	}
}

// WithLogger sets the logger used for per-check debug records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New creates a Session. Reports go to stdout unless an option says
// otherwise.
func New(opts ...Option) *Session {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	if s.out == nil {
		s.out = output.New()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

var (
	defaultOnce    sync.Once
	defaultSession *Session
)

// Default returns a process-wide Session reporting to stdout, for
// programs that run exactly one sequence of checks.
func Default() *Session {
	defaultOnce.Do(func() {
		defaultSession = New()
	})
	return defaultSession
}

// Record tallies one verdict. Every check calls it exactly once.
func (s *Session) Record(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempted++
	if !ok {
		s.failed++
	}
}

// Counts returns the number of attempted and failed checks so far.
func (s *Session) Counts() (attempted, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempted, s.failed
}

// Equal checks that x equals xref under policy p. Operands are classified
// with check.Of. The location labels the report line and msg, when not
// empty, identifies the check.
func (s *Session) Equal(location string, x, xref any, p check.Policy, msg string) bool {
	return s.EqualValues(location, check.Of(x), check.Of(xref), p, msg)
}

// EqualValues is Equal for already-classified operands.
func (s *Session) EqualValues(location string, x, xref check.Value, p check.Policy, msg string) bool {
	res := check.Compare(x, xref, p)
	s.Record(res.Passed)

	s.logger.Debug("check",
		"location", location,
		"msg", msg,
		"outcome", res.Outcome.String(),
		"metric", res.Metric,
		"err", res.Err,
		"n", res.N,
		"nref", res.Nref,
	)

	if res.Passed {
		s.out.CheckOK(location, msg)
		return true
	}
	s.out.CheckFailed(location, msg, res.Detail())
	return false
}

// Confirm checks that cond holds.
func (s *Session) Confirm(location string, cond bool, msg string) bool {
	s.Record(cond)
	s.logger.Debug("confirm", "location", location, "msg", msg, "ok", cond)

	if cond {
		s.out.CheckOK(location, msg)
		return true
	}
	s.out.CheckFailed(location, msg, "")
	return false
}

// Fail records a failed check that could not be evaluated at all, such as
// a scenario whose inputs could not be loaded.
func (s *Session) Fail(location, msg string, err error) {
	s.Record(false)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	s.out.CheckFailed(location, msg, detail)
}

// Finish reports the run summary and returns its disposition. It does not
// terminate the process; call Disposition.Exit for that.
func (s *Session) Finish() Disposition {
	attempted, failed := s.Counts()
	d := Disposition{Attempted: attempted, Failed: failed}

	switch {
	case attempted == 0 && failed == 0:
		d.State = NoTests
		d.Code = calcheck.ExitSuccess
		s.out.Red("", d.Summary())
	case failed > 0:
		d.State = Failed
		d.Code = calcheck.ExitFailure
		s.out.Red("", d.Summary())
	default:
		d.State = Passed
		d.Code = calcheck.ExitSuccess
		s.out.Green("", d.Summary())
	}
	return d
}
