// Package scenario runs loaded suites through a check session.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	calerrors "github.com/AndreyAkinshin/calcheck/internal/errors"
	"github.com/AndreyAkinshin/calcheck/internal/output"
	"github.com/AndreyAkinshin/calcheck/internal/pose"
	"github.com/AndreyAkinshin/calcheck/internal/solver"
	"github.com/AndreyAkinshin/calcheck/internal/suite"
	"github.com/AndreyAkinshin/calcheck/pkg/check"
	"github.com/AndreyAkinshin/calcheck/pkg/noise"
	"github.com/AndreyAkinshin/calcheck/pkg/session"
)

// exactPolicy accepts only bit-identical numbers.
var exactPolicy = check.DefaultPolicy().WithWorstCase().WithEps(0)

// absRoundoffPolicy absorbs the rounding of adding noise to pixel
// coordinates.
var absRoundoffPolicy = check.DefaultPolicy().WithWorstCase().WithEps(1e-9)

// roundoffPolicy absorbs floating-point rounding in derived quantities.
var roundoffPolicy = check.DefaultPolicy().WithRelative().WithWorstCase().WithEps(1e-9)

// Driver executes suite cases. Each case contributes one or more checks to
// the session; a case whose inputs cannot be evaluated is recorded as a
// failed check and the run moves on.
type Driver struct {
	session *session.Session
	solver  solver.Solver
	policy  check.Policy
	seed    uint64
	stdev   float64
	logger  *slog.Logger
	out     *output.Writer
}

// Option configures a Driver.
type Option func(*Driver)

// WithSolver sets the solver used by solve cases.
func WithSolver(s solver.Solver) Option {
	return func(d *Driver) {
		d.solver = s
	}
}

// WithPolicy sets the base tolerance policy that suites and cases override.
func WithPolicy(p check.Policy) Option {
	return func(d *Driver) {
		d.policy = p
	}
}

// WithNoise sets the default noise seed and standard deviation.
func WithNoise(seed uint64, stdev float64) Option {
	return func(d *Driver) {
		d.seed = seed
		d.stdev = stdev
	}
}

// WithLogger sets the driver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithOutput prints a header line before each suite. The header is
// informational and suppressed in quiet mode.
func WithOutput(w *output.Writer) Option {
	return func(d *Driver) {
		d.out = w
	}
}

// New creates a Driver reporting into s.
func New(s *session.Session, opts ...Option) *Driver {
	d := &Driver{
		session: s,
		policy:  check.DefaultPolicy(),
		stdev:   1,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Run executes the cases of st in order. It returns early only when ctx is
// done.
func (d *Driver) Run(ctx context.Context, st *suite.Suite) error {
	seed := d.seed
	if st.Seed != nil {
		seed = *st.Seed
	}
	sampler := noise.NewSampler(seed)

	d.logger.Info("running suite", "suite", st.Name, "cases", len(st.Cases))
	if d.out != nil {
		d.out.Info("%s", suiteHeader(st))
	}
	for i := range st.Cases {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := &st.Cases[i]
		r := &run{driver: d, suite: st, c: c, loc: st.Name + "/" + c.Name, sampler: sampler}
		if err := r.exec(ctx); err != nil {
			d.logger.Warn("case failed to run", "suite", st.Name, "case", c.Name, "error", err)
			d.session.Fail(r.loc, c.Message, calerrors.InCase(c.Name, err))
		}
	}
	return nil
}

func suiteHeader(st *suite.Suite) string {
	h := fmt.Sprintf("== %s (%d cases)", st.Name, len(st.Cases))
	if st.Description != "" {
		h += ": " + st.Description
	}
	return h
}

// RunAll runs every suite in order.
func (d *Driver) RunAll(ctx context.Context, suites []*suite.Suite) error {
	for _, st := range suites {
		if err := d.Run(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// run is the state of one case execution.
type run struct {
	driver  *Driver
	suite   *suite.Suite
	c       *suite.Case
	loc     string
	sampler *noise.Sampler
}

func (r *run) exec(ctx context.Context) error {
	switch r.c.Kind {
	case suite.KindCompare:
		return r.compare()
	case suite.KindConfirm:
		return r.confirm()
	case suite.KindRotate:
		return r.rotate()
	case suite.KindNoise:
		return r.noise()
	case suite.KindSolve:
		return r.solve(ctx)
	default:
		names := make([]string, len(suite.Kinds))
		for i, k := range suite.Kinds {
			names[i] = string(k)
		}
		return calerrors.Configf("unknown case kind %q (want one of %s)", r.c.Kind, strings.Join(names, ", "))
	}
}

func (r *run) policy(extra ...*yaml.Node) (check.Policy, error) {
	nodes := append([]*yaml.Node{&r.suite.Policy, &r.c.Policy}, extra...)
	p, err := suite.ResolvePolicy(r.driver.policy, nodes...)
	if err != nil {
		return p, calerrors.Validation("invalid policy", err)
	}
	return p, nil
}

func (r *run) compare() error {
	p, err := r.policy()
	if err != nil {
		return err
	}
	r.driver.session.Equal(r.loc, r.c.X, r.c.Xref, p, r.c.Message)
	return nil
}

func (r *run) confirm() error {
	if r.c.Value == nil {
		return calerrors.Config("confirm case has no value")
	}
	r.driver.session.Confirm(r.loc, *r.c.Value, r.c.Message)
	return nil
}

func (r *run) rotate() error {
	rv, err := vec3("r", r.c.R)
	if err != nil {
		return err
	}
	xv, err := vec3("x", check.Of(r.c.X).Floats())
	if err != nil {
		return err
	}
	p, err := r.policy()
	if err != nil {
		return err
	}

	out, jr, jx := pose.RotatePointJac(rv, xv)
	s := r.driver.session
	s.Equal(r.loc, out[:], r.c.Want, p, r.c.Message)
	if r.c.JR != nil {
		s.Equal(r.loc+"/jr", flatMat(jr), r.c.JR, p, "d(out)/dr")
	}
	if r.c.JX != nil {
		s.Equal(r.loc+"/jx", flatMat(jx), r.c.JX, p, "d(out)/dx")
	}
	return nil
}

func (r *run) noise() error {
	data := make([]float64, 0, len(r.c.Observations)*noise.Stride)
	for _, o := range r.c.Observations {
		data = append(data, o[0], o[1], o[2])
	}
	obs, err := noise.NewObservations(data, r.c.Shape...)
	if err != nil {
		return calerrors.Validation("invalid observations", err)
	}

	stdev, seed, outliers := r.noiseParams()
	sampler := noise.NewSampler(seed)
	q, perturbed := sampler.Perturb(obs, stdev, outliers)

	// Same seed on unit weights: the draws must differ only by 1/weight.
	unitData := obs.Data()
	for i := 0; i < obs.Len(); i++ {
		unitData[i*noise.Stride+2] = 1
	}
	unit, err := noise.NewObservations(unitData, obs.Shape()...)
	if err != nil {
		return calerrors.Wrap(err, "failed to build unit-weight observations")
	}
	qUnit, _ := noise.NewSampler(seed).Perturb(unit, stdev, outliers)

	n := obs.Len()
	weights := make([]float64, n)
	weightsAfter := make([]float64, n)
	delta := make([]float64, 2*n)
	scaled := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		x0, y0, w0 := obs.At(i)
		x1, y1, w1 := perturbed.At(i)
		weights[i], weightsAfter[i] = w0, w1
		delta[2*i], delta[2*i+1] = x1-x0, y1-y0
		scaled[2*i], scaled[2*i+1] = qUnit[2*i]/w0, qUnit[2*i+1]/w0
	}

	s := r.driver.session
	s.Equal(r.loc+"/weights", weightsAfter, weights, exactPolicy, "weights are unchanged")
	s.Equal(r.loc+"/applied", delta, q, absRoundoffPolicy, "perturbation matches the drawn noise")
	s.Equal(r.loc+"/scaling", q, scaled, roundoffPolicy, "noise scales with 1/weight")
	if outliers {
		s.Confirm(r.loc+"/outliers", len(sampler.OutlierIndices()) == n/100, "1% of observations are outliers")
	}
	return nil
}

func (r *run) noiseParams() (stdev float64, seed uint64, outliers bool) {
	stdev = r.driver.stdev
	seed = r.driver.seed
	if r.suite.Seed != nil {
		seed = *r.suite.Seed
	}
	if n := r.c.Noise; n != nil {
		if n.Stdev != nil {
			stdev = *n.Stdev
		}
		if n.Seed != nil {
			seed = *n.Seed
		}
		outliers = n.Outliers
	}
	return stdev, seed, outliers
}

func (r *run) solve(ctx context.Context) error {
	if r.driver.solver == nil {
		return calerrors.Config("solve case requires a solver (set solver.command)")
	}
	if r.c.Request == nil {
		return calerrors.Config("solve case has no request")
	}

	req := r.c.Request
	if n := r.c.Noise; n != nil {
		stdev, _, outliers := r.noiseParams()
		sampler := r.sampler
		if n.Seed != nil {
			sampler = noise.NewSampler(*n.Seed)
		}
		noisy, err := solver.WithNoise(req, sampler, stdev, outliers)
		if err != nil {
			return calerrors.Validation("invalid observations", err)
		}
		req = noisy
	}

	res, err := solver.Optimize(ctx, r.driver.solver, req)
	if err != nil {
		return err
	}
	r.driver.logger.Debug("solver finished", "case", r.c.Name, "rms_reproj_error__pixels", res.RMSReprojError)

	fields := make([]string, 0, len(r.c.Expect))
	for name := range r.c.Expect {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	s := r.driver.session
	for _, name := range fields {
		exp := r.c.Expect[name]
		loc := r.loc + "/" + name
		got, ok := res.Field(name)
		if !ok {
			s.Fail(loc, exp.Message, calerrors.Configf("unknown response field %q (want one of %s)", name, strings.Join(solver.FieldNames(), ", ")))
			continue
		}
		p, err := r.policy(&exp.Policy)
		if err != nil {
			s.Fail(loc, exp.Message, err)
			continue
		}
		s.Equal(loc, got, exp.Value, p, exp.Message)
	}
	return nil
}

func vec3(name string, v []float64) (pose.Vec3, error) {
	if len(v) != 3 {
		return pose.Vec3{}, calerrors.Validation("invalid rotation case", fmt.Errorf("%s must have 3 elements, got %d", name, len(v)))
	}
	return pose.Vec3{v[0], v[1], v[2]}, nil
}

func flatMat(m pose.Mat3) []float64 {
	return []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	}
}
