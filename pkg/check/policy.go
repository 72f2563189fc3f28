package check

import (
	"fmt"
	"math"
)

// Basis selects how elementwise differences are formed.
type Basis string

// Mode selects how elementwise differences are aggregated into one error.
type Mode string

const (
	// Absolute compares x - xref.
	Absolute Basis = "absolute"
	// Relative compares (x - xref) / ((|x|+|xref|)/2 + RelativeEps).
	Relative Basis = "relative"
)

const (
	// RMS aggregates with sqrt(sum(diff²)/N).
	RMS Mode = "rms"
	// WorstCase aggregates with max(|diff|).
	WorstCase Mode = "worstcase"
	// Percentile aggregates with the given percentile of |diff|.
	Percentile Mode = "percentile"
)

// DefaultEps is the default error threshold.
const DefaultEps = 1e-6

// RelativeEps keeps the relative basis finite when both operands are near
// zero. It is independent of Policy.Eps.
const RelativeEps = 1e-6

// Policy configures numeric comparison.
type Policy struct {
	// Basis is Absolute or Relative. Empty means Absolute.
	Basis Basis `json:"basis,omitempty" yaml:"basis,omitempty"`

	// Mode is RMS, WorstCase or Percentile. Empty means RMS.
	Mode Mode `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Percentile is the point of the |diff| distribution, in [0, 100],
	// used when Mode is Percentile.
	Percentile float64 `json:"percentile,omitempty" yaml:"percentile,omitempty"`

	// Eps is the largest aggregated error that still passes.
	Eps float64 `json:"eps" yaml:"eps"`
}

// DefaultPolicy returns an absolute RMS policy with DefaultEps.
func DefaultPolicy() Policy {
	return Policy{
		Basis: Absolute,
		Mode:  RMS,
		Eps:   DefaultEps,
	}
}

// WithEps returns a copy of p with the threshold replaced.
func (p Policy) WithEps(eps float64) Policy {
	p.Eps = eps
	return p
}

// WithRelative returns a copy of p using the relative basis.
func (p Policy) WithRelative() Policy {
	p.Basis = Relative
	return p
}

// WithWorstCase returns a copy of p aggregating by the worst-case error.
func (p Policy) WithWorstCase() Policy {
	p.Mode = WorstCase
	return p
}

// WithPercentile returns a copy of p aggregating by the given percentile.
func (p Policy) WithPercentile(pct float64) Policy {
	p.Mode = Percentile
	p.Percentile = pct
	return p
}

// Validate reports whether p holds valid enum values and thresholds.
func (p Policy) Validate() error {
	switch p.Basis {
	case "", Absolute, Relative:
	default:
		return fmt.Errorf("invalid basis: %q (must be %q or %q)", p.Basis, Absolute, Relative)
	}
	switch p.Mode {
	case "", RMS, WorstCase:
	case Percentile:
		if math.IsNaN(p.Percentile) || p.Percentile < 0 || p.Percentile > 100 {
			return fmt.Errorf("invalid percentile: %v (must be in [0, 100])", p.Percentile)
		}
	default:
		return fmt.Errorf("invalid mode: %q (must be %q, %q or %q)", p.Mode, RMS, WorstCase, Percentile)
	}
	if math.IsNaN(p.Eps) || p.Eps < 0 {
		return fmt.Errorf("invalid eps: %v (must be >= 0)", p.Eps)
	}
	return nil
}

// Metric names the aggregation for reports: "RMS", "worst-case" or
// "<p>%-percentile".
func (p Policy) Metric() string {
	switch p.Mode {
	case WorstCase:
		return "worst-case"
	case Percentile:
		return fmt.Sprintf("%v%%-percentile", p.Percentile)
	default:
		return "RMS"
	}
}

func (p Policy) String() string {
	basis := p.Basis
	if basis == "" {
		basis = Absolute
	}
	return fmt.Sprintf("%s %s <= %v", basis, p.Metric(), p.Eps)
}
