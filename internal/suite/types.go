// Package suite loads calcheck suite files.
//
// A suite is a YAML (or JSON) document listing check cases. Any mapping of
// the form {$file: path} is replaced by the contents of that file, resolved
// relative to the suite, before the document is validated against the
// embedded schema.
package suite

import (
	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/calcheck/internal/solver"
	"github.com/AndreyAkinshin/calcheck/pkg/check"
)

// Kind identifies what a case checks.
type Kind string

const (
	// KindCompare compares literal x and xref values.
	KindCompare Kind = "compare"
	// KindConfirm records a literal boolean verdict.
	KindConfirm Kind = "confirm"
	// KindRotate checks point rotation and its Jacobians.
	KindRotate Kind = "rotate"
	// KindNoise checks the properties of synthetic pixel noise.
	KindNoise Kind = "noise"
	// KindSolve runs the solver and checks fields of its response.
	KindSolve Kind = "solve"
)

// Kinds lists all case kinds in documentation order.
var Kinds = []Kind{KindCompare, KindConfirm, KindRotate, KindNoise, KindSolve}

// Suite is a loaded suite file.
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Policy overrides the run's default tolerance policy for every case.
	Policy yaml.Node `yaml:"policy"`

	// Seed seeds the suite's noise sampler when set.
	Seed *uint64 `yaml:"seed"`

	Cases []Case `yaml:"cases"`

	// Path is the file the suite was loaded from.
	Path string `yaml:"-"`
}

// Case is one entry of a suite. Which fields apply depends on Kind.
type Case struct {
	Name    string    `yaml:"name"`
	Kind    Kind      `yaml:"kind"`
	Message string    `yaml:"message"`
	Policy  yaml.Node `yaml:"policy"`

	// compare; rotate uses X as the point to rotate
	X    any `yaml:"x"`
	Xref any `yaml:"xref"`

	// confirm
	Value *bool `yaml:"value"`

	// rotate
	R    []float64   `yaml:"r"`
	Want []float64   `yaml:"want"`
	JR   [][]float64 `yaml:"jr"`
	JX   [][]float64 `yaml:"jx"`

	// noise
	Observations [][3]float64 `yaml:"observations"`
	Shape        []int        `yaml:"shape"`

	// noise and solve
	Noise *Noise `yaml:"noise"`

	// solve
	Request *solver.Request        `yaml:"request"`
	Expect  map[string]Expectation `yaml:"expect"`
}

// Noise configures synthetic pixel noise. Unset fields take the run's
// defaults.
type Noise struct {
	Stdev    *float64 `yaml:"stdev"`
	Seed     *uint64  `yaml:"seed"`
	Outliers bool     `yaml:"outliers"`
}

// Expectation is the reference value of one solver response field.
type Expectation struct {
	Value   any       `yaml:"value"`
	Policy  yaml.Node `yaml:"policy"`
	Message string    `yaml:"message"`
}

// ResolvePolicy applies the policy overrides in order on top of base.
// Fields an override leaves out keep their earlier value.
func ResolvePolicy(base check.Policy, overrides ...*yaml.Node) (check.Policy, error) {
	p := base
	for _, n := range overrides {
		if n == nil || n.Kind == 0 {
			continue
		}
		if err := n.Decode(&p); err != nil {
			return base, err
		}
	}
	return p, nil
}
