package check

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Outcome classifies a comparison verdict.
type Outcome int

const (
	// Pass means the operands compared equal.
	Pass Outcome = iota
	// SizeMismatch means the element counts differ and the reference is
	// not a broadcastable scalar.
	SizeMismatch
	// NonFinite means some elementwise difference is NaN or infinite.
	NonFinite
	// OutOfTolerance means the aggregated error exceeds the threshold.
	OutOfTolerance
	// NotEqual means an exact (text or structural) comparison failed.
	NotEqual
	// InvalidPolicy means the policy did not validate.
	InvalidPolicy
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case SizeMismatch:
		return "size mismatch"
	case NonFinite:
		return "non-finite"
	case OutOfTolerance:
		return "out of tolerance"
	case NotEqual:
		return "not equal"
	case InvalidPolicy:
		return "invalid policy"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the verdict of a single comparison together with the data a
// human needs to diagnose a failure.
type Result struct {
	Passed  bool
	Outcome Outcome

	// Metric names the aggregation used for numeric comparisons.
	Metric string
	// Err is the aggregated error. It is zero for exact comparisons.
	Err float64

	N    int
	Nref int

	// X and Xref are the operands after normalization and broadcasting.
	X    Value
	Xref Value
	// Diff holds the elementwise differences for numeric comparisons.
	Diff []float64

	// Reason explains an InvalidPolicy outcome.
	Reason string
}

// Detail describes a failed comparison. It is empty for a passing result.
func (r Result) Detail() string {
	switch r.Outcome {
	case Pass:
		return ""
	case SizeMismatch:
		return fmt.Sprintf("mismatched array sizes: N = %d but Nref = %d. Arrays: \nx = %s\nxref = %s",
			r.N, r.Nref, r.X, r.Xref)
	case NonFinite:
		return fmt.Sprintf("Some comparison results are NaN or Inf. %s. error_x_xref =\n%s",
			r.Metric, formatRows(r.Diff, r.X.data, r.Xref.data))
	case OutOfTolerance:
		return fmt.Sprintf("%s error = %s. x_xref_err =\n%s",
			r.Metric, formatFloat(r.Err), formatRows(r.X.data, r.Xref.data, r.Diff))
	case NotEqual:
		return fmt.Sprintf("x_xref =\n%s\n%s", r.X, r.Xref)
	case InvalidPolicy:
		return r.Reason
	default:
		return r.Outcome.String()
	}
}

var trailingSpace = regexp.MustCompile(`[ \t]+(\n|$)`)

// NormalizeText strips trailing spaces and tabs from every line of s.
func NormalizeText(s string) string {
	return trailingSpace.ReplaceAllString(s, "$1")
}

// Compare decides whether x equals xref under policy p. It never panics:
// every input pairing yields a definite verdict.
//
// The strategy is picked from the operand kinds. Two numeric values are
// compared with tolerance, two text values exactly after NormalizeText, and
// any other pairing by exact structural equality of the flattened elements.
// A single-element xref broadcasts against a longer x, never the other way
// around.
func Compare(x, xref Value, p Policy) Result {
	if err := p.Validate(); err != nil {
		return Result{Outcome: InvalidPolicy, X: x, Xref: xref, N: x.Len(), Nref: xref.Len(), Reason: err.Error()}
	}

	if x.kind == KindText {
		x = Text(NormalizeText(x.text))
	}
	if xref.kind == KindText {
		xref = Text(NormalizeText(xref.text))
	}

	res := Result{Metric: p.Metric(), X: x, Xref: xref, N: x.Len(), Nref: xref.Len()}

	if res.N != res.Nref {
		if res.Nref != 1 {
			res.Outcome = SizeMismatch
			return res
		}
		res.Xref = broadcast(xref, res.N)
		res.Nref = res.N
	}

	if res.N == 0 {
		res.Passed = true
		return res
	}

	if x.kind == KindNumeric && xref.kind == KindNumeric {
		return compareNumeric(res, p)
	}
	return compareStructural(res)
}

func compareNumeric(res Result, p Policy) Result {
	a, b := res.X.data, res.Xref.data
	if p.Basis == Relative {
		res.Diff = RelativeDiff(a, b)
	} else {
		res.Diff = make([]float64, len(a))
		floats.SubTo(res.Diff, a, b)
	}

	for _, d := range res.Diff {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			res.Err = math.NaN()
			res.Outcome = NonFinite
			return res
		}
	}

	res.Err = aggregate(res.Diff, p)
	if !(res.Err <= p.Eps) {
		res.Outcome = OutOfTolerance
		return res
	}
	res.Passed = true
	return res
}

func compareStructural(res Result) Result {
	if reflect.DeepEqual(res.X.elements(), res.Xref.elements()) {
		res.Passed = true
		return res
	}
	res.Outcome = NotEqual
	return res
}

// aggregate reduces diff to a single error per the policy's mode.
func aggregate(diff []float64, p Policy) float64 {
	abs := make([]float64, len(diff))
	for i, d := range diff {
		abs[i] = math.Abs(d)
	}
	switch p.Mode {
	case WorstCase:
		return floats.Max(abs)
	case Percentile:
		return PercentileHigher(abs, p.Percentile)
	default:
		return floats.Norm(diff, 2) / math.Sqrt(float64(len(diff)))
	}
}

// PercentileHigher returns the pct-th percentile of values. When the
// percentile falls between two samples the higher one is returned. values
// must be non-empty; it is not modified.
func PercentileHigher(values []float64, pct float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(pct / 100 * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// RelativeScale returns (|a|+|b|)/2 + RelativeEps elementwise.
func RelativeScale(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = (math.Abs(a[i])+math.Abs(b[i]))/2 + RelativeEps
	}
	return out
}

// RelativeDiff returns (a-b) / RelativeScale(a, b) elementwise.
func RelativeDiff(a, b []float64) []float64 {
	out := RelativeScale(a, b)
	for i := range out {
		out[i] = (a[i] - b[i]) / out[i]
	}
	return out
}

// broadcast repeats the single element of v n times.
func broadcast(v Value, n int) Value {
	switch v.kind {
	case KindNumeric:
		data := make([]float64, n)
		for i := range data {
			data[i] = v.data[0]
		}
		return Value{kind: KindNumeric, data: data, shape: []int{n}}
	case KindText:
		elems := make([]any, n)
		for i := range elems {
			elems[i] = v.text
		}
		return Value{kind: KindOpaque, elems: elems, shape: []int{n}}
	default:
		elems := make([]any, n)
		for i := range elems {
			elems[i] = v.elems[0]
		}
		return Value{kind: KindOpaque, elems: elems, shape: []int{n}}
	}
}
