package check

import (
	"math"
	"strings"
	"testing"
)

func TestCompare_EqualArraysPassEveryPolicy(t *testing.T) {
	t.Parallel()

	x := []float64{1, -2.5, 3e10, 0, 1e-12}
	policies := []Policy{
		DefaultPolicy(),
		DefaultPolicy().WithEps(0),
		DefaultPolicy().WithRelative(),
		DefaultPolicy().WithRelative().WithEps(0),
		DefaultPolicy().WithWorstCase().WithEps(0),
		DefaultPolicy().WithPercentile(0).WithEps(0),
		DefaultPolicy().WithPercentile(100).WithEps(0),
		DefaultPolicy().WithEps(math.Inf(1)),
	}

	for _, p := range policies {
		t.Run(p.String(), func(t *testing.T) {
			t.Parallel()
			res := Compare(Array(x, 5), Array(x, 5), p)
			if !res.Passed {
				t.Errorf("Compare() failed: %s", res.Detail())
			}
		})
	}
}

func TestCompare_ScalarBroadcast(t *testing.T) {
	t.Parallel()

	x := []float64{2, 2.0000001, 1.9999999}
	p := DefaultPolicy()

	broadcasted := Compare(Array(x), Scalar(2), p)
	filled := Compare(Array(x), Array([]float64{2, 2, 2}), p)

	if broadcasted.Passed != filled.Passed {
		t.Errorf("broadcast verdict %v != filled verdict %v", broadcasted.Passed, filled.Passed)
	}
	if broadcasted.Err != filled.Err {
		t.Errorf("broadcast err %v != filled err %v", broadcasted.Err, filled.Err)
	}
	if broadcasted.Nref != 3 {
		t.Errorf("Nref = %d, want 3", broadcasted.Nref)
	}
}

func TestCompare_ScalarDoesNotBroadcastAgainstReference(t *testing.T) {
	t.Parallel()

	res := Compare(Scalar(2), Array([]float64{2, 2, 2}), DefaultPolicy())
	if res.Passed {
		t.Fatal("scalar x against array xref passed")
	}
	if res.Outcome != SizeMismatch {
		t.Errorf("Outcome = %v, want %v", res.Outcome, SizeMismatch)
	}
}

func TestCompare_SizeMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x    []float64
		xref []float64
	}{
		{"longer x", []float64{1, 2, 3}, []float64{1, 2}},
		{"longer xref", []float64{1, 2}, []float64{1, 2, 3}},
		{"empty x", nil, []float64{1, 2}},
	}

	policies := []Policy{
		DefaultPolicy().WithEps(math.Inf(1)),
		DefaultPolicy().WithWorstCase(),
		DefaultPolicy().WithPercentile(50),
		DefaultPolicy().WithRelative(),
	}

	for _, tt := range tests {
		for _, p := range policies {
			t.Run(tt.name+"/"+p.String(), func(t *testing.T) {
				t.Parallel()
				res := Compare(Array(tt.x), Array(tt.xref), p)
				if res.Passed || res.Outcome != SizeMismatch {
					t.Errorf("Compare() = %v/%v, want size mismatch", res.Passed, res.Outcome)
				}
				if !strings.Contains(res.Detail(), "mismatched array sizes") {
					t.Errorf("Detail() = %q, want size mismatch report", res.Detail())
				}
			})
		}
	}
}

func TestCompare_EmptyIsVacuousPass(t *testing.T) {
	t.Parallel()

	if res := Compare(Array(nil), Array(nil), DefaultPolicy()); !res.Passed {
		t.Errorf("empty vs empty failed: %s", res.Detail())
	}
	if res := Compare(Array(nil), Scalar(7), DefaultPolicy()); !res.Passed {
		t.Errorf("empty vs scalar failed: %s", res.Detail())
	}
}

func TestCompare_NaNAlwaysFails(t *testing.T) {
	t.Parallel()

	xref := []float64{1, 2, 3, 4}
	for i := range xref {
		x := append([]float64(nil), xref...)
		x[i] = math.NaN()

		for _, p := range []Policy{
			DefaultPolicy().WithEps(math.Inf(1)),
			DefaultPolicy().WithWorstCase().WithEps(math.Inf(1)),
			DefaultPolicy().WithPercentile(0).WithEps(math.Inf(1)),
			DefaultPolicy().WithRelative().WithEps(math.Inf(1)),
		} {
			res := Compare(Array(x), Array(xref), p)
			if res.Passed {
				t.Errorf("NaN at %d passed under %s", i, p)
			}
			if res.Outcome != NonFinite {
				t.Errorf("Outcome = %v, want %v", res.Outcome, NonFinite)
			}
		}
	}
}

func TestCompare_InfFails(t *testing.T) {
	t.Parallel()

	res := Compare(Array([]float64{1, math.Inf(1)}), Array([]float64{1, 2}), DefaultPolicy().WithEps(math.Inf(1)))
	if res.Passed || res.Outcome != NonFinite {
		t.Errorf("Compare() = %v/%v, want non-finite failure", res.Passed, res.Outcome)
	}
	if !strings.Contains(res.Detail(), "NaN or Inf") {
		t.Errorf("Detail() = %q", res.Detail())
	}
}

func TestCompare_RMSThreshold(t *testing.T) {
	t.Parallel()

	const d = 0.1
	x := Array([]float64{1, 1})
	xref := Array([]float64{1 - d, 1 + d})

	if res := Compare(x, xref, DefaultPolicy().WithEps(d*1.01)); !res.Passed {
		t.Errorf("eps=1.01d failed: %s", res.Detail())
	}
	res := Compare(x, xref, DefaultPolicy().WithEps(d*0.99))
	if res.Passed {
		t.Error("eps=0.99d passed")
	}
	if res.Outcome != OutOfTolerance {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutOfTolerance)
	}
}

func TestCompare_WorstCaseVersusRMS(t *testing.T) {
	t.Parallel()

	x := Array([]float64{0, 0, 0, 10})
	xref := Array([]float64{0, 0, 0, 0})

	rms := Compare(x, xref, DefaultPolicy().WithEps(6))
	if !rms.Passed {
		t.Errorf("RMS failed: %s", rms.Detail())
	}
	if math.Abs(rms.Err-5) > 1e-12 {
		t.Errorf("RMS err = %v, want 5", rms.Err)
	}

	worst := Compare(x, xref, DefaultPolicy().WithWorstCase().WithEps(6))
	if worst.Passed {
		t.Error("worst-case passed")
	}
	if worst.Err != 10 {
		t.Errorf("worst-case err = %v, want 10", worst.Err)
	}
	if !strings.Contains(worst.Detail(), "worst-case error = 10") {
		t.Errorf("Detail() = %q", worst.Detail())
	}
}

func TestCompare_Percentile(t *testing.T) {
	t.Parallel()

	x := Array([]float64{1, 2, 3, 4})
	xref := Array([]float64{0, 0, 0, 0})

	tests := []struct {
		pct  float64
		want float64
	}{
		{0, 1},
		{25, 2},
		{50, 3},
		{90, 4},
		{100, 4},
	}

	for _, tt := range tests {
		res := Compare(x, xref, DefaultPolicy().WithPercentile(tt.pct).WithEps(100))
		if res.Err != tt.want {
			t.Errorf("percentile %v: err = %v, want %v", tt.pct, res.Err, tt.want)
		}
	}
}

func TestCompare_Relative(t *testing.T) {
	t.Parallel()

	// Both operands near zero: the relative epsilon keeps the error finite.
	res := Compare(Scalar(1e-9), Scalar(0), DefaultPolicy().WithRelative().WithEps(1e-3))
	if !res.Passed {
		t.Errorf("near-zero relative failed: %s", res.Detail())
	}

	res = Compare(Scalar(1e6+1), Scalar(1e6), DefaultPolicy().WithRelative().WithEps(1e-5))
	if !res.Passed {
		t.Errorf("large relative failed: %s", res.Detail())
	}

	res = Compare(Scalar(1e6+1), Scalar(1e6), DefaultPolicy().WithEps(1e-5))
	if res.Passed {
		t.Error("large absolute passed")
	}
}

func TestCompare_Text(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x    string
		xref string
		pass bool
	}{
		{"trailing spaces and tabs", "a \nb\t\n", "a\nb\n", true},
		{"trailing at end of string", "a\nb  ", "a\nb", true},
		{"case differs", "a\nB\n", "a\nb\n", false},
		{"leading space kept", "a \n b\t\n", "a\nb\n", false},
		{"identical", "calibration", "calibration", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Compare(Text(tt.x), Text(tt.xref), DefaultPolicy().WithEps(math.Inf(1)))
			if res.Passed != tt.pass {
				t.Errorf("Compare(%q, %q) = %v, want %v", tt.x, tt.xref, res.Passed, tt.pass)
			}
		})
	}
}

// Mixed-kind pairings take the structural fallback. Whether callers rely on
// this path intentionally is not established; these cases pin the verdicts.
func TestCompare_StructuralFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x    Value
		xref Value
		pass bool
	}{
		{"numeric vs text", Scalar(1), Text("1"), false},
		{"equal masks", Bools([]bool{true, false}), Bools([]bool{true, false}), true},
		{"different masks", Bools([]bool{true, false}), Bools([]bool{true, true}), false},
		{"mask vs broadcast bool", Bools([]bool{false, false}), Of(false), true},
		{"equal opaque", Opaque(struct{ A int }{1}), Opaque(struct{ A int }{1}), true},
		{"different opaque", Opaque(struct{ A int }{1}), Opaque(struct{ A int }{2}), false},
		{"numeric vs mask", Array([]float64{1, 0}), Bools([]bool{true, false}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Compare(tt.x, tt.xref, DefaultPolicy().WithEps(math.Inf(1)))
			if res.Passed != tt.pass {
				t.Errorf("Compare() = %v, want %v (%s)", res.Passed, tt.pass, res.Detail())
			}
			if !res.Passed && res.Outcome != NotEqual {
				t.Errorf("Outcome = %v, want %v", res.Outcome, NotEqual)
			}
		})
	}
}

func TestCompare_InvalidPolicy(t *testing.T) {
	t.Parallel()

	res := Compare(Scalar(1), Scalar(1), Policy{Mode: "median"})
	if res.Passed {
		t.Fatal("invalid policy passed")
	}
	if res.Outcome != InvalidPolicy {
		t.Errorf("Outcome = %v, want %v", res.Outcome, InvalidPolicy)
	}
	if !strings.Contains(res.Detail(), "invalid mode") {
		t.Errorf("Detail() = %q", res.Detail())
	}
}

func TestCompare_DoesNotMutateOperands(t *testing.T) {
	t.Parallel()

	data := []float64{3, 1, 2}
	x := Array(data)
	xref := Array([]float64{0, 0, 0})
	_ = Compare(x, xref, DefaultPolicy().WithPercentile(50))

	got := x.Floats()
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("x[%d] = %v, want %v", i, got[i], data[i])
		}
	}
}

func TestPercentileHigher(t *testing.T) {
	t.Parallel()

	values := []float64{5, 1, 4, 2, 3}
	if got := PercentileHigher(values, 50); got != 3 {
		t.Errorf("PercentileHigher(50) = %v, want 3", got)
	}
	if got := PercentileHigher(values, 60); got != 4 {
		t.Errorf("PercentileHigher(60) = %v, want 4", got)
	}
	if values[0] != 5 {
		t.Error("PercentileHigher sorted its input")
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	if got := NormalizeText("x \t\ny  \n z"); got != "x\ny\n z" {
		t.Errorf("NormalizeText() = %q", got)
	}
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	for o := Pass; o <= InvalidPolicy; o++ {
		if strings.HasPrefix(o.String(), "Outcome(") {
			t.Errorf("Outcome %d has no name", int(o))
		}
	}
	if got := Outcome(99).String(); got != "Outcome(99)" {
		t.Errorf("String() = %q", got)
	}
}
