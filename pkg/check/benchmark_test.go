package check

import (
	"math"
	"testing"
)

// Run: go test -bench=. -benchmem ./pkg/check

func BenchmarkCompare_Scalar(b *testing.B) {
	p := DefaultPolicy()
	x, xref := Scalar(3.14159265358979), Scalar(3.14159265358980)

	b.ResetTimer()
	for b.Loop() {
		Compare(x, xref, p)
	}
}

func BenchmarkCompare_SmallArray(b *testing.B) {
	p := DefaultPolicy()
	x := Array([]float64{1, 2, 3, 4, 5})
	xref := Array([]float64{1, 2, 3, 4, 5.000001})

	b.ResetTimer()
	for b.Loop() {
		Compare(x, xref, p)
	}
}

func benchArrays(n int) (Value, Value) {
	x := make([]float64, n)
	xref := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
		xref[i] = float64(i) + 1e-9
	}
	return Array(x), Array(xref)
}

func BenchmarkCompare_LargeArrayRMS(b *testing.B) {
	p := DefaultPolicy()
	x, xref := benchArrays(10000)

	b.ResetTimer()
	for b.Loop() {
		Compare(x, xref, p)
	}
}

func BenchmarkCompare_LargeArrayRelativeWorstCase(b *testing.B) {
	p := DefaultPolicy().WithRelative().WithWorstCase()
	x, xref := benchArrays(10000)

	b.ResetTimer()
	for b.Loop() {
		Compare(x, xref, p)
	}
}

func BenchmarkCompare_LargeArrayPercentile(b *testing.B) {
	p := DefaultPolicy().WithPercentile(90)
	x, xref := benchArrays(10000)

	b.ResetTimer()
	for b.Loop() {
		Compare(x, xref, p)
	}
}

func BenchmarkCompare_Broadcast(b *testing.B) {
	p := DefaultPolicy()
	x, _ := benchArrays(10000)
	xref := Scalar(0)

	b.ResetTimer()
	for b.Loop() {
		Compare(x, xref, p)
	}
}

func BenchmarkCompare_Text(b *testing.B) {
	p := DefaultPolicy()
	x, xref := Text("line one  \nline two\t\n"), Text("line one\nline two\n")

	b.ResetTimer()
	for b.Loop() {
		Compare(x, xref, p)
	}
}

func BenchmarkCompare_NonFinite(b *testing.B) {
	p := DefaultPolicy()
	x := Array([]float64{1, math.NaN(), 3})
	xref := Array([]float64{1, 2, 3})

	b.ResetTimer()
	for b.Loop() {
		Compare(x, xref, p)
	}
}

func BenchmarkOf_DecodedGrid(b *testing.B) {
	grid := make([]any, 100)
	for i := range grid {
		grid[i] = []any{float64(i), float64(i + 1), float64(i + 2)}
	}

	b.ResetTimer()
	for b.Loop() {
		Of(grid)
	}
}

func BenchmarkPolicyValidate(b *testing.B) {
	p := DefaultPolicy().WithRelative().WithPercentile(95)

	b.ResetTimer()
	for b.Loop() {
		_ = p.Validate()
	}
}
