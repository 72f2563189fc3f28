// Package check decides whether a computed value equals a reference value
// under a configurable tolerance policy.
//
// Operands are tagged up front by their kind. Numeric values are compared
// with a tolerance, text is compared exactly after trailing-whitespace
// normalization, and everything else falls back to structural equality:
//
//	res := check.Compare(check.Array(got, 3, 2), check.Scalar(0), check.DefaultPolicy())
//	if !res.Passed {
//	    fmt.Println(res.Detail())
//	}
package check

import (
	"fmt"
	"reflect"

	"gonum.org/v1/gonum/mat"
)

// Kind identifies the comparison strategy a Value selects.
type Kind int

const (
	// KindNumeric values hold floating-point or fixed-width integer data.
	KindNumeric Kind = iota
	// KindText values hold a string.
	KindText
	// KindOpaque values can only be compared structurally.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is an immutable, tagged comparison operand.
type Value struct {
	kind  Kind
	data  []float64
	shape []int
	text  string
	elems []any
}

// Scalar returns a numeric value holding a single element.
func Scalar(v float64) Value {
	return Value{kind: KindNumeric, data: []float64{v}}
}

// Array returns a numeric value over a copy of data. The optional shape
// describes how data is laid out in row-major order; it is kept for
// reporting only and must multiply out to len(data). Without a shape the
// value is one-dimensional.
func Array(data []float64, shape ...int) Value {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(data) {
		// An inconsistent shape is dropped; only element order and count
		// matter once values are flattened.
		shape = []int{len(data)}
	}
	return Value{
		kind:  KindNumeric,
		data:  append([]float64(nil), data...),
		shape: append([]int(nil), shape...),
	}
}

// Integer is the set of fixed-width integer types Ints accepts.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Ints returns a numeric value over integer data.
func Ints[T Integer](data []T, shape ...int) Value {
	f := make([]float64, len(data))
	for i, v := range data {
		f[i] = float64(v)
	}
	return Array(f, shape...)
}

// Matrix returns a numeric value over the elements of m in row-major order.
func Matrix(m mat.Matrix) Value {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return Value{kind: KindNumeric, data: data, shape: []int{r, c}}
}

// Grid returns a numeric value over a rectangular slice of rows. Ragged
// input cannot be treated numerically and yields an opaque value.
func Grid(rows [][]float64) Value {
	if len(rows) == 0 {
		return Array(nil, 0, 0)
	}
	width := len(rows[0])
	data := make([]float64, 0, len(rows)*width)
	for _, row := range rows {
		if len(row) != width {
			return Opaque(rows)
		}
		data = append(data, row...)
	}
	return Array(data, len(rows), width)
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Opaque returns a single-element value compared only by structural
// equality.
func Opaque(v any) Value {
	return Value{kind: KindOpaque, elems: []any{v}}
}

// Bools returns a structural value over a boolean mask. Booleans do not
// support arithmetic, so masks are always compared element by element.
func Bools(mask []bool) Value {
	elems := make([]any, len(mask))
	for i, b := range mask {
		elems[i] = b
	}
	return Value{kind: KindOpaque, elems: elems, shape: []int{len(mask)}}
}

// Of classifies a Go value into a Value. Numbers, numeric slices, rectangular
// numeric grids and gonum matrices become numeric, strings become text,
// boolean masks are compared element by element and anything else is opaque.
func Of(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case float64:
		return Scalar(x)
	case float32:
		return Scalar(float64(x))
	case int:
		return Scalar(float64(x))
	case int8:
		return Scalar(float64(x))
	case int16:
		return Scalar(float64(x))
	case int32:
		return Scalar(float64(x))
	case int64:
		return Scalar(float64(x))
	case uint:
		return Scalar(float64(x))
	case uint8:
		return Scalar(float64(x))
	case uint16:
		return Scalar(float64(x))
	case uint32:
		return Scalar(float64(x))
	case uint64:
		return Scalar(float64(x))
	case bool:
		return Opaque(x)
	case []bool:
		return Bools(x)
	case []float64:
		return Array(x)
	case []float32:
		f := make([]float64, len(x))
		for i, e := range x {
			f[i] = float64(e)
		}
		return Array(f)
	case []int:
		return Ints(x)
	case []int32:
		return Ints(x)
	case []int64:
		return Ints(x)
	case []uint8:
		return Ints(x)
	case [][]float64:
		return Grid(x)
	case mat.Matrix:
		return Matrix(x)
	case string:
		return Text(x)
	case []any:
		return ofList(x)
	default:
		return Opaque(v)
	}
}

// ofList handles decoded YAML/JSON sequences: a list whose leaves are all
// numbers and whose nesting is rectangular becomes numeric.
func ofList(list []any) Value {
	var data []float64
	shape, ok := listShape(list, &data)
	if !ok {
		if mask, isMask := boolList(list); isMask {
			return Bools(mask)
		}
		return Opaque(list)
	}
	return Array(data, shape...)
}

func listShape(list []any, data *[]float64) ([]int, bool) {
	if len(list) == 0 {
		return []int{0}, true
	}
	var inner []int
	for i, e := range list {
		var sub []int
		switch x := e.(type) {
		case []any:
			s, ok := listShape(x, data)
			if !ok {
				return nil, false
			}
			sub = s
		default:
			f, ok := toFloat(x)
			if !ok {
				return nil, false
			}
			*data = append(*data, f)
		}
		if i == 0 {
			inner = sub
		} else if !reflect.DeepEqual(inner, sub) {
			return nil, false
		}
	}
	return append([]int{len(list)}, inner...), true
}

func boolList(list []any) ([]bool, bool) {
	mask := make([]bool, len(list))
	for i, e := range list {
		b, ok := e.(bool)
		if !ok {
			return nil, false
		}
		mask[i] = b
	}
	return mask, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

// Kind reports the value's comparison strategy.
func (v Value) Kind() Kind { return v.kind }

// Len returns the number of elements once flattened. Text values count as
// a single element.
func (v Value) Len() int {
	switch v.kind {
	case KindNumeric:
		return len(v.data)
	case KindText:
		return 1
	default:
		return len(v.elems)
	}
}

// Shape returns a copy of the value's shape. Scalars have an empty shape.
func (v Value) Shape() []int {
	return append([]int(nil), v.shape...)
}

// Floats returns a copy of the flattened numeric data, or nil for
// non-numeric values.
func (v Value) Floats() []float64 {
	if v.kind != KindNumeric {
		return nil
	}
	return append([]float64(nil), v.data...)
}

// String formats the value for reports.
func (v Value) String() string {
	switch v.kind {
	case KindNumeric:
		if len(v.shape) == 0 && len(v.data) == 1 {
			return formatFloat(v.data[0])
		}
		return formatRow(v.data)
	case KindText:
		return fmt.Sprintf("%q", v.text)
	default:
		if len(v.shape) == 0 && len(v.elems) == 1 {
			return fmt.Sprintf("%v", v.elems[0])
		}
		return fmt.Sprintf("%v", v.elems)
	}
}

// elements returns the flattened element sequence used by structural
// comparison.
func (v Value) elements() []any {
	switch v.kind {
	case KindNumeric:
		out := make([]any, len(v.data))
		for i, f := range v.data {
			out[i] = f
		}
		return out
	case KindText:
		return []any{v.text}
	default:
		return v.elems
	}
}
