// Package noise perturbs pixel observations with synthetic Gaussian noise.
//
// Observations are stored as triplets (x, y, weight). The noise added to
// each observation's pixel coordinates is scaled by stdev/weight, so
// low-confidence observations receive proportionally more noise; an
// observation with zero weight receives infinite noise. Tests use this to
// stress outlier handling.
package noise

import (
	"fmt"
	"math/rand/v2"
)

// Stride is the number of channels per observation: x, y and weight.
const Stride = 3

// OutlierScale multiplies the noise of observations chosen as outliers.
const OutlierScale = 20

// Observations is an immutable-by-convention array of (x, y, weight)
// triplets with an arbitrary leading shape.
type Observations struct {
	data  []float64
	shape []int
}

// NewObservations wraps a copy of data. The leading shape, when given,
// must multiply out to len(data)/Stride.
func NewObservations(data []float64, shape ...int) (Observations, error) {
	if len(data)%Stride != 0 {
		return Observations{}, fmt.Errorf("observations: length %d is not a multiple of %d", len(data), Stride)
	}
	n := len(data) / Stride
	if len(shape) == 0 {
		shape = []int{n}
	}
	total := 1
	for _, d := range shape {
		if d < 0 {
			return Observations{}, fmt.Errorf("observations: negative dimension in shape %v", shape)
		}
		total *= d
	}
	if total != n {
		return Observations{}, fmt.Errorf("observations: shape %v holds %d observations, data holds %d", shape, total, n)
	}
	return Observations{
		data:  append([]float64(nil), data...),
		shape: append([]int(nil), shape...),
	}, nil
}

// Len returns the number of observations.
func (o Observations) Len() int { return len(o.data) / Stride }

// Shape returns the leading shape, excluding the channel dimension.
func (o Observations) Shape() []int { return append([]int(nil), o.shape...) }

// At returns the pixel coordinates and weight of observation i.
func (o Observations) At(i int) (x, y, weight float64) {
	base := i * Stride
	return o.data[base], o.data[base+1], o.data[base+2]
}

// Weight returns the confidence weight of observation i.
func (o Observations) Weight(i int) float64 { return o.data[i*Stride+2] }

// Data returns a copy of the flat (x, y, weight) data.
func (o Observations) Data() []float64 { return append([]float64(nil), o.data...) }

// Clone returns a deep copy.
func (o Observations) Clone() Observations {
	return Observations{data: o.Data(), shape: o.Shape()}
}

// Outliers reports, per observation, whether it is marked as an outlier.
// Solvers mark outliers by making their weight negative.
func (o Observations) Outliers() []bool {
	out := make([]bool, o.Len())
	for i := range out {
		out[i] = o.Weight(i) < 0
	}
	return out
}

// Sampler draws reproducible noise. Its outlier index set is chosen on the
// first call that asks for outliers and reused afterwards, so repeated
// perturbations within one run share the same outliers.
//
// A Sampler is not safe for concurrent use.
type Sampler struct {
	rng      *rand.Rand
	outliers []int
}

// NewSampler returns a Sampler seeded with seed.
func NewSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// OutlierIndices returns the memoized outlier indices, or nil if none have
// been chosen yet.
func (s *Sampler) OutlierIndices() []int {
	if s.outliers == nil {
		return nil
	}
	out := make([]int, len(s.outliers))
	copy(out, s.outliers)
	return out
}

// Perturb returns the noise drawn for each observation's (x, y) as a flat
// Len()×2 slice, together with a perturbed copy of obs. Only the first two
// channels of the copy differ from obs; obs itself is not modified.
//
// When makeOutliers is set, the noise of 1% of the observations (chosen
// once per Sampler) is multiplied by OutlierScale.
func (s *Sampler) Perturb(obs Observations, stdev float64, makeOutliers bool) ([]float64, Observations) {
	n := obs.Len()
	q := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		scale := stdev / obs.Weight(i)
		q[2*i] = s.rng.NormFloat64() * scale
		q[2*i+1] = s.rng.NormFloat64() * scale
	}

	if makeOutliers {
		for _, i := range s.outlierSet(n) {
			q[2*i] *= OutlierScale
			q[2*i+1] *= OutlierScale
		}
	}

	perturbed := obs.Clone()
	for i := 0; i < n; i++ {
		perturbed.data[i*Stride] += q[2*i]
		perturbed.data[i*Stride+1] += q[2*i+1]
	}
	return q, perturbed
}

// outlierSet chooses n/100 distinct indices below n on first use. Later
// calls reuse the first choice; indices that fall outside a smaller
// observation set are skipped.
func (s *Sampler) outlierSet(n int) []int {
	if s.outliers == nil {
		s.outliers = s.rng.Perm(n)[:n/100]
	}
	set := make([]int, 0, len(s.outliers))
	for _, i := range s.outliers {
		if i < n {
			set = append(set, i)
		}
	}
	return set
}
