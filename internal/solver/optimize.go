package solver

import (
	"context"
	"fmt"

	"github.com/AndreyAkinshin/calcheck/pkg/noise"
)

// Optimize runs s on a deep copy of req, so the caller's request is never
// modified, and completes the response with the outlier mask.
//
// Parameter arrays the solver does not return are filled in from the
// request. No timeout is imposed beyond ctx.
func Optimize(ctx context.Context, s Solver, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	in := req.Clone()

	resp, err := s.Solve(ctx, in)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("solver returned no response")
	}

	res := &Result{Response: *resp}
	if res.Intrinsics == nil {
		res.Intrinsics = cloneRows(req.Intrinsics)
	}
	if res.ExtrinsicsRtFromref == nil {
		res.ExtrinsicsRtFromref = cloneRows(req.ExtrinsicsRtFromref)
	}
	if res.FramesRtToref == nil {
		res.FramesRtToref = cloneRows(req.FramesRtToref)
	}
	if res.CalobjectWarp == nil && req.CalobjectWarp != nil {
		res.CalobjectWarp = append([]float64(nil), req.CalobjectWarp...)
	}

	obs := res.Observations
	if obs == nil {
		obs = req.Observations
	}
	if len(obs) != len(req.Observations) {
		return nil, fmt.Errorf("solver returned %d observations, request had %d", len(obs), len(req.Observations))
	}
	res.Outliers = make([]bool, len(obs))
	for i, o := range obs {
		res.Outliers[i] = o[2] < 0
	}
	return res, nil
}

// WithNoise returns a copy of req whose observations are perturbed by the
// sampler.
func WithNoise(req *Request, s *noise.Sampler, stdev float64, makeOutliers bool) (*Request, error) {
	obs, err := req.ObservationSet()
	if err != nil {
		return nil, err
	}
	_, perturbed := s.Perturb(obs, stdev, makeOutliers)
	out := req.Clone()
	out.SetObservations(perturbed)
	return out, nil
}

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	out := *r
	out.Intrinsics = cloneRows(r.Intrinsics)
	out.ExtrinsicsRtFromref = cloneRows(r.ExtrinsicsRtFromref)
	out.FramesRtToref = cloneRows(r.FramesRtToref)
	if r.Observations != nil {
		out.Observations = append([][3]float64(nil), r.Observations...)
	}
	if r.ObservationShape != nil {
		out.ObservationShape = append([]int(nil), r.ObservationShape...)
	}
	if r.Indices != nil {
		out.Indices = append([][3]int(nil), r.Indices...)
	}
	if r.ImagerSizes != nil {
		out.ImagerSizes = append([][2]int(nil), r.ImagerSizes...)
	}
	if r.CalobjectWarp != nil {
		out.CalobjectWarp = append([]float64(nil), r.CalobjectWarp...)
	}
	return &out
}

func cloneRows(rows [][]float64) [][]float64 {
	if rows == nil {
		return nil
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
