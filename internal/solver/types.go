// Package solver defines the request/response contract of the external
// calibration solver and the wrappers used to invoke it.
//
// The solver itself is an external program; calcheck never interprets its
// results beyond handing each field to the comparator.
package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/calcheck/pkg/noise"
)

// Request is the input of one solver run. Field names follow the solver's
// JSON contract.
type Request struct {
	Intrinsics          [][]float64 `json:"intrinsics" yaml:"intrinsics"`
	ExtrinsicsRtFromref [][]float64 `json:"extrinsics_rt_fromref" yaml:"extrinsics_rt_fromref"`
	FramesRtToref       [][]float64 `json:"frames_rt_toref" yaml:"frames_rt_toref"`

	// Observations holds (x, y, weight) triplets. ObservationShape is the
	// optional leading shape, e.g. [Nframes, H, W].
	Observations     [][3]float64 `json:"observations" yaml:"observations"`
	ObservationShape []int        `json:"observation_shape,omitempty" yaml:"observation_shape,omitempty"`

	// Indices maps each frame to (frame, camintrinsics, camextrinsics).
	Indices [][3]int `json:"indices_frame_camintrinsics_camextrinsics" yaml:"indices_frame_camintrinsics_camextrinsics"`

	LensModel   string   `json:"lensmodel" yaml:"lensmodel"`
	ImagerSizes [][2]int `json:"imagersizes" yaml:"imagersizes"`

	ObjectSpacing float64 `json:"calibration_object_spacing" yaml:"calibration_object_spacing"`
	ObjectWidthN  int     `json:"calibration_object_width_n" yaml:"calibration_object_width_n"`
	ObjectHeightN int     `json:"calibration_object_height_n" yaml:"calibration_object_height_n"`

	CalobjectWarp []float64 `json:"calobject_warp,omitempty" yaml:"calobject_warp,omitempty"`

	Optimize OptimizeFlags `json:"optimize" yaml:"optimize"`

	PixelUncertaintyStdev float64 `json:"observed_pixel_uncertainty" yaml:"observed_pixel_uncertainty"`

	// SkipOutlierRejection defaults to true; see DefaultRequest.
	SkipOutlierRejection bool `json:"skip_outlier_rejection" yaml:"skip_outlier_rejection"`
	SkipRegularization   bool `json:"skip_regularization" yaml:"skip_regularization"`
	GetCovariances       bool `json:"get_covariances" yaml:"get_covariances"`
}

// OptimizeFlags selects which parameter groups the solver may change.
type OptimizeFlags struct {
	IntrinsicCore        bool `json:"do_optimize_intrinsic_core" yaml:"do_optimize_intrinsic_core"`
	IntrinsicDistortions bool `json:"do_optimize_intrinsic_distortions" yaml:"do_optimize_intrinsic_distortions"`
	Extrinsics           bool `json:"do_optimize_extrinsics" yaml:"do_optimize_extrinsics"`
	Frames               bool `json:"do_optimize_frames" yaml:"do_optimize_frames"`
	CalobjectWarp        bool `json:"do_optimize_calobject_warp" yaml:"do_optimize_calobject_warp"`
}

// DefaultRequest returns a Request with the contract's defaults: nothing is
// optimized and outlier rejection is skipped.
func DefaultRequest() Request {
	return Request{SkipOutlierRejection: true}
}

// UnmarshalYAML decodes a request, starting from DefaultRequest.
func (r *Request) UnmarshalYAML(node *yaml.Node) error {
	type plain Request
	p := plain(DefaultRequest())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = Request(p)
	return nil
}

// UnmarshalJSON decodes a request, starting from DefaultRequest.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	p := plain(DefaultRequest())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Request(p)
	return nil
}

// ObservationSet returns the request's observations as a noise.Observations.
func (r *Request) ObservationSet() (noise.Observations, error) {
	data := make([]float64, 0, len(r.Observations)*noise.Stride)
	for _, o := range r.Observations {
		data = append(data, o[0], o[1], o[2])
	}
	return noise.NewObservations(data, r.ObservationShape...)
}

// SetObservations replaces the request's observations.
func (r *Request) SetObservations(obs noise.Observations) {
	data := obs.Data()
	r.Observations = make([][3]float64, obs.Len())
	for i := range r.Observations {
		copy(r.Observations[i][:], data[i*noise.Stride:(i+1)*noise.Stride])
	}
	r.ObservationShape = obs.Shape()
}

// Validate checks the structural consistency of the request.
func (r *Request) Validate() error {
	if len(r.Intrinsics) == 0 {
		return fmt.Errorf("request: no intrinsics")
	}
	if len(r.Indices) == 0 {
		return fmt.Errorf("request: no frame/camera indices")
	}
	for i, idx := range r.Indices {
		if idx[0] < 0 || idx[0] >= len(r.FramesRtToref) {
			return fmt.Errorf("request: indices[%d]: frame %d out of range", i, idx[0])
		}
		if idx[1] < 0 || idx[1] >= len(r.Intrinsics) {
			return fmt.Errorf("request: indices[%d]: camera %d out of range", i, idx[1])
		}
		if idx[2] < -1 || idx[2] >= len(r.ExtrinsicsRtFromref) {
			return fmt.Errorf("request: indices[%d]: extrinsics %d out of range", i, idx[2])
		}
	}
	if r.ObjectWidthN <= 0 || r.ObjectHeightN <= 0 {
		return fmt.Errorf("request: calibration object must be at least 1x1, got %dx%d", r.ObjectWidthN, r.ObjectHeightN)
	}
	if _, err := r.ObservationSet(); err != nil {
		return fmt.Errorf("request: %w", err)
	}
	return nil
}

// Response is the output of one solver run.
type Response struct {
	Intrinsics          [][]float64 `json:"intrinsics,omitempty"`
	ExtrinsicsRtFromref [][]float64 `json:"extrinsics_rt_fromref,omitempty"`
	FramesRtToref       [][]float64 `json:"frames_rt_toref,omitempty"`
	CalobjectWarp       []float64   `json:"calobject_warp,omitempty"`

	// Observations, when returned, carry the solver's outlier marks as
	// negative weights.
	Observations [][3]float64 `json:"observations,omitempty"`

	PPacked        []float64 `json:"p_packed"`
	X              []float64 `json:"x"`
	RMSReprojError float64   `json:"rms_reproj_error__pixels"`

	CovarianceIntrinsics       [][][]float64 `json:"covariance_intrinsics,omitempty"`
	CovarianceExtrinsics       [][]float64   `json:"covariance_extrinsics,omitempty"`
	CovariancesIEF             [][][]float64 `json:"covariances_ief,omitempty"`
	CovariancesIEFRotationOnly [][][]float64 `json:"covariances_ief_rotationonly,omitempty"`
}

// Solver runs one optimization.
type Solver interface {
	Solve(ctx context.Context, req *Request) (*Response, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, req *Request) (*Response, error)

// Solve calls f.
func (f SolverFunc) Solve(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Result is a solver response completed with the caller's inputs and the
// derived outlier mask.
type Result struct {
	Response
	// Outliers marks observations the solver rejected.
	Outliers []bool
}

// Field returns the named response field for checking. Names follow the
// JSON contract; "outliers" returns the outlier mask.
func (r *Result) Field(name string) (any, bool) {
	switch name {
	case "intrinsics":
		return r.Intrinsics, true
	case "extrinsics_rt_fromref":
		return r.ExtrinsicsRtFromref, true
	case "frames_rt_toref":
		return r.FramesRtToref, true
	case "calobject_warp":
		return r.CalobjectWarp, true
	case "outliers":
		return r.Outliers, true
	case "p_packed":
		return r.PPacked, true
	case "x":
		return r.X, true
	case "rms_reproj_error__pixels":
		return r.RMSReprojError, true
	case "covariance_intrinsics":
		return flatten3(r.CovarianceIntrinsics), true
	case "covariance_extrinsics":
		return r.CovarianceExtrinsics, true
	case "covariances_ief":
		return flatten3(r.CovariancesIEF), true
	case "covariances_ief_rotationonly":
		return flatten3(r.CovariancesIEFRotationOnly), true
	default:
		return nil, false
	}
}

// FieldNames lists the names Field accepts.
func FieldNames() []string {
	names := []string{
		"intrinsics", "extrinsics_rt_fromref", "frames_rt_toref", "calobject_warp",
		"outliers", "p_packed", "x", "rms_reproj_error__pixels",
		"covariance_intrinsics", "covariance_extrinsics",
		"covariances_ief", "covariances_ief_rotationonly",
	}
	sort.Strings(names)
	return names
}

// flatten3 concatenates a stack of matrices into one element sequence;
// shape does not matter once values are compared.
func flatten3(m [][][]float64) []float64 {
	var out []float64
	for _, a := range m {
		for _, row := range a {
			out = append(out, row...)
		}
	}
	return out
}
