// Package pose implements rigid-body rotation helpers used to synthesize and
// verify calibration scenarios.
//
// Rotations are Rodrigues vectors: the direction is the rotation axis and
// the norm is the angle in radians.
package pose

import "math"

// Vec3 is a 3-vector.
type Vec3 [3]float64

// Mat3 is a row-major 3×3 matrix.
type Mat3 [3][3]float64

// smallAngle2 is the squared rotation angle below which the small-angle
// limit of the Rodrigues formula is used.
const smallAngle2 = 1e-10

// RotatePoint rotates x by the Rodrigues vector r.
func RotatePoint(r, x Vec3) Vec3 {
	rg := constVec(r)
	xg := constVec(x)
	out := rotateCore(rg, xg)
	return values(out)
}

// RotatePointJac rotates x by r and returns the Jacobians of the result
// with respect to r (jr[i][j] = d out[i] / d r[j]) and x.
func RotatePointJac(r, x Vec3) (out Vec3, jr, jx Mat3) {
	rg := seedVec(r, 0)
	xg := seedVec(x, 3)
	res := rotateCore(rg, xg)
	for i := 0; i < 3; i++ {
		out[i] = res[i].v
		for j := 0; j < 3; j++ {
			jr[i][j] = res[i].d[j]
			jx[i][j] = res[i].d[3+j]
		}
	}
	return out, jr, jx
}

// rotateCore applies
//
//	xrot = x cos(th) + cross(r, x) sin(th)/th + r (r·x) (1 - cos(th))/th²
//
// switching to the th→0 limit x + cross(r, x) + r (r·x)/2 for tiny angles.
func rotateCore(r, x [3]dual) [3]dual {
	th2 := r[0].mul(r[0]).add(r[1].mul(r[1])).add(r[2].mul(r[2]))
	cross := [3]dual{
		r[1].mul(x[2]).sub(r[2].mul(x[1])),
		r[2].mul(x[0]).sub(r[0].mul(x[2])),
		r[0].mul(x[1]).sub(r[1].mul(x[0])),
	}
	inner := r[0].mul(x[0]).add(r[1].mul(x[1])).add(r[2].mul(x[2]))

	var out [3]dual
	if th2.v < smallAngle2 {
		for i := range out {
			out[i] = x[i].add(cross[i]).add(r[i].mul(inner).scale(0.5))
		}
		return out
	}

	th := th2.sqrt()
	s, c := th.sincos()
	oneMinusC := constant(1).sub(c)
	for i := range out {
		out[i] = x[i].mul(c).
			add(cross[i].mul(s).div(th)).
			add(r[i].mul(inner).mul(oneMinusC).div(th2))
	}
	return out
}

// dual is a forward-mode automatic-differentiation number carrying the
// derivatives with respect to six inputs: r then x.
type dual struct {
	v float64
	d [6]float64
}

func constant(v float64) dual { return dual{v: v} }

func constVec(v Vec3) [3]dual {
	return [3]dual{constant(v[0]), constant(v[1]), constant(v[2])}
}

// seedVec marks v as the independent variables at derivative offset off.
func seedVec(v Vec3, off int) [3]dual {
	var out [3]dual
	for i := range out {
		out[i].v = v[i]
		out[i].d[off+i] = 1
	}
	return out
}

func values(v [3]dual) Vec3 {
	return Vec3{v[0].v, v[1].v, v[2].v}
}

func (a dual) add(b dual) dual {
	out := dual{v: a.v + b.v}
	for i := range out.d {
		out.d[i] = a.d[i] + b.d[i]
	}
	return out
}

func (a dual) sub(b dual) dual {
	out := dual{v: a.v - b.v}
	for i := range out.d {
		out.d[i] = a.d[i] - b.d[i]
	}
	return out
}

func (a dual) mul(b dual) dual {
	out := dual{v: a.v * b.v}
	for i := range out.d {
		out.d[i] = a.d[i]*b.v + a.v*b.d[i]
	}
	return out
}

func (a dual) div(b dual) dual {
	out := dual{v: a.v / b.v}
	b2 := b.v * b.v
	for i := range out.d {
		out.d[i] = (a.d[i]*b.v - a.v*b.d[i]) / b2
	}
	return out
}

func (a dual) scale(k float64) dual {
	out := dual{v: a.v * k}
	for i := range out.d {
		out.d[i] = a.d[i] * k
	}
	return out
}

func (a dual) sqrt() dual {
	s := math.Sqrt(a.v)
	out := dual{v: s}
	for i := range out.d {
		out.d[i] = a.d[i] / (2 * s)
	}
	return out
}

func (a dual) sincos() (sin, cos dual) {
	s, c := math.Sincos(a.v)
	sin.v, cos.v = s, c
	for i := range a.d {
		sin.d[i] = c * a.d[i]
		cos.d[i] = -s * a.d[i]
	}
	return sin, cos
}
