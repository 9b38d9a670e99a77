// Package geom provides the small set of 3D primitives shared by the
// perception pipeline: vectors and quaternions from gonum, oriented frames
// built from a single direction vector, and robust sample statistics.
package geom

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// refUp is the world reference axis used when constructing a frame from a
// single direction vector. Using a fixed reference keeps the construction
// stable when the primary axis is nearly vertical in the camera frame.
var refUp = r3.Vec{Z: 1}

// BodyDown is the fixed stand-in for the body's neck direction vector.
// The camera optical frame is down-positive in Y, so "down" is +Y.
var BodyDown = r3.Vec{Y: 1}

// Pose is an oriented frame in 3D: a position and a rotation expressed as a
// unit quaternion.
type Pose struct {
	Position    r3.Vec      `json:"position"`
	Orientation quat.Number `json:"orientation"`
}

// Frame is a right-handed orthonormal basis anchored at an origin. X is the
// primary axis the frame was built around.
type Frame struct {
	Origin  r3.Vec
	X, Y, Z r3.Vec
}

// FrameFromVector builds a right-handed frame whose X axis is the unit
// direction of v, anchored at origin. The Y axis is the component of the
// world reference axis perpendicular to X:
//
//	ŷ = x̂ × (ref × x̂)
//	ẑ = x̂ × ŷ
func FrameFromVector(v, origin r3.Vec) Frame {
	x := r3.Unit(v)
	y := r3.Unit(r3.Cross(x, r3.Cross(refUp, x)))
	z := r3.Cross(x, y)
	return Frame{Origin: origin, X: x, Y: y, Z: z}
}

// Pose returns the frame as a position + quaternion pose.
func (f Frame) Pose() Pose {
	return Pose{Position: f.Origin, Orientation: f.Quaternion()}
}

// Quaternion converts the frame's rotation (basis vectors as columns of the
// rotation matrix) to a unit quaternion using Shepperd's method: the largest
// of the four candidate components is computed first for numerical stability.
func (f Frame) Quaternion() quat.Number {
	m00, m01, m02 := f.X.X, f.Y.X, f.Z.X
	m10, m11, m12 := f.X.Y, f.Y.Y, f.Z.Y
	m20, m21, m22 := f.X.Z, f.Y.Z, f.Z.Z

	trace := m00 + m11 + m22
	var q quat.Number
	switch {
	case trace > 0:
		s := 2 * math.Sqrt(trace+1)
		q.Real = s / 4
		q.Imag = (m21 - m12) / s
		q.Jmag = (m02 - m20) / s
		q.Kmag = (m10 - m01) / s
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q.Real = (m21 - m12) / s
		q.Imag = s / 4
		q.Jmag = (m01 + m10) / s
		q.Kmag = (m02 + m20) / s
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q.Real = (m02 - m20) / s
		q.Imag = (m01 + m10) / s
		q.Jmag = s / 4
		q.Kmag = (m12 + m21) / s
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q.Real = (m10 - m01) / s
		q.Imag = (m02 + m20) / s
		q.Jmag = (m12 + m21) / s
		q.Kmag = s / 4
	}
	return q
}

// Rotate applies a unit quaternion rotation to a vector.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Median returns the median of the samples. The input is not modified.
// Returns NaN for an empty input.
func Median(samples []float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// Mean returns the arithmetic mean of the samples, NaN for empty input.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	return stat.Mean(samples, nil)
}
