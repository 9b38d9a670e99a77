// Package camera provides the pinhole camera model used to back-project
// pixel coordinates into rays in the camera optical frame.
//
// The optical frame convention is +Z forward, +X right, +Y down, so a
// numerically smaller Y means "higher" in the scene.
package camera

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Intrinsics holds the pinhole parameters of a calibrated camera. They are
// delivered alongside each frame as a row-major 3x3 K matrix.
type Intrinsics struct {
	Fx, Fy float64 // focal lengths in pixels
	Cx, Cy float64 // principal point in pixels
	Width  int
	Height int
}

// IntrinsicsFromK extracts pinhole parameters from a row-major 3x3 camera
// matrix K = [fx 0 cx; 0 fy cy; 0 0 1].
func IntrinsicsFromK(k [9]float64, width, height int) (Intrinsics, error) {
	in := Intrinsics{Fx: k[0], Fy: k[4], Cx: k[2], Cy: k[5], Width: width, Height: height}
	if err := in.Validate(); err != nil {
		return Intrinsics{}, err
	}
	return in, nil
}

// Validate checks that the intrinsics describe a usable camera.
func (in Intrinsics) Validate() error {
	if in.Fx <= 0 || in.Fy <= 0 {
		return fmt.Errorf("focal lengths must be positive, got fx=%f fy=%f", in.Fx, in.Fy)
	}
	if in.Width <= 0 || in.Height <= 0 {
		return fmt.Errorf("image dimensions must be positive, got %dx%d", in.Width, in.Height)
	}
	return nil
}

// Model is a calibrated pinhole camera.
type Model struct {
	in Intrinsics
}

// NewModel builds a camera model from validated intrinsics.
func NewModel(in Intrinsics) (*Model, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid intrinsics: %w", err)
	}
	return &Model{in: in}, nil
}

// Intrinsics returns the model's pinhole parameters.
func (m *Model) Intrinsics() Intrinsics { return m.in }

// ProjectPixelToRay returns the unit ray through pixel (u, v) in the camera
// optical frame.
func (m *Model) ProjectPixelToRay(u, v float64) r3.Vec {
	ray := r3.Vec{
		X: (u - m.in.Cx) / m.in.Fx,
		Y: (v - m.in.Cy) / m.in.Fy,
		Z: 1,
	}
	return r3.Unit(ray)
}
