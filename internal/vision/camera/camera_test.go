package camera

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func testIntrinsics() Intrinsics {
	return Intrinsics{Fx: 500, Fy: 500, Cx: 320, Cy: 240, Width: 640, Height: 480}
}

func TestIntrinsicsFromK(t *testing.T) {
	k := [9]float64{500, 0, 320, 0, 510, 240, 0, 0, 1}
	in, err := IntrinsicsFromK(k, 640, 480)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Fx != 500 || in.Fy != 510 || in.Cx != 320 || in.Cy != 240 {
		t.Errorf("wrong parameters extracted: %+v", in)
	}
}

func TestIntrinsicsFromK_Invalid(t *testing.T) {
	k := [9]float64{0, 0, 320, 0, 500, 240, 0, 0, 1} // fx = 0
	if _, err := IntrinsicsFromK(k, 640, 480); err == nil {
		t.Error("expected error for zero focal length")
	}

	k = [9]float64{500, 0, 320, 0, 500, 240, 0, 0, 1}
	if _, err := IntrinsicsFromK(k, 0, 480); err == nil {
		t.Error("expected error for zero image width")
	}
}

func TestProjectPixelToRay_PrincipalPoint(t *testing.T) {
	m, err := NewModel(testIntrinsics())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ray := m.ProjectPixelToRay(320, 240)
	want := r3.Vec{Z: 1}
	if math.Abs(ray.X-want.X) > 1e-12 || math.Abs(ray.Y-want.Y) > 1e-12 || math.Abs(ray.Z-want.Z) > 1e-12 {
		t.Errorf("principal point ray = %v, want %v", ray, want)
	}
}

func TestProjectPixelToRay_UnitLength(t *testing.T) {
	m, err := NewModel(testIntrinsics())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pixels := [][2]float64{{0, 0}, {320, 240}, {639, 479}, {100, 400}}
	for _, px := range pixels {
		ray := m.ProjectPixelToRay(px[0], px[1])
		if math.Abs(r3.Norm(ray)-1) > 1e-12 {
			t.Errorf("ray for pixel %v is not unit length: %f", px, r3.Norm(ray))
		}
		if ray.Z <= 0 {
			t.Errorf("ray for pixel %v points backwards: %v", px, ray)
		}
	}
}

func TestProjectPixelToRay_Direction(t *testing.T) {
	m, err := NewModel(testIntrinsics())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Pixel right of and below the principal point: ray should lean +X, +Y.
	ray := m.ProjectPixelToRay(420, 340)
	if ray.X <= 0 || ray.Y <= 0 {
		t.Errorf("expected positive X and Y components, got %v", ray)
	}
}
