// Package frame holds the synchronized RGB-D frame types delivered to the
// perception pipeline: the depth image, the camera intrinsics and the colour
// payload, plus the binary wire codec used on the transport.
package frame

import (
	"fmt"
	"math"
)

// Depth sample semantics: NaN means "no data" (the sensor returned nothing
// for this pixel); an exact zero means "sensor reported invalid". The two
// cases are handled differently by joint localisation.

// Rect is an axis-aligned pixel rectangle. Coordinates are kept as float64
// because detection rectangles are rescaled between colour and depth
// resolutions before sampling.
type Rect struct {
	X, Y          float64 // top-left offset
	Width, Height float64
}

// Expand returns the rectangle grown by pad pixels on all four sides.
func (r Rect) Expand(pad float64) Rect {
	return Rect{
		X:      r.X - pad,
		Y:      r.Y - pad,
		Width:  r.Width + 2*pad,
		Height: r.Height + 2*pad,
	}
}

// Scale returns the rectangle with all coordinates multiplied by s.
func (r Rect) Scale(s float64) Rect {
	return Rect{X: r.X * s, Y: r.Y * s, Width: r.Width * s, Height: r.Height * s}
}

// Center returns the rectangle's pixel center.
func (r Rect) Center() (u, v float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// DepthImage is a dense row-major array of depth samples in metres.
type DepthImage struct {
	Width   int
	Height  int
	Samples []float32
}

// NewDepthImage wraps samples as a depth image, validating dimensions.
func NewDepthImage(width, height int, samples []float32) (*DepthImage, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("depth dimensions must be positive, got %dx%d", width, height)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("depth sample count %d does not match %dx%d", len(samples), width, height)
	}
	return &DepthImage{Width: width, Height: height, Samples: samples}, nil
}

// At returns the depth sample at pixel (x, y). Callers must stay in bounds.
func (d *DepthImage) At(x, y int) float32 {
	return d.Samples[y*d.Width+x]
}

// Region extracts the samples covered by r. The rectangle must lie entirely
// inside the image: a rectangle that spills over any edge is rejected, not
// clamped. Fractional coordinates are truncated to the covered pixel grid.
func (d *DepthImage) Region(r Rect) ([]float32, bool) {
	x0 := int(math.Floor(r.X))
	y0 := int(math.Floor(r.Y))
	x1 := int(math.Ceil(r.X + r.Width))
	y1 := int(math.Ceil(r.Y + r.Height))

	if x0 < 0 || y0 < 0 || x1 > d.Width || y1 > d.Height || x1 <= x0 || y1 <= y0 {
		return nil, false
	}

	out := make([]float32, 0, (x1-x0)*(y1-y0))
	for y := y0; y < y1; y++ {
		row := d.Samples[y*d.Width : (y+1)*d.Width]
		out = append(out, row[x0:x1]...)
	}
	return out, true
}

// FiniteSamples returns every finite value in samples as float64.
func FiniteSamples(samples []float32) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		v := float64(s)
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// HasInvalidSentinel reports whether any sample is the sensor's "invalid"
// zero sentinel (as opposed to NaN "no data").
func HasInvalidSentinel(samples []float32) bool {
	for _, s := range samples {
		if s == 0 {
			return true
		}
	}
	return false
}
