// Package joints lifts labelled 2D keypoint detections into 3D joints using
// the registered depth image and the camera model.
package joints

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/gesture.report/internal/vision/detect"
	"github.com/banshee-data/gesture.report/internal/vision/frame"
	"github.com/banshee-data/gesture.report/internal/vision/geom"
)

// RayProjector maps a pixel coordinate to a unit ray in the camera optical
// frame. Satisfied by camera.Model.
type RayProjector interface {
	ProjectPixelToRay(u, v float64) r3.Vec
}

// Joint is a named anatomical keypoint with an optional resolved 3D
// position. Point is nil when depth could not be resolved even after
// imputation; such joints are excluded from all downstream geometry but keep
// their pixel location for 2D-only consumers.
type Joint struct {
	GroupID     int
	Name        string
	Probability float64
	PixelU      float64 // region center in depth pixel coordinates
	PixelV      float64
	Point       *r3.Vec
}

// Params holds localisation tuning.
type Params struct {
	// ProbabilityThreshold discards detections below this confidence.
	ProbabilityThreshold float64
	// Padding grows each detection rectangle by this many pixels per side
	// before depth sampling.
	Padding float64
}

// DebugRegion is one extracted depth patch, collected only when the
// localizer runs with debug collection enabled. It is a diagnostic artifact,
// not part of the localisation contract.
type DebugRegion struct {
	GroupID int
	Label   string
	Rect    frame.Rect
	Samples []float32
}

// Localizer converts detections into joints. It is stateless across frames.
type Localizer struct {
	proj   RayProjector
	params Params

	// CollectDebug enables per-detection depth region capture.
	CollectDebug bool
}

// NewLocalizer builds a localizer over the given camera projector.
func NewLocalizer(proj RayProjector, params Params) *Localizer {
	return &Localizer{proj: proj, params: params}
}

// Localize converts one frame's detections into joints.
//
// Per detection: gate on probability, pad the rectangle, rescale it into
// depth resolution when the colour and depth images differ, and reject it
// outright if the padded rectangle leaves the depth image. The joint's depth
// is the median of the finite samples in the patch. A patch containing the
// sensor's zero "invalid" sentinel yields a depth-pending joint; a patch
// with no finite samples at all drops the detection.
//
// After the per-detection pass, pending joints are imputed from the mean Z
// of the joints directly resolved in the same detection group and
// re-projected along their own pixel ray. Pending joints in a group with no
// direct resolutions stay unresolved (nil Point).
func (l *Localizer) Localize(dets []detect.Detection, depth *frame.DepthImage, rgbWidth, rgbHeight int) ([]Joint, []DebugRegion) {
	joints := make([]Joint, 0, len(dets))
	var pending []int
	var debug []DebugRegion

	for _, det := range dets {
		if det.Probability < l.params.ProbabilityThreshold {
			continue
		}

		rect := det.Box.Expand(l.params.Padding)
		if rgbWidth != depth.Width {
			rect = rect.Scale(float64(depth.Width) / float64(rgbWidth))
		}

		region, ok := depth.Region(rect)
		if !ok {
			// Rectangle spills past the depth image; reject, don't clamp.
			continue
		}
		if l.CollectDebug {
			debug = append(debug, DebugRegion{
				GroupID: det.GroupID,
				Label:   det.Label,
				Rect:    rect,
				Samples: append([]float32(nil), region...),
			})
		}

		u, v := rect.Center()
		finite := frame.FiniteSamples(region)
		if len(finite) == 0 {
			// Every sample is NaN: nothing to measure or impute from.
			continue
		}

		j := Joint{
			GroupID:     det.GroupID,
			Name:        det.Label,
			Probability: det.Probability,
			PixelU:      u,
			PixelV:      v,
		}

		if frame.HasInvalidSentinel(region) {
			// Sensor reported invalid depth here. Recoverable: hold the
			// pixel center and impute from group neighbours below.
			joints = append(joints, j)
			pending = append(pending, len(joints)-1)
			continue
		}

		med := geom.Median(finite)
		ray := l.proj.ProjectPixelToRay(u, v)
		pt := r3.Scale(med, ray)
		j.Point = &pt
		joints = append(joints, j)
	}

	l.imputePending(joints, pending)
	return joints, debug
}

// imputePending assigns depth to sentinel-invalid joints from the mean Z of
// the directly resolved joints in the same group. Using only direct
// resolutions keeps the result independent of imputation order.
func (l *Localizer) imputePending(joints []Joint, pending []int) {
	if len(pending) == 0 {
		return
	}

	groupZ := make(map[int][]float64)
	for _, j := range joints {
		if j.Point != nil {
			groupZ[j.GroupID] = append(groupZ[j.GroupID], j.Point.Z)
		}
	}

	for _, idx := range pending {
		j := &joints[idx]
		zs := groupZ[j.GroupID]
		if len(zs) == 0 {
			// No resolved neighbours; joint stays unresolved.
			continue
		}
		meanZ := geom.Mean(zs)
		ray := l.proj.ProjectPixelToRay(j.PixelU, j.PixelV)
		// Scale the ray so the imputed point sits at the group's mean Z.
		pt := r3.Scale(meanZ/ray.Z, ray)
		j.Point = &pt
	}
}
