// Package pipeline is the composition root of the perception flow: it runs
// detections, joint localisation, skeleton assembly, filtering and gesture
// classification over one synchronized frame at a time, and fans results out
// to optional persistence and publish sinks.
//
// Processing is strictly frame-synchronous: one bundle is fully processed
// before the next is accepted, and no state survives between frames.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/gesture.report/internal/config"
	"github.com/banshee-data/gesture.report/internal/monitoring"
	"github.com/banshee-data/gesture.report/internal/vision/camera"
	"github.com/banshee-data/gesture.report/internal/vision/detect"
	"github.com/banshee-data/gesture.report/internal/vision/frame"
	"github.com/banshee-data/gesture.report/internal/vision/geom"
	"github.com/banshee-data/gesture.report/internal/vision/gesture"
	"github.com/banshee-data/gesture.report/internal/vision/joints"
	"github.com/banshee-data/gesture.report/internal/vision/skeleton"
)

var logf = monitoring.Scoped("pipeline")

// Person is one detected person in a processed frame. Position is the neck
// joint; a skeleton whose neck did not survive filtering yields no Person.
type Person struct {
	GroupID  int        `json:"group_id"`
	Position r3.Vec     `json:"position"`
	Tags     []string   `json:"tags,omitempty"`
	Pointing *geom.Pose `json:"pointing_pose,omitempty"`
}

// SkeletonMarkers is the visualisation projection of one filtered skeleton:
// its resolved joint positions and the 3D segments of its valid links.
type SkeletonMarkers struct {
	GroupID int         `json:"group_id"`
	Joints  []r3.Vec    `json:"joints"`
	Links   [][2]r3.Vec `json:"links"`
}

// Result is the output of one processed frame. An empty Persons slice is a
// valid result: zero people this frame.
type Result struct {
	FrameID   uuid.UUID         `json:"frame_id"`
	SensorID  string            `json:"sensor_id"`
	Timestamp time.Time         `json:"timestamp"`
	Persons   []Person          `json:"persons"`
	Markers   []SkeletonMarkers `json:"markers,omitempty"`
}

// PersistenceSink writes frame results to storage. Implementations live
// outside the perception layers (e.g. internal/vision/storage/sqlite).
type PersistenceSink interface {
	PersistPersons(res *Result) error
}

// PublishSink sends frame results to external consumers.
type PublishSink interface {
	PublishPersons(res *Result) error
}

// Pipeline holds the per-deployment wiring. It carries no per-frame state.
type Pipeline struct {
	detector      detect.Detector
	classifier    *gesture.Classifier
	localizer     joints.Params
	linkThreshold float64
	detectTimeout time.Duration

	// Optional sinks; nil disables the corresponding output.
	Persistence PersistenceSink
	Publisher   PublishSink
}

// New builds a pipeline from the tuning config.
func New(detector detect.Detector, cfg *config.TuningConfig) (*Pipeline, error) {
	classifier, err := gesture.NewClassifier(gesture.Params{
		WaveHeuristic:     cfg.GetWaveHeuristic(),
		ArmNormThreshold:  cfg.GetArmNormThreshold(),
		NeckNormThreshold: cfg.GetNeckNormThreshold(),
	})
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		detector:   detector,
		classifier: classifier,
		localizer: joints.Params{
			ProbabilityThreshold: cfg.GetProbabilityThreshold(),
			Padding:              cfg.GetROIPaddingPx(),
		},
		linkThreshold: cfg.GetLinkLengthThreshold(),
		detectTimeout: cfg.GetDetectTimeout(),
	}, nil
}

// ProcessFrame runs the full perception flow over one bundle. Failures
// degrade to fewer results: a failed detection call or invalid bundle costs
// the whole frame, a bad detection costs one joint, a missing neck costs
// one person. No error crosses the per-frame boundary; the returned result
// is never nil.
func (p *Pipeline) ProcessFrame(ctx context.Context, b *frame.Bundle) *Result {
	res := &Result{Persons: []Person{}}
	if err := b.Validate(); err != nil {
		logf("dropping malformed frame: %v", err)
		return res
	}
	res.FrameID = b.ID
	res.SensorID = b.SensorID
	res.Timestamp = b.Timestamp

	cam, err := camera.NewModel(b.Intrinsics)
	if err != nil {
		logf("frame %s: unusable intrinsics: %v", b.ID, err)
		return res
	}

	detectCtx, cancel := context.WithTimeout(ctx, p.detectTimeout)
	defer cancel()
	dets, err := p.detector.Detect(detectCtx, b.Color)
	if err != nil {
		// Frame-fatal but pipeline-local: this frame produces nothing.
		logf("frame %s: detection failed, dropping frame: %v", b.ID, err)
		return res
	}

	localizer := joints.NewLocalizer(cam, p.localizer)
	js, _ := localizer.Localize(dets, b.Depth, b.ColorWidth, b.ColorHeight)

	for _, raw := range skeleton.Group(js) {
		filtered := skeleton.Filter(raw, p.linkThreshold)

		res.Markers = append(res.Markers, SkeletonMarkers{
			GroupID: filtered.GroupID,
			Joints:  skeleton.Points(filtered),
			Links:   skeleton.LinkSegments(filtered),
		})

		neck, ok := filtered.Point(skeleton.Neck)
		if !ok {
			// Person-local: no neck, no person.
			continue
		}

		person := Person{
			GroupID:  filtered.GroupID,
			Position: neck,
			Tags:     p.classifier.Tags(filtered),
		}
		if pose, ok := p.classifier.PointingPose(filtered); ok {
			person.Pointing = &pose
		}
		res.Persons = append(res.Persons, person)
	}

	p.sink(res)
	return res
}

// sink fans the result out to the optional outputs. Sink failures are
// logged and swallowed; they must not affect frame processing.
func (p *Pipeline) sink(res *Result) {
	if p.Persistence != nil {
		if err := p.Persistence.PersistPersons(res); err != nil {
			logf("frame %s: persisting persons: %v", res.FrameID, err)
		}
	}
	if p.Publisher != nil {
		if err := p.Publisher.PublishPersons(res); err != nil {
			logf("frame %s: publishing persons: %v", res.FrameID, err)
		}
	}
}
