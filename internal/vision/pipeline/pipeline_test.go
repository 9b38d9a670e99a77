package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gesture.report/internal/config"
	"github.com/banshee-data/gesture.report/internal/vision/camera"
	"github.com/banshee-data/gesture.report/internal/vision/detect"
	"github.com/banshee-data/gesture.report/internal/vision/frame"
)

type detectorFunc func(ctx context.Context, image []byte) ([]detect.Detection, error)

func (f detectorFunc) Detect(ctx context.Context, image []byte) ([]detect.Detection, error) {
	return f(ctx, image)
}

func staticDetector(dets []detect.Detection) detect.Detector {
	return detectorFunc(func(context.Context, []byte) ([]detect.Detection, error) {
		return dets, nil
	})
}

func failingDetector() detect.Detector {
	return detectorFunc(func(context.Context, []byte) ([]detect.Detection, error) {
		return nil, errors.New("service unavailable")
	})
}

func testBundle(t *testing.T) *frame.Bundle {
	t.Helper()
	samples := make([]float32, 64*48)
	for i := range samples {
		samples[i] = 2.0
	}
	depth, err := frame.NewDepthImage(64, 48, samples)
	if err != nil {
		t.Fatalf("building depth: %v", err)
	}
	return &frame.Bundle{
		ID:          uuid.New(),
		SensorID:    "rgbd-lobby",
		Timestamp:   time.Now(),
		Color:       []byte{0xff, 0xd8},
		ColorWidth:  64,
		ColorHeight: 48,
		Depth:       depth,
		Intrinsics:  camera.Intrinsics{Fx: 50, Fy: 50, Cx: 32, Cy: 24, Width: 64, Height: 48},
	}
}

func testPipeline(t *testing.T, d detect.Detector) *Pipeline {
	t.Helper()
	p, err := New(d, config.EmptyTuningConfig())
	if err != nil {
		t.Fatalf("building pipeline: %v", err)
	}
	return p
}

func neckDetection(group int) detect.Detection {
	// Centered on the principal point so the neck resolves at (0, 0, depth).
	return detect.Detection{
		GroupID:     group,
		Label:       "Neck",
		Probability: 0.9,
		Box:         frame.Rect{X: 28, Y: 20, Width: 8, Height: 8},
	}
}

func TestProcessFrame_HappyPath(t *testing.T) {
	p := testPipeline(t, staticDetector([]detect.Detection{neckDetection(0)}))

	res := p.ProcessFrame(context.Background(), testBundle(t))

	if len(res.Persons) != 1 {
		t.Fatalf("got %d persons, want 1", len(res.Persons))
	}
	person := res.Persons[0]
	if person.GroupID != 0 {
		t.Errorf("person group = %d, want 0", person.GroupID)
	}
	if person.Position.Z != 2.0 {
		t.Errorf("person position z = %f, want 2.0", person.Position.Z)
	}
	if res.SensorID != "rgbd-lobby" {
		t.Errorf("sensor id not carried through: %q", res.SensorID)
	}
}

func TestProcessFrame_DetectorFailureDropsFrame(t *testing.T) {
	p := testPipeline(t, failingDetector())

	res := p.ProcessFrame(context.Background(), testBundle(t))

	if res == nil {
		t.Fatal("result must never be nil")
	}
	if len(res.Persons) != 0 {
		t.Errorf("failed detection must yield no persons, got %d", len(res.Persons))
	}
}

func TestProcessFrame_MalformedBundle(t *testing.T) {
	p := testPipeline(t, staticDetector(nil))

	b := testBundle(t)
	b.Depth = nil
	res := p.ProcessFrame(context.Background(), b)

	if res == nil || len(res.Persons) != 0 {
		t.Error("malformed bundle must yield an empty result, not a panic")
	}
}

func TestProcessFrame_PersonWithoutNeckDropped(t *testing.T) {
	p := testPipeline(t, staticDetector([]detect.Detection{{
		GroupID:     0,
		Label:       "Nose",
		Probability: 0.9,
		Box:         frame.Rect{X: 28, Y: 20, Width: 8, Height: 8},
	}}))

	res := p.ProcessFrame(context.Background(), testBundle(t))

	if len(res.Persons) != 0 {
		t.Errorf("skeleton without a neck must yield no person, got %d", len(res.Persons))
	}
	// The skeleton itself still appears in the visualisation markers.
	if len(res.Markers) != 1 || len(res.Markers[0].Joints) != 1 {
		t.Errorf("expected the neckless skeleton in markers, got %+v", res.Markers)
	}
}

func TestProcessFrame_MultiplePersons(t *testing.T) {
	p := testPipeline(t, staticDetector([]detect.Detection{
		neckDetection(0),
		{
			GroupID:     1,
			Label:       "Neck",
			Probability: 0.8,
			Box:         frame.Rect{X: 10, Y: 10, Width: 6, Height: 6},
		},
	}))

	res := p.ProcessFrame(context.Background(), testBundle(t))
	if len(res.Persons) != 2 {
		t.Fatalf("got %d persons, want 2", len(res.Persons))
	}
	if res.Persons[0].GroupID != 0 || res.Persons[1].GroupID != 1 {
		t.Errorf("persons out of group order: %+v", res.Persons)
	}
}

type recordingSink struct {
	results []*Result
	fail    bool
}

func (s *recordingSink) PersistPersons(res *Result) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.results = append(s.results, res)
	return nil
}

func (s *recordingSink) PublishPersons(res *Result) error {
	if s.fail {
		return errors.New("broker down")
	}
	s.results = append(s.results, res)
	return nil
}

func TestProcessFrame_Sinks(t *testing.T) {
	p := testPipeline(t, staticDetector([]detect.Detection{neckDetection(0)}))
	persist := &recordingSink{}
	publish := &recordingSink{}
	p.Persistence = persist
	p.Publisher = publish

	p.ProcessFrame(context.Background(), testBundle(t))

	if len(persist.results) != 1 {
		t.Errorf("persistence sink called %d times, want 1", len(persist.results))
	}
	if len(publish.results) != 1 {
		t.Errorf("publish sink called %d times, want 1", len(publish.results))
	}
}

func TestProcessFrame_SinkFailureDoesNotPropagate(t *testing.T) {
	p := testPipeline(t, staticDetector([]detect.Detection{neckDetection(0)}))
	p.Persistence = &recordingSink{fail: true}
	p.Publisher = &recordingSink{fail: true}

	res := p.ProcessFrame(context.Background(), testBundle(t))
	if len(res.Persons) != 1 {
		t.Error("sink failures must not affect the frame result")
	}
}
