// Package gesture derives wave tags and a pointing pose from a filtered
// skeleton's arm geometry. Classification is single-frame and stateless: no
// temporal filtering, no identity tracking.
package gesture

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/gesture.report/internal/config"
	"github.com/banshee-data/gesture.report/internal/vision/geom"
	"github.com/banshee-data/gesture.report/internal/vision/skeleton"
)

// Tags emitted by the classifier.
const (
	TagLeftWave   = "LWave"
	TagRightWave  = "RWave"
	TagIsPointing = "is_pointing"
)

// Params holds the classifier thresholds.
type Params struct {
	// WaveHeuristic selects the wave reference joint: the side's shoulder
	// or the head. Fixed at construction, not per call.
	WaveHeuristic string
	// ArmNormThreshold is the maximum lower-arm/upper-arm cross-product
	// norm for an arm to still count as straight enough to point.
	ArmNormThreshold float64
	// NeckNormThreshold is the minimum arm/neck cross-product norm: arms
	// nearly parallel to the body's vertical axis are not pointing.
	NeckNormThreshold float64
}

// Classifier computes wave tags and the pointing pose for one skeleton.
type Classifier struct {
	useHead  bool
	armNorm  float64
	neckNorm float64
}

// side bundles the joint names of one body side.
type side struct {
	wave     string
	shoulder string
	elbow    string
	wrist    string
}

var sides = []side{
	{wave: TagLeftWave, shoulder: skeleton.LShoulder, elbow: skeleton.LElbow, wrist: skeleton.LWrist},
	{wave: TagRightWave, shoulder: skeleton.RShoulder, elbow: skeleton.RElbow, wrist: skeleton.RWrist},
}

// NewClassifier validates the heuristic mode and builds a classifier.
func NewClassifier(p Params) (*Classifier, error) {
	var useHead bool
	switch p.WaveHeuristic {
	case config.WaveHeuristicShoulder:
	case config.WaveHeuristicHead:
		useHead = true
	default:
		return nil, fmt.Errorf("unknown wave heuristic %q", p.WaveHeuristic)
	}
	return &Classifier{
		useHead:  useHead,
		armNorm:  p.ArmNormThreshold,
		neckNorm: p.NeckNormThreshold,
	}, nil
}

// Tags returns the wave tags for the skeleton, plus the pointing tag when a
// pointing pose exists. A side missing any required joint is skipped
// silently; that is expected, not an error.
func (c *Classifier) Tags(s skeleton.Skeleton) []string {
	var tags []string
	for _, sd := range sides {
		ref := sd.shoulder
		if c.useHead {
			ref = skeleton.Head
		}
		refPt, okRef := s.Point(ref)
		wrist, okWrist := s.Point(sd.wrist)
		_, okElbow := s.Point(sd.elbow)
		if !okRef || !okWrist || !okElbow {
			continue
		}
		// Down-positive axis: the wrist is above the reference joint when
		// its vertical coordinate is numerically smaller.
		if wrist.Y < refPt.Y {
			tags = append(tags, sd.wave)
		}
	}
	if _, ok := c.PointingPose(s); ok {
		tags = append(tags, TagIsPointing)
	}
	return tags
}

// armCandidate is one side's pointing estimate.
type armCandidate struct {
	frame       geom.Frame
	armNeckNorm float64
}

// PointingPose estimates the pointing pose from arm geometry. Each side is
// evaluated independently; when both arms qualify, the one more
// perpendicular to the neck axis wins. Returns false when neither arm
// produces a valid estimate.
func (c *Classifier) PointingPose(s skeleton.Skeleton) (geom.Pose, bool) {
	var best *armCandidate
	for _, sd := range sides {
		cand, ok := c.evaluateArm(s, sd)
		if !ok {
			continue
		}
		if best == nil || cand.armNeckNorm > best.armNeckNorm {
			c2 := cand
			best = &c2
		}
	}
	if best == nil {
		return geom.Pose{}, false
	}
	return best.frame.Pose(), true
}

// evaluateArm computes one side's candidate frame and validity.
func (c *Classifier) evaluateArm(s skeleton.Skeleton, sd side) (armCandidate, bool) {
	shoulder, okS := s.Point(sd.shoulder)
	elbow, okE := s.Point(sd.elbow)
	if !okS || !okE {
		return armCandidate{}, false
	}

	upperArm := r3.Unit(r3.Sub(elbow, shoulder))
	frame := geom.FrameFromVector(upperArm, elbow)

	// How non-parallel the arm is to the body's vertical axis. Larger
	// means more extended sideways.
	armNeckNorm := r3.Norm(r3.Cross(geom.BodyDown, upperArm))

	if wrist, okW := s.Point(sd.wrist); okW {
		lowerArm := r3.Unit(r3.Sub(wrist, elbow))
		armBendNorm := r3.Norm(r3.Cross(lowerArm, upperArm))
		if armBendNorm > c.armNorm {
			// Too bent to be a pointing gesture.
			return armCandidate{}, false
		}
		// Straight arm: the full shoulder-to-wrist direction anchored at
		// the wrist supersedes the elbow-only estimate.
		frame = geom.FrameFromVector(r3.Sub(wrist, shoulder), wrist)
	}

	if armNeckNorm < c.neckNorm {
		return armCandidate{}, false
	}
	return armCandidate{frame: frame, armNeckNorm: armNeckNorm}, true
}
