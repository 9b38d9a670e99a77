// Package skeleton assembles localized joints into per-person skeletons and
// prunes anatomically implausible links.
package skeleton

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/gesture.report/internal/vision/geom"
	"github.com/banshee-data/gesture.report/internal/vision/joints"
)

// Skeleton is the set of joints for one detection group, keyed by joint
// name, together with the fixed link topology used to validate them. It is
// a pure per-frame value: rebuilt each frame, never persisted.
type Skeleton struct {
	GroupID int
	Joints  map[string]joints.Joint
}

// Joint returns the named joint, if present.
func (s Skeleton) Joint(name string) (joints.Joint, bool) {
	j, ok := s.Joints[name]
	return j, ok
}

// Point returns the named joint's 3D position if the joint is present and
// resolved. Unresolved joints are unusable for skeleton geometry.
func (s Skeleton) Point(name string) (r3.Vec, bool) {
	j, ok := s.Joints[name]
	if !ok || j.Point == nil {
		return r3.Vec{}, false
	}
	return *j.Point, true
}

// Group partitions joints by detection group into skeletons. Group order
// follows first appearance in the input, so output is deterministic for a
// given detection sequence. When a group carries two joints with the same
// name, the higher-probability one wins.
func Group(js []joints.Joint) []Skeleton {
	var order []int
	byGroup := make(map[int]map[string]joints.Joint)

	for _, j := range js {
		m, ok := byGroup[j.GroupID]
		if !ok {
			m = make(map[string]joints.Joint)
			byGroup[j.GroupID] = m
			order = append(order, j.GroupID)
		}
		if prev, dup := m[j.Name]; dup && prev.Probability >= j.Probability {
			continue
		}
		m[j.Name] = j
	}

	out := make([]Skeleton, 0, len(order))
	for _, gid := range order {
		out = append(out, Skeleton{GroupID: gid, Joints: byGroup[gid]})
	}
	return out
}

// Filter returns a new skeleton without the joints connected by implausibly
// long links. For every topology link whose endpoints are both resolved, a
// 3D distance above linkThreshold marks both endpoints for removal: one bad
// link invalidates both joints it connects, even if one of them also
// participates in valid links. The decision is single-pass, so filtering an
// already-filtered skeleton is a no-op.
func Filter(s Skeleton, linkThreshold float64) Skeleton {
	remove := make(map[string]bool)

	for _, link := range Topology {
		a, okA := s.Point(link.A)
		b, okB := s.Point(link.B)
		if !okA || !okB {
			continue
		}
		if geom.Dist(a, b) > linkThreshold {
			remove[link.A] = true
			remove[link.B] = true
		}
	}

	kept := make(map[string]joints.Joint, len(s.Joints))
	for name, j := range s.Joints {
		if !remove[name] {
			kept[name] = j
		}
	}
	return Skeleton{GroupID: s.GroupID, Joints: kept}
}

// LinkSegments projects the skeleton onto its topology: one 3D point pair
// per link whose endpoints are both resolved. Used for visualisation.
func LinkSegments(s Skeleton) [][2]r3.Vec {
	var segs [][2]r3.Vec
	for _, link := range Topology {
		a, okA := s.Point(link.A)
		b, okB := s.Point(link.B)
		if okA && okB {
			segs = append(segs, [2]r3.Vec{a, b})
		}
	}
	return segs
}

// Points returns the resolved joint positions in topology-stable order:
// joints are listed as they first appear in the topology table, so the
// projection is deterministic for visualisation and tests.
func Points(s Skeleton) []r3.Vec {
	seen := make(map[string]bool)
	var pts []r3.Vec
	appendJoint := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if p, ok := s.Point(name); ok {
			pts = append(pts, p)
		}
	}
	for _, link := range Topology {
		appendJoint(link.A)
		appendJoint(link.B)
	}
	return pts
}
