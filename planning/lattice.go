// Package planning holds the lattice planner parameters that the annotation
// tools use to flag obstacles relevant to planning.
package planning

import (
	iface "ObstacleVisServer/interface"
	"math"
)

const (
	// DecisionHorizon is how far ahead, in meters, obstacles affect decisions.
	DecisionHorizon = 200.0
	// LateralEnterLaneThreshold is the lateral offset, in meters, under which
	// an obstacle counts as inside the ego lane.
	LateralEnterLaneThreshold = 2.0
)

type Params struct {
	DecisionHorizon           float64 `yaml:"decisionHorizon" json:"decisionHorizon"`
	LateralEnterLaneThreshold float64 `yaml:"lateralEnterLaneThreshold" json:"lateralEnterLaneThreshold"`
}

func DefaultParams() Params {
	return Params{
		DecisionHorizon:           DecisionHorizon,
		LateralEnterLaneThreshold: LateralEnterLaneThreshold,
	}
}

func (p Params) WithinDecisionHorizon(obj *iface.VisualObject) bool {
	return obj.Distance() <= p.DecisionHorizon
}

// InLane uses the camera frame x coordinate as the lateral offset.
func (p Params) InLane(obj *iface.VisualObject) bool {
	return math.Abs(obj.Center.X) <= p.LateralEnterLaneThreshold
}

type Summary struct {
	Total         int                    `json:"total"`
	WithinHorizon int                    `json:"withinHorizon"`
	InLane        int                    `json:"inLane"`
	ByCategory    map[iface.Category]int `json:"byCategory"`
}

func (p Params) Summarize(objs []*iface.VisualObject) Summary {
	s := Summary{ByCategory: make(map[iface.Category]int)}
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		s.Total++
		s.ByCategory[obj.Category]++
		if !p.WithinDecisionHorizon(obj) {
			continue
		}
		s.WithinHorizon++
		if p.InLane(obj) {
			s.InLane++
		}
	}
	return s
}
