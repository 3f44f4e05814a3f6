package planning

import (
	iface "ObstacleVisServer/interface"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func object(c iface.Category, center r3.Vec) *iface.VisualObject {
	obj := &iface.VisualObject{Center: center}
	obj.SetCategory(c, 1)
	return obj
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 200.0, p.DecisionHorizon)
	assert.Equal(t, 2.0, p.LateralEnterLaneThreshold)
}

func TestParams_Predicates(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name    string
		center  r3.Vec
		horizon bool
		inLane  bool
	}{
		{"ahead in lane", r3.Vec{X: 0.5, Y: 1, Z: 30}, true, true},
		{"lane boundary", r3.Vec{X: -2, Z: 10}, true, true},
		{"adjacent lane", r3.Vec{X: 3.5, Z: 10}, true, false},
		{"horizon boundary", r3.Vec{Z: 200}, true, true},
		{"beyond horizon", r3.Vec{Z: 250}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := object(iface.Vehicle, tt.center)
			assert.Equal(t, tt.horizon, p.WithinDecisionHorizon(obj))
			assert.Equal(t, tt.inLane, p.InLane(obj))
		})
	}
}

func TestSummarize(t *testing.T) {
	p := DefaultParams()
	objs := []*iface.VisualObject{
		object(iface.Vehicle, r3.Vec{X: 0, Z: 20}),
		object(iface.Vehicle, r3.Vec{X: 5, Z: 40}),
		object(iface.Pedestrian, r3.Vec{X: 1, Z: 300}),
		nil,
	}
	s := p.Summarize(objs)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.WithinHorizon)
	assert.Equal(t, 1, s.InLane)
	assert.Equal(t, map[iface.Category]int{iface.Vehicle: 2, iface.Pedestrian: 1}, s.ByCategory)

	empty := p.Summarize(nil)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.ByCategory)
}
