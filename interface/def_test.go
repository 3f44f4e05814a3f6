package iface

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestVisualObject_SetCategory(t *testing.T) {
	obj := &VisualObject{}
	obj.SetCategory(Vehicle, 0.8)
	obj.SetCategory(Pedestrian, 0.6)

	nonzero := 0
	for i, s := range obj.CategoryScores {
		if s != 0 {
			nonzero++
			assert.Equal(t, int(Pedestrian), i)
			assert.Equal(t, 0.6, s)
		}
	}
	assert.Equal(t, 1, nonzero)
	assert.Equal(t, Pedestrian, obj.Category)
	assert.Equal(t, 0.6, obj.Score)

	obj.SetCategory(Category(42), 0.3)
	assert.Equal(t, Unknown, obj.Category)
	assert.Equal(t, 0.3, obj.CategoryScores[Unknown])
}

func TestVisualObject_Geometry(t *testing.T) {
	obj := &VisualObject{
		UpperLeft:  Point2D{X: 10.9, Y: 20.2},
		LowerRight: Point2D{X: 100.5, Y: 200.99},
		Center:     r3.Vec{X: 3, Y: 4, Z: 12},
	}
	assert.InDelta(t, 13.0, obj.Distance(), 1e-9)
	assert.Equal(t, image.Rect(10, 20, 100, 200), obj.Bounds())
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "UNKNOWN_UNMOVABLE", UnknownUnmovable.String())
	assert.Equal(t, "VEHICLE", Vehicle.String())
	assert.Equal(t, "INVALID", Category(-1).String())
	assert.Equal(t, 6, NumCategories)
}
