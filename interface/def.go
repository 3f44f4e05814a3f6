package iface

import (
	"image"

	"gonum.org/v1/gonum/spatial/r3"
)

type Category int

const (
	Unknown Category = iota
	UnknownMovable
	UnknownUnmovable
	Pedestrian
	Bicycle
	Vehicle
)

const NumCategories = int(Vehicle) + 1

var categoryNames = [NumCategories]string{
	"UNKNOWN",
	"UNKNOWN_MOVABLE",
	"UNKNOWN_UNMOVABLE",
	"PEDESTRIAN",
	"BICYCLE",
	"VEHICLE",
}

func (c Category) Valid() bool {
	return c >= Unknown && c <= Vehicle
}

func (c Category) String() string {
	if !c.Valid() {
		return "INVALID"
	}
	return categoryNames[c]
}

// CategoryScores holds one confidence slot per category.
type CategoryScores [NumCategories]float64

type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VisualObject is one detected or ground-truth obstacle seen by the camera.
// Alpha is the observation angle and Theta the heading, both in radians.
type VisualObject struct {
	ID                  int            `json:"id"`
	Category            Category       `json:"category"`
	CategoryScores      CategoryScores `json:"categoryScores"`
	UpperLeft           Point2D        `json:"upperLeft"`
	LowerRight          Point2D        `json:"lowerRight"`
	Alpha               float64        `json:"alpha"`
	Theta               float64        `json:"theta"`
	Height              float64        `json:"height"`
	Width               float64        `json:"width"`
	Length              float64        `json:"length"`
	Center              r3.Vec         `json:"center"`
	Score               float64        `json:"score"`
	TruncatedHorizontal float64        `json:"truncatedHorizontal"`
	TruncatedVertical   float64        `json:"truncatedVertical"`
}

// SetCategory stores the category and score, leaving score as the only
// nonzero entry of CategoryScores.
func (o *VisualObject) SetCategory(category Category, score float64) {
	if !category.Valid() {
		category = Unknown
	}
	o.Category = category
	o.Score = score
	o.CategoryScores = CategoryScores{}
	o.CategoryScores[category] = score
}

// Distance is the euclidean norm of Center.
func (o *VisualObject) Distance() float64 {
	return r3.Norm(o.Center)
}

// Bounds truncates the image box to integer pixels.
func (o *VisualObject) Bounds() image.Rectangle {
	return image.Rectangle{
		Min: image.Point{X: int(o.UpperLeft.X), Y: int(o.UpperLeft.Y)},
		Max: image.Point{X: int(o.LowerRight.X), Y: int(o.LowerRight.Y)},
	}
}

// Frame describes the camera image the annotations refer to.
type Frame struct {
	Width      float64 `yaml:"width" json:"width"`
	Height     float64 `yaml:"height" json:"height"`
	EdgeMargin float64 `yaml:"edgeMargin" json:"edgeMargin"`
}

var DefaultFrame = Frame{
	Width:      1920,
	Height:     1080,
	EdgeMargin: 2.0,
}
