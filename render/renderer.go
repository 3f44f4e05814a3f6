// Package render draws obstacle annotations onto camera images.
package render

import (
	iface "ObstacleVisServer/interface"
	"fmt"
	"image"
	"image/color"
	"math"
)

const (
	DefaultFontScale = 0.8
	labelAboveOffset = 5
	labelBelowOffset = 10
)

type Renderer struct {
	fontScale float64
}

func New(fontScale float64) *Renderer {
	if fontScale <= 0 {
		fontScale = DefaultFontScale
	}
	return &Renderer{fontScale: fontScale}
}

func (r *Renderer) FontScale() float64 {
	return r.fontScale
}

// Color returns palette entry i, wrapping around the table.
func (r *Renderer) Color(i int) color.RGBA {
	i %= PaletteSize
	if i < 0 {
		i += PaletteSize
	}
	return palette[i]
}

// Label is the text drawn next to each box: distance to the camera, both
// angles in degrees and the record id.
func Label(obj *iface.VisualObject) string {
	return fmt.Sprintf("%.2f m, alpha:%.2f deg, theta:%.2f deg, D:%d",
		obj.Distance(),
		obj.Alpha*180.0/math.Pi,
		obj.Theta*180.0/math.Pi,
		obj.ID)
}

// DrawBoxes outlines every object in white and writes its label above the box.
func (r *Renderer) DrawBoxes(objs []*iface.VisualObject, canvas iface.Canvas) {
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		b := obj.Bounds()
		canvas.Rectangle(b, ColorWhite, 1)
		canvas.PutText(Label(obj), image.Point{X: b.Min.X, Y: b.Min.Y - labelAboveOffset}, r.fontScale, ColorWhite)
	}
}

// DrawLabelsBelow writes the labels in black under each box without drawing
// the box, so a second annotation set can be compared against DrawBoxes output.
func (r *Renderer) DrawLabelsBelow(objs []*iface.VisualObject, canvas iface.Canvas) {
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		b := obj.Bounds()
		canvas.PutText(Label(obj), image.Point{X: b.Min.X, Y: b.Max.Y + labelBelowOffset}, r.fontScale, ColorBlack)
	}
}

// DrawCategoryBoxes outlines each object in the palette colour of its category.
func (r *Renderer) DrawCategoryBoxes(objs []*iface.VisualObject, canvas iface.Canvas) {
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		canvas.Rectangle(obj.Bounds(), r.Color(int(obj.Category)+1), 2)
	}
}
