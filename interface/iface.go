package iface

import (
	"image"
	"image/color"
)

type RetData struct {
	Success bool
	Data    any
}

type EngineConfig struct {
	Frame     Frame
	FontScale float64
	Horizon   float64
	Lateral   float64
}

// Canvas is the raster target of the renderer. Implementations clip
// coordinates outside the image instead of failing.
type Canvas interface {
	Rectangle(r image.Rectangle, c color.RGBA, thickness int)
	PutText(text string, org image.Point, scale float64, c color.RGBA)
}

// Annotator draws detections and ground truth onto a canvas.
type Annotator interface {
	Annotate(canvas Canvas, detections []*VisualObject, groundTruth []*VisualObject) RetData
	CheckConfig() EngineConfig
	Destroy()
}
