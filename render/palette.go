package render

import "image/color"

const PaletteSize = 27

// palette holds every combination of 0, 128 and 255 per channel, blue
// varying fastest. Read it through Renderer.Color.
var palette = [PaletteSize]color.RGBA{
	{R: 0, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 128, A: 255},
	{R: 0, G: 0, B: 255, A: 255},
	{R: 0, G: 128, B: 0, A: 255},
	{R: 0, G: 128, B: 128, A: 255},
	{R: 0, G: 128, B: 255, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 0, G: 255, B: 128, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
	{R: 128, G: 0, B: 0, A: 255},
	{R: 128, G: 0, B: 128, A: 255},
	{R: 128, G: 0, B: 255, A: 255},
	{R: 128, G: 128, B: 0, A: 255},
	{R: 128, G: 128, B: 128, A: 255},
	{R: 128, G: 128, B: 255, A: 255},
	{R: 128, G: 255, B: 0, A: 255},
	{R: 128, G: 255, B: 128, A: 255},
	{R: 128, G: 255, B: 255, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 255, G: 0, B: 128, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 255, G: 128, B: 0, A: 255},
	{R: 255, G: 128, B: 128, A: 255},
	{R: 255, G: 128, B: 255, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 255, G: 255, B: 128, A: 255},
	{R: 255, G: 255, B: 255, A: 255},
}

var (
	ColorWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ColorBlack = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)
