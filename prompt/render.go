package prompt

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/chaos-io/maskseg/model"
)

const (
	markerRadius = 5
	rectWidth    = 2
)

var (
	positiveColor = color.RGBA{G: 255, A: 255}
	negativeColor = color.RGBA{R: 255, A: 255}
	boxColor      = color.RGBA{G: 255, A: 255}
)

// MarkerColor 正点绿色，负点红色
func MarkerColor(l model.Label) color.Color {
	if l == model.LabelPositive {
		return positiveColor
	}
	return negativeColor
}

// Render 在 base 副本上画出 overlay，overlay 为空时直接返回副本
func Render(base image.Image, ov Overlay) image.Image {
	dc := gg.NewContextForImage(base)

	for _, m := range ov.Markers {
		dc.DrawCircle(float64(m.Pos.X), float64(m.Pos.Y), markerRadius)
		dc.SetColor(MarkerColor(m.Label))
		dc.Fill()
	}

	if ov.Rect != nil {
		r := *ov.Rect
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.SetColor(boxColor)
		dc.SetLineWidth(rectWidth)
		dc.Stroke()
	}

	return dc.Image()
}
