package model

import "image"

// BBox 闭区间包围盒，MaxX/MaxY 为最后一个前景像素
type BBox struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Center 两角点中点，向下取整
func (b BBox) Center() image.Point {
	return image.Pt(floorDiv(b.MinX+b.MaxX, 2), floorDiv(b.MinY+b.MaxY, 2))
}

func (b BBox) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX+1, b.MaxY+1)
}

// Segment 一个 mask 导出后的结果
type Segment struct {
	Index  int          `json:"index"`
	Image  *image.NRGBA `json:"-"`
	BBox   BBox         `json:"bbox"`
	Pixels int          `json:"pixels"`
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
