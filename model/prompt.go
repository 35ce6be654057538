package model

import "image"

// Label 点提示的极性，取值与 SAM 的 point_labels 一致
type Label int

const (
	LabelNegative Label = 0 // 背景/排除
	LabelPositive Label = 1 // 前景/点击
)

func (l Label) String() string {
	if l == LabelPositive {
		return "positive"
	}
	return "negative"
}

// Point 原图像素坐标下的一个点提示
type Point struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Label Label `json:"label"`
}

// Box 原图像素坐标下的框提示，X1<=X2, Y1<=Y2
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// NewBox 由任意两个对角点构造，坐标按 min/max 归一化
func NewBox(a, b image.Point) Box {
	return Box{
		X1: min(a.X, b.X),
		Y1: min(a.Y, b.Y),
		X2: max(a.X, b.X),
		Y2: max(a.Y, b.Y),
	}
}

func (b Box) Slice() []int {
	return []int{b.X1, b.Y1, b.X2, b.Y2}
}

// Prompt 点集与框互斥；零值表示自动分割
type Prompt struct {
	Points []Point `json:"points,omitempty"`
	Box    *Box    `json:"box,omitempty"`
}

func (p Prompt) IsEmpty() bool {
	return len(p.Points) == 0 && p.Box == nil
}
