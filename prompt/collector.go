// Package prompt 把指针事件转换为原图坐标下的点/框提示
package prompt

import (
	"errors"
	"image"
	"math"

	"github.com/chaos-io/maskseg/model"
)

var ErrEmptyPrompt = errors.New("no prompt collected")

type Mode int

const (
	ModePoint Mode = iota
	ModeBox
)

func (m Mode) String() string {
	if m == ModeBox {
		return "box"
	}
	return "point"
}

type State int

const (
	StateIdle State = iota
	StateCollectingPoints
	StateDraggingBox
)

func (s State) String() string {
	switch s {
	case StateCollectingPoints:
		return "collecting-points"
	case StateDraggingBox:
		return "dragging-box"
	}
	return "idle"
}

// Marker 显示坐标下的一个点标记
type Marker struct {
	Pos   image.Point
	Label model.Label
}

// Overlay 需要画在显示图上的内容，坐标均为显示坐标
type Overlay struct {
	Markers []Marker
	Rect    *image.Rectangle
}

// Collector 提示收集状态机
//
// 显示坐标 d 与原图坐标 o 的关系为 o = round(d / scale)。
type Collector struct {
	mode  Mode
	state State
	label model.Label
	scale float64

	points  []model.Point
	markers []Marker

	box       *model.Box
	startX    float64 // 框起点，未取整的显示坐标
	startY    float64
	dragStart image.Point
	rect      *image.Rectangle
}

func NewCollector() *Collector {
	return &Collector{
		mode:  ModePoint,
		label: model.LabelPositive,
		scale: 1,
	}
}

func (c *Collector) Mode() Mode         { return c.mode }
func (c *Collector) State() State       { return c.state }
func (c *Collector) Label() model.Label { return c.label }
func (c *Collector) Scale() float64     { return c.scale }

// SetScale 换图时调用，已收集的提示随之作废
func (c *Collector) SetScale(scale float64) {
	if scale <= 0 {
		scale = 1
	}
	c.scale = scale
	c.Clear()
}

// SetMode 切换模式总是清空已收集的提示
func (c *Collector) SetMode(m Mode) {
	c.mode = m
	c.Clear()
}

func (c *Collector) SetLabel(l model.Label) {
	c.label = l
}

// ToOriginal 显示坐标换算为原图坐标
func (c *Collector) ToOriginal(dx, dy float64) image.Point {
	return image.Pt(int(math.Round(dx/c.scale)), int(math.Round(dy/c.scale)))
}

func (c *Collector) Press(dx, dy float64) {
	switch c.mode {
	case ModePoint:
		o := c.ToOriginal(dx, dy)
		c.points = append(c.points, model.Point{X: o.X, Y: o.Y, Label: c.label})
		c.markers = append(c.markers, Marker{Pos: displayPoint(dx, dy), Label: c.label})
		c.state = StateCollectingPoints
	case ModeBox:
		c.box = nil
		c.startX, c.startY = dx, dy
		c.dragStart = displayPoint(dx, dy)
		r := image.Rectangle{Min: c.dragStart, Max: c.dragStart}
		c.rect = &r
		c.state = StateDraggingBox
	}
}

func (c *Collector) Drag(dx, dy float64) {
	if c.state != StateDraggingBox {
		return
	}
	r := image.Rectangle{Min: c.dragStart, Max: displayPoint(dx, dy)}.Canon()
	c.rect = &r
}

func (c *Collector) Release(dx, dy float64) {
	if c.state != StateDraggingBox {
		return
	}
	end := displayPoint(dx, dy)
	r := image.Rectangle{Min: c.dragStart, Max: end}.Canon()
	c.rect = &r

	box := model.NewBox(c.ToOriginal(c.startX, c.startY), c.ToOriginal(dx, dy))
	c.box = &box
	c.state = StateIdle
}

// Clear 清空全部提示，回到 idle
func (c *Collector) Clear() {
	c.points = nil
	c.markers = nil
	c.box = nil
	c.rect = nil
	c.state = StateIdle
}

func (c *Collector) Points() []model.Point {
	return append([]model.Point(nil), c.points...)
}

func (c *Collector) Box() *model.Box {
	if c.box == nil {
		return nil
	}
	b := *c.box
	return &b
}

// Prompt 当前模式下已完成的提示；一个都没有时返回 ErrEmptyPrompt
func (c *Collector) Prompt() (model.Prompt, error) {
	switch c.mode {
	case ModeBox:
		if c.box != nil {
			return model.Prompt{Box: c.Box()}, nil
		}
	default:
		if len(c.points) > 0 {
			return model.Prompt{Points: c.Points()}, nil
		}
	}
	return model.Prompt{}, ErrEmptyPrompt
}

func (c *Collector) Overlay() Overlay {
	ov := Overlay{Markers: append([]Marker(nil), c.markers...)}
	if c.rect != nil {
		r := *c.rect
		ov.Rect = &r
	}
	return ov
}

func (o Overlay) IsEmpty() bool {
	return len(o.Markers) == 0 && o.Rect == nil
}

func displayPoint(dx, dy float64) image.Point {
	return image.Pt(int(math.Round(dx)), int(math.Round(dy)))
}
