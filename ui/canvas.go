package ui

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/chaos-io/maskseg/imgproc"
	"github.com/chaos-io/maskseg/model"
	"github.com/chaos-io/maskseg/prompt"
)

var (
	_ desktop.Mouseable = (*PromptCanvas)(nil)
	_ fyne.Draggable    = (*PromptCanvas)(nil)
)

// PromptCanvas 显示缩放后的图片并把指针事件交给 Collector
//
// 控件坐标与显示图片像素一一对应，左上角为原点。collector 只能经由本控件的方法访问。
type PromptCanvas struct {
	widget.BaseWidget

	mu        sync.Mutex
	collector *prompt.Collector
	raster    *canvas.Image
	maxW      int
	maxH      int
	disabled  bool

	base     image.Image // 当前显示底图，已缩放
	lastDrag fyne.Position
}

func NewPromptCanvas(c *prompt.Collector, maxW, maxH int) *PromptCanvas {
	pc := &PromptCanvas{
		collector: c,
		raster:    &canvas.Image{FillMode: canvas.ImageFillStretch},
		maxW:      maxW,
		maxH:      maxH,
	}
	pc.ExtendBaseWidget(pc)
	return pc
}

func (pc *PromptCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(pc.raster)
}

// SetImage 换图，提示清空并重新计算缩放比例
func (pc *PromptCanvas) SetImage(img image.Image) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	b := img.Bounds()
	pc.collector.SetScale(imgproc.FitScale(b.Dx(), b.Dy(), pc.maxW, pc.maxH))
	pc.setBase(img)
}

// SetBase 替换底图（原图尺寸）但保留当前缩放比例和已收集的提示
func (pc *PromptCanvas) SetBase(img image.Image) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.setBase(img)
}

// Reset 清空提示；img 非空时同时换回该底图
func (pc *PromptCanvas) Reset(img image.Image) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.collector.Clear()
	pc.resetBase(img)
}

// SetMode 切换模式会清空提示
func (pc *PromptCanvas) SetMode(m prompt.Mode, img image.Image) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.collector.SetMode(m)
	pc.resetBase(img)
}

func (pc *PromptCanvas) Mode() prompt.Mode {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.collector.Mode()
}

func (pc *PromptCanvas) SetLabel(l model.Label) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.collector.SetLabel(l)
}

func (pc *PromptCanvas) Prompt() (model.Prompt, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.collector.Prompt()
}

// Disable 期间忽略全部指针事件
func (pc *PromptCanvas) Disable() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.disabled = true
}

func (pc *PromptCanvas) Enable() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.disabled = false
}

func (pc *PromptCanvas) Disabled() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.disabled
}

// Image 当前画布上的内容（底图 + 提示标记）
func (pc *PromptCanvas) Image() image.Image {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.raster.Image
}

func (pc *PromptCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if !pc.accepting() {
		return
	}
	pc.lastDrag = ev.Position
	pc.collector.Press(float64(ev.Position.X), float64(ev.Position.Y))
	pc.redraw()
}

func (pc *PromptCanvas) MouseUp(ev *desktop.MouseEvent) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.release(ev.Position)
}

func (pc *PromptCanvas) Dragged(ev *fyne.DragEvent) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if !pc.accepting() {
		return
	}
	pc.lastDrag = ev.Position
	pc.collector.Drag(float64(ev.Position.X), float64(ev.Position.Y))
	pc.redraw()
}

// DragEnd 没有位置信息，用最后一次拖动的位置结束框选
func (pc *PromptCanvas) DragEnd() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.release(pc.lastDrag)
}

func (pc *PromptCanvas) accepting() bool {
	return pc.base != nil && !pc.disabled
}

func (pc *PromptCanvas) release(pos fyne.Position) {
	if !pc.accepting() || pc.collector.State() != prompt.StateDraggingBox {
		return
	}
	pc.collector.Release(float64(pos.X), float64(pos.Y))
	pc.redraw()
}

func (pc *PromptCanvas) resetBase(img image.Image) {
	if img != nil {
		pc.setBase(img)
		return
	}
	pc.redraw()
}

func (pc *PromptCanvas) setBase(img image.Image) {
	pc.base = Scaled(img, pc.collector.Scale())
	b := pc.base.Bounds()
	pc.raster.SetMinSize(fyne.NewSize(float32(b.Dx()), float32(b.Dy())))
	pc.redraw()
}

func (pc *PromptCanvas) redraw() {
	if pc.base == nil {
		return
	}
	pc.raster.Image = prompt.Render(pc.base, pc.collector.Overlay())
	pc.raster.Refresh()
	pc.Refresh()
}
