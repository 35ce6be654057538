package ui

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/config"
	"github.com/chaos-io/maskseg/model"
	"github.com/chaos-io/maskseg/monitor"
	"github.com/chaos-io/maskseg/pipeline"
	"github.com/chaos-io/maskseg/prompt"
)

const (
	PromptTitle = "Interactive Segmentation Tool"

	modePoint     = "Point"
	modeBox       = "Box"
	labelPositive = "Positive"
	labelNegative = "Negative"
)

// PromptWindow 点/框提示分割
//
// 处理期间所有输入控件和画布都禁用，同一时刻只有一个流程。
type PromptWindow struct {
	win    fyne.Window
	p      *pipeline.Pipeline
	logger *zap.Logger

	collector *prompt.Collector
	canvas    *PromptCanvas

	mu      sync.Mutex
	src     image.Image // 载入的原图
	display image.Image // 叠加过结果的显示图，原图尺寸
	running atomic.Bool

	mode    *widget.RadioGroup
	label   *widget.RadioGroup
	load    *widget.Button
	clear   *widget.Button
	process *widget.Button
	status  *widget.Label
	service *widget.Label
}

func NewPromptWindow(a fyne.App, p *pipeline.Pipeline, cfg config.DisplayConfig, logger *zap.Logger) *PromptWindow {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := prompt.NewCollector()
	w := &PromptWindow{
		win:       a.NewWindow(PromptTitle),
		p:         p,
		logger:    logger,
		collector: c,
		canvas:    NewPromptCanvas(c, cfg.CanvasWidth, cfg.CanvasHeight),
		status:    widget.NewLabel(StatusReady),
		service:   widget.NewLabel(""),
	}

	w.mode = widget.NewRadioGroup([]string{modePoint, modeBox}, w.onMode)
	w.mode.Horizontal = true
	w.mode.Required = true
	w.mode.SetSelected(modePoint)

	w.label = widget.NewRadioGroup([]string{labelPositive, labelNegative}, w.onLabel)
	w.label.Horizontal = true
	w.label.Required = true
	w.label.SetSelected(labelPositive)

	w.load = widget.NewButton("Load Image", func() { openImage(w.win, w.Load) })
	w.process = widget.NewButton("Process", func() { go w.Process() })
	w.clear = widget.NewButton("Clear", w.Clear)

	controls := container.NewHBox(w.load, widget.NewSeparator(), w.mode, widget.NewSeparator(), w.label, w.clear, w.process)
	w.win.SetContent(container.NewBorder(
		controls,
		container.NewHBox(w.status, widget.NewSeparator(), w.service),
		nil, nil,
		container.NewScroll(container.NewCenter(w.canvas)),
	))
	w.win.Resize(fyne.NewSize(float32(cfg.CanvasWidth)+40, float32(cfg.CanvasHeight)+120))
	return w
}

func (w *PromptWindow) Window() fyne.Window {
	return w.win
}

func (w *PromptWindow) Canvas() *PromptCanvas {
	return w.canvas
}

// Collector 只在没有流程运行时读取
func (w *PromptWindow) Collector() *prompt.Collector {
	return w.collector
}

func (w *PromptWindow) Running() bool {
	return w.running.Load()
}

// Load 读图失败时保留当前图片和提示；处理中忽略
func (w *PromptWindow) Load(path string) {
	if w.running.Load() {
		return
	}
	img, err := pipeline.LoadImage(path)
	if err != nil {
		w.logger.Error("load image failed", zap.String("path", path), zap.Error(err))
		dialog.ShowError(err, w.win)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running.Load() {
		return
	}
	w.src, w.display = img, img
	w.canvas.SetImage(img)
	w.status.SetText(StatusReady)
}

// Clear 清空提示并恢复未叠加的原图
func (w *PromptWindow) Clear() {
	if w.running.Load() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.display = w.src
	w.canvas.Reset(w.src)
}

// Process 用当前提示分割；没有提示时只给出警告
func (w *PromptWindow) Process() {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	defer w.running.Store(false)

	w.mu.Lock()
	src, display := w.src, w.display
	w.mu.Unlock()
	if src == nil {
		dialog.ShowInformation("Warning", "Please load an image first", w.win)
		return
	}
	pr, err := w.canvas.Prompt()
	if err != nil {
		showOutcome(w.win, w.status, OutcomeOf(err, w.p.OutputDir()))
		return
	}

	w.setInputsEnabled(false)
	defer w.setInputsEnabled(true)

	res, err := w.p.RunPrompt(context.Background(), src, display, pr, func(s pipeline.Stage) {
		w.status.SetText(s.String())
	})
	if err != nil {
		w.logger.Error("promptseg failed", zap.Error(err))
	} else {
		display = res.Blended
	}

	// 提示只用一次
	w.mu.Lock()
	w.display = display
	w.canvas.Reset(display)
	w.mu.Unlock()
	showOutcome(w.win, w.status, OutcomeOf(err, w.p.OutputDir()))
}

func (w *PromptWindow) OnServiceChange(name string, status monitor.Status, _ error) {
	w.service.SetText(ServiceStatus(name, status))
}

func (w *PromptWindow) setInputsEnabled(on bool) {
	if on {
		w.canvas.Enable()
		w.load.Enable()
		w.clear.Enable()
		w.process.Enable()
		w.mode.Enable()
		w.label.Enable()
		return
	}
	w.canvas.Disable()
	w.load.Disable()
	w.clear.Disable()
	w.process.Disable()
	w.mode.Disable()
	w.label.Disable()
}

func (w *PromptWindow) onMode(s string) {
	m := prompt.ModePoint
	if s == modeBox {
		m = prompt.ModeBox
	}
	if w.running.Load() || m == w.canvas.Mode() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.display = w.src
	w.canvas.SetMode(m, w.src)
}

func (w *PromptWindow) onLabel(s string) {
	if s == labelNegative {
		w.canvas.SetLabel(model.LabelNegative)
		return
	}
	w.canvas.SetLabel(model.LabelPositive)
}
