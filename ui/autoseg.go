package ui

import (
	"context"
	"image"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/config"
	"github.com/chaos-io/maskseg/monitor"
	"github.com/chaos-io/maskseg/pipeline"
)

const AutoTitle = "Image Segmentation Tool"

// AutoWindow 背景去除 + 自动分割
type AutoWindow struct {
	win     fyne.Window
	p       *pipeline.Pipeline
	preview int
	logger  *zap.Logger

	load     *widget.Button
	original *canvas.Image
	noBG     *canvas.Image
	result   *canvas.Image
	status   *widget.Label
	service  *widget.Label

	running atomic.Bool
}

func NewAutoWindow(a fyne.App, p *pipeline.Pipeline, cfg config.DisplayConfig, logger *zap.Logger) *AutoWindow {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := fyne.NewSize(float32(cfg.PreviewSize), float32(cfg.PreviewSize))
	w := &AutoWindow{
		win:      a.NewWindow(AutoTitle),
		p:        p,
		preview:  cfg.PreviewSize,
		logger:   logger,
		original: newImageView(size),
		noBG:     newImageView(size),
		result:   newImageView(size),
		status:   widget.NewLabel(StatusReady),
		service:  widget.NewLabel(""),
	}
	// 运行期间按钮禁用，同一时刻只有一个流程
	w.load = widget.NewButton("Load Image", func() {
		openImage(w.win, func(path string) { go w.Process(path) })
	})

	w.win.SetContent(container.NewBorder(
		container.NewCenter(w.load),
		container.NewHBox(w.status, widget.NewSeparator(), w.service),
		nil, nil,
		container.NewGridWithColumns(3,
			column("Original Image", w.original),
			column("Background Removed", w.noBG),
			column("Segmented Result", w.result),
		),
	))
	return w
}

func (w *AutoWindow) Window() fyne.Window {
	return w.win
}

// Process 跑完整个流程后再返回；已有流程在跑时直接忽略
//
// 每张预览图一产生就显示，失败时已显示的预览保留。
func (w *AutoWindow) Process(path string) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	w.load.Disable()
	defer func() {
		w.load.Enable()
		w.running.Store(false)
	}()

	_, err := w.p.RunAuto(context.Background(), path,
		func(s pipeline.Stage) { w.status.SetText(s.String()) },
		func(pv pipeline.Preview, img image.Image) { w.show(w.slot(pv), img) },
	)
	if err != nil {
		w.logger.Error("autoseg failed", zap.String("path", path), zap.Error(err))
	}
	showOutcome(w.win, w.status, OutcomeOf(err, w.p.OutputDir()))
}

// Running 是否有流程正在执行
func (w *AutoWindow) Running() bool {
	return w.running.Load()
}

func (w *AutoWindow) slot(pv pipeline.Preview) *canvas.Image {
	switch pv {
	case pipeline.PreviewOriginal:
		return w.original
	case pipeline.PreviewNoBackground:
		return w.noBG
	}
	return w.result
}

// OnServiceChange 作为 monitor 的回调
func (w *AutoWindow) OnServiceChange(name string, status monitor.Status, _ error) {
	w.service.SetText(ServiceStatus(name, status))
}

func (w *AutoWindow) show(v *canvas.Image, img image.Image) {
	setImage(v, Thumbnail(img, w.preview))
}

func column(title string, v *canvas.Image) fyne.CanvasObject {
	return container.NewBorder(widget.NewLabelWithStyle(title, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}), nil, nil, nil, v)
}
