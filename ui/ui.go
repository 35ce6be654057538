// Package ui 两个桌面应用的 fyne 窗口，处理逻辑全部在 pipeline 中
package ui

import (
	"errors"
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"

	"github.com/chaos-io/maskseg/monitor"
	"github.com/chaos-io/maskseg/pipeline"
	"github.com/chaos-io/maskseg/prompt"
	"github.com/chaos-io/maskseg/util"
)

const (
	StatusReady  = "Ready"
	StatusFailed = "Processing failed"
)

// Thumbnail 缩放到 size×size 以内，保持宽高比
func Thumbnail(img image.Image, size int) image.Image {
	return imaging.Fit(img, size, size, imaging.Lanczos)
}

// Scaled 按比例缩放，scale >= 1 时原样返回
func Scaled(img image.Image, scale float64) image.Image {
	if scale >= 1 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

func CompleteStatus(dir string) string {
	return fmt.Sprintf("Processing complete! Results saved in '%s'", dir)
}

func completeMessage(dir string) string {
	return fmt.Sprintf("Processing complete!\nCheck the '%s' directory for results", dir)
}

// ServiceStatus 状态栏右侧的服务在线提示
func ServiceStatus(name string, status monitor.Status) string {
	return fmt.Sprintf("%s: %s", name, status)
}

// Outcome 一次处理结束后的用户提示
type Outcome struct {
	Status  string
	Title   string
	Message string
	IsError bool
}

// OutcomeOf 把处理结果映射为状态文字和对话框内容
func OutcomeOf(err error, dir string) Outcome {
	switch {
	case err == nil:
		return Outcome{Status: CompleteStatus(dir), Title: "Success", Message: completeMessage(dir)}
	case errors.Is(err, pipeline.ErrNoSegments):
		return Outcome{Status: StatusReady, Title: "Info", Message: "No segments detected"}
	case errors.Is(err, prompt.ErrEmptyPrompt):
		return Outcome{Status: StatusReady, Title: "Warning", Message: "Please add points or draw a box first"}
	case errors.Is(err, pipeline.ErrLoadImage):
		return Outcome{Status: StatusReady, Title: "Error", Message: err.Error(), IsError: true}
	}
	return Outcome{Status: StatusFailed, Title: "Error", Message: fmt.Sprintf("Processing failed: %v", err), IsError: true}
}

func showOutcome(win fyne.Window, status *widget.Label, o Outcome) {
	status.SetText(o.Status)
	if o.IsError {
		dialog.ShowError(errors.New(o.Message), win)
		return
	}
	dialog.ShowInformation(o.Title, o.Message, win)
}

const (
	FatalConfig = "Failed to load config"
	FatalModels = "Failed to load models"
	FatalOutput = "Failed to create output directory"
)

// ShowFatal 启动失败时提示并在关闭对话框后退出
func ShowFatal(a fyne.App, title, msg string, err error) {
	win := a.NewWindow(title)
	d := dialog.NewError(fmt.Errorf("%s: %w", msg, err), win)
	d.SetOnClosed(a.Quit)
	win.Resize(fyne.NewSize(420, 160))
	win.Show()
	d.Show()
}

// openImage 只列出支持的图片格式
func openImage(win fyne.Window, onPath func(string)) {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if rc == nil {
			return
		}
		_ = rc.Close()
		onPath(rc.URI().Path())
	}, win)
	d.SetFilter(storage.NewExtensionFileFilter(util.ImageExtensions))
	d.Show()
}

func newImageView(size fyne.Size) *canvas.Image {
	v := &canvas.Image{FillMode: canvas.ImageFillContain}
	v.SetMinSize(size)
	return v
}

func setImage(v *canvas.Image, img image.Image) {
	v.Image = img
	v.Refresh()
}
