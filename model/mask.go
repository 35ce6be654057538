package model

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Threshold 像素属于 mask 的概率阈值，严格大于
const Threshold = 0.5

// Mask 与图像同尺寸的概率网格，行优先
type Mask struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Prob   []float32 `json:"prob"`
}

func NewMask(w, h int) Mask {
	return Mask{Width: w, Height: h, Prob: make([]float32, w*h)}
}

// MaskFromGray 灰度值 v 解释为概率 v/255
func MaskFromGray(img *image.Gray) Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[off : off+m.Width]
		for x, v := range row {
			m.Prob[y*m.Width+x] = float32(v) / 255
		}
	}
	return m
}

func (m Mask) At(x, y int) float32 {
	return m.Prob[y*m.Width+x]
}

func (m Mask) Set(x, y int, p float32) {
	m.Prob[y*m.Width+x] = p
}

func (m Mask) Inside(x, y int) bool {
	return m.At(x, y) > Threshold
}

// Resize 双线性重采样到 w×h，尺寸一致时原样返回
func (m Mask) Resize(w, h int) Mask {
	if m.Width == w && m.Height == h {
		return m
	}

	src := image.NewGray16(image.Rect(0, 0, m.Width, m.Height))
	for i, p := range m.Prob {
		src.SetGray16(i%m.Width, i/m.Width, color.Gray16{Y: uint16(clamp01(p)*65535 + 0.5)})
	}

	dst := image.NewGray16(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Prob[y*w+x] = float32(dst.Gray16At(x, y).Y) / 65535
		}
	}
	return out
}

// Gray 导出为 8 位灰度图，便于编码传输
func (m Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, p := range m.Prob {
		img.Pix[i] = uint8(clamp01(p)*255 + 0.5)
	}
	return img
}

func clamp01(p float32) float32 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
