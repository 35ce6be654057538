// Package imgproc 图像格式转换与几何辅助函数
package imgproc

import (
	"image"
	"image/draw"

	"github.com/nfnt/resize"
)

// ToNRGBA 转为原点在 (0,0) 的 NRGBA，总是返回新副本
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// HasUsefulAlpha 检查 alpha 通道是否 真的包含透明信息
// 只要存在非 255（非完全不透明），就认为“已有抠图”
func HasUsefulAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			return true
		}
	}
	return false
}

// Premultiply 预乘 Alpha 并铺到黑底上，输出完全不透明
// 例如：红色半透明 (1,0,0,0.5) → (0.5,0,0)，背景自然变黑
func Premultiply(img *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(img.Bounds())
	for i := 0; i < len(img.Pix); i += 4 {
		a := float64(img.Pix[i+3]) / 255.0
		dst.Pix[i] = uint8(float64(img.Pix[i]) * a)
		dst.Pix[i+1] = uint8(float64(img.Pix[i+1]) * a)
		dst.Pix[i+2] = uint8(float64(img.Pix[i+2]) * a)
		dst.Pix[i+3] = 255
	}
	return dst
}

// ResizeWithinMax 缩放（最长边 <= maxSize），不放大
func ResizeWithinMax(img *image.NRGBA, maxSize int) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)

	if longest <= maxSize {
		return img
	}

	scale := float64(maxSize) / float64(longest)
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
	return ToNRGBA(resized)
}

// FitScale 把 w×h 放进 maxW×maxH 的缩放系数，不放大
func FitScale(w, h, maxW, maxH int) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	return min(1, float64(maxW)/float64(w), float64(maxH)/float64(h))
}
