package segment

import (
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/chaos-io/maskseg/imgproc"
	"github.com/chaos-io/maskseg/model"
)

// BlendAlpha promptseg 叠加 mask 的固定权重
const BlendAlpha = 0.5

// ColorFunc 为每个 mask 取一个着色
type ColorFunc func() color.NRGBA

// RandomColor 各通道在 [0,255) 上均匀随机
func RandomColor(r *rand.Rand) ColorFunc {
	return func() color.NRGBA {
		c := colorful.Color{R: r.Float64(), G: r.Float64(), B: r.Float64()}
		cr, cg, cb := c.RGB255()
		return color.NRGBA{R: cr, G: cg, B: cb, A: 255}
	}
}

// Paint 在 src 副本上用不透明颜色覆盖每个 mask，后面的 mask 盖住前面的
func Paint(src image.Image, masks []model.Mask, next ColorFunc) *image.NRGBA {
	dst := imgproc.ToNRGBA(src)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	for _, m := range masks {
		m = m.Resize(w, h)
		c := next()
		forEachInside(m, func(x, y int) {
			dst.SetNRGBA(x, y, c)
		})
	}
	return dst
}

// Blend 在 src 副本上依次以 alpha 混合每个 mask 的颜色，效果逐个累积
func Blend(src image.Image, masks []model.Mask, next ColorFunc, alpha float64) *image.NRGBA {
	dst := imgproc.ToNRGBA(src)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	for _, m := range masks {
		m = m.Resize(w, h)
		tint, _ := colorful.MakeColor(next())
		forEachInside(m, func(x, y int) {
			px := dst.NRGBAAt(x, y)
			base := colorful.Color{R: float64(px.R) / 255, G: float64(px.G) / 255, B: float64(px.B) / 255}
			r, g, b := base.BlendRgb(tint, alpha).RGB255()
			dst.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: px.A})
		})
	}
	return dst
}

func forEachInside(m model.Mask, fn func(x, y int)) {
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Inside(x, y) {
				fn(x, y)
			}
		}
	}
}
