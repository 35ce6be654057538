// Package segment 把模型返回的 mask 变成落盘的分割片段与可视化结果
package segment

import (
	"image"

	"github.com/chaos-io/maskseg/model"
)

// Extract 按阈值提取 mask 覆盖的像素，其余像素全部置零
//
// mask 尺寸与 src 不一致时先重采样到 src 尺寸。没有任何前景像素时 ok 为 false。
func Extract(src *image.NRGBA, m model.Mask, index int) (seg model.Segment, ok bool) {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	m = m.Resize(w, h)

	minX, minY := w, h
	maxX, maxY := 0, 0
	found := 0

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcRow := src.PixOffset(src.Bounds().Min.X, src.Bounds().Min.Y+y)
		dstRow := y * out.Stride
		for x := 0; x < w; x++ {
			if !m.Inside(x, y) {
				continue
			}
			found++
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
			copy(out.Pix[dstRow+x*4:dstRow+x*4+4], src.Pix[srcRow+x*4:srcRow+x*4+4])
		}
	}

	if found == 0 {
		return model.Segment{}, false
	}

	return model.Segment{
		Index:  index,
		Image:  out,
		BBox:   model.BBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY},
		Pixels: found,
	}, true
}
