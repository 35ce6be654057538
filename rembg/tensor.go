package rembg

import (
	"image"

	"github.com/nfnt/resize"

	"github.com/chaos-io/maskseg/imgproc"
)

// RMBG-1.4 固定输入边长
const inputSize = 1024

// toTensor 缩放到 size×size，按 CHW 排列 RGB，归一化为 v/255 - 0.5
func toTensor(img *image.NRGBA, size int) []float32 {
	resized := imgproc.ToNRGBA(resize.Resize(uint(size), uint(size), img, resize.Bilinear))

	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := y * resized.Stride
		for x := 0; x < size; x++ {
			i := row + x*4
			p := y*size + x
			data[p] = float32(resized.Pix[i])/255 - 0.5
			data[plane+p] = float32(resized.Pix[i+1])/255 - 0.5
			data[2*plane+p] = float32(resized.Pix[i+2])/255 - 0.5
		}
	}
	return data
}

// alphaFromTensor 输出做 min-max 归一化后缩放回 w×h
func alphaFromTensor(data []float32, size, w, h int) *image.Gray {
	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo

	g := image.NewGray(image.Rect(0, 0, size, size))
	for i, v := range data[:size*size] {
		if span > 0 {
			g.Pix[i] = uint8((v-lo)/span*255 + 0.5)
		}
	}

	if w == size && h == size {
		return g
	}
	resized := resize.Resize(uint(w), uint(h), g, resize.Bilinear)
	if out, ok := resized.(*image.Gray); ok {
		return out
	}
	return toGray(resized)
}

// applyAlpha 用 alpha 替换 src 的透明通道，RGB 不变
func applyAlpha(src *image.NRGBA, alpha *image.Gray) *image.NRGBA {
	dst := imgproc.ToNRGBA(src)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Pix[y*dst.Stride+x*4+3] = alpha.GrayAt(alpha.Bounds().Min.X+x, alpha.Bounds().Min.Y+y).Y
		}
	}
	return dst
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			g.Pix[y*g.Stride+x] = uint8(r >> 8)
		}
	}
	return g
}
