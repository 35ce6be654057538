// Package rembg 背景去除，输出带 alpha 的 NRGBA
package rembg

import (
	"context"
	"image"

	"github.com/chaos-io/maskseg/imgproc"
)

type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// DefaultRemBG 不做推理，原图透传
type DefaultRemBG struct{}

func NewDefaultRemBG() *DefaultRemBG {
	return &DefaultRemBG{}
}

func (d *DefaultRemBG) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	return imgproc.ToNRGBA(img), nil
}
