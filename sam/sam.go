// Package sam 可提示分割模型的适配层
package sam

import (
	"context"
	"image"

	"github.com/chaos-io/maskseg/model"
)

// Segmenter 空 prompt 为自动分割，返回图中全部 mask；否则返回与 prompt 一致的 mask
type Segmenter interface {
	Segment(ctx context.Context, img image.Image, prompt model.Prompt) ([]model.Mask, error)
}
