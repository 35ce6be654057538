// Package pipeline 两个应用各自的同步处理流程，界面层只负责展示
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/imgproc"
	"github.com/chaos-io/maskseg/model"
	"github.com/chaos-io/maskseg/prompt"
	"github.com/chaos-io/maskseg/rembg"
	"github.com/chaos-io/maskseg/sam"
	"github.com/chaos-io/maskseg/segment"
	"github.com/chaos-io/maskseg/util"
)

var (
	// ErrNoSegments 模型没有返回任何 mask
	ErrNoSegments = errors.New("no segments detected")
	ErrLoadImage  = errors.New("failed to load image")
)

type Stage int

const (
	StageLoading Stage = iota
	StageRemovingBackground
	StageSegmenting
	StageExporting
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageLoading:
		return "Loading image..."
	case StageRemovingBackground:
		return "Removing background..."
	case StageSegmenting:
		return "Performing segmentation..."
	case StageExporting:
		return "Saving segments..."
	}
	return "Done"
}

// StageFunc 每进入一个阶段回调一次，界面据此刷新状态文字
type StageFunc func(Stage)

// Preview autoseg 的三个预览位
type Preview int

const (
	PreviewOriginal Preview = iota
	PreviewNoBackground
	PreviewComposite
)

// PreviewFunc 某个预览图一产生就回调，不等整个流程结束
type PreviewFunc func(Preview, image.Image)

type Option func(*Pipeline)

// WithColors 替换 mask 着色来源，默认均匀随机
func WithColors(fn segment.ColorFunc) Option {
	return func(p *Pipeline) { p.colors = fn }
}

type Pipeline struct {
	remover   rembg.Remover
	segmenter sam.Segmenter
	exporter  *segment.Exporter
	colors    segment.ColorFunc
	logger    *zap.Logger
}

// New remover 只有 autoseg 需要，promptseg 可以传 nil
func New(remover rembg.Remover, segmenter sam.Segmenter, exporter *segment.Exporter, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		remover:   remover,
		segmenter: segmenter,
		exporter:  exporter,
		colors:    segment.RandomColor(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) OutputDir() string {
	return p.exporter.Dir()
}

// AutoResult autoseg 一次运行的产物
type AutoResult struct {
	Original     image.Image
	NoBackground image.Image
	Composite    image.Image
	Segments     []model.Segment
}

// LoadImage 读取图片，失败不影响任何已有状态
func LoadImage(path string) (image.Image, error) {
	img, err := util.OpenImage(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadImage, err)
	}
	return imgproc.ToNRGBA(img), nil
}

// RunAuto 读图 → 背景去除 → 自动分割 → 导出片段与着色合成图
//
// 出错时 AutoResult 仍返回已完成阶段的图像，界面可以保留已展示的预览。
func (p *Pipeline) RunAuto(ctx context.Context, path string, onStage StageFunc, onPreview PreviewFunc) (*AutoResult, error) {
	onStage = orNop(onStage)
	if onPreview == nil {
		onPreview = func(Preview, image.Image) {}
	}
	runID := ksuid.New().String()
	logger := p.logger.With(zap.String("run", runID), zap.String("path", path))
	defer util.Trace("autoseg " + runID)()

	onStage(StageLoading)
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	res := &AutoResult{Original: img}
	onPreview(PreviewOriginal, img)

	onStage(StageRemovingBackground)
	noBG, err := p.remover.Remove(ctx, img)
	if err != nil {
		return res, fmt.Errorf("remove background: %w", err)
	}
	res.NoBackground = noBG
	onPreview(PreviewNoBackground, noBG)

	// 推理输入：透明区域铺黑，完全不透明时原样使用
	input := imgproc.ToNRGBA(noBG)
	if imgproc.HasUsefulAlpha(input) {
		input = imgproc.Premultiply(input)
	} else {
		logger.Debug("background remover kept every pixel opaque")
	}

	onStage(StageSegmenting)
	masks, err := p.segmenter.Segment(ctx, input, model.Prompt{})
	if err != nil {
		return res, fmt.Errorf("segment: %w", err)
	}
	if len(masks) == 0 {
		logger.Info("no segments detected")
		return res, ErrNoSegments
	}

	onStage(StageExporting)
	if err := p.exporter.SaveNoBackground(noBG); err != nil {
		return res, err
	}
	segs, err := p.exporter.Export(input, masks)
	if err != nil {
		return res, err
	}
	res.Segments = segs
	res.Composite = segment.Paint(input, masks, p.colors)
	onPreview(PreviewComposite, res.Composite)

	logger.Info("autoseg complete", zap.Int("masks", len(masks)), zap.Int("segments", len(segs)))
	onStage(StageDone)
	return res, nil
}

// PromptResult promptseg 一次运行的产物
type PromptResult struct {
	Blended  image.Image
	Segments []model.Segment
}

// RunPrompt 用提示分割 src，片段从 src 中提取，着色叠加到 display 上
//
// display 为当前显示底图（原图尺寸），多次运行的叠加效果会累积。
func (p *Pipeline) RunPrompt(ctx context.Context, src, display image.Image, pr model.Prompt, onStage StageFunc) (*PromptResult, error) {
	onStage = orNop(onStage)
	if pr.IsEmpty() {
		return nil, prompt.ErrEmptyPrompt
	}
	runID := ksuid.New().String()
	logger := p.logger.With(zap.String("run", runID),
		zap.Int("points", len(pr.Points)), zap.Bool("box", pr.Box != nil))
	defer util.Trace("promptseg " + runID)()

	onStage(StageSegmenting)
	masks, err := p.segmenter.Segment(ctx, src, pr)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	if len(masks) == 0 {
		logger.Info("no segments detected")
		return nil, ErrNoSegments
	}

	onStage(StageExporting)
	segs, err := p.exporter.Export(src, masks)
	if err != nil {
		return nil, err
	}
	if display == nil {
		display = src
	}
	blended := segment.Blend(display, masks, p.colors, segment.BlendAlpha)

	logger.Info("promptseg complete", zap.Int("masks", len(masks)), zap.Int("segments", len(segs)))
	onStage(StageDone)
	return &PromptResult{Blended: blended, Segments: segs}, nil
}

func orNop(fn StageFunc) StageFunc {
	if fn == nil {
		return func(Stage) {}
	}
	return fn
}
