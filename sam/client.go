package sam

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/imgproc"
	"github.com/chaos-io/maskseg/model"
	nhttp "github.com/chaos-io/maskseg/util/http"
)

const (
	segmentPath = "/segment"
	healthPath  = "/health"
)

// Client 调用分割推理服务
type Client struct {
	baseURL string
	cli     nhttp.IClient
	maxSize int
	logger  *zap.Logger
}

type Option func(*Client)

// WithMaxSize 上传前把最长边缩到 n 以内，提示坐标同比缩放；n <= 0 不缩放
//
// 返回的 mask 是缩放后的分辨率，使用方按原图尺寸重采样。
func WithMaxSize(n int) Option {
	return func(c *Client) { c.maxSize = n }
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	return newClient(baseURL, nhttp.NewHTTPClientWithTimeout(timeout), logger, opts...)
}

func newClient(baseURL string, cli nhttp.IClient, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cli:     cli,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type segmentReq struct {
	Image  string   `json:"image"`
	Points [][2]int `json:"points,omitempty"`
	Labels []int    `json:"labels,omitempty"`
	BBoxes [][]int  `json:"bboxes,omitempty"`
}

type maskResp struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"`
}

type segmentResp struct {
	Masks []maskResp `json:"masks"`
}

func newSegmentReq(img image.Image, prompt model.Prompt) (*segmentReq, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	req := &segmentReq{Image: base64.StdEncoding.EncodeToString(buf.Bytes())}
	for _, p := range prompt.Points {
		req.Points = append(req.Points, [2]int{p.X, p.Y})
		req.Labels = append(req.Labels, int(p.Label))
	}
	if prompt.Box != nil {
		req.BBoxes = [][]int{prompt.Box.Slice()}
	}
	return req, nil
}

/*
	curl -X POST "$BASE_URL/segment" \
	  -H "Content-Type: application/json" \
	  -d '{"image": "<base64 png>", "points": [[367, 168]], "labels": [1]}'

{"masks": [{"width": 640, "height": 480, "data": "<base64 gray png>"}]}
*/
func (c *Client) Segment(ctx context.Context, img image.Image, prompt model.Prompt) ([]model.Mask, error) {
	sent, prompt := c.bound(img, prompt)
	req, err := newSegmentReq(sent, prompt)
	if err != nil {
		return nil, err
	}

	reqParam := &nhttp.RequestParam{
		RequestURI: c.baseURL + segmentPath,
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": "application/json"},
		Body:       req,
		Response:   &segmentResp{},
	}
	if err := c.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	resp := reqParam.Response.(*segmentResp)
	masks := make([]model.Mask, 0, len(resp.Masks))
	for i, m := range resp.Masks {
		mask, err := decodeMask(m)
		if err != nil {
			return nil, fmt.Errorf("mask %d: %w", i, err)
		}
		masks = append(masks, mask)
	}

	c.logger.Debug("segment response",
		zap.Bool("automatic", prompt.IsEmpty()),
		zap.Int("points", len(prompt.Points)),
		zap.Bool("box", prompt.Box != nil),
		zap.Int("masks", len(masks)))
	return masks, nil
}

// bound 按 maxSize 缩小图片并换算提示坐标
func (c *Client) bound(img image.Image, prompt model.Prompt) (image.Image, model.Prompt) {
	w := img.Bounds().Dx()
	if c.maxSize <= 0 || w == 0 || max(w, img.Bounds().Dy()) <= c.maxSize {
		return img, prompt
	}
	small := imgproc.ResizeWithinMax(imgproc.ToNRGBA(img), c.maxSize)
	f := float64(small.Bounds().Dx()) / float64(w)
	c.logger.Debug("downscale before upload",
		zap.Int("width", w), zap.Int("scaled_width", small.Bounds().Dx()))
	return small, scalePrompt(prompt, f)
}

func scalePrompt(p model.Prompt, f float64) model.Prompt {
	sc := func(v int) int { return int(math.Round(float64(v) * f)) }
	out := model.Prompt{}
	for _, pt := range p.Points {
		out.Points = append(out.Points, model.Point{X: sc(pt.X), Y: sc(pt.Y), Label: pt.Label})
	}
	if p.Box != nil {
		out.Box = &model.Box{X1: sc(p.Box.X1), Y1: sc(p.Box.Y1), X2: sc(p.Box.X2), Y2: sc(p.Box.Y2)}
	}
	return out
}

// Health 推理服务可用性探测
func (c *Client) Health(ctx context.Context) error {
	return c.cli.DoHTTPRequest(ctx, &nhttp.RequestParam{
		RequestURI: c.baseURL + healthPath,
		Method:     http.MethodGet,
	})
}

func decodeMask(m maskResp) (model.Mask, error) {
	data, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return model.Mask{}, fmt.Errorf("decode base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return model.Mask{}, fmt.Errorf("decode png: %w", err)
	}

	gray, ok := img.(*image.Gray)
	if !ok {
		gray = grayOf(img)
	}
	mask := model.MaskFromGray(gray)
	if m.Width > 0 && m.Height > 0 && (mask.Width != m.Width || mask.Height != m.Height) {
		return model.Mask{}, fmt.Errorf("size mismatch: header %dx%d, png %dx%d", m.Width, m.Height, mask.Width, mask.Height)
	}
	return mask, nil
}

func grayOf(img image.Image) *image.Gray {
	src := imgproc.ToNRGBA(img)
	g := image.NewGray(src.Bounds())
	for i := 0; i < len(g.Pix); i++ {
		g.Pix[i] = src.Pix[i*4]
	}
	return g
}
