package rembg

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/imgproc"
	nhttp "github.com/chaos-io/maskseg/util/http"
)

const (
	removePath = "/remove"
	healthPath = "/health"
)

// RemoteRemover 调用背景去除推理服务
type RemoteRemover struct {
	baseURL string
	cli     nhttp.IClient
	logger  *zap.Logger
}

func NewRemoteRemover(baseURL string, timeout time.Duration, logger *zap.Logger) *RemoteRemover {
	return newRemoteRemover(baseURL, nhttp.NewHTTPClientWithTimeout(timeout), logger)
}

func newRemoteRemover(baseURL string, cli nhttp.IClient, logger *zap.Logger) *RemoteRemover {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteRemover{
		baseURL: strings.TrimRight(baseURL, "/"),
		cli:     cli,
		logger:  logger,
	}
}

type removeResp struct {
	Image string `json:"image"`
}

/*
	curl -X POST "$BASE_URL/remove" -F "image=@my_image.png"

{"image": "<base64 png>"}
*/
func (r *RemoteRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	// 上传文件名每次唯一，服务端不会串图
	name := ksuid.New().String() + ".png"
	part, err := writer.CreateFormFile("image", name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("copy form file: %w", err)
	}
	_ = writer.Close()

	reqParam := &nhttp.RequestParam{
		RequestURI: r.baseURL + removePath,
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Response:   &removeResp{},
	}
	if err := r.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	resp := reqParam.Response.(*removeResp)
	if resp.Image == "" {
		return nil, errors.New("rembg service returned no image")
	}
	out, err := decodeBase64PNG(resp.Image)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("background removed", zap.String("upload", name),
		zap.Int("width", out.Bounds().Dx()), zap.Int("height", out.Bounds().Dy()))
	return imgproc.ToNRGBA(out), nil
}

// Health 推理服务可用性探测
func (r *RemoteRemover) Health(ctx context.Context) error {
	return r.cli.DoHTTPRequest(ctx, &nhttp.RequestParam{
		RequestURI: r.baseURL + healthPath,
		Method:     http.MethodGet,
	})
}

func decodeBase64PNG(s string) (image.Image, error) {
	// 兼容 data URL 前缀
	if i := strings.Index(s, ","); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}
