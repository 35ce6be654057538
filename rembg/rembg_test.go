package rembg

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDefaultRemBG_Remove(t *testing.T) {
	t.Parallel()

	src := solid(3, 2, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	got, err := NewDefaultRemBG().Remove(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, got.(*image.NRGBA).Pix)
	assert.NotSame(t, src, got)
}

func TestToTensor(t *testing.T) {
	t.Parallel()

	src := solid(4, 4, color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	data := toTensor(src, 2)
	require.Len(t, data, 12)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 0.5, data[i], 1e-3, "R 平面")
		assert.InDelta(t, -0.5, data[4+i], 1e-3, "G 平面")
		assert.InDelta(t, 0.2-0.5, data[8+i], 1e-3, "B 平面")
	}
}

func TestAlphaFromTensor(t *testing.T) {
	t.Parallel()

	// 左列前景，右列背景
	data := []float32{3, -1, 3, -1}
	alpha := alphaFromTensor(data, 2, 2, 2)
	assert.Equal(t, []uint8{255, 0, 255, 0}, alpha.Pix)

	scaled := alphaFromTensor(data, 2, 8, 4)
	assert.Equal(t, image.Rect(0, 0, 8, 4), scaled.Bounds())
	assert.Greater(t, scaled.GrayAt(0, 0).Y, uint8(200))
	assert.Less(t, scaled.GrayAt(7, 3).Y, uint8(55))

	flat := alphaFromTensor([]float32{1, 1, 1, 1}, 2, 2, 2)
	assert.Equal(t, []uint8{0, 0, 0, 0}, flat.Pix)
}

func TestApplyAlpha(t *testing.T) {
	t.Parallel()

	src := solid(2, 1, color.NRGBA{R: 9, G: 8, B: 7, A: 255})
	alpha := image.NewGray(image.Rect(0, 0, 2, 1))
	alpha.Pix = []uint8{0, 128}

	got := applyAlpha(src, alpha)
	assert.Equal(t, color.NRGBA{R: 9, G: 8, B: 7, A: 0}, got.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 9, G: 8, B: 7, A: 128}, got.NRGBAAt(1, 0))
	assert.Equal(t, uint8(255), src.NRGBAAt(0, 0).A)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newFakeRembgServer(t *testing.T, handler gin.HandlerFunc) *httptest.Server {
	t.Helper()
	r := gin.New()
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/remove", handler)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteRemover_Remove(t *testing.T) {
	t.Parallel()

	out := solid(3, 3, color.NRGBA{R: 50, A: 0})
	out.SetNRGBA(1, 1, color.NRGBA{R: 50, A: 255})
	uploads := make(chan string, 1)

	srv := newFakeRembgServer(t, func(c *gin.Context) {
		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		uploads <- file.Filename
		f, err := file.Open()
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		data, _ := io.ReadAll(f)
		_, err = png.Decode(bytes.NewReader(data))
		require.NoError(t, err)

		c.JSON(http.StatusOK, gin.H{"image": encodePNG(t, out)})
	})

	r := NewRemoteRemover(srv.URL+"/", time.Second, nil)
	got, err := r.Remove(context.Background(), solid(3, 3, color.NRGBA{R: 50, A: 255}))
	require.NoError(t, err)

	uploaded := <-uploads
	assert.True(t, strings.HasSuffix(uploaded, ".png"))
	assert.Len(t, strings.TrimSuffix(uploaded, ".png"), 27, "ksuid 文件名")
	assert.Equal(t, uint8(255), got.(*image.NRGBA).NRGBAAt(1, 1).A)
	assert.Equal(t, uint8(0), got.(*image.NRGBA).NRGBAAt(0, 0).A)

	require.NoError(t, r.Health(context.Background()))
}

func TestRemoteRemover_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler gin.HandlerFunc
		wantErr string
	}{
		{
			name:    "服务端错误",
			handler: func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") },
			wantErr: "HTTP request failed with status 500",
		},
		{
			name:    "没有返回图片",
			handler: func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) },
			wantErr: "returned no image",
		},
		{
			name:    "非法base64",
			handler: func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"image": "!!!"}) },
			wantErr: "decode base64",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newFakeRembgServer(t, tt.handler)
			_, err := NewRemoteRemover(srv.URL, time.Second, nil).Remove(context.Background(), solid(2, 2, color.NRGBA{A: 255}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeBase64PNG_DataURL(t *testing.T) {
	t.Parallel()

	img, err := decodeBase64PNG("data:image/png;base64," + encodePNG(t, solid(2, 2, color.NRGBA{A: 255})))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
}
