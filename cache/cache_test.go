package cache

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/maskseg/config"
	"github.com/chaos-io/maskseg/model"
)

type countingSegmenter struct {
	calls int
	masks []model.Mask
	err   error
}

func (c *countingSegmenter) Segment(ctx context.Context, img image.Image, prompt model.Prompt) ([]model.Mask, error) {
	c.calls++
	return c.masks, c.err
}

func newTestSegmenter(t *testing.T, next *countingSegmenter) (*Segmenter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(&config.CacheConfig{Addr: mr.Addr()})
	s := NewSegmenter(next, client, time.Hour, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 255})
	return img
}

func TestSegmenter_CachesResult(t *testing.T) {
	t.Parallel()

	m := model.NewMask(3, 3)
	m.Set(1, 1, 1)
	next := &countingSegmenter{masks: []model.Mask{m}}
	s, mr := newTestSegmenter(t, next)
	require.NoError(t, s.Ping(context.Background()))

	prompt := model.Prompt{Points: []model.Point{{X: 1, Y: 1, Label: model.LabelPositive}}}
	for i := 0; i < 3; i++ {
		got, err := s.Segment(context.Background(), testImage(), prompt)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Inside(1, 1))
	}
	assert.Equal(t, 1, next.calls)

	key, err := Key(testImage(), prompt)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	// 不同 prompt 不命中
	_, err = s.Segment(context.Background(), testImage(), model.Prompt{})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestSegmenter_EmptyResultCached(t *testing.T) {
	t.Parallel()

	next := &countingSegmenter{}
	s, _ := newTestSegmenter(t, next)

	for i := 0; i < 2; i++ {
		got, err := s.Segment(context.Background(), testImage(), model.Prompt{})
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, 1, next.calls)
}

func TestSegmenter_ErrorNotCached(t *testing.T) {
	t.Parallel()

	next := &countingSegmenter{err: errors.New("model down")}
	s, mr := newTestSegmenter(t, next)

	_, err := s.Segment(context.Background(), testImage(), model.Prompt{})
	assert.EqualError(t, err, "model down")
	assert.Empty(t, mr.Keys())
}

func TestSegmenter_RedisDownFallsThrough(t *testing.T) {
	t.Parallel()

	m := model.NewMask(3, 3)
	next := &countingSegmenter{masks: []model.Mask{m}}
	s, mr := newTestSegmenter(t, next)
	mr.Close()

	got, err := s.Segment(context.Background(), testImage(), model.Prompt{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, next.calls)
	assert.Error(t, s.Ping(context.Background()))
}

func TestSegmenter_CorruptEntry(t *testing.T) {
	t.Parallel()

	next := &countingSegmenter{masks: []model.Mask{model.NewMask(1, 1)}}
	s, mr := newTestSegmenter(t, next)

	key, err := Key(testImage(), model.Prompt{})
	require.NoError(t, err)
	require.NoError(t, mr.Set(key, "{not json"))

	got, err := s.Segment(context.Background(), testImage(), model.Prompt{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, next.calls)
}

func TestKey(t *testing.T) {
	t.Parallel()

	a, err := Key(testImage(), model.Prompt{})
	require.NoError(t, err)
	b, err := Key(testImage(), model.Prompt{Box: &model.Box{X2: 1, Y2: 1}})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^masks:[0-9a-f]{32}:[0-9a-f]{32}$`, a)
}
