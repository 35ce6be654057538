// Package cache 用 redis 缓存分割结果，同一图片同一 prompt 不重复推理
package cache

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/config"
	"github.com/chaos-io/maskseg/model"
	"github.com/chaos-io/maskseg/sam"
)

const keyPrefix = "masks:"

// Segmenter 包装另一个 Segmenter，缓存读写失败只记日志
type Segmenter struct {
	next   sam.Segmenter
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisClient(cfg *config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewSegmenter(next sam.Segmenter, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Segmenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Segmenter{next: next, client: client, ttl: ttl, logger: logger}
}

func (s *Segmenter) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Segmenter) Segment(ctx context.Context, img image.Image, prompt model.Prompt) ([]model.Mask, error) {
	key, err := Key(img, prompt)
	if err != nil {
		return nil, err
	}

	masks, err := s.get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to get cache", zap.String("key", key), zap.Error(err))
	}
	if masks != nil {
		s.logger.Info("cache hit", zap.String("key", key), zap.Int("masks", len(masks)))
		return masks, nil
	}

	masks, err = s.next.Segment(ctx, img, prompt)
	if err != nil {
		return nil, err
	}

	if err := s.set(ctx, key, masks); err != nil {
		s.logger.Warn("failed to set cache", zap.String("key", key), zap.Error(err))
	}
	return masks, nil
}

func (s *Segmenter) Close() error {
	return s.client.Close()
}

func (s *Segmenter) get(ctx context.Context, key string) ([]model.Mask, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // 缓存未命中
		}
		return nil, err
	}

	masks := []model.Mask{}
	if err := json.Unmarshal(data, &masks); err != nil {
		return nil, fmt.Errorf("unmarshal masks: %w", err)
	}
	return masks, nil
}

func (s *Segmenter) set(ctx context.Context, key string, masks []model.Mask) error {
	if masks == nil {
		// 空结果也缓存，"null" 读回来会被当成未命中
		masks = []model.Mask{}
	}
	data, err := json.Marshal(masks)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// Key masks:<图片 png 的 md5>:<prompt json 的 md5>
func Key(img image.Image, prompt model.Prompt) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	p, err := json.Marshal(prompt)
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}
	return keyPrefix + md5Hex(buf.Bytes()) + ":" + md5Hex(p), nil
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
