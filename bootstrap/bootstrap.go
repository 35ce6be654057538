// Package bootstrap 按配置组装模型后端、缓存、导出目录和健康探测
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/cache"
	"github.com/chaos-io/maskseg/config"
	"github.com/chaos-io/maskseg/monitor"
	"github.com/chaos-io/maskseg/pipeline"
	"github.com/chaos-io/maskseg/rembg"
	"github.com/chaos-io/maskseg/sam"
	"github.com/chaos-io/maskseg/segment"
	"github.com/chaos-io/maskseg/util"
)

const (
	ProbeSAM   = "sam"
	ProbeRemBG = "rembg"

	startupTimeout = 10 * time.Second
)

var (
	ErrOutputDir = errors.New("output directory unavailable")
	ErrModelLoad = errors.New("model load failed")
)

// Start 先创建输出目录，再加载模型并组装处理流程
func Start(ctx context.Context, cfg *config.Config, withRemover bool, logger *zap.Logger) (*Services, *pipeline.Pipeline, error) {
	if err := util.EnsureDir(cfg.Output.Dir); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrOutputDir, err)
	}

	s, err := Build(ctx, cfg, withRemover, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	p, err := s.Pipeline(cfg.Output.Dir)
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrOutputDir, err)
	}
	return s, p, nil
}

// Services 一个应用进程用到的全部后端
type Services struct {
	Remover   rembg.Remover
	Segmenter sam.Segmenter
	Probes    map[string]monitor.Prober

	closers []func()
	logger  *zap.Logger
}

// Build 任一模型加载失败都直接返回错误，调用方按致命错误处理
//
// withRemover 为 false 时不加载背景去除模型（promptseg）。
func Build(ctx context.Context, cfg *config.Config, withRemover bool, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Services{Probes: map[string]monitor.Prober{}, logger: logger}

	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	if withRemover {
		if err := s.buildRemover(ctx, &cfg.RemBG); err != nil {
			s.Close()
			return nil, err
		}
	}

	client := sam.NewClient(cfg.SAM.URL, cfg.SAM.Timeout, logger, sam.WithMaxSize(cfg.SAM.MaxSize))
	if err := client.Health(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("segmentation service %s: %w", cfg.SAM.URL, err)
	}
	s.Probes[ProbeSAM] = client
	s.Segmenter = client

	if cfg.Cache.Enabled {
		cached := cache.NewSegmenter(client, cache.NewRedisClient(&cfg.Cache), cfg.Cache.TTL, logger)
		if err := cached.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, cache disabled", zap.String("addr", cfg.Cache.Addr), zap.Error(err))
			_ = cached.Close()
		} else {
			s.Segmenter = cached
			s.closers = append(s.closers, func() { _ = cached.Close() })
			logger.Info("mask cache enabled", zap.String("addr", cfg.Cache.Addr), zap.Duration("ttl", cfg.Cache.TTL))
		}
	}

	return s, nil
}

func (s *Services) buildRemover(ctx context.Context, cfg *config.RemBGConfig) error {
	switch cfg.Backend {
	case config.BackendONNX:
		r, err := rembg.NewONNXRemover(cfg.ModelPath, cfg.LibPath, s.logger)
		if err != nil {
			return err
		}
		s.Remover = r
		s.closers = append(s.closers, r.Close)
	case config.BackendRemote:
		r := rembg.NewRemoteRemover(cfg.URL, cfg.Timeout, s.logger)
		if err := r.Health(ctx); err != nil {
			return fmt.Errorf("background removal service %s: %w", cfg.URL, err)
		}
		s.Remover = r
		s.Probes[ProbeRemBG] = r
	default:
		s.Remover = rembg.NewDefaultRemBG()
	}
	s.logger.Info("background remover ready", zap.String("backend", cfg.Backend))
	return nil
}

// Pipeline 创建输出目录并组装处理流程
func (s *Services) Pipeline(dir string) (*pipeline.Pipeline, error) {
	exp, err := segment.NewExporter(dir, s.logger)
	if err != nil {
		return nil, err
	}
	return pipeline.New(s.Remover, s.Segmenter, exp, s.logger), nil
}

// StartMonitor 注册全部远程服务并先探测一次
func (s *Services) StartMonitor(spec string, onChange func(string, monitor.Status, error)) (*monitor.Monitor, error) {
	m := monitor.New(s.logger, onChange)
	for name, p := range s.Probes {
		m.Register(name, p)
	}
	if err := m.Start(spec); err != nil {
		return nil, err
	}
	go m.ProbeAll(context.Background())
	return m, nil
}

// Close 逆序释放
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
