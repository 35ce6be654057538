// Package monitor 定时探测推理服务是否在线
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Prober interface {
	Health(ctx context.Context) error
}

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Monitor cron 定时探测，状态变化时回调
type Monitor struct {
	mu       sync.Mutex
	cron     *cron.Cron
	probes   map[string]Prober
	status   map[string]Status
	timeout  time.Duration
	onChange func(name string, status Status, err error)
	logger   *zap.Logger
}

func New(logger *zap.Logger, onChange func(name string, status Status, err error)) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cron:     cron.New(),
		probes:   map[string]Prober{},
		status:   map[string]Status{},
		timeout:  5 * time.Second,
		onChange: onChange,
		logger:   logger,
	}
}

func (m *Monitor) Register(name string, p Prober) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes[name] = p
	m.status[name] = StatusUnknown
}

// Start 按 spec 调度探测，例如 "@every 30s"
func (m *Monitor) Start(spec string) error {
	if _, err := m.cron.AddFunc(spec, func() { m.ProbeAll(context.Background()) }); err != nil {
		return fmt.Errorf("invalid monitor spec %q: %w", spec, err)
	}
	m.cron.Start()
	return nil
}

func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

// ProbeAll 探测全部已注册服务
func (m *Monitor) ProbeAll(ctx context.Context) {
	m.mu.Lock()
	names := make([]string, 0, len(m.probes))
	for name := range m.probes {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)

	for _, name := range names {
		m.probe(ctx, name)
	}
}

func (m *Monitor) Status(name string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.status[name]; ok {
		return s
	}
	return StatusUnknown
}

func (m *Monitor) probe(ctx context.Context, name string) {
	m.mu.Lock()
	p := m.probes[name]
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := p.Health(ctx)
	next := StatusOnline
	if err != nil {
		next = StatusOffline
	}

	m.mu.Lock()
	prev := m.status[name]
	m.status[name] = next
	m.mu.Unlock()

	if prev == next {
		return
	}
	if err != nil {
		m.logger.Warn("service offline", zap.String("service", name), zap.Error(err))
	} else {
		m.logger.Info("service online", zap.String("service", name))
	}
	if m.onChange != nil {
		m.onChange(name, next, err)
	}
}
