package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "log:\n  mode: release\n"))
	require.NoError(t, err)

	want := Default()
	want.Log.Mode = "release"
	assert.Equal(t, want, cfg)
}

func TestLoad_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `
output:
  dir: out
rembg:
  backend: remote
  url: http://rembg:8188
sam:
  url: http://sam:8000
  timeout: 90s
  max_size: 512
cache:
  enabled: true
  ttl: 1h
display:
  canvas_width: 1024
`))
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, BackendRemote, cfg.RemBG.Backend)
	assert.Equal(t, "http://rembg:8188", cfg.RemBG.URL)
	assert.Equal(t, "http://sam:8000", cfg.SAM.URL)
	assert.Equal(t, 90*time.Second, cfg.SAM.Timeout)
	assert.Equal(t, 512, cfg.SAM.MaxSize)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 1024, cfg.Display.CanvasWidth)
	assert.Equal(t, 600, cfg.Display.CanvasHeight)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "未知后端", content: "rembg:\n  backend: gpu\n", wantErr: "unknown rembg backend"},
		{name: "输出目录为空", content: "output:\n  dir: \"\"\n", wantErr: "output dir is empty"},
		{name: "画布尺寸非法", content: "display:\n  canvas_width: 0\n", wantErr: "display sizes"},
		{name: "上传上限为负", content: "sam:\n  max_size: -1\n", wantErr: "max_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg, "没有配置文件时使用默认值")

	cfg, err = LoadOrDefault(writeConfig(t, "rembg:\n  backend: remote\n"))
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, cfg.RemBG.Backend)

	// 存在但不合法的配置不能被默认值悄悄替换
	cfg, err = LoadOrDefault(writeConfig(t, "rembg:\n  backend: gpu\n"))
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "unknown rembg backend")

	_, err = LoadOrDefault(writeConfig(t, "rembg: [\n"))
	assert.ErrorContains(t, err, "failed to read config file")
}
