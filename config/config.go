package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Output  OutputConfig  `mapstructure:"output"`
	RemBG   RemBGConfig   `mapstructure:"rembg"`
	SAM     SAMConfig     `mapstructure:"sam"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Display DisplayConfig `mapstructure:"display"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// RemBGConfig 背景去除后端：onnx 本地推理、remote 推理服务、none 原图透传
type RemBGConfig struct {
	Backend   string        `mapstructure:"backend"`
	ModelPath string        `mapstructure:"model_path"`
	LibPath   string        `mapstructure:"lib_path"`
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SAMConfig MaxSize 为上传图片最长边上限，0 不限制
type SAMConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	MaxSize int           `mapstructure:"max_size"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type MonitorConfig struct {
	Spec string `mapstructure:"spec"`
}

type DisplayConfig struct {
	PreviewSize  int `mapstructure:"preview_size"`
	CanvasWidth  int `mapstructure:"canvas_width"`
	CanvasHeight int `mapstructure:"canvas_height"`
}

const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
	BackendNone   = "none"
)

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultPath 工作目录下的配置文件
const DefaultPath = "config.yaml"

// New 使用默认配置路径加载配置
func New() (*Config, error) {
	return LoadOrDefault(DefaultPath)
}

// LoadOrDefault 文件不存在时返回默认配置；文件存在但读不出或不合法时返回错误
func LoadOrDefault(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func (c *Config) Validate() error {
	switch c.RemBG.Backend {
	case BackendONNX, BackendRemote, BackendNone:
	default:
		return fmt.Errorf("unknown rembg backend %q", c.RemBG.Backend)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output dir is empty")
	}
	if c.SAM.MaxSize < 0 {
		return fmt.Errorf("sam max_size must not be negative")
	}
	if c.Display.CanvasWidth <= 0 || c.Display.CanvasHeight <= 0 || c.Display.PreviewSize <= 0 {
		return fmt.Errorf("display sizes must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.mode", d.Log.Mode)

	v.SetDefault("output.dir", d.Output.Dir)

	v.SetDefault("rembg.backend", d.RemBG.Backend)
	v.SetDefault("rembg.model_path", d.RemBG.ModelPath)
	v.SetDefault("rembg.lib_path", d.RemBG.LibPath)
	v.SetDefault("rembg.url", d.RemBG.URL)
	v.SetDefault("rembg.timeout", d.RemBG.Timeout)

	v.SetDefault("sam.url", d.SAM.URL)
	v.SetDefault("sam.timeout", d.SAM.Timeout)
	v.SetDefault("sam.max_size", d.SAM.MaxSize)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.addr", d.Cache.Addr)
	v.SetDefault("cache.password", d.Cache.Password)
	v.SetDefault("cache.db", d.Cache.DB)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("monitor.spec", d.Monitor.Spec)

	v.SetDefault("display.preview_size", d.Display.PreviewSize)
	v.SetDefault("display.canvas_width", d.Display.CanvasWidth)
	v.SetDefault("display.canvas_height", d.Display.CanvasHeight)
}

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Mode: "debug",
		},
		Output: OutputConfig{
			Dir: "segments",
		},
		RemBG: RemBGConfig{
			Backend:   BackendONNX,
			ModelPath: "models/rmbg-1.4.onnx",
			URL:       "http://127.0.0.1:8188",
			Timeout:   time.Minute,
		},
		SAM: SAMConfig{
			URL:     "http://127.0.0.1:8000",
			Timeout: 2 * time.Minute,
			MaxSize: 1024,
		},
		Cache: CacheConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     24 * time.Hour,
		},
		Monitor: MonitorConfig{
			Spec: "@every 30s",
		},
		Display: DisplayConfig{
			PreviewSize:  300,
			CanvasWidth:  800,
			CanvasHeight: 600,
		},
	}
}
