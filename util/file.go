package util

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
)

// ImageExtensions 文件对话框可选的图片格式
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

var ErrUnsupportedFormat = errors.New("unsupported image format")

// IsImageFile 按扩展名判断是否为支持的图片
func IsImageFile(path string) bool {
	return slices.Contains(ImageExtensions, strings.ToLower(filepath.Ext(path)))
}

// OpenImage 打开本地图片
func OpenImage(path string) (image.Image, error) {
	if !IsImageFile(path) {
		return nil, fmt.Errorf("open %s: %w", path, ErrUnsupportedFormat)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return img, nil
}

// SaveImage 按扩展名编码写盘，已存在则覆盖
func SaveImage(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// EnsureDir 目录不存在则创建
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}
