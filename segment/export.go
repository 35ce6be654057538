package segment

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/imgproc"
	"github.com/chaos-io/maskseg/model"
	"github.com/chaos-io/maskseg/util"
)

// NoBackgroundFile 背景去除结果的固定文件名
const NoBackgroundFile = "no_background.png"

// ImageName 第 i 个片段的图片文件名
func ImageName(i int) string {
	return fmt.Sprintf("segment_%d.png", i)
}

// CoordsName 第 i 个片段的坐标文件名
func CoordsName(i int) string {
	return fmt.Sprintf("segment_%d_coords.txt", i)
}

// Exporter 把片段写到固定目录，同序号文件直接覆盖
type Exporter struct {
	dir    string
	logger *zap.Logger
}

func NewExporter(dir string, logger *zap.Logger) (*Exporter, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{dir: dir, logger: logger}, nil
}

func (e *Exporter) Dir() string {
	return e.dir
}

// Export 按模型返回顺序处理 mask，下标即文件序号；空 mask 跳过且不写文件
func (e *Exporter) Export(src image.Image, masks []model.Mask) ([]model.Segment, error) {
	base := imgproc.ToNRGBA(src)

	segments := make([]model.Segment, 0, len(masks))
	for i, m := range masks {
		seg, ok := Extract(base, m, i)
		if !ok {
			e.logger.Debug("skip empty mask", zap.Int("index", i))
			continue
		}
		if err := e.write(seg); err != nil {
			return segments, err
		}
		segments = append(segments, seg)
	}

	e.logger.Info("segments exported",
		zap.String("dir", e.dir),
		zap.Int("masks", len(masks)),
		zap.Int("segments", len(segments)))
	return segments, nil
}

// SaveNoBackground 写出背景去除结果
func (e *Exporter) SaveNoBackground(img image.Image) error {
	return util.SaveImage(img, filepath.Join(e.dir, NoBackgroundFile))
}

func (e *Exporter) write(seg model.Segment) error {
	imgPath := filepath.Join(e.dir, ImageName(seg.Index))
	if err := util.SaveImage(seg.Image, imgPath); err != nil {
		return err
	}

	coordsPath := filepath.Join(e.dir, CoordsName(seg.Index))
	f, err := os.Create(coordsPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", coordsPath, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := WriteCoords(f, seg.BBox); err != nil {
		return fmt.Errorf("write %s: %w", coordsPath, err)
	}

	e.logger.Debug("segment written",
		zap.Int("index", seg.Index),
		zap.String("image", imgPath),
		zap.Int("pixels", seg.Pixels))
	return nil
}

// WriteCoords 三行文本：左上、右下、中心
func WriteCoords(w io.Writer, b model.BBox) error {
	c := b.Center()
	_, err := fmt.Fprintf(w, "Top-left: (%d, %d)\nBottom-right: (%d, %d)\nCenter: (%d, %d)\n",
		b.MinX, b.MinY, b.MaxX, b.MaxY, c.X, c.Y)
	return err
}
