package rembg

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/imgproc"
)

// ONNXRemover 本地 RMBG-1.4 推理
type ONNXRemover struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	logger       *zap.Logger
}

// NewONNXRemover 加载模型，libPath 为空时使用 onnxruntime 默认查找路径
func NewONNXRemover(modelPath, libPath string, logger *zap.Logger) (*ONNXRemover, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, inputSize, inputSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, inputSize, inputSize))
	if err != nil {
		_ = inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		_ = inputTensor.Destroy()
		_ = outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	logger.Info("rembg model loaded", zap.String("model", modelPath))
	return &ONNXRemover{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		logger:       logger,
	}, nil
}

func (o *ONNXRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := imgproc.ToNRGBA(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	o.mu.Lock()
	defer o.mu.Unlock()

	copy(o.inputTensor.GetData(), toTensor(src, inputSize))
	if err := o.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	alpha := alphaFromTensor(o.outputTensor.GetData(), inputSize, w, h)
	return applyAlpha(src, alpha), nil
}

func (o *ONNXRemover) Close() {
	if o.inputTensor != nil {
		_ = o.inputTensor.Destroy()
	}
	if o.outputTensor != nil {
		_ = o.outputTensor.Destroy()
	}
	if o.session != nil {
		_ = o.session.Destroy()
	}
	_ = ort.DestroyEnvironment()
}
