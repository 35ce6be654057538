package util

import (
	"time"

	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/util/log"
)

// Trace 记录一段代码的耗时，用法 defer util.Trace("name")()
func Trace(name string) func() {
	start := time.Now()
	log.Logger.Debug("enter", zap.String("name", name))
	return func() {
		log.Logger.Info("done", zap.String("name", name), zap.Duration("cost", time.Since(start)))
	}
}
