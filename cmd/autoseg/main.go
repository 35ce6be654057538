package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"github.com/chaos-io/maskseg/bootstrap"
	"github.com/chaos-io/maskseg/config"
	"github.com/chaos-io/maskseg/ui"
	"github.com/chaos-io/maskseg/util/log"
)

func main() {
	a := app.New()

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fatal(a, ui.FatalConfig, err)
		return
	}
	if err := log.InitLogger(cfg.Log.Mode); err != nil {
		panic(err)
	}
	defer log.Sync()

	s, p, err := bootstrap.Start(context.Background(), cfg, true, log.Logger)
	if err != nil {
		log.Logger.Error("startup failed", zap.Error(err))
		msg := ui.FatalModels
		if errors.Is(err, bootstrap.ErrOutputDir) {
			msg = ui.FatalOutput
		}
		fatal(a, msg, err)
		return
	}
	defer s.Close()

	w := ui.NewAutoWindow(a, p, cfg.Display, log.Logger)
	m, err := s.StartMonitor(cfg.Monitor.Spec, w.OnServiceChange)
	if err != nil {
		log.Logger.Warn("health monitor disabled", zap.Error(err))
	} else {
		defer m.Stop()
	}

	w.Window().Resize(fyne.NewSize(float32(cfg.Display.PreviewSize*3+60), float32(cfg.Display.PreviewSize+140)))
	w.Window().ShowAndRun()
}

func fatal(a fyne.App, msg string, err error) {
	ui.ShowFatal(a, ui.AutoTitle, msg, err)
	a.Run()
}
