package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codearena/internal/judge/coreclient"
	"codearena/internal/judge/sandbox"
	"codearena/internal/judge/worker"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge-worker.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() { _ = logger.Sync() }()

	engine := sandbox.NewDockerEngine()
	if err := engine.Ping(context.Background()); err != nil {
		logger.Error(context.Background(), "container engine unreachable", zap.Error(err))
		return
	}

	queue, err := buildQueue(&appCfg.Broker)
	if err != nil {
		logger.Error(context.Background(), "init broker failed", zap.Error(err))
		return
	}
	defer func() { _ = queue.Close() }()

	var core *coreclient.Client
	if appCfg.Core.BaseURL != "" {
		core = coreclient.NewClient(appCfg.Core.BaseURL, appCfg.Core.InternalAPIKey)
	}

	judge := worker.NewJudge(sandbox.NewExecutor(engine), appCfg.Judge.WorkRoot, appCfg.Judge.TimeoutSec)
	w := worker.NewWorker(queue, judge, core)

	if err := w.Start(context.Background()); err != nil {
		logger.Error(context.Background(), "start worker failed", zap.Error(err))
		return
	}
	logger.Info(context.Background(), "judge worker started",
		zap.String("work_root", appCfg.Judge.WorkRoot))

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	logger.Info(context.Background(), "shutdown signal received")
	if err := w.Stop(); err != nil {
		logger.Error(context.Background(), "stop worker failed", zap.Error(err))
	}
}
