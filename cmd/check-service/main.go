package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"codearena/internal/check/controller"
	"codearena/internal/check/embed"
	"codearena/internal/check/normalize"
	"codearena/internal/check/service"
	"codearena/internal/gateway/middleware"
	"codearena/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/check-service.yaml"

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

	var normalizer normalize.Normalizer = normalize.NoopNormalizer{}
	if appCfg.Normalizer.Endpoint != "" {
		normalizer = normalize.NewLLMNormalizer(appCfg.Normalizer.Endpoint, appCfg.Normalizer.APIKey, appCfg.Normalizer.Model)
	}

	embedder := embed.NewEmbedder(appCfg.Embedder.ModelPath, appCfg.Embedder.TokenizerPath)
	defer func() { _ = embedder.Close() }()

	var cache *embed.Cache
	if appCfg.Embedder.CachePath != "" {
		cache, err = embed.OpenCache(appCfg.Embedder.CachePath)
		if err != nil {
			logger.Error(context.Background(), "open embedding cache failed", zap.Error(err))
			return
		}
		defer func() { _ = cache.Close() }()
	}

	engine := service.NewEngine(normalizer, embedder, cache, appCfg.Embedder.Threshold)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())

	auth := middleware.AuthMiddleware(middleware.AuthConfig{
		InternalAPIKey: appCfg.Auth.InternalAPIKey,
		JWTSecret:      appCfg.Auth.JWTSecret,
	})
	controller.NewCheckController(engine).RegisterRoutes(router, auth)

	httpServer := &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
	}

	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "check service started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}
