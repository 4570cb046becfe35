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
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/gateway/middleware"
	"codearena/internal/gateway/repository"
	"codearena/internal/gateway/service"
	"codearena/internal/judge/controller"
	"codearena/internal/judge/coreclient"
	"codearena/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/gateway.yaml"

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

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() { _ = redisCache.Close() }()

	queue, err := buildQueue(&appCfg.Broker)
	if err != nil {
		logger.Error(context.Background(), "init broker failed", zap.Error(err))
		return
	}
	defer func() { _ = queue.Close() }()

	dispatcher := service.NewDispatcher(queue)
	if err := dispatcher.Start(context.Background()); err != nil {
		logger.Error(context.Background(), "start response dispatcher failed", zap.Error(err))
		return
	}
	defer func() { _ = dispatcher.Stop() }()

	var core *coreclient.Client
	if appCfg.Core.BaseURL != "" {
		core = coreclient.NewClient(appCfg.Core.BaseURL, appCfg.Auth.InternalAPIKey)
	}

	contests := repository.NewContestRepository(redisCache)
	judgeService := service.NewJudgeService(queue, dispatcher, contests, core)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(requestLogger())

	auth := middleware.AuthMiddleware(middleware.AuthConfig{
		InternalAPIKey: appCfg.Auth.InternalAPIKey,
		JWTSecret:      appCfg.Auth.JWTSecret,
	})
	controller.NewJudgeController(judgeService).RegisterRoutes(router, auth)

	httpServer := &http.Server{
		Addr:           appCfg.Server.Addr,
		Handler:        router,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxHeaderBytes: appCfg.Server.MaxHeaderBytes,
	}

	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "gateway http server started", zap.String("addr", appCfg.Server.Addr))
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

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
