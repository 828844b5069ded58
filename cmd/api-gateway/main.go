package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/config"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/discovery"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var resolver Resolver
	if cfg.ConsulEnabled {
		consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort, logger)
		if err != nil {
			logger.Warn("⚠️ Failed to connect to Consul, using fallback upstream", zap.Error(err))
		} else {
			resolver = consul
		}
	}

	gateway := NewGateway(resolver, map[string]string{cfg.ServiceName: cfg.UpstreamURL}, logger)
	if resolver != nil {
		go gateway.watchServices(ctx, cfg.RefreshEvery)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	gateway.Routes(router, cfg.ServiceName)

	srv := &http.Server{
		Addr:              cfg.GatewayAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 API Gateway starting", zap.String("addr", cfg.GatewayAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Gateway failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Graceful shutdown failed", zap.Error(err))
	}
}
