package main

import (
	"ObstacleVisServer/api"
	"ObstacleVisServer/config"
	backend "ObstacleVisServer/gRPC"
	"ObstacleVisServer/logger"
	"ObstacleVisServer/monitor"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogMode); err != nil {
		fmt.Println("Failed to init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Named("main")

	fmt.Println(strings.Repeat("#", 64))
	fmt.Printf("CPU Cores: %d\n", runtime.NumCPU())
	fmt.Println(" gRPC    Port:", cfg.RPCPort)
	fmt.Println(" HTTP    Port:", cfg.HTTPPort)
	fmt.Println(" Monitor Port:", cfg.MonitorPort)
	fmt.Println("Configured Workers Num:", cfg.WorkersNum)
	fmt.Println(strings.Repeat("#", 64))
	for _, w := range cfg.Normalize() {
		log.Warn(w)
	}
	if cfg.RenderDir != "" {
		if err := os.MkdirAll(cfg.RenderDir, 0o755); err != nil {
			log.Fatal("failed to create render dir", zap.String("dir", cfg.RenderDir), zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.StartMon(ctx, cfg.MonitorPort)
	}()

	srv := backend.NewServer(cfg)
	if err := srv.StartWorker(cfg.WorkersNum); err != nil {
		log.Fatal("failed to start workers", zap.Error(err))
	}
	grpcServer, err := backend.StartGRPCServer(srv, cfg.RPCPort)
	if err != nil {
		log.Fatal("failed to start gRPC server", zap.Error(err))
	}

	if cfg.LogMode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := api.NewRouter(cfg)
	if err != nil {
		log.Fatal("failed to build HTTP API", zap.Error(err))
	}
	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTPPort), Handler: router}
	go func() {
		log.Info("HTTP API listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP API stopped", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-srv.CloseChannel():
		log.Warn("shutdown requested over gRPC")
	case s := <-sig:
		log.Warn("received signal", zap.String("signal", s.String()))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP API shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	srv.StopWorkers()
	cancel()
	wg.Wait()
	log.Info("safely exited")
}
