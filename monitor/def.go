package monitor

import (
	"ObstacleVisServer/logger"
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

var (
	Registry = prometheus.NewRegistry()

	memUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "memory_usage_Megabytes",
		Help: "Memory usage in Megabytes",
	})
	cpuUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cpu_usage_percent",
		Help: "CPU usage in percent",
	})
	GRPCTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grpc_requests_total",
		Help: "Total number of gRPC requests processed",
	})
	HTTPTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "obstaclevis_http_requests_total",
		Help: "HTTP API requests by route and status code",
	}, []string{"route", "code"})
	RecordsLoaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "obstaclevis_records_loaded_total",
		Help: "Annotation records accepted by the codec",
	}, []string{"format"})
	LinesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "obstaclevis_lines_skipped_total",
		Help: "Annotation lines dropped by the codec",
	}, []string{"format"})
	ImagesRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "obstaclevis_images_rendered_total",
		Help: "Images annotated and encoded",
	})
)

func init() {
	Registry.MustRegister(memUsage, cpuUsage, GRPCTotal, HTTPTotal, RecordsLoaded, LinesSkipped, ImagesRendered)
}

// ObserveLoad counts one codec load. Filtered and malformed lines both count
// as skipped.
func ObserveLoad(format string, accepted, skipped int) {
	RecordsLoaded.WithLabelValues(format).Add(float64(accepted))
	LinesSkipped.WithLabelValues(format).Add(float64(skipped))
}

func ObserveRender() {
	ImagesRendered.Inc()
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func checkProcessInfo(proc *process.Process) {
	memInfo, err := proc.MemoryInfo()
	if err == nil {
		memUsage.Set(float64(memInfo.RSS / 1024 / 1024))
	}
	cpuPercent, err := proc.CPUPercent()
	if err == nil {
		cpuUsage.Set(math.Round(cpuPercent*100) / 100)
	}
}

// Serve exposes /metrics on lis and samples process usage until ctx is done.
func Serve(ctx context.Context, lis net.Listener) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Named("monitor").Info("metrics server listening", zap.String("addr", lis.Addr().String()))

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
checkPcs:
	for {
		select {
		case <-ctx.Done():
			break checkPcs
		case err := <-errCh:
			return err
		case <-ticker.C:
			checkProcessInfo(proc)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func StartMon(ctx context.Context, port int) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Named("monitor").Error("failed to listen", zap.Int("port", port), zap.Error(err))
		return
	}
	if err := Serve(ctx, lis); err != nil {
		logger.Named("monitor").Error("metrics server stopped", zap.Error(err))
	}
}
