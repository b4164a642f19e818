package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appinventory "github.com/hamimarket/minimart/internal/application/inventory"
	apporder "github.com/hamimarket/minimart/internal/application/order"
	"github.com/hamimarket/minimart/internal/config"
	"github.com/hamimarket/minimart/internal/infrastructure/file"
	"github.com/hamimarket/minimart/internal/infrastructure/id"
	"github.com/hamimarket/minimart/internal/infrastructure/observability/oteltrace"
	"github.com/hamimarket/minimart/internal/infrastructure/observability/prometrics"
	"github.com/hamimarket/minimart/internal/infrastructure/observability/telemetry"
	"github.com/hamimarket/minimart/internal/infrastructure/observability/zaplogger"
	"github.com/hamimarket/minimart/internal/infrastructure/receipt"
	"github.com/hamimarket/minimart/internal/observability"
	"github.com/hamimarket/minimart/internal/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	registry := prometrics.New(cfg.ServiceName, "")
	counters := map[observability.MetricKey]observability.Counter{
		observability.MOperationRequests: registry.Counter(
			observability.MOperationRequests,
			"Total number of ledger and engine operations.",
			"component", "operation", "outcome",
		),
		observability.MOrdersConfirmed: registry.Counter(
			observability.MOrdersConfirmed,
			"Orders confirmed at checkout.",
		),
		observability.MOrdersCleaned: registry.Counter(
			observability.MOrdersCleaned,
			"Expired orders removed by the cleanup sweep.",
		),
		observability.MReceiptWrites: registry.Counter(
			observability.MReceiptWrites,
			"Receipt files written, by outcome.",
			"outcome",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MOperationDuration: registry.Histogram(
			observability.MOperationDuration,
			"Duration of engine operations in seconds.",
			nil,
			"operation",
		),
	}
	tel := telemetry.New(
		oteltrace.New(cfg.ServiceName),
		zaplogger.New(
			observability.F("service", cfg.ServiceName),
			observability.F("env", cfg.Env),
		),
		counters,
		histograms,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, systemLogger)

	productStore, err := file.NewProductStore(cfg.InventoryFile)
	if err != nil {
		systemLogger.Fatal("product_store_init_failed", zap.Error(err))
	}
	orderStore, err := file.NewOrderStore(cfg.OrdersFile)
	if err != nil {
		systemLogger.Fatal("order_store_init_failed", zap.Error(err))
	}
	receipts, err := receipt.NewWriter(cfg.ReceiptsDir, cfg.StoreName)
	if err != nil {
		systemLogger.Fatal("receipt_writer_init_failed", zap.Error(err))
	}

	ledger, err := appinventory.NewService(ctx, productStore, tel)
	if err != nil {
		systemLogger.Fatal("ledger_init_failed", zap.Error(err))
	}
	engine, err := apporder.NewService(ctx, orderStore, ledger, receipts, id.NewUUIDGenerator(), cfg.ModifyWindow, tel)
	if err != nil {
		systemLogger.Fatal("engine_init_failed", zap.Error(err))
	}

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.CleanupSpec, func() {
		sweepLogger := logging.FromContext(ctx)
		if n, err := engine.CleanupExpired(ctx); err != nil {
			sweepLogger.Error("cleanup_sweep_failed", zap.Error(err))
		} else if n > 0 {
			sweepLogger.Info("cleanup_sweep_done", zap.Int("removed", n))
		}
	}); err != nil {
		systemLogger.Fatal("cleanup_schedule_invalid", zap.String("spec", cfg.CleanupSpec), zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	go func() {
		systemLogger.Info("metrics_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("metrics_server_error", zap.Error(err))
		}
	}()

	systemLogger.Info("minimart_ready",
		zap.String("inventory_file", cfg.InventoryFile),
		zap.String("orders_file", cfg.OrdersFile),
		zap.String("receipts_dir", cfg.ReceiptsDir),
		zap.Duration("modify_window", cfg.ModifyWindow),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("metrics_server_shutdown_error", zap.Error(err))
	} else {
		systemLogger.Info("metrics_server_stopped")
	}
}
