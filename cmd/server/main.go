package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/flightfusion/fusion/internal/api"
	"github.com/flightfusion/fusion/internal/audit"
	"github.com/flightfusion/fusion/internal/config"
	"github.com/flightfusion/fusion/internal/simulate"
	"github.com/flightfusion/fusion/internal/source/historic"
	"github.com/flightfusion/fusion/internal/source/replay"
	"github.com/flightfusion/fusion/internal/store/flightstore"
	"github.com/flightfusion/fusion/internal/store/predictionstore"
	"github.com/flightfusion/fusion/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting fusion server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	flights, err := flightstore.Open(cfg.DocumentStore.FlightsDBPath, log)
	if err != nil {
		log.Error("Failed to open flight store", logger.Error(err))
		os.Exit(1)
	}
	defer flights.Close()

	predictions, err := predictionstore.Open(cfg.DocumentStore.PredictedFlightsDBPath, log)
	if err != nil {
		log.Error("Failed to open prediction store", logger.Error(err))
		os.Exit(1)
	}
	defer predictions.Close()

	auditLog, err := audit.Open(cfg.DocumentStore.ProcessingHistoryDBPath, log)
	if err != nil {
		log.Error("Failed to open audit log", logger.Error(err))
		os.Exit(1)
	}
	defer auditLog.Close()

	historicClient, err := historic.OpenSQLClient(cfg.HistoricStore.DSN, log)
	if err != nil {
		log.Error("Failed to open historic store client", logger.Error(err))
		os.Exit(1)
	}
	defer historicClient.Close()

	openReplay := func(ctx context.Context, date string, startTime, endTime *string) (replay.Stream, error) {
		return replay.OpenAMQPStream(ctx, cfg.ReplayStore.AMQPConnectionString, cfg.ReplayStore.QueueName, date, startTime, endTime, log)
	}

	handler := api.NewHandler(api.Deps{
		Flights:     flights,
		Predictions: predictions,
		AuditLog:    auditLog,
		Historic:    historicClient,
		Simulator:   simulate.NewDeadReckoning(),
		OpenReplay:  openReplay,
		DefaultDate: cfg.Pipeline.DefaultProcessDate,
		Logger:      log,
	})

	router := api.NewRouter(handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     router,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.Error(err))
		}
	}()

	go runAuditRetention(ctx, auditLog, cfg.Pipeline.AuditRetentionDays, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", logger.Error(err))
		}
	}()
	wg.Wait()

	log.Info("Server fully stopped")
}

// runAuditRetention periodically prunes processing_history rows older than
// the configured retention window, until ctx is cancelled.
func runAuditRetention(ctx context.Context, auditLog *audit.Log, retentionDays int, log *logger.Logger) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auditLog.CleanupOlderThan(ctx, retentionDays)
			if err != nil {
				log.Warn("audit retention cleanup failed", logger.Error(err))
				continue
			}
			if n > 0 {
				log.Info("pruned old processing history", logger.Int64("count", n))
			}
		}
	}
}
