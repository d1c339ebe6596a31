package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hbar-desk/go-client/internal/credstore"
	"hbar-desk/go-client/internal/ledger"
	"hbar-desk/go-client/internal/platform/privacylog"
	"hbar-desk/go-client/internal/wallet"
	"hbar-desk/go-client/internal/walletconfig"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to wallet.yaml (optional)")
	dataDir := flag.String("data-dir", "", "Directory for wallet local data (optional)")
	metricsAddr := flag.String("metrics-addr", "", "Metrics listen address override")
	transport := flag.String("transport", "", "Ledger transport override: memnet | grpc")
	refreshEvery := flag.Duration("refresh-interval", 30*time.Second, "Account reconcile interval while a session is active")
	flag.Parse()
	if *showVersion {
		fmt.Printf("walletd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(privacylog.WrapHandler(slog.NewJSONHandler(os.Stderr, nil)))

	cfg, err := walletconfig.LoadFromPath(*configPath)
	if err != nil {
		logger.Error("walletd failed to load config", "err", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Wallet.DataDir = *dataDir
	}
	if *metricsAddr != "" {
		cfg.Wallet.MetricsAddr = *metricsAddr
	}
	if *transport != "" {
		cfg.Ledger.Transport = *transport
	}

	gw, err := ledger.NewGateway(cfg.Ledger)
	if err != nil {
		logger.Error("walletd failed to initialize gateway", "transport", cfg.Ledger.Transport, "err", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	svc := wallet.New(wallet.Options{
		Store:       credstore.New(cfg.Wallet.DataDir, cfg.Wallet.Passphrase),
		Gateway:     gw,
		Registry:    registry,
		Logger:      logger,
		SubmitRPS:   cfg.Wallet.SubmitRPS,
		SubmitBurst: cfg.Wallet.SubmitBurst,
	})

	resumed, err := svc.Resume(ctx)
	switch {
	case err != nil:
		logger.Warn("session resume failed", "err", err)
	case resumed:
		logger.Info("session resumed from disk")
	default:
		logger.Info("no persisted session; waiting for connect")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: cfg.Wallet.MetricsAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("walletd starting", "metrics_addr", cfg.Wallet.MetricsAddr, "transport", cfg.Ledger.Transport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ticker := time.NewTicker(*refreshEvery)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-errCh:
			logger.Error("walletd metrics server failed", "err", err)
			os.Exit(1)
		case <-ticker.C:
			if _, ok := svc.Snapshot(); !ok {
				continue
			}
			if _, err := svc.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("periodic reconcile failed", "err", err)
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("walletd stopped")
}
