package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplaceDelivery/internal/config"
	"marketplaceDelivery/internal/db"
	"marketplaceDelivery/internal/delivery"
	grpcserver "marketplaceDelivery/internal/grpc"
	"marketplaceDelivery/internal/logging"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	dev := flag.Bool("dev", false, "use development defaults (insecure JWT secret)")
	rollback := flag.Bool("rollback", false, "roll back the most recent migration and exit")
	flag.Parse()

	// Load configuration
	load := config.Load
	if *dev {
		load = config.LoadWithDefaults
	}
	cfg, err := load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logging.Info().Str("config", cfg.String()).Msg("configuration loaded")

	// Open DB
	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("open db")
	}
	defer func() {
		if err := d.Close(); err != nil {
			logging.Error().Err(err).Msg("close db")
		}
	}()

	if *rollback {
		if err := db.RollbackLast(d); err != nil {
			logging.Error().Err(err).Msg("rollback migration")
			return
		}
		logging.Info().Str("path", cfg.Database.Path).Msg("rolled back last migration")
		return
	}

	repos := delivery.NewRepositories(d)
	svc := delivery.NewService(repos, cfg.Delivery)

	// Start gRPC
	shutdown, err := grpcserver.StartGRPC(cfg, grpcserver.NewDeliveryServer(svc, repos, repos.Users))
	if err != nil {
		logging.Fatal().Err(err).Msg("start grpc")
	}
	logging.Info().Str("address", cfg.GRPC.Address).Msg("gRPC server listening")

	var metricsSrv *http.Server
	if cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		logging.Info().Str("address", cfg.Metrics.Address).Msg("metrics server listening")
	}

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logging.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("grpc shutdown")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("metrics shutdown")
		}
	}
}
