package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resale-price/internal/cfg"
	"resale-price/internal/metrics"
	"resale-price/internal/ml"
	"resale-price/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(c.Level())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	predictor := initializePredictor(c, mw)

	serverCfg := ml.ServerConfig{
		Port:           c.ListenPort,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		MissingFields:  c.MissingFields,
		Metrics:        mw,
		MetricsHandler: promhttp.Handler(),
	}

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
		serverCfg.Recorder = store
	}

	startMetricsServer(ctx, c, cancel)

	server := ml.NewModelServer(predictor, serverCfg)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("prediction server failed")
			cancel()
		}
	}()

	log.Info().
		Int("port", c.ListenPort).
		Str("mode", c.PricingMode).
		Str("model", predictor.Metadata().Version).
		Msg("resale price server started")

	waitForShutdown(ctx, cancel)

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown prediction server")
	}
}

// initializePredictor loads the configured model and pricing policy. The
// server refuses to start without a valid model.
func initializePredictor(c cfg.Settings, mw *metrics.MetricsWrapper) *ml.Predictor {
	path, err := ml.ResolveModelPath(c.ModelPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.ModelPath).Msg("model not found")
	}

	pipeline, err := ml.LoadPipeline(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("model load failed")
	}

	predictor, err := ml.NewPredictor(pipeline, c.PricingPolicy(), mw)
	if err != nil {
		log.Fatal().Err(err).Msg("predictor initialization failed")
	}

	md := pipeline.Metadata
	log.Info().
		Str("path", path).
		Str("version", md.Version).
		Int("features", len(md.Features)).
		Float64("rmse", md.RMSE).
		Msg("model loaded")
	return predictor
}

// initializeStorage opens the prediction log if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without prediction log")
		return nil
	}
	return store
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, c cfg.Settings, cancel context.CancelFunc) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to shutdown metrics server")
		}
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
			cancel()
		}
	}()
}

// waitForShutdown blocks until a shutdown signal arrives or ctx is canceled
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()
}
