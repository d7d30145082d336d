package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/constellation-tracker/internal/api"
	"github.com/signalsfoundry/constellation-tracker/internal/catalog"
	"github.com/signalsfoundry/constellation-tracker/internal/delivery"
	"github.com/signalsfoundry/constellation-tracker/internal/logging"
	"github.com/signalsfoundry/constellation-tracker/internal/observability"
)

func main() {
	httpAddr := flag.String("http-addr", ":8000", "TCP address the tracker API listens on")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	cacheTTL := flag.Duration("cache-ttl", time.Hour, "Element cache time-to-live")
	deterministic := flag.Bool("deterministic-generation", false, "Seed constellation generation per scenario id for reproducible element sets")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	collector, err := observability.NewTrackerCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	cache := catalog.NewElementCache(*cacheTTL)
	if err := collector.ObserveCacheStats(nil, cache); err != nil {
		log.Warn(ctx, "failed to register cache stats", logging.String("error", err.Error()))
	}

	opts := []catalog.Option{catalog.WithMetricsRecorder(collector)}
	if *deterministic {
		opts = append(opts, catalog.WithDeterministicGeneration())
	}
	registry := catalog.NewRegistry(cache, catalog.NewFetcher(nil), log, opts...)
	if err := registry.Seed(time.Now().UTC()); err != nil {
		log.Error(ctx, "failed to seed scenario registry", logging.String("error", err.Error()))
		os.Exit(1)
	}

	coord := delivery.NewCoordinator(registry, log, collector)
	server := api.NewServer(registry, coord, collector, log)

	srv := &http.Server{
		Addr:    *httpAddr,
		Handler: server.Router(),
	}

	log.Info(ctx, "starting tracker API server", logging.String("addr", *httpAddr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "tracker API server exited", logging.String("error", err.Error()))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down tracker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}

func serveMetrics(addr string, collector *observability.TrackerCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
