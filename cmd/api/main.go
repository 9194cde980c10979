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

	"github.com/marcelsud/webhook-analyzer/config"
	"github.com/marcelsud/webhook-analyzer/internal/http/chi"
	"github.com/marcelsud/webhook-analyzer/internal/logger"
	"github.com/marcelsud/webhook-analyzer/internal/setup"
	"github.com/marcelsud/webhook-analyzer/metrics"
	"github.com/marcelsud/webhook-analyzer/routes"
	"github.com/rs/zerolog"
)

const TIMEOUT = 30 * time.Second

/*
 * Imports flow in one direction only: down. The application (api, cli) imports the business layers,
 * which import the storage layer
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	log, err := logger.New(chi.ServiceName, cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("webhook-analyzer stopped")
		os.Exit(1)
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	routeLoader := routes.NewLoader()
	if cfg.RoutesFile != "" {
		if err := routeLoader.Load(cfg.RoutesFile); err != nil {
			return err
		}
		log.Info().Int("routes", len(routeLoader.List())).Str("file", cfg.RoutesFile).Msg("routes loaded")
	}

	store, err := setup.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	var collector metrics.Collector = metrics.NewStoreCollector(store, metrics.DefaultWindow)
	if store.Counter != nil {
		collector = metrics.NewRedisCollector(store.Counter, store, routeLoader)
	}
	exporter, err := metrics.NewOTelExporter(collector, routeLoader.Sources())
	if err != nil {
		return err
	}
	defer exporter.Shutdown(context.Background())

	s, err := setup.NewService(cfg, store, routeLoader, exporter, log)
	if err != nil {
		return err
	}

	r := chi.Handlers(s, routeLoader, chi.Options{
		Logger:         log,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout(),
		Metrics:        exporter.ServeHTTP(),
	})
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout() + 5*time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	log.Info().
		Str("port", cfg.Port).
		Str("store", cfg.StoreDriver).
		Bool("ai", cfg.UsesAI()).
		Bool("forward", cfg.EnableForward).
		Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-errShutdown
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("forcing closing the server: %w", err)
	}
}
