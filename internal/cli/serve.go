package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/flightdesk/internal/config"
	"github.com/iliyamo/flightdesk/internal/database"
	"github.com/iliyamo/flightdesk/internal/dispatch"
	"github.com/iliyamo/flightdesk/internal/handler"
	"github.com/iliyamo/flightdesk/internal/metrics"
	"github.com/iliyamo/flightdesk/internal/queue"
	"github.com/iliyamo/flightdesk/internal/repository"
	"github.com/iliyamo/flightdesk/internal/router"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "create missing tables before serving")
	return cmd
}

func runServe(parent context.Context, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	defer db.Close()

	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("schema ready")
	}

	m, err := metrics.New("flightdesk", prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, rate limiting and caching disabled", "addr", cfg.Redis.Addr, "error", err)
		rdb = nil
	} else {
		defer rdb.Close()
	}

	pub := queue.NewPublisher(cfg.AMQPURL, queue.DefaultQueue, log)
	defer pub.Close()

	store := repository.NewStore(db)
	checker := dispatch.NewCapacityChecker(store, cfg.Dispatch, log, m)
	dispatcher := dispatch.NewDispatcher(store, pub, cfg.Dispatch, log, m)
	filler := dispatch.NewManifestFiller(store, pub, cfg.Dispatch, log, m)

	e := router.New(router.Deps{
		Config:       cfg,
		Log:          log,
		Metrics:      m,
		Gatherer:     prometheus.DefaultGatherer,
		Redis:        rdb,
		DB:           db,
		Availability: &handler.AvailabilityHandler{Checker: checker, Log: log},
		Dispatch:     &handler.DispatchHandler{Dispatcher: dispatcher, Log: log},
		Manifest:     &handler.ManifestHandler{Manifests: filler, Log: log},
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	// let in-flight event publishes finish before the publisher closes
	dispatcher.Wait()
	filler.Wait()
	return nil
}
