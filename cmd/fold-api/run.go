package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/kubev2v/fold-planner/internal/api_server"
	"github.com/kubev2v/fold-planner/internal/config"
	"github.com/kubev2v/fold-planner/internal/events"
	"github.com/kubev2v/fold-planner/internal/predictor"
	"github.com/kubev2v/fold-planner/internal/service"
	"github.com/kubev2v/fold-planner/internal/storage"
	"github.com/kubev2v/fold-planner/internal/store"
	"github.com/kubev2v/fold-planner/pkg/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the fold planner api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		defer initLogger(cfg)()

		zap.S().Info("Starting API service...")
		defer zap.S().Info("API service stopped")

		if err := cfg.Validate(); err != nil {
			zap.S().Fatalw("validating configuration", "error", err)
		}
		zap.S().Infof("Using config: %s", cfg)

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		if err := migrations.MigrateStore(db, cfg.Database.Type, cfg.Service.MigrationFolder); err != nil {
			zap.S().Fatalw("running migrations", "error", err)
		}

		dataStore := store.NewStore(db)
		defer dataStore.Close()

		adapter, err := storage.New(cfg)
		if err != nil {
			zap.S().Fatalw("initializing storage", "error", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		predictorClient := predictor.NewClient(cfg.Service.Predictor.Endpoint, cfg.Service.Predictor.Timeout, cfg.Service.Predictor.ProgressTimeout)
		if err := predictorClient.HealthCheck(ctx); err != nil {
			zap.S().Warnw("predictor is not reachable, submissions will be recorded as failed until it is", "endpoint", cfg.Service.Predictor.Endpoint, "error", err)
		}

		producer := events.NewEventProducer(&events.StdoutWriter{}, events.WithBufferSize(cfg.Service.EventBufferSize))
		defer func() {
			if err := producer.Close(); err != nil {
				zap.S().Warnw("closing event producer", "error", err)
			}
		}()

		jobSrv := service.NewJobService(dataStore, adapter, predictorClient, service.WithEventWriter(producer))

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, jobSrv, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("Error running server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener, dataStore)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("Error running metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
