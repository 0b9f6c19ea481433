package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ml/internal/httpapi"
	"github.com/ajitpratap0/nebula-ml/internal/service"
	"github.com/ajitpratap0/nebula-ml/pkg/config"
	"github.com/ajitpratap0/nebula-ml/pkg/logger"
	"github.com/ajitpratap0/nebula-ml/pkg/observability"
)

const shutdownTimeout = 30 * time.Second

type configLoader func() (*config.ServiceConfig, error)

// setup initializes process logging and tracing from cfg
func setup(cfg *config.ServiceConfig) (*zap.Logger, func(), error) {
	err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, nil, err
	}
	log := logger.Get().With(zap.String("service", cfg.Name))

	err = observability.InitTracing(observability.TracingConfig{
		Enabled:        cfg.Observability.EnableTracing,
		ServiceName:    cfg.Name,
		ServiceVersion: version,
		SamplingRate:   cfg.Observability.TracingSampleRate,
		Writer:         os.Stderr,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.Shutdown(ctx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return log, cleanup, nil
}

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve operations over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log, cleanup, err := setup(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg, err := service.OpenRegistry(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := reg.Close(); err != nil {
					log.Warn("store close failed", zap.Error(err))
				}
			}()

			srv := httpapi.New(service.New(reg, log), httpapi.Options{
				Server:        cfg.Server,
				EnableMetrics: cfg.Observability.EnableMetrics,
			}, log)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}
}
