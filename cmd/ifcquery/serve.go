package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ifcquery/internal/adapters/queries"
	"ifcquery/internal/blob"
	"ifcquery/internal/config"
	"ifcquery/internal/core"
	"ifcquery/internal/observability"
)

// metricsSink is a metrics recorder with its own scrape endpoint.
type metricsSink interface {
	core.MetricsRecorder
	Handler() http.Handler
}

func newMetrics(cfg config.MetricsConfig) metricsSink {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Driver == config.MetricsExpvar {
		return core.NewExpvarRecorder("")
	}
	return observability.NewPrometheusRecorder()
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ln, err := net.Listen("tcp", a.cfg.Server.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr, err)
			}
			return a.serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override server.addr")
	return cmd
}

// serve wires storage, metrics, the model service and the export worker,
// restores stored models and serves on ln until ctx is done.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	cfg, log := a.cfg, a.log

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	snapshots, err := core.OpenSnapshotStore(ctx, cfg.Persistence)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	if snapshots != nil {
		defer func() {
			if err := snapshots.Close(); err != nil {
				log.Warn("close snapshot store", "error", err)
			}
		}()
	}

	opts := append(a.serviceOptions(), core.WithBlobStore(blobs))
	if snapshots != nil {
		opts = append(opts, core.WithSnapshotStore(snapshots))
	}
	metrics := newMetrics(cfg.Metrics)
	if metrics != nil {
		opts = append(opts, core.WithMetricsRecorder(metrics))
	}
	svc := core.NewService(opts...)

	restored, err := svc.RestoreModels(ctx)
	if err != nil {
		return fmt.Errorf("restore models: %w", err)
	}

	worker := queries.NewWorker(svc, blobs,
		queries.WithQueueSize(cfg.Server.ExportQueue),
		queries.WithWorkerLogger(log),
	)
	worker.Start()

	mux := http.NewServeMux()
	mux.Handle("/api/", queries.NewHandler(svc, worker, log))
	if metrics != nil {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	log.Info("ifcquery serving", "addr", ln.Addr().String(), "blob_driver", blobs.Driver(),
		"persistence_driver", cfg.Persistence.Driver, "metrics_driver", cfg.Metrics.Driver, "restored_models", restored)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if err := worker.Stop(shutdownCtx); err != nil {
		log.Warn("export worker shutdown", "error", err)
	}
	log.Info("ifcquery stopped")
	return serveErr
}
