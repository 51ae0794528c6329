package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/theway/theway-go/internal/config"
	"github.com/theway/theway-go/internal/gateway"
	"github.com/theway/theway-go/internal/imagery"
	"github.com/theway/theway-go/internal/logging"
	"github.com/theway/theway-go/internal/session"
)

// backend bundles what every command needs to talk to the server
type backend struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *gateway.Metrics
	client  *gateway.Client
	loader  *imagery.Loader
}

func newBackend(cfg *config.Config) (*backend, error) {
	logger, err := logging.New(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	metrics := gateway.NewMetrics()
	client, err := gateway.New(cfg.Connection.BaseURL,
		gateway.WithTimeout(cfg.Connection.Timeout()),
		gateway.WithSessionCookie(cfg.Connection.SessionCookie),
		gateway.WithLogger(logger.Named("gateway")),
		gateway.WithMetrics(metrics),
	)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	loader, err := imagery.NewLoader(client.BaseURL(),
		imagery.WithHeader("Cookie", client.SessionCookie()),
		imagery.WithLogger(logger.Named("imagery")),
		imagery.WithLoadHook(metrics.RasterLoaded),
	)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &backend{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		client:  client,
		loader:  loader,
	}, nil
}

// newSession creates a map session registered with the configured extent
func (b *backend) newSession() *session.Session {
	opts := []session.Option{session.WithLogger(b.logger.Named("session"))}
	if ext, err := b.cfg.Map.Extent(); err == nil {
		opts = append(opts, session.WithGeographicExtent(ext))
	}
	return session.New(b.client, b.loader, opts...)
}

// serveMetrics exposes the Prometheus endpoint on addr until the returned
// function is called. An empty addr serves nothing.
func (b *backend) serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", b.metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	b.logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// Close flushes the logger
func (b *backend) Close() {
	_ = b.logger.Sync()
}
