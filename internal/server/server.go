// Package server wires the SQL Gateway and Tool Gateway into one
// process lifecycle: start both listeners, wait for an OS signal or a
// fatal error from either, then drain within a bounded timeout.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cori-do/cori-sub001/internal/config"
	"github.com/cori-do/cori-sub001/internal/sqlgateway"
	"github.com/rs/zerolog"
)

// Runtime owns the long-running listeners a `cori serve` process hosts.
type Runtime struct {
	cfg        *config.Config
	logger     zerolog.Logger
	sqlGateway *sqlgateway.Server
	sqlListener net.Listener
	httpServer *http.Server
}

// New constructs a Runtime. httpHandler is the Tool Gateway's HTTP
// mux; it may be nil to run the SQL Gateway alone.
func New(cfg *config.Config, logger zerolog.Logger, sqlGateway *sqlgateway.Server, sqlListener net.Listener, httpHandler http.Handler) *Runtime {
	r := &Runtime{cfg: cfg, logger: logger, sqlGateway: sqlGateway, sqlListener: sqlListener}
	if httpHandler != nil {
		r.httpServer = &http.Server{
			Addr:         cfg.ToolGateway.HTTPAddr,
			Handler:      httpHandler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
	}
	return r
}

// Run starts both listeners and blocks until an OS signal arrives or
// one of them fails. On a listener failure it cancels ctx and returns
// that error at once; on a signal it cancels ctx and shuts the HTTP
// server down within the configured timeout.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		r.logger.Info().Str("addr", r.sqlListener.Addr().String()).Msg("sql gateway: listening")
		errs <- r.sqlGateway.Serve(ctx, r.sqlListener)
	}()

	if r.httpServer != nil {
		go func() {
			r.logger.Info().Str("addr", r.httpServer.Addr).Msg("tool gateway: listening")
			if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errs <- fmt.Errorf("tool gateway: %w", err)
			}
		}()
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		cancel()
		return err
	case sig := <-shutdown:
		r.logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), r.cfg.ToolGateway.ShutdownTimeout)
	defer shutdownCancel()

	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error().Err(err).Msg("tool gateway: graceful shutdown failed, forcing close")
			r.httpServer.Close()
		}
	}
	r.logger.Info().Msg("shutdown complete")
	return nil
}
