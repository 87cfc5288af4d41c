// Package server builds the HTTP server and runs it until its context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"image-library/internal/config"
)

// New creates an HTTP server with timeouts taken from cfg. A nil cfg uses
// conservative defaults.
func New(addr string, handler http.Handler, cfg *config.ServerConfig) *http.Server {
	readTimeout, writeTimeout, idleTimeout := 15*time.Second, 15*time.Second, 60*time.Second
	if cfg != nil {
		readTimeout, writeTimeout, idleTimeout = cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// shutdownTimeout.
func Run(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return <-errCh
}
