// Package server runs the HTTP server and the optional gRPC health server
// until SIGINT/SIGTERM, then shuts everything down in order.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/artisanmart/storefront/pkg/grpc"
	"github.com/artisanmart/storefront/pkg/logger"
)

// Options configure Start.
type Options struct {
	Port string
	// GRPCPort enables the gRPC health server when set.
	GRPCPort        string
	ShutdownTimeout time.Duration
	// OnShutdown runs after the listeners stopped accepting work.
	OnShutdown func(ctx context.Context) error
}

// Start blocks until a shutdown signal or a listener failure. It returns a
// non-nil error when the servers could not start or shut down cleanly.
func Start(handler http.Handler, opts Options) error {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}

	srv := &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	failed := make(chan error, 2)
	go func() {
		logger.Info("http: listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- fmt.Errorf("server: http: %w", err)
		}
	}()

	var rpc *grpc.Server
	if opts.GRPCPort != "" {
		lis, err := grpc.Listen(opts.GRPCPort)
		if err != nil {
			failed <- err
		} else {
			rpc = grpc.New()
			go func() {
				if err := rpc.Serve(lis); err != nil {
					failed <- fmt.Errorf("server: grpc: %w", err)
				}
			}()
		}
	}

	stop := func(ctx context.Context) error {
		var errs []error
		if rpc != nil {
			rpc.SetServing(false)
		}
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server: http shutdown: %w", err))
		}
		if rpc != nil {
			rpc.Stop(ctx)
		}
		if opts.OnShutdown != nil {
			if err := opts.OnShutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), opts.ShutdownTimeout, map[string]gfshutdown.Operation{
		"storefront": stop,
	})

	select {
	case code := <-wait:
		if code != 0 {
			return fmt.Errorf("server: shutdown finished with exit code %d", code)
		}
		logger.Info("server: stopped")
		return nil
	case err := <-failed:
		logger.Error("server: listener failed, shutting down", "error", err)
		ctx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		return errors.Join(err, stop(ctx))
	}
}
