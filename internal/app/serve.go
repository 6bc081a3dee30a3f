package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"AptScanner/internal/httpapi"
	"AptScanner/internal/infrastructure/scheduler"
	"AptScanner/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the interval scheduler and the HTTP trigger until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	sched := usecase.NewScheduler(
		scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval),
		a,
		a.logger.With("component", "scheduler"),
	)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	srv := &http.Server{
		Addr:              a.cfg.Scheduler.ListenAddr,
		Handler:           httpapi.NewRouter(a, a.logger.With("component", "http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http trigger listening", "addr", srv.Addr, "interval", a.cfg.Scheduler.Interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler shutdown", "error", err)
	}

	return serveErr
}
