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

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"epcsync/internal/app"
	"epcsync/internal/config"
	"epcsync/internal/handler"
	"epcsync/internal/jobs"
	"epcsync/internal/logging"
	"epcsync/internal/router"
	"epcsync/internal/service"
)

func main() {
	if err := run(); err != nil {
		logrus.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Log, os.Stderr)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := jobs.NewRegistry()
	a, err := app.Build(ctx, cfg, registry)
	if err != nil {
		return err
	}
	defer a.Close()

	queue := service.NewQueueWorker(a.Pipeline, registry, service.QueueConfig{
		Concurrency: cfg.Queue.Concurrency,
		Buffer:      cfg.Queue.Buffer,
	})
	workerDone := make(chan struct{})
	go func() {
		queue.Start(ctx)
		close(workerDone)
	}()

	var db handler.Pinger
	if a.DB != nil {
		db = a.DB
	}

	r := router.Setup(router.Handlers{
		Documents: handler.NewDocumentHandler(queue, cfg.Upload.Dir, cfg.Upload.MaxFileSizeMB),
		Jobs:      handler.NewJobHandler(registry, a.Pipeline),
		Records:   handler.NewRecordHandler(a.Tracker),
		Health:    handler.NewHealthHandler(db),
	}, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("server: listening on %s (%s)", cfg.Server.Port, cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			stop()
			<-workerDone
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logrus.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Warnf("server: shutdown: %v", err)
	}
	<-workerDone
	logrus.Info("server: stopped")
	return nil
}
