// Command scanservice runs the reference external scanning service.
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
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ahrav/pdfguard/internal/api/mid"
	"github.com/ahrav/pdfguard/internal/scanservice"
	"github.com/ahrav/pdfguard/pkg/common/logger"
	"github.com/ahrav/pdfguard/pkg/web"
)

func main() {
	_, _ = maxprocs.Set()
	_ = godotenv.Load()

	log := logger.New(os.Stdout, logger.ParseLevel(os.Getenv("SCANSERVICE_LOG_LEVEL")), "SCANSERVICE", nil)

	ctx := context.Background()
	if err := run(ctx, log); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {
	addr := os.Getenv("SCANSERVICE_ADDRESS")
	if addr == "" {
		addr = "0.0.0.0:3100"
	}

	tracer := noop.NewTracerProvider().Tracer("scanservice")

	svc, err := scanservice.New(log, tracer)
	if err != nil {
		return fmt.Errorf("creating scan service: %w", err)
	}

	app := web.NewApp(
		func(ctx context.Context, msg string, args ...any) { log.Info(ctx, msg, args...) },
		tracer,
		mid.Logger(log),
		mid.Errors(log),
		mid.Panics(),
	)
	scanservice.Routes(app, scanservice.RouteConfig{
		Service: svc,
		APIKey:  os.Getenv("SCANSERVICE_API_KEY"),
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      app,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(ctx, "startup", "status", "scan service started", "host", addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
