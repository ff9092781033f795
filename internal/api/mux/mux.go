// Package mux provides support to bind domain level routes
// to the application mux.
package mux

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/pdfguard/internal/api"
	"github.com/ahrav/pdfguard/internal/api/mid"
	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/internal/app/telemetry"
	"github.com/ahrav/pdfguard/pkg/common/logger"
	"github.com/ahrav/pdfguard/pkg/web"
)

// Options represent optional parameters.
type Options struct {
	corsOrigin []string
}

// WithCORS provides configuration options for CORS.
func WithCORS(origins []string) func(opts *Options) {
	return func(opts *Options) {
		opts.corsOrigin = origins
	}
}

// Inspector runs the inspection pipeline for one upload.
type Inspector interface {
	Inspect(ctx context.Context, up domain.Upload) (*domain.Verdict, error)
}

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Build   string
	Log     *logger.Logger
	Tracer  trace.Tracer
	Metrics api.APIMetrics

	Inspector      Inspector
	MaxUploadBytes int64

	// Ring is only consulted when DevMode is set.
	Ring    *telemetry.Ring
	DevMode bool
}

// RouteAdder defines behavior that sets the routes to bind for an instance
// of the service.
type RouteAdder interface {
	Add(app *web.App, cfg Config)
}

// WebAPI constructs a http.Handler with all application routes bound.
func WebAPI(cfg Config, routeAdder RouteAdder, options ...func(opts *Options)) http.Handler {
	logger := func(ctx context.Context, msg string, args ...any) {
		cfg.Log.Info(ctx, msg, args...)
	}

	app := web.NewApp(
		logger,
		cfg.Tracer,
		mid.Otel(cfg.Tracer),
		mid.Logger(cfg.Log),
		mid.Metrics(cfg.Metrics),
		mid.Errors(cfg.Log),
		mid.Panics(),
	)

	var opts Options
	for _, option := range options {
		option(&opts)
	}

	if len(opts.corsOrigin) > 0 {
		app.EnableCORS(opts.corsOrigin)
	}

	routeAdder.Add(app, cfg)

	return app
}
