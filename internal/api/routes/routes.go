// Package routes binds every route group served by the API.
package routes

import (
	"github.com/ahrav/pdfguard/internal/api/mux"
	"github.com/ahrav/pdfguard/internal/api/routes/debugring"
	"github.com/ahrav/pdfguard/internal/api/routes/health"
	"github.com/ahrav/pdfguard/internal/api/routes/inspect"
	"github.com/ahrav/pdfguard/pkg/web"
)

// Routes constructs an add value which provides the implementation of
// RouteAdder for specifying what routes to bind to this instance.
func Routes() add {
	return add{}
}

type add struct{}

// Add implements the RouteAdder interface.
func (add) Add(app *web.App, cfg mux.Config) {
	health.Routes(app, health.Config{
		Build: cfg.Build,
		Log:   cfg.Log,
	})

	inspect.Routes(app, inspect.Config{
		Log:            cfg.Log,
		Inspector:      cfg.Inspector,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Metrics:        cfg.Metrics,
	})

	// Debug endpoints expose filenames and text previews.
	if cfg.DevMode && cfg.Ring != nil {
		debugring.Routes(app, debugring.Config{
			Log:  cfg.Log,
			Ring: cfg.Ring,
		})
	}
}
