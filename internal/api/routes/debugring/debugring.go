// Package debugring exposes the recent-inspection ring for local debugging.
// It is only registered in development mode.
package debugring

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ahrav/pdfguard/internal/app/telemetry"
	"github.com/ahrav/pdfguard/pkg/common/logger"
	"github.com/ahrav/pdfguard/pkg/web"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log  *logger.Logger
	Ring *telemetry.Ring
}

// Routes binds the debug ring endpoints.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	app.HandlerFunc(http.MethodGet, version, "/debug/requests", entries(cfg))
	app.HandlerFunc(http.MethodGet, version, "/debug/stats", stats(cfg))
	app.HandlerFunc(http.MethodDelete, version, "/debug/requests", reset(cfg))
}

type entriesResponse struct {
	Entries []telemetry.Entry `json:"entries"`
	Count   int               `json:"count"`
}

// Encode implements the web.Encoder interface.
func (er entriesResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(er)
	return data, "application/json", err
}

type statsResponse telemetry.Stats

// Encode implements the web.Encoder interface.
func (sr statsResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(sr)
	return data, "application/json", err
}

func entries(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		list := cfg.Ring.Entries()
		if list == nil {
			list = []telemetry.Entry{}
		}
		return entriesResponse{Entries: list, Count: len(list)}
	}
}

func stats(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		return statsResponse(cfg.Ring.Stats())
	}
}

func reset(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		cfg.Ring.Reset()
		cfg.Log.Info(ctx, "debug ring cleared")
		return nil
	}
}
