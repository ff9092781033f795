package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/pdfguard/internal/api"
	"github.com/ahrav/pdfguard/internal/api/mux"
	"github.com/ahrav/pdfguard/internal/app/telemetry"
	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/pkg/common/logger"
)

type allowAll struct{}

func (allowAll) Inspect(context.Context, domain.Upload) (*domain.Verdict, error) {
	return domain.ExternalVerdict(domain.ExternalScanResult{}), nil
}

func newHandler(t *testing.T, devMode bool, options ...func(*mux.Options)) http.Handler {
	t.Helper()
	metrics, err := api.NewAPIMetrics(metricnoop.NewMeterProvider())
	require.NoError(t, err)

	return mux.WebAPI(mux.Config{
		Build:          "test",
		Log:            logger.New(io.Discard, logger.LevelDebug, "test", nil),
		Tracer:         noop.NewTracerProvider().Tracer("test"),
		Metrics:        metrics,
		Inspector:      allowAll{},
		MaxUploadBytes: 1 << 20,
		Ring:           telemetry.NewRing(telemetry.DefaultCapacity),
		DevMode:        devMode,
	}, Routes(), options...)
}

func TestRoutesByMode(t *testing.T) {
	tests := []struct {
		name    string
		devMode bool
		method  string
		path    string
		want    int
	}{
		{name: "liveness", method: http.MethodGet, path: "/v1/liveness", want: http.StatusOK},
		{name: "readiness", method: http.MethodGet, path: "/v1/readiness", want: http.StatusOK},
		{name: "inspect without body", method: http.MethodPost, path: "/v1/inspect", want: http.StatusOK},
		{name: "debug hidden in production", method: http.MethodGet, path: "/v1/debug/stats", want: http.StatusNotFound},
		{name: "debug served in development", devMode: true, method: http.MethodGet, path: "/v1/debug/stats", want: http.StatusOK},
		{name: "debug reset in development", devMode: true, method: http.MethodDelete, path: "/v1/debug/requests", want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(t, tt.devMode)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newHandler(t, false, mux.WithCORS([]string{"*"}))
	req := httptest.NewRequest(http.MethodOptions, "/v1/inspect", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
