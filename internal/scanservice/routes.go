package scanservice

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ahrav/pdfguard/internal/api/errs"
	"github.com/ahrav/pdfguard/internal/infra/scanclient"
	"github.com/ahrav/pdfguard/pkg/web"
)

// maxRequestBytes bounds the JSON body a client may post.
const maxRequestBytes = 64 << 20

// RouteConfig configures the HTTP surface of the service.
type RouteConfig struct {
	Service *Service
	// APIKey, when set, must be presented as a bearer token.
	APIKey string
}

// Routes binds the scan endpoint.
func Routes(app *web.App, cfg RouteConfig) {
	const version = "v1"

	app.HandlerFunc(http.MethodPost, version, "/scan", scan(cfg))
}

type scanRequest struct {
	Text *string `json:"text" validate:"required"`
}

type scanResponse scanclient.ScanResponse

// Encode implements the web.Encoder interface.
func (sr scanResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(sr)
	return data, "application/json", err
}

func scan(cfg RouteConfig) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		if cfg.APIKey != "" && !authorized(r, cfg.APIKey) {
			return errs.Newf(errs.Unauthenticated, "missing or invalid bearer token")
		}

		if w := web.GetWriter(ctx); w != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
		}

		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}
		if err := errs.Check(req); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		return scanResponse(cfg.Service.Scan(ctx, *req.Text))
	}
}

func authorized(r *http.Request, apiKey string) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) == 1
}
