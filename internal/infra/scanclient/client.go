// Package scanclient talks to the external secret scanning service over HTTP.
package scanclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/pkg/common"
	"github.com/ahrav/pdfguard/pkg/common/logger"
)

var _ domain.ExternalScanner = (*Client)(nil)

const maxResponseBytes = 1 << 20

// Config configures the client.
type Config struct {
	URL               string
	APIKey            string
	RequestsPerSecond float64
	Burst             int
	MaxRetries        uint64
	InitialBackoff    time.Duration
}

// ScanRequest is the body posted to the scanning service.
type ScanRequest struct {
	Text string `json:"text"`
}

// ScanFinding is one finding reported by the scanning service.
type ScanFinding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Severity string `json:"severity"`
}

// ScanResponse is the scanning service's answer.
type ScanResponse struct {
	Secrets  bool          `json:"secrets"`
	Findings []ScanFinding `json:"findings"`
}

// Client submits extracted text to the scanning service. Transient failures
// (transport errors, 429 and 5xx) are retried with exponential backoff inside
// the caller's deadline.
type Client struct {
	cfg      Config
	endpoint string
	http     *http.Client
	limiter  *common.RateLimiter

	logger *logger.Logger
	tracer trace.Tracer
}

// New validates cfg and creates a Client.
func New(cfg Config, log *logger.Logger, tracer trace.Tracer) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid scan service url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid scan service url %q: scheme must be http or https", cfg.URL)
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}

	return &Client{
		cfg:      cfg,
		endpoint: u.String(),
		http:     &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		limiter:  common.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		logger:   log.With("component", "scan_client"),
		tracer:   tracer,
	}, nil
}

// ScanText posts text to the scanning service. Returned finding values are
// redacted regardless of what the service sent.
func (c *Client) ScanText(ctx context.Context, text string) (domain.ExternalScanResult, error) {
	ctx, span := c.tracer.Start(ctx, "scanclient.scan_text",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("endpoint", c.endpoint),
			attribute.Int("text_length", len(text)),
		),
	)
	defer span.End()

	body, err := json.Marshal(ScanRequest{Text: text})
	if err != nil {
		span.RecordError(err)
		return domain.ExternalScanResult{}, fmt.Errorf("failed to marshal scan request: %w", err)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.cfg.InitialBackoff
	expBackoff.MaxElapsedTime = 0 // bounded by ctx
	var b backoff.BackOff = expBackoff
	if c.cfg.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, c.cfg.MaxRetries)
	}

	var (
		resp     ScanResponse
		attempts int
		fatal    error
	)
	operation := func() error {
		attempts++
		r, err := c.do(ctx, body)
		var pe *permanentError
		switch {
		case err == nil:
			resp = r
			return nil
		case ctx.Err() != nil:
			fatal = ctx.Err()
			return nil
		case errors.As(err, &pe):
			fatal = pe.err
			return nil
		}
		c.logger.Debug(ctx, "scan attempt failed", "attempt", attempts, "error", err)
		return err
	}

	err = backoff.Retry(operation, backoff.WithContext(b, ctx))
	if err == nil {
		err = fatal
	}
	if err != nil {
		span.SetAttributes(attribute.Int("attempts", attempts))
		span.SetStatus(codes.Error, "scan failed")
		span.RecordError(err)
		return domain.ExternalScanResult{}, fmt.Errorf("external scan failed after %d attempt(s): %w", attempts, err)
	}

	findings := make([]domain.Finding, 0, len(resp.Findings))
	for _, f := range resp.Findings {
		findings = append(findings, domain.NewFinding(f.Type, f.Value))
	}

	span.SetAttributes(
		attribute.Int("attempts", attempts),
		attribute.Bool("secrets", resp.Secrets),
		attribute.Int("findings", len(findings)),
	)
	span.SetStatus(codes.Ok, "scan completed")

	return domain.ExternalScanResult{SecretsFound: resp.Secrets, Findings: findings}, nil
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

// do performs one request. Errors that retrying cannot fix are wrapped in
// permanentError.
func (c *Client) do(ctx context.Context, body []byte) (ScanResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ScanResponse{}, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ScanResponse{}, permanent(fmt.Errorf("failed to create scan request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return ScanResponse{}, fmt.Errorf("scan request failed: %w", err)
	}
	defer res.Body.Close()

	c.updateRateLimits(res.Header)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		err := fmt.Errorf("%w: status %d: %s", domain.ErrScanRejected, res.StatusCode, bytes.TrimSpace(data))
		if retryable(res.StatusCode) {
			return ScanResponse{}, err
		}
		return ScanResponse{}, permanent(err)
	}

	var out ScanResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&out); err != nil {
		return ScanResponse{}, permanent(fmt.Errorf("failed to decode scan response: %w", err))
	}
	return out, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// updateRateLimits follows X-RateLimit-Remaining and X-RateLimit-Reset when
// the service sends them, spending 90% of the remaining quota until reset.
func (c *Client) updateRateLimits(headers http.Header) {
	remaining, err1 := strconv.ParseInt(headers.Get("X-RateLimit-Remaining"), 10, 64)
	reset, err2 := strconv.ParseInt(headers.Get("X-RateLimit-Reset"), 10, 64)
	if err := errors.Join(err1, err2); err != nil || remaining <= 0 || reset <= 0 {
		return
	}

	until := time.Until(time.Unix(reset, 0))
	if until <= 0 {
		return
	}
	rps := float64(remaining) / until.Seconds()
	c.limiter.UpdateLimits(rps*0.9, int(remaining/10))
}
