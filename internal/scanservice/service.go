// Package scanservice is a reference implementation of the external secret
// scanning service, backed by the gitleaks default rule set. It lets the
// inspection pipeline run end to end without a third-party scanner.
package scanservice

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/internal/infra/scanclient"
	"github.com/ahrav/pdfguard/pkg/common/logger"
)

// Service scans text with a gitleaks detector.
type Service struct {
	detector *detect.Detector

	logger *logger.Logger
	tracer trace.Tracer
}

// New creates a Service using the embedded gitleaks configuration.
func New(log *logger.Logger, tracer trace.Tracer) (*Service, error) {
	detector, err := newDetector()
	if err != nil {
		return nil, err
	}

	svc := &Service{
		detector: detector,
		logger:   log.With("component", "scan_service"),
		tracer:   tracer,
	}
	svc.logger.Info(context.Background(), "gitleaks detector ready", "rules", len(detector.Config.Rules))
	return svc, nil
}

// newDetector initializes the gitleaks detector using the embedded default configuration.
func newDetector() (*detect.Detector, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewBufferString(config.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("failed to read embedded config: %w", err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedded config: %w", err)
	}

	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("failed to translate ViperConfig to Config: %w", err)
	}

	return detect.NewDetector(cfg), nil
}

// Scan runs the detector over text. Secret values are redacted before they
// leave the service.
func (s *Service) Scan(ctx context.Context, text string) scanclient.ScanResponse {
	_, span := s.tracer.Start(ctx, "scan_service.scan",
		trace.WithAttributes(attribute.Int("text.length", len(text))))
	defer span.End()

	found := s.detector.DetectString(text)

	resp := scanclient.ScanResponse{
		Secrets:  len(found) > 0,
		Findings: make([]scanclient.ScanFinding, 0, len(found)),
	}
	for _, f := range found {
		resp.Findings = append(resp.Findings, scanclient.ScanFinding{
			Type:     f.RuleID,
			Value:    domain.Redact(f.Secret),
			Severity: string(domain.SeverityHigh),
		})
	}
	// Detector output order depends on rule iteration.
	sort.SliceStable(resp.Findings, func(i, j int) bool {
		return resp.Findings[i].Type < resp.Findings[j].Type
	})

	span.SetAttributes(attribute.Int("findings.count", len(found)))
	span.SetStatus(codes.Ok, "scan completed")
	if len(found) > 0 {
		s.logger.Info(ctx, "secrets detected", "findings", len(found))
	}
	return resp
}
