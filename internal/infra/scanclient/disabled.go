package scanclient

import (
	"context"

	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
)

// Disabled stands in for the scanning service when none is configured. Every
// call fails, which the orchestrator turns into a warn verdict.
type Disabled struct{}

var _ domain.ExternalScanner = Disabled{}

func (Disabled) ScanText(context.Context, string) (domain.ExternalScanResult, error) {
	return domain.ExternalScanResult{}, domain.ErrScannerNotConfigured
}
