package inspection

import (
	"context"
	"time"
)

// Upload is an inbound document as received from the ingress endpoint.
type Upload struct {
	Data         []byte
	Filename     string
	DeclaredSize int64
	MimeType     string
}

// Extractor turns PDF bytes into text. Implementations never return an error
// for unreadable documents; they return FailedExtraction instead.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ExtractionResult
}

// SecretDetector finds credential-shaped strings in text.
type SecretDetector interface {
	Detect(text string) []Finding
}

// ExternalScanResult is the contract consumed from the external scanning service.
type ExternalScanResult struct {
	SecretsFound bool
	Findings     []Finding
}

// ExternalScanner submits extracted text to the external scanning service.
// Any transport error, timeout or non-success response is returned as an error.
type ExternalScanner interface {
	ScanText(ctx context.Context, text string) (ExternalScanResult, error)
}

// VerdictEvent is the audit record emitted for every decision. It never
// carries secret material, only categories and counts.
type VerdictEvent struct {
	RequestID    string      `json:"request_id"`
	Fingerprint  Fingerprint `json:"fingerprint"`
	Filename     string      `json:"filename"`
	Size         int64       `json:"size"`
	Action       Action      `json:"action"`
	Source       Source      `json:"source"`
	Strategy     Strategy    `json:"strategy"`
	Categories   []string    `json:"categories"`
	FindingCount int         `json:"finding_count"`
	ErrorCode    string      `json:"error_code,omitempty"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

// VerdictPublisher ships verdict events to an audit sink.
type VerdictPublisher interface {
	PublishVerdict(ctx context.Context, evt VerdictEvent) error
	Close() error
}
