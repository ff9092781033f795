// Package inspection sequences the credential-leak inspection of an upload:
// fingerprinting, cached extraction, local detection, the external scan and
// the final allow/warn/block decision.
package inspection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/pdfguard/internal/app/telemetry"
	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/pkg/common/logger"
)

// DefaultExternalTimeout bounds one external scan, retries included.
const DefaultExternalTimeout = 10 * time.Second

// Recorder receives a summary of every inspection. It is nil outside
// development mode.
type Recorder interface {
	Record(e telemetry.Entry)
}

// OrchestratorConfig tunes the orchestrator.
type OrchestratorConfig struct {
	ExternalTimeout time.Duration
}

// Orchestrator turns an upload into a verdict. Local detection is
// authoritative for blocking; the external scanner is consulted only when the
// local pass is clean and the content was readable. Anything that prevents a
// full inspection resolves to warn, never to allow.
type Orchestrator struct {
	coordinator *Coordinator
	detector    domain.SecretDetector
	scanner     domain.ExternalScanner
	publisher   domain.VerdictPublisher
	recorder    Recorder
	cfg         OrchestratorConfig

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics OrchestratorMetrics
	now     func() time.Time
}

// NewOrchestrator wires an Orchestrator. recorder may be nil.
func NewOrchestrator(
	coordinator *Coordinator,
	detector domain.SecretDetector,
	scanner domain.ExternalScanner,
	publisher domain.VerdictPublisher,
	recorder Recorder,
	cfg OrchestratorConfig,
	log *logger.Logger,
	tracer trace.Tracer,
	metrics OrchestratorMetrics,
) *Orchestrator {
	if cfg.ExternalTimeout <= 0 {
		cfg.ExternalTimeout = DefaultExternalTimeout
	}
	return &Orchestrator{
		coordinator: coordinator,
		detector:    detector,
		scanner:     scanner,
		publisher:   publisher,
		recorder:    recorder,
		cfg:         cfg,
		logger:      log.With("component", "scan_orchestrator"),
		tracer:      tracer,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Inspect produces exactly one verdict for up. Unreadable content, short text
// and an unavailable external scanner are all folded into the verdict. The
// only error returned is ctx's when the caller abandons the request while
// extraction is still running.
func (o *Orchestrator) Inspect(ctx context.Context, up domain.Upload) (*domain.Verdict, error) {
	start := o.now()
	requestID := uuid.NewString()
	mimeType := resolveMIMEType(up)

	logr := logger.NewLoggerContext(o.logger.With(
		"request_id", requestID,
		"filename", up.Filename,
		"declared_size", up.DeclaredSize,
	))

	ctx, span := o.tracer.Start(ctx, "inspection.orchestrator.inspect",
		trace.WithAttributes(
			attribute.String("request_id", requestID),
			attribute.String("filename", up.Filename),
			attribute.Int64("declared_size", up.DeclaredSize),
			attribute.String("mime_type", mimeType),
		),
	)
	defer span.End()

	if code, rejected := validate(up); rejected {
		v := domain.RejectedVerdict(code)
		v.ScannedAt = o.now()
		span.SetAttributes(attribute.String("error_code", code))
		logr.Info(ctx, "upload rejected", "error_code", code)
		o.finish(ctx, requestID, up, mimeType, "", domain.ExtractionResult{Strategy: domain.StrategyNone}, v, start)
		return v, nil
	}

	if !looksLikePDF(up.Data) {
		logr.Warn(ctx, "upload does not carry a PDF signature, inspecting anyway", "mime_type", mimeType)
	}

	fp := domain.NewFingerprint(up.Data, up.Filename, up.DeclaredSize)
	logr.Add("fingerprint", fp.Short())
	span.SetAttributes(attribute.String("fingerprint", fp.Short()))

	res, err := o.coordinator.GetOrExtract(ctx, fp, up.Data)
	if err != nil {
		span.SetStatus(codes.Error, "extraction wait aborted")
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("strategy", string(res.Strategy)),
		attribute.Bool("extraction_failed", res.Failed),
		attribute.Int("text_length", len(res.Text)),
	)

	v := o.decide(ctx, logr, res)
	v.WithExtraction(fp, res, o.now())

	span.SetAttributes(
		attribute.String("action", string(v.Action)),
		attribute.String("source", string(v.Source)),
		attribute.Int("findings", len(v.Findings)),
	)
	span.SetStatus(codes.Ok, "verdict reached")
	logr.Info(ctx, "verdict reached",
		"action", v.Action,
		"source", v.Source,
		"strategy", res.Strategy,
		"categories", domain.Categories(v.Findings),
		"extraction_error", v.ExtractionError,
	)

	o.finish(ctx, requestID, up, mimeType, fp, res, v, start)
	return v, nil
}

// validate rejects uploads that are not scan targets at all.
func validate(up domain.Upload) (string, bool) {
	switch {
	case up.Filename == "" && len(up.Data) == 0:
		return domain.ErrCodeNoFile, true
	case up.DeclaredSize == 0 || len(up.Data) == 0:
		return domain.ErrCodeEmptyPDF, true
	}
	return "", false
}

// decide applies the detection policy to an extraction result.
func (o *Orchestrator) decide(
	ctx context.Context,
	logr *logger.LoggerContext,
	res domain.ExtractionResult,
) *domain.Verdict {
	// Partial fallback text is still worth a local pass.
	if findings := o.detector.Detect(res.Text); len(findings) > 0 {
		return domain.LocalDetectionVerdict(findings, "")
	}

	if res.Failed {
		return domain.InsufficientVisibilityVerdict(domain.NoteExtractionFailed)
	}
	if !res.Sufficient() {
		return domain.InsufficientVisibilityVerdict(domain.NoteInsufficientText)
	}
	// A clean scan of part of the document is not a clean document.
	if res.Truncated {
		return domain.InsufficientVisibilityVerdict(domain.NoteTextTruncated)
	}

	scanCtx, cancel := context.WithTimeout(ctx, o.cfg.ExternalTimeout)
	defer cancel()

	ext, err := o.scanner.ScanText(scanCtx, res.Text)
	if err != nil {
		o.metrics.IncExternalScanError(ctx)
		logr.Warn(ctx, "external scan failed, degrading to local result", "error", err)
		return domain.DegradedVerdict(domain.NoteExternalUnavailable)
	}

	v := domain.ExternalVerdict(ext)
	if v.SecretsFound {
		return v
	}

	// Safety net: the external scanner is one fallible detector.
	if findings := o.detector.Detect(res.Text); len(findings) > 0 {
		logr.Warn(ctx, "local detector overrode clean external result",
			"categories", domain.Categories(findings),
		)
		return domain.LocalDetectionVerdict(findings, domain.NoteLocalOverride)
	}
	return v
}

// finish emits telemetry, metrics and the audit event. None of these can
// change the verdict.
func (o *Orchestrator) finish(
	ctx context.Context,
	requestID string,
	up domain.Upload,
	mimeType string,
	fp domain.Fingerprint,
	res domain.ExtractionResult,
	v *domain.Verdict,
	start time.Time,
) {
	elapsed := o.now().Sub(start)
	o.metrics.IncVerdict(ctx, v.Action, v.Source)
	o.metrics.ObserveInspectionDuration(ctx, elapsed)

	if o.recorder != nil {
		o.recorder.Record(telemetry.Entry{
			RequestID:   requestID,
			Fingerprint: fp,
			Filename:    up.Filename,
			Size:        up.DeclaredSize,
			MimeType:    mimeType,
			Strategy:    res.Strategy,
			TextPreview: telemetry.Preview(res.Text),
			DurationMs:  elapsed.Milliseconds(),
			Action:      v.Action,
			Timestamp:   v.ScannedAt,
		})
	}

	if o.publisher == nil {
		return
	}
	evt := domain.VerdictEvent{
		RequestID:    requestID,
		Fingerprint:  fp,
		Filename:     up.Filename,
		Size:         up.DeclaredSize,
		Action:       v.Action,
		Source:       v.Source,
		Strategy:     res.Strategy,
		Categories:   domain.Categories(v.Findings),
		FindingCount: len(v.Findings),
		ErrorCode:    v.ErrorCode,
		OccurredAt:   v.ScannedAt,
	}
	if err := o.publisher.PublishVerdict(context.WithoutCancel(ctx), evt); err != nil {
		o.metrics.IncPublishError(ctx)
		o.logger.Error(ctx, "failed to publish verdict event", "request_id", requestID, "error", err)
	}
}
