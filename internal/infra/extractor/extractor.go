// Package extractor turns arbitrary, possibly malformed, PDF byte buffers into
// plain text. Strategies run in a fixed order and the first one that yields
// any text wins: a page-limited structural parse, an unlimited tolerant
// structural parse, and finally byte-level stream recovery.
package extractor

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/pkg/common/logger"
)

var _ inspection.Extractor = (*Extractor)(nil)

// DefaultMaxPages bounds the standard strategy.
const DefaultMaxPages = 50

// Config tunes extraction limits.
type Config struct {
	// MaxPages is the number of leading pages the standard strategy reads.
	MaxPages int
	// MaxInflateBytes caps the output of any single decompressed stream.
	MaxInflateBytes int64
	// MaxTotalInflateBytes caps the decoded output of all streams in one
	// document. Streams past the budget are skipped and the result is marked
	// truncated.
	MaxTotalInflateBytes int64
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxPages:             DefaultMaxPages,
		MaxInflateBytes:      defaultMaxInflateBytes,
		MaxTotalInflateBytes: defaultMaxTotalInflateBytes,
	}
}

type strategyFunc func(ctx context.Context, data []byte) (inspection.ExtractionResult, bool)

type strategy struct {
	kind inspection.Strategy
	run  strategyFunc
}

// Extractor runs the ordered extraction strategies. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	cfg        Config
	strategies []strategy

	logger *logger.Logger
	tracer trace.Tracer
}

// New creates an Extractor. Zero values in cfg fall back to DefaultConfig.
func New(cfg Config, log *logger.Logger, tracer trace.Tracer) *Extractor {
	def := DefaultConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.MaxInflateBytes <= 0 {
		cfg.MaxInflateBytes = def.MaxInflateBytes
	}
	if cfg.MaxTotalInflateBytes <= 0 {
		cfg.MaxTotalInflateBytes = max(def.MaxTotalInflateBytes, cfg.MaxInflateBytes)
	}

	e := &Extractor{
		cfg:    cfg,
		logger: log.With("component", "pdf_extractor"),
		tracer: tracer,
	}
	e.strategies = []strategy{
		{kind: inspection.StrategyStandard, run: e.standard},
		{kind: inspection.StrategyAlternative, run: e.alternative},
		{kind: inspection.StrategyByteFallback, run: e.byteFallback},
	}
	return e
}

// Extract applies each strategy in order and returns the first result with
// non-blank text. When nothing works it returns inspection.FailedExtraction;
// an unreadable document is an expected outcome, not an error.
func (e *Extractor) Extract(ctx context.Context, data []byte) inspection.ExtractionResult {
	ctx, span := e.tracer.Start(ctx, "extractor.extract",
		trace.WithAttributes(
			attribute.String("component", "pdf_extractor"),
			attribute.Int("pdf.size_bytes", len(data)),
		),
	)
	defer span.End()

	for _, s := range e.strategies {
		start := time.Now()
		res, ok := e.runStrategy(ctx, s, data)
		if !ok || strings.TrimSpace(res.Text) == "" {
			span.AddEvent("strategy_yielded_nothing", trace.WithAttributes(
				attribute.String("strategy", string(s.kind)),
			))
			continue
		}

		res.Strategy = s.kind
		span.SetAttributes(
			attribute.String("strategy", string(s.kind)),
			attribute.Int("text_length", len(res.Text)),
			attribute.Int("page_count", res.PageCount),
			attribute.Bool("truncated", res.Truncated),
		)
		span.SetStatus(codes.Ok, "text extracted")
		e.logger.Debug(ctx, "text extracted",
			"strategy", s.kind,
			"text_length", len(res.Text),
			"page_count", res.PageCount,
			"truncated", res.Truncated,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return res
	}

	span.SetStatus(codes.Error, "all strategies failed")
	e.logger.Debug(ctx, "extraction failed", "size", len(data))
	return inspection.FailedExtraction()
}

// runStrategy isolates a strategy so a panic inside a parser counts as "no
// result" for that strategy only.
func (e *Extractor) runStrategy(ctx context.Context, s strategy, data []byte) (res inspection.ExtractionResult, ok bool) {
	ctx, span := e.tracer.Start(ctx, "extractor."+string(s.kind))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "strategy panicked")
			e.logger.Warn(ctx, "extraction strategy panicked", "strategy", s.kind, "panic", r)
			res, ok = inspection.ExtractionResult{}, false
		}
	}()

	return s.run(ctx, data)
}
