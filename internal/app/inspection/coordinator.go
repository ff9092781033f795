package inspection

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/pkg/common/logger"
)

// Coordinator serves extraction results from the cache and guarantees at most
// one extraction in flight per fingerprint. Concurrent callers for the same
// fingerprint share the single execution and receive identical results.
type Coordinator struct {
	extractor domain.Extractor
	cache     *ExtractionCache
	inflight  singleflight.Group

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics CoordinatorMetrics
}

// NewCoordinator creates a Coordinator around the given extractor and cache.
func NewCoordinator(
	extractor domain.Extractor,
	cache *ExtractionCache,
	log *logger.Logger,
	tracer trace.Tracer,
	metrics CoordinatorMetrics,
) *Coordinator {
	return &Coordinator{
		extractor: extractor,
		cache:     cache,
		logger:    log.With("component", "extraction_coordinator"),
		tracer:    tracer,
		metrics:   metrics,
	}
}

// GetOrExtract returns the cached result for fp, joins an extraction already
// running for fp, or starts a new one.
//
// The extraction runs detached from ctx: a caller that gives up does not
// cancel it, and its result is still cached for everyone else. The only error
// returned is ctx's own error when the caller stops waiting.
func (c *Coordinator) GetOrExtract(
	ctx context.Context,
	fp domain.Fingerprint,
	data []byte,
) (domain.ExtractionResult, error) {
	ctx, span := c.tracer.Start(ctx, "inspection.coordinator.get_or_extract",
		trace.WithAttributes(
			attribute.String("fingerprint", fp.Short()),
			attribute.Int("size_bytes", len(data)),
		),
	)
	defer span.End()

	if res, ok := c.cache.Get(fp); ok {
		c.metrics.IncCacheHit(ctx)
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return res, nil
	}
	c.metrics.IncCacheMiss(ctx)

	detached := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(fp.String(), func() (any, error) {
		// A previous flight may have finished between our cache miss and
		// registering this one.
		if res, ok := c.cache.Get(fp); ok {
			return res, nil
		}

		res := c.extractor.Extract(detached, data)
		c.metrics.IncExtraction(detached, res.Strategy)
		if c.cache.Put(fp, res) {
			c.logger.Debug(detached, "extraction cached", "fingerprint", fp.Short(), "strategy", res.Strategy)
		}
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			c.metrics.IncInFlightJoin(ctx)
			span.SetAttributes(attribute.Bool("shared", true))
		}
		res := r.Val.(domain.ExtractionResult)
		return res.Clone(), nil
	case <-ctx.Done():
		span.SetStatus(codes.Error, "caller stopped waiting")
		span.RecordError(ctx.Err())
		return domain.ExtractionResult{}, ctx.Err()
	}
}
