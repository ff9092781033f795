package inspection

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tnoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/pdfguard/internal/app/telemetry"
	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/pkg/common/logger"
)

func newTestLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func newTestMetrics(t *testing.T) InspectionMetrics {
	t.Helper()
	m, err := NewInspectionMetrics(noop.NewMeterProvider())
	require.NoError(t, err)
	return m
}

// countingExtractor returns a fixed result and counts executions. When gate
// is non-nil each execution blocks until it is closed.
type countingExtractor struct {
	result  domain.ExtractionResult
	results []domain.ExtractionResult
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func (e *countingExtractor) Extract(ctx context.Context, data []byte) domain.ExtractionResult {
	n := e.calls.Add(1)
	if e.started != nil {
		e.once.Do(func() { close(e.started) })
	}
	if e.gate != nil {
		<-e.gate
	}
	if int(n) <= len(e.results) {
		return e.results[n-1]
	}
	return e.result
}

type mockScanner struct{ mock.Mock }

func (m *mockScanner) ScanText(ctx context.Context, text string) (domain.ExternalScanResult, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(domain.ExternalScanResult), args.Error(1)
}

// scannerFunc adapts a function to domain.ExternalScanner.
type scannerFunc func(ctx context.Context, text string) (domain.ExternalScanResult, error)

func (f scannerFunc) ScanText(ctx context.Context, text string) (domain.ExternalScanResult, error) {
	return f(ctx, text)
}

type mockDetector struct{ mock.Mock }

func (m *mockDetector) Detect(text string) []domain.Finding {
	args := m.Called(text)
	f, _ := args.Get(0).([]domain.Finding)
	return f
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.VerdictEvent
	err    error
}

func (p *recordingPublisher) PublishVerdict(ctx context.Context, evt domain.VerdictEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []domain.VerdictEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.VerdictEvent(nil), p.events...)
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	cache        *ExtractionCache
	ring         *telemetry.Ring
	publisher    *recordingPublisher
}

func newOrchestratorFixture(
	t *testing.T,
	extractor domain.Extractor,
	detector domain.SecretDetector,
	scanner domain.ExternalScanner,
	cfg OrchestratorConfig,
) *orchestratorFixture {
	t.Helper()

	log := newTestLogger()
	tracer := tnoop.NewTracerProvider().Tracer("test")
	metrics := newTestMetrics(t)

	cache := NewExtractionCache(DefaultCacheCapacity)
	coord := NewCoordinator(extractor, cache, log, tracer, metrics)
	ring := telemetry.NewRing(telemetry.DefaultCapacity)
	pub := new(recordingPublisher)

	return &orchestratorFixture{
		orchestrator: NewOrchestrator(coord, detector, scanner, pub, ring, cfg, log, tracer, metrics),
		cache:        cache,
		ring:         ring,
		publisher:    pub,
	}
}

func pdfUpload(data []byte) domain.Upload {
	return domain.Upload{
		Data:         data,
		Filename:     "document.pdf",
		DeclaredSize: int64(len(data)),
		MimeType:     "application/pdf",
	}
}
