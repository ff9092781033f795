package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/pdfguard/internal/api"
	"github.com/ahrav/pdfguard/internal/api/debug"
	"github.com/ahrav/pdfguard/internal/api/mux"
	"github.com/ahrav/pdfguard/internal/api/routes"
	"github.com/ahrav/pdfguard/internal/app/inspection"
	"github.com/ahrav/pdfguard/internal/app/telemetry"
	"github.com/ahrav/pdfguard/internal/config"
	"github.com/ahrav/pdfguard/internal/detector"
	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/internal/infra/eventbus/kafka"
	"github.com/ahrav/pdfguard/internal/infra/eventbus/memory"
	"github.com/ahrav/pdfguard/internal/infra/extractor"
	"github.com/ahrav/pdfguard/internal/infra/scanclient"
	"github.com/ahrav/pdfguard/pkg/common/logger"
	"github.com/ahrav/pdfguard/pkg/common/otel"
)

var build = "develop"

const serviceType = "pdfguard-api"

func main() {
	// Set the correct number of threads for the service
	_, _ = maxprocs.Set()

	configPath := flag.String("config", "", "optional YAML configuration file")
	flag.Parse()

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatalf("failed to get hostname: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	svcName := fmt.Sprintf("PDFGUARD-API-%s", hostname)
	metadata := map[string]string{
		"service":   svcName,
		"hostname":  hostname,
		"pod":       os.Getenv("POD_NAME"),
		"namespace": os.Getenv("POD_NAMESPACE"),
		"app":       serviceType,
		"mode":      string(cfg.Mode),
	}

	log := logger.NewWithMetadata(os.Stdout, logger.ParseLevel(cfg.Log.Level), svcName, traceIDFn, logEvents, metadata)

	ctx := context.Background()

	if err := run(ctx, log, cfg, hostname); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, cfg *config.Config, hostname string) error {
	// -------------------------------------------------------------------------
	// GOMAXPROCS
	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0), "build", build)

	// -------------------------------------------------------------------------
	// Start Tracing Support
	log.Info(ctx, "startup", "status", "initializing tracing support")

	traceProvider, teardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      cfg.Telemetry.ServiceName,
		ExporterEndpoint: cfg.Telemetry.ExporterEndpoint,
		ExcludedRoutes: map[string]struct{}{
			"/v1/readiness": {},
			"/v1/liveness":  {},
			"/debug":        {},
		},
		Probability: cfg.Telemetry.Probability,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"k8s.pod.name":     os.Getenv("POD_NAME"),
			"k8s.namespace":    os.Getenv("POD_NAMESPACE"),
			"k8s.container.id": hostname,
		},
		InsecureExporter: true,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer teardown(context.Background())

	tracer := traceProvider.Tracer(cfg.Telemetry.ServiceName)
	mp := otel.GetMeterProvider()

	apiMetrics, err := api.NewAPIMetrics(mp)
	if err != nil {
		return fmt.Errorf("creating api metrics: %w", err)
	}
	inspectionMetrics, err := inspection.NewInspectionMetrics(mp)
	if err != nil {
		return fmt.Errorf("creating inspection metrics: %w", err)
	}

	// -------------------------------------------------------------------------
	// Inspection pipeline
	log.Info(ctx, "startup", "status", "initializing inspection pipeline")

	customRules, err := detector.LoadRules(cfg.Detector.RulesFile)
	if err != nil {
		return fmt.Errorf("loading detector rules: %w", err)
	}
	secretDetector, err := detector.New(customRules...)
	if err != nil {
		return fmt.Errorf("creating detector: %w", err)
	}
	log.Info(ctx, "startup", "detector_rules", secretDetector.RuleCount(), "rules_hash", secretDetector.RulesHash())

	pdfExtractor := extractor.New(extractor.Config{
		MaxPages:             cfg.Extractor.MaxPages,
		MaxInflateBytes:      cfg.Extractor.MaxInflateBytes,
		MaxTotalInflateBytes: cfg.Extractor.MaxTotalInflateBytes,
	}, log, tracer)
	cache := inspection.NewExtractionCache(cfg.Cache.Capacity)
	coordinator := inspection.NewCoordinator(pdfExtractor, cache, log, tracer, inspectionMetrics)

	scanner, err := newScanner(ctx, log, cfg.ScanService, tracer)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(ctx, log, cfg, tracer, apiMetrics)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// The ring is only kept in development; a typed nil must not reach the
	// orchestrator's Recorder interface.
	var ring *telemetry.Ring
	var recorder inspection.Recorder
	if cfg.Development() {
		ring = telemetry.NewRing(telemetry.DefaultCapacity)
		recorder = ring
	}

	orchestrator := inspection.NewOrchestrator(
		coordinator,
		secretDetector,
		scanner,
		publisher,
		recorder,
		inspection.OrchestratorConfig{ExternalTimeout: cfg.ScanService.Timeout},
		log,
		tracer,
		inspectionMetrics,
	)

	// -------------------------------------------------------------------------
	// Start API Service
	log.Info(ctx, "startup", "status", "initializing API support")

	webAPI := mux.WebAPI(mux.Config{
		Build:          build,
		Log:            log,
		Tracer:         tracer,
		Metrics:        apiMetrics,
		Inspector:      orchestrator,
		MaxUploadBytes: cfg.Web.MaxUploadBytes,
		Ring:           ring,
		DevMode:        cfg.Development(),
	},
		routes.Routes(),
		mux.WithCORS(cfg.Web.CORSAllowedOrigins),
	)

	apiServer := &http.Server{
		Addr:         cfg.Web.Address,
		Handler:      webAPI,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}
	debugServer := &http.Server{
		Addr:    cfg.Web.DebugAddress,
		Handler: debug.Mux(),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "startup", "status", "debug router started", "host", debugServer.Addr)
		if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("debug server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info(gctx, "startup", "status", "api router started", "host", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// -------------------------------------------------------------------------
	// Shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutdown", "status", "shutdown started")
		defer log.Info(ctx, "shutdown", "status", "shutdown complete")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		_ = debugServer.Shutdown(shutdownCtx)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newScanner returns the external scan client, or a scanner that always
// reports itself unavailable when no URL is configured.
func newScanner(
	ctx context.Context,
	log *logger.Logger,
	cfg config.ScanServiceConfig,
	tracer trace.Tracer,
) (domain.ExternalScanner, error) {
	if cfg.URL == "" {
		log.Warn(ctx, "startup", "status", "external scan service not configured, verdicts will degrade to warn")
		return scanclient.Disabled{}, nil
	}

	client, err := scanclient.New(scanclient.Config{
		URL:               cfg.URL,
		APIKey:            cfg.APIKey,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		MaxRetries:        cfg.MaxRetries,
	}, log, tracer)
	if err != nil {
		return nil, fmt.Errorf("creating scan client: %w", err)
	}
	return client, nil
}

// newPublisher connects the Kafka verdict publisher when brokers are
// configured and otherwise logs events in process.
func newPublisher(
	ctx context.Context,
	log *logger.Logger,
	cfg *config.Config,
	tracer trace.Tracer,
	metrics api.APIMetrics,
) (domain.VerdictPublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		pub := memory.NewPublisher()
		if err := pub.Subscribe(context.Background(), func(evt domain.VerdictEvent) error {
			log.Debug(ctx, "verdict event",
				"request_id", evt.RequestID,
				"action", evt.Action,
				"source", evt.Source,
				"finding_count", evt.FindingCount,
			)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("subscribing verdict logger: %w", err)
		}
		return pub, nil
	}

	kcfg := kafka.Config{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		ClientID: cfg.Kafka.ClientID,
	}
	producer, err := kafka.ConnectWithRetry(ctx, kcfg, log)
	if err != nil {
		return nil, fmt.Errorf("connecting kafka: %w", err)
	}
	log.Info(ctx, "startup", "status", "kafka verdict publisher connected", "topic", kcfg.Topic)
	return kafka.NewVerdictPublisher(producer, kcfg.Topic, log, tracer, metrics), nil
}
