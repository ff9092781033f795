package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/ahrav/pdfguard/internal/app/inspection"
	"github.com/ahrav/pdfguard/internal/detector"
	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/internal/infra/eventbus/memory"
	"github.com/ahrav/pdfguard/internal/infra/scanclient"
)

var (
	labelColor = color.New(color.FgCyan)
	allowColor = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	blockColor = color.New(color.FgRed, color.Bold)
)

// verdictError carries a non-allow verdict out of cobra so main can map it to
// an exit status: 1 for warn, 2 for block.
type verdictError struct {
	action domain.Action
}

func (e verdictError) Error() string { return "verdict: " + string(e.action) }

func (e verdictError) exitCode() int {
	if e.action == domain.ActionBlock {
		return 2
	}
	return 1
}

type inspectOptions struct {
	scanURL    string
	apiKey     string
	rulesFile  string
	timeout    time.Duration
	asJSON     bool
	failOnWarn bool
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Run the full inspection pipeline on a PDF and print the verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verdict, err := runInspect(cmd, root, opts, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(verdict); err != nil {
					return err
				}
			} else {
				printVerdict(out, args[0], verdict)
			}

			switch {
			case verdict.Action == domain.ActionBlock:
				return verdictError{action: verdict.Action}
			case verdict.Action == domain.ActionWarn && opts.failOnWarn:
				return verdictError{action: verdict.Action}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.scanURL, "scan-url", "", "external scan service endpoint; local detection only when empty")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", os.Getenv("PDFGUARD_SCAN_SERVICE_API_KEY"), "bearer token for the scan service")
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "YAML file with additional detection rules")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", inspection.DefaultExternalTimeout, "external scan timeout")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the verdict as JSON")
	cmd.Flags().BoolVar(&opts.failOnWarn, "fail-on-warn", false, "exit non-zero on warn verdicts")
	return cmd
}

func runInspect(cmd *cobra.Command, root *rootOptions, opts *inspectOptions, path string) (*domain.Verdict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	log := root.logger()
	tracer := root.tracer()

	metrics, err := inspection.NewInspectionMetrics(metricnoop.NewMeterProvider())
	if err != nil {
		return nil, err
	}

	rules, err := detector.LoadRules(opts.rulesFile)
	if err != nil {
		return nil, err
	}
	det, err := detector.New(rules...)
	if err != nil {
		return nil, err
	}

	var scanner domain.ExternalScanner = scanclient.Disabled{}
	if opts.scanURL != "" {
		client, err := scanclient.New(scanclient.Config{URL: opts.scanURL, APIKey: opts.apiKey}, log, tracer)
		if err != nil {
			return nil, err
		}
		scanner = client
	}

	coordinator := inspection.NewCoordinator(
		root.extractor(),
		inspection.NewExtractionCache(1),
		log, tracer, metrics,
	)
	orchestrator := inspection.NewOrchestrator(
		coordinator,
		det,
		scanner,
		memory.NewPublisher(),
		nil,
		inspection.OrchestratorConfig{ExternalTimeout: opts.timeout},
		log, tracer, metrics,
	)

	return orchestrator.Inspect(cmd.Context(), domain.Upload{
		Data:         data,
		Filename:     filepath.Base(path),
		DeclaredSize: int64(len(data)),
	})
}

func printVerdict(out io.Writer, path string, v *domain.Verdict) {
	var action string
	switch v.Action {
	case domain.ActionBlock:
		action = blockColor.Sprint("BLOCK")
	case domain.ActionWarn:
		action = warnColor.Sprint("WARN")
	default:
		action = allowColor.Sprint("ALLOW")
	}

	fmt.Fprintf(out, "%s  %s\n", action, path)
	fmt.Fprintf(out, "  %s %s  %s %s  %s %d\n",
		labelColor.Sprint("source:"), v.Source,
		labelColor.Sprint("strategy:"), v.Strategy,
		labelColor.Sprint("chars:"), v.TextLength)
	if v.Note != "" {
		fmt.Fprintf(out, "  %s %s\n", labelColor.Sprint("note:"), v.Note)
	}
	if v.ErrorCode != "" {
		fmt.Fprintf(out, "  %s %s\n", labelColor.Sprint("error:"), v.ErrorCode)
	}
	for _, f := range v.Findings {
		fmt.Fprintf(out, "  - %s %s\n", blockColor.Sprint(f.Category), f.Value)
	}
}
