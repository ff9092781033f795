package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/pdfguard/internal/infra/extractor"
	"github.com/ahrav/pdfguard/pkg/common/logger"
)

type rootOptions struct {
	verbose  bool
	noColor  bool
	maxPages int
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pdfscan",
		Short:         "Inspect PDF documents for leaked credentials",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}
	cmd.SetOut(out)

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline activity to stderr")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().IntVar(&opts.maxPages, "max-pages", extractor.DefaultMaxPages, "pages read by the standard strategy")

	cmd.AddCommand(newExtractCmd(opts), newInspectCmd(opts))
	return cmd
}

func (o *rootOptions) logger() *logger.Logger {
	w := io.Discard
	level := logger.LevelError
	if o.verbose {
		w = os.Stderr
		level = logger.LevelDebug
	}
	return logger.New(w, level, "PDFSCAN", nil)
}

func (o *rootOptions) tracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("pdfscan")
}

func (o *rootOptions) extractor() *extractor.Extractor {
	return extractor.New(extractor.Config{MaxPages: o.maxPages}, o.logger(), o.tracer())
}
