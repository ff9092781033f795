package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the text extracted from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			res := opts.extractor().Extract(cmd.Context(), data)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			if res.Failed {
				fmt.Fprintln(out, warnColor.Sprint("extraction failed: no readable text"))
				return nil
			}
			fmt.Fprintf(out, "%s %s  %s %d  %s %d\n",
				labelColor.Sprint("strategy:"), res.Strategy,
				labelColor.Sprint("pages:"), res.PageCount,
				labelColor.Sprint("chars:"), len(res.Text))
			for k, v := range res.Metadata {
				fmt.Fprintf(out, "%s %s\n", labelColor.Sprintf("%s:", k), v)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, res.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full extraction result as JSON")
	return cmd
}
