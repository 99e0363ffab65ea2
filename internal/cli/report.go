package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/report"
)

func newReportCmd() *cobra.Command {
	var payloadDir string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the pipeline and print the report to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, _, err := runExtraction(cmd, payloadDir)
			if err != nil {
				return err
			}

			rep := report.Build(result)
			switch format {
			case "json":
				return rep.WriteJSON(os.Stdout)
			case "readme":
				return rep.WriteReadme(os.Stdout, result)
			default:
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (json, readme)", format)
			}
		},
	}

	cmd.Flags().StringVar(&payloadDir, "payload", "", "scan a local payload directory instead of downloading")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or readme")
	return cmd
}
