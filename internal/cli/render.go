package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/render/dot"
)

func newRenderCmd() *cobra.Command {
	var payloadDir string
	var outPath string
	var detailed bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the classified dependency graph as DOT or SVG",
		Long: `Render exports the dependency graph with nodes colored by inclusion
status. The output format follows the file extension: .dot writes the
Graphviz source, .svg renders it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, _, err := runExtraction(cmd, payloadDir)
			if err != nil {
				return err
			}

			source := dot.ToDOT(result.Graph, result.Resolution, dot.Options{Detailed: detailed})

			var data []byte
			switch {
			case strings.HasSuffix(outPath, ".dot"):
				data = []byte(source)
			case strings.HasSuffix(outPath, ".svg"):
				data, err = dot.RenderSVG(cmd.Context(), source)
				if err != nil {
					return err
				}
			default:
				return errors.New(errors.ErrCodeInvalidInput, "output must end in .dot or .svg: %s", outPath)
			}

			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return err
			}
			printSuccess("wrote %s", styleValue.Render(outPath))
			return nil
		},
	}

	cmd.Flags().StringVar(&payloadDir, "payload", "", "scan a local payload directory instead of downloading")
	cmd.Flags().StringVarP(&outPath, "out", "o", "graph.svg", "output file (.dot or .svg)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include status and blockers in node labels")
	return cmd
}
