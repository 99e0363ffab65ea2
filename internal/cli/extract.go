package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corepkg/extractor/pkg/config"
	"github.com/corepkg/extractor/pkg/history"
	"github.com/corepkg/extractor/pkg/manifest"
	"github.com/corepkg/extractor/pkg/pipeline"
	"github.com/corepkg/extractor/pkg/report"
)

func newExtractCmd() *cobra.Command {
	var payloadDir string
	var outDir string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the full extraction and emit packages, report, and README",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			prog := newProgress(logger)

			result, cfg, err := runExtraction(cmd, payloadDir)
			if err != nil {
				return err
			}

			if outDir == "" {
				outDir = cfg.OutputDir
			}
			pkgDir := filepath.Join(outDir, "modules")

			emitter := manifest.NewEmitter(logger)
			emitted, err := emitter.Emit(result, pkgDir)
			if err != nil {
				return err
			}

			rep := report.Build(result)
			if err := writeReportFiles(rep, result, outDir); err != nil {
				return err
			}

			if cfg.History.MongoURI != "" {
				if err := archiveRun(cmd, cfg, result); err != nil {
					// History is best-effort; the artifacts already exist.
					printWarning("run not archived: %v", err)
				}
			}

			prog.done(fmt.Sprintf("extracted %d packages", len(emitted)))
			printSummary(result)
			printSuccess("wrote %s", styleValue.Render(outDir))
			return nil
		},
	}

	cmd.Flags().StringVar(&payloadDir, "payload", "", "scan a local payload directory instead of downloading")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: config output_dir)")
	return cmd
}

func writeReportFiles(rep *report.Report, result *pipeline.Result, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	jsonFile, err := os.Create(filepath.Join(outDir, "report.json"))
	if err != nil {
		return err
	}
	defer jsonFile.Close()
	if err := rep.WriteJSON(jsonFile); err != nil {
		return err
	}

	readme, err := os.Create(filepath.Join(outDir, "README.md"))
	if err != nil {
		return err
	}
	defer readme.Close()
	return rep.WriteReadme(readme, result)
}

func archiveRun(cmd *cobra.Command, cfg config.Config, result *pipeline.Result) error {
	ctx := cmd.Context()
	store, err := history.NewStore(ctx, cfg.History.MongoURI, cfg.History.Database)
	if err != nil {
		return err
	}
	defer store.Close(ctx)
	return store.Save(ctx, history.NewRecord(result, cfg.ArchiveVersion))
}

func printSummary(result *pipeline.Result) {
	fmt.Println()
	fmt.Println(styleTitle.Render("Extraction Summary"))
	fmt.Printf("  %s %d\n", styleDim.Render("packages  "), result.Stats.Packages)
	fmt.Printf("  %s %s\n", styleDim.Render("included  "), styleIncluded.Render(fmt.Sprint(result.Stats.Included)))
	fmt.Printf("  %s %s\n", styleDim.Render("blocked   "), styleBlocked.Render(fmt.Sprint(result.Stats.Blocked)))
	fmt.Printf("  %s %s\n", styleDim.Render("unlicensed"), styleUnlicensed.Render(fmt.Sprint(result.Stats.Unlicensed)))
	fmt.Printf("  %s %s\n", styleDim.Render("external  "), styleExternal.Render(fmt.Sprint(result.Stats.External)))
	fmt.Println()
}
