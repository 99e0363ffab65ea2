package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/corepkg/extractor/pkg/buildinfo"
)

// configPath is the --config persistent flag, shared by every command.
var configPath string

// Execute runs the corepkg CLI and returns an error if any command fails.
//
// Logging goes to stderr at info level, or debug with --verbose. The
// logger is attached to the command context and retrieved by subcommands
// via loggerFromContext.
func Execute() error {
	var verbose bool

	root := &cobra.Command{
		Use:   "corepkg",
		Short: "corepkg extracts license-cleared packages from a vendored payload",
		Long: `corepkg scans a vendored package payload, classifies every source file
against a license dataset, resolves which packages are transitively safe
to publish, and emits registry manifests plus an audit report.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to corepkg.yaml (default: built-in configuration)")

	root.AddCommand(newExtractCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newBrowseCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newCacheCmd())

	return root.ExecuteContext(context.Background())
}
