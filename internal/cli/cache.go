package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corepkg/extractor/pkg/config"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the download cache",
	}
	cmd.AddCommand(newCachePathCmd())
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCachePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			dir := cfg.Cache.Dir
			if dir == "" {
				dir = defaultCacheDir()
			}
			fmt.Println(dir)
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			dir := cfg.Cache.Dir
			if dir == "" {
				dir = defaultCacheDir()
			}
			if err := os.RemoveAll(dir); err != nil {
				return err
			}
			printSuccess("cleared %s", styleValue.Render(dir))
			return nil
		},
	}
}
