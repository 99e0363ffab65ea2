package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corepkg/extractor/pkg/config"
	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/history"
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [RUN_BEFORE RUN_AFTER]",
		Short: "Diff inclusion statuses between two archived runs",
		Long: `Diff compares two archived runs from the history store. With no
arguments, the two most recent runs are compared; with two run IDs, those
exact runs are.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.History.MongoURI == "" {
				return errors.New(errors.ErrCodeInvalidConfig, "no history store configured (history.mongo_uri)")
			}

			store, err := history.NewStore(ctx, cfg.History.MongoURI, cfg.History.Database)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			var before, after history.Record
			if len(args) == 2 {
				if before, err = store.Get(ctx, args[0]); err != nil {
					return err
				}
				if after, err = store.Get(ctx, args[1]); err != nil {
					return err
				}
			} else {
				recent, err := store.List(ctx, 2)
				if err != nil {
					return err
				}
				if len(recent) < 2 {
					return errors.New(errors.ErrCodeRunNotFound, "need at least two archived runs to diff")
				}
				after, before = recent[0], recent[1]
			}

			printDiff(before, after)
			return nil
		},
	}
	return cmd
}

func printDiff(before, after history.Record) {
	changes := history.Diff(before, after)

	fmt.Println()
	fmt.Println(styleTitle.Render(fmt.Sprintf("Diff %s -> %s", before.RunID, after.RunID)))

	if len(changes) == 0 {
		fmt.Println(styleDim.Render("  no status changes"))
		return
	}

	for _, c := range changes {
		switch {
		case c.Added():
			fmt.Printf("  %s %s %s\n", styleIconSuccess.Render("+"), c.ID,
				styleForStatus(c.After).Render(string(c.After)))
		case c.Removed():
			fmt.Printf("  %s %s %s\n", styleIconError.Render("-"), c.ID,
				styleDim.Render("was "+string(c.Before)))
		default:
			arrow := styleDim.Render(string(c.Before)) + " -> " + styleForStatus(c.After).Render(string(c.After))
			icon := styleIconWarning.Render("~")
			if c.Promoted() {
				icon = styleIconSuccess.Render("~")
			}
			fmt.Printf("  %s %s %s\n", icon, c.ID, arrow)
		}
	}
	fmt.Println()
}
