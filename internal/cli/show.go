package cli

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/pipeline"
)

func newShowCmd() *cobra.Command {
	var payloadDir string

	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Show one package's classification and inclusion verdict",
		Long: `Show looks up a package by name or name@version. Inexact names are
matched fuzzily against the discovered set; the best match is shown and
close alternatives are listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, _, err := runExtraction(cmd, payloadDir)
			if err != nil {
				return err
			}
			return showPackage(result, args[0])
		},
	}

	cmd.Flags().StringVar(&payloadDir, "payload", "", "scan a local payload directory instead of downloading")
	return cmd
}

func showPackage(result *pipeline.Result, query string) error {
	ids := make([]string, 0, result.Graph.NodeCount())
	for _, n := range result.Graph.Nodes() {
		ids = append(ids, n.ID)
	}

	// Exact ID or exact name wins before fuzzy matching kicks in.
	target := ""
	for _, id := range ids {
		if id == query || strings.HasPrefix(id, query+"@") {
			target = id
			break
		}
	}

	var alternatives []string
	if target == "" {
		matches := fuzzy.Find(query, ids)
		if len(matches) == 0 {
			return errors.New(errors.ErrCodePackageNotFound, "no package matches %q", query)
		}
		target = matches[0].Str
		for _, m := range matches[1:min(len(matches), 4)] {
			alternatives = append(alternatives, m.Str)
		}
	}

	printPackage(result, target)
	if len(alternatives) > 0 {
		fmt.Println(styleDim.Render("also matched: " + strings.Join(alternatives, ", ")))
	}
	return nil
}

func printPackage(result *pipeline.Result, id string) {
	n, _ := result.Graph.Node(id)
	v := result.Verdict(id)
	lic := result.Licenses[id]

	fmt.Println()
	fmt.Println(styleTitle.Render(id))
	fmt.Printf("  %s %s\n", styleDim.Render("status   "), styleForStatus(v.Status).Render(string(v.Status)))

	if n.External {
		if n.Rewritten {
			fmt.Printf("  %s %s\n", styleDim.Render("rewritten"), styleValue.Render(n.Source))
		}
		fmt.Println()
		return
	}

	if len(lic.LicenseIDs) > 0 {
		fmt.Printf("  %s %s\n", styleDim.Render("licenses "), styleValue.Render(strings.Join(lic.LicenseIDs, " + ")))
	}
	if lic.Aliased {
		fmt.Printf("  %s %s\n", styleDim.Render("source   "), styleDim.Render("license assumed via alias"))
	}
	fmt.Printf("  %s %d\n", styleDim.Render("files    "), lic.FilesScanned)

	if len(lic.UnlicensedFiles) > 0 {
		fmt.Printf("  %s %s\n", styleDim.Render("failing  "), styleUnlicensed.Render(strings.Join(lic.UnlicensedFiles, ", ")))
	}
	if len(v.Blockers) > 0 {
		fmt.Printf("  %s %s\n", styleDim.Render("blocked by"), styleBlocked.Render(strings.Join(v.Blockers, ", ")))
	}

	if deps := result.Graph.Dependencies(id); len(deps) > 0 {
		fmt.Printf("  %s %s\n", styleDim.Render("depends  "), styleValue.Render(strings.Join(deps, ", ")))
	}
	if dependents := result.Graph.Dependents(id); len(dependents) > 0 {
		fmt.Printf("  %s %s\n", styleDim.Render("needed by"), styleValue.Render(strings.Join(dependents, ", ")))
	}
	fmt.Println()
}
