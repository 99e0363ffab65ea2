package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/corepkg/extractor/pkg/depgraph"
	"github.com/corepkg/extractor/pkg/discover"
	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/license"
	"github.com/corepkg/extractor/pkg/resolve"
	"github.com/corepkg/extractor/pkg/rewrite"
)

// Runner executes extraction runs. It is stateless apart from the matcher
// (which memoizes header verdicts internally) and safe for concurrent use.
type Runner struct {
	Matcher *license.Matcher
	Rules   *rewrite.Table
	Logger  *log.Logger
}

// NewRunner creates a runner. A nil rules table disables rewrites; a nil
// logger falls back to the default logger.
func NewRunner(matcher *license.Matcher, rules *rewrite.Table, logger *log.Logger) *Runner {
	if rules == nil {
		rules = rewrite.NewTable(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Matcher: matcher, Rules: rules, Logger: logger}
}

// Execute runs the full pipeline against an unpacked payload.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if r.Matcher == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "runner has no license matcher")
	}

	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	// Stage 1: discover.
	discoverStart := time.Now()
	set, err := r.discoverAll(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(set.Packages) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyPackageSet,
			"no packages discovered under %s", opts.PayloadRoot)
	}
	result.Set = set
	result.Stats.Packages = len(set.Packages)
	result.Stats.DiscoveryErrors = len(set.Errors)
	result.Stats.DiscoverTime = time.Since(discoverStart)

	r.Logger.Info("discovered packages",
		"packages", len(set.Packages),
		"errors", len(set.Errors),
		"duration", result.Stats.DiscoverTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: classify every package's own files.
	classifyStart := time.Now()
	perPackage, files, err := r.classifyAll(ctx, set, opts.Aliases)
	if err != nil {
		return nil, err
	}
	result.Stats.FilesClassified = files
	result.Stats.ClassifyTime = time.Since(classifyStart)

	r.Logger.Info("classified sources",
		"files", files,
		"duration", result.Stats.ClassifyTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: build the dependency graph.
	graphStart := time.Now()
	g, inconsistencies := depgraph.Build(set, r.Rules)
	result.Graph = g
	result.Inconsistencies = inconsistencies
	result.Stats.Inconsistencies = len(inconsistencies)
	result.Stats.GraphTime = time.Since(graphStart)

	r.Logger.Info("built dependency graph",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"cycles", g.HasCycles(),
		"inconsistencies", len(inconsistencies),
		"duration", result.Stats.GraphTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: resolve inclusion. Side-by-side copies of one release
	// share a node; every copy must pass for the node to pass.
	resolveStart := time.Now()
	result.Licenses = mergeByNode(g, perPackage)

	licensed := make(map[string]bool, len(result.Licenses))
	for id, lic := range result.Licenses {
		licensed[id] = lic.Licensed
	}
	result.Resolution = resolve.Resolve(g, licensed)
	result.Stats.ResolveTime = time.Since(resolveStart)

	// Rewritten dependencies resolve as included but are still external
	// releases; stats count them with the externals.
	for _, n := range g.Nodes() {
		if n.External {
			result.Stats.External++
			continue
		}
		switch result.Resolution.Verdict(n.ID).Status {
		case resolve.StatusIncluded:
			result.Stats.Included++
		case resolve.StatusBlocked:
			result.Stats.Blocked++
		case resolve.StatusUnlicensed:
			result.Stats.Unlicensed++
		}
	}

	r.Logger.Info("resolved inclusion",
		"included", result.Stats.Included,
		"blocked", result.Stats.Blocked,
		"unlicensed", result.Stats.Unlicensed,
		"external", result.Stats.External,
		"passes", result.Resolution.Passes,
		"duration", result.Stats.ResolveTime)

	return result, nil
}

// discoverAll scans the payload root, or each configured subdirectory of
// it, and merges the results into one set.
func (r *Runner) discoverAll(ctx context.Context, opts Options) (*discover.Set, error) {
	dopts := discover.Options{
		Extensions: opts.Extensions,
		Banned:     opts.Banned,
		Logger:     func(format string, args ...any) { r.Logger.Warnf(format, args...) },
	}

	if len(opts.Roots) == 0 {
		return discover.Discover(ctx, opts.PayloadRoot, dopts)
	}

	merged := &discover.Set{}
	for _, root := range opts.Roots {
		dir := filepath.Join(opts.PayloadRoot, root)
		if _, err := os.Stat(dir); err != nil {
			r.Logger.Warn("configured root missing, skipping", "root", root)
			continue
		}
		set, err := discover.Discover(ctx, dir, dopts)
		if err != nil {
			return nil, err
		}
		merged.Packages = append(merged.Packages, set.Packages...)
		merged.Errors = append(merged.Errors, set.Errors...)
	}
	return merged, nil
}

// classifyAll classifies each package concurrently. Returns per-package
// outcomes keyed by package pointer plus the total files scanned.
func (r *Runner) classifyAll(ctx context.Context, set *discover.Set, aliases map[string]string) (map[*discover.Package]PackageLicense, int, error) {
	out := make(map[*discover.Package]PackageLicense, len(set.Packages))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(classifyWorkers)

	for _, pkg := range set.Packages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lic := r.classifyPackage(pkg, aliases)

			mu.Lock()
			out[pkg] = lic
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	files := 0
	for _, lic := range out {
		files += lic.FilesScanned
	}
	return out, files, nil
}

// classifyPackage classifies one package's files. A package with no
// source files is vacuously licensed; an aliased package is licensed by
// assumption.
func (r *Runner) classifyPackage(pkg *discover.Package, aliases map[string]string) PackageLicense {
	if id, ok := aliases[pkg.Name.RegistryName]; ok {
		return PackageLicense{Licensed: true, Aliased: true, Confidence: 1, LicenseIDs: []string{id}}
	}

	lic := PackageLicense{Licensed: true, Confidence: 1}
	ids := map[string]bool{}

	for _, f := range pkg.Files {
		v := r.Matcher.Match(f.Header)
		lic.FilesScanned++
		lic.Confidence = min(lic.Confidence, v.Confidence)
		if v.Licensed {
			ids[v.LicenseID] = true
			continue
		}
		lic.Licensed = false
		lic.UnlicensedFiles = append(lic.UnlicensedFiles, f.Path)
	}

	for id := range ids {
		lic.LicenseIDs = append(lic.LicenseIDs, id)
	}
	return lic.normalize()
}

func (l PackageLicense) normalize() PackageLicense {
	l.LicenseIDs = mergeSorted(l.LicenseIDs, nil)
	l.UnlicensedFiles = mergeSorted(l.UnlicensedFiles, nil)
	return l
}

// mergeByNode folds per-package outcomes into per-node outcomes.
func mergeByNode(g *depgraph.Graph, perPackage map[*discover.Package]PackageLicense) map[string]PackageLicense {
	out := make(map[string]PackageLicense, g.NodeCount())
	for _, n := range g.Nodes() {
		if !n.IsInternal() {
			continue
		}
		merged, first := PackageLicense{}, true
		for _, pkg := range n.Packages {
			lic := perPackage[pkg]
			if first {
				merged, first = lic, false
				continue
			}
			merged = merged.merge(lic)
		}
		out[n.ID] = merged
	}
	return out
}
