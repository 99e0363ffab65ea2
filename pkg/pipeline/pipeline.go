// Package pipeline runs the complete extraction pipeline:
// discover -> classify -> graph -> resolve.
//
// Stages run strictly in order: a stage only starts once the previous one
// has fully finished, so classification never sees a half-built package
// set and resolution never sees a half-built graph. Within the
// classification stage, packages fan out across a bounded worker pool.
//
// Recoverable problems (discovery errors, graph inconsistencies) are
// collected into the result; the only fatal data condition is a payload
// that yields no packages at all.
package pipeline

import (
	"sort"
	"time"

	"github.com/corepkg/extractor/pkg/depgraph"
	"github.com/corepkg/extractor/pkg/discover"
	"github.com/corepkg/extractor/pkg/resolve"
)

// classifyWorkers bounds the classification fan-out.
const classifyWorkers = 8

// Options configures one pipeline run.
type Options struct {
	// PayloadRoot is the unpacked archive root to scan.
	PayloadRoot string

	// Roots optionally restricts the scan to named subdirectories of
	// PayloadRoot. Empty means scan the whole root.
	Roots []string

	// Banned lists package path names to skip during discovery.
	Banned []string

	// Extensions lists the source-file extensions to classify.
	Extensions []string

	// Aliases maps registry names to an assumed license ID: aliased
	// packages skip file classification entirely.
	Aliases map[string]string
}

// Stats summarizes a run for logging and the report header.
type Stats struct {
	Packages        int `json:"packages"`
	FilesClassified int `json:"files_classified"`

	Included   int `json:"included"`
	Blocked    int `json:"blocked"`
	Unlicensed int `json:"unlicensed"`
	External   int `json:"external"`

	DiscoveryErrors int `json:"discovery_errors"`
	Inconsistencies int `json:"inconsistencies"`

	DiscoverTime time.Duration `json:"discover_time"`
	ClassifyTime time.Duration `json:"classify_time"`
	GraphTime    time.Duration `json:"graph_time"`
	ResolveTime  time.Duration `json:"resolve_time"`
}

// PackageLicense is the aggregated classification of one graph node's own
// files: every file must pass for the node to count as licensed.
type PackageLicense struct {
	Licensed bool `json:"licensed"`

	// Aliased marks nodes whose license was assumed via configuration
	// instead of classified from file headers.
	Aliased bool `json:"aliased,omitempty"`

	// Confidence is the lowest per-file match confidence across the
	// node's files: the weakest file governs the verdict. 1 when no
	// files were scanned (aliased or file-less packages).
	Confidence float64 `json:"confidence"`

	// LicenseIDs are the distinct license IDs seen across the node's
	// files, sorted.
	LicenseIDs []string `json:"license_ids,omitempty"`

	// UnlicensedFiles lists the file paths that failed classification,
	// sorted.
	UnlicensedFiles []string `json:"unlicensed_files,omitempty"`

	// FilesScanned counts the files actually classified.
	FilesScanned int `json:"files_scanned"`
}

func (l PackageLicense) merge(other PackageLicense) PackageLicense {
	out := PackageLicense{
		Licensed:     l.Licensed && other.Licensed,
		Aliased:      l.Aliased && other.Aliased,
		Confidence:   min(l.Confidence, other.Confidence),
		FilesScanned: l.FilesScanned + other.FilesScanned,
	}
	out.LicenseIDs = mergeSorted(l.LicenseIDs, other.LicenseIDs)
	out.UnlicensedFiles = mergeSorted(l.UnlicensedFiles, other.UnlicensedFiles)
	return out
}

func mergeSorted(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		seen[s] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Result is the full outcome of one pipeline run.
type Result struct {
	// RunID uniquely identifies the run, for history and report naming.
	RunID string `json:"run_id"`

	StartedAt time.Time `json:"started_at"`

	Set             *discover.Set            `json:"-"`
	Graph           *depgraph.Graph          `json:"-"`
	Inconsistencies []depgraph.Inconsistency `json:"inconsistencies,omitempty"`

	// Licenses maps node IDs to their own-files classification.
	Licenses map[string]PackageLicense `json:"licenses"`

	Resolution *resolve.Result `json:"-"`

	Stats Stats `json:"stats"`
}

// Verdict returns the resolved inclusion verdict for a node ID.
func (r *Result) Verdict(id string) resolve.Verdict { return r.Resolution.Verdict(id) }
