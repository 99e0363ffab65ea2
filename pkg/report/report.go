// Package report turns a pipeline result into run artifacts: the
// machine-readable JSON report and a human-readable README with the
// available / blocked / blocking / unlicensed package tables.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/corepkg/extractor/pkg/depgraph"
	"github.com/corepkg/extractor/pkg/discover"
	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/pipeline"
	"github.com/corepkg/extractor/pkg/resolve"
)

// PackageReport is one package's full outcome in the JSON report.
type PackageReport struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`

	Status   resolve.Status `json:"status"`
	Licensed bool           `json:"licensed"`
	Aliased  bool           `json:"aliased,omitempty"`

	// Confidence is the weakest per-file match confidence among the
	// node's copies. Zero for external nodes, whose files are never
	// scanned.
	Confidence float64 `json:"confidence"`

	LicenseIDs      []string `json:"license_ids,omitempty"`
	Blockers        []string `json:"blockers,omitempty"`
	UnlicensedFiles []string `json:"unlicensed_files,omitempty"`

	External  bool   `json:"external,omitempty"`
	Rewritten bool   `json:"rewritten,omitempty"`
	Source    string `json:"source,omitempty"`

	FilesScanned int `json:"files_scanned,omitempty"`
}

// Report is the machine-readable outcome of one extraction run.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Stats pipeline.Stats `json:"stats"`

	// Packages in ascending ID order, externals included.
	Packages []PackageReport `json:"packages"`

	DiscoveryErrors []discover.Error         `json:"discovery_errors,omitempty"`
	Inconsistencies []depgraph.Inconsistency `json:"inconsistencies,omitempty"`
}

// Build assembles the report from a pipeline result. Output order is
// deterministic: packages ascend by node ID.
func Build(result *pipeline.Result) *Report {
	r := &Report{
		RunID:           result.RunID,
		GeneratedAt:     time.Now().UTC(),
		Stats:           result.Stats,
		DiscoveryErrors: result.Set.Errors,
		Inconsistencies: result.Inconsistencies,
	}

	for _, n := range result.Graph.Nodes() {
		v := result.Verdict(n.ID)
		lic := result.Licenses[n.ID]

		r.Packages = append(r.Packages, PackageReport{
			ID:              n.ID,
			Name:            n.Name,
			Version:         n.Version.String(),
			Status:          v.Status,
			Licensed:        lic.Licensed,
			Aliased:         lic.Aliased,
			Confidence:      lic.Confidence,
			LicenseIDs:      lic.LicenseIDs,
			Blockers:        v.Blockers,
			UnlicensedFiles: lic.UnlicensedFiles,
			External:        n.External,
			Rewritten:       n.Rewritten,
			Source:          n.Source,
			FilesScanned:    lic.FilesScanned,
		})
	}

	return r
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode report")
	}
	return nil
}

// ByStatus returns the report's packages carrying the given status, in
// report order.
func (r *Report) ByStatus(status resolve.Status) []PackageReport {
	var out []PackageReport
	for _, p := range r.Packages {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// Package returns the entry with the given ID, or false.
func (r *Report) Package(id string) (PackageReport, bool) {
	for _, p := range r.Packages {
		if p.ID == id {
			return p, true
		}
	}
	return PackageReport{}, false
}
