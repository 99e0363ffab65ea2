// Package history archives extraction runs and diffs the inclusion
// outcome between them.
//
// The archive answers "what changed since the last payload release":
// which packages became available, which regressed, which appeared or
// disappeared. Storage is MongoDB; the diff itself is pure and works on
// any two records.
package history

import (
	"sort"
	"time"

	"github.com/corepkg/extractor/pkg/pipeline"
	"github.com/corepkg/extractor/pkg/resolve"
)

// Record is one archived run: just enough to diff and to identify the
// payload it ran against.
type Record struct {
	RunID          string    `bson:"run_id" json:"run_id"`
	StartedAt      time.Time `bson:"started_at" json:"started_at"`
	ArchiveVersion string    `bson:"archive_version,omitempty" json:"archive_version,omitempty"`

	Stats pipeline.Stats `bson:"stats" json:"stats"`

	// Statuses maps node IDs to their resolved status.
	Statuses map[string]resolve.Status `bson:"statuses" json:"statuses"`
}

// NewRecord builds an archivable record from a pipeline result.
func NewRecord(result *pipeline.Result, archiveVersion string) Record {
	statuses := make(map[string]resolve.Status, len(result.Resolution.Verdicts))
	for id, v := range result.Resolution.Verdicts {
		statuses[id] = v.Status
	}
	return Record{
		RunID:          result.RunID,
		StartedAt:      result.StartedAt,
		ArchiveVersion: archiveVersion,
		Stats:          result.Stats,
		Statuses:       statuses,
	}
}

// Change is one package whose status differs between two runs. A package
// absent from a run has empty status on that side.
type Change struct {
	ID     string         `json:"id"`
	Before resolve.Status `json:"before,omitempty"`
	After  resolve.Status `json:"after,omitempty"`
}

// Added reports whether the package is new in the later run.
func (c Change) Added() bool { return c.Before == "" }

// Removed reports whether the package vanished in the later run.
func (c Change) Removed() bool { return c.After == "" }

// Promoted reports whether the package became included.
func (c Change) Promoted() bool {
	return c.Before != resolve.StatusIncluded && c.After == resolve.StatusIncluded
}

// Regressed reports whether the package stopped being included.
func (c Change) Regressed() bool {
	return c.Before == resolve.StatusIncluded && c.After != resolve.StatusIncluded && c.After != ""
}

// Diff compares two runs and returns every status change, in ascending
// ID order. Identical statuses produce no entry.
func Diff(before, after Record) []Change {
	var changes []Change

	for id, b := range before.Statuses {
		a, ok := after.Statuses[id]
		if !ok {
			changes = append(changes, Change{ID: id, Before: b})
			continue
		}
		if a != b {
			changes = append(changes, Change{ID: id, Before: b, After: a})
		}
	}
	for id, a := range after.Statuses {
		if _, ok := before.Statuses[id]; !ok {
			changes = append(changes, Change{ID: id, After: a})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].ID < changes[j].ID })
	return changes
}
