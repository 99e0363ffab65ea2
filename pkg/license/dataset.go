// Package license classifies source files by fuzzy-matching their leading
// comment block against a dataset of known license texts.
//
// The matcher is deliberately conservative: a file only counts as licensed
// when its header matches a single reference license with a confidence of
// at least [Threshold]. Anything below that - including files with no
// leading comment at all - is unlicensed. There is no "unknown, include
// anyway" outcome.
//
// The scoring function is a replaceable [Strategy] so the matching
// technique can be upgraded without touching graph or resolution logic.
package license

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/corepkg/extractor/pkg/errors"
)

// Reference is a single known license text with a stable identifier
// (e.g., an SPDX ID like "MIT").
type Reference struct {
	ID   string `json:"licenseId"`
	Text string `json:"licenseText"`
}

// Dataset is an immutable collection of reference license texts.
// It is loaded once per run and safe for concurrent reads.
type Dataset struct {
	refs []Reference
}

// NewDataset creates a dataset from the given references.
// References with an empty ID or text are dropped. The references are
// sorted by ID so iteration order (and therefore tie-breaking between
// equally-scored matches) is deterministic.
func NewDataset(refs []Reference) *Dataset {
	kept := make([]Reference, 0, len(refs))
	for _, r := range refs {
		if r.ID == "" || r.Text == "" {
			continue
		}
		kept = append(kept, r)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
	return &Dataset{refs: kept}
}

// LoadDataset reads a dataset from a directory of JSON files, one reference
// per file in the SPDX details format ({"licenseId": ..., "licenseText": ...}).
// Files that fail to parse are skipped; a dataset with zero usable references
// is an error.
func LoadDataset(dir string) (*Dataset, error) {
	var refs []Reference

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var ref Reference
		if err := json.Unmarshal(data, &ref); err != nil {
			// Malformed reference files are skipped, not fatal
			return nil
		}
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "read license dataset at %s", dir)
	}

	ds := NewDataset(refs)
	if ds.Len() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidDataset, "no usable license references in %s", dir)
	}
	return ds, nil
}

// References returns the dataset contents in ID order.
// The returned slice must not be modified.
func (d *Dataset) References() []Reference { return d.refs }

// Len returns the number of references in the dataset.
func (d *Dataset) Len() int { return len(d.refs) }
