// Package rewrite substitutes known-bad packages with publishable
// replacements.
//
// Some vendored packages cannot be redistributed (usually because they are
// unlicensed) but have a community-maintained equivalent. The rewrite table
// maps exact (name, version) pairs to their substitute; any package or lock
// entry matching an original is replaced, and the original is excluded from
// emit.
package rewrite

import (
	"encoding/json"
	"os"

	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/lockfile"
)

// Original identifies one exact package release that gets rewritten.
type Original struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Rule maps a set of original releases to their replacement.
type Rule struct {
	NewSource  string     `json:"newSource"`
	NewVersion string     `json:"newVersion"`
	Originals  []Original `json:"originals"`
}

// Table holds all rewrite rules, keyed by a display name.
type Table struct {
	rules map[string]Rule
}

// NewTable creates a table from parsed rules.
func NewTable(rules map[string]Rule) *Table {
	if rules == nil {
		rules = map[string]Rule{}
	}
	return &Table{rules: rules}
}

// Load reads a rewrite table from a JSON file. A missing path yields an
// empty table: rewrites are optional.
func Load(path string) (*Table, error) {
	if path == "" {
		return NewTable(nil), nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewTable(nil), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read rewrite table %s", path)
	}

	var rules map[string]Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse rewrite table %s", path)
	}
	return NewTable(rules), nil
}

// Resolve returns the possibly-rewritten (name, version) for a package.
// The boolean reports whether a rewrite applied.
func (t *Table) Resolve(name string, version lockfile.Version) (string, lockfile.Version, bool) {
	for _, rule := range t.rules {
		for _, orig := range rule.Originals {
			if orig.Name == name && orig.Version == string(version) {
				return rule.NewSource, lockfile.Version(rule.NewVersion), true
			}
		}
	}
	return name, version, false
}

// IsRewritten reports whether the exact release is rewritten away.
// Rewritten originals must not be included in the emitted package set.
func (t *Table) IsRewritten(name string, version lockfile.Version) bool {
	_, _, rewritten := t.Resolve(name, version)
	return rewritten
}

// Len returns the number of rules in the table.
func (t *Table) Len() int { return len(t.rules) }
