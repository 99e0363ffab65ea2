// Package resolve computes the final inclusion status of every package in
// the dependency graph.
//
// A package ships only when its own files are licensed and every package
// it transitively depends on ships too. The computation is a monotonic
// fixpoint: statuses start optimistic and only ever move downward
// (included -> blocked), so it terminates in at most one pass per node and
// produces the same result regardless of iteration order. Cycles need no
// special casing - a fully-licensed cycle stays included, and a taint
// anywhere in a cycle propagates around it.
package resolve

import (
	"sort"

	"github.com/corepkg/extractor/pkg/depgraph"
)

// Status is a package's inclusion outcome.
type Status string

const (
	// StatusIncluded means the package and its whole transitive closure
	// are licensed; it will be emitted.
	StatusIncluded Status = "included"

	// StatusUnlicensed means at least one of the package's own files
	// failed license classification.
	StatusUnlicensed Status = "unlicensed"

	// StatusBlocked means the package's own files are fine but something
	// it depends on is not included.
	StatusBlocked Status = "blocked-by-dependency"

	// StatusExternal means the package was referenced but never
	// discovered, so nothing is known about its licensing. External
	// packages are conservatively not included. Rewritten externals are
	// the exception: their public-registry replacement is assumed
	// publishable and they resolve to StatusIncluded.
	StatusExternal Status = "external"
)

// Verdict is the resolved outcome for one graph node.
type Verdict struct {
	ID     string `json:"id"`
	Status Status `json:"status"`

	// Licensed reports whether the package's own files passed
	// classification, independent of its dependencies.
	Licensed bool `json:"licensed"`

	// Blockers lists the direct dependencies that kept this package out,
	// in ascending ID order. Only the first non-included hop is cited:
	// a package two levels above an unlicensed leaf names its blocked
	// intermediate, not the leaf.
	Blockers []string `json:"blockers,omitempty"`
}

// Included reports whether the package ships.
func (v Verdict) Included() bool { return v.Status == StatusIncluded }

// Result holds the verdicts of one resolution pass plus the number of
// fixpoint sweeps it took to converge.
type Result struct {
	Verdicts map[string]Verdict
	Passes   int
}

// Verdict returns the verdict for a node ID; the zero Verdict if unknown.
func (r *Result) Verdict(id string) Verdict { return r.Verdicts[id] }

// WithStatus returns the IDs carrying the given status, sorted.
func (r *Result) WithStatus(status Status) []string {
	var out []string
	for id, v := range r.Verdicts {
		if v.Status == status {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Included returns the IDs of all shipping packages, sorted.
func (r *Result) Included() []string { return r.WithStatus(StatusIncluded) }

// Blocking returns the sorted IDs of non-included packages that appear in
// at least one other package's blocker set. These are the packages whose
// licensing, if fixed, would unblock something.
func (r *Result) Blocking() []string {
	seen := map[string]bool{}
	for _, v := range r.Verdicts {
		for _, b := range v.Blockers {
			seen[b] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolve computes inclusion verdicts for every node in the graph.
// licensed maps internal node IDs to their own-files classification
// outcome; IDs absent from the map count as unlicensed.
func Resolve(g *depgraph.Graph, licensed map[string]bool) *Result {
	verdicts := make(map[string]Verdict, g.NodeCount())

	// Seed from each node's own standing, before dependencies weigh in.
	for _, n := range g.Nodes() {
		v := Verdict{ID: n.ID}
		switch {
		case n.Rewritten:
			v.Status = StatusIncluded
			v.Licensed = true
		case n.External:
			v.Status = StatusExternal
		case licensed[n.ID]:
			v.Status = StatusIncluded
			v.Licensed = true
		default:
			v.Status = StatusUnlicensed
		}
		verdicts[n.ID] = v
	}

	nodes := g.Nodes() // ascending ID order, for deterministic sweeps

	// Downgrade until stable. Each sweep can only move included nodes to
	// blocked, so the loop runs at most NodeCount+1 times.
	passes := 0
	for changed := true; changed; {
		changed = false
		passes++
		for _, n := range nodes {
			v := verdicts[n.ID]
			if v.Status != StatusIncluded {
				continue
			}
			for _, dep := range g.Dependencies(n.ID) {
				if !verdicts[dep].Included() {
					v.Status = StatusBlocked
					verdicts[n.ID] = v
					changed = true
					break
				}
			}
		}
	}

	// Blocker sets cite direct dependencies only, from the settled state.
	for _, n := range nodes {
		v := verdicts[n.ID]
		if v.Status != StatusBlocked {
			continue
		}
		for _, dep := range g.Dependencies(n.ID) {
			if !verdicts[dep].Included() {
				v.Blockers = append(v.Blockers, dep)
			}
		}
		sort.Strings(v.Blockers)
		verdicts[n.ID] = v
	}

	return &Result{Verdicts: verdicts, Passes: passes}
}
