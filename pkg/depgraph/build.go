package depgraph

import (
	"fmt"

	"github.com/corepkg/extractor/pkg/discover"
	"github.com/corepkg/extractor/pkg/rewrite"
)

// Inconsistency records a dependency edge that did not line up with the
// discovered package set. Inconsistencies are reported, never fatal: the
// resolver treats the affected dependencies conservatively.
type Inconsistency struct {
	// Package is the ID of the node whose lock entry was inconsistent.
	Package string `json:"package"`
	// Dependency is the lock entry as "registryname@version".
	Dependency string `json:"dependency"`
	Message    string `json:"message"`
}

func (i Inconsistency) String() string {
	return fmt.Sprintf("%s -> %s: %s", i.Package, i.Dependency, i.Message)
}

// Build constructs the dependency graph from a discovered package set.
//
// One node exists per (name, version); side-by-side duplicate copies of a
// release collapse into that node. Lock entries resolve against the set by
// exact name and version. An entry whose exact version is missing falls
// back to the single discovered version of that name, recording an
// inconsistency; an ambiguous or entirely unknown entry becomes an
// external node. Rewritten releases become external nodes carrying their
// redirect target.
func Build(set *discover.Set, rules *rewrite.Table) (*Graph, []Inconsistency) {
	if rules == nil {
		rules = rewrite.NewTable(nil)
	}

	g := New()
	var problems []Inconsistency

	// First pass: one node per discovered release. Discovered copies of a
	// rewritten release are dropped here; dependents link to the rewrite
	// target instead.
	for _, pkg := range set.Packages {
		if rules.IsRewritten(pkg.Name.RegistryName, pkg.Version) {
			continue
		}
		id := pkg.Key()
		if n, ok := g.Node(id); ok {
			n.Packages = append(n.Packages, pkg)
			continue
		}
		_ = g.AddNode(Node{
			ID:       id,
			Name:     pkg.Name.RegistryName,
			Version:  pkg.Version,
			Packages: []*discover.Package{pkg},
		})
	}

	// Second pass: edges from lock entries.
	for _, pkg := range set.Packages {
		if rules.IsRewritten(pkg.Name.RegistryName, pkg.Version) {
			continue
		}
		from := pkg.Key()
		for _, dep := range pkg.Dependencies {
			name, version, rewritten := rules.Resolve(dep.RegistryName, dep.Version)
			depID := name + "@" + version.String()

			if rewritten {
				ensureNode(g, Node{
					ID:        depID,
					Name:      name,
					Version:   version,
					External:  true,
					Rewritten: true,
					Source:    name,
				})
				_ = g.AddEdge(Edge{From: from, To: depID, Alias: dep.PathName})
				continue
			}

			if _, ok := g.Node(depID); ok {
				_ = g.AddEdge(Edge{From: from, To: depID, Alias: dep.PathName})
				continue
			}

			// Exact version missing. A single discovered version of the
			// same name is close enough to link, with a note; anything
			// else stays external.
			candidates := internalVersionsOf(g, name)
			switch len(candidates) {
			case 1:
				problems = append(problems, Inconsistency{
					Package:    from,
					Dependency: depID,
					Message: fmt.Sprintf("pinned version not discovered, linked to %s",
						candidates[0].ID),
				})
				_ = g.AddEdge(Edge{From: from, To: candidates[0].ID, Alias: dep.PathName})
			case 0:
				ensureNode(g, Node{ID: depID, Name: name, Version: version, External: true})
				_ = g.AddEdge(Edge{From: from, To: depID, Alias: dep.PathName})
			default:
				problems = append(problems, Inconsistency{
					Package:    from,
					Dependency: depID,
					Message: fmt.Sprintf("pinned version not discovered, %d candidate versions",
						len(candidates)),
				})
				ensureNode(g, Node{ID: depID, Name: name, Version: version, External: true})
				_ = g.AddEdge(Edge{From: from, To: depID, Alias: dep.PathName})
			}
		}
	}

	return g, problems
}

func ensureNode(g *Graph, n Node) {
	if _, ok := g.Node(n.ID); !ok {
		_ = g.AddNode(n)
	}
}

func internalVersionsOf(g *Graph, name string) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Name == name && n.IsInternal() {
			out = append(out, n)
		}
	}
	return out
}
