package depgraph

import (
	"testing"

	"github.com/corepkg/extractor/pkg/discover"
	"github.com/corepkg/extractor/pkg/lockfile"
	"github.com/corepkg/extractor/pkg/pkgname"
	"github.com/corepkg/extractor/pkg/rewrite"
)

func testPackage(name, version string, deps ...lockfile.Dependency) *discover.Package {
	return &discover.Package{
		Name:         pkgname.New(name, name),
		Version:      lockfile.Version(version),
		Dependencies: deps,
	}
}

func dep(name, version string) lockfile.Dependency {
	return lockfile.Dependency{
		PathName:     name,
		RegistryName: name,
		Version:      lockfile.Version(version),
	}
}

func TestBuildLinksDiscoveredDependencies(t *testing.T) {
	set := &discover.Set{Packages: []*discover.Package{
		testPackage("app", "1.0.0", dep("lib", "2.0.0")),
		testPackage("lib", "2.0.0"),
	}}

	g, problems := Build(set, nil)
	if len(problems) != 0 {
		t.Fatalf("unexpected inconsistencies: %v", problems)
	}
	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Fatalf("graph shape: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if deps := g.Dependencies("app@1.0.0"); len(deps) != 1 || deps[0] != "lib@2.0.0" {
		t.Errorf("Dependencies = %v", deps)
	}
}

func TestBuildCreatesExternalNodes(t *testing.T) {
	set := &discover.Set{Packages: []*discover.Package{
		testPackage("app", "1.0.0", dep("missing", "3.0.0")),
	}}

	g, problems := Build(set, nil)
	if len(problems) != 0 {
		t.Fatalf("unknown name should not be an inconsistency: %v", problems)
	}

	n, ok := g.Node("missing@3.0.0")
	if !ok {
		t.Fatal("external node missing")
	}
	if !n.External || n.IsInternal() {
		t.Errorf("node not marked external: %+v", n)
	}
}

func TestBuildVersionFallback(t *testing.T) {
	set := &discover.Set{Packages: []*discover.Package{
		testPackage("app", "1.0.0", dep("lib", "9.9.9")),
		testPackage("lib", "2.0.0"),
	}}

	g, problems := Build(set, nil)
	if len(problems) != 1 {
		t.Fatalf("expected 1 inconsistency, got %v", problems)
	}
	if problems[0].Package != "app@1.0.0" || problems[0].Dependency != "lib@9.9.9" {
		t.Errorf("inconsistency = %+v", problems[0])
	}
	// Edge lands on the one version that exists; no phantom node.
	if deps := g.Dependencies("app@1.0.0"); len(deps) != 1 || deps[0] != "lib@2.0.0" {
		t.Errorf("Dependencies = %v", deps)
	}
	if _, ok := g.Node("lib@9.9.9"); ok {
		t.Error("phantom node created for missing version")
	}
}

func TestBuildAmbiguousVersionStaysExternal(t *testing.T) {
	set := &discover.Set{Packages: []*discover.Package{
		testPackage("app", "1.0.0", dep("lib", "9.9.9")),
		testPackage("lib", "1.0.0"),
		testPackage("lib", "2.0.0"),
	}}

	g, problems := Build(set, nil)
	if len(problems) != 1 {
		t.Fatalf("expected 1 inconsistency, got %v", problems)
	}
	n, ok := g.Node("lib@9.9.9")
	if !ok || !n.External {
		t.Fatalf("ambiguous dependency should become external, got %+v", n)
	}
}

func TestBuildCollapsesDuplicateCopies(t *testing.T) {
	a := testPackage("lib", "2.0.0")
	a.Dir = "/payload/a/lib"
	b := testPackage("lib", "2.0.0")
	b.Dir = "/payload/b/lib"

	set := &discover.Set{Packages: []*discover.Package{a, b}}
	g, _ := Build(set, nil)

	if g.NodeCount() != 1 {
		t.Fatalf("expected duplicate copies to share a node, got %d nodes", g.NodeCount())
	}
	n, _ := g.Node("lib@2.0.0")
	if len(n.Packages) != 2 {
		t.Errorf("node carries %d copies, want 2", len(n.Packages))
	}
}

func TestBuildAppliesRewrites(t *testing.T) {
	rules := rewrite.NewTable(map[string]rewrite.Rule{
		"Promise": {
			NewSource:  "evaera/promise",
			NewVersion: "4.0.0",
			Originals: []rewrite.Original{
				{Name: "promise", Version: "8c520dea"},
			},
		},
	})

	set := &discover.Set{Packages: []*discover.Package{
		testPackage("app", "1.0.0", dep("promise", "8c520dea")),
	}}

	g, problems := Build(set, rules)
	if len(problems) != 0 {
		t.Fatalf("unexpected inconsistencies: %v", problems)
	}

	n, ok := g.Node("evaera/promise@4.0.0")
	if !ok {
		t.Fatal("rewritten node missing")
	}
	if !n.Rewritten || !n.External {
		t.Errorf("rewritten node flags: %+v", n)
	}
	if _, ok := g.Node("promise@8c520dea"); ok {
		t.Error("original release should not appear once rewritten")
	}
	if deps := g.Dependencies("app@1.0.0"); len(deps) != 1 || deps[0] != "evaera/promise@4.0.0" {
		t.Errorf("Dependencies = %v", deps)
	}
}

func TestBuildDropsDiscoveredRewrittenRelease(t *testing.T) {
	rules := rewrite.NewTable(map[string]rewrite.Rule{
		"Promise": {
			NewSource:  "evaera/promise",
			NewVersion: "4.0.0",
			Originals: []rewrite.Original{
				{Name: "promise", Version: "8c520dea"},
			},
		},
	})

	// The rewritten release was itself vendored in the payload.
	set := &discover.Set{Packages: []*discover.Package{
		testPackage("app", "1.0.0", dep("promise", "8c520dea")),
		testPackage("promise", "8c520dea"),
	}}

	g, _ := Build(set, rules)

	if _, ok := g.Node("promise@8c520dea"); ok {
		t.Error("discovered rewritten release should be dropped")
	}
	if deps := g.Dependencies("app@1.0.0"); len(deps) != 1 || deps[0] != "evaera/promise@4.0.0" {
		t.Errorf("Dependencies = %v", deps)
	}
}

func TestBuildTolerantOfCycles(t *testing.T) {
	set := &discover.Set{Packages: []*discover.Package{
		testPackage("a", "1.0.0", dep("b", "1.0.0")),
		testPackage("b", "1.0.0", dep("a", "1.0.0")),
	}}

	g, problems := Build(set, nil)
	if len(problems) != 0 {
		t.Fatalf("cycle should not be an inconsistency: %v", problems)
	}
	if !g.HasCycles() {
		t.Error("cycle not present in built graph")
	}
}
