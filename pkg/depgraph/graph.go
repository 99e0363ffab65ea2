// Package depgraph models the directed dependency graph of a discovered
// package set.
//
// Unlike a build-order graph, this graph tolerates cycles: vendored
// dependency trees contain mutually-referential packages and the license
// resolution that consumes the graph is a fixpoint computation, not a
// topological sort. HasCycles is informational only.
package depgraph

import (
	"errors"
	"slices"
	"sort"

	"github.com/corepkg/extractor/pkg/discover"
	"github.com/corepkg/extractor/pkg/lockfile"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with
	// the same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From
	// node does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To
	// node does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// Node is a vertex in the dependency graph: one package name at one
// version. Internal nodes carry the discovered package copies behind them;
// external nodes represent dependencies named in lock files but absent
// from the payload.
type Node struct {
	// ID is "registryname@version", unique across the graph.
	ID string

	Name    string
	Version lockfile.Version

	// Packages holds every discovered copy of this release (side-by-side
	// duplicates collapse into one node). Empty for external nodes.
	Packages []*discover.Package

	// External marks a dependency that was referenced but never
	// discovered in the payload.
	External bool

	// Rewritten marks a node whose identity was redirected to a public
	// registry equivalent. Source carries the redirect target.
	Rewritten bool
	Source    string
}

// IsInternal reports whether the node is backed by at least one
// discovered package.
func (n *Node) IsInternal() bool { return !n.External && len(n.Packages) > 0 }

// Edge is a directed dependency: From requires To. Alias is the name the
// depending package imports the dependency by, carried through for
// manifest emission.
type Edge struct {
	From  string
	To    string
	Alias string
}

// Graph is a directed graph over package nodes. It may contain cycles.
//
// The zero value is not usable - use New. Graph is not safe for
// concurrent mutation; the pipeline builds it in a single goroutine.
type Graph struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string // nodeID -> dependency IDs
	incoming map[string][]string // nodeID -> dependent IDs
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	g.nodes[n.ID] = &n
	return nil
}

// AddEdge adds a directed edge between two existing nodes. Repeated edges
// between the same pair collapse into one.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(g.outgoing[e.From], e.To) {
		return nil
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e.To)
	g.incoming[e.To] = append(g.incoming[e.To], e.From)
	return nil
}

// Node returns the node with the given ID and true, or nil and false.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in ascending ID order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Dependencies returns the IDs the node depends on.
// The returned slice is a read-only view.
func (g *Graph) Dependencies(id string) []string { return g.outgoing[id] }

// Dependents returns the IDs that depend on the node.
// The returned slice is a read-only view.
func (g *Graph) Dependents(id string) []string { return g.incoming[id] }

// EdgesFrom returns the full edges leaving a node, in insertion order.
func (g *Graph) EdgesFrom(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Externals returns all external nodes in ascending ID order.
func (g *Graph) Externals() []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.External {
			out = append(out, n)
		}
	}
	return out
}

// Roots returns nodes with no dependents, in ascending ID order.
func (g *Graph) Roots() []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if len(g.incoming[n.ID]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// HasCycles reports whether the graph contains a directed cycle.
// Cycles are legal; this exists for reporting and statistics.
func (g *Graph) HasCycles() bool {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var found bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, dep := range g.outgoing[id] {
			switch color[dep] {
			case white:
				dfs(dep)
			case gray:
				found = true
			}
			if found {
				return
			}
		}
		color[id] = black
	}

	for id := range g.nodes {
		if color[id] == white {
			dfs(id)
			if found {
				return true
			}
		}
	}
	return false
}
