// Package dot exports the classified dependency graph as Graphviz DOT
// and SVG, with nodes colored by inclusion status.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/corepkg/extractor/pkg/depgraph"
	"github.com/corepkg/extractor/pkg/errors"
	"github.com/corepkg/extractor/pkg/resolve"
)

// Options configures DOT export.
type Options struct {
	// Detailed adds status and license lines to node labels.
	// When false, only the node ID is shown.
	Detailed bool
}

// statusColors maps each inclusion status to its node fill.
var statusColors = map[resolve.Status]string{
	resolve.StatusIncluded:   "palegreen",
	resolve.StatusBlocked:    "khaki",
	resolve.StatusUnlicensed: "lightcoral",
	resolve.StatusExternal:   "lightgrey",
}

// ToDOT converts a classified graph to Graphviz DOT. Nodes are filled by
// status; external nodes get a dashed outline.
func ToDOT(g *depgraph.Graph, res *resolve.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph corepkg {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		v := res.Verdict(n.ID)
		attrs := fmtAttrs(n, v, opts)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(n *depgraph.Node, v resolve.Verdict, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, v, opts.Detailed))}

	if color, ok := statusColors[v.Status]; ok {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%s", color))
	}
	if n.External {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	return attrs
}

func fmtLabel(n *depgraph.Node, v resolve.Verdict, detailed bool) string {
	if !detailed {
		return n.ID
	}

	parts := []string{string(v.Status)}
	if len(v.Blockers) > 0 {
		parts = append(parts, "blocked by: "+strings.Join(v.Blockers, ", "))
	}
	if n.Rewritten {
		parts = append(parts, "rewritten")
	}
	return n.ID + "\n" + strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render SVG")
	}
	return buf.Bytes(), nil
}
