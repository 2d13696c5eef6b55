package trace

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts recorded events to Graphviz DOT. Events form a single
// chain in recording order; missed probes are drawn dashed and grey so the
// successful path stands out.
func ToDOT(events []Event) string {
	var buf bytes.Buffer
	buf.WriteString("digraph trace {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"monospace\", fontsize=12];\n")
	buf.WriteString("  ranksep=0.3;\n")
	buf.WriteString("\n")

	for _, e := range events {
		fmt.Fprintf(&buf, "  e%d [%s];\n", e.Seq, strings.Join(nodeAttrs(e), ", "))
	}

	buf.WriteString("\n")
	for i := 1; i < len(events); i++ {
		fmt.Fprintf(&buf, "  e%d -> e%d;\n", events[i-1].Seq, events[i].Seq)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(e Event) []string {
	label := e.Name
	if e.Location != "" {
		label += "\n" + e.Location
	}
	if e.Detail != "" {
		label += "\n" + e.Detail
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}

	switch e.Kind {
	case KindState:
		attrs = append(attrs, "shape=ellipse", "fillcolor=\"#e8eef7\"")
	case KindProbe, KindDescriptor:
		if !e.Found {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=\"#555555\"")
		}
	case KindLink:
		attrs = append(attrs, "shape=cds", "fillcolor=\"#fff4d6\"")
	case KindResult:
		attrs = append(attrs, "fillcolor=\"#d8f5d0\"", "penwidth=2")
	case KindError:
		attrs = append(attrs, "fillcolor=\"#f9d6d5\"", "penwidth=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
