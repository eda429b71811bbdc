package cascade

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds the efficiency and contribution to each label.
	Detailed bool
	// Horizontal lays the chain out left to right instead of top to bottom.
	Horizontal bool
}

const (
	bottleneckFill = "#f4a6a6"
	stageFill      = "white"
	terminalFill   = "#e8e8e8"
)

// ToDOT converts a result into a Graphviz chain: input, one node per
// labelled D-value, output. The bottleneck node is filled red and its edge
// drawn bold. Results without labels are rejected.
func ToDOT(res *adapter.Result, opts Options) (string, error) {
	if res == nil || len(res.Labels) == 0 {
		return "", errors.InvalidInput("result", "nothing to render: result has no labelled values")
	}
	if len(res.Labels) != len(res.DValues) {
		return "", errors.InvalidInput("result", "labels and d_space_values differ in length")
	}

	rankdir := "TB"
	if opts.Horizontal {
		rankdir = "LR"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", res.Adapter)
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=18, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [label=\"input\", shape=ellipse, fillcolor=%q];\n", "_input", terminalFill)
	total := 0.0
	for _, d := range res.DValues {
		total += d
	}
	for i, name := range res.Labels {
		d := res.DValues[i]
		fill := stageFill
		if isBottleneck(res, name) {
			fill = bottleneckFill
		}
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=%q];\n", nodeID(i), fmtLabel(name, d, total, opts.Detailed), fill)
	}
	out := fmt.Sprintf("output\nη = %.4f", phi.Inverse(res.TotalD))
	fmt.Fprintf(&buf, "  %q [label=%q, shape=ellipse, fillcolor=%q];\n", "_output", out, terminalFill)

	buf.WriteString("\n")
	prev := "_input"
	for i, name := range res.Labels {
		attrs := ""
		if isBottleneck(res, name) {
			attrs = " [penwidth=3, color=\"#c0392b\"]"
		}
		fmt.Fprintf(&buf, "  %q -> %q%s;\n", prev, nodeID(i), attrs)
		prev = nodeID(i)
	}
	fmt.Fprintf(&buf, "  %q -> %q;\n", prev, "_output")

	buf.WriteString("}\n")
	return buf.String(), nil
}

func nodeID(i int) string { return "n" + strconv.Itoa(i) }

func isBottleneck(res *adapter.Result, name string) bool {
	return res.Bottleneck != nil && res.Bottleneck.Name == name
}

func fmtLabel(name string, d, total float64, detailed bool) string {
	if !detailed {
		return name
	}
	parts := []string{
		name,
		fmt.Sprintf("D = %.4f", d),
		fmt.Sprintf("η = %.4f", phi.Inverse(d)),
	}
	if total > 0 {
		parts = append(parts, fmt.Sprintf("%.1f%% of loss", d/total*100))
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders DOT source to SVG in process.
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
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root tag with one whose width and height
// match the view box, so browsers scale the diagram consistently.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
