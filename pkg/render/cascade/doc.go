// Package cascade renders adapter results as chain diagrams.
//
// Each labelled D-value becomes a box between an input and an output node,
// in the order the adapter reported them. The bottleneck is highlighted so
// the limiting stage is visible at a glance.
//
// # Usage
//
//	dot, err := cascade.ToDOT(res, cascade.Options{Detailed: true})
//	svg, err := cascade.RenderSVG(ctx, dot)
//
// The DOT source can also be saved and processed with external Graphviz
// tools. SVG rendering runs in process via [github.com/goccy/go-graphviz].
package cascade
