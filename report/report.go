// Package report renders an analysis.Result as text or as a call graph
// image, the same "print the findings" role the source project splits
// across its cmd/pointer.go logging and ad-hoc debugging output.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dataflow-ir/ptsflow/analysis"
	islices "github.com/dataflow-ir/ptsflow/internal/slices"
	"github.com/fatih/color"
	"github.com/goccy/go-graphviz"
)

// Options controls rendering.
type Options struct {
	// Color enables ANSI highlighting of the call-site line number and of
	// the callee names.
	Color bool
}

// WriteText prints one line per call site with at least one resolved
// callee, in ascending line order, as "<line> : <name1>, <name2>, ...",
// callee names sorted lexicographically.
func WriteText(w io.Writer, res analysis.Result, opt Options) {
	lineColor := color.New(color.FgCyan, color.Bold)
	nameColor := color.New(color.FgYellow)

	for _, line := range res.CallResults.Lines() {
		callees := res.CallResults.Callees(line)
		lineStr := fmt.Sprintf("%d", line)
		if opt.Color {
			lineStr = lineColor.Sprint(lineStr)
			callees = islices.Map(callees, func(name string) string { return nameColor.Sprint(name) })
		}
		fmt.Fprintf(w, "%s : %s\n", lineStr, strings.Join(callees, ", "))
	}
}

// WriteCallGraphDOT renders the resolved call sites as a Graphviz DOT call
// graph rooted at the entry function.
func WriteCallGraphDOT(w io.Writer, res analysis.Result) error {
	var b strings.Builder
	b.WriteString("digraph callgraph {\n")
	b.WriteString(fmt.Sprintf("  %q [shape=doublecircle];\n", res.Entry.Name()))
	for _, line := range res.CallResults.Lines() {
		for _, callee := range res.CallResults.Callees(line) {
			b.WriteString(fmt.Sprintf("  %q -> %q [label=%q];\n", res.Entry.Name(), callee, fmt.Sprintf("L%d", line)))
		}
	}
	b.WriteString("}\n")

	graph, err := graphviz.ParseBytes([]byte(b.String()))
	if err != nil {
		return fmt.Errorf("report: parse call graph: %w", err)
	}
	g := graphviz.New()
	defer func() {
		graph.Close()
		g.Close()
	}()
	return g.Render(graph, graphviz.XDOT, w)
}
