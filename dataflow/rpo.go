package dataflow

import (
	"github.com/dataflow-ir/ptsflow/ir"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// reversePostorder returns f's blocks in a best-effort reverse-postorder:
// a scheduling hint only (spec §4.2 "Ordering" is explicit that no
// particular order is required for correctness). Built on gonum's
// Tarjan SCC decomposition so that it degrades gracefully on cyclic CFGs
// (loops) instead of requiring a DAG, unlike a plain topological sort.
//
// On an acyclic CFG this is a topological order of the blocks (every block
// comes after its predecessors), though not necessarily the one a
// depth-first reverse postorder would pick; blocks that are mutually
// reachable (loops) are grouped together and emitted as one unit, which is
// good enough to seed the worklist even though it does not resolve which
// member of the loop is visited first.
func reversePostorder(f *ir.Function) []*ir.BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}

	g := simple.NewDirectedGraph()
	for _, b := range f.Blocks {
		g.AddNode(simple.Node(b.ID))
	}
	for _, b := range f.Blocks {
		for _, s := range b.Succs {
			if !g.HasEdgeFromTo(int64(b.ID), int64(s.ID)) {
				g.SetEdge(simple.Edge{F: simple.Node(b.ID), T: simple.Node(s.ID)})
			}
		}
	}

	byID := blockIndex(f)

	// TarjanSCC returns components in an order that is a valid reverse
	// topological sort of the condensation graph: a component earlier in the
	// slice never has an edge to one later. Reading the slice back to front
	// therefore approximates forward reverse-postorder.
	sccs := topo.TarjanSCC(g)
	order := make([]*ir.BasicBlock, 0, len(f.Blocks))
	for i := len(sccs) - 1; i >= 0; i-- {
		for _, n := range sccs[i] {
			order = append(order, byID[ir.BlockID(n.ID())])
		}
	}
	return order
}
