// Package dataflow implements the generic monotone worklist fixed-point
// engine that both the points-to analysis and the liveness analysis are
// built on. It is a direct generalization of the source project's
// DataflowVisitor<T> / compForwardDataflow / compBackwardDataflow trio: the
// engine only knows how to merge and transfer, and is otherwise oblivious to
// what T represents.
package dataflow

import (
	"context"

	"github.com/dataflow-ir/ptsflow/internal/queue"
	"github.com/dataflow-ir/ptsflow/ir"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "dataflow")

// Lattice is satisfied by a dataflow value type T. The self-referential
// constraint (T's methods take and return T) is the idiomatic Go way to
// express "T knows how to merge with itself" without an interface boxing
// allocation on every merge.
type Lattice[T any] interface {
	// Merge returns the least upper bound of the receiver and other. Must be
	// associative, commutative, idempotent, and monotone (⊇ the receiver).
	Merge(other T) T
	// Equal reports structural equality. Must distinguish any two elements
	// whose merge would differ.
	Equal(other T) bool
	// Clone returns an independent copy, so that mutating the copy during a
	// block transfer never aliases the stored (in, out) table entries.
	Clone() T
}

// Visitor computes the effect of a single instruction on a dataflow value.
// TransferInst may itself invoke the engine recursively (as pointsto's
// interprocedural transfer function does); the engine has no opinion on that.
type Visitor[T Lattice[T]] interface {
	TransferInst(inst ir.Instruction, val T) T
}

// TransferBlock runs every instruction of b through v, forward or backward,
// threading val instruction to instruction. This is the per-block
// convenience wrapper mentioned in spec §4.2 ("a per-block transfer(block,
// &mut dfval, direction)").
func TransferBlock[T Lattice[T]](v Visitor[T], b *ir.BasicBlock, val T, forward bool) T {
	if forward {
		for _, inst := range b.Instrs {
			val = v.TransferInst(inst, val)
		}
	} else {
		for i := len(b.Instrs) - 1; i >= 0; i-- {
			val = v.TransferInst(b.Instrs[i], val)
		}
	}
	return val
}

// Result is the per-block (in, out) table the engine fills in.
type Result[T any] struct {
	In  map[ir.BlockID]T
	Out map[ir.BlockID]T
}

// Engine drives a fixed-point computation over a single function. It has no
// state of its own beyond configuration; every run allocates a fresh Result.
type Engine[T Lattice[T]] struct {
	Visitor Visitor[T]

	// MaxIterations caps the number of block visits before the engine gives
	// up and returns a best-effort partial result. Zero means unbounded
	// (spec §5: "An implementation may impose an iteration cap as a safety
	// net").
	MaxIterations int
}

// Run executes the forward or backward algorithm depending on forward, and
// returns the resulting table. seed, when non-nil, pre-populates specific
// blocks' incoming value (used by pointsto to install a callee's calleeIn at
// the entry block); per Open Question #2 a seeded block's provided value is
// treated as the seed "in", not overwritten by init.
func (e Engine[T]) Run(ctx context.Context, f *ir.Function, init T, seed map[ir.BlockID]T, forward bool) Result[T] {
	if forward {
		return e.runForward(ctx, f, init, seed)
	}
	return e.runBackward(ctx, f, init, seed)
}

func blockIndex(f *ir.Function) map[ir.BlockID]*ir.BasicBlock {
	idx := make(map[ir.BlockID]*ir.BasicBlock, len(f.Blocks))
	for _, b := range f.Blocks {
		idx[b.ID] = b
	}
	return idx
}

func (e Engine[T]) runForward(ctx context.Context, f *ir.Function, init T, seed map[ir.BlockID]T) Result[T] {
	res := Result[T]{In: make(map[ir.BlockID]T, len(f.Blocks)), Out: make(map[ir.BlockID]T, len(f.Blocks))}
	for _, b := range f.Blocks {
		v := init
		if seed != nil {
			if s, ok := seed[b.ID]; ok {
				v = s
			}
		}
		res.In[b.ID] = v
		res.Out[b.ID] = v
	}

	idx := blockIndex(f)

	var wl queue.Queue[ir.BlockID]
	for _, b := range reversePostorder(f) {
		wl.Push(b.ID)
	}

	visits := 0
	for !wl.Empty() {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("forward dataflow cancelled before convergence")
			return res
		}
		if e.MaxIterations > 0 && visits >= e.MaxIterations {
			log.WithField("function", f.Name()).Warn("forward dataflow hit MaxIterations, returning partial result")
			return res
		}
		visits++

		id := wl.Pop()
		b := idx[id]

		in := res.In[id]
		for _, p := range b.Preds {
			in = in.Merge(res.Out[p.ID])
		}
		res.In[id] = in

		out := TransferBlock[T](e.Visitor, b, in.Clone(), true)
		if !out.Equal(res.Out[id]) {
			res.Out[id] = out
			for _, s := range b.Succs {
				wl.Push(s.ID)
			}
		}
	}

	return res
}

func (e Engine[T]) runBackward(ctx context.Context, f *ir.Function, init T, seed map[ir.BlockID]T) Result[T] {
	res := Result[T]{In: make(map[ir.BlockID]T, len(f.Blocks)), Out: make(map[ir.BlockID]T, len(f.Blocks))}
	for _, b := range f.Blocks {
		v := init
		if seed != nil {
			if s, ok := seed[b.ID]; ok {
				v = s
			}
		}
		res.In[b.ID] = v
		res.Out[b.ID] = v
	}

	idx := blockIndex(f)

	var wl queue.Queue[ir.BlockID]
	rpo := reversePostorder(f)
	for i := len(rpo) - 1; i >= 0; i-- {
		wl.Push(rpo[i].ID)
	}

	visits := 0
	for !wl.Empty() {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("backward dataflow cancelled before convergence")
			return res
		}
		if e.MaxIterations > 0 && visits >= e.MaxIterations {
			log.WithField("function", f.Name()).Warn("backward dataflow hit MaxIterations, returning partial result")
			return res
		}
		visits++

		id := wl.Pop()
		b := idx[id]

		out := res.Out[id]
		for _, s := range b.Succs {
			out = out.Merge(res.In[s.ID])
		}
		res.Out[id] = out

		in := TransferBlock[T](e.Visitor, b, out.Clone(), false)
		if !in.Equal(res.In[id]) {
			res.In[id] = in
			for _, p := range b.Preds {
				wl.Push(p.ID)
			}
		}
	}

	return res
}
