// Package liveness is a backward dataflow analysis computing, at each
// program point, the set of SSA values whose current definition may still be
// read later. It exists only as a second client of the dataflow engine,
// evidence that the engine is genuinely generic and not secretly specialized
// to points-to analysis — it plays no part in resolving indirect calls.
package liveness

import (
	"context"

	"github.com/dataflow-ir/ptsflow/dataflow"
	"github.com/dataflow-ir/ptsflow/ir"
)

// Info is the liveness lattice: the set of live value ids at a program
// point. The zero value is the empty set (bottom).
type Info struct {
	Live map[ir.ValueID]struct{}
}

// Merge returns the union of the receiver and other (backward analyses only
// ever need a union join, same as points-to's map merges).
func (i Info) Merge(other Info) Info {
	out := i.Clone()
	for id := range other.Live {
		out.Live[id] = struct{}{}
	}
	return out
}

// Equal reports whether the two live-sets contain exactly the same ids.
func (i Info) Equal(other Info) bool {
	if len(i.Live) != len(other.Live) {
		return false
	}
	for id := range i.Live {
		if _, ok := other.Live[id]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (i Info) Clone() Info {
	out := Info{Live: make(map[ir.ValueID]struct{}, len(i.Live))}
	for id := range i.Live {
		out.Live[id] = struct{}{}
	}
	return out
}

// visitor implements dataflow.Visitor[Info].
type visitor struct{}

func (visitor) TransferInst(inst ir.Instruction, val Info) Info {
	if _, ok := inst.(*ir.DbgInfoInst); ok {
		return val
	}

	val = val.Clone()
	if r := inst.Result(); r != nil {
		delete(val.Live, r.ID())
	}
	for _, op := range inst.Operands() {
		val.Live[op.ID()] = struct{}{}
	}
	return val
}

// Analyze runs the backward liveness fixed point over f and returns the
// per-block (in, out) table.
func Analyze(ctx context.Context, f *ir.Function) dataflow.Result[Info] {
	engine := dataflow.Engine[Info]{Visitor: visitor{}}
	init := Info{Live: map[ir.ValueID]struct{}{}}
	return engine.Run(ctx, f, init, nil, false)
}

// LiveAt reports whether v is live in the given block's In set.
func LiveAt(res dataflow.Result[Info], block ir.BlockID, v ir.Value) bool {
	info, ok := res.In[block]
	if !ok {
		return false
	}
	_, live := info.Live[v.ID()]
	return live
}
