package liveness_test

import (
	"context"
	"testing"

	"github.com/dataflow-ir/ptsflow/ir"
	"github.com/dataflow-ir/ptsflow/liveness"
	"github.com/stretchr/testify/assert"
)

// TestLivenessAcrossBlocks builds:
//
//	b0: t0 = alloca
//	    jump b1
//	b1: use t0
//	    return
//
// and checks that t0 is live on entry to b1 (which uses it), dead on entry
// to b0 (killed by its own definition), and that nothing is live out of b1
// (no successors).
func TestLivenessAcrossBlocks(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", false, false)

	b0 := f.NewBlock("entry")
	b1 := f.NewBlock("use")
	b0.AddSucc(b1)

	t0 := m.NewLocal("t0", true)
	b0.Instrs = append(b0.Instrs, &ir.AllocaInst{Dst: t0})
	b0.Instrs = append(b0.Instrs, &ir.JumpInst{Target: b1})

	b1.Instrs = append(b1.Instrs, &ir.OtherInst{Op: "use", Uses: []ir.Value{t0}})
	b1.Instrs = append(b1.Instrs, &ir.ReturnInst{})

	res := liveness.Analyze(context.Background(), f)

	assert.False(t, liveness.LiveAt(res, b0.ID, t0), "t0 should be dead on entry to b0")
	assert.True(t, liveness.LiveAt(res, b1.ID, t0), "t0 should be live on entry to b1")
	assert.Empty(t, res.Out[b1.ID].Live, "nothing should be live out of the exit block")
}

func TestInfoLatticeLaws(t *testing.T) {
	a := liveness.Info{Live: map[ir.ValueID]struct{}{1: {}}}
	b := liveness.Info{Live: map[ir.ValueID]struct{}{2: {}}}
	c := liveness.Info{Live: map[ir.ValueID]struct{}{1: {}, 3: {}}}

	assert.True(t, a.Merge(a).Equal(a), "merge should be idempotent")
	assert.True(t, a.Merge(b).Equal(b.Merge(a)), "merge should be commutative")
	assert.True(t, a.Merge(b.Merge(c)).Equal(a.Merge(b).Merge(c)), "merge should be associative")
}
