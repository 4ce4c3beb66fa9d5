package pointsto

import (
	"context"
	"sort"

	"github.com/dataflow-ir/ptsflow/config"
	"github.com/dataflow-ir/ptsflow/dataflow"
	"github.com/dataflow-ir/ptsflow/ir"
	"github.com/sirupsen/logrus"
	"golang.org/x/tools/container/intsets"
)

var log = logrus.WithField("component", "pointsto")

// CallResults is the analysis's headline output: for every call site line
// with a resolved callee (direct and indirect calls alike), the set of
// function names that may be invoked there. Entries
// are only ever added (spec §3 "Per-analysis output").
type CallResults struct {
	byLine map[int]map[string]struct{}
}

func newCallResults() CallResults {
	return CallResults{byLine: map[int]map[string]struct{}{}}
}

func (c CallResults) record(line int, name string) {
	s, ok := c.byLine[line]
	if !ok {
		s = map[string]struct{}{}
		c.byLine[line] = s
	}
	s[name] = struct{}{}
}

// Lines returns the call-site lines with at least one resolved callee, in
// ascending order.
func (c CallResults) Lines() []int {
	lines := make([]int, 0, len(c.byLine))
	for l := range c.byLine {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

// Callees returns the resolved callee names at line, sorted lexicographically.
func (c CallResults) Callees(line int) []string {
	names := make([]string, 0, len(c.byLine[line]))
	for n := range c.byLine[line] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Analyzer drives the interprocedural points-to solver in inline-recursive
// mode (spec §4.2). One Analyzer corresponds to one analysis run; its
// CallResults and recursion guard are explicitly-held state, not package
// globals (Design Notes §9 "Global result map").
type Analyzer struct {
	module *ir.Module
	cfg    config.Config
	ctx    context.Context

	callResults CallResults
	activeCalls map[ir.FunctionID]int
	funcStack   []*ir.Function

	funcByID map[ir.ValueID]*ir.Function
}

// NewAnalyzer builds an Analyzer over m using cfg for policy decisions.
func NewAnalyzer(m *ir.Module, cfg config.Config) *Analyzer {
	byID := make(map[ir.ValueID]*ir.Function, len(m.Functions))
	for _, f := range m.Functions {
		byID[f.ID()] = f
	}

	return &Analyzer{
		module:      m,
		cfg:         cfg,
		callResults: newCallResults(),
		activeCalls: map[ir.FunctionID]int{},
		funcByID:    byID,
	}
}

// Run analyzes entry and every function transitively reachable from it
// through calls, and returns the accumulated CallResults.
func (a *Analyzer) Run(ctx context.Context, entry *ir.Function) CallResults {
	a.ctx = ctx
	a.runFunction(entry, New())
	return a.callResults
}

func (a *Analyzer) currentFunction() *ir.Function {
	if len(a.funcStack) == 0 {
		return nil
	}
	return a.funcStack[len(a.funcStack)-1]
}

func (a *Analyzer) pushFunc(f *ir.Function) { a.funcStack = append(a.funcStack, f) }
func (a *Analyzer) popFunc()                { a.funcStack = a.funcStack[:len(a.funcStack)-1] }

// runFunction runs the engine to a fixed point over f with calleeIn
// installed at the entry block, and returns the lattice value at f's exit
// (spec §4.3 step 4d-e).
func (a *Analyzer) runFunction(f *ir.Function, calleeIn PointsTo) PointsTo {
	a.pushFunc(f)
	defer a.popFunc()

	if f.Opaque || f.Entry == nil {
		return calleeIn
	}

	engine := dataflow.Engine[PointsTo]{Visitor: a, MaxIterations: a.cfg.MaxIterations}
	seed := map[ir.BlockID]PointsTo{f.Entry.ID: calleeIn}
	res := engine.Run(a.ctx, f, New(), seed, true)
	out := exitValue(f, res)

	// Sorted for reproducible trace output across runs (spec §5 determinism).
	log.WithFields(logrus.Fields{"function": f.Name(), "bound": out.SortedBindingKeys()}).
		Trace("function reached fixed point")
	return out
}

// exitValue is the synthetic join of every block ending in Return, falling
// back to the join of all blocks when the function has no explicit return
// (e.g. it always loops or panics).
func exitValue(f *ir.Function, res dataflow.Result[PointsTo]) PointsTo {
	out := New()
	found := false
	for _, b := range f.Blocks {
		if isReturnBlock(b) {
			out = out.Merge(res.Out[b.ID])
			found = true
		}
	}
	if !found {
		for _, b := range f.Blocks {
			out = out.Merge(res.Out[b.ID])
		}
	}
	return out
}

func isReturnBlock(b *ir.BasicBlock) bool {
	if len(b.Instrs) == 0 {
		return false
	}
	_, ok := b.Instrs[len(b.Instrs)-1].(*ir.ReturnInst)
	return ok
}

// resolveValue implements spec §4.3's resolveValue(v): the binding of v if
// bound, else the singleton {v}.
func resolveValue(val PointsTo, v ir.Value) *intsets.Sparse {
	if val.HasBinding(v.ID()) {
		return val.Binding(v.ID())
	}
	return singleton(v.ID())
}

// resolvePointer implements spec §4.3's resolvePointer(p): expand alias
// bindings transitively until reaching concrete (unbound) cells.
func resolvePointer(val PointsTo, v ir.Value) *intsets.Sparse {
	visited := &intsets.Sparse{}
	result := &intsets.Sparse{}
	frontier := resolveValue(val, v).AppendTo(nil)

	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		if visited.Has(id) {
			continue
		}
		visited.Insert(id)

		vid := ir.ValueID(id)
		if b, ok := val.Bindings[vid]; ok {
			frontier = append(frontier, b.AppendTo(nil)...)
		} else {
			result.Insert(id)
		}
	}
	return result
}

// TransferInst implements dataflow.Visitor[PointsTo]. It is the §4.3
// transfer function: dispatch by instruction kind, everything else is a
// no-op.
func (a *Analyzer) TransferInst(inst ir.Instruction, val PointsTo) PointsTo {
	switch t := inst.(type) {
	case *ir.DbgInfoInst:
		return val

	case *ir.AllocaInst:
		val = val.Clone()
		val.SetBinding(t.Dst.ID(), singleton(t.Cell.ID()))
		return val

	case *ir.StoreInst:
		return a.transferStore(t, val)

	case *ir.LoadInst:
		return a.transferLoad(t, val)

	case *ir.GetElementPtrInst:
		val = val.Clone()
		val.SetBinding(t.Dst.ID(), resolveValue(val, t.Base))
		return val

	case *ir.BitCastInst:
		val = val.Clone()
		val.SetBinding(t.Dst.ID(), resolveValue(val, t.Src))
		return val

	case *ir.MemCpyInst:
		return a.transferMemCpy(t, val)

	case *ir.MemSetInst:
		return val

	case *ir.PhiInst:
		val = val.Clone()
		union := &intsets.Sparse{}
		for _, v := range t.Incoming {
			union.UnionWith(resolveValue(val, v))
		}
		val.SetBinding(t.Dst.ID(), union)
		return val

	case *ir.ReturnInst:
		return a.transferReturn(t, val)

	case *ir.CallInst:
		return a.transferCall(t, val)

	default:
		// Jump, Branch, Other, and anything future: irrelevant to pointer
		// flow.
		return val
	}
}

func (a *Analyzer) transferStore(t *ir.StoreInst, val PointsTo) PointsTo {
	if c, ok := t.Val.(*ir.Const); ok {
		if !(c.Null && a.cfg.TreatNullStoreAsAssignment) {
			return val // null dropped (default policy), or non-null constant: no-op
		}
	}

	val = val.Clone()
	targets := resolvePointer(val, t.Pointer)
	sources := resolveValue(val, t.Val)

	targetIDs := ids(targets)
	switch len(targetIDs) {
	case 0:
		// Pointer unresolved this iteration; nothing to update yet.
	case 1:
		val.SetPTS(targetIDs[0], sources) // strong update
	default:
		for _, id := range targetIDs {
			val.SetPTS(id, unionOf(val.PTS[id], sources)) // weak update
		}
	}
	return val
}

func (a *Analyzer) transferLoad(t *ir.LoadInst, val PointsTo) PointsTo {
	if !t.PointeeIsPointer {
		return val
	}
	val = val.Clone()
	// spec §4.3 Load: setBinding(result, getPTS(pointer)).
	val.SetBinding(t.Dst.ID(), val.EffectivePTS(t.Pointer.ID()))
	return val
}

func (a *Analyzer) transferMemCpy(t *ir.MemCpyInst, val PointsTo) PointsTo {
	val = val.Clone()
	srcPts := val.EffectivePTS(t.Src.ID())
	dstIDs := ids(resolvePointer(val, t.Dst))

	switch len(dstIDs) {
	case 0:
	case 1:
		val.SetPTS(dstIDs[0], srcPts)
	default:
		// Spec's "assert cardinality 1" branch is not safe under a may
		// analysis with an unresolved destination; fall back to the
		// Store weak-update policy instead of asserting.
		for _, id := range dstIDs {
			val.SetPTS(id, unionOf(val.PTS[id], srcPts))
		}
	}
	return val
}

func (a *Analyzer) transferReturn(t *ir.ReturnInst, val PointsTo) PointsTo {
	f := a.currentFunction()
	if f == nil || t.Val == nil {
		return val
	}
	val = val.Clone()
	val.SetBinding(f.ID(), resolveValue(val, t.Val))
	return val
}

func (a *Analyzer) resolveCallees(val PointsTo, call *ir.CallInst) []*ir.Function {
	if call.Callee.IsFunction() {
		if fn, ok := call.Callee.(*ir.Function); ok {
			return []*ir.Function{fn}
		}
	}
	if !val.HasBinding(call.Callee.ID()) {
		return nil // unresolved this iteration; deferred
	}

	var fns []*ir.Function
	for _, id := range ids(val.Binding(call.Callee.ID())) {
		if fn, ok := a.funcByID[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func (a *Analyzer) transferCall(call *ir.CallInst, val PointsTo) PointsTo {
	callees := a.resolveCallees(val, call)
	line := call.Line()

	val = val.Clone()
	for _, f := range callees {
		a.callResults.record(line, f.Name())

		switch {
		case a.cfg.IsOpaqueAllocator(f.Name()):
			// Intrinsic short-circuit (spec §4.3 step 3): record and
			// return without descending, binding the result to a fresh
			// heap cell.
			if call.Dst != nil {
				val.SetBinding(call.Dst.ID(), singleton(call.AllocCell.ID()))
			}

		case f.Opaque:
			// Any other externally-defined symbol: recorded, no
			// propagation (spec §7 "Opaque external call").

		default:
			val = a.applyCall(call, f, val)
		}
	}
	return val
}

type boundPair struct{ callerID, calleeID ir.ValueID }

// applyCall implements spec §4.3 step 4: bind arguments into a fresh callee
// lattice, recurse the engine to the callee's fixed point, and reconcile
// mutations back into the caller.
func (a *Analyzer) applyCall(call *ir.CallInst, f *ir.Function, val PointsTo) PointsTo {
	if a.cfg.MaxCallDepth > 0 && a.activeCalls[f.FID] >= a.cfg.MaxCallDepth {
		log.WithFields(logrus.Fields{"function": f.Name(), "depth": a.activeCalls[f.FID]}).
			Debug("call depth cap reached, deferring to next fixed-point pass")
		return val
	}

	calleeIn := New()
	var pairs []boundPair

	// copyReachable copies the caller's PTS entry for id into calleeIn, and
	// transitively every entry reachable from it through PTS sets.
	var copyReachable func(id ir.ValueID)
	copyReachable = func(id ir.ValueID) {
		s, ok := val.PTS[id]
		if !ok || calleeIn.HasPTS(id) {
			return
		}
		calleeIn.SetPTS(id, s)
		for _, c := range ids(s) {
			copyReachable(c)
		}
	}

	n := len(call.Args)
	if len(f.Params) < n {
		n = len(f.Params)
	}
	for i := 0; i < n; i++ {
		actual, formal := call.Args[i], f.Params[i]
		if !formal.IsPointer() {
			continue
		}

		if val.HasBinding(actual.ID()) {
			b := val.Binding(actual.ID())
			calleeIn.SetBinding(formal.ID(), b)
			pairs = append(pairs, boundPair{actual.ID(), formal.ID()})

			for _, c := range ids(b) {
				copyReachable(c)
				pairs = append(pairs, boundPair{c, c})
			}
		} else {
			calleeIn.SetBinding(formal.ID(), singleton(actual.ID()))
			pairs = append(pairs, boundPair{actual.ID(), formal.ID()})

			copyReachable(actual.ID())
		}
	}

	var resultPair *boundPair
	if f.Returns && call.Dst != nil {
		calleeIn.SetBinding(f.ID(), singleton(f.ID()))
		resultPair = &boundPair{call.Dst.ID(), f.ID()}
	}

	before := calleeIn.Clone()

	a.activeCalls[f.FID]++
	out := a.runFunction(f, calleeIn)
	a.activeCalls[f.FID]--

	for _, p := range pairs {
		a.reconcile(&val, before, out, p)
	}
	if resultPair != nil {
		a.reconcile(&val, before, out, *resultPair)
	}

	return val
}

// reconcile implements spec §4.3 step 4f: merge a callee-side binding change
// back into the caller, or else propagate any changed reachable PTS entries.
func (a *Analyzer) reconcile(val *PointsTo, before, out PointsTo, p boundPair) {
	newB, hasNew := out.Bindings[p.calleeID]
	oldB, hadOld := before.Bindings[p.calleeID]

	if hasNew && (!hadOld || !newB.Equals(oldB)) {
		val.SetBinding(p.callerID, unionOf(val.Binding(p.callerID), newB))
		return
	}

	visited := map[ir.ValueID]bool{}
	var walk func(id ir.ValueID)
	walk = func(id ir.ValueID) {
		if visited[id] {
			return
		}
		visited[id] = true

		s, ok := out.PTS[id]
		if !ok {
			return
		}
		b, hadBefore := before.PTS[id]
		if !hadBefore || !b.Equals(s) {
			val.SetPTS(id, unionOf(val.DirectPTS(id), s))
		}
		for _, c := range ids(s) {
			walk(c)
		}
	}
	walk(p.calleeID)
}
