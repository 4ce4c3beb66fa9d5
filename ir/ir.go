// Package ir defines the low-level SSA instruction set that the points-to
// and liveness analyses operate over. It plays the role of golang.org/x/tools'
// go/ssa package in the teacher analysis: a small, stable, module-scoped
// value/instruction model that a dataflow client can pattern-match on without
// caring how the module was produced.
//
// Loading a module from source is explicitly out of scope here; see the
// irasm package for one concrete loader.
package ir

import "fmt"

// ValueID is a dense, module-scoped identity for a Value. Keying lattice maps
// on ValueID instead of pointer identity removes lifetime hazards and makes
// the analysis trivially serializable (Design Notes §9).
type ValueID uint32

// FunctionID is a dense, module-scoped identity for a Function.
type FunctionID uint32

// BlockID identifies a basic block within its owning function.
type BlockID int

// Value is any SSA operand: a named local, an anonymous temporary, a
// function, a global, or a constant.
type Value interface {
	ID() ValueID
	Name() string
	String() string

	// IsPointer reports whether this value's type is pointer-like (a real
	// pointer, or a function value, which the transfer function treats as
	// pointer-like since it can be bound through function-pointer slots).
	IsPointer() bool

	// IsFunction reports whether this value denotes a Function.
	IsFunction() bool
}

// ident is embedded by every concrete Value to provide identity and naming.
type ident struct {
	id   ValueID
	name string
}

func (v ident) ID() ValueID   { return v.id }
func (v ident) Name() string  { return v.name }
func (v ident) String() string { return v.name }

// Local is a named local or an anonymous SSA temporary (by convention named
// "t0", "t1", ... when anonymous, following the source's instruction->value
// naming).
type Local struct {
	ident
	Pointer bool
}

func (l *Local) IsPointer() bool  { return l.Pointer }
func (l *Local) IsFunction() bool { return false }

// NewLocal allocates a fresh Local value via m.
func (m *Module) NewLocal(name string, pointer bool) *Local {
	v := &Local{ident: ident{id: m.nextValueID(), name: name}, Pointer: pointer}
	return v
}

// Global is a module-level storage cell. Globals are always pointer-like:
// the Value itself denotes the address, and whatever it holds is recorded
// under pointsTo[global] (mirrors the teacher's ctx.eval handling of
// *ssa.Global, which wraps it as PointsTo{x: sterm(v, true)}).
type Global struct{ ident }

func (g *Global) IsPointer() bool  { return true }
func (g *Global) IsFunction() bool { return false }

// NewGlobal allocates a fresh Global value via m.
func (m *Module) NewGlobal(name string) *Global {
	return &Global{ident: ident{id: m.nextValueID(), name: name}}
}

// Const is a constant operand. Null constants are distinguished because
// Store treats them specially (§4.3, Open Question #1).
type Const struct {
	ident
	Null bool
}

func (c *Const) IsPointer() bool  { return false }
func (c *Const) IsFunction() bool { return false }

// NewConst allocates a fresh Const value via m.
func (m *Module) NewConst(name string, null bool) *Const {
	return &Const{ident: ident{id: m.nextValueID(), name: name}, Null: null}
}

// Function is both a top-level callable and a Value (so it can be the
// target of a function-pointer binding).
type Function struct {
	ident
	FID FunctionID

	Params  []*Local
	Blocks  []*BasicBlock
	Entry   *BasicBlock
	Returns bool // whether the signature has a (possibly pointer) return value

	// Opaque marks functions with no body (externally defined). The
	// transfer function records opaque calls by name without descending.
	Opaque bool
}

func (f *Function) IsPointer() bool  { return true }
func (f *Function) IsFunction() bool { return true }

// BasicBlock is a maximal straight-line instruction sequence.
type BasicBlock struct {
	ID     BlockID
	Name   string
	Parent *Function
	Instrs []Instruction
	Preds  []*BasicBlock
	Succs  []*BasicBlock
}

func (b *BasicBlock) String() string {
	return fmt.Sprintf("%s.%s", b.Parent.Name(), b.Name)
}

// AddSucc links b -> s and records the reverse predecessor edge.
func (b *BasicBlock) AddSucc(s *BasicBlock) {
	b.Succs = append(b.Succs, s)
	s.Preds = append(s.Preds, b)
}

// Instruction is any member of the taxonomy in spec §3. Line returns the
// source line number from debug metadata, or 0 when absent.
type Instruction interface {
	Line() int
	// Operands returns the value operands read by this instruction, in a
	// stable order.
	Operands() []Value
	// Result returns the value defined by this instruction, or nil for
	// instructions that do not produce one (Store, Return, a void Call, ...).
	Result() Value
}

type base struct {
	Ln int
}

func (b base) Line() int { return b.Ln }

// AllocaInst allocates a fresh stack/heap cell. Dst is the pointer register
// it defines; Cell is the synthetic value identity of the storage itself,
// distinct from Dst so the binding/points-to key-disjointness invariant
// (spec §3 invariant 2) holds without special-casing allocation sites.
type AllocaInst struct {
	base
	Dst  Value
	Cell Value
}

func (i *AllocaInst) Operands() []Value { return nil }
func (i *AllocaInst) Result() Value     { return i.Dst }

// NewAlloca builds an AllocaInst with a freshly minted backing cell.
func NewAlloca(m *Module, dstName string, line int) *AllocaInst {
	return &AllocaInst{
		base: base{Ln: line},
		Dst:  m.NewLocal(dstName, true),
		Cell: m.NewLocal(dstName+"$cell", false),
	}
}

// StoreInst is "*Pointer = Value".
type StoreInst struct {
	base
	Pointer Value
	Val     Value
}

func (i *StoreInst) Operands() []Value { return []Value{i.Pointer, i.Val} }
func (i *StoreInst) Result() Value     { return nil }

// LoadInst is "Dst = *Pointer". PointeeIsPointer records whether the pointee
// type is itself a pointer; loads of scalars are irrelevant to this analysis.
type LoadInst struct {
	base
	Pointer         Value
	Dst             Value
	PointeeIsPointer bool
}

func (i *LoadInst) Operands() []Value { return []Value{i.Pointer} }
func (i *LoadInst) Result() Value     { return i.Dst }

// GetElementPtrInst computes a field/element address. Field indexing is
// ignored (field-insensitive): the result simply aliases Base.
type GetElementPtrInst struct {
	base
	Base Value
	Dst  Value
}

func (i *GetElementPtrInst) Operands() []Value { return []Value{i.Base} }
func (i *GetElementPtrInst) Result() Value     { return i.Dst }

// BitCastInst reinterprets Src as Dst's type. No-op in effect.
type BitCastInst struct {
	base
	Src Value
	Dst Value
}

func (i *BitCastInst) Operands() []Value { return []Value{i.Src} }
func (i *BitCastInst) Result() Value     { return i.Dst }

// MemCpyInst bulk-copies the pointee of Src into the pointee of Dst.
type MemCpyInst struct {
	base
	Src Value
	Dst Value
}

func (i *MemCpyInst) Operands() []Value { return []Value{i.Src, i.Dst} }
func (i *MemCpyInst) Result() Value     { return nil }

// MemSetInst fills the pointee of Dst with a byte value. Recognized and
// ignored; kept distinct from Other so it never falls through to call
// handling.
type MemSetInst struct {
	base
	Dst Value
}

func (i *MemSetInst) Operands() []Value { return []Value{i.Dst} }
func (i *MemSetInst) Result() Value     { return nil }

// ReturnInst returns Val (nil for a void return) from its parent function.
type ReturnInst struct {
	base
	Val Value
}

func (i *ReturnInst) Operands() []Value {
	if i.Val == nil {
		return nil
	}
	return []Value{i.Val}
}
func (i *ReturnInst) Result() Value { return nil }

// CallInst invokes Callee with Args. Dst is nil for a void call. AllocCell is
// a synthetic cell minted at construction time, used only when this call
// site resolves (by configuration) to an opaque allocator; minting it
// unconditionally at build time keeps the heap object stable across
// fixed-point revisits instead of minting a fresh one every time the
// instruction is transferred.
type CallInst struct {
	base
	Callee    Value
	Args      []Value
	Dst       Value
	AllocCell Value
}

func (i *CallInst) Operands() []Value {
	ops := make([]Value, 0, len(i.Args)+1)
	ops = append(ops, i.Callee)
	ops = append(ops, i.Args...)
	return ops
}
func (i *CallInst) Result() Value { return i.Dst }

// NewCall builds a CallInst. dstName is empty for a void call.
func NewCall(m *Module, dstName string, callee Value, args []Value, line int) *CallInst {
	var dst Value
	if dstName != "" {
		dst = m.NewLocal(dstName, true)
	}
	return &CallInst{
		base:      base{Ln: line},
		Callee:    callee,
		Args:      args,
		Dst:       dst,
		AllocCell: m.NewLocal(dstName+"$heap", false),
	}
}

// PhiInst merges Incoming values from each predecessor into Dst,
// unconditionally: a may-points-to analysis is already an
// over-approximation, so a phi is modeled as "Dst may alias any incoming
// operand", independent of which predecessor was actually taken.
type PhiInst struct {
	base
	Dst      Value
	Incoming []Value
}

func (i *PhiInst) Operands() []Value { return i.Incoming }
func (i *PhiInst) Result() Value     { return i.Dst }

// DbgInfoInst carries debug metadata only; always skipped by transfer
// functions.
type DbgInfoInst struct{ base }

func (i *DbgInfoInst) Operands() []Value { return nil }
func (i *DbgInfoInst) Result() Value     { return nil }

// JumpInst is an unconditional branch, purely a CFG terminator.
type JumpInst struct {
	base
	Target *BasicBlock
}

func (i *JumpInst) Operands() []Value { return nil }
func (i *JumpInst) Result() Value     { return nil }

// BranchInst is a conditional branch, purely a CFG terminator.
type BranchInst struct {
	base
	Cond        Value
	True, False *BasicBlock
}

func (i *BranchInst) Operands() []Value { return []Value{i.Cond} }
func (i *BranchInst) Result() Value     { return nil }

// OtherInst is any instruction irrelevant to pointer flow (arithmetic,
// comparisons, ...). Op is free-form, for debug printing only. It does not
// record a defined value: Result always returns nil, even when the textual
// form names a destination.
type OtherInst struct {
	base
	Op   string
	Uses []Value
}

func (i *OtherInst) Operands() []Value { return i.Uses }
func (i *OtherInst) Result() Value     { return nil }

// Module is a collection of functions with a shared ValueID space.
type Module struct {
	Functions []*Function

	valueSeq uint32
	funSeq   uint32
}

func NewModule() *Module { return &Module{} }

func (m *Module) nextValueID() ValueID {
	id := ValueID(m.valueSeq)
	m.valueSeq++
	return id
}

// NewFunction allocates a function value and registers it in the module.
// returns records whether calls to f yield a (possibly pointer) result,
// controlling whether Call sets up a return-binding slot (spec §4.3 step 4c).
func (m *Module) NewFunction(name string, opaque, returns bool) *Function {
	f := &Function{
		ident:   ident{id: m.nextValueID(), name: name},
		FID:     FunctionID(m.funSeq),
		Opaque:  opaque,
		Returns: returns,
	}
	m.funSeq++
	m.Functions = append(m.Functions, f)
	return f
}

// NewBlock appends a fresh basic block to f.
func (f *Function) NewBlock(name string) *BasicBlock {
	b := &BasicBlock{ID: BlockID(len(f.Blocks)), Name: name, Parent: f}
	f.Blocks = append(f.Blocks, b)
	if f.Entry == nil {
		f.Entry = b
	}
	return b
}

// NewParam allocates and appends a formal parameter.
func (f *Function) NewParam(m *Module, name string, pointer bool) *Local {
	p := &Local{ident: ident{id: m.nextValueID(), name: name}, Pointer: pointer}
	f.Params = append(f.Params, p)
	return p
}

// FuncByName looks up a function by name; nil if absent.
func (m *Module) FuncByName(name string) *Function {
	for _, f := range m.Functions {
		if f.Name() == name {
			return f
		}
	}
	return nil
}
