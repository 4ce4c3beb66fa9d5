package irasm

import (
	"fmt"

	"github.com/dataflow-ir/ptsflow/ir"
)

// assemble lowers a parsed Program into an *ir.Module. Identifiers are
// resolved against a module-wide symbol table for globals and functions,
// overlaid per function with that function's params and locals (defined on
// first assignment, SSA-style).
func assemble(prog *Program) (*ir.Module, error) {
	m := ir.NewModule()
	globals := map[string]ir.Value{}
	var nullConst *ir.Const

	for _, g := range prog.Globals {
		globals[g.Name] = m.NewGlobal(g.Name)
	}

	funcs := map[string]*ir.Function{}
	for _, fd := range prog.Functions {
		funcs[fd.Name] = m.NewFunction(fd.Name, fd.Opaque, fd.Returns)
	}

	for _, fd := range prog.Functions {
		f := funcs[fd.Name]
		sym := map[string]ir.Value{}
		for name, v := range globals {
			sym[name] = v
		}
		for name, fn := range funcs {
			sym[name] = fn
		}

		for _, pd := range fd.Params {
			sym[pd.Name] = f.NewParam(m, pd.Name, pd.Pointer)
		}

		blocks := map[string]*ir.BasicBlock{}
		for _, bd := range fd.Blocks {
			blocks[bd.Name] = f.NewBlock(bd.Name)
		}

		a := &asmFunc{m: m, f: f, sym: sym, blocks: blocks, nullConst: &nullConst}
		for _, bd := range fd.Blocks {
			b := blocks[bd.Name]
			for _, instr := range bd.Instrs {
				if err := a.lower(b, instr); err != nil {
					return nil, fmt.Errorf("irasm: function %s: %w", fd.Name, err)
				}
			}
		}
	}

	return m, nil
}

type asmFunc struct {
	m         *ir.Module
	f         *ir.Function
	sym       map[string]ir.Value
	blocks    map[string]*ir.BasicBlock
	nullConst **ir.Const
}

func (a *asmFunc) resolve(op *Operand) (ir.Value, error) {
	if op.Null {
		if *a.nullConst == nil {
			*a.nullConst = a.m.NewConst("null", true)
		}
		return *a.nullConst, nil
	}
	v, ok := a.sym[op.Name]
	if !ok {
		return nil, fmt.Errorf("undefined value %q", op.Name)
	}
	return v, nil
}

func (a *asmFunc) block(name string) (*ir.BasicBlock, error) {
	b, ok := a.blocks[name]
	if !ok {
		return nil, fmt.Errorf("undefined block %q", name)
	}
	return b, nil
}

func (a *asmFunc) lower(b *ir.BasicBlock, instr *Instr) error {
	switch {
	case instr.Alloca != nil:
		s := instr.Alloca
		ai := ir.NewAlloca(a.m, s.Dst.Name, s.Pos.Line)
		a.sym[s.Dst.Name] = ai.Dst
		b.Instrs = append(b.Instrs, ai)

	case instr.Load != nil:
		s := instr.Load
		ptr, err := a.resolve(s.Src)
		if err != nil {
			return err
		}
		dst := a.m.NewLocal(s.Dst.Name, s.Dst.Pointer)
		a.sym[s.Dst.Name] = dst
		b.Instrs = append(b.Instrs, &ir.LoadInst{
			Pointer: ptr, Dst: dst, PointeeIsPointer: s.Dst.Pointer,
		})

	case instr.Store != nil:
		s := instr.Store
		ptr, err := a.resolve(s.Ptr)
		if err != nil {
			return err
		}
		val, err := a.resolve(s.Val)
		if err != nil {
			return err
		}
		b.Instrs = append(b.Instrs, &ir.StoreInst{Pointer: ptr, Val: val})

	case instr.Gep != nil:
		s := instr.Gep
		base, err := a.resolve(s.Base)
		if err != nil {
			return err
		}
		dst := a.m.NewLocal(s.Dst, true)
		a.sym[s.Dst] = dst
		b.Instrs = append(b.Instrs, &ir.GetElementPtrInst{Base: base, Dst: dst})

	case instr.Cast != nil:
		s := instr.Cast
		src, err := a.resolve(s.Src)
		if err != nil {
			return err
		}
		dst := a.m.NewLocal(s.Dst, true)
		a.sym[s.Dst] = dst
		b.Instrs = append(b.Instrs, &ir.BitCastInst{Src: src, Dst: dst})

	case instr.MemCpy != nil:
		s := instr.MemCpy
		dst, err := a.resolve(s.Dst)
		if err != nil {
			return err
		}
		src, err := a.resolve(s.Src)
		if err != nil {
			return err
		}
		b.Instrs = append(b.Instrs, &ir.MemCpyInst{Src: src, Dst: dst})

	case instr.Phi != nil:
		s := instr.Phi
		incoming := make([]ir.Value, len(s.Incoming))
		for i, op := range s.Incoming {
			v, err := a.resolve(op)
			if err != nil {
				return err
			}
			incoming[i] = v
		}
		dst := a.m.NewLocal(s.Dst.Name, s.Dst.Pointer)
		a.sym[s.Dst.Name] = dst
		b.Instrs = append(b.Instrs, &ir.PhiInst{Dst: dst, Incoming: incoming})

	case instr.MemSet != nil:
		s := instr.MemSet
		dst, err := a.resolve(s.Dst)
		if err != nil {
			return err
		}
		b.Instrs = append(b.Instrs, &ir.MemSetInst{Dst: dst})

	case instr.Call != nil:
		s := instr.Call
		callee, ok := a.sym[s.Callee]
		if !ok {
			return fmt.Errorf("undefined callee %q", s.Callee)
		}
		args := make([]ir.Value, len(s.Args))
		for i, op := range s.Args {
			v, err := a.resolve(op)
			if err != nil {
				return err
			}
			args[i] = v
		}
		dstName := ""
		if s.Dst != nil {
			dstName = *s.Dst
		}
		ci := ir.NewCall(a.m, dstName, callee, args, s.Pos.Line)
		if ci.Dst != nil {
			a.sym[dstName] = ci.Dst
		}
		b.Instrs = append(b.Instrs, ci)

	case instr.Ret != nil:
		s := instr.Ret
		var val ir.Value
		if s.Val != nil {
			v, err := a.resolve(s.Val)
			if err != nil {
				return err
			}
			val = v
		}
		b.Instrs = append(b.Instrs, &ir.ReturnInst{Val: val})

	case instr.Jump != nil:
		s := instr.Jump
		target, err := a.block(s.Target)
		if err != nil {
			return err
		}
		b.AddSucc(target)
		b.Instrs = append(b.Instrs, &ir.JumpInst{Target: target})

	case instr.Branch != nil:
		s := instr.Branch
		cond, err := a.resolve(s.Cond)
		if err != nil {
			return err
		}
		tb, err := a.block(s.True)
		if err != nil {
			return err
		}
		fb, err := a.block(s.False)
		if err != nil {
			return err
		}
		b.AddSucc(tb)
		b.AddSucc(fb)
		b.Instrs = append(b.Instrs, &ir.BranchInst{Cond: cond, True: tb, False: fb})

	case instr.Other != nil:
		s := instr.Other
		uses := make([]ir.Value, len(s.Uses))
		for i, op := range s.Uses {
			v, err := a.resolve(op)
			if err != nil {
				return err
			}
			uses[i] = v
		}
		if s.Dst != nil {
			a.sym[*s.Dst] = a.m.NewLocal(*s.Dst, false)
		}
		b.Instrs = append(b.Instrs, &ir.OtherInst{Op: s.Op, Uses: uses})

	default:
		return fmt.Errorf("unrecognized instruction")
	}
	return nil
}
