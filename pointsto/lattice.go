// Package pointsto implements the points-to lattice and its interprocedural
// transfer function: the L1 and L3 layers of the analysis (spec §2).
package pointsto

import (
	"github.com/dataflow-ir/ptsflow/internal/maps"
	"github.com/dataflow-ir/ptsflow/ir"
	"golang.org/x/tools/container/intsets"
)

// PointsTo is the per-program-point lattice element: two disjoint maps from
// ir.ValueID to a dense set of ir.ValueIDs (spec §3). Bindings record SSA
// alias relationships ("t is a copy of x or y"); PTS records memory
// contents ("cell p may currently hold a, b, ...").
//
// PointsTo is passed by value, but its maps are shared between copies:
// Merge and Clone return fresh values, while SetBinding and SetPTS write
// into the receiver's maps in place. The transfer function clones a value
// before calling them, so a stored (in, out) table entry is never mutated.
type PointsTo struct {
	Bindings map[ir.ValueID]*intsets.Sparse
	PTS      map[ir.ValueID]*intsets.Sparse
}

// New returns the bottom element: no keys in either map.
func New() PointsTo {
	return PointsTo{
		Bindings: map[ir.ValueID]*intsets.Sparse{},
		PTS:      map[ir.ValueID]*intsets.Sparse{},
	}
}

func singleton(id ir.ValueID) *intsets.Sparse {
	s := &intsets.Sparse{}
	s.Insert(int(id))
	return s
}

func ids(s *intsets.Sparse) []ir.ValueID {
	if s == nil {
		return nil
	}
	raw := s.AppendTo(make([]int, 0, s.Len()))
	out := make([]ir.ValueID, len(raw))
	for i, v := range raw {
		out[i] = ir.ValueID(v)
	}
	return out
}

func unionOf(a, b *intsets.Sparse) *intsets.Sparse {
	out := &intsets.Sparse{}
	if a != nil {
		out.UnionWith(a)
	}
	if b != nil {
		out.UnionWith(b)
	}
	return out
}

// HasBinding reports whether v has an alias-binding entry.
func (p PointsTo) HasBinding(v ir.ValueID) bool {
	_, ok := p.Bindings[v]
	return ok
}

// SetBinding installs s as v's alias-binding (copied defensively).
func (p PointsTo) SetBinding(v ir.ValueID, s *intsets.Sparse) {
	cp := &intsets.Sparse{}
	cp.Copy(s)
	p.Bindings[v] = cp
}

// Binding returns v's alias-binding set, or nil if unbound.
func (p PointsTo) Binding(v ir.ValueID) *intsets.Sparse {
	return p.Bindings[v]
}

// HasPTS reports whether v has a direct points-to entry.
func (p PointsTo) HasPTS(v ir.ValueID) bool {
	_, ok := p.PTS[v]
	return ok
}

// SetPTS installs s as v's direct points-to set (copied defensively).
func (p PointsTo) SetPTS(v ir.ValueID, s *intsets.Sparse) {
	cp := &intsets.Sparse{}
	cp.Copy(s)
	p.PTS[v] = cp
}

// DirectPTS returns v's direct (non-dereferenced) points-to set, or nil.
func (p PointsTo) DirectPTS(v ir.ValueID) *intsets.Sparse {
	return p.PTS[v]
}

// EffectivePTS returns the effective points-to set of v: when v is bound,
// the union of PTS[t] over every t in Bindings[v] (transparent dereference);
// otherwise the direct entry, or the empty set (⊥) if v is wholly
// unconstrained.
func (p PointsTo) EffectivePTS(v ir.ValueID) *intsets.Sparse {
	if b, ok := p.Bindings[v]; ok {
		out := &intsets.Sparse{}
		for _, t := range ids(b) {
			if p.HasPTS(t) {
				out.UnionWith(p.PTS[t])
			}
		}
		return out
	}
	if p.HasPTS(v) {
		return p.PTS[v]
	}
	return &intsets.Sparse{}
}

// Merge returns the pointwise union of p and other over both maps
// (dataflow.Lattice.Merge). Associative, commutative, idempotent, monotone.
func (p PointsTo) Merge(other PointsTo) PointsTo {
	out := p.Clone()
	for id, s := range other.Bindings {
		out.Bindings[id] = unionOf(out.Bindings[id], s)
	}
	for id, s := range other.PTS {
		out.PTS[id] = unionOf(out.PTS[id], s)
	}
	return out
}

// Equal reports structural equality of both maps (dataflow.Lattice.Equal).
func (p PointsTo) Equal(other PointsTo) bool {
	if len(p.Bindings) != len(other.Bindings) || len(p.PTS) != len(other.PTS) {
		return false
	}
	for id, s := range p.Bindings {
		o, ok := other.Bindings[id]
		if !ok || !s.Equals(o) {
			return false
		}
	}
	for id, s := range p.PTS {
		o, ok := other.PTS[id]
		if !ok || !s.Equals(o) {
			return false
		}
	}
	return true
}

// Clone returns an independent deep copy (dataflow.Lattice.Clone).
func (p PointsTo) Clone() PointsTo {
	out := New()
	for id, s := range p.Bindings {
		cp := &intsets.Sparse{}
		cp.Copy(s)
		out.Bindings[id] = cp
	}
	for id, s := range p.PTS {
		cp := &intsets.Sparse{}
		cp.Copy(s)
		out.PTS[id] = cp
	}
	return out
}

// SortedBindingKeys returns p's binding keys in ascending order, for
// deterministic iteration (spec §5).
func (p PointsTo) SortedBindingKeys() []ir.ValueID {
	return maps.SortedKeys(p.Bindings)
}
