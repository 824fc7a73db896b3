// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package match finds the ground instances of an operator that are
// applicable in a situation.
//
// Operators are never grounded ahead of time. For each expansion the
// situation is grouped by predicate into an Index, and Match enumerates the
// cartesian product of candidate atoms for the operator's positive
// preconditions, keeping the combinations that bind every parameter
// consistently and violate no negative precondition.
package match

import (
	"iter"

	"github.com/AleutianAI/AleutianStrips/services/planner/facts"
	"github.com/AleutianAI/AleutianStrips/services/planner/schema"
	"github.com/AleutianAI/AleutianStrips/services/planner/state"
	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

// FactReader resolves fact handles. *facts.Store implements it.
type FactReader interface {
	Atom(h facts.Handle) facts.Atom
}

// =============================================================================
// Index
// =============================================================================

// Index groups the atoms of one situation by predicate.
type Index struct {
	facts  FactReader
	byPred map[symbols.Symbol][]facts.Handle
}

// NewIndex returns an empty index reading atoms through fr.
func NewIndex(fr FactReader) *Index {
	return &Index{
		facts:  fr,
		byPred: make(map[symbols.Symbol][]facts.Handle),
	}
}

// Rebuild replaces the indexed situation with s, reusing buffers.
func (x *Index) Rebuild(s state.Sorted) {
	for p, hs := range x.byPred {
		x.byPred[p] = hs[:0]
	}
	for _, h := range s {
		p := x.facts.Atom(h).Predicate
		x.byPred[p] = append(x.byPred[p], h)
	}
}

// Candidates returns the indexed atoms with predicate p, in ascending
// handle order. The slice is owned by the index.
func (x *Index) Candidates(p symbols.Symbol) []facts.Handle {
	return x.byPred[p]
}

// =============================================================================
// Matcher
// =============================================================================

// Binding is one applicable instance of an operator: the value of every
// parameter and the atom chosen for every positive precondition slot.
type Binding struct {
	Params []symbols.Symbol
	Facts  []facts.Handle
}

// Clone returns a copy that survives the next iteration step.
func (b Binding) Clone() Binding {
	return Binding{
		Params: append([]symbols.Symbol(nil), b.Params...),
		Facts:  append([]facts.Handle(nil), b.Facts...),
	}
}

// Matcher enumerates applicable operator instances.
//
// Thread Safety: a Matcher holds no mutable state; the sequences it returns
// must each be consumed by a single goroutine.
type Matcher struct {
	facts FactReader
}

// New returns a matcher reading atoms through fr.
func New(fr FactReader) *Matcher {
	return &Matcher{facts: fr}
}

// Match returns the applicable instances of op in the situation held by idx.
//
// Description:
//
//	Enumeration is a mixed-radix counter over the candidate list of each
//	positive precondition slot, with slot 0 varying fastest, so the order is
//	deterministic for a given situation. A combination is rejected when two
//	slots choose the same atom, when a parameter would take two different
//	values, when a constant argument does not match, or when any negative
//	precondition is present in the situation.
//
// Outputs:
//
//	iter.Seq[Binding] - Lazy sequence. The yielded Binding is reused between
//	                    steps; call Clone to keep it.
func (m *Matcher) Match(op *schema.Operator, idx *Index) iter.Seq[Binding] {
	return func(yield func(Binding) bool) {
		pos := op.Positives()
		cands := make([][]facts.Handle, len(pos))
		for i, l := range pos {
			c := m.candidates(idx, l)
			if len(c) == 0 {
				return
			}
			cands[i] = c
		}

		b := Binding{
			Params: make([]symbols.Symbol, op.Arity()),
			Facts:  make([]facts.Handle, len(pos)),
		}
		digits := make([]int, len(pos))
		var scratch []symbols.Symbol

		for {
			if m.accept(op, idx, cands, digits, &b, &scratch) {
				if !yield(b) {
					return
				}
			}
			i := 0
			for ; i < len(digits); i++ {
				digits[i]++
				if digits[i] < len(cands[i]) {
					break
				}
				digits[i] = 0
			}
			if i == len(digits) {
				return
			}
		}
	}
}

// candidates returns the atoms that may fill a slot for l. Atoms whose
// arity differs or whose constant arguments disagree are dropped up front.
func (m *Matcher) candidates(idx *Index, l schema.Literal) []facts.Handle {
	all := idx.Candidates(l.Predicate)
	filter := false
	for _, t := range l.Args {
		if t.IsConst() {
			filter = true
			break
		}
	}
	if !filter {
		return all
	}
	var out []facts.Handle
	for _, h := range all {
		a := m.facts.Atom(h)
		if len(a.Args) != len(l.Args) {
			continue
		}
		ok := true
		for i, t := range l.Args {
			if t.IsConst() && a.Args[i] != t.Symbol() {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, h)
		}
	}
	return out
}

func (m *Matcher) accept(op *schema.Operator, idx *Index, cands [][]facts.Handle, digits []int, b *Binding, scratch *[]symbols.Symbol) bool {
	for j := range digits {
		h := cands[j][digits[j]]
		for k := 0; k < j; k++ {
			if b.Facts[k] == h {
				return false
			}
		}
		b.Facts[j] = h
	}

	for i := range b.Params {
		ps := op.Positions(i)
		first := ps[0]
		v := m.facts.Atom(b.Facts[first.Slot]).Args[first.Arg]
		for _, p := range ps[1:] {
			if m.facts.Atom(b.Facts[p.Slot]).Args[p.Arg] != v {
				return false
			}
		}
		b.Params[i] = v
	}

	for _, l := range op.Negatives() {
		*scratch = l.Ground(*scratch, b.Params)
		for _, h := range idx.Candidates(l.Predicate) {
			if argsEqual(m.facts.Atom(h).Args, *scratch) {
				return false
			}
		}
	}
	return true
}

func argsEqual(a, b []symbols.Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
