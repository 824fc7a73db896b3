// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package expand applies a matched operator instance to a situation.
package expand

import (
	"fmt"

	"github.com/AleutianAI/AleutianStrips/services/planner/facts"
	"github.com/AleutianAI/AleutianStrips/services/planner/match"
	"github.com/AleutianAI/AleutianStrips/services/planner/schema"
	"github.com/AleutianAI/AleutianStrips/services/planner/state"
	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

// FactStore is the part of *facts.Store the expander needs. Additions may
// create atoms that were never seen before, so it must be writable.
type FactStore interface {
	Intern(atom facts.Atom) (facts.Handle, error)
	Find(pred symbols.Symbol, args []symbols.Symbol) (facts.Handle, bool)
}

// Expander builds successor situations.
type Expander struct {
	facts   FactStore
	scratch []symbols.Symbol
}

// New returns an expander interning new atoms into fs.
func New(fs FactStore) *Expander {
	return &Expander{facts: fs}
}

// Apply returns the situation reached by applying op with binding b to
// parent.
//
// Description:
//
//	The parent is cloned, never modified. Deleted preconditions are erased
//	using the atoms the matcher chose for their slots. Pure deletions are
//	instantiated and erased only if such an atom already exists. Additions
//	are instantiated, interned and inserted. The result is canonical.
//
// Outputs:
//
//	state.Sorted - The successor situation.
//	error - Wraps facts.ErrCapacityExceeded or state.ErrCapacityExceeded when
//	        an addition cannot be represented. The search must stop.
func (e *Expander) Apply(parent *state.Bitset, op *schema.Operator, b match.Binding) (state.Sorted, error) {
	child := parent.Clone()

	off := op.DeletedOffset()
	for i := range op.Deleted() {
		child.Erase(b.Facts[off+i])
	}

	for _, l := range op.Deletions() {
		e.scratch = l.Ground(e.scratch, b.Params)
		if h, ok := e.facts.Find(l.Predicate, e.scratch); ok {
			child.Erase(h)
		}
	}

	for _, l := range op.Additions() {
		e.scratch = l.Ground(e.scratch, b.Params)
		h, err := e.facts.Intern(facts.Atom{Predicate: l.Predicate, Args: e.scratch})
		if err != nil {
			return nil, fmt.Errorf("applying %s: %w", op.Name, err)
		}
		if err := child.Insert(h); err != nil {
			return nil, fmt.Errorf("applying %s: %w", op.Name, err)
		}
	}

	return child.ToSorted(), nil
}
