// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema holds lifted operator schemas.
//
// An Operator stores all of its literals in one slice partitioned by Role.
// The partition is contiguous and ordered so that the ranges the matcher and
// the expander need are each a single sub-slice:
//
//	Precondition | DeletedPrecondition | Deletion | Addition | AddedNegativePrecondition | NegativePrecondition
//	\______ positives _______/
//	             \________ deleted _______/
//	                                               \______ additions ______/
//	                                                          \__________ negatives ___________/
//
// Operators are only created through Builder, which classifies literals,
// computes parameter positions and rejects inconsistent schemas.
package schema

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

var (
	// ErrUnknownParameter is returned when a literal references a parameter
	// index the operator does not declare.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrUnboundParameter is returned when a parameter has no occurrence in
	// a positive precondition and so can never be bound by matching.
	ErrUnboundParameter = errors.New("parameter not bound by any positive precondition")

	// ErrContradictoryPrecondition is returned when a literal is both a
	// positive and a negative precondition.
	ErrContradictoryPrecondition = errors.New("literal is both a positive and a negative precondition")

	// ErrConflictingEffects is returned when a literal is both added and deleted.
	ErrConflictingEffects = errors.New("literal is both added and deleted")

	// ErrNegativeCost is returned for a cost below zero.
	ErrNegativeCost = errors.New("operator cost must be non-negative")

	// ErrBadBoundaries is returned by Validate when the role partition or the
	// position table is inconsistent.
	ErrBadBoundaries = errors.New("inconsistent operator layout")
)

// =============================================================================
// Terms and Literals
// =============================================================================

// Term is a literal argument: a parameter reference or a constant.
type Term struct {
	param   int
	sym     symbols.Symbol
	isConst bool
}

// Var returns a term referring to the operator parameter at index i.
func Var(i int) Term {
	return Term{param: i}
}

// Const returns a constant term.
func Const(s symbols.Symbol) Term {
	return Term{sym: s, isConst: true}
}

// IsConst reports whether t is a constant.
func (t Term) IsConst() bool { return t.isConst }

// Param returns the parameter index of a variable term.
func (t Term) Param() int { return t.param }

// Symbol returns the symbol of a constant term.
func (t Term) Symbol() symbols.Symbol { return t.sym }

// Literal is a predicate applied to terms.
type Literal struct {
	Predicate symbols.Symbol
	Args      []Term
}

// Equal reports structural equality.
func (l Literal) Equal(o Literal) bool {
	if l.Predicate != o.Predicate || len(l.Args) != len(o.Args) {
		return false
	}
	for i := range l.Args {
		if l.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

// Ground instantiates l with params, writing into dst and returning it.
func (l Literal) Ground(dst []symbols.Symbol, params []symbols.Symbol) []symbols.Symbol {
	dst = dst[:0]
	for _, t := range l.Args {
		if t.isConst {
			dst = append(dst, t.sym)
		} else {
			dst = append(dst, params[t.param])
		}
	}
	return dst
}

// =============================================================================
// Roles
// =============================================================================

// Role classifies a literal within an operator.
type Role int

const (
	// RolePrecondition must hold and is left untouched.
	RolePrecondition Role = iota
	// RoleDeletedPrecondition must hold and is removed by the operator.
	RoleDeletedPrecondition
	// RoleDeletion is removed if present; it is not required to hold.
	RoleDeletion
	// RoleAddition is added by the operator.
	RoleAddition
	// RoleAddedNegativePrecondition must be absent and is added by the operator.
	RoleAddedNegativePrecondition
	// RoleNegativePrecondition must be absent and is left untouched.
	RoleNegativePrecondition

	numRoles
)

var roleNames = [numRoles]string{
	"precondition",
	"deleted_precondition",
	"deletion",
	"addition",
	"added_negative_precondition",
	"negative_precondition",
}

// String returns the role name.
func (r Role) String() string {
	if r < 0 || r >= numRoles {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// Position locates one occurrence of a parameter among the positive
// preconditions: Slot indexes Positives(), Arg indexes that literal's args.
type Position struct {
	Slot int
	Arg  int
}

// =============================================================================
// Operator
// =============================================================================

// Operator is a lifted action schema.
//
// Thread Safety: immutable after Build; safe for concurrent use.
type Operator struct {
	// Symbol names the operator in the task's symbol table.
	Symbol symbols.Symbol
	// Name is the display name.
	Name string
	// Params are the declared parameter names.
	Params []string
	// Cost is the non-negative cost of applying the operator.
	Cost float64

	literals  []Literal
	bounds    [numRoles + 1]int
	positions [][]Position
}

// Arity returns the number of parameters.
func (o *Operator) Arity() int { return len(o.Params) }

// Range returns the literals of a single role.
func (o *Operator) Range(r Role) []Literal {
	return o.literals[o.bounds[r]:o.bounds[r+1]]
}

func (o *Operator) span(from, to Role) []Literal {
	return o.literals[o.bounds[from]:o.bounds[to+1]]
}

// Positives returns the literals that must hold: preconditions followed by
// deleted preconditions. Matcher slots index this slice.
func (o *Operator) Positives() []Literal {
	return o.span(RolePrecondition, RoleDeletedPrecondition)
}

// Deleted returns the deleted preconditions. Their slots in Positives start
// at DeletedOffset.
func (o *Operator) Deleted() []Literal {
	return o.Range(RoleDeletedPrecondition)
}

// DeletedOffset returns the slot of the first deleted precondition.
func (o *Operator) DeletedOffset() int {
	return o.bounds[RoleDeletedPrecondition]
}

// Deletions returns the pure deletions.
func (o *Operator) Deletions() []Literal {
	return o.Range(RoleDeletion)
}

// Additions returns every added literal.
func (o *Operator) Additions() []Literal {
	return o.span(RoleAddition, RoleAddedNegativePrecondition)
}

// Negatives returns every literal that must be absent.
func (o *Operator) Negatives() []Literal {
	return o.span(RoleAddedNegativePrecondition, RoleNegativePrecondition)
}

// Positions returns the occurrences of parameter i in Positives.
func (o *Operator) Positions(i int) []Position {
	return o.positions[i]
}

// Validate re-checks the layout invariants of an operator.
func (o *Operator) Validate() error {
	if o.bounds[0] != 0 || o.bounds[numRoles] != len(o.literals) {
		return fmt.Errorf("operator %s: %w: boundaries do not cover literals", o.Name, ErrBadBoundaries)
	}
	for r := Role(0); r < numRoles; r++ {
		if o.bounds[r] > o.bounds[r+1] {
			return fmt.Errorf("operator %s: %w: %s range is negative", o.Name, ErrBadBoundaries, r)
		}
	}
	if len(o.positions) != len(o.Params) {
		return fmt.Errorf("operator %s: %w: positions for %d of %d parameters",
			o.Name, ErrBadBoundaries, len(o.positions), len(o.Params))
	}
	if o.Cost < 0 {
		return fmt.Errorf("operator %s: %w", o.Name, ErrNegativeCost)
	}
	pos := o.Positives()
	for i, ps := range o.positions {
		if len(ps) == 0 {
			return fmt.Errorf("operator %s: parameter %s: %w", o.Name, o.Params[i], ErrUnboundParameter)
		}
		for _, p := range ps {
			if p.Slot < 0 || p.Slot >= len(pos) || p.Arg < 0 || p.Arg >= len(pos[p.Slot].Args) {
				return fmt.Errorf("operator %s: %w: position %v out of range", o.Name, ErrBadBoundaries, p)
			}
			t := pos[p.Slot].Args[p.Arg]
			if t.isConst || t.param != i {
				return fmt.Errorf("operator %s: %w: position %v does not reference %s",
					o.Name, ErrBadBoundaries, p, o.Params[i])
			}
		}
	}
	return nil
}

// =============================================================================
// Builder
// =============================================================================

// Builder collects the literals of one operator and produces a validated
// Operator.
type Builder struct {
	sym    symbols.Symbol
	name   string
	params []string
	cost   float64
	pre    []Literal
	neg    []Literal
	del    []Literal
	add    []Literal
}

// NewBuilder starts an operator named name with the given parameter names.
func NewBuilder(sym symbols.Symbol, name string, params ...string) *Builder {
	return &Builder{
		sym:    sym,
		name:   name,
		params: params,
		cost:   1,
	}
}

// Precondition adds a positive precondition.
func (b *Builder) Precondition(pred symbols.Symbol, args ...Term) *Builder {
	b.pre = appendUnique(b.pre, Literal{Predicate: pred, Args: args})
	return b
}

// NegativePrecondition adds a literal that must be absent.
func (b *Builder) NegativePrecondition(pred symbols.Symbol, args ...Term) *Builder {
	b.neg = appendUnique(b.neg, Literal{Predicate: pred, Args: args})
	return b
}

// Delete adds a delete effect.
func (b *Builder) Delete(pred symbols.Symbol, args ...Term) *Builder {
	b.del = appendUnique(b.del, Literal{Predicate: pred, Args: args})
	return b
}

// Add adds an add effect.
func (b *Builder) Add(pred symbols.Symbol, args ...Term) *Builder {
	b.add = appendUnique(b.add, Literal{Predicate: pred, Args: args})
	return b
}

// Cost sets the operator cost. The default is 1.
func (b *Builder) Cost(c float64) *Builder {
	b.cost = c
	return b
}

// Build classifies the collected literals and returns the operator.
//
// Outputs:
//
//	*Operator - The validated operator.
//	error - ErrUnknownParameter, ErrUnboundParameter, ErrContradictoryPrecondition,
//	        ErrConflictingEffects or ErrNegativeCost, wrapped with the operator name.
func (b *Builder) Build() (*Operator, error) {
	if b.cost < 0 {
		return nil, fmt.Errorf("operator %s: %w", b.name, ErrNegativeCost)
	}
	for _, group := range [][]Literal{b.pre, b.neg, b.del, b.add} {
		for _, l := range group {
			for _, t := range l.Args {
				if !t.isConst && (t.param < 0 || t.param >= len(b.params)) {
					return nil, fmt.Errorf("operator %s: %w: index %d", b.name, ErrUnknownParameter, t.param)
				}
			}
		}
	}
	for _, l := range b.pre {
		if contains(b.neg, l) {
			return nil, fmt.Errorf("operator %s: %w", b.name, ErrContradictoryPrecondition)
		}
	}
	for _, l := range b.add {
		if contains(b.del, l) {
			return nil, fmt.Errorf("operator %s: %w", b.name, ErrConflictingEffects)
		}
	}

	var groups [numRoles][]Literal
	for _, l := range b.pre {
		if contains(b.del, l) {
			groups[RoleDeletedPrecondition] = append(groups[RoleDeletedPrecondition], l)
		} else {
			groups[RolePrecondition] = append(groups[RolePrecondition], l)
		}
	}
	for _, l := range b.del {
		if !contains(b.pre, l) {
			groups[RoleDeletion] = append(groups[RoleDeletion], l)
		}
	}
	for _, l := range b.add {
		if contains(b.neg, l) {
			groups[RoleAddedNegativePrecondition] = append(groups[RoleAddedNegativePrecondition], l)
		} else {
			groups[RoleAddition] = append(groups[RoleAddition], l)
		}
	}
	for _, l := range b.neg {
		if !contains(b.add, l) {
			groups[RoleNegativePrecondition] = append(groups[RoleNegativePrecondition], l)
		}
	}

	op := &Operator{
		Symbol: b.sym,
		Name:   b.name,
		Params: append([]string(nil), b.params...),
		Cost:   b.cost,
	}
	for r := Role(0); r < numRoles; r++ {
		op.bounds[r] = len(op.literals)
		op.literals = append(op.literals, groups[r]...)
	}
	op.bounds[numRoles] = len(op.literals)

	op.positions = make([][]Position, len(b.params))
	for slot, l := range op.Positives() {
		for arg, t := range l.Args {
			if !t.isConst {
				op.positions[t.param] = append(op.positions[t.param], Position{Slot: slot, Arg: arg})
			}
		}
	}
	for i, ps := range op.positions {
		if len(ps) == 0 {
			return nil, fmt.Errorf("operator %s: parameter %s: %w", b.name, b.params[i], ErrUnboundParameter)
		}
	}
	return op, nil
}

func contains(ls []Literal, l Literal) bool {
	for _, x := range ls {
		if x.Equal(l) {
			return true
		}
	}
	return false
}

func appendUnique(ls []Literal, l Literal) []Literal {
	if contains(ls, l) {
		return ls
	}
	return append(ls, l)
}
