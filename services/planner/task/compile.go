// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package task

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianStrips/services/planner/facts"
	"github.com/AleutianAI/AleutianStrips/services/planner/schema"
	"github.com/AleutianAI/AleutianStrips/services/planner/search"
	"github.com/AleutianAI/AleutianStrips/services/planner/state"
	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

// Limits bound the stores created by Compile. Zero means unbounded.
type Limits struct {
	MaxSymbols int
	MaxFacts   int
}

// compiler carries the tables shared while compiling one document.
type compiler struct {
	doc        *Document
	syms       *symbols.Table
	store      *facts.Store
	arity      map[symbols.Symbol]int
	constants  map[string]symbols.Symbol
	negatives  bool
	actionCost bool
}

// Compile turns a validated document into a frozen search problem.
//
// Description:
//
//	Declares predicates and constants, builds one operator schema per
//	action, and interns the initial and goal atoms. Every name used by an
//	action or atom must be declared, with matching arity. Negative
//	preconditions need the negative-preconditions requirement and explicit
//	costs need action-costs; without action-costs every operator costs 1.
//
// Outputs:
//
//	*search.Problem - Ready to be shared by any number of searches.
//	error - *LoadError wrapping one of the package sentinels, or a capacity
//	        error from the symbol table or fact store.
func Compile(doc *Document, limits Limits) (*search.Problem, error) {
	c := &compiler{
		doc:        doc,
		syms:       symbols.NewTable(limits.MaxSymbols),
		store:      facts.NewStore(limits.MaxFacts),
		arity:      make(map[symbols.Symbol]int),
		constants:  make(map[string]symbols.Symbol),
		negatives:  doc.Has(RequirementNegativePreconditions),
		actionCost: doc.Has(RequirementActionCosts),
	}

	for i, p := range doc.Predicates {
		field := fmt.Sprintf("predicates[%d]", i)
		sym, err := c.intern(field, p.Name)
		if err != nil {
			return nil, err
		}
		if _, dup := c.arity[sym]; dup {
			return nil, c.fail(field, fmt.Errorf("%w: predicate %q", ErrDuplicate, p.Name))
		}
		c.arity[sym] = p.Arity
	}

	for i, name := range append(append([]string(nil), doc.Constants...), doc.Objects...) {
		name = strings.ToLower(name)
		sym, err := c.intern(fmt.Sprintf("constants[%d]", i), name)
		if err != nil {
			return nil, err
		}
		c.constants[name] = sym
	}

	ops := make([]*schema.Operator, 0, len(doc.Actions))
	seen := make(map[string]bool, len(doc.Actions))
	for i, a := range doc.Actions {
		field := fmt.Sprintf("actions[%d]", i)
		name := strings.ToLower(a.Name)
		if seen[name] {
			return nil, c.fail(field, fmt.Errorf("%w: action %q", ErrDuplicate, a.Name))
		}
		seen[name] = true
		op, err := c.action(field, a)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	initial, err := c.situation("init", doc.Init)
	if err != nil {
		return nil, err
	}
	goal, err := c.situation("goal", doc.Goal)
	if err != nil {
		return nil, err
	}

	c.store.Freeze()
	return &search.Problem{
		Symbols:   c.syms,
		Facts:     c.store,
		Operators: ops,
		Initial:   initial,
		Goal:      goal,
	}, nil
}

func (c *compiler) fail(field string, err error) error {
	return &LoadError{Path: c.doc.path, Field: field, Err: err}
}

func (c *compiler) intern(field, name string) (symbols.Symbol, error) {
	sym, err := c.syms.Intern(strings.ToLower(name))
	if err != nil {
		return 0, c.fail(field, err)
	}
	return sym, nil
}

// predicate resolves an atom's predicate and checks its arity.
func (c *compiler) predicate(field, name string, args int) (symbols.Symbol, error) {
	sym, ok := c.syms.Lookup(name)
	if !ok {
		return 0, c.fail(field, fmt.Errorf("%w: %q", ErrUnknownPredicate, name))
	}
	want, ok := c.arity[sym]
	if !ok {
		return 0, c.fail(field, fmt.Errorf("%w: %q", ErrUnknownPredicate, name))
	}
	if want != args {
		return 0, c.fail(field, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrArityMismatch, name, want, args))
	}
	return sym, nil
}

func (c *compiler) action(field string, a Action) (*schema.Operator, error) {
	params := make([]string, len(a.Parameters))
	index := make(map[string]int, len(a.Parameters))
	for i, p := range a.Parameters {
		p = strings.ToLower(p)
		if _, dup := index[p]; dup {
			return nil, c.fail(field+".parameters", fmt.Errorf("%w: parameter %q", ErrDuplicate, p))
		}
		index[p] = i
		params[i] = p
	}

	sym, err := c.intern(field+".name", a.Name)
	if err != nil {
		return nil, err
	}
	b := schema.NewBuilder(sym, strings.ToLower(a.Name), params...)

	if a.Cost != nil {
		if !c.actionCost {
			return nil, c.fail(field+".cost", fmt.Errorf("%w: %s", ErrMissingRequirement, RequirementActionCosts))
		}
		b.Cost(*a.Cost)
	}
	if len(a.NegativePrecondition) > 0 && !c.negatives {
		return nil, c.fail(field+".negative_precondition",
			fmt.Errorf("%w: %s", ErrMissingRequirement, RequirementNegativePreconditions))
	}

	groups := []struct {
		name  string
		atoms []string
		add   func(symbols.Symbol, ...schema.Term) *schema.Builder
	}{
		{"precondition", a.Precondition, b.Precondition},
		{"negative_precondition", a.NegativePrecondition, b.NegativePrecondition},
		{"delete", a.Delete, b.Delete},
		{"add", a.Add, b.Add},
	}
	for _, g := range groups {
		for j, s := range g.atoms {
			f := fmt.Sprintf("%s.%s[%d]", field, g.name, j)
			pred, terms, err := c.literal(f, s, index)
			if err != nil {
				return nil, err
			}
			g.add(pred, terms...)
		}
	}

	op, err := b.Build()
	if err != nil {
		return nil, c.fail(field, err)
	}
	return op, nil
}

func (c *compiler) literal(field, s string, params map[string]int) (symbols.Symbol, []schema.Term, error) {
	name, args, err := parseAtom(s)
	if err != nil {
		return 0, nil, c.fail(field, err)
	}
	pred, err := c.predicate(field, name, len(args))
	if err != nil {
		return 0, nil, err
	}
	terms := make([]schema.Term, len(args))
	for i, arg := range args {
		if strings.HasPrefix(arg, "?") {
			idx, ok := params[arg]
			if !ok {
				return 0, nil, c.fail(field, fmt.Errorf("%w: %q", ErrUnknownVariable, arg))
			}
			terms[i] = schema.Var(idx)
			continue
		}
		sym, ok := c.constants[arg]
		if !ok {
			return 0, nil, c.fail(field, fmt.Errorf("%w: %q", ErrUnknownConstant, arg))
		}
		terms[i] = schema.Const(sym)
	}
	return pred, terms, nil
}

func (c *compiler) situation(field string, atoms []string) (state.Sorted, error) {
	hs := make([]facts.Handle, 0, len(atoms))
	for i, s := range atoms {
		f := fmt.Sprintf("%s[%d]", field, i)
		name, args, err := parseAtom(s)
		if err != nil {
			return nil, c.fail(f, err)
		}
		pred, err := c.predicate(f, name, len(args))
		if err != nil {
			return nil, err
		}
		atom := facts.Atom{Predicate: pred, Args: make([]symbols.Symbol, len(args))}
		for j, arg := range args {
			sym, ok := c.constants[arg]
			if !ok {
				return nil, c.fail(f, fmt.Errorf("%w: %q", ErrUnknownConstant, arg))
			}
			atom.Args[j] = sym
		}
		h, err := c.store.Intern(atom)
		if err != nil {
			return nil, c.fail(f, err)
		}
		hs = append(hs, h)
	}
	return state.NewSorted(hs...), nil
}
