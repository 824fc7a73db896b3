// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianStrips/services/planner/facts"
	"github.com/AleutianAI/AleutianStrips/services/planner/schema"
	"github.com/AleutianAI/AleutianStrips/services/planner/state"
	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

type fixture struct {
	t     *testing.T
	syms  *symbols.Table
	store *facts.Store
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, syms: symbols.NewTable(0), store: facts.NewStore(0)}
}

func (f *fixture) sym(name string) symbols.Symbol {
	s, err := f.syms.Intern(name)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) fact(pred string, args ...string) facts.Handle {
	a := facts.Atom{Predicate: f.sym(pred)}
	for _, arg := range args {
		a.Args = append(a.Args, f.sym(arg))
	}
	h, err := f.store.Intern(a)
	require.NoError(f.t, err)
	return h
}

func (f *fixture) collect(op *schema.Operator, s state.Sorted) [][]string {
	idx := NewIndex(f.store)
	idx.Rebuild(s)
	var out [][]string
	for b := range New(f.store).Match(op, idx) {
		out = append(out, f.syms.Names(b.Params))
	}
	return out
}

func TestMatch_CoReference(t *testing.T) {
	f := newFixture(t)
	at, road := f.sym("at"), f.sym("road")
	s := state.NewSorted(
		f.fact("at", "a"),
		f.fact("road", "a", "b"),
		f.fact("road", "a", "c"),
		f.fact("road", "b", "c"),
	)
	op, err := schema.NewBuilder(f.sym("move"), "move", "x", "y").
		Precondition(at, schema.Var(0)).
		Precondition(road, schema.Var(0), schema.Var(1)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b"}, {"a", "c"}}, f.collect(op, s))
}

func TestMatch_EmptyCandidateListSkipsOperator(t *testing.T) {
	f := newFixture(t)
	s := state.NewSorted(f.fact("at", "a"))
	op, err := schema.NewBuilder(f.sym("move"), "move", "x", "y").
		Precondition(f.sym("at"), schema.Var(0)).
		Precondition(f.sym("road"), schema.Var(0), schema.Var(1)).
		Build()
	require.NoError(t, err)

	assert.Empty(t, f.collect(op, s))
}

func TestMatch_NegativePrecondition(t *testing.T) {
	f := newFixture(t)
	at, road, visited := f.sym("at"), f.sym("road"), f.sym("visited")
	s := state.NewSorted(
		f.fact("at", "a"),
		f.fact("road", "a", "b"),
		f.fact("road", "a", "c"),
		f.fact("visited", "b"),
	)
	op, err := schema.NewBuilder(f.sym("move"), "move", "x", "y").
		Precondition(at, schema.Var(0)).
		Precondition(road, schema.Var(0), schema.Var(1)).
		NegativePrecondition(visited, schema.Var(1)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "c"}}, f.collect(op, s))
}

func TestMatch_ZeroPreconditionsYieldsOnce(t *testing.T) {
	f := newFixture(t)
	op, err := schema.NewBuilder(f.sym("start"), "start").
		Add(f.sym("ready"), schema.Const(f.sym("engine"))).
		Build()
	require.NoError(t, err)

	got := f.collect(op, state.NewSorted(f.fact("at", "a")))
	require.Len(t, got, 1)
	assert.Empty(t, got[0])
}

func TestMatch_DistinctAtomsPerSlot(t *testing.T) {
	f := newFixture(t)
	p := f.sym("p")
	op, err := schema.NewBuilder(f.sym("pair"), "pair", "x", "y").
		Precondition(p, schema.Var(0)).
		Precondition(p, schema.Var(1)).
		Build()
	require.NoError(t, err)

	t.Run("single atom cannot fill both slots", func(t *testing.T) {
		assert.Empty(t, f.collect(op, state.NewSorted(f.fact("p", "a"))))
	})

	t.Run("slot zero varies fastest", func(t *testing.T) {
		s := state.NewSorted(f.fact("p", "a"), f.fact("p", "b"))
		assert.Equal(t, [][]string{{"b", "a"}, {"a", "b"}}, f.collect(op, s))
	})
}

func TestMatch_ConstantArguments(t *testing.T) {
	f := newFixture(t)
	at, road, depot := f.sym("at"), f.sym("road"), f.sym("depot")
	s := state.NewSorted(
		f.fact("at", "a"),
		f.fact("road", "a", "depot"),
		f.fact("road", "a", "b"),
	)
	op, err := schema.NewBuilder(f.sym("home"), "home", "x").
		Precondition(at, schema.Var(0)).
		Precondition(road, schema.Var(0), schema.Const(depot)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a"}}, f.collect(op, s))
}

func TestMatch_EarlyStopAndClone(t *testing.T) {
	f := newFixture(t)
	p := f.sym("p")
	s := state.NewSorted(f.fact("p", "a"), f.fact("p", "b"), f.fact("p", "c"))
	op, err := schema.NewBuilder(f.sym("pick"), "pick", "x").
		Precondition(p, schema.Var(0)).
		Build()
	require.NoError(t, err)

	idx := NewIndex(f.store)
	idx.Rebuild(s)
	var kept []Binding
	for b := range New(f.store).Match(op, idx) {
		kept = append(kept, b.Clone())
		if len(kept) == 2 {
			break
		}
	}
	require.Len(t, kept, 2)
	assert.Equal(t, []string{"a"}, f.syms.Names(kept[0].Params))
	assert.Equal(t, []string{"b"}, f.syms.Names(kept[1].Params))
}

func TestIndex_RebuildReplacesSituation(t *testing.T) {
	f := newFixture(t)
	a := f.fact("p", "a")
	b := f.fact("q", "b")
	idx := NewIndex(f.store)

	idx.Rebuild(state.NewSorted(a, b))
	assert.Equal(t, []facts.Handle{a}, idx.Candidates(f.sym("p")))

	idx.Rebuild(state.NewSorted(b))
	assert.Empty(t, idx.Candidates(f.sym("p")))
	assert.Equal(t, []facts.Handle{b}, idx.Candidates(f.sym("q")))
}
