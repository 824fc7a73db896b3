// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/AleutianStrips/services/planner/facts"
	"github.com/AleutianAI/AleutianStrips/services/planner/schema"
	"github.com/AleutianAI/AleutianStrips/services/planner/state"
	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

type taskBuilder struct {
	t     *testing.T
	syms  *symbols.Table
	store *facts.Store
	ops   []*schema.Operator
	init  []facts.Handle
	goal  []facts.Handle
}

func newTaskBuilder(t *testing.T, factLimit int) *taskBuilder {
	return &taskBuilder{t: t, syms: symbols.NewTable(0), store: facts.NewStore(factLimit)}
}

func (b *taskBuilder) sym(name string) symbols.Symbol {
	s, err := b.syms.Intern(name)
	require.NoError(b.t, err)
	return s
}

func (b *taskBuilder) fact(pred string, args ...string) facts.Handle {
	a := facts.Atom{Predicate: b.sym(pred)}
	for _, arg := range args {
		a.Args = append(a.Args, b.sym(arg))
	}
	h, err := b.store.Intern(a)
	require.NoError(b.t, err)
	return h
}

func (b *taskBuilder) initially(pred string, args ...string) *taskBuilder {
	b.init = append(b.init, b.fact(pred, args...))
	return b
}

func (b *taskBuilder) goalOf(pred string, args ...string) *taskBuilder {
	b.goal = append(b.goal, b.fact(pred, args...))
	return b
}

func (b *taskBuilder) operator(ob *schema.Builder) *taskBuilder {
	op, err := ob.Build()
	require.NoError(b.t, err)
	b.ops = append(b.ops, op)
	return b
}

// move(?x ?y): at(?x), road(?x ?y) -> not at(?x), at(?y)
func (b *taskBuilder) withMove(name string, cost float64) *taskBuilder {
	return b.operator(schema.NewBuilder(b.sym(name), name, "x", "y").
		Precondition(b.sym("at"), schema.Var(0)).
		Precondition(b.sym(name+"-link"), schema.Var(0), schema.Var(1)).
		Delete(b.sym("at"), schema.Var(0)).
		Add(b.sym("at"), schema.Var(1)).
		Cost(cost))
}

func (b *taskBuilder) problem() *Problem {
	b.store.Freeze()
	return &Problem{
		Symbols:   b.syms,
		Facts:     b.store,
		Operators: b.ops,
		Initial:   state.NewSorted(b.init...),
		Goal:      state.NewSorted(b.goal...),
	}
}

func lineProblem(t *testing.T) *Problem {
	return newTaskBuilder(t, 0).
		withMove("move", 1).
		initially("at", "a").
		initially("move-link", "a", "b").
		initially("move-link", "b", "c").
		goalOf("at", "c").
		problem()
}

func runSearch(t *testing.T, p *Problem, strategy Strategy, opts Options) (*Search, *Result) {
	t.Helper()
	s, err := New(p, opts)
	require.NoError(t, err)
	res, err := s.Run(context.Background(), strategy)
	require.NoError(t, err)
	return s, res
}

func planStrings(s *Search, res *Result) []string {
	var out []string
	for _, a := range s.NamedActions(res.Plan) {
		out = append(out, a.String())
	}
	return out
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestRun_BreadthFirstFindsShortestPlan(t *testing.T) {
	s, res := runSearch(t, lineProblem(t), BreadthFirst, DefaultOptions())

	assert.Equal(t, Success, res.Outcome)
	assert.True(t, res.Outcome.Solved())
	assert.Equal(t, []string{"move(a,b)", "move(b,c)"}, planStrings(s, res))
	assert.Equal(t, 2.0, res.Plan.Cost)
	assert.NotEmpty(t, res.RunID)

	acts := s.PlanActions(res.Plan)
	require.Len(t, acts, 2)
	assert.Equal(t, "move", s.problem.Symbols.Name(acts[0].Operator))
}

func TestRun_TrivialSuccess(t *testing.T) {
	p := newTaskBuilder(t, 0).
		withMove("move", 1).
		initially("at", "a").
		initially("move-link", "a", "b").
		goalOf("at", "a").
		problem()

	for _, strategy := range []Strategy{BreadthFirst, BestFirst} {
		t.Run(strategy.String(), func(t *testing.T) {
			_, res := runSearch(t, p, strategy, DefaultOptions())
			assert.Equal(t, TrivialSuccess, res.Outcome)
			require.NotNil(t, res.Plan)
			assert.Equal(t, 0, res.Plan.Len())
			assert.Equal(t, 0, res.Stats.Expansions)
		})
	}
}

func TestRun_ExhaustedWithCycles(t *testing.T) {
	p := newTaskBuilder(t, 0).
		withMove("move", 1).
		initially("at", "a").
		initially("move-link", "a", "b").
		initially("move-link", "b", "a").
		initially("move-link", "b", "c").
		initially("move-link", "c", "b").
		goalOf("at", "d").
		problem()

	for _, strategy := range []Strategy{BreadthFirst, BestFirst} {
		t.Run(strategy.String(), func(t *testing.T) {
			_, res := runSearch(t, p, strategy, DefaultOptions())
			assert.Equal(t, Exhausted, res.Outcome)
			assert.Nil(t, res.Plan)
			assert.Equal(t, 3, res.Stats.Stored)
			assert.Equal(t, 3, res.Stats.Expansions, "each reachable situation is expanded once")
			assert.Equal(t, 4, res.Stats.Generated)
			assert.Equal(t, 2, res.Stats.Duplicates)
		})
	}
}

func TestRun_NegativePrecondition(t *testing.T) {
	b := newTaskBuilder(t, 0)
	b.operator(schema.NewBuilder(b.sym("leave"), "leave", "x").
		Precondition(b.sym("at"), schema.Var(0)).
		Delete(b.sym("at"), schema.Var(0)).
		Add(b.sym("left"), schema.Var(0)))
	b.operator(schema.NewBuilder(b.sym("mark"), "mark").
		NegativePrecondition(b.sym("at"), schema.Const(b.sym("b"))).
		Add(b.sym("marked"), schema.Const(b.sym("b"))))
	p := b.initially("at", "b").goalOf("marked", "b").problem()

	s, res := runSearch(t, p, BreadthFirst, DefaultOptions())
	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, []string{"leave(b)", "mark()"}, planStrings(s, res))
}

func TestRun_BestFirstFindsCheapestPlan(t *testing.T) {
	p := newTaskBuilder(t, 0).
		withMove("move", 1).
		withMove("fly", 10).
		initially("at", "a").
		initially("move-link", "a", "b").
		initially("move-link", "b", "c").
		initially("fly-link", "a", "c").
		goalOf("at", "c").
		problem()

	t.Run("breadth first minimises actions", func(t *testing.T) {
		s, res := runSearch(t, p, BreadthFirst, DefaultOptions())
		assert.Equal(t, []string{"fly(a,c)"}, planStrings(s, res))
	})

	t.Run("best first minimises cost", func(t *testing.T) {
		s, res := runSearch(t, p, BestFirst, DefaultOptions())
		assert.Equal(t, Success, res.Outcome)
		assert.Equal(t, []string{"move(a,b)", "move(b,c)"}, planStrings(s, res))
		assert.Equal(t, 2.0, res.Plan.Cost)
	})
}

func TestRun_BestFirstZeroCostOperators(t *testing.T) {
	p := newTaskBuilder(t, 0).
		withMove("walk", 0).
		initially("at", "a").
		initially("walk-link", "a", "b").
		initially("walk-link", "b", "a").
		initially("walk-link", "b", "c").
		goalOf("at", "c").
		problem()

	s, res := runSearch(t, p, BestFirst, DefaultOptions())
	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, []string{"walk(a,b)", "walk(b,c)"}, planStrings(s, res))
	assert.Equal(t, 0.0, res.Plan.Cost)
}

func TestRun_BudgetYieldsIncomplete(t *testing.T) {
	t.Run("max expansions", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MaxExpansions = 1
		_, res := runSearch(t, lineProblem(t), BreadthFirst, opts)
		assert.Equal(t, Incomplete, res.Outcome)
		assert.Equal(t, "max_expansions", res.Reason)
		assert.Nil(t, res.Plan)
	})

	t.Run("canceled context", func(t *testing.T) {
		s, err := New(lineProblem(t), DefaultOptions())
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := s.Run(ctx, BestFirst)
		require.NoError(t, err)
		assert.Equal(t, Incomplete, res.Outcome)
		assert.Equal(t, "canceled", res.Reason)
	})
}

func TestRun_CapacityOverflowIsFatal(t *testing.T) {
	b := newTaskBuilder(t, 0).
		withMove("move", 1).
		initially("at", "a").
		initially("move-link", "a", "b").
		initially("move-link", "b", "c").
		goalOf("at", "c")
	limit := b.store.Len()
	b.store = func() *facts.Store {
		// Rebuild the same atoms into a store bounded at their count.
		st := facts.NewStore(limit)
		for h := 0; h < limit; h++ {
			_, err := st.Intern(b.store.Atom(facts.Handle(h)))
			require.NoError(t, err)
		}
		return st
	}()
	s, err := New(b.problem(), DefaultOptions())
	require.NoError(t, err)

	_, err = s.Run(context.Background(), BreadthFirst)
	require.Error(t, err)
	assert.ErrorIs(t, err, facts.ErrCapacityExceeded)
}

func TestRun_RequiresReset(t *testing.T) {
	p := lineProblem(t)
	baseFacts := p.Facts.Len()
	s, first := runSearch(t, p, BreadthFirst, DefaultOptions())

	_, err := s.Run(context.Background(), BreadthFirst)
	assert.ErrorIs(t, err, ErrNotReady)

	s.Reset()
	second, err := s.Run(context.Background(), BestFirst)
	require.NoError(t, err)
	assert.Equal(t, Success, second.Outcome)
	assert.Equal(t, planStrings(s, first), planStrings(s, second))
	assert.Equal(t, baseFacts, p.Facts.Len(), "shared store is never written")
}

func TestRun_ConcurrentSearchesShareProblem(t *testing.T) {
	p := lineProblem(t)
	var wg sync.WaitGroup
	results := make([]*Result, 8)
	searches := make([]*Search, 8)
	for i := range results {
		s, err := New(p, DefaultOptions())
		require.NoError(t, err)
		searches[i] = s
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			strategy := BreadthFirst
			if i%2 == 1 {
				strategy = BestFirst
			}
			res, err := searches[i].Run(context.Background(), strategy)
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, []string{"move(a,b)", "move(b,c)"}, planStrings(searches[i], res))
	}
}

func TestRun_RecordsMetricsAndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	counter := searchRunsTotal.WithLabelValues("breadth_first", "solved")
	before := testutil.ToFloat64(counter)

	runSearch(t, lineProblem(t), BreadthFirst, DefaultOptions())

	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	last := spans[len(spans)-1]
	assert.Equal(t, "search.Run", last.Name())
	assert.Contains(t, last.Attributes(), attribute.String("outcome", "solved"))
}

func TestNew_RejectsInvalidProblem(t *testing.T) {
	t.Run("unfrozen store", func(t *testing.T) {
		p := &Problem{Symbols: symbols.NewTable(0), Facts: facts.NewStore(0)}
		_, err := New(p, DefaultOptions())
		assert.ErrorIs(t, err, ErrInvalidProblem)
	})

	t.Run("non canonical initial", func(t *testing.T) {
		st := facts.NewStore(0)
		st.Freeze()
		p := &Problem{Symbols: symbols.NewTable(0), Facts: st, Initial: state.Sorted{2, 1}}
		_, err := New(p, DefaultOptions())
		assert.ErrorIs(t, err, ErrInvalidProblem)
	})
}

func TestStrategy_ParseAndText(t *testing.T) {
	for name, want := range map[string]Strategy{
		"bfs": BreadthFirst, "breadth_first": BreadthFirst,
		"ucs": BestFirst, "best": BestFirst, "best_first": BestFirst,
	} {
		got, err := ParseStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseStrategy("dfs")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	var decoded struct {
		Strategy Strategy `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"strategy":"ucs"}`), &decoded))
	assert.Equal(t, BestFirst, decoded.Strategy)

	out, err := json.Marshal(map[string]Outcome{"o": Exhausted})
	require.NoError(t, err)
	assert.JSONEq(t, `{"o":"exhausted"}`, string(out))
}
