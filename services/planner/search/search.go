// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search explores the situations reachable from an initial
// situation until one includes the goal.
//
// Two strategies are provided. BreadthFirst treats every action as unit
// cost and returns a shortest plan by action count. BestFirst orders the
// frontier by accumulated operator cost and returns a cheapest plan.
//
// # Lifecycle
//
//	New -> Run -> (solved | exhausted | incomplete) -> Reset -> Run ...
//
// A Search owns a fork of the problem's frozen fact store, so several
// searches over one Problem can run concurrently, each on its own goroutine.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianStrips/services/planner/expand"
	"github.com/AleutianAI/AleutianStrips/services/planner/facts"
	"github.com/AleutianAI/AleutianStrips/services/planner/match"
	"github.com/AleutianAI/AleutianStrips/services/planner/plan"
	"github.com/AleutianAI/AleutianStrips/services/planner/schema"
	"github.com/AleutianAI/AleutianStrips/services/planner/state"
	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

var (
	// ErrInvalidProblem is returned by New for a malformed problem.
	ErrInvalidProblem = errors.New("invalid problem")

	// ErrNotReady is returned by Run when the search has already run and
	// has not been Reset.
	ErrNotReady = errors.New("search already ran; call Reset")

	// ErrUnknownStrategy is returned for an unrecognised strategy.
	ErrUnknownStrategy = errors.New("unknown search strategy")
)

// =============================================================================
// Strategy and Outcome
// =============================================================================

// Strategy selects the frontier discipline.
type Strategy int

const (
	// BreadthFirst expands situations in order of plan length.
	BreadthFirst Strategy = iota
	// BestFirst expands situations in order of accumulated cost.
	BestFirst
)

// String returns the canonical strategy name.
func (s Strategy) String() string {
	switch s {
	case BreadthFirst:
		return "breadth_first"
	case BestFirst:
		return "best_first"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy accepts the canonical names and the short forms bfs, best
// and ucs.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "breadth_first", "breadth-first", "bfs":
		return BreadthFirst, nil
	case "best_first", "best-first", "best", "ucs", "uniform_cost":
		return BestFirst, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Outcome is the terminal state of a run.
type Outcome int

const (
	// TrivialSuccess means the initial situation already includes the goal.
	TrivialSuccess Outcome = iota
	// Success means a plan was found.
	Success
	// Exhausted means every reachable situation was expanded without
	// reaching the goal. The problem has no solution.
	Exhausted
	// Incomplete means a budget ran out first. Nothing is known about
	// solvability.
	Incomplete
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case TrivialSuccess:
		return "trivial"
	case Success:
		return "solved"
	case Exhausted:
		return "exhausted"
	case Incomplete:
		return "incomplete"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Solved reports whether the outcome carries a plan.
func (o Outcome) Solved() bool {
	return o == TrivialSuccess || o == Success
}

// =============================================================================
// Problem, Options, Result
// =============================================================================

// Problem is a loaded planning task.
//
// Facts must be frozen; every search forks it. Initial and Goal must be
// canonical.
type Problem struct {
	Symbols   *symbols.Table
	Facts     *facts.Store
	Operators []*schema.Operator
	Initial   state.Sorted
	Goal      state.Sorted
}

// Validate checks the structural requirements of a problem.
func (p *Problem) Validate() error {
	if p == nil || p.Symbols == nil || p.Facts == nil {
		return fmt.Errorf("%w: missing symbol table or fact store", ErrInvalidProblem)
	}
	if !p.Facts.Frozen() {
		return fmt.Errorf("%w: fact store must be frozen", ErrInvalidProblem)
	}
	for _, op := range p.Operators {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProblem, err)
		}
	}
	if !canonical(p.Initial) || !canonical(p.Goal) {
		return fmt.Errorf("%w: initial and goal situations must be sorted and unique", ErrInvalidProblem)
	}
	return nil
}

func canonical(s state.Sorted) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= s[i] {
			return false
		}
	}
	return true
}

// Options configure a Search.
type Options struct {
	// MaxExpansions bounds the number of expanded situations. Zero means
	// unbounded. Running out yields Incomplete.
	MaxExpansions int

	// ProgressInterval throttles progress logging.
	ProgressInterval time.Duration

	// Logger receives lifecycle and progress events. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns unbounded options with one progress line per
// second.
func DefaultOptions() Options {
	return Options{ProgressInterval: time.Second}
}

// Stats describe the work done by a run.
type Stats struct {
	Expansions  int `json:"expansions"`
	Generated   int `json:"generated"`
	Duplicates  int `json:"duplicates"`
	Stored      int `json:"stored"`
	MaxFrontier int `json:"max_frontier"`
	Facts       int `json:"facts"`
	Signatures  int `json:"signatures"`
}

// Result is the outcome of Run.
type Result struct {
	RunID    string
	Strategy Strategy
	Outcome  Outcome

	// Plan is set for TrivialSuccess and Success.
	Plan *plan.Plan

	// Reason explains an Incomplete outcome: "max_expansions", "deadline"
	// or "canceled".
	Reason string

	Stats   Stats
	Elapsed time.Duration

	// Facts resolves the handles of Plan.State. It stays valid after Reset.
	Facts *facts.Store
}

// =============================================================================
// Search
// =============================================================================

type phase int

const (
	phaseReady phase = iota
	phaseRunning
	phaseDone
)

// Search runs one strategy over one Problem.
//
// Thread Safety: a Search is not safe for concurrent use. Create one per
// goroutine; they may share a Problem.
type Search struct {
	problem *Problem
	opts    Options
	logger  *slog.Logger

	facts    *facts.Store
	sigs     *plan.Signatures
	seen     *seenTable
	index    *match.Index
	matcher  *match.Matcher
	expander *expand.Expander
	progress rate.Sometimes
	phase    phase
}

// New creates a search over problem.
//
// Outputs:
//
//	*Search - Ready to Run.
//	error - ErrInvalidProblem if the problem fails Validate.
func New(problem *Problem, opts Options) (*Search, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Search{
		problem: problem,
		opts:    opts,
		logger:  logger.With(slog.String("component", "search")),
		sigs:    plan.NewSignatures(),
	}
	s.Reset()
	return s, nil
}

// Reset discards the de-duplication table and every atom interned by the
// previous run, and reseeds the table with the initial situation. Plans
// returned earlier can still be resolved with PlanActions.
func (s *Search) Reset() {
	s.facts = s.problem.Facts.Fork()
	s.index = match.NewIndex(s.facts)
	s.matcher = match.New(s.facts)
	s.expander = expand.New(s.facts)
	s.seen = newSeenTable()
	s.seen.put(s.problem.Initial, 0)
	s.progress = rate.Sometimes{Interval: s.opts.ProgressInterval}
	s.phase = phaseReady
}

// PlanActions resolves the steps of p into operator and argument symbols.
func (s *Search) PlanActions(p *plan.Plan) []plan.Action {
	return plan.Actions(p, s.sigs)
}

// NamedActions resolves the steps of p into names.
func (s *Search) NamedActions(p *plan.Plan) []plan.NamedAction {
	return plan.Named(s.PlanActions(p), s.problem.Symbols)
}

// Run searches with the given strategy.
//
// Description:
//
//	The initial situation is tested against the goal first. Otherwise the
//	strategy runs until it finds a plan, empties its frontier, or runs out
//	of budget (MaxExpansions or ctx). A capacity overflow while building a
//	successor aborts the run with an error.
//
// Inputs:
//
//	ctx - Cancellation and deadline. Expiry yields Incomplete, not an error.
//	strategy - BreadthFirst or BestFirst.
//
// Outputs:
//
//	*Result - The outcome, the plan when solved, and statistics.
//	error - ErrNotReady, ErrUnknownStrategy, or a wrapped capacity error.
func (s *Search) Run(ctx context.Context, strategy Strategy) (*Result, error) {
	if s.phase != phaseReady {
		return nil, ErrNotReady
	}
	if strategy != BreadthFirst && strategy != BestFirst {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(strategy))
	}
	s.phase = phaseRunning
	defer func() { s.phase = phaseDone }()

	ctx, span := otel.Tracer("planner").Start(ctx, "search.Run",
		trace.WithAttributes(
			attribute.String("strategy", strategy.String()),
			attribute.Int("operators", len(s.problem.Operators)),
			attribute.Int("initial_size", len(s.problem.Initial)),
			attribute.Int("goal_size", len(s.problem.Goal)),
		),
	)
	defer span.End()

	res := &Result{
		RunID:    uuid.NewString(),
		Strategy: strategy,
		Facts:    s.facts,
	}
	logger := s.logger.With(slog.String("run_id", res.RunID), slog.String("strategy", strategy.String()))
	logger.Info("search started",
		slog.Int("operators", len(s.problem.Operators)),
		slog.Int("max_expansions", s.opts.MaxExpansions),
	)

	start := time.Now()
	var err error
	switch {
	case state.GoalIncludedIn(s.problem.Initial, s.problem.Goal):
		res.Outcome = TrivialSuccess
		res.Plan = &plan.Plan{State: s.problem.Initial.Clone()}
	case strategy == BreadthFirst:
		err = s.run(ctx, res, &fifo{}, logger, s.visitBreadthFirst)
	default:
		err = s.run(ctx, res, &priorityQueue{}, logger, s.visitBestFirst)
	}
	res.Elapsed = time.Since(start)
	res.Stats.Stored = s.seen.len()
	res.Stats.Facts = s.facts.Len()
	res.Stats.Signatures = s.sigs.Len()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordRun(strategy, "error", res.Stats, res.Elapsed, -1)
		logger.Error("search failed", slog.String("error", err.Error()))
		return nil, err
	}

	steps := -1
	if res.Plan != nil {
		steps = res.Plan.Len()
	}
	span.SetAttributes(
		attribute.String("outcome", res.Outcome.String()),
		attribute.Int("expansions", res.Stats.Expansions),
		attribute.Int("plan_length", steps),
	)
	recordRun(strategy, res.Outcome.String(), res.Stats, res.Elapsed, steps)
	logger.Info("search finished",
		slog.String("outcome", res.Outcome.String()),
		slog.Int("plan_length", steps),
		slog.Int("expansions", res.Stats.Expansions),
		slog.Int("stored", res.Stats.Stored),
		slog.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// visitFunc handles one expanded node. It returns true once res holds a
// plan.
type visitFunc func(n *node, open frontier, res *Result) (bool, error)

func (s *Search) run(ctx context.Context, res *Result, open frontier, logger *slog.Logger, visit visitFunc) error {
	open.push(&node{state: s.problem.Initial})

	for open.len() > 0 {
		if err := ctx.Err(); err != nil {
			res.Outcome = Incomplete
			res.Reason = "canceled"
			if errors.Is(err, context.DeadlineExceeded) {
				res.Reason = "deadline"
			}
			return nil
		}
		if s.opts.MaxExpansions > 0 && res.Stats.Expansions >= s.opts.MaxExpansions {
			res.Outcome = Incomplete
			res.Reason = "max_expansions"
			return nil
		}

		done, err := visit(open.pop(), open, res)
		if err != nil {
			return err
		}
		if done {
			res.Outcome = Success
			return nil
		}
		if open.len() > res.Stats.MaxFrontier {
			res.Stats.MaxFrontier = open.len()
		}
		s.progress.Do(func() {
			logger.Debug("search progress",
				slog.Int("expansions", res.Stats.Expansions),
				slog.Int("frontier", open.len()),
				slog.Int("stored", s.seen.len()),
				slog.Int("facts", s.facts.Len()),
			)
		})
	}
	res.Outcome = Exhausted
	return nil
}

// visitBreadthFirst expands n and tests every new successor against the
// goal as it is generated.
func (s *Search) visitBreadthFirst(n *node, open frontier, res *Result) (bool, error) {
	res.Stats.Expansions++
	depth := float64(len(n.path) + 1)
	return s.successors(n, func(child state.Sorted, op *schema.Operator, b match.Binding) (bool, error) {
		res.Stats.Generated++
		if _, ok := s.seen.get(child); ok {
			res.Stats.Duplicates++
			return false, nil
		}
		s.seen.put(child, depth)
		next := &node{
			state: child,
			path:  n.path.Extend(s.sigs.Intern(op.Symbol, b.Params)),
			cost:  n.cost + op.Cost,
		}
		if state.GoalIncludedIn(child, s.problem.Goal) {
			res.Plan = &plan.Plan{Steps: next.path, State: child, Cost: next.cost}
			return true, nil
		}
		open.push(next)
		return false, nil
	})
}

// visitBestFirst tests n against the goal when it leaves the frontier, so
// the first plan returned is a cheapest one. Entries superseded by a
// cheaper path are skipped and no situation is expanded twice.
func (s *Search) visitBestFirst(n *node, open frontier, res *Result) (bool, error) {
	entry, ok := s.seen.get(n.state)
	if ok && (entry.closed || n.cost > entry.cost) {
		return false, nil
	}
	if ok {
		entry.closed = true
	}
	if state.GoalIncludedIn(n.state, s.problem.Goal) {
		res.Plan = &plan.Plan{Steps: n.path, State: n.state, Cost: n.cost}
		return true, nil
	}
	res.Stats.Expansions++
	return s.successors(n, func(child state.Sorted, op *schema.Operator, b match.Binding) (bool, error) {
		res.Stats.Generated++
		cost := n.cost + op.Cost
		if e, ok := s.seen.get(child); ok && (e.closed || e.cost <= cost) {
			res.Stats.Duplicates++
			return false, nil
		}
		s.seen.put(child, cost)
		open.push(&node{
			state: child,
			path:  n.path.Extend(s.sigs.Intern(op.Symbol, b.Params)),
			cost:  cost,
		})
		return false, nil
	})
}

// successors applies every applicable operator instance to n, handing each
// child to visit until visit asks to stop.
func (s *Search) successors(n *node, visit func(state.Sorted, *schema.Operator, match.Binding) (bool, error)) (bool, error) {
	parent, err := state.ToBitset(n.state, s.facts.Limit())
	if err != nil {
		return false, err
	}
	s.index.Rebuild(n.state)
	for _, op := range s.problem.Operators {
		for b := range s.matcher.Match(op, s.index) {
			child, err := s.expander.Apply(parent, op, b)
			if err != nil {
				return false, err
			}
			stop, err := visit(child, op, b)
			if err != nil || stop {
				return stop, err
			}
		}
	}
	return false, nil
}
