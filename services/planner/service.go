// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package planner exposes the STRIPS planner as a service: it compiles task
// documents, runs searches under configured budgets and archives results.
//
// The search core lives in the subpackages (symbols, facts, schema, state,
// match, expand, plan, search). This package wires them to configuration,
// logging, tracing and the run archive, and is shared by the HTTP handlers
// and the CLI.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianStrips/services/planner/archive"
	"github.com/AleutianAI/AleutianStrips/services/planner/search"
	"github.com/AleutianAI/AleutianStrips/services/planner/state"
	"github.com/AleutianAI/AleutianStrips/services/planner/task"
)

// ErrArchiveDisabled is returned by History when no archive is configured.
var ErrArchiveDisabled = errors.New("run archive is disabled")

// PlanRequest asks for one search over a task document.
type PlanRequest struct {
	Document *task.Document

	// Strategy overrides the configured default when non-empty.
	Strategy string

	// MaxExpansions overrides the configured budget when positive.
	MaxExpansions int

	// TimeLimit overrides the configured time limit when positive.
	TimeLimit time.Duration
}

// PlanResponse reports the outcome of one search.
type PlanResponse struct {
	RunID    string          `json:"run_id"`
	Task     string          `json:"task"`
	TaskHash string          `json:"task_hash"`
	Strategy search.Strategy `json:"strategy"`
	Outcome  search.Outcome  `json:"outcome"`
	Reason   string          `json:"reason,omitempty"`
	Actions  []string        `json:"actions"`
	Steps    int             `json:"steps"`
	Cost     float64         `json:"cost"`
	Stats    search.Stats    `json:"stats"`
	Elapsed  time.Duration   `json:"elapsed_ns"`
}

// CompareResponse holds one response per strategy for the same task.
type CompareResponse struct {
	Task         string        `json:"task"`
	TaskHash     string        `json:"task_hash"`
	BreadthFirst *PlanResponse `json:"breadth_first"`
	BestFirst    *PlanResponse `json:"best_first"`
}

// ValidationReport summarises a task that compiled successfully.
type ValidationReport struct {
	Task       string `json:"task"`
	TaskHash   string `json:"task_hash"`
	Symbols    int    `json:"symbols"`
	Facts      int    `json:"facts"`
	Operators  int    `json:"operators"`
	InitialLen int    `json:"initial_size"`
	GoalLen    int    `json:"goal_size"`
	Trivial    bool   `json:"trivial"`
}

// Service runs planning requests.
//
// Thread Safety: Safe for concurrent use. Each request compiles its own
// problem, and Compare shares one compiled problem between two searches.
type Service struct {
	config  Config
	logger  *slog.Logger
	archive *archive.Archive
	tracer  trace.Tracer
}

// NewService creates a Service. arch may be nil to disable archiving.
func NewService(config Config, logger *slog.Logger, arch *archive.Archive) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config:  config,
		logger:  logger.With(slog.String("component", "planner")),
		archive: arch,
		tracer:  otel.Tracer("planner"),
	}
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.config
}

// Plan compiles the document and runs one search.
//
// Description:
//
//	Budgets come from the request when set and from Config otherwise. A
//	time limit becomes a context deadline, so running out of time yields
//	an Incomplete response rather than an error. Completed runs are
//	archived when an archive is configured; archive failures are logged
//	and do not fail the request.
//
// Outputs:
//
//	*PlanResponse - The outcome and, when solved, the named actions.
//	error - Loader errors (*task.LoadError), capacity errors, or
//	        search.ErrUnknownStrategy.
func (s *Service) Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error) {
	if req.Document == nil {
		return nil, fmt.Errorf("%w: no document", task.ErrInvalidDocument)
	}
	strategy, err := s.strategy(req.Strategy)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "planner.Plan",
		trace.WithAttributes(
			attribute.String("task", req.Document.Name),
			attribute.String("strategy", strategy.String()),
		),
	)
	defer span.End()

	problem, err := s.compile(req.Document)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compile failed")
		return nil, err
	}

	ctx, cancel := s.withTimeLimit(ctx, req.TimeLimit)
	defer cancel()

	resp, err := s.run(ctx, req, problem, strategy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", resp.Outcome.String()))
	return resp, nil
}

// Compare runs breadth-first and best-first concurrently on one compiled
// problem.
func (s *Service) Compare(ctx context.Context, req PlanRequest) (*CompareResponse, error) {
	if req.Document == nil {
		return nil, fmt.Errorf("%w: no document", task.ErrInvalidDocument)
	}

	ctx, span := s.tracer.Start(ctx, "planner.Compare",
		trace.WithAttributes(attribute.String("task", req.Document.Name)),
	)
	defer span.End()

	problem, err := s.compile(req.Document)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compile failed")
		return nil, err
	}

	ctx, cancel := s.withTimeLimit(ctx, req.TimeLimit)
	defer cancel()

	out := &CompareResponse{Task: req.Document.Name, TaskHash: req.Document.Hash()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := s.run(gctx, req, problem, search.BreadthFirst)
		out.BreadthFirst = resp
		return err
	})
	g.Go(func() error {
		resp, err := s.run(gctx, req, problem, search.BestFirst)
		out.BestFirst = resp
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

// Validate compiles the document without searching.
func (s *Service) Validate(_ context.Context, doc *task.Document) (*ValidationReport, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", task.ErrInvalidDocument)
	}
	problem, err := s.compile(doc)
	if err != nil {
		return nil, err
	}
	return &ValidationReport{
		Task:       doc.Name,
		TaskHash:   doc.Hash(),
		Symbols:    problem.Symbols.Len(),
		Facts:      problem.Facts.Len(),
		Operators:  len(problem.Operators),
		InitialLen: len(problem.Initial),
		GoalLen:    len(problem.Goal),
		Trivial:    state.GoalIncludedIn(problem.Initial, problem.Goal),
	}, nil
}

// History lists archived runs, newest first. An empty taskHash lists all
// tasks.
func (s *Service) History(ctx context.Context, taskHash string, limit int) ([]*archive.Record, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if taskHash != "" {
		return s.archive.ListByTask(ctx, taskHash, limit)
	}
	return s.archive.List(ctx, limit)
}

// Run fetches one archived run by id.
func (s *Service) Run(ctx context.Context, runID string) (*archive.Record, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.Get(ctx, runID)
}

// compile validates the document structure before compiling it. Documents
// decoded outside task.Parse have not been validated yet.
func (s *Service) compile(doc *task.Document) (*search.Problem, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return task.Compile(doc, s.config.Capacity.Limits())
}

func (s *Service) strategy(name string) (search.Strategy, error) {
	if name == "" {
		name = s.config.Search.Strategy
	}
	return search.ParseStrategy(name)
}

func (s *Service) withTimeLimit(ctx context.Context, override time.Duration) (context.Context, context.CancelFunc) {
	limit := s.config.Search.TimeLimit
	if override > 0 {
		limit = override
	}
	if limit <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, limit)
}

func (s *Service) run(ctx context.Context, req PlanRequest, problem *search.Problem, strategy search.Strategy) (*PlanResponse, error) {
	opts := search.DefaultOptions()
	opts.MaxExpansions = s.config.Search.MaxExpansions
	if req.MaxExpansions > 0 {
		opts.MaxExpansions = req.MaxExpansions
	}
	opts.Logger = s.logger.With(slog.String("task", req.Document.Name))

	srch, err := search.New(problem, opts)
	if err != nil {
		return nil, err
	}
	res, err := srch.Run(ctx, strategy)
	if err != nil {
		return nil, err
	}

	resp := &PlanResponse{
		RunID:    res.RunID,
		Task:     req.Document.Name,
		TaskHash: req.Document.Hash(),
		Strategy: res.Strategy,
		Outcome:  res.Outcome,
		Reason:   res.Reason,
		Actions:  []string{},
		Stats:    res.Stats,
		Elapsed:  res.Elapsed,
	}
	if res.Plan != nil {
		for _, a := range srch.NamedActions(res.Plan) {
			resp.Actions = append(resp.Actions, a.String())
		}
		resp.Steps = res.Plan.Len()
		resp.Cost = res.Plan.Cost
	}

	s.record(ctx, resp)
	return resp, nil
}

func (s *Service) record(ctx context.Context, resp *PlanResponse) {
	if s.archive == nil {
		return
	}
	rec := &archive.Record{
		RunID:    resp.RunID,
		TaskName: resp.Task,
		TaskHash: resp.TaskHash,
		Strategy: resp.Strategy.String(),
		Outcome:  resp.Outcome.String(),
		Reason:   resp.Reason,
		Actions:  resp.Actions,
		Cost:     resp.Cost,
		Stats:    resp.Stats,
		Elapsed:  resp.Elapsed,
	}
	// The request context may already be past its deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.archive.Put(ctx, rec); err != nil {
		s.logger.Warn("archive write failed",
			slog.String("run_id", resp.RunID),
			slog.String("error", err.Error()),
		)
	}
}
