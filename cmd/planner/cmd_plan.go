// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianStrips/services/planner"
	"github.com/AleutianAI/AleutianStrips/services/planner/search"
	"github.com/AleutianAI/AleutianStrips/services/planner/task"
)

func (a *app) planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan TASK_FILE",
		Short: "Search for a plan that reaches the task goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := task.Load(args[0])
			if err != nil {
				return err
			}
			resp, err := a.svc.Plan(cmd.Context(), planner.PlanRequest{Document: doc})
			if err != nil {
				return err
			}
			if a.opts.json {
				if err := writeJSON(a.stdout, resp); err != nil {
					return err
				}
			} else {
				renderPlan(a.out, resp)
			}
			return exitForOutcome(resp.Outcome)
		},
	}
}

func (a *app) compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare TASK_FILE",
		Short: "Run breadth-first and best-first search side by side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := task.Load(args[0])
			if err != nil {
				return err
			}
			resp, err := a.svc.Compare(cmd.Context(), planner.PlanRequest{Document: doc})
			if err != nil {
				return err
			}
			if a.opts.json {
				return writeJSON(a.stdout, resp)
			}
			renderCompare(a.out, resp)
			return nil
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate TASK_FILE",
		Short: "Check that a task file loads and compiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := task.Load(args[0])
			if err != nil {
				return err
			}
			report, err := a.svc.Validate(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if a.opts.json {
				return writeJSON(a.stdout, report)
			}
			renderValidation(a.out, report)
			return nil
		},
	}
}

// exitForOutcome maps unsolved outcomes to their exit codes. The outcome
// has already been printed, so the error carries no message.
func exitForOutcome(o search.Outcome) error {
	switch o {
	case search.Exhausted:
		return &exitCodeError{code: exitExhausted}
	case search.Incomplete:
		return &exitCodeError{code: exitIncomplete}
	default:
		return nil
	}
}
