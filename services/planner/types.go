// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"time"

	"github.com/AleutianAI/AleutianStrips/services/planner/archive"
	"github.com/AleutianAI/AleutianStrips/services/planner/task"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// PlanBody is the request body for POST /v1/planner/plan and
// POST /v1/planner/compare.
type PlanBody struct {
	// Task is the planning task, in the same shape as a task file.
	Task *task.Document `json:"task" binding:"required"`

	// Strategy is "breadth_first" or "best_first". Ignored by compare.
	Strategy string `json:"strategy,omitempty"`

	// MaxExpansions overrides the configured budget when positive.
	MaxExpansions int `json:"max_expansions,omitempty" binding:"gte=0"`

	// TimeLimitMS overrides the configured time limit when positive.
	TimeLimitMS int64 `json:"time_limit_ms,omitempty" binding:"gte=0"`
}

// request converts the body to a PlanRequest.
func (b *PlanBody) request() PlanRequest {
	return PlanRequest{
		Document:      b.Task,
		Strategy:      b.Strategy,
		MaxExpansions: b.MaxExpansions,
		TimeLimit:     time.Duration(b.TimeLimitMS) * time.Millisecond,
	}
}

// ValidateBody is the request body for POST /v1/planner/validate.
type ValidateBody struct {
	Task *task.Document `json:"task" binding:"required"`
}

// RunsResponse lists archived runs.
type RunsResponse struct {
	Runs  []*archive.Record `json:"runs"`
	Count int               `json:"count"`
}

// HealthResponse is the response for GET /v1/planner/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Archive bool   `json:"archive"`
}

// ErrorResponse is the error body for all endpoints.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable code.
	Code string `json:"code,omitempty"`

	// Details locates the problem, such as the offending document field.
	Details string `json:"details,omitempty"`
}
