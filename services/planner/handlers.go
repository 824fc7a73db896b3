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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianStrips/services/planner/archive"
	"github.com/AleutianAI/AleutianStrips/services/planner/facts"
	"github.com/AleutianAI/AleutianStrips/services/planner/search"
	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
	"github.com/AleutianAI/AleutianStrips/services/planner/task"
)

// maxListLimit caps GET /v1/planner/runs.
const maxListLimit = 500

// Handlers serves the planner HTTP API.
type Handlers struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandlers creates handlers backed by svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc, logger: svc.logger}
}

// HandlePlan handles POST /v1/planner/plan.
//
// Response:
//
//	200 OK: PlanResponse for every outcome, including exhausted and incomplete
//	400 Bad Request: Malformed body or unknown strategy
//	422 Unprocessable Entity: Invalid task or capacity exceeded
//	500 Internal Server Error: Unexpected failure
func (h *Handlers) HandlePlan(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandlePlan")

	var body PlanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.svc.Plan(c.Request.Context(), body.request())
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleCompare handles POST /v1/planner/compare.
//
// Response:
//
//	200 OK: CompareResponse
//	400 Bad Request: Malformed body
//	422 Unprocessable Entity: Invalid task or capacity exceeded
func (h *Handlers) HandleCompare(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleCompare")

	var body PlanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.svc.Compare(c.Request.Context(), body.request())
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleValidate handles POST /v1/planner/validate.
//
// Response:
//
//	200 OK: ValidationReport
//	400 Bad Request: Malformed body
//	422 Unprocessable Entity: Invalid task
func (h *Handlers) HandleValidate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleValidate")

	var body ValidateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	report, err := h.svc.Validate(c.Request.Context(), body.Task)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleListRuns handles GET /v1/planner/runs?task=<hash>&limit=<n>.
func (h *Handlers) HandleListRuns(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleListRuns")

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  "INVALID_LIMIT",
			})
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := h.svc.History(c.Request.Context(), c.Query("task"), limit)
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	if runs == nil {
		runs = []*archive.Record{}
	}
	c.JSON(http.StatusOK, RunsResponse{Runs: runs, Count: len(runs)})
}

// HandleGetRun handles GET /v1/planner/runs/:id.
func (h *Handlers) HandleGetRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleGetRun")

	rec, err := h.svc.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleHealth handles GET /v1/planner/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
		Archive: h.svc.archive != nil,
	})
}

// fail maps service errors to HTTP responses.
func (h *Handlers) fail(c *gin.Context, logger *slog.Logger, err error) {
	status, resp := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Warn("Request rejected", "code", resp.Code, "error", err)
	}
	c.JSON(status, resp)
}

func classify(err error) (int, ErrorResponse) {
	var le *task.LoadError
	switch {
	case errors.Is(err, symbols.ErrCapacityExceeded), errors.Is(err, facts.ErrCapacityExceeded):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "CAPACITY_EXCEEDED"}
	case errors.As(err, &le):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: le.Err.Error(), Code: "INVALID_TASK", Details: le.Field}
	case errors.Is(err, task.ErrInvalidDocument):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "INVALID_TASK"}
	case errors.Is(err, search.ErrUnknownStrategy):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "UNKNOWN_STRATEGY"}
	case errors.Is(err, ErrArchiveDisabled):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "ARCHIVE_DISABLED"}
	case errors.Is(err, archive.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "RUN_NOT_FOUND"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "INTERNAL"}
	}
}

// getOrCreateRequestID echoes X-Request-ID or assigns a new one.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
