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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers the planner routes with the router.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/planner/plan     - Run one search
//	POST /v1/planner/compare  - Run both strategies on the same task
//	POST /v1/planner/validate - Compile a task without searching
//	GET  /v1/planner/runs     - List archived runs
//	GET  /v1/planner/runs/:id - Fetch one archived run
//	GET  /v1/planner/health   - Health check
//
// Example:
//
//	svc := planner.NewService(planner.DefaultConfig(), logger, nil)
//	v1 := router.Group("/v1")
//	planner.RegisterRoutes(v1, planner.NewHandlers(svc))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	p := rg.Group("/planner")
	{
		p.POST("/plan", handlers.HandlePlan)
		p.POST("/compare", handlers.HandleCompare)
		p.POST("/validate", handlers.HandleValidate)

		p.GET("/runs", handlers.HandleListRuns)
		p.GET("/runs/:id", handlers.HandleGetRun)

		p.GET("/health", handlers.HandleHealth)
	}
}

// RegisterMetrics exposes the Prometheus registry at GET /metrics.
func RegisterMetrics(r gin.IRoutes) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
