// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics holds the request instruments recorded by Middleware.
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

// NewHTTPMetrics creates the instruments on meter.
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}
	var err error

	m.requests, err = meter.Int64Counter(
		"planner_http_requests_total",
		metric.WithDescription("HTTP requests handled by the planner API"),
	)
	if err != nil {
		return nil, fmt.Errorf("create requests counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram(
		"planner_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	m.active, err = meter.Int64UpDownCounter(
		"planner_http_active_requests",
		metric.WithDescription("HTTP requests in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("create active gauge: %w", err)
	}
	return m, nil
}

// Middleware returns the gin handlers that trace and measure requests.
//
// Spans come from otelgin. Metrics are labelled with the route template
// (c.FullPath), not the raw URL, so run ids do not explode cardinality.
func Middleware(service string, metrics *HTTPMetrics) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(service, otelgin.WithTracerProvider(otel.GetTracerProvider())),
		metrics.handle,
	}
}

func (m *HTTPMetrics) handle(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()

	m.active.Add(ctx, 1)
	defer m.active.Add(ctx, -1)

	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	attrs := metric.WithAttributes(
		attribute.String("method", c.Request.Method),
		attribute.String("route", route),
		attribute.Int("status", c.Writer.Status()),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}
