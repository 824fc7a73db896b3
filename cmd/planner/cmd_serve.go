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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/AleutianStrips/services/planner"
	"github.com/AleutianAI/AleutianStrips/services/planner/telemetry"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:         "serve",
		Short:       "Serve the planner HTTP API",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"server": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.config.Server.Addr = addr
			}
			router, err := a.router()
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), router)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :12230)")
	return cmd
}

// router builds the gin engine with middleware and routes.
func (a *app) router() (*gin.Engine, error) {
	if a.config.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if a.config.Server.Debug {
		router.Use(gin.Logger())
	}

	httpMetrics, err := telemetry.NewHTTPMetrics(otel.Meter("planner"))
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}
	router.Use(telemetry.Middleware("planner", httpMetrics)...)

	v1 := router.Group("/v1")
	planner.RegisterRoutes(v1, planner.NewHandlers(a.svc))
	if a.config.Observability.MetricsEnabled {
		planner.RegisterMetrics(router)
	}
	return router, nil
}

// serve runs the HTTP server until ctx is done, then drains in-flight
// requests.
func (a *app) serve(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              a.config.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting planner server",
			slog.String("address", srv.Addr),
			slog.String("version", planner.ServiceVersion))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down planner server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
