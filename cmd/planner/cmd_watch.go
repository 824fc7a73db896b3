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
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianStrips/services/planner"
	"github.com/AleutianAI/AleutianStrips/services/planner/task"
)

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 200 * time.Millisecond

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch TASK_FILE",
		Short: "Re-plan every time the task file changes",
		Long:  "watch plans once, then plans again after each save of the task file until interrupted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			replan := func() {
				a.replan(ctx, path)
			}
			replan()
			return watchFile(ctx, path, watchDebounce, a.logger.Slog(), replan)
		},
	}
}

// replan loads and plans path, printing the result or the error. Errors
// do not stop the watch; the next save gets another try.
func (a *app) replan(ctx context.Context, path string) {
	doc, err := task.Load(path)
	if err != nil {
		a.out.Error(err.Error())
		return
	}
	resp, err := a.svc.Plan(ctx, planner.PlanRequest{Document: doc})
	if err != nil {
		a.out.Error(err.Error())
		return
	}
	if a.opts.json {
		_ = writeJSON(a.stdout, resp)
		return
	}
	renderPlan(a.out, resp)
}

// watchFile calls onChange after path is written, created or renamed
// into place, once per debounce window. It watches the parent directory
// so editors that save via rename are still seen. Returns nil when ctx
// is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching task file", slog.String("path", abs))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", slog.String("error", err.Error()))

		case <-timer.C:
			logger.Debug("task file changed", slog.String("path", abs))
			onChange()
		}
	}
}
