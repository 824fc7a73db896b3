// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command planner solves STRIPS planning tasks.
//
// Usage:
//
//	planner plan task.yaml
//	planner plan task.yaml --strategy best_first --max-expansions 100000
//	planner compare task.yaml
//	planner validate task.yaml
//	planner watch task.yaml
//	planner serve --addr :12230 --archive
//	planner history --task 3f2a9c0d1e4b5a6f
//
// Exit codes:
//
//	0  solved, or the goal already held
//	1  error (bad flags, bad task file, I/O)
//	2  exhausted: no plan exists
//	3  incomplete: a budget ran out
//
// Example requests against serve:
//
//	curl http://localhost:12230/v1/planner/health
//
//	curl -X POST http://localhost:12230/v1/planner/plan \
//	  -H "Content-Type: application/json" \
//	  -d '{"task": {...}, "strategy": "best_first"}'
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
