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
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/AleutianAI/AleutianStrips/pkg/ux"
	"github.com/AleutianAI/AleutianStrips/services/planner"
	"github.com/AleutianAI/AleutianStrips/services/planner/archive"
	"github.com/AleutianAI/AleutianStrips/services/planner/search"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderPlan(p *ux.Printer, resp *planner.PlanResponse) {
	p.Title(fmt.Sprintf("%s (%s)", resp.Task, resp.Strategy))
	switch resp.Outcome {
	case search.TrivialSuccess:
		p.Success("goal already holds in the initial situation")
	case search.Success:
		p.Success(fmt.Sprintf("solved in %d steps, cost %g", resp.Steps, resp.Cost))
		p.Steps(resp.Actions)
	case search.Exhausted:
		p.Warning("no plan exists: every reachable situation was expanded")
	case search.Incomplete:
		p.Warning(fmt.Sprintf("search stopped early (%s): solvability unknown", resp.Reason))
	}
	p.Box("Stats", statsLines(resp.Stats, resp.Elapsed))
	if resp.RunID != "" {
		p.KeyValue("run", resp.RunID)
	}
}

func statsLines(s search.Stats, elapsed time.Duration) []string {
	return []string{
		fmt.Sprintf("expansions   %d", s.Expansions),
		fmt.Sprintf("generated    %d", s.Generated),
		fmt.Sprintf("duplicates   %d", s.Duplicates),
		fmt.Sprintf("stored       %d", s.Stored),
		fmt.Sprintf("max frontier %d", s.MaxFrontier),
		fmt.Sprintf("elapsed      %s", elapsed.Round(time.Microsecond)),
	}
}

func renderCompare(p *ux.Printer, resp *planner.CompareResponse) {
	p.Title(fmt.Sprintf("%s: breadth-first vs best-first", resp.Task))
	for _, r := range []*planner.PlanResponse{resp.BreadthFirst, resp.BestFirst} {
		line := fmt.Sprintf("%-13s %-10s steps=%d cost=%g expansions=%d",
			r.Strategy, r.Outcome, r.Steps, r.Cost, r.Stats.Expansions)
		if r.Outcome.Solved() {
			p.Success(line)
		} else {
			p.Warning(line)
		}
	}
	if resp.BreadthFirst.Outcome == search.Success && resp.BestFirst.Outcome == search.Success &&
		resp.BestFirst.Cost < resp.BreadthFirst.Cost {
		p.KeyValue("saving", resp.BreadthFirst.Cost-resp.BestFirst.Cost)
	}
}

func renderValidation(p *ux.Printer, r *planner.ValidationReport) {
	p.Success(fmt.Sprintf("%s compiles", r.Task))
	p.KeyValue("hash", r.TaskHash)
	p.KeyValue("symbols", r.Symbols)
	p.KeyValue("facts", r.Facts)
	p.KeyValue("operators", r.Operators)
	p.KeyValue("initial", r.InitialLen)
	p.KeyValue("goal", r.GoalLen)
	if r.Trivial {
		p.Warning("goal already holds in the initial situation")
	}
}

func renderRecords(p *ux.Printer, records []*archive.Record) {
	if len(records) == 0 {
		p.Warning("no archived runs")
		return
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  %s  %-13s %-10s steps=%d cost=%g",
			r.CreatedAt.Format(time.RFC3339), r.RunID, r.Strategy, r.Outcome, len(r.Actions), r.Cost)
		p.KeyValue(r.TaskName, line)
	}
}

func renderRecord(p *ux.Printer, r *archive.Record) {
	p.Title(fmt.Sprintf("%s (%s)", r.TaskName, r.Strategy))
	p.KeyValue("run", r.RunID)
	p.KeyValue("task hash", r.TaskHash)
	p.KeyValue("outcome", r.Outcome)
	if r.Reason != "" {
		p.KeyValue("reason", r.Reason)
	}
	p.KeyValue("created", r.CreatedAt.Format(time.RFC3339))
	if len(r.Actions) > 0 {
		p.Steps(r.Actions)
	}
	p.Box("Stats", statsLines(r.Stats, r.Elapsed))
}
