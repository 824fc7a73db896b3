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
)

func (a *app) historyCmd() *cobra.Command {
	var (
		taskHash string
		limit    int
	)
	cmd := &cobra.Command{
		Use:         "history [RUN_ID]",
		Short:       "List archived runs, or show one run",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"archive": "required"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				rec, err := a.svc.Run(ctx, args[0])
				if err != nil {
					return err
				}
				if a.opts.json {
					return writeJSON(a.stdout, rec)
				}
				renderRecord(a.out, rec)
				return nil
			}

			records, err := a.svc.History(ctx, taskHash, limit)
			if err != nil {
				return err
			}
			if a.opts.json {
				return writeJSON(a.stdout, records)
			}
			renderRecords(a.out, records)
			return nil
		},
	}
	cmd.Flags().StringVar(&taskHash, "task", "", "only runs of the task with this hash")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}
