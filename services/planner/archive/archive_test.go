// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianStrips/services/planner/search"
	"github.com/AleutianAI/AleutianStrips/services/planner/storage/badger"
)

func newArchive(t *testing.T) *Archive {
	t.Helper()
	db, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func record(id, hash string, at time.Time) *Record {
	return &Record{
		RunID:     id,
		TaskName:  "line",
		TaskHash:  hash,
		Strategy:  "breadth_first",
		Outcome:   "solved",
		Actions:   []string{"move(a,b)", "move(b,c)"},
		Cost:      2,
		Stats:     search.Stats{Expansions: 2, Generated: 2, Stored: 3},
		Elapsed:   time.Millisecond,
		CreatedAt: at,
	}
}

func TestArchive_PutGet(t *testing.T) {
	a := newArchive(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, a.Put(ctx, record("r1", "h1", at)))

	got, err := a.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, []string{"move(a,b)", "move(b,c)"}, got.Actions)
	assert.Equal(t, 3, got.Stats.Stored)
	assert.True(t, at.Equal(got.CreatedAt))
}

func TestArchive_GetMissing(t *testing.T) {
	a := newArchive(t)
	_, err := a.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchive_PutRequiresRunID(t *testing.T) {
	a := newArchive(t)
	err := a.Put(context.Background(), &Record{TaskName: "x"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestArchive_PutStampsCreatedAt(t *testing.T) {
	a := newArchive(t)
	r := &Record{RunID: "r1"}
	require.NoError(t, a.Put(context.Background(), r))
	assert.False(t, r.CreatedAt.IsZero())
}

func TestArchive_ListNewestFirst(t *testing.T) {
	a := newArchive(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, a.Put(ctx, record("r1", "h1", base)))
	require.NoError(t, a.Put(ctx, record("r2", "h2", base.Add(time.Minute))))
	require.NoError(t, a.Put(ctx, record("r3", "h1", base.Add(2*time.Minute))))

	all, err := a.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, ids(all))

	limited, err := a.List(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2"}, ids(limited))

	byTask, err := a.ListByTask(ctx, "h1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r1"}, ids(byTask))

	none, err := a.ListByTask(ctx, "h9", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func ids(rs []*Record) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.RunID
	}
	return out
}
