// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package archive keeps a history of finished planner runs in BadgerDB.
//
// Key layout:
//
//	run/{created_unix_nano}/{run_id}          -> Record (JSON)
//	task/{task_hash}/{created_unix_nano}/{run_id} -> primary key
//	id/{run_id}                               -> primary key
//
// Timestamps are zero-padded so byte order equals time order.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianStrips/services/planner/search"
	"github.com/AleutianAI/AleutianStrips/services/planner/storage/badger"
)

var (
	// ErrNotFound is returned when no record has the requested run id.
	ErrNotFound = errors.New("run not found")

	// ErrInvalidRecord is returned by Put for a record without a run id.
	ErrInvalidRecord = errors.New("invalid run record")
)

// Record is the archived summary of one search run.
type Record struct {
	RunID     string        `json:"run_id"`
	TaskName  string        `json:"task_name"`
	TaskHash  string        `json:"task_hash"`
	Strategy  string        `json:"strategy"`
	Outcome   string        `json:"outcome"`
	Reason    string        `json:"reason,omitempty"`
	Actions   []string      `json:"actions,omitempty"`
	Cost      float64       `json:"cost"`
	Stats     search.Stats  `json:"stats"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// Archive stores Records.
//
// Thread Safety: Safe for concurrent use.
type Archive struct {
	db *badger.DB
}

// New wraps an open database. The caller keeps ownership of db.
func New(db *badger.DB) *Archive {
	return &Archive{db: db}
}

func primaryKey(r *Record) []byte {
	return fmt.Appendf(nil, "run/%020d/%s", r.CreatedAt.UnixNano(), r.RunID)
}

func taskKey(r *Record) []byte {
	return fmt.Appendf(nil, "task/%s/%020d/%s", r.TaskHash, r.CreatedAt.UnixNano(), r.RunID)
}

func idKey(runID string) []byte {
	return []byte("id/" + runID)
}

// Put stores r. A zero CreatedAt is set to now.
func (a *Archive) Put(ctx context.Context, r *Record) error {
	if r.RunID == "" {
		return fmt.Errorf("%w: missing run id", ErrInvalidRecord)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	pk := primaryKey(r)

	return a.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		if err := txn.Set(pk, data); err != nil {
			return err
		}
		if err := txn.Set(idKey(r.RunID), pk); err != nil {
			return err
		}
		if r.TaskHash != "" {
			return txn.Set(taskKey(r), pk)
		}
		return nil
	})
}

// Get returns the record for runID, or ErrNotFound.
func (a *Archive) Get(ctx context.Context, runID string) (*Record, error) {
	var rec *Record
	err := a.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		pk, err := value(txn, idKey(runID))
		if err != nil {
			return err
		}
		rec, err = load(txn, pk)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return rec, err
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (a *Archive) List(ctx context.Context, limit int) ([]*Record, error) {
	var out []*Record
	err := a.db.Scan(ctx, []byte("run/"), true, func(_, v []byte) error {
		if limit > 0 && len(out) >= limit {
			return errStop
		}
		var r Record
		if err := json.Unmarshal(v, &r); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		out = append(out, &r)
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return out, nil
}

// ListByTask returns up to limit records for one task hash, newest first.
func (a *Archive) ListByTask(ctx context.Context, taskHash string, limit int) ([]*Record, error) {
	var keys [][]byte
	err := a.db.Scan(ctx, []byte("task/"+taskHash+"/"), true, func(_, pk []byte) error {
		if limit > 0 && len(keys) >= limit {
			return errStop
		}
		keys = append(keys, pk)
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}

	out := make([]*Record, 0, len(keys))
	err = a.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		for _, pk := range keys {
			r, err := load(txn, pk)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var errStop = errors.New("stop scan")

func value(txn *badgerdb.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func load(txn *badgerdb.Txn, pk []byte) (*Record, error) {
	data, err := value(txn, pk)
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &r, nil
}
