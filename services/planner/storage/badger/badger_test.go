// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, db *DB, key, value string) {
	t.Helper()
	require.NoError(t, db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	}))
}

func get(t *testing.T, db *DB, key string) string {
	t.Helper()
	var out string
	require.NoError(t, db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		out = string(v)
		return err
	}))
	return out
}

func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.InMemory())
	assert.Empty(t, db.Path())

	put(t, db, "run/a", "1")
	assert.Equal(t, "1", get(t, db, "run/a"))
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = time.Hour

	db, err := Open(cfg)
	require.NoError(t, err)
	assert.Equal(t, dir, db.Path())
	put(t, db, "run/persist", "kept")
	require.NoError(t, db.Close())

	db2, err := Open(cfg)
	require.NoError(t, err)
	defer db2.Close()
	assert.Equal(t, "kept", get(t, db2, "run/persist"))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpen_InvalidGCRatio(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.GCDiscardRatio = 1.5
	_, err := Open(cfg)
	assert.Error(t, err)
}

func TestWithTxn_RollsBackOnError(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	err = db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		if err := txn.Set([]byte("k"), []byte("v")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("k"))
		return err
	})
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)
}

func TestWithTxn_CancelledContext(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = db.WithTxn(ctx, func(*badger.Txn) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_PrefixAndOrder(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	put(t, db, "run/h1/a", "1")
	put(t, db, "run/h1/b", "2")
	put(t, db, "run/h2/c", "3")
	put(t, db, "other", "x")

	collect := func(prefix string, reverse bool) []string {
		var keys []string
		require.NoError(t, db.Scan(context.Background(), []byte(prefix), reverse, func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		}))
		return keys
	}

	assert.Equal(t, []string{"run/h1/a", "run/h1/b", "run/h2/c"}, collect("run/", false))
	assert.Equal(t, []string{"run/h2/c", "run/h1/b", "run/h1/a"}, collect("run/", true))
	assert.Equal(t, []string{"run/h1/a", "run/h1/b"}, collect("run/h1/", false))
}

func TestScan_StopsOnError(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	put(t, db, "p/1", "")
	put(t, db, "p/2", "")

	stop := errors.New("stop")
	calls := 0
	err = db.Scan(context.Background(), []byte("p/"), false, func(_, _ []byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestClose_Twice(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	err = db.WithReadTxn(context.Background(), func(*badger.Txn) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}
