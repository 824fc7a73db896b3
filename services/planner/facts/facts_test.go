// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package facts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

func newAtom(t *testing.T, tbl *symbols.Table, pred string, args ...string) Atom {
	t.Helper()
	p, err := tbl.Intern(pred)
	require.NoError(t, err)
	a := Atom{Predicate: p}
	for _, arg := range args {
		s, err := tbl.Intern(arg)
		require.NoError(t, err)
		a.Args = append(a.Args, s)
	}
	return a
}

func TestStore_InternFindOrInsert(t *testing.T) {
	tbl := symbols.NewTable(0)
	st := NewStore(0)

	atA := newAtom(t, tbl, "at", "a")
	atB := newAtom(t, tbl, "at", "b")

	h1, err := st.Intern(atA)
	require.NoError(t, err)
	h2, err := st.Intern(atB)
	require.NoError(t, err)
	h3, err := st.Intern(newAtom(t, tbl, "at", "a"))
	require.NoError(t, err)

	assert.Equal(t, Handle(0), h1)
	assert.Equal(t, Handle(1), h2)
	assert.Equal(t, h1, h3, "equal atoms must share one handle")
	assert.Equal(t, 2, st.Len())
	assert.True(t, st.Atom(h2).Equal(atB))
	assert.Equal(t, "at(b)", st.Atom(h2).Format(tbl))
}

func TestStore_InternCopiesArgs(t *testing.T) {
	tbl := symbols.NewTable(0)
	st := NewStore(0)
	a := newAtom(t, tbl, "on", "x", "y")

	h, err := st.Intern(a)
	require.NoError(t, err)
	a.Args[0] = a.Args[1]

	got := st.Atom(h)
	assert.Equal(t, "on(x,y)", got.Format(tbl))
}

func TestStore_FindDoesNotInsert(t *testing.T) {
	tbl := symbols.NewTable(0)
	st := NewStore(0)
	a := newAtom(t, tbl, "clear", "x")

	_, ok := st.Find(a.Predicate, a.Args)
	assert.False(t, ok)
	assert.Equal(t, 0, st.Len())

	h, _ := st.Intern(a)
	got, ok := st.Find(a.Predicate, a.Args)
	assert.True(t, ok)
	assert.Equal(t, h, got)
}

func TestStore_Capacity(t *testing.T) {
	tbl := symbols.NewTable(0)
	st := NewStore(1)

	_, err := st.Intern(newAtom(t, tbl, "p", "a"))
	require.NoError(t, err)
	_, err = st.Intern(newAtom(t, tbl, "p", "b"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
}

func TestStore_Fork(t *testing.T) {
	tbl := symbols.NewTable(0)
	base := NewStore(0)
	hA, _ := base.Intern(newAtom(t, tbl, "at", "a"))
	base.Freeze()

	t.Run("frozen base rejects new atoms", func(t *testing.T) {
		_, err := base.Intern(newAtom(t, tbl, "at", "z"))
		assert.ErrorIs(t, err, ErrFrozen)
	})

	t.Run("fork sees base atoms and extends densely", func(t *testing.T) {
		f := base.Fork()
		got, err := f.Intern(newAtom(t, tbl, "at", "a"))
		require.NoError(t, err)
		assert.Equal(t, hA, got)

		hB, err := f.Intern(newAtom(t, tbl, "at", "b"))
		require.NoError(t, err)
		assert.Equal(t, Handle(1), hB)
		assert.Equal(t, 2, f.Len())
		assert.Equal(t, 1, base.Len(), "base is untouched")
		assert.Equal(t, "at(b)", f.Atom(hB).Format(tbl))
		assert.Equal(t, "at(a)", f.Atom(hA).Format(tbl))
	})

	t.Run("independent forks do not see each other", func(t *testing.T) {
		f1 := base.Fork()
		f2 := base.Fork()
		b := newAtom(t, tbl, "at", "b")
		_, err := f1.Intern(b)
		require.NoError(t, err)
		_, ok := f2.Find(b.Predicate, b.Args)
		assert.False(t, ok)
	})

	t.Run("fork of unfrozen store panics", func(t *testing.T) {
		assert.Panics(t, func() { NewStore(0).Fork() })
	})
}
