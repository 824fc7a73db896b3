// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package facts interns ground atoms.
//
// A ground atom is a predicate applied to constant arguments. Each distinct
// atom receives a dense Handle, so a situation can be stored as a set of
// small integers.
//
// # Sharing
//
// A loaded task freezes its store. Searches never write to the frozen store;
// each one works on a Fork, which layers new atoms on top of the shared base.
// Handles stay dense across the base and the fork, so a handle issued by the
// base means the same atom in every fork.
package facts

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

var (
	// ErrCapacityExceeded is returned when a new atom would exceed the
	// configured bound on distinct ground atoms.
	ErrCapacityExceeded = errors.New("ground fact capacity exceeded")

	// ErrFrozen is returned when interning a new atom into a frozen store.
	ErrFrozen = errors.New("fact store is frozen")
)

// Handle identifies an interned ground atom.
type Handle uint32

// Atom is a ground atom: a predicate and its constant arguments.
type Atom struct {
	Predicate symbols.Symbol
	Args      []symbols.Symbol
}

// Equal reports whether a and b denote the same ground atom.
func (a Atom) Equal(b Atom) bool {
	if a.Predicate != b.Predicate || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return false
		}
	}
	return true
}

// Format renders the atom as "pred(a,b)" using tbl for names.
func (a Atom) Format(tbl *symbols.Table) string {
	var sb strings.Builder
	sb.WriteString(tbl.Name(a.Predicate))
	sb.WriteByte('(')
	for i, arg := range a.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(tbl.Name(arg))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Store is a find-or-insert table of ground atoms.
//
// Thread Safety: a frozen Store is safe for concurrent reads and concurrent
// Fork calls. An unfrozen Store must be owned by a single goroutine.
type Store struct {
	limit   int
	base    *Store
	baseLen int
	atoms   []Atom
	index   map[string]Handle
	frozen  bool
}

// NewStore creates an empty store bounded at limit atoms. A limit of zero
// or less means unbounded.
func NewStore(limit int) *Store {
	return &Store{
		limit: limit,
		index: make(map[string]Handle),
	}
}

// Intern returns the handle for atom, inserting it if it is new.
func (s *Store) Intern(atom Atom) (Handle, error) {
	if h, ok := s.Find(atom.Predicate, atom.Args); ok {
		return h, nil
	}
	if s.frozen {
		return 0, ErrFrozen
	}
	if s.limit > 0 && s.Len() >= s.limit {
		return 0, fmt.Errorf("%w (limit %d)", ErrCapacityExceeded, s.limit)
	}
	h := Handle(s.Len())
	stored := Atom{Predicate: atom.Predicate, Args: append([]symbols.Symbol(nil), atom.Args...)}
	s.atoms = append(s.atoms, stored)
	s.index[key(stored.Predicate, stored.Args)] = h
	return h, nil
}

// Find looks up an atom without inserting it.
func (s *Store) Find(pred symbols.Symbol, args []symbols.Symbol) (Handle, bool) {
	k := key(pred, args)
	for st := s; st != nil; st = st.base {
		if h, ok := st.index[k]; ok {
			return h, true
		}
	}
	return 0, false
}

// Atom returns the atom behind h. It panics if h was not issued by this
// store or one of its bases.
func (s *Store) Atom(h Handle) Atom {
	if int(h) < s.baseLen {
		return s.base.Atom(h)
	}
	return s.atoms[int(h)-s.baseLen]
}

// Predicate is a shortcut for Atom(h).Predicate.
func (s *Store) Predicate(h Handle) symbols.Symbol {
	return s.Atom(h).Predicate
}

// Len returns the number of atoms visible through this store.
func (s *Store) Len() int {
	return s.baseLen + len(s.atoms)
}

// Limit returns the configured bound, zero when unbounded.
func (s *Store) Limit() int {
	return s.limit
}

// Freeze makes the store read-only. It is idempotent.
func (s *Store) Freeze() {
	s.frozen = true
}

// Frozen reports whether Freeze has been called.
func (s *Store) Frozen() bool {
	return s.frozen
}

// Fork returns a writable store layered on s. The receiver must be frozen;
// forking a writable store panics because the two could then issue the same
// handle for different atoms.
func (s *Store) Fork() *Store {
	if !s.frozen {
		panic("facts: Fork of unfrozen store")
	}
	return &Store{
		limit:   s.limit,
		base:    s,
		baseLen: s.Len(),
		index:   make(map[string]Handle),
	}
}

func key(pred symbols.Symbol, args []symbols.Symbol) string {
	buf := make([]byte, 4*(len(args)+1))
	binary.LittleEndian.PutUint32(buf, uint32(pred))
	for i, a := range args {
		binary.LittleEndian.PutUint32(buf[4*(i+1):], uint32(a))
	}
	return string(buf)
}
