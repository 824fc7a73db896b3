// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package symbols interns the names used by a planning task.
//
// Every predicate name, constant and operator name is replaced by a dense
// integer handle the first time it is seen. Handles are only meaningful in
// the Table that issued them.
package symbols

import (
	"errors"
	"fmt"
)

// ErrCapacityExceeded is returned when a table is asked to intern a new
// name after reaching its configured maximum.
var ErrCapacityExceeded = errors.New("symbol table capacity exceeded")

// Symbol is a handle to an interned name.
type Symbol uint32

// Table maps names to dense Symbol handles and back.
//
// Thread Safety: a Table is not safe for concurrent mutation. Once a task
// has been loaded the table is only read, and concurrent reads are safe.
type Table struct {
	max   int
	names []string
	index map[string]Symbol
}

// NewTable creates an empty table bounded at max names. A max of zero or
// less means unbounded.
func NewTable(max int) *Table {
	return &Table{
		max:   max,
		index: make(map[string]Symbol),
	}
}

// Intern returns the handle for name, assigning the next dense handle if
// the name is new.
func (t *Table) Intern(name string) (Symbol, error) {
	if s, ok := t.index[name]; ok {
		return s, nil
	}
	if t.max > 0 && len(t.names) >= t.max {
		return 0, fmt.Errorf("interning %q: %w (max %d)", name, ErrCapacityExceeded, t.max)
	}
	s := Symbol(len(t.names))
	t.names = append(t.names, name)
	t.index[name] = s
	return s, nil
}

// Lookup returns the handle for name without interning it.
func (t *Table) Lookup(name string) (Symbol, bool) {
	s, ok := t.index[name]
	return s, ok
}

// Name returns the name behind s. It panics if s was not issued by t.
func (t *Table) Name(s Symbol) string {
	return t.names[s]
}

// Names resolves a slice of handles.
func (t *Table) Names(syms []Symbol) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = t.names[s]
	}
	return out
}

// Len returns the number of interned names.
func (t *Table) Len() int {
	return len(t.names)
}

// Max returns the configured bound, zero when unbounded.
func (t *Table) Max() int {
	return t.max
}
