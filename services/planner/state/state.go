// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package state represents situations, the sets of ground atoms that hold at
// a point of the search.
//
// Two views exist. Sorted is the canonical, comparable form used as a
// de-duplication key and for goal tests. Bitset gives O(1) insert and erase
// while a successor is being built. ToBitset and Bitset.ToSorted convert
// between them.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/AleutianAI/AleutianStrips/services/planner/facts"
)

// ErrCapacityExceeded is returned when a handle does not fit the bitset bound.
var ErrCapacityExceeded = errors.New("situation capacity exceeded")

// =============================================================================
// Sorted
// =============================================================================

// Sorted is a strictly ascending list of fact handles.
type Sorted []facts.Handle

// NewSorted sorts and de-duplicates hs into a canonical situation.
func NewSorted(hs ...facts.Handle) Sorted {
	s := slices.Clone(hs)
	slices.Sort(s)
	return Sorted(slices.Compact(s))
}

// Compare orders situations by size first, then lexicographically.
// It returns -1, 0 or +1.
func Compare(a, b Sorted) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return slices.Compare(a, b)
}

// Equal reports whether a and b hold the same atoms.
func (s Sorted) Equal(o Sorted) bool {
	return Compare(s, o) == 0
}

// Contains reports whether h is in s.
func (s Sorted) Contains(h facts.Handle) bool {
	_, ok := slices.BinarySearch(s, h)
	return ok
}

// Clone returns an independent copy.
func (s Sorted) Clone() Sorted {
	return slices.Clone(s)
}

// Hash returns a 64-bit digest of the situation.
func (s Sorted) Hash() uint64 {
	d := xxhash.New()
	var buf [4]byte
	for _, h := range s {
		binary.LittleEndian.PutUint32(buf[:], uint32(h))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// GoalIncludedIn reports whether every atom of goal is in current.
//
// Both inputs must be canonical. The test is a single merge pass and
// returns early when goal is larger than current.
func GoalIncludedIn(current, goal Sorted) bool {
	if len(goal) > len(current) {
		return false
	}
	i := 0
	for _, g := range goal {
		for i < len(current) && current[i] < g {
			i++
		}
		if i == len(current) || current[i] != g {
			return false
		}
		i++
	}
	return true
}

// =============================================================================
// Bitset
// =============================================================================

// Bitset is a bounded set of fact handles. Storage grows with the highest
// handle inserted, so clones of small situations stay small even when the
// bound is large.
type Bitset struct {
	words []uint64
	limit int
	count int
}

// NewBitset returns an empty set able to hold handles below limit. A limit
// of zero or less means unbounded.
func NewBitset(limit int) *Bitset {
	return &Bitset{limit: limit}
}

// ToBitset converts s into a bitset bounded at limit.
func ToBitset(s Sorted, limit int) (*Bitset, error) {
	b := NewBitset(limit)
	if len(s) > 0 && (limit <= 0 || int(s[len(s)-1]) < limit) {
		b.words = make([]uint64, int(s[len(s)-1])>>6+1)
	}
	for _, h := range s {
		if err := b.Insert(h); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Contains reports whether h is in the set.
func (b *Bitset) Contains(h facts.Handle) bool {
	w := int(h >> 6)
	if w >= len(b.words) {
		return false
	}
	return b.words[w]&(1<<(h&63)) != 0
}

// Insert adds h to the set.
func (b *Bitset) Insert(h facts.Handle) error {
	if b.limit > 0 && int(h) >= b.limit {
		return fmt.Errorf("handle %d: %w (limit %d)", h, ErrCapacityExceeded, b.limit)
	}
	w, m := int(h>>6), uint64(1)<<(h&63)
	if w >= len(b.words) {
		b.words = append(b.words, make([]uint64, w+1-len(b.words))...)
	}
	if b.words[w]&m == 0 {
		b.words[w] |= m
		b.count++
	}
	return nil
}

// Erase removes h from the set if present.
func (b *Bitset) Erase(h facts.Handle) {
	w, m := int(h>>6), uint64(1)<<(h&63)
	if w >= len(b.words) {
		return
	}
	if b.words[w]&m != 0 {
		b.words[w] &^= m
		b.count--
	}
}

// Len returns the number of handles in the set.
func (b *Bitset) Len() int {
	return b.count
}

// Limit returns the bound the set was created with.
func (b *Bitset) Limit() int {
	return b.limit
}

// Clone returns an independent copy.
func (b *Bitset) Clone() *Bitset {
	return &Bitset{
		words: slices.Clone(b.words),
		limit: b.limit,
		count: b.count,
	}
}

// ToSorted returns the canonical form, scanning from low to high handles.
func (b *Bitset) ToSorted() Sorted {
	out := make(Sorted, 0, b.count)
	for wi, w := range b.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			out = append(out, facts.Handle(wi*64+tz))
			w &= w - 1
		}
	}
	return out
}
