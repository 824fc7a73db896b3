// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"github.com/AleutianAI/AleutianStrips/services/planner/state"
)

// seenEntry records the best known cost of a situation.
type seenEntry struct {
	state  state.Sorted
	cost   float64
	closed bool
}

// seenTable is the de-duplication table. Situations are bucketed by hash
// and confirmed with state.Compare. Entries are never removed during a run.
type seenTable struct {
	buckets map[uint64][]*seenEntry
	size    int
}

func newSeenTable() *seenTable {
	return &seenTable{buckets: make(map[uint64][]*seenEntry)}
}

func (t *seenTable) get(s state.Sorted) (*seenEntry, bool) {
	for _, e := range t.buckets[s.Hash()] {
		if state.Compare(e.state, s) == 0 {
			return e, true
		}
	}
	return nil, false
}

// put records s at cost, or lowers the cost of an existing entry.
func (t *seenTable) put(s state.Sorted, cost float64) *seenEntry {
	h := s.Hash()
	for _, e := range t.buckets[h] {
		if state.Compare(e.state, s) == 0 {
			if cost < e.cost {
				e.cost = cost
			}
			return e
		}
	}
	e := &seenEntry{state: s, cost: cost}
	t.buckets[h] = append(t.buckets[h], e)
	t.size++
	return e
}

func (t *seenTable) len() int {
	return t.size
}
