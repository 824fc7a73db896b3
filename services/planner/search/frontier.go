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
	"container/heap"

	"github.com/AleutianAI/AleutianStrips/services/planner/plan"
	"github.com/AleutianAI/AleutianStrips/services/planner/state"
)

// node is a frontier entry: a situation, the path that reached it, and the
// path cost.
type node struct {
	state state.Sorted
	path  plan.Path
	cost  float64
	seq   uint64
}

// frontier is the open list of a search strategy.
type frontier interface {
	push(n *node)
	pop() *node
	len() int
}

// fifo is the breadth-first frontier.
type fifo struct {
	items []*node
	head  int
}

func (q *fifo) push(n *node) {
	q.items = append(q.items, n)
}

func (q *fifo) pop() *node {
	n := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	// Reclaim the consumed prefix once it dominates the buffer.
	if q.head > 1024 && q.head*2 > len(q.items) {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return n
}

func (q *fifo) len() int {
	return len(q.items) - q.head
}

// nodeHeap orders nodes by cost, then by insertion order.
type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) {
	*h = append(*h, x.(*node))
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// priorityQueue is the best-first frontier.
type priorityQueue struct {
	h   nodeHeap
	seq uint64
}

func (q *priorityQueue) push(n *node) {
	n.seq = q.seq
	q.seq++
	heap.Push(&q.h, n)
}

func (q *priorityQueue) pop() *node {
	return heap.Pop(&q.h).(*node)
}

func (q *priorityQueue) len() int {
	return q.h.Len()
}
