// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package plan records the action sequences found by the search.
//
// A step of a plan is a ground operator instance, its Signature. Signatures
// are interned once in a Signatures store and paths refer to them by
// handle, so a frontier entry carries a slice of small integers.
package plan

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianStrips/services/planner/state"
	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

// Signature identifies a ground operator instance.
type Signature struct {
	Operator symbols.Symbol
	Args     []symbols.Symbol
}

// SignatureHandle refers to a Signature in a Signatures store.
type SignatureHandle uint32

// Signatures interns operator signatures.
//
// Thread Safety: not safe for concurrent use. Each search owns its store.
type Signatures struct {
	sigs  []Signature
	index map[string]SignatureHandle
}

// NewSignatures returns an empty store.
func NewSignatures() *Signatures {
	return &Signatures{index: make(map[string]SignatureHandle)}
}

// Intern returns the handle for the signature (op, args), copying args if new.
func (s *Signatures) Intern(op symbols.Symbol, args []symbols.Symbol) SignatureHandle {
	k := sigKey(op, args)
	if h, ok := s.index[k]; ok {
		return h
	}
	h := SignatureHandle(len(s.sigs))
	s.sigs = append(s.sigs, Signature{Operator: op, Args: append([]symbols.Symbol(nil), args...)})
	s.index[k] = h
	return h
}

// Get returns the signature behind h.
func (s *Signatures) Get(h SignatureHandle) Signature {
	return s.sigs[h]
}

// Len returns the number of interned signatures.
func (s *Signatures) Len() int {
	return len(s.sigs)
}

func sigKey(op symbols.Symbol, args []symbols.Symbol) string {
	buf := make([]byte, 4*(len(args)+1))
	binary.LittleEndian.PutUint32(buf, uint32(op))
	for i, a := range args {
		binary.LittleEndian.PutUint32(buf[4*(i+1):], uint32(a))
	}
	return string(buf)
}

// Path is an ordered list of signature handles.
type Path []SignatureHandle

// Extend returns a new path with h appended. The receiver is never
// modified, so sibling branches cannot observe each other's steps.
func (p Path) Extend(h SignatureHandle) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = h
	return out
}

// Plan is a solution: the steps, the situation they reach, and their cost.
type Plan struct {
	Steps Path
	State state.Sorted
	Cost  float64
}

// Len returns the number of actions.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Steps)
}

// Action is a resolved plan step.
type Action struct {
	Operator symbols.Symbol
	Args     []symbols.Symbol
}

// Actions resolves every step of p against sigs.
func Actions(p *Plan, sigs *Signatures) []Action {
	if p == nil {
		return nil
	}
	out := make([]Action, len(p.Steps))
	for i, h := range p.Steps {
		sig := sigs.Get(h)
		out[i] = Action{Operator: sig.Operator, Args: sig.Args}
	}
	return out
}

// NamedAction is an Action with names resolved.
type NamedAction struct {
	Operator string   `json:"operator" yaml:"operator"`
	Args     []string `json:"args" yaml:"args"`
}

// String renders the action as "op(a,b)".
func (a NamedAction) String() string {
	return fmt.Sprintf("%s(%s)", a.Operator, strings.Join(a.Args, ","))
}

// Named resolves the symbols of actions against tbl.
func Named(actions []Action, tbl *symbols.Table) []NamedAction {
	out := make([]NamedAction, len(actions))
	for i, a := range actions {
		out[i] = NamedAction{Operator: tbl.Name(a.Operator), Args: tbl.Names(a.Args)}
	}
	return out
}
