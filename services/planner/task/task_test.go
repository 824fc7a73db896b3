// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package task

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianStrips/services/planner/facts"
	"github.com/AleutianAI/AleutianStrips/services/planner/schema"
	"github.com/AleutianAI/AleutianStrips/services/planner/search"
	"github.com/AleutianAI/AleutianStrips/services/planner/symbols"
)

func solve(t *testing.T, doc *Document, strategy search.Strategy) []string {
	t.Helper()
	p, err := Compile(doc, Limits{})
	require.NoError(t, err)
	s, err := search.New(p, search.DefaultOptions())
	require.NoError(t, err)
	res, err := s.Run(context.Background(), strategy)
	require.NoError(t, err)
	require.True(t, res.Outcome.Solved(), "outcome %s", res.Outcome)
	var out []string
	for _, a := range s.NamedActions(res.Plan) {
		out = append(out, a.String())
	}
	return out
}

func TestLoad_LineExample(t *testing.T) {
	doc, err := Load("testdata/line.yaml")
	require.NoError(t, err)
	assert.Equal(t, "line", doc.Name)

	p, err := Compile(doc, Limits{})
	require.NoError(t, err)
	assert.True(t, p.Facts.Frozen())
	assert.Len(t, p.Operators, 1)
	assert.Len(t, p.Initial, 3)
	assert.Len(t, p.Goal, 1)

	assert.Equal(t, []string{"move(a,b)", "move(b,c)"}, solve(t, doc, search.BreadthFirst))
}

func TestLoad_CourierStrategiesDiffer(t *testing.T) {
	doc, err := Load("testdata/courier.yaml")
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"walk(hall,office)", "pick(parcel,office)", "walk(office,lab)", "drop(parcel,lab)"},
		solve(t, doc, search.BreadthFirst))
	assert.Equal(t,
		[]string{"ride(hall,lab)", "ride(lab,office)", "pick(parcel,office)", "walk(office,lab)", "drop(parcel,lab)"},
		solve(t, doc, search.BestFirst))
}

func TestCompile_OperatorLayout(t *testing.T) {
	doc, err := Load("testdata/courier.yaml")
	require.NoError(t, err)
	p, err := Compile(doc, Limits{})
	require.NoError(t, err)

	var pick *schema.Operator
	for _, op := range p.Operators {
		if op.Name == "pick" {
			pick = op
		}
	}
	require.NotNil(t, pick)
	assert.Equal(t, 1.0, pick.Cost)
	assert.Len(t, pick.Range(schema.RoleDeletedPrecondition), 1)
	assert.Len(t, pick.Range(schema.RoleAddedNegativePrecondition), 1)
	assert.Len(t, pick.Range(schema.RoleAddition), 1)
}

func TestParse_JSON(t *testing.T) {
	doc, err := Parse([]byte(`{
  "name": "json-line",
  "constants": ["a", "b"],
  "predicates": [{"name": "at", "arity": 1}],
  "actions": [{"name": "jump", "parameters": ["?x"], "precondition": ["(at ?x)"], "add": ["(at b)"]}],
  "init": ["(at a)"],
  "goal": ["(at b)"]
}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"jump(a)"}, solve(t, doc, search.BreadthFirst))
}

const baseDoc = `
name: sample
requirements: [strips]
constants: [a, b]
predicates:
  - {name: at, arity: 1}
  - {name: road, arity: 2}
actions:
  - name: move
    parameters: ["?x", "?y"]
    precondition: ["at ?x", "road ?x ?y"]
    delete: ["at ?x"]
    add: ["at ?y"]
init: ["at a", "road a b"]
goal: ["at b"]
`

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(string) string
		wantErr error
		field   string
	}{
		{
			name:    "unknown predicate",
			edit:    func(s string) string { return strings.Replace(s, `goal: ["at b"]`, `goal: ["near b"]`, 1) },
			wantErr: ErrUnknownPredicate,
			field:   "goal[0]",
		},
		{
			name:    "arity mismatch",
			edit:    func(s string) string { return strings.Replace(s, `"road a b"`, `"road a"`, 1) },
			wantErr: ErrArityMismatch,
			field:   "init[1]",
		},
		{
			name:    "unknown constant",
			edit:    func(s string) string { return strings.Replace(s, `goal: ["at b"]`, `goal: ["at z"]`, 1) },
			wantErr: ErrUnknownConstant,
		},
		{
			name:    "unknown variable",
			edit:    func(s string) string { return strings.Replace(s, `add: ["at ?y"]`, `add: ["at ?z"]`, 1) },
			wantErr: ErrUnknownVariable,
			field:   "actions[0].add[0]",
		},
		{
			name: "negative precondition without requirement",
			edit: func(s string) string {
				return strings.Replace(s, `    delete:`, "    negative_precondition: [\"at ?y\"]\n    delete:", 1)
			},
			wantErr: ErrMissingRequirement,
		},
		{
			name:    "cost without requirement",
			edit:    func(s string) string { return strings.Replace(s, `    delete:`, "    cost: 2\n    delete:", 1) },
			wantErr: ErrMissingRequirement,
			field:   "actions[0].cost",
		},
		{
			name: "duplicate predicate",
			edit: func(s string) string {
				return strings.Replace(s, `  - {name: road, arity: 2}`, "  - {name: road, arity: 2}\n  - {name: at, arity: 1}", 1)
			},
			wantErr: ErrDuplicate,
		},
		{
			name: "unbound parameter",
			edit: func(s string) string {
				return strings.Replace(s, `precondition: ["at ?x", "road ?x ?y"]`, `precondition: ["at ?x"]`, 1)
			},
			wantErr: schema.ErrUnboundParameter,
			field:   "actions[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.edit(baseDoc)))
			require.NoError(t, err)
			_, err = Compile(doc, Limits{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			if tt.field != "" {
				assert.Equal(t, tt.field, le.Field)
			}
		})
	}
}

func TestParse_StructuralErrors(t *testing.T) {
	withCosts := strings.Replace(baseDoc, "requirements: [strips]", "requirements: [strips, action-costs]", 1)

	tests := []struct {
		name string
		doc  string
	}{
		{"malformed yaml", "name: [unclosed"},
		{"missing predicates", "name: x\nactions: [{name: a}]\n"},
		{"bad identifier", strings.Replace(baseDoc, "name: sample", "name: \"bad name\"", 1)},
		{"bad variable", strings.Replace(baseDoc, `parameters: ["?x", "?y"]`, `parameters: ["x", "?y"]`, 1)},
		{"unknown requirement", strings.Replace(baseDoc, "requirements: [strips]", "requirements: [fluents]", 1)},
		{"negative cost", strings.Replace(withCosts, "    delete:", "    cost: -1\n    delete:", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestCompile_CapacityLimits(t *testing.T) {
	doc, err := Parse([]byte(baseDoc))
	require.NoError(t, err)

	_, err = Compile(doc, Limits{MaxSymbols: 3})
	assert.ErrorIs(t, err, symbols.ErrCapacityExceeded)

	_, err = Compile(doc, Limits{MaxFacts: 2})
	assert.ErrorIs(t, err, facts.ErrCapacityExceeded)
}

func TestDocument_Hash(t *testing.T) {
	d1, err := Parse([]byte(baseDoc))
	require.NoError(t, err)
	d2, err := Parse([]byte(baseDoc))
	require.NoError(t, err)
	d3, err := Parse([]byte(strings.Replace(baseDoc, `goal: ["at b"]`, `goal: ["at a"]`, 1)))
	require.NoError(t, err)

	assert.Equal(t, d1.Hash(), d2.Hash())
	assert.NotEqual(t, d1.Hash(), d3.Hash())
	assert.Len(t, d1.Hash(), 16)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}
