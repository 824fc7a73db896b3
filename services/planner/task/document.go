// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package task loads planning tasks from YAML or JSON documents and compiles
// them into a search.Problem.
//
// A document holds the domain (predicates and actions) and the problem
// (objects, initial situation and goal) together:
//
//	name: ferry
//	requirements: [strips, negative-preconditions]
//	constants: [a, b]
//	predicates:
//	  - {name: at, arity: 1}
//	  - {name: road, arity: 2}
//	actions:
//	  - name: move
//	    parameters: ["?x", "?y"]
//	    precondition: ["at ?x", "road ?x ?y"]
//	    delete: ["at ?x"]
//	    add: ["at ?y"]
//	init: ["at a", "road a b"]
//	goal: ["at b"]
//
// Atoms are written "pred arg1 arg2", optionally in parentheses. Names are
// case-insensitive.
package task

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianStrips/pkg/validation"
)

// Requirement flags a document may declare.
const (
	RequirementStrips                = "strips"
	RequirementNegativePreconditions = "negative-preconditions"
	RequirementActionCosts           = "action-costs"
)

var (
	// ErrInvalidDocument is returned when a document fails structural validation.
	ErrInvalidDocument = errors.New("invalid task document")

	// ErrUnknownPredicate is returned for an atom whose predicate is not declared.
	ErrUnknownPredicate = errors.New("unknown predicate")

	// ErrArityMismatch is returned when an atom has the wrong number of arguments.
	ErrArityMismatch = errors.New("arity mismatch")

	// ErrUnknownConstant is returned for an undeclared object or constant.
	ErrUnknownConstant = errors.New("unknown constant")

	// ErrUnknownVariable is returned for a variable that is not an action parameter.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrMissingRequirement is returned when a feature is used without
	// declaring its requirement.
	ErrMissingRequirement = errors.New("missing requirement")

	// ErrDuplicate is returned for a name declared twice.
	ErrDuplicate = errors.New("duplicate declaration")
)

// LoadError locates a loader failure within a document.
type LoadError struct {
	Path  string
	Field string
	Err   error
}

// Error implements error.
func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Document is the serialized form of a planning task.
type Document struct {
	Name         string      `json:"name" yaml:"name" validate:"required,identifier"`
	Requirements []string    `json:"requirements,omitempty" yaml:"requirements,omitempty" validate:"dive,oneof=strips negative-preconditions action-costs"`
	Constants    []string    `json:"constants,omitempty" yaml:"constants,omitempty" validate:"dive,identifier"`
	Objects      []string    `json:"objects,omitempty" yaml:"objects,omitempty" validate:"dive,identifier"`
	Predicates   []Predicate `json:"predicates" yaml:"predicates" validate:"required,min=1,dive"`
	Actions      []Action    `json:"actions" yaml:"actions" validate:"required,min=1,dive"`
	Init         []string    `json:"init" yaml:"init" validate:"dive,required"`
	Goal         []string    `json:"goal" yaml:"goal" validate:"dive,required"`

	// path is set by Load for error messages.
	path string
}

// Predicate declares a predicate and its arity.
type Predicate struct {
	Name  string `json:"name" yaml:"name" validate:"required,identifier"`
	Arity int    `json:"arity" yaml:"arity" validate:"gte=0,lte=16"`
}

// Action declares an operator schema.
type Action struct {
	Name                 string   `json:"name" yaml:"name" validate:"required,identifier"`
	Parameters           []string `json:"parameters,omitempty" yaml:"parameters,omitempty" validate:"dive,variable"`
	Cost                 *float64 `json:"cost,omitempty" yaml:"cost,omitempty" validate:"omitempty,gte=0"`
	Precondition         []string `json:"precondition,omitempty" yaml:"precondition,omitempty" validate:"dive,required"`
	NegativePrecondition []string `json:"negative_precondition,omitempty" yaml:"negative_precondition,omitempty" validate:"dive,required"`
	Delete               []string `json:"delete,omitempty" yaml:"delete,omitempty" validate:"dive,required"`
	Add                  []string `json:"add,omitempty" yaml:"add,omitempty" validate:"dive,required"`
}

// taskValidate is the validator instance for task documents.
// Initialized in init() with the identifier rules.
var taskValidate *validator.Validate

func init() {
	taskValidate = validator.New()
	_ = taskValidate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return validation.ValidateIdentifier(strings.ToLower(fl.Field().String())) == nil
	})
	_ = taskValidate.RegisterValidation("variable", func(fl validator.FieldLevel) bool {
		return validation.ValidateVariable(strings.ToLower(fl.Field().String())) == nil
	})
}

// Parse decodes a YAML or JSON document and validates its structure.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Field: "document", Err: fmt.Errorf("%w: %v", ErrInvalidDocument, err)}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	doc.path = path
	return doc, nil
}

// Validate checks the document structure. Semantic checks such as arity
// and declared names run in Compile.
func (d *Document) Validate() error {
	if err := taskValidate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return &LoadError{
				Path:  d.path,
				Field: f.Namespace(),
				Err:   fmt.Errorf("%w: failed %q rule", ErrInvalidDocument, f.Tag()),
			}
		}
		return &LoadError{Path: d.path, Field: "document", Err: fmt.Errorf("%w: %v", ErrInvalidDocument, err)}
	}
	return nil
}

// Has reports whether the document declares requirement r.
func (d *Document) Has(r string) bool {
	for _, x := range d.Requirements {
		if x == r {
			return true
		}
	}
	return false
}

// Hash returns a stable identifier for the document content.
func (d *Document) Hash() string {
	data, err := yaml.Marshal(d)
	if err != nil {
		data = []byte(d.Name)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// parseAtom splits "pred a b" or "(pred a b)" into lowercase fields.
func parseAtom(s string) (string, []string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
	}
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("%w: empty atom", ErrInvalidDocument)
	}
	return fields[0], fields[1:], nil
}
