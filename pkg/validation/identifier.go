// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for names that
// arrive from task files and API requests.
//
// Task names end up in storage keys, log attributes and metric labels, so
// everything accepted here is restricted to a small, predictable alphabet.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches planning identifiers: predicate, action and
// constant names.
// Allows: lowercase letters, digits, hyphens, underscores; must start with a letter.
// Max length: 64 characters
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_\-]{0,63}$`)

// variablePattern matches operator parameters such as ?x or ?from-city.
var variablePattern = regexp.MustCompile(`^\?[a-z][a-z0-9_\-]{0,63}$`)

// ValidateIdentifier validates a predicate, action or constant name.
//
// Valid identifiers:
//   - 1-64 characters
//   - Lowercase letters a-z, digits 0-9, hyphens and underscores
//   - A letter first
//
// Example:
//
//	if err := validation.ValidateIdentifier(name); err != nil {
//	    return fmt.Errorf("predicate: %w", err)
//	}
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier: %q (must start with a letter; letters, digits, '-' or '_'; at most 64 chars)", name)
	}

	return nil
}

// ValidateVariable validates an operator parameter name, which carries a
// leading '?'.
func ValidateVariable(name string) error {
	if !variablePattern.MatchString(name) {
		return fmt.Errorf("invalid variable: %q (must be '?' followed by an identifier)", name)
	}
	return nil
}

// IsVariable reports whether name is written as a variable.
func IsVariable(name string) bool {
	return strings.HasPrefix(name, "?")
}

// ValidateIdentifiers validates multiple identifiers.
// Returns an error listing all invalid names if any fail validation.
func ValidateIdentifiers(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateIdentifier(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %v", invalid)
	}
	return nil
}

// SanitizeIdentifier normalizes and validates a name. Planning names are
// case-insensitive, so the result is lowercase.
//
//	name, err := validation.SanitizeIdentifier(userInput)
//	if err != nil {
//	    return err
//	}
func SanitizeIdentifier(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if IsVariable(normalized) {
		if err := ValidateVariable(normalized); err != nil {
			return "", err
		}
		return normalized, nil
	}
	if err := ValidateIdentifier(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
