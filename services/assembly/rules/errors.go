// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperator is returned when a condition names an operator
	// outside the closed set.
	ErrUnknownOperator = errors.New("unknown condition operator")

	// ErrUnknownAction is returned when a rule action names an unknown type.
	ErrUnknownAction = errors.New("unknown action type")

	// ErrRuleNotFound is returned when a trigger action names a rule that
	// doesn't exist in the evaluated set.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrInvalidRule is returned when a rule fails structural validation.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrNonTermination is the sentinel wrapped by NonTerminationError.
	ErrNonTermination = errors.New("forward chaining did not terminate")
)

// NonTerminationError reports that forward chaining hit the iteration cap
// without reaching a fixpoint. No partial fact set is returned alongside
// it; the run is aborted entirely.
type NonTerminationError struct {
	// Iterations is the number of passes completed before aborting.
	Iterations int

	// Cap is the configured iteration limit.
	Cap int
}

// Error implements the error interface.
func (e *NonTerminationError) Error() string {
	return fmt.Sprintf("forward chaining did not terminate after %d iterations (cap %d)",
		e.Iterations, e.Cap)
}

// Unwrap returns the sentinel so errors.Is(err, ErrNonTermination) works.
func (e *NonTerminationError) Unwrap() error {
	return ErrNonTermination
}
