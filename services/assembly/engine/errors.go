// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownStrategy indicates a strategy name not in the registry.
	ErrUnknownStrategy = errors.New("unknown assembly strategy")

	// ErrRequiredBlock indicates a required template slot could not be
	// filled.
	ErrRequiredBlock = errors.New("required block unavailable")

	// ErrInvalidTransition indicates a document status change the
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports which required blocks a template could not
// fill during assembly.
type ValidationError struct {
	TemplateID string
	Missing    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template %s: required blocks unavailable: %s",
		e.TemplateID, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrRequiredBlock
}
