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

import "context"

// Linear places blocks in template order. No rules are consulted; the
// template is the complete plan.
type Linear struct{}

func (s *Linear) Name() string { return StrategyLinear }

// Assemble resolves eligible slots in template order.
//
// Errors:
//   - *ValidationError: a required slot could not be filled.
func (s *Linear) Assemble(ctx context.Context, in Input) (*Document, error) {
	placements, missing, warnings, err := resolveSlots(ctx, in, nil)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &ValidationError{TemplateID: in.Template.ID, Missing: missing}
	}
	return buildDocument(in, placements, warnings, 0), nil
}
