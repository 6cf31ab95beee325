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
	"context"
	"fmt"
	"sort"

	"github.com/AleutianAI/clauseforge/services/assembly/rules"
)

// Conditional runs the rule engine over the assembly context, merges
// rule-included blocks with the template's slots, drops rule-excluded
// ones, and orders the result by block priority (ascending), template
// position breaking ties. Rule-included blocks without a template slot
// sort after the slotted ones.
type Conditional struct {
	// Engine evaluates the rules. Required.
	Engine *rules.Engine
}

func (s *Conditional) Name() string { return StrategyConditional }

// Assemble evaluates rules with forward chaining, then resolves and
// orders blocks.
//
// Errors:
//   - *ValidationError: a required slot was excluded or unresolvable.
//   - *rules.NonTerminationError: rule evaluation did not settle.
func (s *Conditional) Assemble(ctx context.Context, in Input) (*Document, error) {
	var (
		excluded     map[string]bool
		ruleIncluded []string
		ruleWarnings []string
		rulesApplied int
	)
	if len(in.Rules) > 0 {
		result, err := s.Engine.ForwardChain(ctx, in.Rules, in.Context)
		if err != nil {
			return nil, err
		}
		excluded = result.Excluded
		ruleIncluded = result.IncludedSet()
		ruleWarnings = result.Warnings
		rulesApplied = len(result.Fired)
	}

	placements, missing, warnings, err := resolveSlots(ctx, in, excluded)
	if err != nil {
		return nil, err
	}
	warnings = append(ruleWarnings, warnings...)

	// Rule-included blocks that have no template slot are appended
	// after the slotted ones, preserving rule firing order. Duplicates
	// of slotted blocks are ignored.
	slotted := make(map[string]bool, len(placements))
	for _, p := range placements {
		slotted[p.block.ID] = true
	}
	next := len(in.Template.Blocks)
	for _, id := range ruleIncluded {
		if slotted[id] {
			continue
		}
		b, rerr := in.Resolver.Resolve(ctx, id)
		if rerr != nil && !isNotFound(rerr) {
			return nil, fmt.Errorf("resolve block %s: %w", id, rerr)
		}
		if b == nil {
			warnings = append(warnings, fmt.Sprintf("rule-included block %s not found", id))
			continue
		}
		slotted[id] = true
		placements = append(placements, placed{block: b, position: next, reason: "rule"})
		next++
	}

	if len(missing) > 0 {
		return nil, &ValidationError{TemplateID: in.Template.ID, Missing: missing}
	}

	// Priority ascending; template position breaks ties, which also
	// keeps the sort deterministic for unprioritized blocks.
	sort.SliceStable(placements, func(i, j int) bool {
		pi, pj := placements[i].block.Metadata.Priority, placements[j].block.Metadata.Priority
		if pi != pj {
			return pi < pj
		}
		return placements[i].position < placements[j].position
	})

	return buildDocument(in, placements, warnings, rulesApplied), nil
}
