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
	"context"
	"fmt"
	"sort"

	"github.com/AleutianAI/clauseforge/pkg/logging"
)

// DefaultIterationCap bounds forward-chaining passes (including trigger
// re-checks) before the run aborts with a NonTerminationError.
const DefaultIterationCap = 100

// EngineOptions configures the rule engine.
type EngineOptions struct {
	// IterationCap is the hard limit on forward-chaining iterations.
	// Default: 100
	IterationCap int

	// Logger receives evaluation diagnostics.
	// Default: logging.Default()
	Logger *logging.Logger
}

// EngineOption is a functional option for configuring the Engine.
type EngineOption func(*EngineOptions)

// WithIterationCap sets the forward-chaining iteration limit.
func WithIterationCap(n int) EngineOption {
	return func(o *EngineOptions) {
		o.IterationCap = n
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) EngineOption {
	return func(o *EngineOptions) {
		o.Logger = l
	}
}

// Engine evaluates rule sets against a context map.
//
// The engine itself is stateless between runs: every run gets its own
// fact map and result, so arbitrarily many evaluations may run in
// parallel on one Engine.
type Engine struct {
	options EngineOptions
	logger  *logging.Logger
}

// NewEngine creates a rule engine.
//
// Example:
//
//	engine := rules.NewEngine(
//	    rules.WithIterationCap(50),
//	    rules.WithLogger(logger),
//	)
func NewEngine(opts ...EngineOption) *Engine {
	options := EngineOptions{
		IterationCap: DefaultIterationCap,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = logging.Default()
	}
	return &Engine{
		options: options,
		logger:  options.Logger.With("component", "rule_engine"),
	}
}

// EvaluateSinglePass evaluates rules in priority order exactly once.
//
// Description:
//
//	Rules are sorted by ascending priority (ties keep declaration order)
//	and evaluated once each. Firing a rule applies its actions
//	immediately, so later rules in the same pass see updated facts.
//	Trigger actions re-check the named rule right away; re-checks count
//	against the iteration cap so trigger loops abort instead of spinning.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	ruleSet - The rules to evaluate. Order is the declaration order.
//	vars - Caller context variables. Not mutated; facts are a copy.
//
// Outputs:
//
//	*Result - Included/excluded blocks, final facts, fired rules, warnings.
//	error - *NonTerminationError on a trigger loop, or ctx.Err().
func (e *Engine) EvaluateSinglePass(ctx context.Context, ruleSet []Rule, vars map[string]any) (*Result, error) {
	run := newRun(ruleSet, vars)

	run.iterations++
	for _, rule := range run.ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !rule.Enabled || run.fired[rule.ID] {
			continue
		}
		if evalCondition(rule.Condition, run.result.Facts, &run.result.Warnings) {
			run.fire(rule)
			if err := e.drainTriggers(ctx, run); err != nil {
				return nil, err
			}
		}
	}

	run.result.Iterations = run.iterations
	e.logger.Debug("single-pass evaluation complete",
		"rules", len(ruleSet),
		"fired", len(run.result.Fired),
		"included", len(run.result.Included))
	return run.result, nil
}

// ForwardChain repeatedly scans the rule set until a fixpoint.
//
// Description:
//
//	Each pass scans enabled, not-yet-fired rules in priority order and
//	fires any whose condition holds against the current facts. Firing
//	applies actions immediately. A rule fires at most once per run
//	through scanning; only an explicit trigger action re-checks (and may
//	re-fire) an already-fired rule. The run stops when a pass fires
//	nothing and no triggers remain. If the iteration cap is reached
//	first, the run aborts with *NonTerminationError — no partial facts
//	are returned.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	ruleSet - The rules to evaluate. Order is the declaration order.
//	vars - Caller context variables. Not mutated; facts are a copy.
//
// Outputs:
//
//	*Result - Included/excluded blocks, final facts, fired rules, warnings.
//	error - *NonTerminationError if the cap is hit, or ctx.Err().
func (e *Engine) ForwardChain(ctx context.Context, ruleSet []Rule, vars map[string]any) (*Result, error) {
	run := newRun(ruleSet, vars)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run.iterations++
		if run.iterations > e.options.IterationCap {
			e.logger.Warn("forward chaining aborted",
				"iterations", run.iterations-1,
				"cap", e.options.IterationCap)
			return nil, &NonTerminationError{
				Iterations: run.iterations - 1,
				Cap:        e.options.IterationCap,
			}
		}

		firedThisPass := false
		for _, rule := range run.ordered {
			if !rule.Enabled || run.fired[rule.ID] {
				continue
			}
			if evalCondition(rule.Condition, run.result.Facts, &run.result.Warnings) {
				run.fire(rule)
				firedThisPass = true
			}
		}

		triggered, err := e.drainTriggersCounted(ctx, run)
		if err != nil {
			return nil, err
		}

		if !firedThisPass && !triggered {
			break
		}
	}

	run.result.Iterations = run.iterations
	e.logger.Debug("forward chaining complete",
		"rules", len(ruleSet),
		"fired", len(run.result.Fired),
		"iterations", run.iterations)
	return run.result, nil
}

// drainTriggers processes pending trigger re-checks, counting each
// against the iteration cap.
func (e *Engine) drainTriggers(ctx context.Context, run *engineRun) error {
	_, err := e.drainTriggersCounted(ctx, run)
	return err
}

func (e *Engine) drainTriggersCounted(ctx context.Context, run *engineRun) (bool, error) {
	processed := false
	for len(run.triggers) > 0 {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		run.iterations++
		if run.iterations > e.options.IterationCap {
			return processed, &NonTerminationError{
				Iterations: run.iterations - 1,
				Cap:        e.options.IterationCap,
			}
		}

		id := run.triggers[0]
		run.triggers = run.triggers[1:]

		rule, ok := run.byID[id]
		if !ok {
			run.result.Warnings = append(run.result.Warnings,
				fmt.Sprintf("trigger references unknown rule %q", id))
			continue
		}
		if !rule.Enabled {
			continue
		}
		// A triggered re-check bypasses fire-at-most-once: the trigger
		// is an explicit request to apply the rule against current facts.
		if evalCondition(rule.Condition, run.result.Facts, &run.result.Warnings) {
			run.fire(rule)
			processed = true
		}
	}
	return processed, nil
}

// engineRun holds the per-run mutable state. One run per evaluation call
// keeps the Engine itself stateless and safe for concurrent use.
type engineRun struct {
	ordered    []Rule
	byID       map[string]Rule
	fired      map[string]bool
	triggers   []string
	iterations int
	result     *Result
}

func newRun(ruleSet []Rule, vars map[string]any) *engineRun {
	facts := make(map[string]any, len(vars))
	for k, v := range vars {
		facts[k] = v
	}

	ordered := make([]Rule, len(ruleSet))
	copy(ordered, ruleSet)
	// Stable: equal priorities keep declaration order.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	byID := make(map[string]Rule, len(ruleSet))
	for _, r := range ruleSet {
		byID[r.ID] = r
	}

	return &engineRun{
		ordered: ordered,
		byID:    byID,
		fired:   make(map[string]bool),
		result: &Result{
			Included: make([]string, 0),
			Excluded: make(map[string]bool),
			Facts:    facts,
			Fired:    make([]string, 0),
			Warnings: make([]string, 0),
		},
	}
}

// fire applies the rule's actions in order and records the firing.
func (run *engineRun) fire(rule Rule) {
	run.fired[rule.ID] = true
	run.result.Fired = append(run.result.Fired, rule.ID)

	for _, action := range rule.Actions {
		switch action.Type {
		case ActionIncludeBlock:
			delete(run.result.Excluded, action.BlockID)
			if !containsString(run.result.Included, action.BlockID) {
				run.result.Included = append(run.result.Included, action.BlockID)
			}
		case ActionExcludeBlock:
			run.result.Excluded[action.BlockID] = true
		case ActionSetVariable:
			run.result.Facts[action.Variable] = action.Value
		case ActionTriggerRule:
			run.triggers = append(run.triggers, action.RuleID)
		}
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
