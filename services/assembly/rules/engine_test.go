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
	"errors"
	"reflect"
	"testing"
)

func includeRule(id string, priority int, cond Condition, blockID string) Rule {
	return Rule{
		ID:        id,
		Priority:  priority,
		Enabled:   true,
		Condition: cond,
		Actions: []Action{
			{Type: ActionIncludeBlock, BlockID: blockID},
		},
	}
}

func TestSinglePass_ActivatesOnThreshold(t *testing.T) {
	engine := NewEngine()
	ruleSet := []Rule{
		includeRule("long_service", 10, atom("work_years", OpGreater, 5), "§6"),
	}

	result, err := engine.EvaluateSinglePass(context.Background(), ruleSet,
		map[string]any{"work_years": 7})
	if err != nil {
		t.Fatalf("EvaluateSinglePass: %v", err)
	}
	if !reflect.DeepEqual(result.IncludedSet(), []string{"§6"}) {
		t.Errorf("included = %v, want [§6]", result.IncludedSet())
	}

	result, err = engine.EvaluateSinglePass(context.Background(), ruleSet,
		map[string]any{"work_years": 3})
	if err != nil {
		t.Fatalf("EvaluateSinglePass: %v", err)
	}
	if len(result.IncludedSet()) != 0 {
		t.Errorf("included = %v, want empty", result.IncludedSet())
	}
}

func TestSinglePass_LaterRulesSeeUpdatedFacts(t *testing.T) {
	engine := NewEngine()
	ruleSet := []Rule{
		{
			ID:        "set_flag",
			Priority:  1,
			Enabled:   true,
			Condition: atom("severity", OpGreaterEqual, 50),
			Actions: []Action{
				{Type: ActionSetVariable, Variable: "escalated", Value: true},
			},
		},
		includeRule("use_flag", 2, atom("escalated", OpEquals, true), "escalation_clause"),
	}

	result, err := engine.EvaluateSinglePass(context.Background(), ruleSet,
		map[string]any{"severity": 80})
	if err != nil {
		t.Fatalf("EvaluateSinglePass: %v", err)
	}
	if !reflect.DeepEqual(result.IncludedSet(), []string{"escalation_clause"}) {
		t.Errorf("included = %v, want [escalation_clause]", result.IncludedSet())
	}
	if result.Facts["escalated"] != true {
		t.Error("set_variable effect missing from facts")
	}
}

func TestSinglePass_Deterministic(t *testing.T) {
	engine := NewEngine()
	ruleSet := []Rule{
		includeRule("a", 5, atom("x", OpGreater, 1), "block_a"),
		includeRule("b", 5, atom("x", OpGreater, 1), "block_b"),
		includeRule("c", 1, atom("x", OpGreater, 1), "block_c"),
	}
	vars := map[string]any{"x": 10}

	first, err := engine.EvaluateSinglePass(context.Background(), ruleSet, vars)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := engine.EvaluateSinglePass(context.Background(), ruleSet, vars)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first.IncludedSet(), again.IncludedSet()) {
			t.Fatalf("run %d differs: %v vs %v", i, first.IncludedSet(), again.IncludedSet())
		}
	}

	// Priority 1 first, then the tied pair in declaration order.
	want := []string{"block_c", "block_a", "block_b"}
	if !reflect.DeepEqual(first.IncludedSet(), want) {
		t.Errorf("included = %v, want %v", first.IncludedSet(), want)
	}
}

func TestSinglePass_DisabledRulesSkipped(t *testing.T) {
	engine := NewEngine()
	rule := includeRule("off", 1, atom("x", OpEquals, 1), "block")
	rule.Enabled = false

	result, err := engine.EvaluateSinglePass(context.Background(), []Rule{rule},
		map[string]any{"x": 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Fired) != 0 {
		t.Errorf("disabled rule fired: %v", result.Fired)
	}
}

func TestSinglePass_ExcludeWins(t *testing.T) {
	engine := NewEngine()
	ruleSet := []Rule{
		includeRule("incl", 1, atom("x", OpEquals, 1), "block"),
		{
			ID:        "excl",
			Priority:  2,
			Enabled:   true,
			Condition: atom("x", OpEquals, 1),
			Actions: []Action{
				{Type: ActionExcludeBlock, BlockID: "block"},
			},
		},
	}

	result, err := engine.EvaluateSinglePass(context.Background(), ruleSet,
		map[string]any{"x": 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.IncludedSet()) != 0 {
		t.Errorf("included = %v, want empty after exclusion", result.IncludedSet())
	}
}

func TestSinglePass_MissingVariableWarns(t *testing.T) {
	engine := NewEngine()
	ruleSet := []Rule{
		includeRule("r", 1, atom("never_set", OpEquals, 1), "block"),
	}

	result, err := engine.EvaluateSinglePass(context.Background(), ruleSet, map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.IncludedSet()) != 0 {
		t.Error("rule on missing variable must not fire")
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a missing-variable warning")
	}
}

func TestForwardChain_ChainsFacts(t *testing.T) {
	engine := NewEngine()
	// r1 sets stage=2; r2 only holds once stage=2; r3 only once stage=3.
	ruleSet := []Rule{
		{
			ID: "r3", Priority: 1, Enabled: true,
			Condition: atom("stage", OpEquals, 3),
			Actions:   []Action{{Type: ActionIncludeBlock, BlockID: "final"}},
		},
		{
			ID: "r2", Priority: 2, Enabled: true,
			Condition: atom("stage", OpEquals, 2),
			Actions:   []Action{{Type: ActionSetVariable, Variable: "stage", Value: 3}},
		},
		{
			ID: "r1", Priority: 3, Enabled: true,
			Condition: atom("start", OpEquals, true),
			Actions:   []Action{{Type: ActionSetVariable, Variable: "stage", Value: 2}},
		},
	}

	result, err := engine.ForwardChain(context.Background(), ruleSet,
		map[string]any{"start": true})
	if err != nil {
		t.Fatalf("ForwardChain: %v", err)
	}
	if !reflect.DeepEqual(result.IncludedSet(), []string{"final"}) {
		t.Errorf("included = %v, want [final]", result.IncludedSet())
	}
	if result.Iterations < 3 {
		t.Errorf("Iterations = %d, want at least 3 passes", result.Iterations)
	}
}

func TestForwardChain_FiresAtMostOnce(t *testing.T) {
	engine := NewEngine()
	ruleSet := []Rule{
		includeRule("always", 1, Condition{Logic: LogicAnd}, "block"),
	}

	result, err := engine.ForwardChain(context.Background(), ruleSet, map[string]any{})
	if err != nil {
		t.Fatalf("ForwardChain: %v", err)
	}
	if len(result.Fired) != 1 {
		t.Errorf("Fired = %v, want exactly one firing", result.Fired)
	}
}

func TestForwardChain_SelfTriggerHitsCap(t *testing.T) {
	engine := NewEngine(WithIterationCap(100))
	ruleSet := []Rule{
		{
			ID: "loop", Priority: 1, Enabled: true,
			Condition: Condition{Logic: LogicAnd}, // always true
			Actions: []Action{
				{Type: ActionTriggerRule, RuleID: "loop"},
			},
		},
	}

	result, err := engine.ForwardChain(context.Background(), ruleSet, map[string]any{})
	if result != nil {
		t.Error("expected no partial result on non-termination")
	}

	var ntErr *NonTerminationError
	if !errors.As(err, &ntErr) {
		t.Fatalf("error = %v, want *NonTerminationError", err)
	}
	if !errors.Is(err, ErrNonTermination) {
		t.Error("NonTerminationError should unwrap to ErrNonTermination")
	}
	if ntErr.Cap != 100 {
		t.Errorf("Cap = %d, want 100", ntErr.Cap)
	}
}

func TestForwardChain_TriggerReChecksRule(t *testing.T) {
	engine := NewEngine()
	ruleSet := []Rule{
		{
			ID: "gate", Priority: 1, Enabled: true,
			Condition: atom("open", OpEquals, true),
			Actions:   []Action{{Type: ActionIncludeBlock, BlockID: "gated"}},
		},
		{
			ID: "opener", Priority: 2, Enabled: true,
			Condition: Condition{Logic: LogicAnd},
			Actions: []Action{
				{Type: ActionSetVariable, Variable: "open", Value: true},
				{Type: ActionTriggerRule, RuleID: "gate"},
			},
		},
	}

	result, err := engine.ForwardChain(context.Background(), ruleSet, map[string]any{})
	if err != nil {
		t.Fatalf("ForwardChain: %v", err)
	}
	if !reflect.DeepEqual(result.IncludedSet(), []string{"gated"}) {
		t.Errorf("included = %v, want [gated]", result.IncludedSet())
	}
}

func TestForwardChain_DoesNotMutateCallerContext(t *testing.T) {
	engine := NewEngine()
	ruleSet := []Rule{
		{
			ID: "w", Priority: 1, Enabled: true,
			Condition: Condition{Logic: LogicAnd},
			Actions:   []Action{{Type: ActionSetVariable, Variable: "written", Value: 1}},
		},
	}
	vars := map[string]any{"existing": true}

	if _, err := engine.ForwardChain(context.Background(), ruleSet, vars); err != nil {
		t.Fatal(err)
	}
	if _, ok := vars["written"]; ok {
		t.Error("engine mutated the caller's context map")
	}
}
