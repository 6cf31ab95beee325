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

import "testing"

func atom(variable string, op Operator, value any) Condition {
	return Condition{Variable: variable, Operator: op, Value: value}
}

func TestEvalAtom_Operators(t *testing.T) {
	facts := map[string]any{
		"work_years": 7,
		"status":     "approved",
		"rate":       0.85,
		"tags":       []any{"budget", "teilhabe"},
		"title":      "Persönliches Budget",
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals string", atom("status", OpEquals, "approved"), true},
		{"equals mismatch", atom("status", OpEquals, "rejected"), false},
		{"equals numeric coercion", atom("work_years", OpEquals, 7.0), true},
		{"not equals", atom("status", OpNotEquals, "rejected"), true},
		{"greater", atom("work_years", OpGreater, 5), true},
		{"greater false", atom("work_years", OpGreater, 7), false},
		{"greater equal boundary", atom("work_years", OpGreaterEqual, 7), true},
		{"less", atom("rate", OpLess, 0.9), true},
		{"less equal", atom("rate", OpLessEqual, 0.85), true},
		{"less false", atom("work_years", OpLess, 3), false},
		{"in", atom("status", OpIn, []any{"approved", "pending"}), true},
		{"in miss", atom("status", OpIn, []any{"rejected"}), false},
		{"not in", atom("status", OpNotIn, []any{"rejected"}), true},
		{"contains string", atom("title", OpContains, "Budget"), true},
		{"contains list", atom("tags", OpContains, "budget"), true},
		{"contains miss", atom("title", OpContains, "Antrag"), false},
		{"greater on non-numeric", atom("status", OpGreater, 5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warnings []string
			got := evalCondition(tt.cond, facts, &warnings)
			if got != tt.want {
				t.Errorf("evalCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
			if len(warnings) != 0 {
				t.Errorf("unexpected warnings: %v", warnings)
			}
		})
	}
}

func TestEvalAtom_MissingVariable(t *testing.T) {
	var warnings []string
	got := evalCondition(atom("absent", OpEquals, 1), map[string]any{}, &warnings)
	if got {
		t.Error("missing variable must evaluate false")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
}

func TestEvalGroup(t *testing.T) {
	facts := map[string]any{"a": 1, "b": 2}

	andGroup := Condition{
		Logic: LogicAnd,
		Children: []Condition{
			atom("a", OpEquals, 1),
			atom("b", OpEquals, 2),
		},
	}
	orGroup := Condition{
		Logic: LogicOr,
		Children: []Condition{
			atom("a", OpEquals, 99),
			atom("b", OpEquals, 2),
		},
	}
	failing := Condition{
		Logic: LogicAnd,
		Children: []Condition{
			atom("a", OpEquals, 1),
			atom("b", OpEquals, 99),
		},
	}
	negated := Condition{
		Not: true,
		Children: []Condition{
			atom("a", OpEquals, 99),
		},
	}
	empty := Condition{Logic: LogicAnd}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"and all hold", andGroup, true},
		{"or one holds", orGroup, true},
		{"and one fails", failing, false},
		{"not flips group", negated, true},
		{"empty group is true", empty, true},
		{"nested", Condition{
			Logic:    LogicOr,
			Children: []Condition{failing, andGroup},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warnings []string
			if got := evalCondition(tt.cond, facts, &warnings); got != tt.want {
				t.Errorf("evalCondition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseOperator(t *testing.T) {
	for op, name := range operatorNames {
		parsed, err := ParseOperator(name)
		if err != nil {
			t.Errorf("ParseOperator(%q): %v", name, err)
		}
		if parsed != op {
			t.Errorf("ParseOperator(%q) = %v, want %v", name, parsed, op)
		}
	}

	if _, err := ParseOperator("matches_regex"); err == nil {
		t.Error("expected error for operator outside the closed set")
	}
}
