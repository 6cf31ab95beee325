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
	"os"
	"path/filepath"
	"testing"
)

const sampleRules = `
rules:
  - id: budget_eligibility
    name: Persönliches Budget eligibility
    priority: 10
    condition:
      logic: and
      children:
        - variable: work_years
          operator: ">"
          value: 5
        - variable: status
          operator: in
          value: [approved, pending]
    actions:
      - type: include_block
        block_id: sgb9_para29
      - type: set_variable
        variable: eligible
        value: true
  - id: followup
    priority: 20
    enabled: false
    condition:
      variable: eligible
      operator: "=="
      value: true
    actions:
      - type: trigger_rule
        rule_id: budget_eligibility
`

func TestParse(t *testing.T) {
	parsed, err := Parse([]byte(sampleRules))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("parsed %d rules, want 2", len(parsed))
	}

	first := parsed[0]
	if first.ID != "budget_eligibility" || first.Priority != 10 {
		t.Errorf("first rule = %+v", first)
	}
	if !first.Enabled {
		t.Error("enabled should default to true")
	}
	if !first.Condition.IsGroup() || len(first.Condition.Children) != 2 {
		t.Fatalf("condition = %+v, want group with 2 children", first.Condition)
	}
	if first.Condition.Children[0].Operator != OpGreater {
		t.Errorf("operator = %v, want OpGreater", first.Condition.Children[0].Operator)
	}
	if len(first.Actions) != 2 || first.Actions[0].Type != ActionIncludeBlock {
		t.Errorf("actions = %+v", first.Actions)
	}

	second := parsed[1]
	if second.Enabled {
		t.Error("explicit enabled: false was ignored")
	}
}

func TestParse_UnknownOperator(t *testing.T) {
	bad := `
rules:
  - id: r1
    condition:
      variable: x
      operator: "~="
      value: 1
    actions:
      - type: include_block
        block_id: b
`
	if _, err := Parse([]byte(bad)); !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("error = %v, want ErrUnknownOperator", err)
	}
}

func TestParse_UnknownAction(t *testing.T) {
	bad := `
rules:
  - id: r1
    condition:
      variable: x
      operator: "=="
      value: 1
    actions:
      - type: delete_block
        block_id: b
`
	if _, err := Parse([]byte(bad)); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("error = %v, want ErrUnknownAction", err)
	}
}

func TestParse_DanglingTrigger(t *testing.T) {
	bad := `
rules:
  - id: r1
    condition:
      variable: x
      operator: "=="
      value: 1
    actions:
      - type: trigger_rule
        rule_id: nonexistent
`
	if _, err := Parse([]byte(bad)); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("error = %v, want ErrRuleNotFound", err)
	}
}

func TestParse_DuplicateID(t *testing.T) {
	bad := `
rules:
  - id: r1
    condition: {variable: x, operator: "==", value: 1}
    actions:
      - {type: include_block, block_id: a}
  - id: r1
    condition: {variable: x, operator: "==", value: 1}
    actions:
      - {type: include_block, block_id: b}
`
	if _, err := Parse([]byte(bad)); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("error = %v, want ErrInvalidRule", err)
	}
}

func TestParse_MissingActionFields(t *testing.T) {
	bad := `
rules:
  - id: r1
    condition: {variable: x, operator: "==", value: 1}
    actions:
      - type: include_block
`
	if _, err := Parse([]byte(bad)); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("error = %v, want ErrInvalidRule", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRules), 0644); err != nil {
		t.Fatal(err)
	}

	parsed, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(parsed) != 2 {
		t.Errorf("parsed %d rules, want 2", len(parsed))
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
