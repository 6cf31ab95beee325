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
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ruleFile is the YAML wire format for a rule definition file.
//
// Example:
//
//	rules:
//	  - id: budget_eligibility
//	    name: Persönliches Budget eligibility
//	    priority: 10
//	    enabled: true
//	    condition:
//	      logic: and
//	      children:
//	        - variable: work_years
//	          operator: ">"
//	          value: 5
//	    actions:
//	      - type: include_block
//	        block_id: sgb9_para29
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules" validate:"required,min=1,dive"`
}

type ruleSpec struct {
	ID        string        `yaml:"id" validate:"required"`
	Name      string        `yaml:"name"`
	Priority  int           `yaml:"priority"`
	Enabled   *bool         `yaml:"enabled"`
	Condition conditionSpec `yaml:"condition"`
	Actions   []actionSpec  `yaml:"actions" validate:"required,min=1,dive"`
}

type conditionSpec struct {
	Variable string          `yaml:"variable"`
	Operator string          `yaml:"operator"`
	Value    any             `yaml:"value"`
	Logic    string          `yaml:"logic" validate:"omitempty,oneof=and or"`
	Not      bool            `yaml:"not"`
	Children []conditionSpec `yaml:"children" validate:"dive"`
}

type actionSpec struct {
	Type     string `yaml:"type" validate:"required"`
	BlockID  string `yaml:"block_id"`
	Variable string `yaml:"variable"`
	Value    any    `yaml:"value"`
	RuleID   string `yaml:"rule_id"`
}

// LoadFile reads and validates a YAML rule definition file.
//
// Description:
//
//	Parses the file, validates the structure, and converts the wire
//	format into []Rule. Declaration order is preserved; it breaks
//	priority ties during evaluation.
//
// Outputs:
//
//	[]Rule - The parsed rules in declaration order.
//	error - Wrapping ErrInvalidRule on structural problems,
//	        ErrUnknownOperator / ErrUnknownAction on bad enumerations.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse converts YAML rule definitions into []Rule.
func Parse(data []byte) ([]Rule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	out := make([]Rule, 0, len(file.Rules))
	seen := make(map[string]bool, len(file.Rules))
	for _, spec := range file.Rules {
		if seen[spec.ID] {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRule, spec.ID)
		}
		seen[spec.ID] = true

		rule, err := spec.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.ID, err)
		}
		out = append(out, rule)
	}

	// Triggers must resolve within the same file.
	for _, rule := range out {
		for _, action := range rule.Actions {
			if action.Type == ActionTriggerRule && !seen[action.RuleID] {
				return nil, fmt.Errorf("%w: rule %q triggers unknown rule %q",
					ErrRuleNotFound, rule.ID, action.RuleID)
			}
		}
	}

	return out, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s ruleSpec) toRule() (Rule, error) {
	cond, err := s.Condition.toCondition()
	if err != nil {
		return Rule{}, err
	}

	actions := make([]Action, 0, len(s.Actions))
	for _, a := range s.Actions {
		action, err := a.toAction()
		if err != nil {
			return Rule{}, err
		}
		actions = append(actions, action)
	}

	// Rules default to enabled unless the file says otherwise.
	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}

	return Rule{
		ID:        s.ID,
		Name:      s.Name,
		Priority:  s.Priority,
		Enabled:   enabled,
		Condition: cond,
		Actions:   actions,
	}, nil
}

func (s conditionSpec) toCondition() (Condition, error) {
	cond := Condition{
		Variable: s.Variable,
		Value:    s.Value,
		Not:      s.Not,
	}

	if s.Logic == "or" {
		cond.Logic = LogicOr
	}

	if s.Variable != "" {
		op, err := ParseOperator(s.Operator)
		if err != nil {
			return Condition{}, err
		}
		cond.Operator = op
		if len(s.Children) > 0 {
			return Condition{}, fmt.Errorf("%w: condition on %q mixes atom and group",
				ErrInvalidRule, s.Variable)
		}
		return cond, nil
	}

	children := make([]Condition, 0, len(s.Children))
	for _, c := range s.Children {
		child, err := c.toCondition()
		if err != nil {
			return Condition{}, err
		}
		children = append(children, child)
	}
	cond.Children = children
	return cond, nil
}

func (s actionSpec) toAction() (Action, error) {
	t, err := ParseActionType(s.Type)
	if err != nil {
		return Action{}, err
	}

	action := Action{
		Type:     t,
		BlockID:  s.BlockID,
		Variable: s.Variable,
		Value:    s.Value,
		RuleID:   s.RuleID,
	}

	switch t {
	case ActionIncludeBlock, ActionExcludeBlock:
		if action.BlockID == "" {
			return Action{}, fmt.Errorf("%w: %s action requires block_id", ErrInvalidRule, t)
		}
	case ActionSetVariable:
		if action.Variable == "" {
			return Action{}, fmt.Errorf("%w: set_variable action requires variable", ErrInvalidRule)
		}
	case ActionTriggerRule:
		if action.RuleID == "" {
			return Action{}, fmt.Errorf("%w: trigger_rule action requires rule_id", ErrInvalidRule)
		}
	}

	return action, nil
}
