// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules implements the declarative rule engine: condition trees
// evaluated against a context map, single-pass prioritized evaluation,
// and forward-chaining inference with a hard iteration cap.
//
// Conditions are a closed AST of enumerated operators walked by the
// evaluator. There is no dynamic expression interpretation anywhere in
// this package.
package rules

import "fmt"

// Operator is a comparison operator in an atomic condition.
type Operator int

const (
	// OpUnknown indicates an unrecognized operator.
	OpUnknown Operator = iota

	// OpEquals matches when the variable equals the literal.
	OpEquals

	// OpNotEquals matches when the variable differs from the literal.
	OpNotEquals

	// OpGreater matches when the variable is numerically greater.
	OpGreater

	// OpGreaterEqual matches when the variable is numerically greater or equal.
	OpGreaterEqual

	// OpLess matches when the variable is numerically less.
	OpLess

	// OpLessEqual matches when the variable is numerically less or equal.
	OpLessEqual

	// OpIn matches when the variable is an element of the literal list.
	OpIn

	// OpNotIn matches when the variable is not an element of the literal list.
	OpNotIn

	// OpContains matches when the variable (string or list) contains the literal.
	OpContains
)

// operatorNames maps Operator values to their wire representations.
var operatorNames = map[Operator]string{
	OpEquals:       "==",
	OpNotEquals:    "!=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpIn:           "in",
	OpNotIn:        "not_in",
	OpContains:     "contains",
}

// String returns the wire representation of the operator.
func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOperator converts a wire representation to an Operator.
//
// Outputs:
//
//	Operator - The parsed operator.
//	error - ErrUnknownOperator if the name is outside the closed set.
func ParseOperator(s string) (Operator, error) {
	for op, name := range operatorNames {
		if name == s {
			return op, nil
		}
	}
	return OpUnknown, fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}

// GroupLogic combines child conditions inside a group node.
type GroupLogic int

const (
	// LogicAnd requires every child to hold.
	LogicAnd GroupLogic = iota

	// LogicOr requires at least one child to hold.
	LogicOr
)

// String returns the wire representation of the group logic.
func (l GroupLogic) String() string {
	if l == LogicOr {
		return "or"
	}
	return "and"
}

// Condition is one node of a condition tree: either an atomic comparison
// (Variable/Operator/Value set, Children empty) or a group (Logic plus
// Children). Not negates the node's result in either form.
//
// An empty group evaluates to true, matching the identity of AND over
// zero operands.
type Condition struct {
	// Variable names the context variable compared by an atomic condition.
	Variable string `yaml:"variable,omitempty" json:"variable,omitempty"`

	// Operator is the comparison applied by an atomic condition.
	Operator Operator `yaml:"-" json:"-"`

	// Value is the literal an atomic condition compares against.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Logic combines Children in a group condition.
	Logic GroupLogic `yaml:"-" json:"-"`

	// Not negates the result of this node.
	Not bool `yaml:"not,omitempty" json:"not,omitempty"`

	// Children holds the nested conditions of a group node.
	Children []Condition `yaml:"children,omitempty" json:"children,omitempty"`
}

// IsGroup reports whether this node is a group rather than an atom.
func (c Condition) IsGroup() bool {
	return len(c.Children) > 0 || c.Variable == ""
}

// ActionType enumerates what a fired rule can do.
type ActionType int

const (
	// ActionUnknown indicates an unrecognized action type.
	ActionUnknown ActionType = iota

	// ActionIncludeBlock marks a block for inclusion in the document.
	ActionIncludeBlock

	// ActionExcludeBlock removes a block from the inclusion set.
	ActionExcludeBlock

	// ActionSetVariable writes a fact visible to later rules.
	ActionSetVariable

	// ActionTriggerRule schedules another rule for immediate re-check.
	ActionTriggerRule
)

// actionTypeNames maps ActionType values to their wire representations.
var actionTypeNames = map[ActionType]string{
	ActionIncludeBlock: "include_block",
	ActionExcludeBlock: "exclude_block",
	ActionSetVariable:  "set_variable",
	ActionTriggerRule:  "trigger_rule",
}

// String returns the wire representation of the action type.
func (a ActionType) String() string {
	if name, ok := actionTypeNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseActionType converts a wire representation to an ActionType.
func ParseActionType(s string) (ActionType, error) {
	for a, name := range actionTypeNames {
		if name == s {
			return a, nil
		}
	}
	return ActionUnknown, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Action is one effect of a fired rule. Which fields are meaningful
// depends on Type.
type Action struct {
	// Type selects the effect.
	Type ActionType

	// BlockID names the block for include/exclude actions.
	BlockID string

	// Variable names the fact written by a set-variable action.
	Variable string

	// Value is the fact value written by a set-variable action.
	Value any

	// RuleID names the rule re-checked by a trigger action.
	RuleID string
}

// Rule is a condition-action pair controlling block inclusion.
type Rule struct {
	// ID uniquely identifies the rule.
	ID string

	// Name is a human-readable label, used only in logs and reports.
	Name string

	// Priority orders evaluation: lower values are evaluated first.
	// Ties are broken by declaration order.
	Priority int

	// Enabled rules participate in evaluation; disabled rules are
	// skipped entirely.
	Enabled bool

	// Condition is the tree that must hold for the rule to fire.
	Condition Condition

	// Actions are applied in order when the rule fires.
	Actions []Action
}

// Result is the outcome of an engine run.
type Result struct {
	// Included lists block IDs marked for inclusion, in the order the
	// marking actions ran, deduplicated.
	Included []string

	// Excluded is the set of block IDs explicitly excluded.
	Excluded map[string]bool

	// Facts is the final fact map: the caller's context plus every
	// set-variable effect.
	Facts map[string]any

	// Fired lists the IDs of rules that fired, in firing order.
	Fired []string

	// Warnings records recoverable anomalies, such as conditions that
	// referenced missing context variables.
	Warnings []string

	// Iterations is the number of forward-chaining passes used
	// (1 for single-pass evaluation).
	Iterations int
}

// IncludedSet returns Included minus Excluded, preserving order.
func (r *Result) IncludedSet() []string {
	out := make([]string, 0, len(r.Included))
	for _, id := range r.Included {
		if !r.Excluded[id] {
			out = append(out, id)
		}
	}
	return out
}
