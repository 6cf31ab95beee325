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
	"strings"
)

// evalCondition walks a condition tree against the fact map.
//
// Evaluation is pure: it reads facts and appends to warnings, nothing
// else. A missing variable makes the atomic condition false (documented
// policy, not an error) and records a warning.
func evalCondition(cond Condition, facts map[string]any, warnings *[]string) bool {
	var result bool
	if cond.IsGroup() {
		result = evalGroup(cond, facts, warnings)
	} else {
		result = evalAtom(cond, facts, warnings)
	}
	if cond.Not {
		return !result
	}
	return result
}

// evalGroup combines child results with the group's logic.
// An empty group evaluates to true.
func evalGroup(cond Condition, facts map[string]any, warnings *[]string) bool {
	switch cond.Logic {
	case LogicOr:
		for _, child := range cond.Children {
			if evalCondition(child, facts, warnings) {
				return true
			}
		}
		return len(cond.Children) == 0
	default: // LogicAnd
		for _, child := range cond.Children {
			if !evalCondition(child, facts, warnings) {
				return false
			}
		}
		return true
	}
}

// evalAtom applies one enumerated operator. Unknown operators evaluate
// false; the loader rejects them before they ever reach evaluation.
func evalAtom(cond Condition, facts map[string]any, warnings *[]string) bool {
	value, ok := facts[cond.Variable]
	if !ok {
		*warnings = append(*warnings,
			fmt.Sprintf("condition references missing variable %q", cond.Variable))
		return false
	}

	switch cond.Operator {
	case OpEquals:
		return looseEqual(value, cond.Value)
	case OpNotEquals:
		return !looseEqual(value, cond.Value)
	case OpGreater:
		return compareNumeric(value, cond.Value, func(a, b float64) bool { return a > b })
	case OpGreaterEqual:
		return compareNumeric(value, cond.Value, func(a, b float64) bool { return a >= b })
	case OpLess:
		return compareNumeric(value, cond.Value, func(a, b float64) bool { return a < b })
	case OpLessEqual:
		return compareNumeric(value, cond.Value, func(a, b float64) bool { return a <= b })
	case OpIn:
		return containsElement(cond.Value, value)
	case OpNotIn:
		return !containsElement(cond.Value, value)
	case OpContains:
		return valueContains(value, cond.Value)
	default:
		return false
	}
}

// looseEqual compares two values, coercing numerics so 7 == 7.0.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// compareNumeric applies cmp after coercing both sides to float64.
// Non-numeric operands fail the comparison.
func compareNumeric(a, b any, cmp func(float64, float64) bool) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	return cmp(af, bf)
}

// toFloat coerces the numeric types YAML and JSON decoding produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// containsElement reports whether list (a slice literal) contains value.
func containsElement(list, value any) bool {
	switch items := list.(type) {
	case []any:
		for _, item := range items {
			if looseEqual(item, value) {
				return true
			}
		}
	case []string:
		for _, item := range items {
			if looseEqual(item, value) {
				return true
			}
		}
	}
	return false
}

// valueContains reports whether value (a string or slice) contains needle.
func valueContains(value, needle any) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(v, fmt.Sprintf("%v", needle))
	case []any, []string:
		return containsElement(v, needle)
	}
	return false
}
