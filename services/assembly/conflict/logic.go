// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package conflict

import (
	"fmt"
	"math"

	"github.com/AleutianAI/clauseforge/services/assembly/block"
)

// mutuallyExclusive reports whether two declared conditions on the same
// variable can never both hold. Equality conflicts work for any value
// type; ordering conflicts require both values numeric.
func mutuallyExclusive(a, b block.DeclaredCondition) bool {
	if a.Variable == "" || a.Variable != b.Variable {
		return false
	}

	sameValue := fmt.Sprintf("%v", a.Value) == fmt.Sprintf("%v", b.Value)
	switch {
	case a.Operator == "==" && b.Operator == "==":
		return !sameValue
	case a.Operator == "==" && b.Operator == "!=",
		a.Operator == "!=" && b.Operator == "==":
		return sameValue
	}

	ia, ok := toInterval(a)
	if !ok {
		return false
	}
	ib, ok := toInterval(b)
	if !ok {
		return false
	}
	return disjoint(ia, ib)
}

// interval is the set of numeric values satisfying one comparison.
type interval struct {
	lo, hi       float64
	loInc, hiInc bool
}

// toInterval maps a numeric comparison onto an interval. Non-numeric
// values and "!=" (a punctured line, not an interval) report false.
func toInterval(c block.DeclaredCondition) (interval, bool) {
	v, ok := toFloat(c.Value)
	if !ok {
		return interval{}, false
	}
	switch c.Operator {
	case "==":
		return interval{lo: v, hi: v, loInc: true, hiInc: true}, true
	case ">":
		return interval{lo: v, hi: math.Inf(1)}, true
	case ">=":
		return interval{lo: v, hi: math.Inf(1), loInc: true}, true
	case "<":
		return interval{lo: math.Inf(-1), hi: v}, true
	case "<=":
		return interval{lo: math.Inf(-1), hi: v, hiInc: true}, true
	}
	return interval{}, false
}

func disjoint(a, b interval) bool {
	if a.hi < b.lo || (a.hi == b.lo && !(a.hiInc && b.loInc)) {
		return true
	}
	if b.hi < a.lo || (b.hi == a.lo && !(b.hiInc && a.loInc)) {
		return true
	}
	return false
}

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
	}
	return 0, false
}
