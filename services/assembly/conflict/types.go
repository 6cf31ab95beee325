// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package conflict finds contradictions between blocks: semantically
// opposed texts, mutually exclusive applicability conditions,
// overlapping validity of the same paragraph, and cycles in the block
// hierarchy.
package conflict

import "fmt"

// Type classifies a detected conflict.
type Type int

const (
	TypeUnknown Type = iota
	TypeSemantic
	TypeLogical
	TypeTemporal
	TypeHierarchical
)

var typeNames = map[Type]string{
	TypeUnknown:      "unknown",
	TypeSemantic:     "semantic",
	TypeLogical:      "logical",
	TypeTemporal:     "temporal",
	TypeHierarchical: "hierarchical",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Severity ranks how urgent a conflict is.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Conflict is one detected contradiction between two blocks.
// Conflicts are symmetric; BlockA sorts before BlockB so each pair is
// reported once.
type Conflict struct {
	// Type classifies the conflict.
	Type Type `json:"type"`

	// Severity ranks urgency.
	Severity Severity `json:"severity"`

	// BlockA and BlockB identify the conflicting pair, sorted.
	BlockA string `json:"block_a"`
	BlockB string `json:"block_b"`

	// Description explains the finding in one sentence.
	Description string `json:"description"`

	// Score carries the similarity score for semantic conflicts,
	// zero otherwise.
	Score float64 `json:"score,omitempty"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("[%s/%s] %s <-> %s: %s",
		c.Type, c.Severity, c.BlockA, c.BlockB, c.Description)
}

// newConflict builds a conflict with the pair in canonical order.
func newConflict(t Type, severity Severity, a, b, description string, score float64) Conflict {
	if b < a {
		a, b = b, a
	}
	return Conflict{
		Type:        t,
		Severity:    severity,
		BlockA:      a,
		BlockB:      b,
		Description: description,
		Score:       score,
	}
}
