// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package block defines the content block model: the atomic unit of
// document assembly, its metadata, relationships, and the composable
// content representation.
package block

import (
	"fmt"
	"time"
)

// Type classifies what a block expresses.
type Type string

const (
	TypeParagraph   Type = "paragraph"
	TypeDefinition  Type = "definition"
	TypeProcedure   Type = "procedure"
	TypeRequirement Type = "requirement"
	TypeRight       Type = "right"
	TypeObligation  Type = "obligation"
	TypeSanction    Type = "sanction"
	TypeCustom      Type = "custom"
)

// Valid reports whether the type is one of the enumerated values.
func (t Type) Valid() bool {
	switch t {
	case TypeParagraph, TypeDefinition, TypeProcedure, TypeRequirement,
		TypeRight, TypeObligation, TypeSanction, TypeCustom:
		return true
	}
	return false
}

// Metadata carries the descriptive fields rules and strategies key on.
type Metadata struct {
	// Source labels where the content comes from, e.g. "SGB IX" or "Custom".
	Source string `json:"source,omitempty"`

	// Paragraph is the logical designation within the source, e.g. "§29".
	// The temporal conflict check pairs blocks by this field.
	Paragraph string `json:"paragraph,omitempty"`

	// ValidFrom is the start of the validity window. Nil means unbounded.
	ValidFrom *time.Time `json:"valid_from,omitempty"`

	// ValidUntil is the exclusive end of the validity window.
	// Nil means still in force.
	ValidUntil *time.Time `json:"valid_until,omitempty"`

	// Category is a coarse grouping used for filtering.
	Category string `json:"category,omitempty"`

	// Topic buckets blocks for the hierarchical assembly strategy.
	Topic string `json:"topic,omitempty"`

	// Level is the detail depth, 1 being top level. Drives rendering
	// indentation and within-topic ordering.
	Level int `json:"level,omitempty"`

	// Priority orders blocks under the conditional strategy (ascending).
	Priority int `json:"priority,omitempty"`

	// Language is the BCP 47 tag of the content, e.g. "de".
	Language string `json:"language,omitempty"`

	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty"`

	// Custom holds authoring-workflow extensions the engine passes through.
	Custom map[string]any `json:"custom,omitempty"`
}

// ValidityOverlaps reports whether two validity windows intersect.
// Windows are [from, until): nil from is the distant past, nil until is
// open-ended.
func (m Metadata) ValidityOverlaps(other Metadata) bool {
	startsBefore := func(a *time.Time, b *time.Time) bool {
		// a < b with nil a = -inf, nil b = +inf
		if a == nil {
			return true
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	}
	// Overlap iff each window starts before the other ends.
	return startsBefore(m.ValidFrom, other.ValidUntil) &&
		startsBefore(other.ValidFrom, m.ValidUntil)
}

// Relationships lists the edges a block declares toward other blocks.
// The graph package materializes these as typed edges; the block keeps
// them so persistence round-trips the full authoring state.
type Relationships struct {
	// Parents are the containing blocks, ordered.
	Parents []string `json:"parents,omitempty"`

	// Children are the contained blocks, ordered.
	Children []string `json:"children,omitempty"`

	// References are cited blocks.
	References []string `json:"references,omitempty"`

	// Related are semantically associated blocks.
	Related []string `json:"related,omitempty"`
}

// Block is the atomic content unit of document assembly.
//
// Lifecycle: blocks are created by an external authoring workflow. The
// graph owns current relationships, the version store owns content
// history. The parent/child subgraph must stay acyclic; a violation is
// detected (CycleError) rather than silently corrected.
type Block struct {
	// ID uniquely identifies the block, e.g. "sgb9_para29".
	ID string `json:"id" validate:"required"`

	// Type classifies the block.
	Type Type `json:"type" validate:"required"`

	// Title is the heading, e.g. "§29 Persönliches Budget".
	Title string `json:"title" validate:"required"`

	// Content is the current text of the block.
	Content string `json:"content"`

	// Metadata carries the fields rules and strategies key on.
	Metadata Metadata `json:"metadata"`

	// Relationships lists declared edges toward other blocks.
	Relationships Relationships `json:"relationships"`

	// Conditions declare when the block applies. The logical conflict
	// check compares these across blocks. Stored as an opaque list here;
	// the rules package defines the condition type.
	Conditions []DeclaredCondition `json:"conditions,omitempty"`

	// Version is the current version number in the version store.
	Version int `json:"version"`

	// CreatedAt is when the block was first saved.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the block content or metadata last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// DeclaredCondition is a flat comparison a block declares about its own
// applicability: "this block applies when variable op value". The
// logical conflict check flags pairs of blocks whose declarations are
// mutually exclusive.
type DeclaredCondition struct {
	// Variable names the context variable.
	Variable string `json:"variable"`

	// Operator is the wire form of the comparison, e.g. ">" or "<=".
	Operator string `json:"operator"`

	// Value is the literal threshold.
	Value any `json:"value"`
}

// Validate checks structural invariants of the block itself. Graph-level
// invariants (hierarchy acyclicity) are checked by the graph.
func (b *Block) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("block id must not be empty")
	}
	if !b.Type.Valid() {
		return fmt.Errorf("block %s: unknown type %q", b.ID, b.Type)
	}
	if b.Title == "" {
		return fmt.Errorf("block %s: title must not be empty", b.ID)
	}
	if b.Metadata.ValidFrom != nil && b.Metadata.ValidUntil != nil &&
		!b.Metadata.ValidFrom.Before(*b.Metadata.ValidUntil) {
		return fmt.Errorf("block %s: validity window is empty", b.ID)
	}
	return nil
}

// ContentTree returns the block as a Content value: the title plus one
// part per content paragraph. Search and word counts go through it.
func (b *Block) ContentTree() Content {
	return NewComposite(b.Title, ParseContent(b.Content))
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	clone := *b
	clone.Metadata.Tags = append([]string(nil), b.Metadata.Tags...)
	if b.Metadata.Custom != nil {
		clone.Metadata.Custom = make(map[string]any, len(b.Metadata.Custom))
		for k, v := range b.Metadata.Custom {
			clone.Metadata.Custom[k] = v
		}
	}
	clone.Relationships.Parents = append([]string(nil), b.Relationships.Parents...)
	clone.Relationships.Children = append([]string(nil), b.Relationships.Children...)
	clone.Relationships.References = append([]string(nil), b.Relationships.References...)
	clone.Relationships.Related = append([]string(nil), b.Relationships.Related...)
	clone.Conditions = append([]DeclaredCondition(nil), b.Conditions...)
	return &clone
}
