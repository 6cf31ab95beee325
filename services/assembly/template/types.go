// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package template defines document templates: ordered block references
// with required/optional markings and per-block preconditions, loaded
// from YAML and hot-reloaded on file change.
package template

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateNotFound indicates the registry has no template with
	// the requested ID.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidTemplate indicates a template failed structural
	// validation.
	ErrInvalidTemplate = errors.New("invalid template")
)

// BlockRef is one slot in a template: which block fills it, whether the
// slot is mandatory, and the context preconditions under which the slot
// is used at all.
type BlockRef struct {
	// BlockID names the block for this slot.
	BlockID string `yaml:"block_id" json:"block_id" validate:"required"`

	// Required marks the slot mandatory: assembly fails when the block
	// is excluded or missing.
	Required bool `yaml:"required" json:"required"`

	// Conditions are equality preconditions on the assembly context.
	// All must hold for the slot to be considered. Nil means always.
	Conditions map[string]any `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// Template is an ordered plan for one document kind.
type Template struct {
	// ID uniquely identifies the template, e.g. "antrag_budget".
	ID string `yaml:"id" json:"id" validate:"required"`

	// Name is the human-readable title.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Description explains what the template produces.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Strategy names the assembly strategy: linear, conditional, or
	// hierarchical.
	Strategy string `yaml:"strategy" json:"strategy" validate:"required,oneof=linear conditional hierarchical"`

	// Blocks are the slots in template order. Order is meaningful for
	// the linear strategy and breaks ties elsewhere.
	Blocks []BlockRef `yaml:"blocks" json:"blocks" validate:"required,min=1,dive"`

	// RuleSet names the rule file evaluated before conditional
	// assembly. Empty means no rules.
	RuleSet string `yaml:"rule_set,omitempty" json:"rule_set,omitempty"`
}

// Validate checks invariants the struct tags cannot express.
func (t *Template) Validate() error {
	seen := make(map[string]struct{}, len(t.Blocks))
	for _, ref := range t.Blocks {
		if _, dup := seen[ref.BlockID]; dup {
			return fmt.Errorf("%w: template %s references block %s twice",
				ErrInvalidTemplate, t.ID, ref.BlockID)
		}
		seen[ref.BlockID] = struct{}{}
	}
	return nil
}

// BlockIDs returns the referenced block IDs in template order.
func (t *Template) BlockIDs() []string {
	ids := make([]string, len(t.Blocks))
	for i, ref := range t.Blocks {
		ids[i] = ref.BlockID
	}
	return ids
}

// Eligible reports whether the slot's preconditions hold in the given
// context. Comparison is by rendered value so YAML scalar types and
// caller-supplied Go types agree.
func (r *BlockRef) Eligible(context map[string]any) bool {
	for variable, want := range r.Conditions {
		got, ok := context[variable]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}
