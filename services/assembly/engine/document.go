// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine assembles documents from templates: it resolves
// template slots to blocks, applies inclusion rules, orders the result
// per the selected strategy, and renders text or Markdown.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the document lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusAssembled Status = "assembled"
	StatusReviewed  Status = "reviewed"
	StatusFinalized Status = "finalized"
)

// statusTransitions lists the allowed next states. Finalized is
// terminal.
var statusTransitions = map[Status][]Status{
	StatusDraft:     {StatusAssembled},
	StatusAssembled: {StatusReviewed, StatusDraft},
	StatusReviewed:  {StatusFinalized, StatusDraft},
	StatusFinalized: {},
}

// Valid reports whether the status is one of the enumerated values.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether the lifecycle allows moving to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DocumentBlock is one placed block in an assembled document.
type DocumentBlock struct {
	// BlockID references the source block.
	BlockID string `json:"block_id"`

	// Title is the block heading at assembly time.
	Title string `json:"title,omitempty"`

	// Content is a snapshot of the block content at assembly time.
	Content string `json:"content"`

	// Order is the position within the document, starting at 0.
	Order int `json:"order"`

	// Level is the detail depth, 1 being top level. Drives rendering
	// indentation and Markdown heading depth.
	Level int `json:"level"`

	// Reason records why the block was placed: "template", "rule:<id>",
	// or "topic:<name>".
	Reason string `json:"reason,omitempty"`
}

// Document is an assembled document.
type Document struct {
	// ID uniquely identifies the document, e.g. "doc_3f2a9c1b07de".
	ID string `json:"id"`

	// Title is the document heading.
	Title string `json:"title"`

	// TemplateID names the template the document was assembled from.
	TemplateID string `json:"template_id"`

	// Status is the lifecycle state. Assembly produces StatusAssembled.
	Status Status `json:"status"`

	// Blocks are the placed blocks, already in document order.
	Blocks []DocumentBlock `json:"blocks"`

	// Context is the variable context the document was assembled under.
	Context map[string]any `json:"context,omitempty"`

	// Warnings are recoverable anomalies from assembly: skipped optional
	// blocks, rule conditions on missing variables.
	Warnings []string `json:"warnings,omitempty"`

	// RulesApplied counts the rules that fired during assembly.
	RulesApplied int `json:"rules_applied"`

	// CreatedAt is when the document was assembled.
	CreatedAt time.Time `json:"created_at"`
}

// Transition moves the document to the next status.
func (d *Document) Transition(next Status) error {
	if !d.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, next)
	}
	d.Status = next
	return nil
}

// NewDocumentID generates a document ID: a "doc_" prefix and twelve hex
// characters of a random UUID.
func NewDocumentID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "doc_" + hex[:12]
}
