// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/clauseforge/services/assembly/block"
	"github.com/AleutianAI/clauseforge/services/assembly/rules"
	"github.com/AleutianAI/clauseforge/services/assembly/template"
)

// Strategy names.
const (
	StrategyLinear       = "linear"
	StrategyConditional  = "conditional"
	StrategyHierarchical = "hierarchical"
)

// Resolver fetches blocks by ID. The storage package provides the
// production implementation.
type Resolver interface {
	// Resolve returns the block or an error wrapping a not-found
	// sentinel when the ID is unknown.
	Resolve(ctx context.Context, id string) (*block.Block, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, id string) (*block.Block, error)

func (f ResolverFunc) Resolve(ctx context.Context, id string) (*block.Block, error) {
	return f(ctx, id)
}

// Input carries everything one assembly run needs.
type Input struct {
	// Template is the assembly plan. Required.
	Template *template.Template

	// Context is the variable context for slot preconditions and rules.
	Context map[string]any

	// Resolver fetches referenced blocks. Required.
	Resolver Resolver

	// Rules are evaluated by the conditional strategy. Ignored by the
	// others.
	Rules []rules.Rule

	// Title overrides the generated document title.
	Title string

	// Now supplies the assembly timestamp. Nil means time.Now.
	Now func() time.Time
}

// Strategy turns an Input into an assembled Document.
type Strategy interface {
	// Name returns the strategy's registry name.
	Name() string

	// Assemble builds the document. The returned document has
	// StatusAssembled and blocks in final order.
	Assemble(ctx context.Context, in Input) (*Document, error)
}

// ForName returns the strategy registered under name.
func ForName(name string) (Strategy, error) {
	switch name {
	case StrategyLinear:
		return &Linear{}, nil
	case StrategyConditional:
		return &Conditional{Engine: rules.NewEngine()}, nil
	case StrategyHierarchical:
		return &Hierarchical{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// placed is a resolved slot before final ordering.
type placed struct {
	block    *block.Block
	position int
	reason   string
}

// resolveSlots walks the template in order, drops slots whose
// preconditions fail, and resolves the rest. A required slot whose
// block cannot be resolved is collected into the missing list; optional
// misses become warnings.
func resolveSlots(ctx context.Context, in Input, excluded map[string]bool) (placements []placed, missing, warnings []string, err error) {
	for i, ref := range in.Template.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		if !ref.Eligible(in.Context) {
			continue
		}
		if excluded[ref.BlockID] {
			if ref.Required {
				missing = append(missing, ref.BlockID)
			} else {
				warnings = append(warnings, fmt.Sprintf("block %s excluded by rule", ref.BlockID))
			}
			continue
		}

		b, rerr := in.Resolver.Resolve(ctx, ref.BlockID)
		if rerr != nil {
			if !isNotFound(rerr) {
				return nil, nil, nil, fmt.Errorf("resolve block %s: %w", ref.BlockID, rerr)
			}
			b = nil
		}
		if b == nil {
			if ref.Required {
				missing = append(missing, ref.BlockID)
			} else {
				warnings = append(warnings, fmt.Sprintf("optional block %s not found", ref.BlockID))
			}
			continue
		}
		placements = append(placements, placed{block: b, position: i, reason: "template"})
	}
	return placements, missing, warnings, nil
}

// isNotFound treats any error chain mentioning a not-found condition as
// a resolvable miss. Resolvers wrap their own sentinels; the strategies
// only need the distinction miss vs. failure.
func isNotFound(err error) bool {
	var nf interface{ NotFound() bool }
	if errors.As(err, &nf) {
		return nf.NotFound()
	}
	return false
}

// buildDocument finalizes placements into a Document.
func buildDocument(in Input, placements []placed, warnings []string, rulesApplied int) *Document {
	now := in.Now
	if now == nil {
		now = time.Now
	}
	title := in.Title
	if title == "" {
		title = fmt.Sprintf("Document from %s", in.Template.Name)
	}

	blocks := make([]DocumentBlock, len(placements))
	for i, p := range placements {
		blocks[i] = DocumentBlock{
			BlockID: p.block.ID,
			Title:   p.block.Title,
			Content: p.block.Content,
			Order:   i,
			Level:   blockLevel(p.block),
			Reason:  p.reason,
		}
	}

	return &Document{
		ID:           NewDocumentID(),
		Title:        title,
		TemplateID:   in.Template.ID,
		Status:       StatusAssembled,
		Blocks:       blocks,
		Context:      in.Context,
		Warnings:     warnings,
		RulesApplied: rulesApplied,
		CreatedAt:    now(),
	}
}

// blockLevel defaults unset levels to top level.
func blockLevel(b *block.Block) int {
	if b.Metadata.Level < 1 {
		return 1
	}
	return b.Metadata.Level
}
