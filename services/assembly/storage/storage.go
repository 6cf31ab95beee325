// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage persists blocks. The production repository is backed
// by BadgerDB; an in-memory repository serves tests and ephemeral runs.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/clauseforge/services/assembly/block"
)

// ErrNotFound indicates the repository has no block with the given ID.
var ErrNotFound = errors.New("block not found")

// NotFoundError identifies which block was missing. It satisfies the
// NotFound() probe resolvers use to distinguish a miss from a failure.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("block %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound marks the error as a resolvable miss.
func (e *NotFoundError) NotFound() bool { return true }

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	// Type matches the block type exactly.
	Type block.Type

	// Category matches Metadata.Category exactly.
	Category string

	// Topic matches Metadata.Topic exactly.
	Topic string

	// Source matches Metadata.Source exactly.
	Source string

	// Tag matches blocks carrying the tag.
	Tag string

	// Search matches blocks whose title or content contains the term,
	// case-insensitively.
	Search string
}

// Matches reports whether the block passes the filter.
func (f Filter) Matches(b *block.Block) bool {
	if f.Type != "" && b.Type != f.Type {
		return false
	}
	if f.Category != "" && b.Metadata.Category != f.Category {
		return false
	}
	if f.Topic != "" && b.Metadata.Topic != f.Topic {
		return false
	}
	if f.Source != "" && b.Metadata.Source != f.Source {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, tag := range b.Metadata.Tags {
			if tag == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" && !b.ContentTree().Search(f.Search) {
		return false
	}
	return true
}

// Repository persists blocks.
//
// Thread Safety: implementations must be safe for concurrent use.
type Repository interface {
	// Get returns the block with the given ID.
	//
	// Errors:
	//   - *NotFoundError: no such block.
	Get(ctx context.Context, id string) (*block.Block, error)

	// List returns all blocks passing the filter, sorted by ID.
	List(ctx context.Context, filter Filter) ([]*block.Block, error)

	// Save creates or replaces a block. The block must pass Validate.
	Save(ctx context.Context, b *block.Block) error

	// Delete removes a block.
	//
	// Errors:
	//   - *NotFoundError: no such block.
	Delete(ctx context.Context, id string) error

	// Close releases the repository's resources.
	Close() error
}
