// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/AleutianAI/clauseforge/services/assembly/block"
)

// Memory is an in-memory Repository. Blocks are deep-copied on the way
// in and out, so callers can never alias stored state.
type Memory struct {
	mu     sync.RWMutex
	blocks map[string]*block.Block
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{blocks: make(map[string]*block.Block)}
}

func (m *Memory) Get(_ context.Context, id string) (*block.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return b.Clone(), nil
}

func (m *Memory) List(_ context.Context, filter Filter) ([]*block.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*block.Block, 0, len(m.blocks))
	for _, b := range m.blocks {
		if filter.Matches(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Save(_ context.Context, b *block.Block) error {
	if err := b.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[b.ID] = b.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(m.blocks, id)
	return nil
}

func (m *Memory) Close() error { return nil }

var _ Repository = (*Memory)(nil)
