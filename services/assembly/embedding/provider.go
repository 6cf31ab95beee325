// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package embedding scores text similarity between blocks for the
// semantic conflict check. The production provider is backed by
// Weaviate; a lexical provider serves as fallback and for tests.
package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrNotIndexed indicates a similarity query for a block that was
	// never indexed.
	ErrNotIndexed = errors.New("block not indexed")

	// ErrUnavailable indicates the backing store cannot be reached.
	ErrUnavailable = errors.New("embedding store unavailable")
)

// Provider indexes block texts and scores pairwise similarity.
//
// Thread Safety: implementations must be safe for concurrent use.
type Provider interface {
	// Index stores or replaces the text for a block.
	Index(ctx context.Context, blockID, text string) error

	// Similarity returns a score in [0, 1] for two indexed blocks,
	// 1 meaning identical meaning.
	Similarity(ctx context.Context, blockA, blockB string) (float64, error)

	// Remove drops a block from the index. Unknown IDs are a no-op.
	Remove(ctx context.Context, blockID string) error
}

// Nop is a Provider that indexes nothing and scores everything zero.
// Used when no similarity backend is configured; the semantic conflict
// check then only fires on its lexical heuristics.
type Nop struct{}

func (Nop) Index(context.Context, string, string) error { return nil }
func (Nop) Remove(context.Context, string) error        { return nil }

func (Nop) Similarity(context.Context, string, string) (float64, error) {
	return 0, nil
}

// Lexical scores similarity as Jaccard overlap of lower-cased token
// sets. Crude, but deterministic and dependency-free; it serves as the
// degraded-mode fallback for the Weaviate provider and as the test
// provider.
type Lexical struct {
	mu    sync.RWMutex
	texts map[string]map[string]struct{}
}

// NewLexical creates an empty lexical provider.
func NewLexical() *Lexical {
	return &Lexical{texts: make(map[string]map[string]struct{})}
}

func (l *Lexical) Index(_ context.Context, blockID, text string) error {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tokens[strings.Trim(tok, ".,;:!?()\"'")] = struct{}{}
	}
	delete(tokens, "")

	l.mu.Lock()
	defer l.mu.Unlock()
	l.texts[blockID] = tokens
	return nil
}

func (l *Lexical) Remove(_ context.Context, blockID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.texts, blockID)
	return nil
}

func (l *Lexical) Similarity(_ context.Context, blockA, blockB string) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.texts[blockA]
	if !ok {
		return 0, errNotIndexed(blockA)
	}
	b, ok := l.texts[blockB]
	if !ok {
		return 0, errNotIndexed(blockB)
	}
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}

	shared := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union), nil
}

type notIndexedError struct {
	blockID string
}

func errNotIndexed(blockID string) error {
	return &notIndexedError{blockID: blockID}
}

func (e *notIndexedError) Error() string {
	return "block " + e.blockID + " not indexed"
}

func (e *notIndexedError) Unwrap() error { return ErrNotIndexed }

var (
	_ Provider = Nop{}
	_ Provider = (*Lexical)(nil)
)
