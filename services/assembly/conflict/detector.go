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
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/clauseforge/pkg/logging"
	"github.com/AleutianAI/clauseforge/services/assembly/block"
	"github.com/AleutianAI/clauseforge/services/assembly/embedding"
	"github.com/AleutianAI/clauseforge/services/assembly/graph"
)

const (
	// DefaultSimilarityThreshold is the semantic similarity above which
	// a negation-divergent pair is flagged.
	DefaultSimilarityThreshold = 0.7

	// DefaultConcurrency bounds parallel pair checks.
	DefaultConcurrency = 8
)

// negationMarkers flag texts that negate what they state. German first,
// since the corpus is German law, plus the English equivalents.
var negationMarkers = []string{
	"nicht", "kein", "keine", "keinen", "niemals", "ausgeschlossen",
	"not", "no", "never", "excluded",
}

// Options configures a Detector.
type Options struct {
	threshold   float64
	concurrency int
	logger      *logging.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithThreshold overrides the semantic similarity threshold.
func WithThreshold(t float64) Option {
	return func(o *Options) { o.threshold = t }
}

// WithConcurrency bounds parallel pair checks.
func WithConcurrency(n int) Option {
	return func(o *Options) { o.concurrency = n }
}

// WithLogger sets the detector's logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// Detector runs the four conflict checks over a block set.
//
// Thread Safety: safe for concurrent use.
type Detector struct {
	provider embedding.Provider
	graph    *graph.Graph
	options  Options
}

// NewDetector creates a detector. provider scores semantic similarity
// (embedding.Nop disables the similarity part of the semantic check);
// g supplies the hierarchy for the cycle check and may be nil.
func NewDetector(provider embedding.Provider, g *graph.Graph, opts ...Option) *Detector {
	options := Options{
		threshold:   DefaultSimilarityThreshold,
		concurrency: DefaultConcurrency,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if provider == nil {
		provider = embedding.Nop{}
	}
	return &Detector{provider: provider, graph: g, options: options}
}

// Detect runs every check over the block set and returns all findings,
// sorted by block pair then type. Pair checks run concurrently.
func (d *Detector) Detect(ctx context.Context, blocks []*block.Block) ([]Conflict, error) {
	// Index first so similarity queries see every block.
	for _, b := range blocks {
		if err := d.provider.Index(ctx, b.ID, b.Content); err != nil {
			return nil, fmt.Errorf("index block %s: %w", b.ID, err)
		}
	}

	var (
		mu    sync.Mutex
		found []Conflict
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(d.options.concurrency)

	for i := range blocks {
		for j := i + 1; j < len(blocks); j++ {
			a, b := blocks[i], blocks[j]
			eg.Go(func() error {
				conflicts, err := d.checkPair(ctx, a, b)
				if err != nil {
					return err
				}
				if len(conflicts) > 0 {
					mu.Lock()
					found = append(found, conflicts...)
					mu.Unlock()
				}
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	hierarchical, err := d.checkHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	found = append(found, hierarchical...)

	sort.Slice(found, func(i, j int) bool {
		if found[i].BlockA != found[j].BlockA {
			return found[i].BlockA < found[j].BlockA
		}
		if found[i].BlockB != found[j].BlockB {
			return found[i].BlockB < found[j].BlockB
		}
		return found[i].Type < found[j].Type
	})
	return found, nil
}

// checkPair runs the three pairwise checks.
func (d *Detector) checkPair(ctx context.Context, a, b *block.Block) ([]Conflict, error) {
	var conflicts []Conflict

	if c, ok := d.checkTemporal(a, b); ok {
		conflicts = append(conflicts, c)
	}
	if c, ok := d.checkLogical(a, b); ok {
		conflicts = append(conflicts, c)
	}
	c, ok, err := d.checkSemantic(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if ok {
		conflicts = append(conflicts, c)
	}
	return conflicts, nil
}

// checkTemporal flags two blocks claiming the same paragraph with
// overlapping validity windows: two versions of the same provision in
// force at once.
func (d *Detector) checkTemporal(a, b *block.Block) (Conflict, bool) {
	if a.Metadata.Paragraph == "" || a.Metadata.Paragraph != b.Metadata.Paragraph {
		return Conflict{}, false
	}
	if !a.Metadata.ValidityOverlaps(b.Metadata) {
		return Conflict{}, false
	}
	return newConflict(TypeTemporal, SeverityMedium, a.ID, b.ID,
		fmt.Sprintf("both claim %s with overlapping validity", a.Metadata.Paragraph), 0), true
}

// checkLogical flags blocks whose declared applicability conditions on
// the same variable can never hold together.
func (d *Detector) checkLogical(a, b *block.Block) (Conflict, bool) {
	for _, ca := range a.Conditions {
		for _, cb := range b.Conditions {
			if mutuallyExclusive(ca, cb) {
				return newConflict(TypeLogical, SeverityCritical, a.ID, b.ID,
					fmt.Sprintf("mutually exclusive conditions on %q (%s %v vs %s %v)",
						ca.Variable, ca.Operator, ca.Value, cb.Operator, cb.Value), 0), true
			}
		}
	}
	return Conflict{}, false
}

// checkSemantic flags near-duplicate texts where exactly one side
// negates: the blocks say opposite things about the same subject.
func (d *Detector) checkSemantic(ctx context.Context, a, b *block.Block) (Conflict, bool, error) {
	if hasNegation(a.Content) == hasNegation(b.Content) {
		return Conflict{}, false, nil
	}

	score, err := d.provider.Similarity(ctx, a.ID, b.ID)
	if err != nil {
		if errors.Is(err, embedding.ErrNotIndexed) || errors.Is(err, embedding.ErrUnavailable) {
			d.options.logger.Warn("semantic check skipped", "block_a", a.ID, "block_b", b.ID, "error", err)
			return Conflict{}, false, nil
		}
		return Conflict{}, false, err
	}
	if score <= d.options.threshold {
		return Conflict{}, false, nil
	}
	return newConflict(TypeSemantic, SeverityHigh, a.ID, b.ID,
		fmt.Sprintf("similar texts (%.2f) with opposing negation", score), score), true, nil
}

// checkHierarchy flags cycles in the parent/child subgraph.
func (d *Detector) checkHierarchy(ctx context.Context) ([]Conflict, error) {
	if d.graph == nil {
		return nil, nil
	}
	cycles, err := d.graph.DetectCycles(ctx, graph.EdgeTypeParentOf)
	if err != nil {
		return nil, err
	}

	conflicts := make([]Conflict, 0, len(cycles))
	for _, cycle := range cycles {
		if len(cycle) < 2 {
			continue
		}
		conflicts = append(conflicts, newConflict(
			TypeHierarchical, SeverityCritical, cycle[0], cycle[1],
			fmt.Sprintf("hierarchy cycle: %s", strings.Join(cycle, " -> ")), 0))
	}
	return conflicts, nil
}

// hasNegation reports whether the text contains a negation marker.
func hasNegation(text string) bool {
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?()\"'")
		for _, marker := range negationMarkers {
			if tok == marker {
				return true
			}
		}
	}
	return false
}
