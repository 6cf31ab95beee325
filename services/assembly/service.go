// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assembly is the service facade: block CRUD with graph and
// version side effects, document assembly, conflict scans, and
// rendering. Everything the CLI exposes goes through Service.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/clauseforge/pkg/logging"
	"github.com/AleutianAI/clauseforge/services/assembly/block"
	"github.com/AleutianAI/clauseforge/services/assembly/conflict"
	"github.com/AleutianAI/clauseforge/services/assembly/embedding"
	"github.com/AleutianAI/clauseforge/services/assembly/engine"
	"github.com/AleutianAI/clauseforge/services/assembly/events"
	"github.com/AleutianAI/clauseforge/services/assembly/graph"
	"github.com/AleutianAI/clauseforge/services/assembly/rules"
	"github.com/AleutianAI/clauseforge/services/assembly/storage"
	"github.com/AleutianAI/clauseforge/services/assembly/template"
	"github.com/AleutianAI/clauseforge/services/assembly/version"
)

// ErrDocumentNotFound indicates an unknown document ID.
var ErrDocumentNotFound = errors.New("document not found")

// Config wires a Service. Zero fields get working defaults: an
// in-memory repository, a no-op embedding provider, a no-op publisher,
// and the package logger.
type Config struct {
	// Repository persists blocks.
	Repository storage.Repository

	// Provider scores semantic similarity for conflict scans.
	Provider embedding.Provider

	// Publisher receives lifecycle events.
	Publisher events.Publisher

	// Logger for service operations.
	Logger *logging.Logger

	// Now supplies timestamps. Nil means time.Now.
	Now func() time.Time
}

// Service is the assembly facade.
//
// Thread Safety: safe for concurrent use.
type Service struct {
	repo      storage.Repository
	graph     *graph.Graph
	versions  *version.Store
	registry  *template.Registry
	detector  *conflict.Detector
	provider  embedding.Provider
	publisher events.Publisher
	logger    *logging.Logger
	now       func() time.Time

	mu        sync.RWMutex
	ruleSets  map[string][]rules.Rule
	documents map[string]*engine.Document
}

// New creates a Service with the given configuration.
func New(cfg Config) *Service {
	if cfg.Repository == nil {
		cfg.Repository = storage.NewMemory()
	}
	if cfg.Provider == nil {
		cfg.Provider = embedding.Nop{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	g := graph.New()
	return &Service{
		repo:      cfg.Repository,
		graph:     g,
		versions:  version.NewStore(version.WithClock(cfg.Now)),
		registry:  template.NewRegistry(cfg.Logger),
		detector:  conflict.NewDetector(cfg.Provider, g, conflict.WithLogger(cfg.Logger)),
		provider:  cfg.Provider,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       cfg.Now,
		ruleSets:  make(map[string][]rules.Rule),
		documents: make(map[string]*engine.Document),
	}
}

// Templates exposes the template registry, for loaders and watchers.
func (s *Service) Templates() *template.Registry {
	return s.registry
}

// Graph exposes the relationship graph for read queries.
func (s *Service) Graph() *graph.Graph {
	return s.graph
}

// RegisterRuleSet makes a named rule set available to templates.
func (s *Service) RegisterRuleSet(name string, ruleSet []rules.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ruleSets[name] = ruleSet
}

// LoadRuleSet parses a rule file and registers it under name.
func (s *Service) LoadRuleSet(name, path string) error {
	ruleSet, err := rules.LoadFile(path)
	if err != nil {
		return err
	}
	s.RegisterRuleSet(name, ruleSet)
	s.logger.Info("rule set loaded", "name", name, "rules", len(ruleSet))
	return nil
}

// ---------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------

// SaveBlock validates and persists the block, mirrors its declared
// relationships into the graph, commits a content version, and indexes
// the content for similarity scoring.
func (s *Service) SaveBlock(ctx context.Context, b *block.Block) error {
	if err := b.Validate(); err != nil {
		return err
	}

	now := s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	// The previously stored state tells us which mirrored edges to retract
	// when relationships were removed before this save.
	prev, err := s.repo.Get(ctx, b.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		prev = nil
	}

	v, err := s.versions.Commit(b.ID, b.Content, version.CommitMeta{Message: "save"})
	switch {
	case err == nil:
		b.Version = v.Number
	case errors.Is(err, version.ErrEmptyCommit):
		// Metadata-only change; the content version stands.
	default:
		return fmt.Errorf("commit version: %w", err)
	}

	if err := s.repo.Save(ctx, b); err != nil {
		return err
	}
	if err := s.mirrorRelationships(b, prev); err != nil {
		return err
	}
	if err := s.provider.Index(ctx, b.ID, b.Content); err != nil {
		s.logger.Warn("similarity index failed", "block", b.ID, "error", err)
	}

	s.publish(ctx, events.Event{Type: events.TypeBlockSaved, BlockID: b.ID, At: now})
	return nil
}

// mirrorRelationships reconciles the graph with the block's declared
// relationships. Edges mirrored for the previous state are retracted
// first, so a re-save never duplicates edges and a relationship dropped
// from the block drops its edge too. Endpoints are created on demand;
// edges toward blocks saved later resolve when those blocks arrive.
func (s *Service) mirrorRelationships(b, prev *block.Block) error {
	if prev != nil {
		s.unmirrorRelationships(prev)
	}

	ensure := func(id string) error {
		if s.graph.HasNode(id) {
			return nil
		}
		return s.graph.AddNode(id)
	}
	if err := ensure(b.ID); err != nil {
		return err
	}

	addEdge := func(from, to string, t graph.EdgeType) error {
		if err := ensure(from); err != nil {
			return err
		}
		if err := ensure(to); err != nil {
			return err
		}
		if s.graph.HasEdge(from, to, t) {
			return nil
		}
		_, err := s.graph.AddEdge(from, to, t, graph.DefaultEdgeWeight)
		return err
	}

	for _, parent := range b.Relationships.Parents {
		if err := addEdge(parent, b.ID, graph.EdgeTypeParentOf); err != nil {
			return err
		}
	}
	for _, child := range b.Relationships.Children {
		if err := addEdge(b.ID, child, graph.EdgeTypeParentOf); err != nil {
			return err
		}
	}
	for _, ref := range b.Relationships.References {
		if err := addEdge(b.ID, ref, graph.EdgeTypeReferences); err != nil {
			return err
		}
	}
	for _, rel := range b.Relationships.Related {
		if err := addEdge(b.ID, rel, graph.EdgeTypeRelatedTo); err != nil {
			return err
		}
	}
	return nil
}

// unmirrorRelationships retracts the edges a block's earlier save put
// into the graph.
func (s *Service) unmirrorRelationships(b *block.Block) {
	for _, parent := range b.Relationships.Parents {
		s.graph.RemoveEdge(parent, b.ID, graph.EdgeTypeParentOf)
	}
	for _, child := range b.Relationships.Children {
		s.graph.RemoveEdge(b.ID, child, graph.EdgeTypeParentOf)
	}
	for _, ref := range b.Relationships.References {
		s.graph.RemoveEdge(b.ID, ref, graph.EdgeTypeReferences)
	}
	for _, rel := range b.Relationships.Related {
		s.graph.RemoveEdge(b.ID, rel, graph.EdgeTypeRelatedTo)
	}
}

// Rehydrate rebuilds the relationship graph and similarity index from
// the repository. Call once after opening a persistent repository; the
// graph and index live in memory only.
func (s *Service) Rehydrate(ctx context.Context) error {
	blocks, err := s.repo.List(ctx, storage.Filter{})
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if err := s.mirrorRelationships(b, nil); err != nil {
			return fmt.Errorf("rehydrate block %s: %w", b.ID, err)
		}
		// Seed the in-memory history with the persisted content as the
		// baseline version.
		if _, err := s.versions.Commit(b.ID, b.Content, version.CommitMeta{Message: "load"}); err != nil &&
			!errors.Is(err, version.ErrEmptyCommit) {
			return fmt.Errorf("rehydrate block %s: %w", b.ID, err)
		}
		if err := s.provider.Index(ctx, b.ID, b.Content); err != nil {
			s.logger.Warn("similarity index failed", "block", b.ID, "error", err)
		}
	}
	s.logger.Info("graph rehydrated", "blocks", len(blocks))
	return nil
}

// GetBlock returns a block by ID.
func (s *Service) GetBlock(ctx context.Context, id string) (*block.Block, error) {
	return s.repo.Get(ctx, id)
}

// ListBlocks returns blocks passing the filter, sorted by ID.
func (s *Service) ListBlocks(ctx context.Context, filter storage.Filter) ([]*block.Block, error) {
	return s.repo.List(ctx, filter)
}

// DeleteBlock removes the block, its graph node with all edges, and its
// similarity index entry. Version history is kept.
func (s *Service) DeleteBlock(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.graph.HasNode(id) {
		if _, err := s.graph.RemoveNode(id); err != nil {
			return err
		}
	}
	if err := s.provider.Remove(ctx, id); err != nil {
		s.logger.Warn("similarity index removal failed", "block", id, "error", err)
	}

	s.publish(ctx, events.Event{Type: events.TypeBlockDeleted, BlockID: id, At: s.now()})
	return nil
}

// ---------------------------------------------------------------------
// Assembly
// ---------------------------------------------------------------------

// Assemble builds a document from the named template under the given
// variable context and stores it for later rendering.
func (s *Service) Assemble(ctx context.Context, templateID string, vars map[string]any, title string) (*engine.Document, error) {
	start := s.now()

	tmpl, err := s.registry.Get(templateID)
	if err != nil {
		return nil, err
	}
	strategy, err := engine.ForName(tmpl.Strategy)
	if err != nil {
		return nil, err
	}

	var ruleSet []rules.Rule
	if tmpl.RuleSet != "" {
		s.mu.RLock()
		ruleSet = s.ruleSets[tmpl.RuleSet]
		s.mu.RUnlock()
		if ruleSet == nil {
			return nil, fmt.Errorf("template %s: rule set %q not registered", templateID, tmpl.RuleSet)
		}
	}

	doc, err := strategy.Assemble(ctx, engine.Input{
		Template: tmpl,
		Context:  vars,
		Resolver: engine.ResolverFunc(s.repo.Get),
		Rules:    ruleSet,
		Title:    title,
		Now:      s.now,
	})
	recordAssembly(ctx, tmpl.Strategy, s.now().Sub(start), docBlockCount(doc), err == nil)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.documents[doc.ID] = doc
	s.mu.Unlock()

	s.logger.Info("document assembled",
		"document", doc.ID,
		"template", templateID,
		"strategy", tmpl.Strategy,
		"blocks", len(doc.Blocks))
	s.publish(ctx, events.Event{
		Type:       events.TypeDocumentAssembled,
		DocumentID: doc.ID,
		At:         s.now(),
		Fields:     map[string]any{"template": templateID, "blocks": len(doc.Blocks)},
	})
	return doc, nil
}

func docBlockCount(doc *engine.Document) int {
	if doc == nil {
		return 0
	}
	return len(doc.Blocks)
}

// GetDocument returns an assembled document by ID.
func (s *Service) GetDocument(id string) (*engine.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, nil
}

// ListDocuments returns all assembled documents, newest first.
func (s *Service) ListDocuments() []*engine.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*engine.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UpdateDocumentStatus moves a document through its lifecycle.
func (s *Service) UpdateDocumentStatus(id string, status engine.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc.Transition(status)
}

// RenderText renders a stored document as plain text.
func (s *Service) RenderText(id string) (string, error) {
	doc, err := s.GetDocument(id)
	if err != nil {
		return "", err
	}
	return engine.RenderText(doc), nil
}

// ExportMarkdown renders a stored document as Markdown.
func (s *Service) ExportMarkdown(id string) (string, error) {
	doc, err := s.GetDocument(id)
	if err != nil {
		return "", err
	}
	return engine.ExportMarkdown(doc), nil
}

// ---------------------------------------------------------------------
// Conflicts
// ---------------------------------------------------------------------

// DetectConflicts scans blocks pairwise plus the hierarchy. With no IDs
// every stored block is scanned; otherwise only the named subset.
//
// Errors:
//   - *storage.NotFoundError: a named block does not exist.
func (s *Service) DetectConflicts(ctx context.Context, blockIDs ...string) ([]conflict.Conflict, error) {
	start := s.now()
	var blocks []*block.Block
	if len(blockIDs) == 0 {
		var err error
		blocks, err = s.repo.List(ctx, storage.Filter{})
		if err != nil {
			return nil, err
		}
	} else {
		blocks = make([]*block.Block, 0, len(blockIDs))
		for _, id := range blockIDs {
			b, err := s.repo.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, b)
		}
	}

	found, err := s.detector.Detect(ctx, blocks)
	recordConflictScan(ctx, s.now().Sub(start), len(found), err == nil)
	if err != nil {
		return nil, err
	}

	if len(found) > 0 {
		s.publish(ctx, events.Event{
			Type:   events.TypeConflictsFound,
			At:     s.now(),
			Fields: map[string]any{"count": len(found)},
		})
	}
	return found, nil
}

// ---------------------------------------------------------------------
// Versions
// ---------------------------------------------------------------------

// CommitVersion records a new content version without going through
// SaveBlock, for annotated commits.
func (s *Service) CommitVersion(ctx context.Context, blockID, content string, meta version.CommitMeta) (version.Version, error) {
	v, err := s.versions.Commit(blockID, content, meta)
	if err != nil {
		return version.Version{}, err
	}
	s.publish(ctx, events.Event{
		Type:    events.TypeVersionCommitted,
		BlockID: blockID,
		At:      s.now(),
		Fields:  map[string]any{"version": v.Number},
	})
	return v, nil
}

// History returns a block's full version history.
func (s *Service) History(blockID string) ([]version.Version, error) {
	return s.versions.History(blockID)
}

// Checkout returns one version of a block.
func (s *Service) Checkout(blockID string, number int) (version.Version, error) {
	return s.versions.Checkout(blockID, number)
}

// DiffVersions returns the diff between two versions of a block.
func (s *Service) DiffVersions(blockID string, from, to int) (*version.Diff, error) {
	return s.versions.Diff(blockID, from, to)
}

// ---------------------------------------------------------------------
// Graph queries
// ---------------------------------------------------------------------

// Neighbors returns block IDs reachable within depth hops.
func (s *Service) Neighbors(ctx context.Context, blockID string, depth int, types ...graph.EdgeType) ([]string, error) {
	return s.graph.Neighbors(ctx, blockID, depth, types...)
}

// FindPath returns the cheapest relationship path between two blocks.
func (s *Service) FindPath(ctx context.Context, from, to string) (graph.PathResult, error) {
	return s.graph.ShortestPath(ctx, from, to)
}

// TopologicalOrder returns blocks ordered so every Requires edge points
// backward, for assembly-safe ordering.
func (s *Service) TopologicalOrder(ctx context.Context, types ...graph.EdgeType) ([]string, error) {
	return s.graph.TopologicalOrder(ctx, types...)
}

// Close releases the service's resources.
func (s *Service) Close() error {
	return s.repo.Close()
}

// publish sends fire-and-forget; failures are logged, never returned.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("event publish failed", "type", e.Type, "error", err)
	}
}
