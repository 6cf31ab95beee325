// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assembly

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// capture collects published events for assertions.
type capture struct {
	events []events.Event
}

func (c *capture) Publish(_ context.Context, e events.Event) error {
	c.events = append(c.events, e)
	return nil
}

func (c *capture) ofType(t string) []events.Event {
	var out []events.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *capture) {
	t.Helper()
	sink := &capture{}
	base := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	svc := New(Config{
		Publisher: sink,
		Provider:  embedding.NewLexical(),
		Now: func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Second)
		},
	})
	t.Cleanup(func() { svc.Close() })
	return svc, sink
}

func newBlock(id, content string, mutate ...func(*block.Block)) *block.Block {
	b := &block.Block{
		ID:      id,
		Type:    block.TypeParagraph,
		Title:   "Block " + id,
		Content: content,
	}
	for _, fn := range mutate {
		fn(b)
	}
	return b
}

func TestService_SaveBlock(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()

	b := newBlock("sgb9_para29", "Auf Antrag werden Leistungen erbracht")
	require.NoError(t, svc.SaveBlock(ctx, b))

	assert.Equal(t, 1, b.Version)
	assert.False(t, b.CreatedAt.IsZero())

	got, err := svc.GetBlock(ctx, "sgb9_para29")
	require.NoError(t, err)
	assert.Equal(t, b.Content, got.Content)

	// Content change commits a second version.
	b.Content = "Auf Antrag werden Leistungen als Budget erbracht"
	require.NoError(t, svc.SaveBlock(ctx, b))
	assert.Equal(t, 2, b.Version)

	hist, err := svc.History("sgb9_para29")
	require.NoError(t, err)
	assert.Len(t, hist, 2)

	// Metadata-only save keeps the version.
	b.Metadata.Topic = "rights"
	require.NoError(t, svc.SaveBlock(ctx, b))
	assert.Equal(t, 2, b.Version)

	saved := sink.ofType(events.TypeBlockSaved)
	assert.Len(t, saved, 3)
}

func TestService_SaveBlock_MirrorsRelationships(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	parent := newBlock("chapter", "Kapitel")
	require.NoError(t, svc.SaveBlock(ctx, parent))

	child := newBlock("para", "Paragraph", func(b *block.Block) {
		b.Relationships.Parents = []string{"chapter"}
		b.Relationships.References = []string{"annex"}
	})
	require.NoError(t, svc.SaveBlock(ctx, child))

	// parent_of edge goes from chapter down to para.
	children, err := svc.Neighbors(ctx, "chapter", 1, graph.EdgeTypeParentOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"para"}, children)

	refs, err := svc.Neighbors(ctx, "para", 1, graph.EdgeTypeReferences)
	require.NoError(t, err)
	assert.Equal(t, []string{"annex"}, refs)
}

func TestService_SaveBlock_ResaveReconcilesEdges(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	b := newBlock("para", "Paragraph", func(b *block.Block) {
		b.Relationships.Parents = []string{"chapter"}
		b.Relationships.References = []string{"annex"}
	})
	require.NoError(t, svc.SaveBlock(ctx, b))
	require.Equal(t, 2, svc.Graph().EdgeCount())

	// Content change, same relationships: edge count must not grow.
	b.Content = "Paragraph, überarbeitet"
	require.NoError(t, svc.SaveBlock(ctx, b))
	assert.Equal(t, 2, svc.Graph().EdgeCount())

	// Dropping a relationship retracts its edge.
	b.Relationships.References = nil
	b.Content = "Paragraph, dritte Fassung"
	require.NoError(t, svc.SaveBlock(ctx, b))
	assert.Empty(t, svc.Graph().EdgesByType(graph.EdgeTypeReferences))

	parents, err := svc.Neighbors(ctx, "chapter", 1, graph.EdgeTypeParentOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"para"}, parents, "kept relationship survives the re-save")
}

func TestService_DeleteBlock(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveBlock(ctx, newBlock("b1", "text")))
	require.NoError(t, svc.DeleteBlock(ctx, "b1"))

	_, err := svc.GetBlock(ctx, "b1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.False(t, svc.Graph().HasNode("b1"))

	// Version history survives deletion.
	hist, err := svc.History("b1")
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	assert.Len(t, sink.ofType(events.TypeBlockDeleted), 1)

	assert.ErrorIs(t, svc.DeleteBlock(ctx, "ghost"), storage.ErrNotFound)
}

func TestService_Assemble(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveBlock(ctx, newBlock("intro", "Einleitung")))
	require.NoError(t, svc.SaveBlock(ctx, newBlock("sgb9_para29", "Persönliches Budget")))

	svc.Templates().Put(&template.Template{
		ID:       "antrag",
		Name:     "Antrag",
		Strategy: engine.StrategyConditional,
		RuleSet:  "budget",
		Blocks: []template.BlockRef{
			{BlockID: "intro", Required: true},
		},
	})
	svc.RegisterRuleSet("budget", []rules.Rule{{
		ID:      "budget_rule",
		Enabled: true,
		Condition: rules.Condition{
			Variable: "work_years",
			Operator: rules.OpGreater,
			Value:    5,
		},
		Actions: []rules.Action{{Type: rules.ActionIncludeBlock, BlockID: "sgb9_para29"}},
	}})

	doc, err := svc.Assemble(ctx, "antrag", map[string]any{"work_years": 7}, "")
	require.NoError(t, err)

	assert.Equal(t, engine.StatusAssembled, doc.Status)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "intro", doc.Blocks[0].BlockID)
	assert.Equal(t, "sgb9_para29", doc.Blocks[1].BlockID)
	assert.Equal(t, 1, doc.RulesApplied)

	// Stored for later rendering.
	text, err := svc.RenderText(doc.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "# Document from Antrag\n"))
	assert.Contains(t, text, "Persönliches Budget")

	md, err := svc.ExportMarkdown(doc.ID)
	require.NoError(t, err)
	assert.Contains(t, md, "**Template**: antrag")
	assert.Contains(t, md, "## Block intro")

	assert.Len(t, sink.ofType(events.TypeDocumentAssembled), 1)
}

func TestService_Assemble_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Assemble(ctx, "ghost", nil, "")
	assert.ErrorIs(t, err, template.ErrTemplateNotFound)

	svc.Templates().Put(&template.Template{
		ID:       "broken",
		Name:     "Broken",
		Strategy: engine.StrategyConditional,
		RuleSet:  "unregistered",
		Blocks:   []template.BlockRef{{BlockID: "intro"}},
	})
	_, err = svc.Assemble(ctx, "broken", nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregistered")

	svc.Templates().Put(&template.Template{
		ID:       "strict",
		Name:     "Strict",
		Strategy: engine.StrategyLinear,
		Blocks:   []template.BlockRef{{BlockID: "missing", Required: true}},
	})
	_, err = svc.Assemble(ctx, "strict", nil, "")
	var verr *engine.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestService_DocumentLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveBlock(ctx, newBlock("intro", "Einleitung")))
	svc.Templates().Put(&template.Template{
		ID:       "t",
		Name:     "T",
		Strategy: engine.StrategyLinear,
		Blocks:   []template.BlockRef{{BlockID: "intro"}},
	})

	first, err := svc.Assemble(ctx, "t", nil, "Erster")
	require.NoError(t, err)
	second, err := svc.Assemble(ctx, "t", nil, "Zweiter")
	require.NoError(t, err)

	docs := svc.ListDocuments()
	require.Len(t, docs, 2)
	assert.Equal(t, second.ID, docs[0].ID, "newest first")

	require.NoError(t, svc.UpdateDocumentStatus(first.ID, engine.StatusReviewed))
	got, err := svc.GetDocument(first.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusReviewed, got.Status)

	assert.ErrorIs(t, svc.UpdateDocumentStatus(first.ID, engine.StatusAssembled), engine.ErrInvalidTransition)
	assert.ErrorIs(t, svc.UpdateDocumentStatus("ghost", engine.StatusReviewed), ErrDocumentNotFound)
}

func TestService_DetectConflicts(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()

	from1 := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	until1 := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	from2 := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, svc.SaveBlock(ctx, newBlock("old", "Alte Fassung", func(b *block.Block) {
		b.Metadata.Paragraph = "§5"
		b.Metadata.ValidFrom = &from1
		b.Metadata.ValidUntil = &until1
	})))
	require.NoError(t, svc.SaveBlock(ctx, newBlock("new", "Neue Fassung", func(b *block.Block) {
		b.Metadata.Paragraph = "§5"
		b.Metadata.ValidFrom = &from2
	})))

	found, err := svc.DetectConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, conflict.TypeTemporal, found[0].Type)
	assert.Equal(t, conflict.SeverityMedium, found[0].Severity)

	assert.Len(t, sink.ofType(events.TypeConflictsFound), 1)
}

func TestService_DetectConflicts_Subset(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	from1 := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	until1 := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	from2 := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, svc.SaveBlock(ctx, newBlock("old", "Alte Fassung", func(b *block.Block) {
		b.Metadata.Paragraph = "§5"
		b.Metadata.ValidFrom = &from1
		b.Metadata.ValidUntil = &until1
	})))
	require.NoError(t, svc.SaveBlock(ctx, newBlock("new", "Neue Fassung", func(b *block.Block) {
		b.Metadata.Paragraph = "§5"
		b.Metadata.ValidFrom = &from2
	})))
	require.NoError(t, svc.SaveBlock(ctx, newBlock("neutral", "Unbeteiligt")))

	// The subset leaves out one side of the conflicting pair.
	found, err := svc.DetectConflicts(ctx, "old", "neutral")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = svc.DetectConflicts(ctx, "old", "new")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, conflict.TypeTemporal, found[0].Type)

	_, err = svc.DetectConflicts(ctx, "old", "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_Versions(t *testing.T) {
	svc, sink := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveBlock(ctx, newBlock("b1", "erste Fassung")))
	v, err := svc.CommitVersion(ctx, "b1", "zweite Fassung", version.CommitMeta{
		Author:  "anna",
		Message: "rework",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Number)

	checked, err := svc.Checkout("b1", 1)
	require.NoError(t, err)
	assert.Equal(t, "erste Fassung", checked.Content)

	d, err := svc.DiffVersions("b1", 1, 2)
	require.NoError(t, err)
	assert.False(t, d.Equal())

	assert.Len(t, sink.ofType(events.TypeVersionCommitted), 1)
}

func TestService_GraphQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// intro requires definitions; budget requires intro.
	require.NoError(t, svc.SaveBlock(ctx, newBlock("definitions", "Begriffe")))
	require.NoError(t, svc.SaveBlock(ctx, newBlock("intro", "Einleitung")))
	require.NoError(t, svc.SaveBlock(ctx, newBlock("budget", "Budget")))

	g := svc.Graph()
	_, err := g.AddEdge("intro", "definitions", graph.EdgeTypeRequires, 1)
	require.NoError(t, err)
	_, err = g.AddEdge("budget", "intro", graph.EdgeTypeRequires, 1)
	require.NoError(t, err)

	order, err := svc.TopologicalOrder(ctx, graph.EdgeTypeRequires)
	require.NoError(t, err)
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["budget"], pos["intro"])
	assert.Less(t, pos["intro"], pos["definitions"])

	path, err := svc.FindPath(ctx, "budget", "definitions")
	require.NoError(t, err)
	assert.True(t, path.Reachable)
	assert.Equal(t, []string{"budget", "intro", "definitions"}, path.Path)
}
