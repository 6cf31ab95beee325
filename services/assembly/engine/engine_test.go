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
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/clauseforge/services/assembly/block"
	"github.com/AleutianAI/clauseforge/services/assembly/rules"
	"github.com/AleutianAI/clauseforge/services/assembly/template"
)

// mapResolver serves blocks from a fixed map; unknown IDs are misses.
type mapResolver map[string]*block.Block

func (m mapResolver) Resolve(_ context.Context, id string) (*block.Block, error) {
	return m[id], nil
}

func testBlock(id, content string, mutate ...func(*block.Block)) *block.Block {
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

func testTemplate(strategy string, refs ...template.BlockRef) *template.Template {
	return &template.Template{
		ID:       "tpl",
		Name:     "Test Template",
		Strategy: strategy,
		Blocks:   refs,
	}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)
	}
}

func TestForName(t *testing.T) {
	for _, name := range []string{StrategyLinear, StrategyConditional, StrategyHierarchical} {
		s, err := ForName(name)
		if err != nil {
			t.Fatalf("ForName(%s): %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("Name() = %s, want %s", s.Name(), name)
		}
	}
	if _, err := ForName("recursive"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("error = %v, want ErrUnknownStrategy", err)
	}
}

func TestLinear_TemplateOrder(t *testing.T) {
	resolver := mapResolver{
		"intro":   testBlock("intro", "Einleitung"),
		"body":    testBlock("body", "Hauptteil"),
		"closing": testBlock("closing", "Schluss"),
	}
	in := Input{
		Template: testTemplate(StrategyLinear,
			template.BlockRef{BlockID: "intro", Required: true},
			template.BlockRef{BlockID: "body", Required: true},
			template.BlockRef{BlockID: "closing"},
		),
		Resolver: resolver,
		Now:      fixedClock(),
	}

	doc, err := (&Linear{}).Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if doc.Status != StatusAssembled {
		t.Errorf("Status = %s", doc.Status)
	}
	if !strings.HasPrefix(doc.ID, "doc_") || len(doc.ID) != 16 {
		t.Errorf("ID = %q", doc.ID)
	}
	if doc.Title != "Document from Test Template" {
		t.Errorf("Title = %q", doc.Title)
	}

	want := []string{"intro", "body", "closing"}
	if len(doc.Blocks) != len(want) {
		t.Fatalf("got %d blocks", len(doc.Blocks))
	}
	for i, b := range doc.Blocks {
		if b.BlockID != want[i] || b.Order != i {
			t.Errorf("blocks[%d] = %+v", i, b)
		}
	}
}

func TestLinear_RequiredMissing(t *testing.T) {
	in := Input{
		Template: testTemplate(StrategyLinear,
			template.BlockRef{BlockID: "intro", Required: true},
			template.BlockRef{BlockID: "ghost", Required: true},
		),
		Resolver: mapResolver{"intro": testBlock("intro", "x")},
	}

	_, err := (&Linear{}).Assemble(context.Background(), in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(verr.Missing) != 1 || verr.Missing[0] != "ghost" {
		t.Errorf("Missing = %v", verr.Missing)
	}
	if !errors.Is(err, ErrRequiredBlock) {
		t.Error("ValidationError should unwrap to ErrRequiredBlock")
	}
}

func TestLinear_OptionalMissingWarns(t *testing.T) {
	in := Input{
		Template: testTemplate(StrategyLinear,
			template.BlockRef{BlockID: "intro", Required: true},
			template.BlockRef{BlockID: "ghost"},
		),
		Resolver: mapResolver{"intro": testBlock("intro", "x")},
	}

	doc, err := (&Linear{}).Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(doc.Blocks) != 1 {
		t.Errorf("got %d blocks, want 1", len(doc.Blocks))
	}
	if len(doc.Warnings) != 1 || !strings.Contains(doc.Warnings[0], "ghost") {
		t.Errorf("Warnings = %v", doc.Warnings)
	}
}

func TestLinear_IneligibleSlotSkipped(t *testing.T) {
	in := Input{
		Template: testTemplate(StrategyLinear,
			template.BlockRef{BlockID: "intro", Required: true},
			template.BlockRef{
				BlockID:    "budget",
				Required:   true,
				Conditions: map[string]any{"budget_requested": true},
			},
		),
		Context:  map[string]any{"budget_requested": false},
		Resolver: mapResolver{"intro": testBlock("intro", "x")},
	}

	// An ineligible slot is not used at all, required or not.
	doc, err := (&Linear{}).Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(doc.Blocks) != 1 || doc.Blocks[0].BlockID != "intro" {
		t.Errorf("blocks = %+v", doc.Blocks)
	}
}

func TestConditional_RuleInclusion(t *testing.T) {
	resolver := mapResolver{
		"intro":       testBlock("intro", "Einleitung"),
		"sgb9_para29": testBlock("sgb9_para29", "Persönliches Budget"),
	}
	ruleSet := []rules.Rule{{
		ID:      "budget_rule",
		Enabled: true,
		Condition: rules.Condition{
			Variable: "work_years",
			Operator: rules.OpGreater,
			Value:    5,
		},
		Actions: []rules.Action{{Type: rules.ActionIncludeBlock, BlockID: "sgb9_para29"}},
	}}
	tpl := testTemplate(StrategyConditional,
		template.BlockRef{BlockID: "intro", Required: true},
	)

	strategy := &Conditional{Engine: rules.NewEngine()}

	// Above the threshold: rule fires, block appended after the slots.
	doc, err := strategy.Assemble(context.Background(), Input{
		Template: tpl,
		Context:  map[string]any{"work_years": 7},
		Resolver: resolver,
		Rules:    ruleSet,
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(doc.Blocks) != 2 || doc.Blocks[1].BlockID != "sgb9_para29" {
		t.Fatalf("blocks = %+v", doc.Blocks)
	}
	if doc.Blocks[1].Reason != "rule" {
		t.Errorf("Reason = %q", doc.Blocks[1].Reason)
	}
	if doc.RulesApplied != 1 {
		t.Errorf("RulesApplied = %d", doc.RulesApplied)
	}

	// Below the threshold: rule does not fire.
	doc, err = strategy.Assemble(context.Background(), Input{
		Template: tpl,
		Context:  map[string]any{"work_years": 3},
		Resolver: resolver,
		Rules:    ruleSet,
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(doc.Blocks) != 1 || doc.RulesApplied != 0 {
		t.Errorf("blocks = %+v, rules = %d", doc.Blocks, doc.RulesApplied)
	}
}

func TestConditional_PriorityOrdering(t *testing.T) {
	resolver := mapResolver{
		"a": testBlock("a", "x", func(b *block.Block) { b.Metadata.Priority = 20 }),
		"b": testBlock("b", "x", func(b *block.Block) { b.Metadata.Priority = 10 }),
		"c": testBlock("c", "x", func(b *block.Block) { b.Metadata.Priority = 10 }),
	}
	in := Input{
		Template: testTemplate(StrategyConditional,
			template.BlockRef{BlockID: "a"},
			template.BlockRef{BlockID: "b"},
			template.BlockRef{BlockID: "c"},
		),
		Resolver: resolver,
	}

	doc, err := (&Conditional{Engine: rules.NewEngine()}).Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// b and c share priority 10 and keep template order; a sorts last.
	want := []string{"b", "c", "a"}
	for i, b := range doc.Blocks {
		if b.BlockID != want[i] {
			t.Errorf("blocks[%d] = %s, want %s", i, b.BlockID, want[i])
		}
	}
}

func TestConditional_RequiredExcludedFails(t *testing.T) {
	resolver := mapResolver{"intro": testBlock("intro", "x")}
	ruleSet := []rules.Rule{{
		ID:      "drop_intro",
		Enabled: true,
		Condition: rules.Condition{
			Variable: "minimal",
			Operator: rules.OpEquals,
			Value:    true,
		},
		Actions: []rules.Action{{Type: rules.ActionExcludeBlock, BlockID: "intro"}},
	}}
	in := Input{
		Template: testTemplate(StrategyConditional,
			template.BlockRef{BlockID: "intro", Required: true},
		),
		Context:  map[string]any{"minimal": true},
		Resolver: resolver,
		Rules:    ruleSet,
	}

	_, err := (&Conditional{Engine: rules.NewEngine()}).Assemble(context.Background(), in)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Missing[0] != "intro" {
		t.Errorf("error = %v, want ValidationError for intro", err)
	}
}

func TestHierarchical_TopicGrouping(t *testing.T) {
	withTopic := func(topic string, level int) func(*block.Block) {
		return func(b *block.Block) {
			b.Metadata.Topic = topic
			b.Metadata.Level = level
		}
	}
	resolver := mapResolver{
		"r1": testBlock("r1", "x", withTopic("rights", 2)),
		"p1": testBlock("p1", "x", withTopic("procedure", 1)),
		"r2": testBlock("r2", "x", withTopic("rights", 1)),
		"g1": testBlock("g1", "x"),
	}
	in := Input{
		Template: testTemplate(StrategyHierarchical,
			template.BlockRef{BlockID: "r1"},
			template.BlockRef{BlockID: "p1"},
			template.BlockRef{BlockID: "r2"},
			template.BlockRef{BlockID: "g1"},
		),
		Resolver: resolver,
	}

	doc, err := (&Hierarchical{}).Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// Groups in first-seen order (rights, procedure, general); within
	// rights, level 1 before level 2.
	want := []string{"r2", "r1", "p1", "g1"}
	for i, b := range doc.Blocks {
		if b.BlockID != want[i] {
			t.Errorf("blocks[%d] = %s, want %s", i, b.BlockID, want[i])
		}
	}
	if doc.Blocks[3].Reason != "topic:general" {
		t.Errorf("Reason = %q, want topic:general", doc.Blocks[3].Reason)
	}
}

func TestRenderText(t *testing.T) {
	doc := &Document{
		Title: "Antrag",
		Blocks: []DocumentBlock{
			{BlockID: "a", Content: "Top level", Order: 0, Level: 1},
			{BlockID: "b", Content: "Nested", Order: 1, Level: 2},
		},
	}

	got := RenderText(doc)
	want := "# Antrag\n\nTop level\n\n  Nested\n"
	if got != want {
		t.Errorf("RenderText = %q, want %q", got, want)
	}
}

// Documents decoded from JSON or edited by hand can carry levels the
// strategies never emit; rendering clamps instead of panicking.
func TestRender_ClampsLevel(t *testing.T) {
	doc := &Document{
		Title: "Antrag",
		Blocks: []DocumentBlock{
			{BlockID: "a", Content: "Unlevelled", Order: 0, Level: 0},
			{BlockID: "b", Content: "Negative", Order: 1, Level: -3},
		},
	}

	got := RenderText(doc)
	want := "# Antrag\n\nUnlevelled\n\nNegative\n"
	if got != want {
		t.Errorf("RenderText = %q, want %q", got, want)
	}

	md := ExportMarkdown(doc)
	for _, want := range []string{"## Block a\n", "## Block b\n"} {
		if !strings.Contains(md, want) {
			t.Errorf("ExportMarkdown missing %q:\n%s", want, md)
		}
	}
}

func TestExportMarkdown(t *testing.T) {
	doc := &Document{
		Title:      "Antrag",
		TemplateID: "antrag_budget",
		Status:     StatusAssembled,
		CreatedAt:  time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC),
		Blocks: []DocumentBlock{
			{BlockID: "a", Content: "Text A", Order: 0, Level: 1},
			{BlockID: "deep", Content: "Text B", Order: 1, Level: 7},
		},
	}

	got := ExportMarkdown(doc)
	for _, want := range []string{
		"# Antrag\n",
		"**Status**: assembled",
		"**Created**: 2025-03-15 09:30\n",
		"**Template**: antrag_budget\n",
		"---\n",
		"## Block a\n",
		"###### Block deep\n", // depth capped at 6
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ExportMarkdown missing %q:\n%s", want, got)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	doc := &Document{Status: StatusDraft}

	steps := []Status{StatusAssembled, StatusReviewed, StatusFinalized}
	for _, next := range steps {
		if err := doc.Transition(next); err != nil {
			t.Fatalf("Transition to %s: %v", next, err)
		}
	}

	// Finalized is terminal.
	if err := doc.Transition(StatusDraft); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}

	// No skipping ahead.
	fresh := &Document{Status: StatusDraft}
	if err := fresh.Transition(StatusFinalized); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}
}
