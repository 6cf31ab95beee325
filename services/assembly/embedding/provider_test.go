// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package embedding

import (
	"context"
	"errors"
	"testing"
)

func TestLexical_Similarity(t *testing.T) {
	ctx := context.Background()
	l := NewLexical()

	l.Index(ctx, "a", "Leistungen werden auf Antrag erbracht")
	l.Index(ctx, "b", "Leistungen werden auf Antrag erbracht")
	l.Index(ctx, "c", "Der Anspruch ist ausgeschlossen")

	same, err := l.Similarity(ctx, "a", "b")
	if err != nil {
		t.Fatalf("Similarity: %v", err)
	}
	if same != 1.0 {
		t.Errorf("identical texts scored %v, want 1.0", same)
	}

	diff, err := l.Similarity(ctx, "a", "c")
	if err != nil {
		t.Fatal(err)
	}
	if diff >= same {
		t.Errorf("unrelated texts scored %v, not below %v", diff, same)
	}
}

func TestLexical_NotIndexed(t *testing.T) {
	ctx := context.Background()
	l := NewLexical()
	l.Index(ctx, "a", "text")

	if _, err := l.Similarity(ctx, "a", "ghost"); !errors.Is(err, ErrNotIndexed) {
		t.Errorf("error = %v, want ErrNotIndexed", err)
	}
}

func TestLexical_Remove(t *testing.T) {
	ctx := context.Background()
	l := NewLexical()
	l.Index(ctx, "a", "text")
	l.Remove(ctx, "a")

	if _, err := l.Similarity(ctx, "a", "a"); !errors.Is(err, ErrNotIndexed) {
		t.Errorf("error = %v, want ErrNotIndexed after Remove", err)
	}
}

func TestLexical_CaseAndPunctuation(t *testing.T) {
	ctx := context.Background()
	l := NewLexical()
	l.Index(ctx, "a", "Antrag, Leistung.")
	l.Index(ctx, "b", "antrag leistung")

	score, err := l.Similarity(ctx, "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if score != 1.0 {
		t.Errorf("score = %v, want 1.0 after normalization", score)
	}
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var p Provider = Nop{}

	if err := p.Index(ctx, "a", "text"); err != nil {
		t.Fatal(err)
	}
	score, err := p.Similarity(ctx, "a", "b")
	if err != nil || score != 0 {
		t.Errorf("Similarity = %v, %v; want 0, nil", score, err)
	}
}

func TestWeaviateConfig_Validate(t *testing.T) {
	valid := WeaviateConfig{URL: "http://localhost:8080"}
	valid.applyDefaults()
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	tests := []struct {
		name   string
		mutate func(*WeaviateConfig)
	}{
		{"empty url", func(c *WeaviateConfig) { c.URL = "" }},
		{"zero attempts", func(c *WeaviateConfig) { c.RetryAttempts = -1 }},
		{"negative backoff", func(c *WeaviateConfig) { c.RetryBackoff = -1 }},
		{"zero threshold", func(c *WeaviateConfig) { c.FailureThreshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestObjectID_Stable(t *testing.T) {
	if objectID("sgb9_para29") != objectID("sgb9_para29") {
		t.Error("objectID not deterministic")
	}
	if objectID("a") == objectID("b") {
		t.Error("distinct blocks map to same object ID")
	}
}
