// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package block

import "strings"

// Content is the uniform capability every content representation
// exposes. Two concrete variants exist: Leaf (plain text) and Composite
// (an ordered collection of parts). Wrappers in decorators.go augment a
// single capability by owning an inner Content.
type Content interface {
	// Render produces the display text.
	Render() string

	// WordCount returns the number of whitespace-separated words.
	WordCount() int

	// Search reports whether the term occurs in the rendered text.
	// Matching is case-insensitive.
	Search(term string) bool
}

// Leaf is plain text content.
type Leaf struct {
	// Text is the raw content.
	Text string
}

// NewLeaf creates leaf content from raw text.
func NewLeaf(text string) *Leaf {
	return &Leaf{Text: text}
}

// Render returns the raw text.
func (l *Leaf) Render() string {
	return l.Text
}

// WordCount returns the number of whitespace-separated words.
func (l *Leaf) WordCount() int {
	return len(strings.Fields(l.Text))
}

// Search reports whether term occurs in the text, case-insensitively.
func (l *Leaf) Search(term string) bool {
	return strings.Contains(strings.ToLower(l.Text), strings.ToLower(term))
}

// Composite is content made of ordered parts, each itself a Content.
// Used for blocks that aggregate sub-blocks (a paragraph with its
// Absätze).
type Composite struct {
	// Title is rendered before the parts. May be empty.
	Title string

	// Parts are the ordered child contents.
	Parts []Content
}

// NewComposite creates composite content.
func NewComposite(title string, parts ...Content) *Composite {
	return &Composite{Title: title, Parts: parts}
}

// Add appends a part and returns the composite for chaining.
func (c *Composite) Add(part Content) *Composite {
	c.Parts = append(c.Parts, part)
	return c
}

// Render joins the title and all parts with newlines.
func (c *Composite) Render() string {
	segments := make([]string, 0, len(c.Parts)+1)
	if c.Title != "" {
		segments = append(segments, c.Title)
	}
	for _, part := range c.Parts {
		segments = append(segments, part.Render())
	}
	return strings.Join(segments, "\n")
}

// WordCount sums the word counts of the title and all parts.
func (c *Composite) WordCount() int {
	count := len(strings.Fields(c.Title))
	for _, part := range c.Parts {
		count += part.WordCount()
	}
	return count
}

// Search reports whether term occurs in the title or any part.
func (c *Composite) Search(term string) bool {
	if strings.Contains(strings.ToLower(c.Title), strings.ToLower(term)) {
		return true
	}
	for _, part := range c.Parts {
		if part.Search(term) {
			return true
		}
	}
	return false
}

// ParseContent builds a Content tree from raw block text. Paragraphs
// separated by blank lines become the parts of a Composite; text with a
// single paragraph stays a Leaf.
func ParseContent(text string) Content {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) <= 1 {
		return NewLeaf(text)
	}
	parts := make([]Content, 0, len(paragraphs))
	for _, p := range paragraphs {
		parts = append(parts, NewLeaf(p))
	}
	return NewComposite("", parts...)
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

var (
	_ Content = (*Leaf)(nil)
	_ Content = (*Composite)(nil)
)
