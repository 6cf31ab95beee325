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

import (
	"fmt"
	"strings"
	"time"
)

// Wrappers augment one Content method while delegating the rest to an
// owned inner Content. They compose by construction:
//
//	content := block.WithTimestamp(
//	    block.WithValidation(block.NewLeaf(text), 10_000),
//	    clock,
//	)

// Stamped prefixes the rendered text with a generation timestamp.
type Stamped struct {
	inner Content
	now   func() time.Time
}

// WithTimestamp wraps content so Render prefixes a timestamp line.
// now supplies the clock; nil uses time.Now.
func WithTimestamp(inner Content, now func() time.Time) *Stamped {
	if now == nil {
		now = time.Now
	}
	return &Stamped{inner: inner, now: now}
}

// Render prefixes the inner rendering with a timestamp line.
func (s *Stamped) Render() string {
	return fmt.Sprintf("[%s]\n%s", s.now().Format(time.RFC3339), s.inner.Render())
}

// WordCount delegates to the inner content; the stamp is not counted.
func (s *Stamped) WordCount() int {
	return s.inner.WordCount()
}

// Search delegates to the inner content.
func (s *Stamped) Search(term string) bool {
	return s.inner.Search(term)
}

// Validated truncates over-long renderings and annotates them.
type Validated struct {
	inner    Content
	maxWords int
}

// WithValidation wraps content so Render truncates past maxWords.
// maxWords <= 0 disables truncation.
func WithValidation(inner Content, maxWords int) *Validated {
	return &Validated{inner: inner, maxWords: maxWords}
}

// Render truncates the inner rendering to maxWords, appending a marker
// when truncation happened.
func (v *Validated) Render() string {
	text := v.inner.Render()
	if v.maxWords <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= v.maxWords {
		return text
	}
	return strings.Join(words[:v.maxWords], " ") + " […]"
}

// WordCount delegates to the inner content (pre-truncation).
func (v *Validated) WordCount() int {
	return v.inner.WordCount()
}

// Search delegates to the inner content.
func (v *Validated) Search(term string) bool {
	return v.inner.Search(term)
}

var (
	_ Content = (*Stamped)(nil)
	_ Content = (*Validated)(nil)
)
