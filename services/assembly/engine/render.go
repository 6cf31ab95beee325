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
	"fmt"
	"sort"
	"strings"
)

// orderedBlocks returns the document's blocks sorted by Order. The
// strategies emit them ordered already; rendering re-sorts so manually
// edited documents render correctly too.
func orderedBlocks(d *Document) []DocumentBlock {
	blocks := make([]DocumentBlock, len(d.Blocks))
	copy(blocks, d.Blocks)
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Order < blocks[j].Order })
	return blocks
}

// renderLevel clamps a block level to at least 1. The strategies emit
// valid levels; manually edited or decoded documents may not.
func renderLevel(level int) int {
	if level < 1 {
		return 1
	}
	return level
}

// RenderText renders the document as plain text: a title line, then
// each block indented two spaces per level below the first.
func RenderText(d *Document) string {
	lines := make([]string, 0, len(d.Blocks)+1)
	lines = append(lines, fmt.Sprintf("# %s\n", d.Title))
	for _, b := range orderedBlocks(d) {
		indent := strings.Repeat("  ", renderLevel(b.Level)-1)
		lines = append(lines, indent+b.Content+"\n")
	}
	return strings.Join(lines, "\n")
}

// ExportMarkdown renders the document as Markdown with a metadata
// header and one heading per block. Heading depth follows block level,
// capped at Markdown's six levels.
func ExportMarkdown(d *Document) string {
	lines := make([]string, 0, 2*len(d.Blocks)+5)
	lines = append(lines, fmt.Sprintf("# %s\n", d.Title))
	lines = append(lines, fmt.Sprintf("**Status**: %s", d.Status))
	lines = append(lines, fmt.Sprintf("**Created**: %s\n", d.CreatedAt.Format("2006-01-02 15:04")))
	if d.TemplateID != "" {
		lines = append(lines, fmt.Sprintf("**Template**: %s\n", d.TemplateID))
	}
	lines = append(lines, "---\n")

	for _, b := range orderedBlocks(d) {
		depth := renderLevel(b.Level) + 1
		if depth > 6 {
			depth = 6
		}
		lines = append(lines, fmt.Sprintf("%s Block %s\n", strings.Repeat("#", depth), b.BlockID))
		lines = append(lines, b.Content+"\n")
	}
	return strings.Join(lines, "\n")
}
