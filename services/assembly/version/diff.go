// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package version

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// Diff is the line-level difference between two versions of a block.
type Diff struct {
	BlockID string `json:"block_id"`
	From    int    `json:"from"`
	To      int    `json:"to"`

	// Unified is the diff in unified format. Empty when the versions
	// have identical content.
	Unified string `json:"unified,omitempty"`

	// Added, Deleted, and Changed count lines, per the unified diff.
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
	Changed int `json:"changed"`
}

// Equal reports whether the two versions had identical content.
func (d *Diff) Equal() bool {
	return d.Unified == ""
}

// Compare computes the diff between two versions of a block. The
// unified text is generated here; the stats come from parsing it back,
// which keeps the two representations consistent.
func Compare(blockID string, a, b Version) (*Diff, error) {
	d := &Diff{BlockID: blockID, From: a.Number, To: b.Number}
	if a.Content == b.Content {
		return d, nil
	}

	d.Unified = unifiedDiff(
		fmt.Sprintf("%s@v%d", blockID, a.Number),
		fmt.Sprintf("%s@v%d", blockID, b.Number),
		a.Content, b.Content,
	)

	parsed, err := godiff.ParseFileDiff([]byte(d.Unified))
	if err != nil {
		return nil, fmt.Errorf("parse diff for block %s: %w", blockID, err)
	}
	stat := parsed.Stat()
	d.Added = int(stat.Added)
	d.Deleted = int(stat.Deleted)
	d.Changed = int(stat.Changed)
	return d, nil
}

// unifiedDiff renders a single-hunk unified diff with full context.
// Good enough for block-sized texts; no windowing needed.
func unifiedDiff(origName, newName, origText, newText string) string {
	origLines := splitLines(origText)
	newLines := splitLines(newText)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", origName, newName)
	fmt.Fprintf(&sb, "@@ -1,%d +1,%d @@\n", len(origLines), len(newLines))
	for _, op := range diffOps(origLines, newLines) {
		sb.WriteString(op)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// diffOps computes the edit script between two line slices using a
// longest-common-subsequence table. Deletions are emitted before
// additions at each divergence point.
func diffOps(a, b []string) []string {
	// lcs[i][j] = LCS length of a[i:] and b[j:].
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	ops := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			ops = append(ops, " "+a[i])
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, "-"+a[i])
			i++
		default:
			ops = append(ops, "+"+b[j])
			j++
		}
	}
	for ; i < len(a); i++ {
		ops = append(ops, "-"+a[i])
	}
	for ; j < len(b); j++ {
		ops = append(ops, "+"+b[j])
	}
	return ops
}
