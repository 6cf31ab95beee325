// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sort"
)

// DetectCycles finds all distinct cycles in the graph.
//
// Description:
//
//	Iterative depth-first search with an explicit stack and a
//	recursion-stack set. When a back edge is found, the cycle is read off
//	the current DFS path. Each cycle is reported once, as a list of node
//	IDs in traversal order starting at its smallest ID (canonical form,
//	so the same cycle entered from different nodes dedupes).
//
// Inputs:
//
//	ctx - Context for cancellation.
//	typeFilter - Edge types to follow. Empty follows all.
//
// Outputs:
//
//	[][]string - All distinct cycles. Empty slice when the graph is acyclic.
//	error - ctx.Err() on cancellation.
//
// Thread Safety: Safe to call concurrently with other reads.
func (g *Graph) DetectCycles(ctx context.Context, typeFilter ...EdgeType) ([][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		colorWhite = 0 // unvisited
		colorGray  = 1 // on the current DFS path
		colorBlack = 2 // fully explored
	)

	color := make(map[string]int, len(g.nodes))
	cycles := make([][]string, 0)
	seen := make(map[string]bool) // canonical cycle keys

	// Deterministic start order keeps test output stable.
	starts := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		starts = append(starts, id)
	}
	sort.Strings(starts)

	type frame struct {
		id      string
		edgeIdx int
	}

	processed := 0
	for _, start := range starts {
		if color[start] != colorWhite {
			continue
		}

		stack := []frame{{id: start}}
		path := []string{}
		onPath := make(map[string]int) // node -> index in path
		color[start] = colorGray
		path = append(path, start)
		onPath[start] = 0

		for len(stack) > 0 {
			processed++
			if processed%contextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			top := &stack[len(stack)-1]
			edges := g.outgoing(top.id, typeFilter)

			if top.edgeIdx < len(edges) {
				edge := edges[top.edgeIdx]
				top.edgeIdx++
				next := edge.ToID

				switch color[next] {
				case colorWhite:
					color[next] = colorGray
					onPath[next] = len(path)
					path = append(path, next)
					stack = append(stack, frame{id: next})
				case colorGray:
					// Back edge: the cycle is the path suffix from next.
					cycle := append([]string{}, path[onPath[next]:]...)
					key := canonicalCycleKey(cycle)
					if !seen[key] {
						seen[key] = true
						cycles = append(cycles, canonicalCycle(cycle))
					}
				}
				continue
			}

			// Exhausted this node's edges: pop.
			color[top.id] = colorBlack
			delete(onPath, top.id)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}

	return cycles, nil
}

// canonicalCycle rotates a cycle so it starts at its smallest node ID.
func canonicalCycle(cycle []string) []string {
	if len(cycle) == 0 {
		return cycle
	}
	minIdx := 0
	for i, id := range cycle {
		if id < cycle[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[minIdx:]...)
	rotated = append(rotated, cycle[:minIdx]...)
	return rotated
}

// canonicalCycleKey builds a dedupe key from the canonical rotation.
func canonicalCycleKey(cycle []string) string {
	canonical := canonicalCycle(cycle)
	key := ""
	for _, id := range canonical {
		key += id + "\x00"
	}
	return key
}
