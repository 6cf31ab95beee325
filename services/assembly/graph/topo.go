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

// TopologicalOrder returns the nodes in dependency order using Kahn's
// algorithm over in-degree counts.
//
// Description:
//
//	Nodes with zero in-degree are emitted first; emitting a node
//	decrements the in-degree of its successors. Ties are broken by node
//	ID so the ordering is deterministic. If fewer nodes are emitted than
//	exist, the remainder sits on at least one cycle and the call fails
//	with a *CycleError carrying every cycle found — no partial order is
//	returned.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	typeFilter - Edge types that constitute dependencies. Empty uses all.
//
// Outputs:
//
//	[]string - Every node ID in topological order.
//	error - *CycleError if the graph has a cycle, or ctx.Err().
//
// Thread Safety: Safe to call concurrently with other reads.
func (g *Graph) TopologicalOrder(ctx context.Context, typeFilter ...EdgeType) ([]string, error) {
	g.mu.RLock()

	allowed := map[EdgeType]bool{}
	for _, t := range typeFilter {
		allowed[t] = true
	}
	follow := func(e *Edge) bool {
		return len(typeFilter) == 0 || allowed[e.Type]
	}

	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = 0
	}
	for _, edge := range g.edges {
		if follow(edge) {
			inDegree[edge.ToID]++
		}
	}

	ready := make([]string, 0)
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	processed := 0
	for len(ready) > 0 {
		processed++
		if processed%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				g.mu.RUnlock()
				return nil, err
			}
		}

		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := make([]string, 0)
		for _, edge := range g.outgoing(id, typeFilter) {
			inDegree[edge.ToID]--
			if inDegree[edge.ToID] == 0 {
				released = append(released, edge.ToID)
			}
		}
		sort.Strings(released)
		ready = append(ready, released...)
	}

	total := len(g.nodes)
	g.mu.RUnlock()

	if len(order) < total {
		// DetectCycles takes its own read lock, so release ours first.
		cycles, err := g.DetectCycles(ctx, typeFilter...)
		if err != nil {
			return nil, err
		}
		return nil, &CycleError{Cycles: cycles}
	}

	return order, nil
}
