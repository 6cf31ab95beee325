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
	"container/heap"
	"context"
	"fmt"
)

// contextCheckInterval controls how often traversals check for context
// cancellation. Checking every node would add overhead; every N nodes
// keeps cancellation latency low without measurable cost.
const contextCheckInterval = 100

// Neighbors returns the IDs of all nodes within depth hops of start,
// following outgoing edges whose type matches typeFilter.
//
// Description:
//
//	Breadth-first traversal from the start node. The start node itself is
//	not included in the result. An empty typeFilter follows every edge
//	type. Results are in breadth-first discovery order, so closer
//	neighbors come first.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	start - ID of the node to start from.
//	depth - Maximum number of hops. Zero returns an empty result.
//	typeFilter - Edge types to follow. Empty follows all.
//
// Outputs:
//
//	[]string - Discovered node IDs in BFS order.
//	error - ErrNodeNotFound if start doesn't exist, or ctx.Err() on cancellation.
//
// Thread Safety: Safe to call concurrently with other reads.
func (g *Graph) Neighbors(ctx context.Context, start string, depth int, typeFilter ...EdgeType) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[start]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, start)
	}

	if depth <= 0 {
		return []string{}, nil
	}

	type frame struct {
		id    string
		depth int
	}

	visited := map[string]bool{start: true}
	queue := []frame{{id: start, depth: 0}}
	result := make([]string, 0)
	processed := 0

	for len(queue) > 0 {
		processed++
		if processed%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		current := queue[0]
		queue = queue[1:]

		if current.depth >= depth {
			continue
		}

		for _, edge := range g.outgoing(current.id, typeFilter) {
			if visited[edge.ToID] {
				continue
			}
			visited[edge.ToID] = true
			result = append(result, edge.ToID)
			queue = append(queue, frame{id: edge.ToID, depth: current.depth + 1})
		}
	}

	return result, nil
}

// ShortestPath finds the minimum-cost path between two nodes using
// Dijkstra's algorithm over edge weights.
//
// Description:
//
//	Edge weights default to 1 when unset, so on an unweighted graph this
//	degenerates to hop count. A disconnected target is a normal result:
//	Reachable is false and Path is empty, no error is returned.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	from - ID of the starting node.
//	to - ID of the target node.
//
// Outputs:
//
//	PathResult - Path, cost, and reachability.
//	error - ErrNodeNotFound if either endpoint doesn't exist, or ctx.Err().
//
// Thread Safety: Safe to call concurrently with other reads.
func (g *Graph) ShortestPath(ctx context.Context, from, to string) (PathResult, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := PathResult{From: from, To: to, Path: []string{}}

	if _, ok := g.nodes[from]; !ok {
		return result, fmt.Errorf("%w: source %s", ErrNodeNotFound, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return result, fmt.Errorf("%w: target %s", ErrNodeNotFound, to)
	}

	if from == to {
		result.Path = []string{from}
		result.Reachable = true
		return result, nil
	}

	dist := map[string]float64{from: 0}
	parent := make(map[string]string)
	done := make(map[string]bool)

	pq := &pathQueue{}
	heap.Init(pq)
	heap.Push(pq, pathItem{id: from, cost: 0})

	processed := 0
	for pq.Len() > 0 {
		processed++
		if processed%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}

		item := heap.Pop(pq).(pathItem)
		if done[item.id] {
			continue
		}
		done[item.id] = true

		if item.id == to {
			break
		}

		for _, edge := range g.outgoing(item.id, nil) {
			if done[edge.ToID] {
				continue
			}
			next := item.cost + edge.Weight
			if current, seen := dist[edge.ToID]; !seen || next < current {
				dist[edge.ToID] = next
				parent[edge.ToID] = item.id
				heap.Push(pq, pathItem{id: edge.ToID, cost: next})
			}
		}
	}

	if !done[to] {
		// Not reachable: empty path, no error.
		return result, nil
	}

	// Reconstruct path by walking parents back from the target.
	path := []string{to}
	for current := to; current != from; {
		current = parent[current]
		path = append(path, current)
	}
	// Reverse in place
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	result.Path = path
	result.Cost = dist[to]
	result.Reachable = true
	return result, nil
}

// pathItem is a priority queue entry for Dijkstra.
type pathItem struct {
	id   string
	cost float64
}

// pathQueue implements heap.Interface ordered by ascending cost.
type pathQueue []pathItem

func (q pathQueue) Len() int           { return len(q) }
func (q pathQueue) Less(i, j int) bool { return q[i].cost < q[j].cost }
func (q pathQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x any)        { *q = append(*q, x.(pathItem)) }
func (q *pathQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
