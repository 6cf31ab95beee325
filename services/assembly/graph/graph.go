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

import "fmt"

// AddNode adds a block as a node in the graph.
//
// Description:
//
//	Creates a new node with the given block ID. The graph only stores
//	the ID and adjacency; block content lives in the repository.
//
// Inputs:
//
//	id - The block identifier. Must not be empty.
//
// Outputs:
//
//	error - Non-nil if the node is invalid, duplicated, or capacity is reached.
//
// Errors:
//
//	ErrInvalidNode - ID is empty
//	ErrDuplicateNode - Node with same ID already exists
//	ErrMaxNodesExceeded - Graph is at node capacity
func (g *Graph) AddNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidNode)
	}

	if len(g.nodes) >= g.options.MaxNodes {
		return ErrMaxNodesExceeded
	}

	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}

	g.nodes[id] = &Node{
		ID:       id,
		Outgoing: make([]*Edge, 0),
		Incoming: make([]*Edge, 0),
	}
	return nil
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// NodeIDs returns the IDs of all nodes in the graph, in unspecified order.
func (g *Graph) NodeIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// AddEdge creates a directed edge between two existing nodes.
//
// Description:
//
//	Creates an edge from the source node to the target node with the
//	given type. A non-positive weight defaults to DefaultEdgeWeight.
//	Multiple edges of the same type between the same nodes are allowed.
//
// Inputs:
//
//	fromID - ID of the source node.
//	toID - ID of the target node.
//	edgeType - The type of relationship.
//	weight - Traversal cost; values <= 0 default to 1.
//
// Outputs:
//
//	*Edge - The created edge.
//	error - Non-nil if a node doesn't exist or capacity is reached.
//
// Errors:
//
//	ErrNodeNotFound - Source or target node doesn't exist
//	ErrInvalidEdge - Self-loop on a hierarchy edge type
//	ErrMaxEdgesExceeded - Graph is at edge capacity
func (g *Graph) AddEdge(fromID, toID string, edgeType EdgeType, weight float64) (*Edge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.edges) >= g.options.MaxEdges {
		return nil, ErrMaxEdgesExceeded
	}

	fromNode, fromOK := g.nodes[fromID]
	if !fromOK {
		return nil, fmt.Errorf("%w: source %s", ErrNodeNotFound, fromID)
	}

	toNode, toOK := g.nodes[toID]
	if !toOK {
		return nil, fmt.Errorf("%w: target %s", ErrNodeNotFound, toID)
	}

	// A block cannot contain itself. Longer hierarchy cycles are left in
	// place for DetectCycles to report.
	if fromID == toID && (edgeType == EdgeTypeParentOf || edgeType == EdgeTypeChildOf) {
		return nil, fmt.Errorf("%w: hierarchy self-loop on %s", ErrInvalidEdge, fromID)
	}

	if weight <= 0 {
		weight = DefaultEdgeWeight
	}

	edge := &Edge{
		FromID: fromID,
		ToID:   toID,
		Type:   edgeType,
		Weight: weight,
	}

	g.edges = append(g.edges, edge)
	fromNode.Outgoing = append(fromNode.Outgoing, edge)
	toNode.Incoming = append(toNode.Incoming, edge)

	if edgeType >= 0 && edgeType < NumEdgeTypes {
		g.edgesByType[edgeType] = append(g.edgesByType[edgeType], edge)
	}

	return edge, nil
}

// RemoveNode removes a node and cascades removal of every edge that
// references it.
//
// Outputs:
//
//	int - Number of edges removed.
//	error - ErrNodeNotFound if the node doesn't exist.
func (g *Graph) RemoveNode(id string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; !exists {
		return 0, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	delete(g.nodes, id)

	removed := 0
	newEdges := make([]*Edge, 0, len(g.edges))
	removedTypes := make(map[EdgeType]bool)
	for _, edge := range g.edges {
		if edge.FromID == id || edge.ToID == id {
			removed++
			removedTypes[edge.Type] = true
			continue
		}
		newEdges = append(newEdges, edge)
	}
	g.edges = newEdges

	for edgeType := range removedTypes {
		if edgeType < 0 || edgeType >= NumEdgeTypes {
			continue
		}
		edges := g.edgesByType[edgeType]
		filtered := make([]*Edge, 0, len(edges))
		for _, e := range edges {
			if e.FromID != id && e.ToID != id {
				filtered = append(filtered, e)
			}
		}
		g.edgesByType[edgeType] = filtered
	}

	// Rebuild adjacency of remaining nodes
	for _, node := range g.nodes {
		node.Outgoing = dropEdgesTouching(node.Outgoing, id)
		node.Incoming = dropEdgesTouching(node.Incoming, id)
	}

	return removed, nil
}

// dropEdgesTouching removes edges that reference the removed node.
func dropEdgesTouching(edges []*Edge, id string) []*Edge {
	result := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		if e.FromID != id && e.ToID != id {
			result = append(result, e)
		}
	}
	return result
}

// HasEdge reports whether at least one edge of the given type exists
// from fromID to toID.
func (g *Graph) HasEdge(fromID, toID string, edgeType EdgeType) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, e := range g.outgoing(fromID, []EdgeType{edgeType}) {
		if e.ToID == toID {
			return true
		}
	}
	return false
}

// RemoveEdge removes every edge of the given type from fromID to toID.
//
// Outputs:
//
//	int - Number of edges removed. Zero when no such edge exists;
//	missing endpoints are not an error.
func (g *Graph) RemoveEdge(fromID, toID string, edgeType EdgeType) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	match := func(e *Edge) bool {
		return e.FromID == fromID && e.ToID == toID && e.Type == edgeType
	}

	removed := 0
	kept := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if match(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0
	}
	g.edges = kept

	if edgeType >= 0 && edgeType < NumEdgeTypes {
		g.edgesByType[edgeType] = dropMatching(g.edgesByType[edgeType], match)
	}
	if node, ok := g.nodes[fromID]; ok {
		node.Outgoing = dropMatching(node.Outgoing, match)
	}
	if node, ok := g.nodes[toID]; ok {
		node.Incoming = dropMatching(node.Incoming, match)
	}
	return removed
}

func dropMatching(edges []*Edge, match func(*Edge) bool) []*Edge {
	result := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		if !match(e) {
			result = append(result, e)
		}
	}
	return result
}

// EdgesByType returns all edges of the given type.
//
// Returns a defensive copy to prevent external mutation.
func (g *Graph) EdgesByType(edgeType EdgeType) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if edgeType < 0 || edgeType >= NumEdgeTypes {
		return []*Edge{}
	}
	edges := g.edgesByType[edgeType]
	result := make([]*Edge, len(edges))
	copy(result, edges)
	return result
}

// outgoing returns the outgoing edges of a node matching the type filter.
// An empty filter matches every edge type. Must be called with a lock held.
func (g *Graph) outgoing(id string, typeFilter []EdgeType) []*Edge {
	node, ok := g.nodes[id]
	if !ok {
		return nil
	}
	if len(typeFilter) == 0 {
		return node.Outgoing
	}

	allowed := make(map[EdgeType]bool, len(typeFilter))
	for _, t := range typeFilter {
		allowed[t] = true
	}

	result := make([]*Edge, 0, len(node.Outgoing))
	for _, e := range node.Outgoing {
		if allowed[e.Type] {
			result = append(result, e)
		}
	}
	return result
}
