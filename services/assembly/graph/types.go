// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph implements the block relationship graph: typed directed
// edges between content blocks, breadth-limited traversal, Dijkstra
// path-finding, cycle detection, and topological ordering.
package graph

import (
	"fmt"
	"sync"
)

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of nodes a graph can hold.
	DefaultMaxNodes = 100_000

	// DefaultMaxEdges is the default maximum number of edges a graph can hold.
	DefaultMaxEdges = 1_000_000

	// DefaultEdgeWeight is used when AddEdge receives a non-positive weight.
	DefaultEdgeWeight = 1.0
)

// EdgeType defines the type of relationship between blocks.
type EdgeType int

const (
	// EdgeTypeUnknown indicates an unrecognized relationship type.
	EdgeTypeUnknown EdgeType = iota

	// EdgeTypeParentOf indicates a block contains another block (hierarchy).
	EdgeTypeParentOf

	// EdgeTypeChildOf is the inverse of EdgeTypeParentOf.
	EdgeTypeChildOf

	// EdgeTypeReferences indicates a block cites another block.
	EdgeTypeReferences

	// EdgeTypeRequires indicates a block only makes sense when another
	// block is also included.
	EdgeTypeRequires

	// EdgeTypeRelatedTo indicates a semantic association without ordering.
	EdgeTypeRelatedTo

	// EdgeTypeConflictsWith indicates two blocks should not appear together.
	EdgeTypeConflictsWith

	// NumEdgeTypes is the total number of edge types (for array sizing).
	NumEdgeTypes
)

// edgeTypeNames maps EdgeType values to their string representations.
var edgeTypeNames = map[EdgeType]string{
	EdgeTypeUnknown:       "unknown",
	EdgeTypeParentOf:      "parent_of",
	EdgeTypeChildOf:       "child_of",
	EdgeTypeReferences:    "references",
	EdgeTypeRequires:      "requires",
	EdgeTypeRelatedTo:     "related_to",
	EdgeTypeConflictsWith: "conflicts_with",
}

// String returns the string representation of the EdgeType.
func (t EdgeType) String() string {
	if name, ok := edgeTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseEdgeType converts a string representation back to an EdgeType.
// Unrecognized names map to EdgeTypeUnknown.
func ParseEdgeType(s string) EdgeType {
	for t, name := range edgeTypeNames {
		if name == s {
			return t
		}
	}
	return EdgeTypeUnknown
}

// Edge represents a directed relationship between two blocks.
type Edge struct {
	// FromID is the ID of the source node.
	FromID string

	// ToID is the ID of the target node.
	ToID string

	// Type is the relationship type (parent_of, references, etc.).
	Type EdgeType

	// Weight is the traversal cost used by ShortestPath. Defaults to 1.
	Weight float64
}

// Node represents a block in the relationship graph.
//
// The node holds only the block ID plus adjacency; block content and
// metadata live in the BlockRepository. Keeping the graph ID-only means
// structural operations never race with content updates.
type Node struct {
	// ID is the block identifier.
	ID string

	// Outgoing contains edges where this node is the source.
	Outgoing []*Edge

	// Incoming contains edges where this node is the target.
	Incoming []*Edge
}

// Options configures Graph behavior and limits.
type Options struct {
	// MaxNodes is the maximum number of nodes the graph can hold.
	// Default: 100,000
	MaxNodes int

	// MaxEdges is the maximum number of edges the graph can hold.
	// Default: 1,000,000
	MaxEdges int
}

// DefaultOptions returns sensible defaults for graph configuration.
func DefaultOptions() Options {
	return Options{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// Option is a functional option for configuring Graph.
type Option func(*Options)

// WithMaxNodes sets the maximum number of nodes the graph can hold.
func WithMaxNodes(n int) Option {
	return func(o *Options) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges the graph can hold.
func WithMaxEdges(n int) Option {
	return func(o *Options) {
		o.MaxEdges = n
	}
}

// Graph is the block relationship graph.
//
// Thread Safety:
//
//	All structural mutation (AddNode, AddEdge, RemoveNode) takes the write
//	lock; traversal operations take the read lock. Reads are safe to run
//	concurrently with each other but serialize against mutation, which
//	gives every traversal a consistent snapshot.
type Graph struct {
	mu sync.RWMutex

	// nodes maps node ID to Node. Unexported to prevent direct access.
	nodes map[string]*Node

	// edges contains all edges in the graph.
	edges []*Edge

	// edgesByType stores edges grouped by their type.
	// Array indexed by EdgeType for cache-friendly access.
	edgesByType [NumEdgeTypes][]*Edge

	// options contains configuration.
	options Options
}

// New creates a new empty block graph.
//
// Example:
//
//	// Default options
//	g := graph.New()
//
//	// Custom limits
//	g := graph.New(graph.WithMaxNodes(10_000))
func New(opts ...Option) *Graph {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make([]*Edge, 0),
		options: options,
	}
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Stats contains statistics about the graph.
type Stats struct {
	// NodeCount is the total number of nodes.
	NodeCount int

	// EdgeCount is the total number of edges.
	EdgeCount int

	// EdgesByType maps each EdgeType to the count of edges of that type.
	EdgesByType map[EdgeType]int

	// MaxNodes is the configured maximum node capacity.
	MaxNodes int

	// MaxEdges is the configured maximum edge capacity.
	MaxEdges int
}

// Stats returns statistics about the graph.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edgesByType := make(map[EdgeType]int)
	for i := 0; i < int(NumEdgeTypes); i++ {
		if count := len(g.edgesByType[i]); count > 0 {
			edgesByType[EdgeType(i)] = count
		}
	}

	return Stats{
		NodeCount:   len(g.nodes),
		EdgeCount:   len(g.edges),
		EdgesByType: edgesByType,
		MaxNodes:    g.options.MaxNodes,
		MaxEdges:    g.options.MaxEdges,
	}
}

// PathResult contains the result of a shortest path query.
type PathResult struct {
	// From is the starting node ID.
	From string

	// To is the target node ID.
	To string

	// Path contains node IDs in path order, including From and To.
	// Empty if no path exists.
	Path []string

	// Cost is the sum of edge weights along the path. Zero if no path.
	Cost float64

	// Reachable reports whether a path exists. An unreachable target is
	// a normal result, not an error.
	Reachable bool
}

// String returns a compact representation, mainly for logs.
func (r PathResult) String() string {
	if !r.Reachable {
		return fmt.Sprintf("%s -/-> %s (not reachable)", r.From, r.To)
	}
	return fmt.Sprintf("%s -> %s (%d hops, cost %.1f)", r.From, r.To, len(r.Path)-1, r.Cost)
}
