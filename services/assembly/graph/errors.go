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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNodeNotFound is returned when a referenced node doesn't exist.
	ErrNodeNotFound = errors.New("node not found in graph")

	// ErrDuplicateNode is returned when adding a node whose ID already exists.
	ErrDuplicateNode = errors.New("node already exists in graph")

	// ErrInvalidNode is returned when a node is malformed (e.g., empty ID).
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidEdge is returned when an edge is malformed (e.g., negative weight).
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrMaxNodesExceeded is returned when the graph is at node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned when the graph is at edge capacity.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")

	// ErrCycleDetected is the sentinel wrapped by CycleError. Callers can use
	// errors.Is(err, ErrCycleDetected) without caring about the cycle path.
	ErrCycleDetected = errors.New("cycle detected in graph")
)

// CycleError reports that a topological ordering (or another operation that
// requires an acyclic graph) failed because at least one cycle exists.
//
// Cycles holds every distinct cycle found, each as a list of node IDs in
// traversal order. The error is total: no partial ordering is returned
// alongside it.
type CycleError struct {
	// Cycles contains each detected cycle as an ordered list of node IDs.
	Cycles [][]string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	if len(e.Cycles) == 0 {
		return ErrCycleDetected.Error()
	}

	paths := make([]string, 0, len(e.Cycles))
	for _, cycle := range e.Cycles {
		paths = append(paths, strings.Join(cycle, " -> "))
	}
	return fmt.Sprintf("cycle detected in graph: %d cycle(s): [%s]",
		len(e.Cycles), strings.Join(paths, "; "))
}

// Unwrap returns the sentinel so errors.Is(err, ErrCycleDetected) works.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}
