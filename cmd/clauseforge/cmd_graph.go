// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/clauseforge/services/assembly/graph"
)

func runGraphOrder(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	order, err := svc.TopologicalOrder(ctx, graph.EdgeTypeRequires, graph.EdgeTypeParentOf)
	if err != nil {
		var cerr *graph.CycleError
		if errors.As(err, &cerr) {
			log.Fatalf("Error: dependency cycle: %v", cerr)
		}
		log.Fatalf("Error: %v", err)
	}
	for i, id := range order {
		fmt.Printf("%3d. %s\n", i+1, id)
	}
}

func runGraphPath(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	result, err := svc.FindPath(ctx, args[0], args[1])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if !result.Reachable {
		fmt.Printf("No path from %s to %s\n", args[0], args[1])
		return
	}
	fmt.Println(result)
}

func runGraphNeighbors(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	depth := 1
	if len(args) == 2 {
		depth, err = strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Error: depth must be a number: %v", err)
		}
	}

	neighbors, err := svc.Neighbors(ctx, args[0], depth)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	for _, id := range neighbors {
		fmt.Println(id)
	}
	fmt.Printf("%d neighbor(s) within %d hop(s)\n", len(neighbors), depth)
}

func runHistory(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	hist, err := svc.History(args[0])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	for _, v := range hist {
		fmt.Printf("v%-3d %s  %-8s %-10s %s\n",
			v.Number, v.Timestamp.Format("2006-01-02 15:04"), v.Branch, v.Author, v.Message)
	}
}

func runDiff(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	from, err := strconv.Atoi(args[1])
	if err != nil {
		log.Fatalf("Error: from must be a version number: %v", err)
	}
	to, err := strconv.Atoi(args[2])
	if err != nil {
		log.Fatalf("Error: to must be a version number: %v", err)
	}

	d, err := svc.DiffVersions(args[0], from, to)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if d.Equal() {
		fmt.Printf("Versions %d and %d are identical\n", from, to)
		return
	}
	fmt.Print(d.Unified)
	fmt.Printf("+%d -%d ~%d line(s)\n", d.Added, d.Deleted, d.Changed)
}
