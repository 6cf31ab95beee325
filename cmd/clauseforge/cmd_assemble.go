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
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/clauseforge/services/assembly/block"
	"github.com/AleutianAI/clauseforge/services/assembly/engine"
)

func runAssemble(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	vars, err := parseVars(assembleVars)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	doc, err := svc.Assemble(ctx, args[0], vars, assembleTitle)
	if err != nil {
		log.Fatalf("Error assembling document: %v", err)
	}
	for _, warning := range doc.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}

	var out string
	switch assembleFormat {
	case "markdown", "md":
		out = engine.ExportMarkdown(doc)
	case "text":
		out = engine.RenderText(doc)
	default:
		log.Fatalf("Error: unknown format %q, want text or markdown", assembleFormat)
	}
	if assembleStamp {
		out = block.WithTimestamp(block.NewLeaf(out), nil).Render()
	}
	fmt.Println(out)
}

func runConflicts(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	found, err := svc.DetectConflicts(ctx, args...)
	if err != nil {
		log.Fatalf("Error scanning for conflicts: %v", err)
	}
	if len(found) == 0 {
		fmt.Println("No conflicts found")
		return
	}
	for _, c := range found {
		fmt.Println(c)
	}
	fmt.Printf("%d conflict(s)\n", len(found))
}

func runTemplates(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	for _, id := range svc.Templates().IDs() {
		tmpl, err := svc.Templates().Get(id)
		if err != nil {
			continue
		}
		fmt.Printf("%-24s %-14s %2d block(s)  %s\n", tmpl.ID, tmpl.Strategy, len(tmpl.Blocks), tmpl.Name)
	}
}
