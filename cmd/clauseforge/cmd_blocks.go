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
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/clauseforge/services/assembly/block"
	"github.com/AleutianAI/clauseforge/services/assembly/storage"
)

func runBlockAdd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	data, err := os.ReadFile(blockFile)
	if err != nil {
		log.Fatalf("Error reading %s: %v", blockFile, err)
	}

	var b block.Block
	if strings.EqualFold(filepath.Ext(blockFile), ".json") {
		err = json.Unmarshal(data, &b)
	} else {
		err = yaml.Unmarshal(data, &b)
	}
	if err != nil {
		log.Fatalf("Error parsing %s: %v", blockFile, err)
	}

	if err := svc.SaveBlock(ctx, &b); err != nil {
		log.Fatalf("Error saving block: %v", err)
	}
	fmt.Printf("Saved block %s (version %d)\n", b.ID, b.Version)
}

func runBlockList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	blocks, err := svc.ListBlocks(ctx, storage.Filter{
		Type:   block.Type(blockType),
		Topic:  blockTopic,
		Search: blockSearch,
	})
	if err != nil {
		log.Fatalf("Error listing blocks: %v", err)
	}

	for _, b := range blocks {
		fmt.Printf("%-24s %-12s v%-3d %5dw  %s\n",
			b.ID, b.Type, b.Version, b.ContentTree().WordCount(), b.Title)
	}
	fmt.Printf("%d block(s)\n", len(blocks))
}

func runBlockGet(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	b, err := svc.GetBlock(ctx, args[0])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding block: %v", err)
	}
	fmt.Println(string(out))
}

func runBlockDelete(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	svc, logger, err := buildService(ctx)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer svc.Close()
	defer logger.Close()

	if err := svc.DeleteBlock(ctx, args[0]); err != nil {
		log.Fatalf("Error deleting block: %v", err)
	}
	fmt.Printf("Deleted block %s\n", args[0])
}
