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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string

	// assemble flags
	assembleVars   []string
	assembleTitle  string
	assembleFormat string
	assembleStamp  bool

	// block flags
	blockFile   string
	blockType   string
	blockTopic  string
	blockSearch string

	rootCmd = &cobra.Command{
		Use:   "clauseforge",
		Short: "A cli to assemble documents from conditional content blocks",
		Long: `Clauseforge manages a library of versioned content blocks,
their relationships, and rule-driven document assembly.`,
	}

	// --- Blocks ---
	blockCmd = &cobra.Command{
		Use:   "block",
		Short: "Manage content blocks",
	}
	blockAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Add or update a block from a YAML or JSON file",
		Run:   runBlockAdd,
	}
	blockListCmd = &cobra.Command{
		Use:   "list",
		Short: "List blocks, optionally filtered",
		Run:   runBlockList,
	}
	blockGetCmd = &cobra.Command{
		Use:   "get [block-id]",
		Short: "Show one block as JSON",
		Args:  cobra.ExactArgs(1),
		Run:   runBlockGet,
	}
	blockDeleteCmd = &cobra.Command{
		Use:   "delete [block-id]",
		Short: "Delete a block (version history is kept)",
		Args:  cobra.ExactArgs(1),
		Run:   runBlockDelete,
	}

	// --- Assembly ---
	assembleCmd = &cobra.Command{
		Use:   "assemble [template-id]",
		Short: "Assemble a document from a template and print it",
		Args:  cobra.ExactArgs(1),
		Run:   runAssemble,
	}

	// --- Conflicts ---
	conflictsCmd = &cobra.Command{
		Use:   "conflicts [block-id...]",
		Short: "Scan blocks for conflicts (all blocks, or just the listed ones)",
		Run:   runConflicts,
	}

	// --- Versions ---
	historyCmd = &cobra.Command{
		Use:   "history [block-id]",
		Short: "Show the version history of a block",
		Args:  cobra.ExactArgs(1),
		Run:   runHistory,
	}
	diffCmd = &cobra.Command{
		Use:   "diff [block-id] [from] [to]",
		Short: "Show the diff between two versions of a block",
		Args:  cobra.ExactArgs(3),
		Run:   runDiff,
	}

	// --- Graph ---
	graphCmd = &cobra.Command{
		Use:   "graph",
		Short: "Query the block relationship graph",
	}
	graphOrderCmd = &cobra.Command{
		Use:   "order",
		Short: "Print blocks in dependency order",
		Run:   runGraphOrder,
	}
	graphPathCmd = &cobra.Command{
		Use:   "path [from] [to]",
		Short: "Find the cheapest relationship path between two blocks",
		Args:  cobra.ExactArgs(2),
		Run:   runGraphPath,
	}
	graphNeighborsCmd = &cobra.Command{
		Use:   "neighbors [block-id] [depth]",
		Short: "List blocks reachable within N hops",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runGraphNeighbors,
	}

	// --- Templates ---
	templatesCmd = &cobra.Command{
		Use:   "templates",
		Short: "List loaded templates",
		Run:   runTemplates,
	}
)

func init() {
	blockAddCmd.Flags().StringVarP(&blockFile, "file", "f", "", "block file (YAML or JSON)")
	blockAddCmd.MarkFlagRequired("file")
	blockListCmd.Flags().StringVar(&blockType, "type", "", "filter by block type")
	blockListCmd.Flags().StringVar(&blockTopic, "topic", "", "filter by topic")
	blockListCmd.Flags().StringVar(&blockSearch, "search", "", "filter by title/content term")
	blockCmd.AddCommand(blockAddCmd, blockListCmd, blockGetCmd, blockDeleteCmd)

	assembleCmd.Flags().StringArrayVar(&assembleVars, "var", nil, "context variable as key=value (repeatable)")
	assembleCmd.Flags().StringVar(&assembleTitle, "title", "", "document title")
	assembleCmd.Flags().StringVar(&assembleFormat, "format", "text", "output format: text or markdown")
	assembleCmd.Flags().BoolVar(&assembleStamp, "stamp", false, "prefix the output with a generation timestamp")

	graphCmd.AddCommand(graphOrderCmd, graphPathCmd, graphNeighborsCmd)

	rootCmd.AddCommand(blockCmd, assembleCmd, conflictsCmd, historyCmd, diffCmd, graphCmd, templatesCmd)
}
