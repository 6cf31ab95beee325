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

// Config is the file configuration for the clauseforge CLI, loaded
// from config.yaml (or --config).
type Config struct {
	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`

	// LogDir enables JSON file logging when set.
	LogDir string `yaml:"log_dir"`

	// DataDir is where the block database lives. Empty means an
	// in-memory database that is lost on exit.
	DataDir string `yaml:"data_dir"`

	// TemplatesDir holds template YAML files.
	TemplatesDir string `yaml:"templates_dir"`

	// RuleSets maps rule set names (referenced by templates) to rule
	// file paths.
	RuleSets map[string]string `yaml:"rule_sets"`

	// Weaviate configures the optional similarity backend.
	Weaviate WeaviateConfig `yaml:"weaviate"`
}

// WeaviateConfig enables Weaviate-backed semantic conflict checks.
type WeaviateConfig struct {
	// URL of the Weaviate server. Empty disables Weaviate; semantic
	// checks then use the built-in lexical scorer.
	URL string `yaml:"url"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() Config {
	return Config{
		LogLevel:     "info",
		TemplatesDir: "templates",
	}
}
