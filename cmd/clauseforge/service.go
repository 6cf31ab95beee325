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
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AleutianAI/clauseforge/pkg/logging"
	"github.com/AleutianAI/clauseforge/services/assembly"
	"github.com/AleutianAI/clauseforge/services/assembly/embedding"
	"github.com/AleutianAI/clauseforge/services/assembly/events"
	"github.com/AleutianAI/clauseforge/services/assembly/storage"
)

// buildService wires a Service from the file configuration. The caller
// owns Close on both returns.
func buildService(ctx context.Context) (*assembly.Service, *logging.Logger, error) {
	logger := logging.New(logging.Config{
		Level:   parseLevel(config.LogLevel),
		LogDir:  config.LogDir,
		Service: "cli",
	})

	var repo storage.Repository
	if config.DataDir != "" {
		var err error
		repo, err = storage.OpenBadger(storage.DefaultBadgerConfig(filepath.Join(config.DataDir, "blocks")))
		if err != nil {
			logger.Close()
			return nil, nil, fmt.Errorf("open block store: %w", err)
		}
	} else {
		repo = storage.NewMemory()
	}

	provider, err := buildProvider(ctx, logger)
	if err != nil {
		repo.Close()
		logger.Close()
		return nil, nil, err
	}

	svc := assembly.New(assembly.Config{
		Repository: repo,
		Provider:   provider,
		Publisher:  &events.Log{Logger: logger},
		Logger:     logger,
	})

	if err := svc.Rehydrate(ctx); err != nil {
		svc.Close()
		logger.Close()
		return nil, nil, err
	}

	if config.TemplatesDir != "" {
		if _, err := svc.Templates().LoadDir(config.TemplatesDir); err != nil {
			logger.Warn("templates not loaded", "dir", config.TemplatesDir, "error", err)
		}
	}
	for name, path := range config.RuleSets {
		if err := svc.LoadRuleSet(name, path); err != nil {
			svc.Close()
			logger.Close()
			return nil, nil, fmt.Errorf("load rule set %s: %w", name, err)
		}
	}
	return svc, logger, nil
}

// buildProvider picks Weaviate when configured, with the lexical scorer
// as degraded-mode fallback; otherwise the lexical scorer alone.
func buildProvider(ctx context.Context, logger *logging.Logger) (embedding.Provider, error) {
	if config.Weaviate.URL == "" {
		return embedding.NewLexical(), nil
	}
	return embedding.NewWeaviate(ctx, embedding.WeaviateConfig{
		URL:      config.Weaviate.URL,
		Fallback: embedding.NewLexical(),
		Logger:   logger,
	})
}

func parseLevel(s string) logging.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	}
	return logging.LevelInfo
}

// parseVars turns repeated key=value flags into a typed context map.
// Values parse as bool, int, or float when they look like one.
func parseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", pair)
		}
		vars[key] = parseScalar(raw)
	}
	return vars, nil
}

func parseScalar(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
