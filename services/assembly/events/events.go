// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package events publishes lifecycle notifications: block changes,
// assemblies, commits, and conflict findings. Consumers subscribe via
// the Publisher interface; the service publishes fire-and-forget.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/AleutianAI/clauseforge/pkg/logging"
)

// Event types.
const (
	TypeBlockSaved        = "block.saved"
	TypeBlockDeleted      = "block.deleted"
	TypeDocumentAssembled = "document.assembled"
	TypeVersionCommitted  = "version.committed"
	TypeConflictsFound    = "conflicts.found"
)

// Event is one lifecycle notification.
type Event struct {
	// Type is one of the Type constants.
	Type string `json:"type"`

	// BlockID is set for block-scoped events.
	BlockID string `json:"block_id,omitempty"`

	// DocumentID is set for document-scoped events.
	DocumentID string `json:"document_id,omitempty"`

	// At is when the event happened.
	At time.Time `json:"at"`

	// Fields carries event-specific details.
	Fields map[string]any `json:"fields,omitempty"`
}

// Publisher receives events.
//
// Thread Safety: implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards all events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Log writes each event to a structured logger.
type Log struct {
	Logger *logging.Logger
}

func (l *Log) Publish(_ context.Context, e Event) error {
	logger := l.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger.Info("event",
		"type", e.Type,
		"block", e.BlockID,
		"document", e.DocumentID,
		"fields", e.Fields)
	return nil
}

// Fanout delivers each event to every publisher in order. All
// publishers see the event even when one fails; errors are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Publisher = Nop{}
	_ Publisher = (*Log)(nil)
	_ Publisher = Fanout(nil)
)
