// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/clauseforge/pkg/logging"
)

// ClassName is the Weaviate class holding block texts.
const ClassName = "ClauseBlock"

// WeaviateConfig configures the Weaviate-backed provider.
type WeaviateConfig struct {
	// URL is the Weaviate server URL, e.g. "http://localhost:8080".
	URL string

	// RetryAttempts is the number of attempts per operation.
	// Default: 3
	RetryAttempts int

	// RetryBackoff is the initial backoff between attempts, doubled
	// each retry.
	// Default: 100ms
	RetryBackoff time.Duration

	// FailureThreshold is how many consecutive failed operations flip
	// the provider into degraded mode.
	// Default: 5
	FailureThreshold int

	// Fallback serves similarity queries while degraded. Nil means
	// degraded queries return ErrUnavailable.
	Fallback Provider

	// Logger for provider operations. Nil uses the package default.
	Logger *logging.Logger
}

func (c *WeaviateConfig) applyDefaults() {
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
}

// Validate checks the configuration.
func (c *WeaviateConfig) Validate() error {
	if c.URL == "" {
		return errors.New("url must not be empty")
	}
	if c.RetryAttempts < 1 {
		return errors.New("retry_attempts must be at least 1")
	}
	if c.RetryBackoff < 0 {
		return errors.New("retry_backoff must be non-negative")
	}
	if c.FailureThreshold < 1 {
		return errors.New("failure_threshold must be at least 1")
	}
	return nil
}

// Weaviate is a Provider backed by a Weaviate vector store. Block
// texts are upserted as objects; similarity is the certainty of a
// near-object query between the two block objects.
//
// When the store becomes unreachable the provider degrades: indexing
// turns into a logged no-op and similarity queries fall back to the
// configured fallback provider. Successful operations restore normal
// mode.
//
// Thread Safety: safe for concurrent use.
type Weaviate struct {
	client   *weaviate.Client
	config   WeaviateConfig
	logger   *logging.Logger
	degraded atomic.Bool
	failures atomic.Int32
}

// NewWeaviate creates the provider and verifies the schema class
// exists, creating it if not. With an unreachable server the provider
// starts degraded rather than failing.
func NewWeaviate(ctx context.Context, config WeaviateConfig) (*Weaviate, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg := weaviate.Config{Scheme: "http", Host: config.URL}
	if rest, ok := strings.CutPrefix(config.URL, "https://"); ok {
		cfg.Scheme, cfg.Host = "https", rest
	} else if rest, ok := strings.CutPrefix(config.URL, "http://"); ok {
		cfg.Host = rest
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	w := &Weaviate{
		client: client,
		config: config,
		logger: config.Logger.With("component", "weaviate_embedding"),
	}

	if err := w.ensureClass(ctx); err != nil {
		w.logger.Warn("weaviate unavailable, starting degraded", "url", config.URL, "error", err)
		w.degraded.Store(true)
	}
	return w, nil
}

// Degraded reports whether the provider is serving from its fallback.
func (w *Weaviate) Degraded() bool {
	return w.degraded.Load()
}

func (w *Weaviate) ensureClass(ctx context.Context) error {
	exists, err := w.client.Schema().ClassExistenceChecker().
		WithClassName(ClassName).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class: %w", err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:       ClassName,
		Description: "Content block text for similarity scoring",
		Properties: []*models.Property{
			{Name: "blockID", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
		},
	}
	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// objectID derives a stable Weaviate object ID from the block ID, so
// re-indexing replaces rather than duplicates.
func objectID(blockID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(blockID)).String()
}

// Index upserts the block text. While degraded this is a logged no-op;
// the next health recovery re-indexes nothing retroactively, so callers
// that care should re-index after recovery.
func (w *Weaviate) Index(ctx context.Context, blockID, text string) error {
	if w.degraded.Load() {
		w.logger.Debug("index skipped, degraded", "block", blockID)
		return nil
	}

	props := map[string]any{"blockID": blockID, "content": text}
	err := w.execute(ctx, func(ctx context.Context) error {
		// Replace-then-create keeps the object ID stable without
		// needing to know whether the block was indexed before.
		_ = w.client.Data().Deleter().
			WithClassName(ClassName).WithID(objectID(blockID)).Do(ctx)
		_, err := w.client.Data().Creator().
			WithClassName(ClassName).
			WithID(objectID(blockID)).
			WithProperties(props).
			Do(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("index block %s: %w", blockID, err)
	}
	return nil
}

// Remove deletes the block's object.
func (w *Weaviate) Remove(ctx context.Context, blockID string) error {
	if w.degraded.Load() {
		return nil
	}
	return w.execute(ctx, func(ctx context.Context) error {
		return w.client.Data().Deleter().
			WithClassName(ClassName).WithID(objectID(blockID)).Do(ctx)
	})
}

// Similarity runs a near-object query from blockA's object filtered to
// blockB and returns the reported certainty. Degraded mode delegates to
// the fallback provider.
func (w *Weaviate) Similarity(ctx context.Context, blockA, blockB string) (float64, error) {
	if w.degraded.Load() {
		if w.config.Fallback != nil {
			return w.config.Fallback.Similarity(ctx, blockA, blockB)
		}
		return 0, ErrUnavailable
	}

	var score float64
	err := w.execute(ctx, func(ctx context.Context) error {
		nearObject := w.client.GraphQL().NearObjectArgBuilder().
			WithID(objectID(blockA))
		where := filters.Where().
			WithPath([]string{"blockID"}).
			WithOperator(filters.Equal).
			WithValueString(blockB)
		fields := []graphql.Field{
			{Name: "blockID"},
			{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
		}

		resp, err := w.client.GraphQL().Get().
			WithClassName(ClassName).
			WithNearObject(nearObject).
			WithWhere(where).
			WithFields(fields...).
			WithLimit(1).
			Do(ctx)
		if err != nil {
			return err
		}
		if len(resp.Errors) > 0 {
			return fmt.Errorf("graphql: %s", resp.Errors[0].Message)
		}

		s, err := extractCertainty(resp.Data)
		if err != nil {
			return err
		}
		score = s
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("similarity %s/%s: %w", blockA, blockB, err)
	}
	return score, nil
}

// extractCertainty digs the certainty out of a Get response.
func extractCertainty(data map[string]models.JSONObject) (float64, error) {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return 0, errors.New("malformed response: no Get")
	}
	objects, ok := get[ClassName].([]any)
	if !ok || len(objects) == 0 {
		return 0, ErrNotIndexed
	}
	obj, ok := objects[0].(map[string]any)
	if !ok {
		return 0, errors.New("malformed response: bad object")
	}
	additional, ok := obj["_additional"].(map[string]any)
	if !ok {
		return 0, errors.New("malformed response: no _additional")
	}
	certainty, ok := additional["certainty"].(float64)
	if !ok {
		return 0, errors.New("malformed response: no certainty")
	}
	return certainty, nil
}

// execute runs fn with retry and backoff, tracking consecutive
// failures for degradation.
func (w *Weaviate) execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	backoff := w.config.RetryBackoff
	for attempt := 0; attempt < w.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = fn(ctx); err == nil {
			w.recordSuccess()
			return nil
		}
		if errors.Is(err, ErrNotIndexed) || errors.Is(err, context.Canceled) {
			return err
		}
	}
	w.recordFailure()
	return err
}

func (w *Weaviate) recordSuccess() {
	w.failures.Store(0)
	if w.degraded.CompareAndSwap(true, false) {
		w.logger.Info("weaviate recovered")
	}
}

func (w *Weaviate) recordFailure() {
	if int(w.failures.Add(1)) >= w.config.FailureThreshold {
		if w.degraded.CompareAndSwap(false, true) {
			w.logger.Warn("weaviate degraded", "failures", w.failures.Load())
		}
	}
}

var _ Provider = (*Weaviate)(nil)
