// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assembly

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("clauseforge.assembly")

var (
	assembleLatency metric.Float64Histogram
	assembleTotal   metric.Int64Counter
	blocksPlaced    metric.Int64Histogram
	conflictLatency metric.Float64Histogram
	conflictsFound  metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		assembleLatency, err = meter.Float64Histogram(
			"assembly_duration_seconds",
			metric.WithDescription("Duration of document assembly"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		assembleTotal, err = meter.Int64Counter(
			"assembly_total",
			metric.WithDescription("Total number of assembly runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		blocksPlaced, err = meter.Int64Histogram(
			"assembly_blocks_placed",
			metric.WithDescription("Number of blocks placed per assembled document"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		conflictLatency, err = meter.Float64Histogram(
			"conflict_scan_duration_seconds",
			metric.WithDescription("Duration of conflict scans"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		conflictsFound, err = meter.Int64Histogram(
			"conflict_scan_findings",
			metric.WithDescription("Number of conflicts found per scan"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordAssembly records one assembly run.
func recordAssembly(ctx context.Context, strategy string, duration time.Duration, blocks int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("success", success),
	)
	assembleLatency.Record(ctx, duration.Seconds(), attrs)
	assembleTotal.Add(ctx, 1, attrs)
	if success {
		blocksPlaced.Record(ctx, int64(blocks))
	}
}

// recordConflictScan records one conflict scan.
func recordConflictScan(ctx context.Context, duration time.Duration, findings int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	conflictLatency.Record(ctx, duration.Seconds(), attrs)
	if success {
		conflictsFound.Record(ctx, int64(findings))
	}
}
