// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics tracks resolution throughput and latency. All record
// methods tolerate a nil receiver so callers can skip the nil checks.
type EngineMetrics struct {
	// invocations counts resolutions by verb, plugin and outcome.
	invocations metric.Int64Counter

	// duration tracks end-to-end resolution latency in milliseconds.
	duration metric.Float64Histogram

	// leftover counts tokens the grammar could not claim.
	leftover metric.Int64Counter
}

// NewEngineMetrics registers the engine instruments on the global meter.
func NewEngineMetrics() (*EngineMetrics, error) {
	meter := otel.Meter("edict/engine")

	invocations, err := meter.Int64Counter(
		"edict.invocations.total",
		metric.WithDescription("Resolutions by verb, plugin and outcome"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"edict.resolve.duration_ms",
		metric.WithDescription("End-to-end resolution latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	leftover, err := meter.Int64Counter(
		"edict.tokens.leftover",
		metric.WithDescription("Tokens left unclaimed by the grammar"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		invocations: invocations,
		duration:    duration,
		leftover:    leftover,
	}, nil
}

// RecordInvocation counts one resolution. outcome is "resolved" or the
// error kind that ended the pipeline.
func (em *EngineMetrics) RecordInvocation(ctx context.Context, verb, plugin, outcome string, durationMs float64) {
	if em == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrVerb, verb),
		attribute.String(AttrPlugin, plugin),
		attribute.String(AttrOutcome, outcome),
	)
	em.invocations.Add(ctx, 1, attrs)
	em.duration.Record(ctx, durationMs, attrs)
}

// RecordLeftover counts tokens the grammar pass could not claim.
func (em *EngineMetrics) RecordLeftover(ctx context.Context, plugin string, count int) {
	if em == nil || count == 0 {
		return
	}
	em.leftover.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String(AttrPlugin, plugin)),
	)
}
