// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides slog configuration and OpenTelemetry
// integration for the resolution pipeline.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for edict telemetry. These follow OpenTelemetry
// naming conventions where applicable.
const (
	// Resolution attributes
	AttrResolutionID = "edict.resolution.id"
	AttrVerb         = "edict.verb"
	AttrPlugin       = "edict.plugin"
	AttrCommandIndex = "edict.command.index"
	AttrOutcome      = "edict.outcome"
	AttrErrorKind    = "edict.error.kind"

	// Token attributes
	AttrTokenCount    = "edict.tokens.count"
	AttrLeftoverCount = "edict.tokens.leftover_count"

	// State attributes
	AttrStateFields = "edict.state.fields"

	// Session attributes
	AttrSessionID = "edict.session.id"

	// Selector attributes
	AttrSelectorKind = "edict.selector.kind"
)

// ResolutionAttributes returns the common attributes for a resolution span.
func ResolutionAttributes(id, verb string, tokenCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrResolutionID, id),
		attribute.Int(AttrTokenCount, tokenCount),
	}
	if verb != "" {
		attrs = append(attrs, attribute.String(AttrVerb, verb))
	}
	return attrs
}

// MatchAttributes returns attributes describing the matched command.
func MatchAttributes(plugin string, commandIndex int, stateFields []string, leftover int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrPlugin, plugin),
		attribute.Int(AttrCommandIndex, commandIndex),
	}
	if len(stateFields) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrStateFields, stateFields))
	}
	if leftover > 0 {
		attrs = append(attrs, attribute.Int(AttrLeftoverCount, leftover))
	}
	return attrs
}

// OutcomeAttributes returns attributes for the end of a resolution span:
// the outcome is "resolved" on success, the error kind otherwise.
func OutcomeAttributes(errKind string) []attribute.KeyValue {
	if errKind == "" {
		return []attribute.KeyValue{attribute.String(AttrOutcome, "resolved")}
	}
	return []attribute.KeyValue{
		attribute.String(AttrOutcome, errKind),
		attribute.String(AttrErrorKind, errKind),
	}
}
