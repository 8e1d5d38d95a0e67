// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"os"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestOTLPSmoke(t *testing.T) {
	if os.Getenv("EDICT_OTLP_SMOKE_TEST") != "1" {
		t.Skip("set EDICT_OTLP_SMOKE_TEST=1 to run")
	}

	endpoint := os.Getenv("EDICT_TELEMETRY_ENDPOINT")
	if endpoint == "" {
		t.Skip("set EDICT_TELEMETRY_ENDPOINT for the OTLP smoke test")
	}

	cfg := Config{
		Enabled:     true,
		Exporter:    "otlp",
		Endpoint:    endpoint,
		SampleRatio: 1.0,
	}
	if os.Getenv("EDICT_TELEMETRY_INSECURE") == "true" {
		cfg.Insecure = true
	}

	shutdown, err := Init(context.Background(), "v0.0.0-smoke", cfg)
	if err != nil {
		t.Fatalf("failed to init telemetry: %v", err)
	}

	tracer := otel.Tracer("edict/telemetry-smoke")
	ctx, span := tracer.Start(context.Background(), "smoke.span")
	span.SetAttributes(attribute.String("smoke.test", "otlp"))
	span.End()

	meter := otel.Meter("edict/telemetry-smoke")
	counter, err := meter.Int64Counter("edict.telemetry.smoke.counter")
	if err == nil {
		counter.Add(ctx, 1, metric.WithAttributes(attribute.String("smoke.test", "otlp")))
	}

	time.Sleep(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("telemetry shutdown failed: %v", err)
	}
}
