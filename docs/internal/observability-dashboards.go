// SPDX-License-Identifier: Apache-2.0
// Edict Observability Dashboards
// This file documents dashboard templates for OpenTelemetry OTEL UI or Grafana.
//
// DASHBOARD: Resolution Throughput & Outcomes
//   Shows invocation volume over time with breakdown by verb and outcome.
//
//   Queries:
//   - edict.invocations.total{edict.outcome} (rate 5m)
//     Metric: Resolution rate by outcome
//     Display: Line chart with legend (ok, UNKNOWN_VERB, NO_MATCHING_COMMAND,
//              GRAMMAR_MISMATCH, LOOKUP_ERROR, TEMPLATE_CYCLE, ...)
//     Insight: Error outcomes are deterministic, so a spike means a new
//              input pattern or descriptor change, never a flaky dependency.
//
//   - edict.invocations.total{edict.verb, edict.plugin}
//     Metric: Invocations per verb and serving plugin
//     Display: Stacked bar chart
//     Insight: Which verbs carry the traffic; whether a shared verb is
//              being routed to the expected plugin.
//
//   - edict.resolve.duration_ms (p50/p95/p99)
//     Metric: End-to-end resolution latency
//     Display: Heatmap or percentile lines
//     Expectation: Pure in-memory computation; p99 above a few ms points
//                  at descriptor bloat (pass-bound retries) or host load.
//
// DASHBOARD: Grammar Quality
//   Shows how well descriptor grammars cover real input.
//
//   Queries:
//   - edict.tokens.leftover{edict.plugin} (rate 5m)
//     Metric: Tokens no grammar field claimed, by plugin
//     Display: Bar chart per plugin
//     Insight: A plugin with persistent leftovers needs new grammar
//              fields or inference rules; under strict mode these become
//              GRAMMAR_MISMATCH errors instead.
//
//   - edict.invocations.total{edict.outcome="NO_MATCHING_COMMAND"} by (edict.verb)
//     Breakdown: Unmatched states per verb
//     Display: Table
//     Insight: Which verbs reach a complete state that satisfies no
//              declared command predicate.
//
// ALERT RULES (Prometheus/AlertManager format):
//
// Alert 1: High Failure Share
//   Name: EdictHighFailureShare
//   Condition: rate(edict.invocations.total{edict.outcome!="ok"}[5m])
//              / rate(edict.invocations.total[5m]) > 0.2
//   Duration: 5m
//   Severity: warning
//   Message: "{{ $value }} of resolutions failing; check recent descriptor changes"
//   Action: Diff the descriptor set; failures are reproducible from history records
//
// Alert 2: Template Cycles
//   Name: EdictTemplateCycles
//   Condition: rate(edict.invocations.total{edict.outcome="TEMPLATE_CYCLE"}[5m]) > 0
//   Duration: 1m
//   Severity: critical
//   Message: "Self-referencing service templates detected"
//   Action: A descriptor defines a service in terms of itself; fix the template
//
// Alert 3: Slow Resolutions
//   Name: EdictSlowResolutions
//   Condition: histogram_quantile(0.99, edict.resolve.duration_ms) > 50
//   Duration: 5m
//   Severity: warning
//   Message: "p99 resolution latency {{ $value }}ms"
//   Action: Check descriptor size and service nesting depth
//
// OTEL QUERY EXAMPLES for OTEL UI or Grafana:
//
// 1. Outcome Rate (5-minute)
//    PromQL: rate(edict.invocations.total[5m]) by (edict.outcome)
//
// 2. Failure Percentage
//    PromQL: (rate(edict.invocations.total{edict.outcome!="ok"}[5m])
//             / rate(edict.invocations.total[5m])) * 100
//    Display: Single stat
//
// 3. Top Verbs by Volume
//    PromQL: topk(5, sum(rate(edict.invocations.total[5m])) by (edict.verb))
//    Display: Bar chart
//
// 4. Leftover Tokens Trend (24h)
//    PromQL: rate(edict.tokens.leftover[5m]) by (edict.plugin)
//    Range: 24h
//    Display: Area chart
//
// INTEGRATION PATTERNS:
//
// 1. Descriptor Rollout Tracking:
//    - Deploy descriptor changes behind a canary plugin directory
//    - Compare edict.invocations.total outcome mix before/after
//    - Resolution is deterministic: any outcome change traces to the diff
//
// 2. Grammar Coverage Review:
//    - Weekly: query edict.tokens.leftover by plugin
//    - Cross-reference with history records (edict history --failed)
//    - Promote recurring leftover patterns into grammar fields
//
// 3. Span Drill-Down:
//    - engine.resolve parents resolve_verb, select_plugin, parse, infer,
//      match and expand stage spans
//    - Slow expand spans with high pass counts point at nested service
//      composition; the pass bound caps the worst case
//
// This file is documentation only.
// See pkg/telemetry/metrics.go for the instrument definitions.
package internal
